package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"food-admin/logger"
	"food-admin/models"
	"food-admin/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type stubSync struct {
	triggered bool
	running   bool
	lastSync  time.Time
	lastErr   error
}

func (s *stubSync) Trigger() bool { return s.triggered }
func (s *stubSync) Running() bool { return s.running }
func (s *stubSync) LastSync() time.Time { return s.lastSync }
func (s *stubSync) LastError() error { return s.lastErr }

func setupTestRouter(sync *stubSync) http.Handler {
	store := services.NewStore()
	store.Replace(services.NewSnapshot(
		[]models.Order{
			{ID: 1, Status: models.StatusPending, TotalPrice: decimal.NewFromInt(40), Items: []models.OrderItem{{MenuItemID: 1, Quantity: 2}}},
			{ID: 2, Status: models.StatusDelivered, TotalPrice: decimal.NewFromInt(15), Items: []models.OrderItem{{MenuItemID: 9, Quantity: 1}}},
		},
		[]models.MenuItem{{ID: 1, Name: "Samosa", Price: decimal.NewFromInt(20), IsAvailable: true}},
		t0,
	))
	return NewRouter(NewHandler(store, sync, logger.Discard()), logger.Discard())
}

func doRequest(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestListOrders(t *testing.T) {
	h := setupTestRouter(&stubSync{running: true})

	tests := []struct {
		name    string
		path    string
		code    int
		wantIDs []float64
	}{
		{"all", "/api/orders", http.StatusOK, []float64{1, 2}},
		{"pending", "/api/orders?status=pending", http.StatusOK, []float64{1}},
		{"empty bucket", "/api/orders?status=preparing", http.StatusOK, []float64{}},
		{"unknown", "/api/orders?status=lost", http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(h, http.MethodGet, tt.path)
			require.Equal(t, tt.code, rec.Code)
			if tt.wantIDs == nil {
				return
			}
			var body []map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			ids := []float64{}
			for _, o := range body {
				ids = append(ids, o["id"].(float64))
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestGetOrder_ResolvesLabelsAndActions(t *testing.T) {
	h := setupTestRouter(&stubSync{running: true})

	rec := doRequest(h, http.MethodGet, "/api/orders/2")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status       string   `json:"status"`
		LegalActions []string `json:"legal_actions"`
		Items        []struct {
			Label string `json:"label"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "delivered", body.Status)
	assert.Empty(t, body.LegalActions)
	assert.Equal(t, "Item #9", body.Items[0].Label)

	rec = doRequest(h, http.MethodGet, "/api/orders/1")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"start-preparing", "cancel"}, body.LegalActions)
	assert.Equal(t, "Samosa", body.Items[0].Label)

	assert.Equal(t, http.StatusNotFound, doRequest(h, http.MethodGet, "/api/orders/99").Code)
}

func TestCounts(t *testing.T) {
	rec := doRequest(setupTestRouter(&stubSync{}), http.MethodGet, "/api/orders/counts")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]int{
		"all": 2, "pending": 1, "preparing": 0, "out-for-delivery": 0, "delivered": 1, "cancelled": 0,
	}, body)
}

func TestListMenu(t *testing.T) {
	rec := doRequest(setupTestRouter(&stubSync{}), http.MethodGet, "/api/menu")
	require.Equal(t, http.StatusOK, rec.Code)
	var body []models.MenuItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "Samosa", body[0].Name)
	assert.Contains(t, rec.Body.String(), `"price":20`)
}

func TestRefresh(t *testing.T) {
	assert.Equal(t, http.StatusAccepted, doRequest(setupTestRouter(&stubSync{triggered: true, running: true}), http.MethodPost, "/api/refresh").Code)
	assert.Equal(t, http.StatusConflict, doRequest(setupTestRouter(&stubSync{running: true}), http.MethodPost, "/api/refresh").Code)
	assert.Equal(t, http.StatusServiceUnavailable, doRequest(setupTestRouter(&stubSync{}), http.MethodPost, "/api/refresh").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, doRequest(setupTestRouter(&stubSync{}), http.MethodGet, "/api/refresh").Code)
}

func TestHealth(t *testing.T) {
	rec := doRequest(setupTestRouter(&stubSync{lastSync: t0, lastErr: errors.New("Failed to fetch orders")}), http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.True(t, body.Loaded)
	assert.Equal(t, "Failed to fetch orders", body.LastError)
	require.NotNil(t, body.LastSync)
	assert.True(t, t0.Equal(*body.LastSync))
}

type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset by peer") }

func TestWriteJSON_LogsEncodeFailure(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(services.NewStore(), &stubSync{}, logger.New(logger.Config{Format: "json", Output: &buf}))

	h.writeJSON(brokenWriter{httptest.NewRecorder()}, http.StatusOK, map[string]string{"status": "ok"})

	assert.Contains(t, buf.String(), `"msg":"encode response"`)
	assert.Contains(t, buf.String(), "connection reset by peer")
}
