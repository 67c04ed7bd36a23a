package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"food-admin/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", srv.Client())
}

func TestClient_ListMenu(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/menu/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"id":1,"name":"Samosa","description":"Crispy","price":20,"is_available":true}]`)
	})

	items, err := c.ListMenu(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Samosa", items[0].Name)
	assert.True(t, items[0].Price.Equal(decimal.NewFromInt(20)))
	assert.True(t, items[0].IsAvailable)
}

func TestClient_ListOrdersEmptyIsNotNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/", r.URL.Path)
		io.WriteString(w, `[]`)
	})

	orders, err := c.ListOrders(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
}

func TestClient_UpdateOrderStatusSendsWireStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/orders/100", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "req-1", r.Header.Get("X-Request-ID"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "out-for-delivery", body["status"])
		io.WriteString(w, `{"id":100,"customer_whatsapp":"x","items":[],"status":"out-for-delivery","total_price":40,"created_at":"2024-05-01T10:00:00"}`)
	})

	ctx := WithRequestID(context.Background(), "req-1")
	o, err := c.UpdateOrderStatus(ctx, 100, models.StatusOutForDelivery)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOutForDelivery, o.Status)
}

func TestClient_CancelOrder(t *testing.T) {
	var called bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/orders/7", r.URL.Path)
		io.WriteString(w, `{"message":"Order cancelled successfully"}`)
	})

	require.NoError(t, c.CancelOrder(context.Background(), 7))
	assert.True(t, called)
}

func TestClient_CreateAndUpdateMenuItem(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		switch r.Method {
		case http.MethodPost:
			assert.Equal(t, "/menu/", r.URL.Path)
			assert.JSONEq(t, `{"name":"Chai","description":"Hot","price":15.5,"is_available":true}`, string(raw))
			io.WriteString(w, `{"id":9,"name":"Chai","description":"Hot","price":15.5,"is_available":true}`)
		case http.MethodPatch:
			assert.Equal(t, "/menu/9", r.URL.Path)
			assert.JSONEq(t, `{"is_available":false}`, string(raw))
			io.WriteString(w, `{"id":9,"name":"Chai","description":"Hot","price":15.5,"is_available":false}`)
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	})

	created, err := c.CreateMenuItem(context.Background(), models.MenuItemCreate{
		Name: "Chai", Description: "Hot", Price: decimal.RequireFromString("15.5"), IsAvailable: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), created.ID)

	off := false
	updated, err := c.UpdateMenuItem(context.Background(), 9, models.MenuItemUpdate{IsAvailable: &off})
	require.NoError(t, err)
	assert.False(t, updated.IsAvailable)
}

func TestClient_RejectionMessages(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		call    func(c *Client) error
		wantMsg string
	}{
		{
			name:    "detail surfaced verbatim",
			status:  http.StatusBadRequest,
			body:    `{"detail":"Cannot cancel order with status: delivered"}`,
			call:    func(c *Client) error { return c.CancelOrder(context.Background(), 1) },
			wantMsg: "Cannot cancel order with status: delivered",
		},
		{
			name:    "non-string detail falls back",
			status:  http.StatusUnprocessableEntity,
			body:    `{"detail":[{"loc":["body","status"],"msg":"field required"}]}`,
			call:    func(c *Client) error { _, err := c.UpdateOrderStatus(context.Background(), 1, models.StatusPreparing); return err },
			wantMsg: "Failed to update order status",
		},
		{
			name:    "non-json body falls back",
			status:  http.StatusInternalServerError,
			body:    `Internal Server Error`,
			call:    func(c *Client) error { _, err := c.ListOrders(context.Background()); return err },
			wantMsg: "Failed to fetch orders",
		},
		{
			name:    "empty body falls back",
			status:  http.StatusNotFound,
			body:    ``,
			call:    func(c *Client) error { _, err := c.ListMenu(context.Background()); return err },
			wantMsg: "Failed to fetch menu items",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			err := tt.call(c)
			require.Error(t, err)
			var re *RejectionError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, tt.status, re.StatusCode)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.True(t, IsRejection(err))
			assert.False(t, IsNetworkError(err))
		})
	}
}

type failingTransport struct{ err error }

func (f failingTransport) Do(*http.Request) (*http.Response, error) { return nil, f.err }

func TestClient_NetworkFailure(t *testing.T) {
	boom := errors.New("connection refused")
	c := NewClient("http://backend.invalid", failingTransport{err: boom})

	_, err := c.ListOrders(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
	assert.ErrorIs(t, err, boom)
}

func TestClient_UndecodableBodyIsNetworkError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":1,"status":"ready"}]`)
	})

	_, err := c.ListOrders(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
}
