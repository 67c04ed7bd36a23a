package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    OrderStatus
		wantErr bool
	}{
		{"pending", StatusPending, false},
		{"preparing", StatusPreparing, false},
		{"out-for-delivery", StatusOutForDelivery, false},
		{"out_for_delivery", StatusOutForDelivery, false},
		{" Delivered ", StatusDelivered, false},
		{"cancelled", StatusCancelled, false},
		{"ready", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseOrderStatus(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "ParseOrderStatus(%q)", tt.in)
			continue
		}
		require.NoError(t, err, "ParseOrderStatus(%q)", tt.in)
		assert.Equal(t, tt.want, got, "ParseOrderStatus(%q)", tt.in)
	}
}

func TestOrderStatus_StringRoundTrip(t *testing.T) {
	for _, s := range Statuses() {
		got, err := ParseOrderStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	assert.Len(t, Statuses(), NumStatuses)
	assert.False(t, OrderStatus(NumStatuses).Valid())
}

func TestOrderStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusPreparing.Terminal())
	assert.False(t, StatusOutForDelivery.Terminal())
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestOrder_DecodeBackendPayload(t *testing.T) {
	payload := `{
		"id": 100,
		"customer_name": null,
		"customer_whatsapp": "whatsapp:+911234567890",
		"items": [{"menu_item_id": 1, "quantity": 2}],
		"status": "out-for-delivery",
		"total_price": 40.5,
		"created_at": "2024-05-01T18:30:12.123456"
	}`
	var o Order
	require.NoError(t, json.Unmarshal([]byte(payload), &o))

	assert.Equal(t, int64(100), o.ID)
	assert.Nil(t, o.CustomerName)
	assert.Equal(t, "whatsapp:+911234567890", o.CustomerContact)
	assert.Equal(t, []OrderItem{{MenuItemID: 1, Quantity: 2}}, o.Items)
	assert.Equal(t, StatusOutForDelivery, o.Status)
	assert.True(t, o.TotalPrice.Equal(decimal.RequireFromString("40.5")))
	assert.Equal(t, time.Date(2024, 5, 1, 18, 30, 12, 123456000, time.UTC), o.CreatedAt.Time)
	assert.Equal(t, "2024-05-01T18:30:12.123456", o.CreatedAt.Raw)
}

func TestOrder_DecodeUnknownStatusFails(t *testing.T) {
	var o Order
	err := json.Unmarshal([]byte(`{"id":1,"status":"ready"}`), &o)
	assert.Error(t, err)
}

func TestTimestamp_UnparseableKeepsRaw(t *testing.T) {
	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
	assert.Equal(t, "yesterday", ts.Raw)
	assert.True(t, ts.Time.IsZero())
	assert.False(t, ts.IsZero())
}

func TestOrderStatusUpdate_Encode(t *testing.T) {
	b, err := json.Marshal(OrderStatusUpdate{Status: StatusOutForDelivery})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"out-for-delivery"}`, string(b))
}

func TestMenuItemUpdate_EncodesOnlySetFields(t *testing.T) {
	available := false
	b, err := json.Marshal(MenuItemUpdate{IsAvailable: &available})
	require.NoError(t, err)
	assert.JSONEq(t, `{"is_available":false}`, string(b))

	price := decimal.RequireFromString("20.50")
	b, err = json.Marshal(MenuItemCreate{Name: "Samosa", Price: price, IsAvailable: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Samosa","description":"","price":20.5,"is_available":true}`, string(b))

	assert.True(t, MenuItemUpdate{}.Empty())
}
