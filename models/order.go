package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle stage of a customer order.
type OrderStatus uint8

const (
	StatusPending OrderStatus = iota
	StatusPreparing
	StatusOutForDelivery
	StatusDelivered
	StatusCancelled

	numStatuses
)

// NumStatuses is the number of order statuses. Tables indexed by OrderStatus use it as their length.
const NumStatuses = int(numStatuses)

var statusNames = [...]string{
	StatusPending:        "pending",
	StatusPreparing:      "preparing",
	StatusOutForDelivery: "out-for-delivery",
	StatusDelivered:      "delivered",
	StatusCancelled:      "cancelled",
}

// Fails to compile when a status has no wire name.
var _ = [1]struct{}{}[len(statusNames)-NumStatuses]

// Statuses lists every order status in lifecycle order.
func Statuses() []OrderStatus {
	out := make([]OrderStatus, NumStatuses)
	for i := range out {
		out[i] = OrderStatus(i)
	}
	return out
}

func (s OrderStatus) String() string {
	if !s.Valid() {
		return fmt.Sprintf("status(%d)", uint8(s))
	}
	return statusNames[s]
}

func (s OrderStatus) Valid() bool {
	return s < numStatuses
}

// Terminal reports whether no further transition can leave s.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// ParseOrderStatus accepts the backend's wire names. The underscore spelling
// of out-for-delivery is accepted as well.
func ParseOrderStatus(v string) (OrderStatus, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "out_for_delivery" {
		return StatusOutForDelivery, nil
	}
	for i, name := range statusNames {
		if name == v {
			return OrderStatus(i), nil
		}
	}
	return 0, fmt.Errorf("unknown order status %q", v)
}

func (s OrderStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid order status %d", uint8(s))
	}
	return []byte(statusNames[s]), nil
}

func (s *OrderStatus) UnmarshalText(b []byte) error {
	v, err := ParseOrderStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// OrderItem is one line of an order. MenuItemID is a weak reference: the
// catalog may no longer contain it.
type OrderItem struct {
	MenuItemID int64 `json:"menu_item_id"`
	Quantity   int   `json:"quantity"`
}

// Order is a row from GET /orders/.
type Order struct {
	ID              int64           `json:"id"`
	CustomerName    *string         `json:"customer_name"`
	CustomerContact string          `json:"customer_whatsapp"`
	Items           []OrderItem     `json:"items"`
	Status          OrderStatus     `json:"status"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	CreatedAt       Timestamp       `json:"created_at"`
}

// OrderStatusUpdate is the PATCH /orders/{id} body.
type OrderStatusUpdate struct {
	Status OrderStatus `json:"status"`
}

// Timestamp keeps the backend's creation time text and its parsed value.
// The backend sends naive ISO timestamps without a zone; those are read as UTC.
type Timestamp struct {
	Time time.Time
	Raw  string
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func ParseTimestamp(raw string) (Timestamp, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return Timestamp{Time: t, Raw: raw}, nil
		}
	}
	return Timestamp{Raw: raw}, fmt.Errorf("unrecognized timestamp %q", raw)
}

func (t Timestamp) IsZero() bool {
	return t.Raw == "" && t.Time.IsZero()
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Raw != "" {
		return json.Marshal(t.Raw)
	}
	if t.Time.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// UnmarshalJSON never fails on an unparseable time; the raw text is kept so
// the order can still be rendered.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = Timestamp{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("created_at: %w", err)
	}
	*t, _ = ParseTimestamp(raw)
	return nil
}
