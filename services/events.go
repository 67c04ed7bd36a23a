package services

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	"food-admin/models"
)

// StatusChange is an order status difference observed between two
// consecutive snapshots. From is nil for an order first seen in next.
type StatusChange struct {
	OrderID    int64               `json:"order_id"`
	From       *models.OrderStatus `json:"from,omitempty"`
	To         models.OrderStatus  `json:"to"`
	ObservedAt time.Time           `json:"observed_at"`
}

// DiffStatuses lists status changes from prev to next in next's order. An
// unloaded prev yields nothing: the first load is a baseline, not a change.
func DiffStatuses(prev, next *Snapshot) []StatusChange {
	if prev == nil || !prev.Loaded() {
		return nil
	}
	before := make(map[int64]models.OrderStatus, len(prev.Orders))
	for _, o := range prev.Orders {
		before[o.ID] = o.Status
	}
	var out []StatusChange
	for _, o := range next.Orders {
		from, seen := before[o.ID]
		switch {
		case !seen:
			out = append(out, StatusChange{OrderID: o.ID, To: o.Status, ObservedAt: next.FetchedAt})
		case from != o.Status:
			f := from
			out = append(out, StatusChange{OrderID: o.ID, From: &f, To: o.Status, ObservedAt: next.FetchedAt})
		}
	}
	return out
}

// ChangedOrders returns orders of next that are new or differ in any field from prev.
func ChangedOrders(prev, next *Snapshot) []models.Order {
	before := make(map[int64]models.Order, len(prev.Orders))
	for _, o := range prev.Orders {
		before[o.ID] = o
	}
	var out []models.Order
	for _, o := range next.Orders {
		if old, ok := before[o.ID]; !ok || !reflect.DeepEqual(old, o) {
			out = append(out, o)
		}
	}
	return out
}

// StatusPublisher ships observed status changes to downstream consumers.
type StatusPublisher interface {
	PublishStatusChanges(ctx context.Context, changes []StatusChange) error
}

// ForwardStatusChanges returns an OnSync listener publishing each cycle's
// status changes. Publish failures are logged and dropped.
func ForwardStatusChanges(pub StatusPublisher, timeout time.Duration, log *slog.Logger) func(prev, next *Snapshot) {
	if log == nil {
		log = slog.Default()
	}
	return func(prev, next *Snapshot) {
		changes := DiffStatuses(prev, next)
		if len(changes) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := pub.PublishStatusChanges(ctx, changes); err != nil {
			log.Warn("publish status changes", "count", len(changes), "error", err)
		}
	}
}
