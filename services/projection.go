package services

import (
	"fmt"
	"strconv"
	"strings"

	"food-admin/models"
)

// Filter selects orders by status; the zero value is not a valid filter,
// use FilterAll or FilterStatus.
type Filter struct {
	all    bool
	status models.OrderStatus
}

var FilterAll = Filter{all: true}

func FilterStatus(s models.OrderStatus) Filter {
	return Filter{status: s}
}

// Filters returns all, then one filter per status in lifecycle order.
func Filters() []Filter {
	out := []Filter{FilterAll}
	for _, s := range models.Statuses() {
		out = append(out, FilterStatus(s))
	}
	return out
}

func ParseFilter(label string) (Filter, error) {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" || label == "all" {
		return FilterAll, nil
	}
	s, err := models.ParseOrderStatus(label)
	if err != nil {
		return Filter{}, fmt.Errorf("unknown filter %q", label)
	}
	return FilterStatus(s), nil
}

func (f Filter) All() bool { return f.all }

// Status is meaningful only when All is false.
func (f Filter) Status() models.OrderStatus { return f.status }

func (f Filter) Label() string {
	if f.all {
		return "all"
	}
	return f.status.String()
}

func (f Filter) String() string { return f.Label() }

func (f Filter) Match(o models.Order) bool {
	return f.all || o.Status == f.status
}

// Counts maps each filter to the number of matching orders.
type Counts map[Filter]int

func (c Counts) All() int { return c[FilterAll] }

func (c Counts) Of(s models.OrderStatus) int { return c[FilterStatus(s)] }

// Labels returns the counts keyed by filter label.
func (c Counts) Labels() map[string]int {
	out := make(map[string]int, len(c))
	for f, n := range c {
		out[f.Label()] = n
	}
	return out
}

// CountsByStatus counts the snapshot's orders under every filter. Every
// filter is present, zero counts included.
func CountsByStatus(snap *Snapshot) Counts {
	c := make(Counts, models.NumStatuses+1)
	for _, f := range Filters() {
		c[f] = 0
	}
	for _, o := range snap.Orders {
		c[FilterAll]++
		c[FilterStatus(o.Status)]++
	}
	return c
}

// FilteredOrders returns the matching orders in backend order.
func FilteredOrders(snap *Snapshot, f Filter) []models.Order {
	out := make([]models.Order, 0, len(snap.Orders))
	for _, o := range snap.Orders {
		if f.Match(o) {
			out = append(out, o)
		}
	}
	return out
}

// ResolveItemLabel names a menu item, falling back to "Item #<id>" when the
// catalog no longer (or not yet) has it.
func ResolveItemLabel(snap *Snapshot, menuItemID int64) string {
	if it, ok := snap.Catalog.Lookup(menuItemID); ok && it.Name != "" {
		return it.Name
	}
	return "Item #" + strconv.FormatInt(menuItemID, 10)
}
