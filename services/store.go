package services

import (
	"sync/atomic"
	"time"

	"food-admin/models"
)

// Catalog is the menu as of one fetch.
type Catalog struct {
	items []models.MenuItem
	byID  map[int64]int
}

func NewCatalog(items []models.MenuItem) Catalog {
	c := Catalog{
		items: append([]models.MenuItem(nil), items...),
		byID:  make(map[int64]int, len(items)),
	}
	for i, it := range c.items {
		c.byID[it.ID] = i
	}
	return c
}

// Items returns the items in backend order. Callers must not modify the slice.
func (c Catalog) Items() []models.MenuItem { return c.items }

func (c Catalog) Len() int { return len(c.items) }

func (c Catalog) Lookup(id int64) (models.MenuItem, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.MenuItem{}, false
	}
	return c.items[i], true
}

// Snapshot pairs the order collection and the catalog from the same refresh
// cycle. A Snapshot is never modified after it is published.
type Snapshot struct {
	Orders    []models.Order
	Catalog   Catalog
	FetchedAt time.Time
}

func NewSnapshot(orders []models.Order, menu []models.MenuItem, fetchedAt time.Time) *Snapshot {
	return &Snapshot{
		Orders:    append([]models.Order(nil), orders...),
		Catalog:   NewCatalog(menu),
		FetchedAt: fetchedAt,
	}
}

// Order finds an order by id.
func (s *Snapshot) Order(id int64) (models.Order, bool) {
	for _, o := range s.Orders {
		if o.ID == id {
			return o, true
		}
	}
	return models.Order{}, false
}

// Loaded reports whether the snapshot came from a successful fetch.
func (s *Snapshot) Loaded() bool {
	return !s.FetchedAt.IsZero()
}

var emptySnapshot = NewSnapshot(nil, nil, time.Time{})

// Store holds the current snapshot. The sync scheduler is its only writer.
type Store struct {
	current atomic.Pointer[Snapshot]
}

func NewStore() *Store {
	s := &Store{}
	s.current.Store(emptySnapshot)
	return s
}

// Snapshot never returns nil.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Replace publishes next and returns the snapshot it replaced.
func (s *Store) Replace(next *Snapshot) *Snapshot {
	return s.current.Swap(next)
}
