package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"food-admin/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeTicker struct {
	c       chan time.Time
	stopped atomic.Bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.c }

func (f *fakeTicker) Stop() { f.stopped.Store(true) }

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	ticker *fakeTicker
}

func newFakeClock() *fakeClock { return &fakeClock{now: t0} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTicker(time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticker = &fakeTicker{c: make(chan time.Time)}
	return c.ticker
}

// Tick blocks until the scheduler loop has received the tick.
func (c *fakeClock) Tick() {
	c.mu.Lock()
	tk, now := c.ticker, c.now
	c.mu.Unlock()
	tk.c <- now
}

type fakeSource struct {
	mu         sync.Mutex
	orders     []models.Order
	menu       []models.MenuItem
	ordersErr  error
	menuErr    error
	orderCalls int
	menuCalls  int
	// gate, when set, holds ListOrders until it is closed. The context is
	// ignored on purpose so a cycle can outlive Stop.
	gate chan struct{}
}

func (f *fakeSource) set(orders []models.Order, menu []models.MenuItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders, f.menu = orders, menu
	f.ordersErr, f.menuErr = nil, nil
}

func (f *fakeSource) failOrders(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ordersErr = err
}

func (f *fakeSource) failMenu(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.menuErr = err
}

func (f *fakeSource) calls() (orders, menu int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orderCalls, f.menuCalls
}

func (f *fakeSource) ListOrders(context.Context) ([]models.Order, error) {
	f.mu.Lock()
	f.orderCalls++
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ordersErr != nil {
		return nil, f.ordersErr
	}
	return append([]models.Order(nil), f.orders...), nil
}

func (f *fakeSource) ListMenu(context.Context) ([]models.MenuItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.menuCalls++
	if f.menuErr != nil {
		return nil, f.menuErr
	}
	return append([]models.MenuItem(nil), f.menu...), nil
}

type mockOrderAPI struct{ mock.Mock }

func (m *mockOrderAPI) UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) (*models.Order, error) {
	args := m.Called(ctx, id, status)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *mockOrderAPI) CancelOrder(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockMenuAPI struct{ mock.Mock }

func (m *mockMenuAPI) CreateMenuItem(ctx context.Context, in models.MenuItemCreate) (*models.MenuItem, error) {
	args := m.Called(ctx, in)
	it, _ := args.Get(0).(*models.MenuItem)
	return it, args.Error(1)
}

func (m *mockMenuAPI) UpdateMenuItem(ctx context.Context, id int64, in models.MenuItemUpdate) (*models.MenuItem, error) {
	args := m.Called(ctx, id, in)
	it, _ := args.Get(0).(*models.MenuItem)
	return it, args.Error(1)
}

type countingRefresher struct{ n atomic.Int32 }

func (r *countingRefresher) Trigger() bool {
	r.n.Add(1)
	return true
}

func samosa() models.MenuItem {
	return models.MenuItem{ID: 1, Name: "Samosa", Description: "Crispy", Price: decimal.NewFromInt(20), IsAvailable: true}
}

func order(id int64, status models.OrderStatus, items ...models.OrderItem) models.Order {
	return models.Order{
		ID:              id,
		CustomerContact: "whatsapp:+91000000" + decimal.NewFromInt(id).String(),
		Items:           items,
		Status:          status,
		TotalPrice:      decimal.NewFromInt(40),
		CreatedAt:       models.Timestamp{Time: t0, Raw: "2024-05-01T12:00:00"},
	}
}

func seededStore(orders []models.Order, menu []models.MenuItem) *Store {
	s := NewStore()
	s.Replace(NewSnapshot(orders, menu, t0))
	return s
}
