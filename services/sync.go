package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"food-admin/backend"
	"food-admin/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultSyncInterval is the polling cadence when none is configured.
const DefaultSyncInterval = 5 * time.Second

// SnapshotSource fetches full collections from the backend.
type SnapshotSource interface {
	ListOrders(ctx context.Context) ([]models.Order, error)
	ListMenu(ctx context.Context) ([]models.MenuItem, error)
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock lets tests drive the scheduler without real time.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker { return realTicker{time.NewTicker(d)} }

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }

func (r realTicker) Stop() { r.t.Stop() }

type SyncOptions struct {
	Interval time.Duration
	Clock    Clock
	Logger   *slog.Logger
}

// SyncScheduler keeps the Store in step with the backend by polling. At most
// one refresh cycle runs at a time; a tick that arrives while one is running
// is dropped. Each successful cycle replaces the whole snapshot.
type SyncScheduler struct {
	source   SnapshotSource
	store    *Store
	clock    Clock
	interval time.Duration
	log      *slog.Logger

	mu       sync.Mutex
	running  bool
	inFlight bool
	gen      uint64
	ctx      context.Context
	cancel   context.CancelFunc
	ticker   Ticker
	lastErr  error
	lastSync time.Time

	onSync    []func(prev, next *Snapshot)
	onError   []func(err error)
	onRecover []func()
	events    dispatcher

	cycles sync.WaitGroup
}

// dispatcher runs queued listener calls one at a time, in order, off the
// cycle goroutine. The drain goroutine exits when the queue is empty.
type dispatcher struct {
	mu       sync.Mutex
	queue    []func()
	draining bool
	pending  sync.WaitGroup
}

func (d *dispatcher) post(fn func()) {
	d.pending.Add(1)
	d.mu.Lock()
	d.queue = append(d.queue, fn)
	if d.draining {
		d.mu.Unlock()
		return
	}
	d.draining = true
	d.mu.Unlock()
	go d.drain()
}

func (d *dispatcher) drain() {
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.draining = false
			d.mu.Unlock()
			return
		}
		fn := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()

		fn()
		d.pending.Done()
	}
}

func NewSyncScheduler(source SnapshotSource, store *Store, opts SyncOptions) *SyncScheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultSyncInterval
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &SyncScheduler{
		source:   source,
		store:    store,
		clock:    opts.Clock,
		interval: opts.Interval,
		log:      opts.Logger.With("component", "sync"),
	}
}

// OnSync registers fn to run after every applied cycle. Listeners run one at a
// time in cycle order on a separate goroutine, so a slow listener never holds
// the cycle slot.
func (s *SyncScheduler) OnSync(fn func(prev, next *Snapshot)) {
	s.mu.Lock()
	s.onSync = append(s.onSync, fn)
	s.mu.Unlock()
}

// OnError registers fn to run after every failed cycle.
func (s *SyncScheduler) OnError(fn func(err error)) {
	s.mu.Lock()
	s.onError = append(s.onError, fn)
	s.mu.Unlock()
}

// OnRecover registers fn to run on the first successful cycle after a failure.
func (s *SyncScheduler) OnRecover(fn func()) {
	s.mu.Lock()
	s.onRecover = append(s.onRecover, fn)
	s.mu.Unlock()
}

// Start begins polling: one cycle now, then one per interval until Stop or
// until ctx is done. Starting a running scheduler does nothing.
func (s *SyncScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.gen++
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.ticker = s.clock.NewTicker(s.interval)
	loopCtx, ticker := s.ctx, s.ticker
	s.mu.Unlock()

	s.log.Info("polling started", "interval", s.interval)
	go s.loop(loopCtx, ticker)
	s.Trigger()
}

func (s *SyncScheduler) loop(ctx context.Context, ticker Ticker) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if !s.Trigger() {
				s.log.Debug("tick skipped, refresh still in flight")
			}
		}
	}
}

// Stop cancels the ticker. A cycle still in flight finishes without touching the Store.
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.gen++
	s.ticker.Stop()
	s.cancel()
	s.log.Info("polling stopped")
}

// Trigger starts a refresh cycle unless one is already in flight or the
// scheduler is stopped. It reports whether a cycle was started.
func (s *SyncScheduler) Trigger() bool {
	s.mu.Lock()
	if !s.running || s.inFlight {
		s.mu.Unlock()
		return false
	}
	s.inFlight = true
	gen, ctx := s.gen, s.ctx
	s.cycles.Add(1)
	s.mu.Unlock()

	go s.runCycle(ctx, gen)
	return true
}

// Wait blocks until no cycle is in flight and every listener queued so far has run.
func (s *SyncScheduler) Wait() {
	s.cycles.Wait()
	s.events.pending.Wait()
}

func (s *SyncScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *SyncScheduler) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// LastError is the error of the most recent cycle, nil after a success.
func (s *SyncScheduler) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *SyncScheduler) LastSync() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSync
}

func (s *SyncScheduler) runCycle(ctx context.Context, gen uint64) {
	defer s.cycles.Done()

	reqID := uuid.NewString()
	log := s.log.With("request_id", reqID)
	ctx = backend.WithRequestID(ctx, reqID)

	var (
		orders []models.Order
		menu   []models.MenuItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = s.source.ListOrders(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		menu, err = s.source.ListMenu(gctx)
		return err
	})
	err := g.Wait()

	s.mu.Lock()
	s.inFlight = false
	if !s.running || s.gen != gen {
		s.mu.Unlock()
		log.Debug("discarding refresh result after stop")
		return
	}
	if err != nil {
		s.lastErr = err
		listeners := append([]func(error){}, s.onError...)
		s.events.post(func() {
			for _, fn := range listeners {
				fn(err)
			}
		})
		s.mu.Unlock()

		log.Warn("refresh failed, keeping previous snapshot", "error", err)
		return
	}

	recovered := s.lastErr != nil
	s.lastErr = nil
	next := NewSnapshot(orders, menu, s.clock.Now())
	prev := s.store.Replace(next)
	s.lastSync = next.FetchedAt
	syncListeners := append([]func(prev, next *Snapshot){}, s.onSync...)
	var recoverListeners []func()
	if recovered {
		recoverListeners = append(recoverListeners, s.onRecover...)
	}
	s.events.post(func() {
		for _, fn := range syncListeners {
			fn(prev, next)
		}
		for _, fn := range recoverListeners {
			fn()
		}
	})
	s.mu.Unlock()

	log.Debug("snapshot replaced", "orders", len(next.Orders), "menu_items", next.Catalog.Len())
}
