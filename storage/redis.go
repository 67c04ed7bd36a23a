package storage

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Markers records which orders have already been announced to operators.
type Markers interface {
	// MarkNotified sets the marker for an order and reports whether it was
	// absent before, i.e. whether the caller should announce the order.
	MarkNotified(ctx context.Context, orderID int64) (bool, error)
	// ClearNotified drops the marker so the order is announced again.
	ClearNotified(ctx context.Context, orderID int64) error
}

type RedisMarkers struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisMarkers(client *redis.Client, ttl time.Duration) *RedisMarkers {
	return &RedisMarkers{Client: client, TTL: ttl}
}

func (m *RedisMarkers) NotifiedKey(orderID int64) string {
	return "admin:notified:" + strconv.FormatInt(orderID, 10)
}

func (m *RedisMarkers) MarkNotified(ctx context.Context, orderID int64) (bool, error) {
	return m.Client.SetNX(ctx, m.NotifiedKey(orderID), "1", m.TTL).Result()
}

func (m *RedisMarkers) ClearNotified(ctx context.Context, orderID int64) error {
	return m.Client.Del(ctx, m.NotifiedKey(orderID)).Err()
}

// MemoryMarkers keeps markers in process; they do not survive a restart.
type MemoryMarkers struct {
	mu   sync.Mutex
	seen map[int64]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryMarkers(ttl time.Duration) *MemoryMarkers {
	return &MemoryMarkers{seen: make(map[int64]time.Time), ttl: ttl, now: time.Now}
}

func (m *MemoryMarkers) MarkNotified(_ context.Context, orderID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if at, ok := m.seen[orderID]; ok && (m.ttl <= 0 || now.Sub(at) < m.ttl) {
		return false, nil
	}
	m.seen[orderID] = now
	return true, nil
}

func (m *MemoryMarkers) ClearNotified(_ context.Context, orderID int64) error {
	m.mu.Lock()
	delete(m.seen, orderID)
	m.mu.Unlock()
	return nil
}
