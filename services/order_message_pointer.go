package services

import (
	"context"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CardPointer locates the Telegram message holding an order's card in one chat.
type CardPointer struct {
	OrderID   int64
	ChatID    int64
	MessageID int
}

// CardPointerStore remembers where each order card was posted so later syncs
// can edit it in place.
type CardPointerStore interface {
	CardPointers(ctx context.Context, orderID int64) ([]CardPointer, error)
	UpsertCardPointer(ctx context.Context, p CardPointer) error
}

// PgCardPointers keeps card pointers in order_message_pointers.
type PgCardPointers struct {
	pool *pgxpool.Pool
}

func NewPgCardPointers(pool *pgxpool.Pool) *PgCardPointers {
	return &PgCardPointers{pool: pool}
}

// EnsureTable creates order_message_pointers if missing (safety net when migrate was not run).
func (s *PgCardPointers) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS order_message_pointers (
			order_id BIGINT NOT NULL,
			chat_id BIGINT NOT NULL,
			message_id INT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (order_id, chat_id)
		)`)
	return err
}

func isRelationNotExist(err error) bool {
	return err != nil && strings.Contains(err.Error(), "order_message_pointers") && strings.Contains(err.Error(), "does not exist")
}

func (s *PgCardPointers) CardPointers(ctx context.Context, orderID int64) ([]CardPointer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT chat_id, message_id FROM order_message_pointers WHERE order_id = $1 ORDER BY chat_id`,
		orderID,
	)
	if err != nil {
		if isRelationNotExist(err) {
			if ensureErr := s.EnsureTable(ctx); ensureErr != nil {
				return nil, ensureErr
			}
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var out []CardPointer
	for rows.Next() {
		p := CardPointer{OrderID: orderID}
		if err := rows.Scan(&p.ChatID, &p.MessageID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpsertCardPointer inserts or updates the pointer for (order_id, chat_id).
func (s *PgCardPointers) UpsertCardPointer(ctx context.Context, p CardPointer) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO order_message_pointers (order_id, chat_id, message_id, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (order_id, chat_id) DO UPDATE SET message_id = EXCLUDED.message_id, updated_at = now()`,
		p.OrderID, p.ChatID, p.MessageID,
	)
	if err != nil && isRelationNotExist(err) {
		if ensureErr := s.EnsureTable(ctx); ensureErr != nil {
			return ensureErr
		}
		return s.UpsertCardPointer(ctx, p)
	}
	return err
}

// MemoryCardPointers is the in-process store used when no database is configured.
type MemoryCardPointers struct {
	mu   sync.RWMutex
	byID map[int64]map[int64]int
}

func NewMemoryCardPointers() *MemoryCardPointers {
	return &MemoryCardPointers{byID: make(map[int64]map[int64]int)}
}

func (m *MemoryCardPointers) CardPointers(_ context.Context, orderID int64) ([]CardPointer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []CardPointer
	for chatID, msgID := range m.byID[orderID] {
		out = append(out, CardPointer{OrderID: orderID, ChatID: chatID, MessageID: msgID})
	}
	return out, nil
}

func (m *MemoryCardPointers) UpsertCardPointer(_ context.Context, p CardPointer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	chats := m.byID[p.OrderID]
	if chats == nil {
		chats = make(map[int64]int)
		m.byID[p.OrderID] = chats
	}
	chats[p.ChatID] = p.MessageID
	return nil
}
