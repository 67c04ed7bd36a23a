package services

import (
	"context"
	"fmt"
	"time"

	"food-admin/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AdminAction is one command an operator issued, successful or not.
type AdminAction struct {
	OrderID    int64
	Command    Command
	FromStatus models.OrderStatus
	ToStatus   models.OrderStatus
	ActorID    int64
	Err        error
	CreatedAt  time.Time
	// ErrText is filled when reading back from the log.
	ErrText string
}

// AdminActionLog stores admin actions in the admin_actions table.
type AdminActionLog struct {
	pool *pgxpool.Pool
}

func NewAdminActionLog(pool *pgxpool.Pool) *AdminActionLog {
	return &AdminActionLog{pool: pool}
}

func (l *AdminActionLog) RecordAction(ctx context.Context, a AdminAction) error {
	var errText *string
	if a.Err != nil {
		s := a.Err.Error()
		errText = &s
	}
	_, err := l.pool.Exec(ctx, `
		INSERT INTO admin_actions (order_id, command, from_status, to_status, actor_id, error)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.OrderID, string(a.Command), a.FromStatus.String(), a.ToStatus.String(), a.ActorID, errText,
	)
	return err
}

// RecentActions returns the newest actions for an order, newest first.
func (l *AdminActionLog) RecentActions(ctx context.Context, orderID int64, limit int) ([]AdminAction, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := l.pool.Query(ctx, `
		SELECT command, from_status, to_status, actor_id, COALESCE(error, ''), created_at
		FROM admin_actions
		WHERE order_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`,
		orderID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AdminAction
	for rows.Next() {
		var (
			cmd, from, to string
			a             AdminAction
		)
		if err := rows.Scan(&cmd, &from, &to, &a.ActorID, &a.ErrText, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.OrderID = orderID
		a.Command = Command(cmd)
		if a.FromStatus, err = models.ParseOrderStatus(from); err != nil {
			return nil, fmt.Errorf("admin action from_status: %w", err)
		}
		if a.ToStatus, err = models.ParseOrderStatus(to); err != nil {
			return nil, fmt.Errorf("admin action to_status: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
