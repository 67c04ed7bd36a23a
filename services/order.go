package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"food-admin/models"
)

// Command is an admin action that moves an order to its next status.
type Command string

const (
	CommandStartPreparing     Command = "start-preparing"
	CommandCancel             Command = "cancel"
	CommandMarkOutForDelivery Command = "mark-out-for-delivery"
	CommandMarkDelivered      Command = "mark-delivered"
)

func ParseCommand(v string) (Command, error) {
	switch c := Command(v); c {
	case CommandStartPreparing, CommandCancel, CommandMarkOutForDelivery, CommandMarkDelivered:
		return c, nil
	}
	return "", fmt.Errorf("unknown command %q", v)
}

type transition struct {
	cmd Command
	to  models.OrderStatus
}

// transitions lists the legal moves out of each status, in the order their
// controls are offered. Terminal statuses have none.
var transitions = [...][]transition{
	models.StatusPending: {
		{CommandStartPreparing, models.StatusPreparing},
		{CommandCancel, models.StatusCancelled},
	},
	models.StatusPreparing: {
		{CommandMarkOutForDelivery, models.StatusOutForDelivery},
	},
	models.StatusOutForDelivery: {
		{CommandMarkDelivered, models.StatusDelivered},
	},
	models.StatusDelivered: nil,
	models.StatusCancelled: nil,
}

var _ = [1]struct{}{}[len(transitions)-models.NumStatuses]

// ErrInvalidTransition matches every *InvalidTransitionError.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrOrderNotFound is returned when a command names an order absent from the current snapshot.
var ErrOrderNotFound = errors.New("order not found")

type InvalidTransitionError struct {
	Status  models.OrderStatus
	Command Command
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s an order that is %s", e.Command, e.Status)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// LegalNextActions returns the commands that may be issued for an order in status.
func LegalNextActions(status models.OrderStatus) []Command {
	if !status.Valid() {
		return nil
	}
	ts := transitions[status]
	if len(ts) == 0 {
		return nil
	}
	out := make([]Command, len(ts))
	for i, t := range ts {
		out[i] = t.cmd
	}
	return out
}

// NextStatus returns the status cmd leads to from status, or an *InvalidTransitionError.
func NextStatus(status models.OrderStatus, cmd Command) (models.OrderStatus, error) {
	if status.Valid() {
		for _, t := range transitions[status] {
			if t.cmd == cmd {
				return t.to, nil
			}
		}
	}
	return status, &InvalidTransitionError{Status: status, Command: cmd}
}

// ValidStatusTransition reports whether some command moves an order from one status to the other.
func ValidStatusTransition(from, to models.OrderStatus) bool {
	if !from.Valid() {
		return false
	}
	for _, t := range transitions[from] {
		if t.to == to {
			return true
		}
	}
	return false
}

// OrderUpdater is the backend surface the Commander issues requests through.
type OrderUpdater interface {
	UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) (*models.Order, error)
	CancelOrder(ctx context.Context, id int64) error
}

// Refresher asks for an out-of-band refresh cycle. Implemented by *SyncScheduler.
type Refresher interface {
	Trigger() bool
}

// ActionRecorder persists admin actions; see AdminActionLog.
type ActionRecorder interface {
	RecordAction(ctx context.Context, a AdminAction) error
}

// Commander validates admin commands against the local snapshot and sends
// them to the backend. It never writes the Store: the next refresh cycle
// makes the new status visible.
type Commander struct {
	api       OrderUpdater
	store     *Store
	refresher Refresher
	recorder  ActionRecorder
	log       *slog.Logger
}

func NewCommander(api OrderUpdater, store *Store, log *slog.Logger) *Commander {
	if log == nil {
		log = slog.Default()
	}
	return &Commander{api: api, store: store, log: log.With("component", "commander")}
}

func (c *Commander) SetRefresher(r Refresher) { c.refresher = r }

func (c *Commander) SetRecorder(r ActionRecorder) { c.recorder = r }

// Issue runs cmd against order orderID. actorID identifies the operator for the action log.
func (c *Commander) Issue(ctx context.Context, orderID int64, cmd Command, actorID int64) error {
	o, ok := c.store.Snapshot().Order(orderID)
	if !ok {
		return fmt.Errorf("order #%d: %w", orderID, ErrOrderNotFound)
	}
	next, err := NextStatus(o.Status, cmd)
	if err != nil {
		c.log.Warn("refused command", "order_id", orderID, "command", cmd, "status", o.Status)
		return err
	}

	if cmd == CommandCancel {
		err = c.api.CancelOrder(ctx, orderID)
	} else {
		_, err = c.api.UpdateOrderStatus(ctx, orderID, next)
	}
	c.record(ctx, AdminAction{
		OrderID:    orderID,
		Command:    cmd,
		FromStatus: o.Status,
		ToStatus:   next,
		ActorID:    actorID,
		Err:        err,
	})
	if err != nil {
		c.log.Error("command failed", "order_id", orderID, "command", cmd, "error", err)
		return err
	}
	c.log.Info("command sent", "order_id", orderID, "command", cmd, "from", o.Status, "to", next)
	if c.refresher != nil {
		c.refresher.Trigger()
	}
	return nil
}

func (c *Commander) record(ctx context.Context, a AdminAction) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordAction(ctx, a); err != nil {
		c.log.Warn("record admin action", "order_id", a.OrderID, "error", err)
	}
}
