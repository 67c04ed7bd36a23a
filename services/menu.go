package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"food-admin/models"

	"github.com/shopspring/decimal"
)

var ErrMenuItemNotFound = errors.New("menu item not found")

// MenuUpdater is the backend surface for catalog commands.
type MenuUpdater interface {
	CreateMenuItem(ctx context.Context, in models.MenuItemCreate) (*models.MenuItem, error)
	UpdateMenuItem(ctx context.Context, id int64, in models.MenuItemUpdate) (*models.MenuItem, error)
}

// MenuDraft is an operator's in-progress create/edit form.
type MenuDraft struct {
	Name        string
	Description string
	Price       decimal.Decimal
	IsAvailable bool
}

func DraftFromItem(it models.MenuItem) MenuDraft {
	return MenuDraft{Name: it.Name, Description: it.Description, Price: it.Price, IsAvailable: it.IsAvailable}
}

func (d MenuDraft) Validate() error {
	if err := validateName(d.Name); err != nil {
		return err
	}
	return validatePrice(d.Price)
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

func validatePrice(p decimal.Decimal) error {
	if p.IsNegative() {
		return fmt.Errorf("price must be >= 0")
	}
	return nil
}

// ParsePrice reads an operator-typed price such as "20", "₹ 20.50" or "1 250".
func ParsePrice(text string) (decimal.Decimal, error) {
	clean := strings.NewReplacer("₹", "", " ", "", ",", "").Replace(strings.TrimSpace(text))
	p, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q", text)
	}
	if err := validatePrice(p); err != nil {
		return decimal.Zero, err
	}
	if p.Exponent() < -2 && !p.Equal(p.Round(2)) {
		return decimal.Zero, fmt.Errorf("price %q has more than two decimals", text)
	}
	return p, nil
}

// MenuEditor issues catalog commands. Like Commander it leaves the Store to
// the next refresh cycle.
type MenuEditor struct {
	api       MenuUpdater
	store     *Store
	refresher Refresher
	log       *slog.Logger
}

func NewMenuEditor(api MenuUpdater, store *Store, log *slog.Logger) *MenuEditor {
	if log == nil {
		log = slog.Default()
	}
	return &MenuEditor{api: api, store: store, log: log.With("component", "menu")}
}

func (m *MenuEditor) SetRefresher(r Refresher) { m.refresher = r }

func (m *MenuEditor) Create(ctx context.Context, d MenuDraft) (*models.MenuItem, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	item, err := m.api.CreateMenuItem(ctx, models.MenuItemCreate{
		Name:        strings.TrimSpace(d.Name),
		Description: strings.TrimSpace(d.Description),
		Price:       d.Price,
		IsAvailable: d.IsAvailable,
	})
	if err != nil {
		m.log.Error("create menu item failed", "name", d.Name, "error", err)
		return nil, err
	}
	m.log.Info("menu item created", "id", item.ID, "name", item.Name)
	m.refresh()
	return item, nil
}

func (m *MenuEditor) Update(ctx context.Context, id int64, u models.MenuItemUpdate) (*models.MenuItem, error) {
	if u.Empty() {
		return nil, fmt.Errorf("nothing to update")
	}
	if u.Name != nil {
		if err := validateName(*u.Name); err != nil {
			return nil, err
		}
		name := strings.TrimSpace(*u.Name)
		u.Name = &name
	}
	if u.Price != nil {
		if err := validatePrice(*u.Price); err != nil {
			return nil, err
		}
	}
	item, err := m.api.UpdateMenuItem(ctx, id, u)
	if err != nil {
		m.log.Error("update menu item failed", "id", id, "error", err)
		return nil, err
	}
	m.log.Info("menu item updated", "id", id)
	m.refresh()
	return item, nil
}

// UpdateFromDraft sends only the fields of d that differ from the item in the current snapshot.
func (m *MenuEditor) UpdateFromDraft(ctx context.Context, id int64, d MenuDraft) (*models.MenuItem, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	cur, ok := m.store.Snapshot().Catalog.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("menu item #%d: %w", id, ErrMenuItemNotFound)
	}
	var u models.MenuItemUpdate
	if d.Name != cur.Name {
		u.Name = &d.Name
	}
	if d.Description != cur.Description {
		u.Description = &d.Description
	}
	if !d.Price.Equal(cur.Price) {
		u.Price = &d.Price
	}
	if d.IsAvailable != cur.IsAvailable {
		u.IsAvailable = &d.IsAvailable
	}
	if u.Empty() {
		return &cur, nil
	}
	return m.Update(ctx, id, u)
}

// ToggleAvailability flips the item's availability as seen in the current snapshot.
func (m *MenuEditor) ToggleAvailability(ctx context.Context, id int64) (*models.MenuItem, error) {
	cur, ok := m.store.Snapshot().Catalog.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("menu item #%d: %w", id, ErrMenuItemNotFound)
	}
	available := !cur.IsAvailable
	return m.Update(ctx, id, models.MenuItemUpdate{IsAvailable: &available})
}

func (m *MenuEditor) refresh() {
	if m.refresher != nil {
		m.refresher.Trigger()
	}
}
