package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"food-admin/models"
	"food-admin/services"
)

const (
	stepName        = "name"
	stepDescription = "description"
	stepPrice       = "price"
	stepAvailable   = "available"
	stepFailed      = "failed" // submit failed, waiting for /retry or /cancel
)

// keepValue in an edit form keeps the item's current value.
const keepValue = "-"

// menuForm is an operator's create (ItemID 0) or edit flow.
type menuForm struct {
	ItemID int64
	Step   string
	Draft  services.MenuDraft
}

func (f *menuForm) editing() bool { return f.ItemID != 0 }

func (b *AdminBot) getForm(userID int64) *menuForm {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	return b.forms[userID]
}

func (b *AdminBot) setForm(userID int64, f *menuForm) {
	b.stateMu.Lock()
	b.forms[userID] = f
	b.stateMu.Unlock()
}

func (b *AdminBot) dropForm(userID int64) {
	b.stateMu.Lock()
	delete(b.forms, userID)
	b.stateMu.Unlock()
}

func (b *AdminBot) startCreateForm(chatID, userID int64) {
	b.setForm(userID, &menuForm{Step: stepName, Draft: services.MenuDraft{IsAvailable: true}})
	b.send(chatID, "🆕 New menu item.\n\nSend the name (e.g. Masala Dosa). Cancel: /cancel")
}

func (b *AdminBot) startEditForm(chatID, userID int64, it models.MenuItem) {
	b.setForm(userID, &menuForm{ItemID: it.ID, Step: stepName, Draft: services.DraftFromItem(it)})
	b.send(chatID, fmt.Sprintf("✏️ Editing «%s». Send %q to keep a value.\n\nName (now: %s):", it.Name, keepValue, it.Name))
}

// handleFormInput advances the operator's form; it reports whether a form consumed the message.
func (b *AdminBot) handleFormInput(ctx context.Context, chatID, userID int64, text string) bool {
	f := b.getForm(userID)
	if f == nil {
		return false
	}
	if strings.HasPrefix(text, "/") {
		b.send(chatID, "Finish the form first, or /cancel it.")
		return true
	}
	keep := f.editing() && text == keepValue

	switch f.Step {
	case stepName:
		if !keep {
			if strings.TrimSpace(text) == "" {
				b.send(chatID, "Name is required. Send the name:")
				return true
			}
			f.Draft.Name = strings.TrimSpace(text)
		}
		f.Step = stepDescription
		b.send(chatID, b.descriptionPrompt(f))

	case stepDescription:
		if !keep {
			if text == keepValue {
				text = ""
			}
			f.Draft.Description = strings.TrimSpace(text)
		}
		f.Step = stepPrice
		b.send(chatID, b.pricePrompt(f))

	case stepPrice:
		if !keep {
			price, err := services.ParsePrice(text)
			if err != nil {
				b.send(chatID, "Invalid price. Send a number, e.g. 120 or 99.50.")
				return true
			}
			f.Draft.Price = price
		}
		f.Step = stepAvailable
		b.send(chatID, b.availablePrompt(f))

	case stepAvailable:
		if !keep {
			v, ok := parseYesNo(text)
			if !ok {
				b.send(chatID, "Please answer yes or no.")
				return true
			}
			f.Draft.IsAvailable = v
		}
		b.submitForm(ctx, chatID, userID, f)

	case stepFailed:
		b.send(chatID, "The last save failed. Send /retry to try again or /cancel to discard.")
	}
	return true
}

func (b *AdminBot) descriptionPrompt(f *menuForm) string {
	if f.editing() {
		return fmt.Sprintf("Description (now: %s):", orNone(f.Draft.Description))
	}
	return fmt.Sprintf("Send a short description, or %q for none:", keepValue)
}

func (b *AdminBot) pricePrompt(f *menuForm) string {
	if f.editing() {
		return fmt.Sprintf("Price (now: %s):", services.FormatPrice(f.Draft.Price))
	}
	return "Send the price (e.g. 120 or 99.50):"
}

func (b *AdminBot) availablePrompt(f *menuForm) string {
	now := "no"
	if f.Draft.IsAvailable {
		now = "yes"
	}
	if f.editing() {
		return fmt.Sprintf("Available for ordering? yes/no (now: %s):", now)
	}
	return "Available for ordering? yes/no:"
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func parseYesNo(text string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes", "y", "1", "true", "available":
		return true, true
	case "no", "n", "0", "false", "unavailable":
		return false, true
	}
	return false, false
}

// submitForm sends the draft. On failure the form is kept for /retry.
func (b *AdminBot) submitForm(ctx context.Context, chatID, userID int64, f *menuForm) {
	var (
		item *models.MenuItem
		err  error
	)
	if f.editing() {
		item, err = b.menu.UpdateFromDraft(ctx, f.ItemID, f.Draft)
	} else {
		item, err = b.menu.Create(ctx, f.Draft)
	}
	if err != nil {
		f.Step = stepFailed
		b.send(chatID, errorText(err)+"\n\nYour input is kept. Send /retry to try again or /cancel to discard.")
		return
	}
	b.dropForm(userID)
	verb := "Added"
	if f.editing() {
		verb = "Saved"
	}
	b.send(chatID, "✅ "+verb+".")
	b.sendContent(chatID, services.BuildMenuCard(*item))
}

func (b *AdminBot) retryForm(ctx context.Context, chatID, userID int64) {
	f := b.getForm(userID)
	if f == nil || f.Step != stepFailed {
		b.send(chatID, "Nothing to retry.")
		return
	}
	b.submitForm(ctx, chatID, userID, f)
}

func (b *AdminBot) cancelForm(chatID, userID int64) {
	if b.getForm(userID) == nil {
		b.send(chatID, "Nothing to cancel.")
		return
	}
	b.dropForm(userID)
	b.send(chatID, "✅ Cancelled.")
}

// handleMenuCallback handles "edit:<id>" and "toggle:<id>".
func (b *AdminBot) handleMenuCallback(ctx context.Context, callbackID string, chatID int64, messageID int, userID int64, rest string) {
	action, idText, _ := strings.Cut(rest, ":")
	id, err := strconv.ParseInt(idText, 10, 64)
	if err != nil {
		b.answer(callbackID, "")
		return
	}
	it, ok := b.store.Snapshot().Catalog.Lookup(id)
	if !ok {
		b.answer(callbackID, "")
		b.send(chatID, errorText(services.ErrMenuItemNotFound))
		return
	}

	switch action {
	case "edit":
		b.answer(callbackID, "")
		b.startEditForm(chatID, userID, it)
	case "toggle":
		updated, err := b.menu.ToggleAvailability(ctx, id)
		if err != nil {
			b.answer(callbackID, "Failed")
			b.send(chatID, errorText(err))
			return
		}
		b.answer(callbackID, "✅ Saved")
		if err := b.editContent(chatID, messageID, services.BuildMenuCard(*updated)); err != nil {
			b.log.Warn("edit menu card", "menu_item_id", id, "error", err)
		}
	default:
		b.answer(callbackID, "")
	}
}
