package services

import (
	"fmt"
	"strconv"
	"strings"

	"food-admin/models"

	"github.com/shopspring/decimal"
)

// OrderCardButton is one inline button (text + callback_data).
type OrderCardButton struct {
	Text         string
	CallbackData string
}

// OrderCardContent is the text and optional inline keyboard for a card.
type OrderCardContent struct {
	Text    string
	Buttons [][]OrderCardButton
}

var statusLabels = [...]string{
	models.StatusPending:        "Pending",
	models.StatusPreparing:      "Preparing",
	models.StatusOutForDelivery: "Out for delivery",
	models.StatusDelivered:      "Delivered",
	models.StatusCancelled:      "Cancelled",
}

var statusIcons = [...]string{
	models.StatusPending:        "🟠",
	models.StatusPreparing:      "🔵",
	models.StatusOutForDelivery: "🟣",
	models.StatusDelivered:      "🟢",
	models.StatusCancelled:      "🔴",
}

var (
	_ = [1]struct{}{}[len(statusLabels)-models.NumStatuses]
	_ = [1]struct{}{}[len(statusIcons)-models.NumStatuses]
)

func StatusLabel(s models.OrderStatus) string {
	if !s.Valid() {
		return s.String()
	}
	return statusLabels[s]
}

func StatusIcon(s models.OrderStatus) string {
	if !s.Valid() {
		return "⚪"
	}
	return statusIcons[s]
}

func FilterLabel(f Filter) string {
	if f.All() {
		return "All"
	}
	return StatusLabel(f.Status())
}

func CommandLabel(c Command) string {
	switch c {
	case CommandStartPreparing:
		return "👨‍🍳 Start preparing"
	case CommandCancel:
		return "✖️ Cancel order"
	case CommandMarkOutForDelivery:
		return "🛵 Mark out for delivery"
	case CommandMarkDelivered:
		return "✅ Mark delivered"
	default:
		return string(c)
	}
}

func FormatPrice(d decimal.Decimal) string {
	return "₹" + d.StringFixed(2)
}

// Callback data prefixes shared by the card builders and the bot.
const (
	CallbackOrder   = "order"
	CallbackConfirm = "confirm"
	CallbackCard    = "card"
	CallbackFilter  = "filter"
	CallbackMenu    = "menu"
)

func OrderCallback(orderID int64, cmd Command) string {
	return CallbackOrder + ":" + strconv.FormatInt(orderID, 10) + ":" + string(cmd)
}

// ParseOrderCallback reads "order:<id>:<command>" and "confirm:<id>:<command>".
func ParseOrderCallback(data string) (orderID int64, cmd Command, err error) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) != 3 || (parts[0] != CallbackOrder && parts[0] != CallbackConfirm) {
		return 0, "", fmt.Errorf("invalid order callback %q", data)
	}
	orderID, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil || orderID <= 0 {
		return 0, "", fmt.Errorf("invalid order id in %q", data)
	}
	cmd, err = ParseCommand(parts[2])
	if err != nil {
		return 0, "", err
	}
	return orderID, cmd, nil
}

func customerName(o models.Order) string {
	if o.CustomerName == nil || strings.TrimSpace(*o.CustomerName) == "" {
		return "N/A"
	}
	return *o.CustomerName
}

func createdAt(o models.Order) string {
	if !o.CreatedAt.Time.IsZero() {
		return o.CreatedAt.Time.Format("2006-01-02 15:04")
	}
	if o.CreatedAt.Raw != "" {
		return o.CreatedAt.Raw
	}
	return "unknown"
}

// BuildAdminCard renders an order for operators. Buttons are exactly the
// legal next actions for the order's status.
func BuildAdminCard(o models.Order, snap *Snapshot) OrderCardContent {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Order #%d · %s\n\n", StatusIcon(o.Status), o.ID, StatusLabel(o.Status))
	fmt.Fprintf(&b, "Customer: %s\n", customerName(o))
	fmt.Fprintf(&b, "WhatsApp: %s\n", o.CustomerContact)
	fmt.Fprintf(&b, "Total: %s\n", FormatPrice(o.TotalPrice))
	fmt.Fprintf(&b, "Created: %s\n\n", createdAt(o))
	b.WriteString("Items:\n")
	if len(o.Items) == 0 {
		b.WriteString("(none)\n")
	}
	for _, it := range o.Items {
		fmt.Fprintf(&b, "• %s × %d\n", ResolveItemLabel(snap, it.MenuItemID), it.Quantity)
	}

	switch o.Status {
	case models.StatusDelivered:
		b.WriteString("\n✅ Order completed")
	case models.StatusCancelled:
		b.WriteString("\n❌ Order cancelled")
	}

	var buttons [][]OrderCardButton
	for _, cmd := range LegalNextActions(o.Status) {
		buttons = append(buttons, []OrderCardButton{{Text: CommandLabel(cmd), CallbackData: OrderCallback(o.ID, cmd)}})
	}
	return OrderCardContent{Text: strings.TrimRight(b.String(), "\n"), Buttons: buttons}
}

// BuildCancelConfirm asks the operator to confirm a cancellation.
func BuildCancelConfirm(o models.Order) OrderCardContent {
	id := strconv.FormatInt(o.ID, 10)
	return OrderCardContent{
		Text: fmt.Sprintf("Are you sure you want to cancel order #%d?", o.ID),
		Buttons: [][]OrderCardButton{{
			{Text: "Yes, cancel it", CallbackData: CallbackConfirm + ":" + id + ":" + string(CommandCancel)},
			{Text: "No, keep it", CallbackData: CallbackCard + ":" + id},
		}},
	}
}

// BuildFilterBar renders the per-status counts as filter buttons, two per row.
func BuildFilterBar(counts Counts, selected Filter) OrderCardContent {
	text := fmt.Sprintf("📋 Orders · %s (%d)", FilterLabel(selected), counts[selected])
	var (
		rows [][]OrderCardButton
		row  []OrderCardButton
	)
	for _, f := range Filters() {
		label := fmt.Sprintf("%s (%d)", FilterLabel(f), counts[f])
		if f == selected {
			label = "• " + label
		}
		row = append(row, OrderCardButton{Text: label, CallbackData: CallbackFilter + ":" + f.Label()})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return OrderCardContent{Text: text, Buttons: rows}
}

func BuildMenuCard(it models.MenuItem) OrderCardContent {
	availability, toggle := "Available", "Mark unavailable"
	if !it.IsAvailable {
		availability, toggle = "Unavailable", "Mark available"
	}
	text := fmt.Sprintf("🍽 %s · %s · %s", it.Name, FormatPrice(it.Price), availability)
	if it.Description != "" {
		text += "\n" + it.Description
	}
	id := strconv.FormatInt(it.ID, 10)
	return OrderCardContent{
		Text: text,
		Buttons: [][]OrderCardButton{{
			{Text: "✏️ Edit", CallbackData: CallbackMenu + ":edit:" + id},
			{Text: toggle, CallbackData: CallbackMenu + ":toggle:" + id},
		}},
	}
}

// BuildNewOrderAlert announces an order the operators have not seen yet.
func BuildNewOrderAlert(o models.Order, snap *Snapshot) OrderCardContent {
	c := BuildAdminCard(o, snap)
	c.Text = "🆕 New order\n\n" + c.Text
	return c
}
