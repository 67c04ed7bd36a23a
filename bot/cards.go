package bot

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"food-admin/models"
	"food-admin/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// cardMarkup converts OrderCardContent.Buttons to a Telegram inline keyboard.
func cardMarkup(c services.OrderCardContent) *tgbotapi.InlineKeyboardMarkup {
	if len(c.Buttons) == 0 {
		return nil
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, row := range c.Buttons {
		var btns []tgbotapi.InlineKeyboardButton
		for _, btn := range row {
			btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.CallbackData))
		}
		rows = append(rows, btns)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// editContent replaces a message's text and keyboard. An empty keyboard
// removes the old buttons.
func (b *AdminBot) editContent(chatID int64, messageID int, c services.OrderCardContent) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, c.Text)
	if kb := cardMarkup(c); kb != nil {
		edit.ReplyMarkup = kb
	} else {
		emptyKb := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
		edit.ReplyMarkup = &emptyKb
	}
	_, err := b.api.Send(edit)
	if err != nil && strings.Contains(err.Error(), "not modified") {
		return nil
	}
	return err
}

func (b *AdminBot) savePointer(ctx context.Context, orderID, chatID int64, messageID int) {
	err := b.pointers.UpsertCardPointer(ctx, services.CardPointer{OrderID: orderID, ChatID: chatID, MessageID: messageID})
	if err != nil {
		b.log.Warn("save card pointer", "order_id", orderID, "error", err)
	}
}

// lockOrder locks by orderID and returns an unlock function. Used to prevent concurrent edits of the same order cards.
func (b *AdminBot) lockOrder(orderID int64) func() {
	v, _ := b.orderLocks.LoadOrStore(orderID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// RefreshOrderCards re-renders every posted card of the order from snap.
// A card whose message is gone is posted again and its pointer updated.
func (b *AdminBot) RefreshOrderCards(ctx context.Context, o models.Order, snap *services.Snapshot) {
	unlock := b.lockOrder(o.ID)
	defer unlock()

	ptrs, err := b.pointers.CardPointers(ctx, o.ID)
	if err != nil {
		b.log.Warn("load card pointers", "order_id", o.ID, "error", err)
		return
	}
	content := services.BuildAdminCard(o, snap)
	for _, p := range ptrs {
		err := b.editContent(p.ChatID, p.MessageID, content)
		if err == nil {
			continue
		}
		if !strings.Contains(err.Error(), "not found") {
			b.log.Warn("edit order card", "order_id", o.ID, "chat_id", p.ChatID, "error", err)
			continue
		}
		sent, sendErr := b.sendContent(p.ChatID, content)
		if sendErr != nil {
			continue
		}
		b.savePointer(ctx, o.ID, p.ChatID, sent.MessageID)
	}
}

// syncHandleTimeout bounds the pointer and marker lookups of one HandleSync call.
const syncHandleTimeout = 30 * time.Second

// HandleSync is registered with the scheduler: it re-renders cards of
// changed orders and announces new pending orders once.
func (b *AdminBot) HandleSync(prev, next *services.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), syncHandleTimeout)
	defer cancel()
	if prev.Loaded() {
		for _, o := range services.ChangedOrders(prev, next) {
			b.RefreshOrderCards(ctx, o, next)
		}
	}
	b.announceNewOrders(ctx, next)
}

func (b *AdminBot) announceNewOrders(ctx context.Context, snap *services.Snapshot) {
	chats := b.operatorChats()
	if len(chats) == 0 {
		return
	}
	for _, o := range snap.Orders {
		if o.Status != models.StatusPending {
			continue
		}
		first, err := b.markers.MarkNotified(ctx, o.ID)
		if err != nil {
			b.log.Warn("new order marker", "order_id", o.ID, "error", err)
			continue
		}
		if !first {
			continue
		}
		alert := services.BuildNewOrderAlert(o, snap)
		delivered := 0
		for _, chatID := range chats {
			sent, err := b.sendContent(chatID, alert)
			if err != nil {
				continue
			}
			delivered++
			b.savePointer(ctx, o.ID, chatID, sent.MessageID)
		}
		if delivered == 0 {
			// nobody got it; try again on the next sync
			if err := b.markers.ClearNotified(ctx, o.ID); err != nil {
				b.log.Warn("clear new order marker", "order_id", o.ID, "error", err)
			}
		}
	}
}

// HandleSyncError posts one warning per failure streak.
func (b *AdminBot) HandleSyncError(err error) {
	b.bannerMu.Lock()
	if b.bannerShown {
		b.bannerMu.Unlock()
		return
	}
	b.bannerShown = true
	b.bannerMu.Unlock()

	text := "⚠️ Could not refresh: " + err.Error()
	if snap := b.store.Snapshot(); snap.Loaded() {
		text += "\nShowing data from " + snap.FetchedAt.Format("15:04:05") + ". Retrying automatically."
	} else {
		text += "\nRetrying automatically."
	}
	for _, chatID := range b.operatorChats() {
		b.send(chatID, text)
	}
}

// HandleSyncRecover clears the failure streak.
func (b *AdminBot) HandleSyncRecover() {
	b.bannerMu.Lock()
	shown := b.bannerShown
	b.bannerShown = false
	b.bannerMu.Unlock()
	if !shown {
		return
	}
	for _, chatID := range b.operatorChats() {
		b.send(chatID, "✅ Connection restored. Data is up to date.")
	}
}

func (b *AdminBot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil || cq.From == nil {
		return
	}
	chatID := cq.Message.Chat.ID
	messageID := cq.Message.MessageID
	userID := cq.From.ID
	data := cq.Data

	if !b.isLoggedIn(userID) {
		b.answer(cq.ID, "🔒 Log in first.")
		return
	}

	switch {
	case strings.HasPrefix(data, services.CallbackOrder+":"), strings.HasPrefix(data, services.CallbackConfirm+":"):
		orderID, cmd, err := services.ParseOrderCallback(data)
		if err != nil {
			b.answer(cq.ID, "")
			return
		}
		if cmd == services.CommandCancel && strings.HasPrefix(data, services.CallbackOrder+":") {
			b.askCancelConfirm(ctx, cq.ID, chatID, messageID, orderID)
			return
		}
		b.issue(ctx, cq.ID, chatID, messageID, userID, orderID, cmd)

	case strings.HasPrefix(data, services.CallbackCard+":"):
		orderID, err := strconv.ParseInt(strings.TrimPrefix(data, services.CallbackCard+":"), 10, 64)
		if err != nil {
			b.answer(cq.ID, "")
			return
		}
		b.answer(cq.ID, "")
		snap := b.store.Snapshot()
		o, ok := snap.Order(orderID)
		if !ok {
			b.send(chatID, errorText(services.ErrOrderNotFound))
			return
		}
		if err := b.editContent(chatID, messageID, services.BuildAdminCard(o, snap)); err != nil {
			b.log.Warn("restore order card", "order_id", orderID, "error", err)
		}

	case strings.HasPrefix(data, services.CallbackFilter+":"):
		f, err := services.ParseFilter(strings.TrimPrefix(data, services.CallbackFilter+":"))
		if err != nil {
			b.answer(cq.ID, "")
			return
		}
		b.answer(cq.ID, services.FilterLabel(f))
		b.setFilter(userID, f)
		snap := b.store.Snapshot()
		if err := b.editContent(chatID, messageID, services.BuildFilterBar(services.CountsByStatus(snap), f)); err != nil {
			b.log.Warn("edit filter bar", "error", err)
		}
		b.sendOrderCards(ctx, chatID, snap, f)

	case strings.HasPrefix(data, services.CallbackMenu+":"):
		b.handleMenuCallback(ctx, cq.ID, chatID, messageID, userID, strings.TrimPrefix(data, services.CallbackMenu+":"))

	default:
		b.answer(cq.ID, "")
	}
}

func (b *AdminBot) askCancelConfirm(ctx context.Context, callbackID string, chatID int64, messageID int, orderID int64) {
	o, ok := b.store.Snapshot().Order(orderID)
	if !ok {
		b.answer(callbackID, "")
		b.send(chatID, errorText(services.ErrOrderNotFound))
		return
	}
	b.answer(callbackID, "")
	if err := b.editContent(chatID, messageID, services.BuildCancelConfirm(o)); err != nil {
		b.log.Warn("edit cancel confirm", "order_id", orderID, "error", err)
	}
	b.savePointer(ctx, orderID, chatID, messageID)
}

// issue sends cmd through the Commander. The card is left as is on success;
// the refresh that follows re-renders it with the backend's status.
func (b *AdminBot) issue(ctx context.Context, callbackID string, chatID int64, messageID int, userID, orderID int64, cmd services.Command) {
	b.savePointer(ctx, orderID, chatID, messageID)
	if err := b.commander.Issue(ctx, orderID, cmd, userID); err != nil {
		b.answer(callbackID, "Failed")
		b.send(chatID, errorText(err))
		snap := b.store.Snapshot()
		if o, ok := snap.Order(orderID); ok {
			_ = b.editContent(chatID, messageID, services.BuildAdminCard(o, snap))
		}
		return
	}
	b.answer(callbackID, "✅ Sent. Updating…")
}
