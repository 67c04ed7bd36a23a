package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"food-admin/backend"
	"food-admin/config"
	"food-admin/services"
	"food-admin/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of *tgbotapi.BotAPI the admin bot talks through.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// SyncControl is what the bot needs from the sync scheduler.
type SyncControl interface {
	Trigger() bool
	Running() bool
	LastError() error
}

type Deps struct {
	Store     *services.Store
	Commander *services.Commander
	Menu      *services.MenuEditor
	Sync      SyncControl
	Pointers  services.CardPointerStore
	Markers   storage.Markers
	Log       *slog.Logger
}

// AdminBot is the operator console: order cards with status actions, the
// order filter bar, and menu editing. Operators log in with LOGIN; the super
// admin (ADMIN_ID) is always allowed.
type AdminBot struct {
	api          Sender
	tg           *tgbotapi.BotAPI
	password     *services.OperatorPassword
	superAdminID int64

	store     *services.Store
	commander *services.Commander
	menu      *services.MenuEditor
	sync      SyncControl
	pointers  services.CardPointerStore
	markers   storage.Markers
	throttle  *services.LoginThrottle
	log       *slog.Logger

	stateMu   sync.RWMutex
	operators map[int64]int64 // user id -> chat id
	forms     map[int64]*menuForm
	filters   map[int64]services.Filter

	bannerMu    sync.Mutex
	bannerShown bool

	orderLocks sync.Map
}

// NewAdminBot connects to Telegram with TOKEN.
func NewAdminBot(cfg *config.Config, deps Deps) (*AdminBot, error) {
	if cfg.Telegram.Token == "" {
		return nil, fmt.Errorf("TOKEN not set")
	}
	// longer than the 60 s long poll in Start, short enough that a hung send ends
	client := &http.Client{Timeout: 75 * time.Second}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Telegram.Token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, err
	}
	password, err := services.NewOperatorPassword(cfg.Telegram.Login)
	if err != nil {
		return nil, err
	}
	b := newAdminBot(api, password, cfg.Telegram.AdminID, deps)
	b.tg = api
	return b, nil
}

func newAdminBot(api Sender, password *services.OperatorPassword, superAdminID int64, deps Deps) *AdminBot {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	pointers := deps.Pointers
	if pointers == nil {
		pointers = services.NewMemoryCardPointers()
	}
	markers := deps.Markers
	if markers == nil {
		markers = storage.NewMemoryMarkers(0)
	}
	return &AdminBot{
		api:          api,
		password:     password,
		superAdminID: superAdminID,
		store:        deps.Store,
		commander:    deps.Commander,
		menu:         deps.Menu,
		sync:         deps.Sync,
		pointers:     pointers,
		markers:      markers,
		throttle:     services.NewLoginThrottle(),
		log:          log.With("component", "bot"),
		operators:    make(map[int64]int64),
		forms:        make(map[int64]*menuForm),
		filters:      make(map[int64]services.Filter),
	}
}

// Start polls Telegram for updates until ctx is done.
func (b *AdminBot) Start(ctx context.Context) {
	if err := b.setBotCommands(); err != nil {
		b.log.Warn("set bot commands", "error", err)
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)
	go func() {
		<-ctx.Done()
		b.tg.StopReceivingUpdates()
	}()
	b.Run(ctx, updates)
}

// Run handles updates until the channel closes or ctx is done.
func (b *AdminBot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *AdminBot) setBotCommands() error {
	commands := []tgbotapi.BotCommand{
		{Command: "orders", Description: "Orders with filters"},
		{Command: "menu", Description: "Menu items"},
		{Command: "add", Description: "Add a menu item"},
		{Command: "refresh", Description: "Refresh now"},
		{Command: "retry", Description: "Resubmit the failed form"},
		{Command: "cancel", Description: "Cancel the current form"},
		{Command: "logout", Description: "Log out"},
	}
	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		return err
	}
	if b.superAdminID == 0 {
		return nil
	}
	// the super admin's private chat also lists /newpassword
	adminCommands := append(commands[:len(commands):len(commands)],
		tgbotapi.BotCommand{Command: "newpassword", Description: "Rotate the operator password"})
	_, err := b.api.Request(tgbotapi.NewSetMyCommandsWithScope(tgbotapi.NewBotCommandScopeChat(b.superAdminID), adminCommands...))
	return err
}

func (b *AdminBot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message == nil || update.Message.From == nil {
		return
	}
	msg := update.Message
	userID := msg.From.ID
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	cmd, args := splitCommand(text)

	if !b.isLoggedIn(userID) {
		b.handleLogin(chatID, userID, text)
		return
	}

	switch cmd {
	case "/start", "/help":
		b.sendHelp(chatID)
		return
	case "/cancel":
		b.cancelForm(chatID, userID)
		return
	case "/retry":
		b.retryForm(ctx, chatID, userID)
		return
	case "/logout":
		b.clearLoggedIn(userID)
		b.send(chatID, "👋 Logged out.")
		return
	case "/newpassword":
		if userID == b.superAdminID {
			b.rotatePassword(chatID, userID)
			return
		}
	}

	if b.handleFormInput(ctx, chatID, userID, text) {
		return
	}

	switch cmd {
	case "/orders":
		b.sendOrders(ctx, chatID, userID, args)
	case "/menu":
		b.sendMenu(chatID)
	case "/add":
		b.startCreateForm(chatID, userID)
	case "/refresh":
		b.refresh(chatID)
	default:
		b.sendHelp(chatID)
	}
}

// splitCommand returns the lower-cased command (without @botname) and its arguments.
func splitCommand(text string) (string, string) {
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	cmd, args, _ := strings.Cut(text, " ")
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd), strings.TrimSpace(args)
}

func (b *AdminBot) handleLogin(chatID, userID int64, text string) {
	if b.superAdminID != 0 && userID == b.superAdminID {
		b.setLoggedIn(userID, chatID)
		b.send(chatID, "✅ Welcome back.")
		b.sendHelp(chatID)
		return
	}
	if !b.password.Enabled() || text == "" || strings.HasPrefix(text, "/") {
		b.send(chatID, "🔒 Send the admin password to access the panel.")
		return
	}
	if wait := b.throttle.WaitSeconds(userID); wait > 0 {
		b.send(chatID, fmt.Sprintf("⏳ Too many attempts. Try again in %d s.", wait))
		return
	}
	if !b.password.Check(text) {
		b.throttle.RecordFailed(userID)
		b.log.Warn("failed login", "user_id", userID)
		b.send(chatID, "❌ Wrong password.")
		return
	}
	b.throttle.RecordSuccess(userID)
	b.setLoggedIn(userID, chatID)
	b.log.Info("operator logged in", "user_id", userID)
	b.send(chatID, "✅ Logged in.")
	b.sendHelp(chatID)
}

// rotatePassword sets a fresh operator password and logs out every other operator.
func (b *AdminBot) rotatePassword(chatID, userID int64) {
	plain, err := services.GenerateSecurePassword()
	if err == nil {
		err = b.password.Set(plain)
	}
	if err != nil {
		b.log.Error("rotate operator password", "error", err)
		b.send(chatID, "❌ Could not generate a password.")
		return
	}
	b.stateMu.Lock()
	for id := range b.operators {
		if id != userID {
			delete(b.operators, id)
			delete(b.forms, id)
			delete(b.filters, id)
		}
	}
	b.stateMu.Unlock()
	b.log.Info("operator password rotated", "user_id", userID)
	b.send(chatID, "🔑 New operator password: "+plain+"\n\nOther operators were logged out.")
}

func (b *AdminBot) isLoggedIn(userID int64) bool {
	b.stateMu.RLock()
	_, ok := b.operators[userID]
	b.stateMu.RUnlock()
	return ok
}

func (b *AdminBot) setLoggedIn(userID, chatID int64) {
	b.stateMu.Lock()
	b.operators[userID] = chatID
	b.stateMu.Unlock()
}

func (b *AdminBot) clearLoggedIn(userID int64) {
	b.stateMu.Lock()
	delete(b.operators, userID)
	delete(b.forms, userID)
	delete(b.filters, userID)
	b.stateMu.Unlock()
}

// operatorChats returns the distinct chats of logged-in operators.
func (b *AdminBot) operatorChats() []int64 {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	seen := make(map[int64]bool, len(b.operators))
	var out []int64
	for _, chatID := range b.operators {
		if !seen[chatID] {
			seen[chatID] = true
			out = append(out, chatID)
		}
	}
	return out
}

func (b *AdminBot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("send", "chat_id", chatID, "error", err)
	}
}

func (b *AdminBot) sendContent(chatID int64, c services.OrderCardContent) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, c.Text)
	if kb := cardMarkup(c); kb != nil {
		msg.ReplyMarkup = *kb
	}
	sent, err := b.api.Send(msg)
	if err != nil {
		b.log.Warn("send", "chat_id", chatID, "error", err)
	}
	return sent, err
}

func (b *AdminBot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.log.Debug("answer callback", "error", err)
	}
}

func (b *AdminBot) sendHelp(chatID int64) {
	text := "🛠 Admin panel\n\n" +
		"/orders [all|pending|preparing|out-for-delivery|delivered|cancelled] - orders\n" +
		"/menu - menu items\n" +
		"/add - add a menu item\n" +
		"/refresh - refresh now\n" +
		"/logout - log out"
	if chatID == b.superAdminID {
		text += "\n/newpassword - rotate the operator password"
	}
	b.send(chatID, text)
}

// sendOrders posts the filter bar followed by one card per matching order.
func (b *AdminBot) sendOrders(ctx context.Context, chatID, userID int64, args string) {
	filter := b.currentFilter(userID)
	if args != "" {
		f, err := services.ParseFilter(args)
		if err != nil {
			b.send(chatID, "Unknown filter. Use one of: all, pending, preparing, out-for-delivery, delivered, cancelled.")
			return
		}
		filter = f
		b.setFilter(userID, f)
	}

	snap := b.store.Snapshot()
	if !snap.Loaded() {
		text := "⏳ Orders are not loaded yet."
		if err := b.sync.LastError(); err != nil {
			text += "\nLast sync error: " + err.Error()
		}
		b.send(chatID, text)
		return
	}

	b.sendContent(chatID, services.BuildFilterBar(services.CountsByStatus(snap), filter))
	b.sendOrderCards(ctx, chatID, snap, filter)
}

func (b *AdminBot) sendOrderCards(ctx context.Context, chatID int64, snap *services.Snapshot, filter services.Filter) {
	orders := services.FilteredOrders(snap, filter)
	if len(orders) == 0 {
		b.send(chatID, "No orders here.")
		return
	}
	for _, o := range orders {
		sent, err := b.sendContent(chatID, services.BuildAdminCard(o, snap))
		if err != nil {
			continue
		}
		b.savePointer(ctx, o.ID, chatID, sent.MessageID)
	}
}

func (b *AdminBot) currentFilter(userID int64) services.Filter {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	if f, ok := b.filters[userID]; ok {
		return f
	}
	return services.FilterAll
}

func (b *AdminBot) setFilter(userID int64, f services.Filter) {
	b.stateMu.Lock()
	b.filters[userID] = f
	b.stateMu.Unlock()
}

func (b *AdminBot) sendMenu(chatID int64) {
	snap := b.store.Snapshot()
	if !snap.Loaded() {
		b.send(chatID, "⏳ Menu is not loaded yet.")
		return
	}
	items := snap.Catalog.Items()
	if len(items) == 0 {
		b.send(chatID, "The menu is empty. Use /add to create an item.")
		return
	}
	for _, it := range items {
		b.sendContent(chatID, services.BuildMenuCard(it))
	}
}

func (b *AdminBot) refresh(chatID int64) {
	switch {
	case b.sync.Trigger():
		b.send(chatID, "🔄 Refreshing…")
	case !b.sync.Running():
		b.send(chatID, "Sync is stopped.")
	default:
		b.send(chatID, "🔄 A refresh is already running.")
	}
}

// errorText turns a command failure into the message shown to operators.
// Backend rejections are shown verbatim.
func errorText(err error) string {
	var invalid *services.InvalidTransitionError
	switch {
	case errors.As(err, &invalid):
		return "⚠️ Not allowed: " + invalid.Error() + "."
	case errors.Is(err, services.ErrOrderNotFound):
		return "⚠️ This order is no longer in the list. Use /orders to reload."
	case errors.Is(err, services.ErrMenuItemNotFound):
		return "⚠️ This menu item is no longer in the list. Use /menu to reload."
	case backend.IsRejection(err):
		return "❌ " + err.Error()
	case backend.IsNetworkError(err):
		return "❌ Could not reach the server: " + err.Error()
	default:
		return "❌ " + err.Error()
	}
}
