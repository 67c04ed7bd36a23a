package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"food-admin/models"
	"food-admin/services"

	"github.com/gorilla/mux"
)

// SyncStatus is what the API needs from the sync scheduler.
type SyncStatus interface {
	Trigger() bool
	Running() bool
	LastSync() time.Time
	LastError() error
}

type Handler struct {
	Store *services.Store
	Sync  SyncStatus
	Log   *slog.Logger
}

func NewHandler(store *services.Store, sync SyncStatus, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{Store: store, Sync: sync, Log: log}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.health).Methods("GET")
	r.HandleFunc("/api/orders", h.listOrders).Methods("GET")
	r.HandleFunc("/api/orders/counts", h.counts).Methods("GET")
	r.HandleFunc("/api/orders/{orderId:[0-9]+}", h.getOrder).Methods("GET")
	r.HandleFunc("/api/menu", h.listMenu).Methods("GET")
	r.HandleFunc("/api/refresh", h.refresh).Methods("POST")
}

type healthResponse struct {
	Status    string     `json:"status"`
	Loaded    bool       `json:"loaded"`
	LastSync  *time.Time `json:"last_sync,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

type orderItemView struct {
	MenuItemID int64  `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
	Label      string `json:"label"`
}

type orderView struct {
	models.Order
	Items        []orderItemView    `json:"items"`
	LegalActions []services.Command `json:"legal_actions"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Log.Warn("encode response", "status_code", status, "error", err)
	}
}

func viewOrder(o models.Order, snap *services.Snapshot) orderView {
	items := make([]orderItemView, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemView{
			MenuItemID: it.MenuItemID,
			Quantity:   it.Quantity,
			Label:      services.ResolveItemLabel(snap, it.MenuItemID),
		})
	}
	actions := services.LegalNextActions(o.Status)
	if actions == nil {
		actions = []services.Command{}
	}
	return orderView{Order: o, Items: items, LegalActions: actions}
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Loaded: h.Store.Snapshot().Loaded()}
	if t := h.Sync.LastSync(); !t.IsZero() {
		resp.LastSync = &t
	}
	if err := h.Sync.LastError(); err != nil {
		resp.Status = "degraded"
		resp.LastError = err.Error()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	filter := services.FilterAll
	if label := r.URL.Query().Get("status"); label != "" {
		f, err := services.ParseFilter(label)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, errorResponse{Detail: err.Error()})
			return
		}
		filter = f
	}
	snap := h.Store.Snapshot()
	orders := services.FilteredOrders(snap, filter)
	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, viewOrder(o, snap))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) counts(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, services.CountsByStatus(h.Store.Snapshot()).Labels())
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["orderId"], 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid order id"})
		return
	}
	snap := h.Store.Snapshot()
	o, ok := snap.Order(id)
	if !ok {
		h.writeJSON(w, http.StatusNotFound, errorResponse{Detail: "Order not found"})
		return
	}
	h.writeJSON(w, http.StatusOK, viewOrder(o, snap))
}

func (h *Handler) listMenu(w http.ResponseWriter, r *http.Request) {
	items := h.Store.Snapshot().Catalog.Items()
	if items == nil {
		items = []models.MenuItem{}
	}
	h.writeJSON(w, http.StatusOK, items)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	switch {
	case h.Sync.Trigger():
		h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	case !h.Sync.Running():
		h.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Detail: "sync is stopped"})
	default:
		h.writeJSON(w, http.StatusConflict, errorResponse{Detail: "a sync is already in progress"})
	}
}
