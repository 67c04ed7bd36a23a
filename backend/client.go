package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"food-admin/models"
)

// HTTPClient is the subset of *http.Client the backend client needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	opListMenu     = "list menu items"
	opCreateMenu   = "create menu item"
	opUpdateMenu   = "update menu item"
	opListOrders   = "list orders"
	opUpdateStatus = "update order status"
	opCancelOrder  = "cancel order"
)

var fallbackMessages = map[string]string{
	opListMenu:     "Failed to fetch menu items",
	opCreateMenu:   "Failed to create menu item",
	opUpdateMenu:   "Failed to update menu item",
	opListOrders:   "Failed to fetch orders",
	opUpdateStatus: "Failed to update order status",
	opCancelOrder:  "Failed to cancel order",
}

// maxErrorBody caps how much of an error response is read looking for detail.
const maxErrorBody = 64 << 10

// Client talks to the order/menu backend.
type Client struct {
	baseURL string
	http    HTTPClient
}

func NewClient(baseURL string, httpClient HTTPClient) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *Client) ListMenu(ctx context.Context) ([]models.MenuItem, error) {
	var items []models.MenuItem
	if err := c.do(ctx, opListMenu, http.MethodGet, "/menu/", nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.MenuItem{}
	}
	return items, nil
}

func (c *Client) CreateMenuItem(ctx context.Context, in models.MenuItemCreate) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := c.do(ctx, opCreateMenu, http.MethodPost, "/menu/", in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) UpdateMenuItem(ctx context.Context, id int64, in models.MenuItemUpdate) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := c.do(ctx, opUpdateMenu, http.MethodPatch, "/menu/"+strconv.FormatInt(id, 10), in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, opListOrders, http.MethodGet, "/orders/", nil, &orders); err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) (*models.Order, error) {
	var o models.Order
	body := models.OrderStatusUpdate{Status: status}
	if err := c.do(ctx, opUpdateStatus, http.MethodPatch, "/orders/"+strconv.FormatInt(id, 10), body, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// CancelOrder issues DELETE /orders/{id}. The confirmation body is not interpreted.
func (c *Client) CancelOrder(ctx context.Context, id int64) error {
	return c.do(ctx, opCancelOrder, http.MethodDelete, "/orders/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := RequestIDFromContext(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return rejection(op, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func rejection(op string, resp *http.Response) *RejectionError {
	e := &RejectionError{Op: op, StatusCode: resp.StatusCode, fallback: fallbackMessages[op]}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return e
	}
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(raw, &payload) != nil {
		return e
	}
	var detail string
	if json.Unmarshal(payload.Detail, &detail) == nil {
		e.Detail = detail
	}
	return e
}

type requestIDKey struct{}

// WithRequestID tags outbound requests made with ctx with an X-Request-ID header.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
