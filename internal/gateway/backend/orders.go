package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"signaldesk/internal/types"
)

const (
	minRecentOrders = 1
	maxRecentOrders = 200
)

// ClampOrdersLimit keeps limit within what /orders/recent accepts.
func ClampOrdersLimit(limit int) int {
	if limit < minRecentOrders {
		return minRecentOrders
	}
	if limit > maxRecentOrders {
		return maxRecentOrders
	}
	return limit
}

// RecentOrders calls GET /orders/recent. Newest entries come first.
func (c *Client) RecentOrders(ctx context.Context, limit int) ([]types.OrderLogEntry, error) {
	path := "/orders/recent?limit=" + strconv.Itoa(ClampOrdersLimit(limit))
	raw, err := c.doRaw(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return decodeOrders(raw)
}

// OrderStatus calls GET /orders/status for one exchange order.
func (c *Client) OrderStatus(ctx context.Context, symbol string, orderID int64) (types.OrderStatusUpdate, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" || orderID <= 0 {
		return types.OrderStatusUpdate{}, fmt.Errorf("order status requires symbol and orderId")
	}
	q := url.Values{"symbol": {symbol}, "orderId": {strconv.FormatInt(orderID, 10)}}
	raw, err := c.doRaw(ctx, http.MethodGet, "/orders/status?"+q.Encode(), nil)
	if err != nil {
		return types.OrderStatusUpdate{}, err
	}
	root, err := parseJSON(raw, "order status")
	if err != nil {
		return types.OrderStatusUpdate{}, err
	}
	update, err := decodeOrderStatus(root)
	if err != nil {
		return types.OrderStatusUpdate{}, err
	}
	if update.OrderID == 0 {
		update.OrderID = orderID
	}
	if update.Symbol == "" {
		update.Symbol = symbol
	}
	return update, nil
}

type cancelPayload struct {
	Symbol  string `json:"symbol"`
	OrderID int64  `json:"orderId"`
}

// CancelOrder calls POST /orders/cancel. The acknowledgement body is ignored;
// status changes are observed by the next refresh.
func (c *Client) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" || orderID <= 0 {
		return fmt.Errorf("cancel requires symbol and orderId")
	}
	_, err := c.doRaw(ctx, http.MethodPost, "/orders/cancel", cancelPayload{Symbol: symbol, OrderID: orderID})
	return err
}

// PlaceOrder calls POST /orders. A client order id is attached when missing.
func (c *Client) PlaceOrder(ctx context.Context, req types.PlacementRequest) (types.PlacementResult, error) {
	if !req.Side.Actionable() {
		return types.PlacementResult{}, fmt.Errorf("place order: side %q is not actionable", req.Side)
	}
	if !types.IsPositiveFinite(req.Quantity) {
		return types.PlacementResult{}, fmt.Errorf("place order: quantity must be positive")
	}
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.ClientOrderID == "" {
		req.ClientOrderID = c.newID()
	}
	var res types.PlacementResult
	if err := c.doRequest(ctx, http.MethodPost, "/orders", req, &res); err != nil {
		return types.PlacementResult{}, err
	}
	if res.ClientOrderID == "" {
		res.ClientOrderID = req.ClientOrderID
	}
	return res, nil
}

// OpenOrders calls GET /orders/open, optionally filtered by symbol.
func (c *Client) OpenOrders(ctx context.Context, symbol string) ([]types.OrderStatusUpdate, error) {
	path := "/orders/open"
	if s := strings.ToUpper(strings.TrimSpace(symbol)); s != "" {
		path += "?" + url.Values{"symbol": {s}}.Encode()
	}
	raw, err := c.doRaw(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	root, err := parseJSON(raw, "open orders")
	if err != nil {
		return nil, err
	}
	var out []types.OrderStatusUpdate
	for _, item := range listOf(root) {
		u, err := decodeOrderStatus(item)
		if err != nil {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

// Trades calls GET /orders/trades for one symbol. The service returns the
// venue's latest fills for it.
func (c *Client) Trades(ctx context.Context, symbol string) ([]types.Trade, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return nil, fmt.Errorf("trades: symbol is required")
	}
	raw, err := c.doRaw(ctx, http.MethodGet, "/orders/trades?"+url.Values{"symbol": {s}}.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return decodeTrades(raw, s)
}
