package types

import "strings"

// OrderStatus follows the exchange vocabulary plus PAPER/ERROR from the service.
type OrderStatus string

const (
	OrderStatusPaper           OrderStatus = "PAPER"
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
	OrderStatusError           OrderStatus = "ERROR"
)

// ParseOrderStatus upper-cases raw; unknown values are kept verbatim so a new
// server status is never silently rewritten.
func ParseOrderStatus(raw string) OrderStatus {
	s := OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if s == "CANCELLED" {
		return OrderStatusCanceled
	}
	return s
}

// Open reports whether the order can still fill.
func (s OrderStatus) Open() bool {
	return s == OrderStatusNew || s == OrderStatusPartiallyFilled
}

// OrderMode says whether an order reached the venue.
type OrderMode string

const (
	OrderModePaper OrderMode = "paper"
	OrderModeLive  OrderMode = "live"
)

// OrderLogEntry is one row of the server's recent-orders log.
type OrderLogEntry struct {
	Timestamp          int64       `json:"ts"`
	Symbol             string      `json:"symbol"`
	Side               Side        `json:"side"`
	Quantity           float64     `json:"qty"`
	Price              *float64    `json:"px,omitempty"`
	Mode               OrderMode   `json:"mode"`
	OrderID            *int64      `json:"orderId,omitempty"`
	Status             OrderStatus `json:"status"`
	ExecutedQty        float64     `json:"executedQty"`
	CumulativeQuoteQty float64     `json:"cummulativeQuoteQty"`
	Error              string      `json:"error,omitempty"`
}

// Refreshable reports whether a status lookup can be issued for the row.
func (e OrderLogEntry) Refreshable() bool {
	return e.OrderID != nil && strings.TrimSpace(e.Symbol) != ""
}

// Cancelable reports whether the row is a live, still-open exchange order.
func (e OrderLogEntry) Cancelable() bool {
	return e.Mode == OrderModeLive && e.OrderID != nil && e.Status.Open()
}

// ID returns the exchange order id or 0.
func (e OrderLogEntry) ID() int64 {
	if e.OrderID == nil {
		return 0
	}
	return *e.OrderID
}

// Clone deep-copies pointer fields.
func (e OrderLogEntry) Clone() OrderLogEntry {
	out := e
	out.Price = cloneFloat(e.Price)
	if e.OrderID != nil {
		id := *e.OrderID
		out.OrderID = &id
	}
	return out
}

// OrderStatusUpdate is the subset of /orders/status the reconciler folds back.
type OrderStatusUpdate struct {
	Symbol             string      `json:"symbol"`
	OrderID            int64       `json:"orderId"`
	Status             OrderStatus `json:"status"`
	ExecutedQty        float64     `json:"executedQty"`
	CumulativeQuoteQty float64     `json:"cummulativeQuoteQty"`
	Price              float64     `json:"price,omitempty"`
	OrigQty            float64     `json:"origQty,omitempty"`
	Type               string      `json:"type,omitempty"`
	UpdateTime         int64       `json:"updateTime,omitempty"`
}

// OrderProposal 是由信号与偏好推导出的待确认订单。数值已按传输精度取整，
// Raw 保留未取整的中间值供后续计算使用。
type OrderProposal struct {
	Symbol     string      `json:"symbol"`
	Side       Side        `json:"side"`
	Quantity   float64     `json:"qty"`
	Notional   float64     `json:"notional"`
	LimitPrice *float64    `json:"limitPrice,omitempty"`
	Fees       float64     `json:"fees"`
	StopPrice  *float64    `json:"stopPrice,omitempty"`
	TakeProfit *float64    `json:"takeProfit,omitempty"`
	Raw        ProposalRaw `json:"-"`
}

// ProposalRaw holds unrounded intermediates. Quantity is the sizing result
// before rounding to 6 places; Notional and Fees are priced on the rounded
// quantity, so they describe the order that is actually sent.
type ProposalRaw struct {
	Quantity   float64
	Notional   float64
	Fees       float64
	LimitPrice float64
}

// PlacementRequest is the POST /orders body.
type PlacementRequest struct {
	OrderProposal
	TimeInForce   TimeInForce `json:"tif"`
	PreferMaker   bool        `json:"preferMaker"`
	PaperTrading  bool        `json:"paperTrading"`
	ClientOrderID string      `json:"clientOrderId,omitempty"`
}

// PlacementResult is the service acknowledgement. Order is the raw venue
// response for live placements.
type PlacementResult struct {
	Status        string         `json:"status"`
	Order         map[string]any `json:"order,omitempty"`
	ClientOrderID string         `json:"clientOrderId,omitempty"`
}

// Paper reports whether the placement was simulated.
func (r PlacementResult) Paper() bool {
	return r.Status == "paper_ok"
}

// Trade is one fill from /orders/trades (the venue's own trade history).
type Trade struct {
	ID              int64   `json:"id"`
	OrderID         int64   `json:"orderId"`
	Symbol          string  `json:"symbol"`
	Price           float64 `json:"price"`
	Qty             float64 `json:"qty"`
	QuoteQty        float64 `json:"quoteQty"`
	Commission      float64 `json:"commission"`
	CommissionAsset string  `json:"commissionAsset"`
	Time            int64   `json:"time"`
	IsBuyer         bool    `json:"isBuyer"`
	IsMaker         bool    `json:"isMaker"`
}

// Side derives the trade direction from the buyer flag.
func (t Trade) Side() Side {
	if t.IsBuyer {
		return SideBuy
	}
	return SideSell
}
