package backend

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"signaldesk/internal/types"

	"github.com/tidwall/gjson"
)

// 服务端有时把数字写成字符串（交易所原样透传），这里统一宽松解析。

func parseJSON(raw []byte, what string) (gjson.Result, error) {
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("%s: invalid json", what)
	}
	return gjson.ParseBytes(raw), nil
}

func optNum(r gjson.Result) *float64 {
	switch r.Type {
	case gjson.Number:
		v := r.Float()
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return &v
	case gjson.String:
		v, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return &v
	default:
		return nil
	}
}

func num(r gjson.Result) float64 {
	if v := optNum(r); v != nil {
		return *v
	}
	return 0
}

func optInt(r gjson.Result) *int64 {
	switch r.Type {
	case gjson.Number:
		v := r.Int()
		return &v
	case gjson.String:
		v, err := strconv.ParseInt(strings.TrimSpace(r.Str), 10, 64)
		if err != nil {
			return nil
		}
		return &v
	default:
		return nil
	}
}

// listOf returns the root array or the first array found under keys.
func listOf(root gjson.Result, keys ...string) []gjson.Result {
	if root.IsArray() {
		return root.Array()
	}
	for _, k := range keys {
		if v := root.Get(k); v.IsArray() {
			return v.Array()
		}
	}
	return nil
}

func decodeTicker(raw []byte, symbol string) (types.Ticker, error) {
	root, err := parseJSON(raw, "tick")
	if err != nil {
		return types.Ticker{}, err
	}
	t := types.Ticker{
		Symbol: strings.ToUpper(strings.TrimSpace(root.Get("symbol").String())),
		Price:  num(root.Get("price")),
		TS:     root.Get("ts").Int(),
	}
	if t.Symbol == "" {
		t.Symbol = symbol
	}
	if t.Price < 0 {
		t.Price = 0
	}
	return t, nil
}

func decodeBalances(raw []byte) ([]types.Balance, error) {
	root, err := parseJSON(raw, "balances")
	if err != nil {
		return nil, err
	}
	if !root.IsArray() && !root.IsObject() {
		return nil, fmt.Errorf("balances: unexpected payload")
	}
	items := listOf(root, "balances")
	out := make([]types.Balance, 0, len(items))
	for _, item := range items {
		asset := strings.ToUpper(strings.TrimSpace(item.Get("asset").String()))
		if asset == "" {
			continue
		}
		out = append(out, types.Balance{
			Asset:  asset,
			Free:   math.Max(0, num(item.Get("free"))),
			Locked: math.Max(0, num(item.Get("locked"))),
		})
	}
	return out, nil
}

func decodePortfolio(raw []byte) (types.Portfolio, error) {
	root, err := parseJSON(raw, "portfolio")
	if err != nil {
		return types.Portfolio{}, err
	}
	p := types.Portfolio{EquityUSD: num(root.Get("equityUsd"))}
	for _, item := range listOf(root, "positions") {
		p.Positions = append(p.Positions, types.PortfolioLine{
			Asset:    strings.ToUpper(item.Get("asset").String()),
			Qty:      num(item.Get("qty")),
			Price:    num(item.Get("price")),
			USDValue: num(item.Get("usdValue")),
		})
	}
	return p, nil
}

func decodeSignal(root gjson.Result, symbol string) types.Signal {
	sig := types.Signal{
		Symbol:            strings.ToUpper(strings.TrimSpace(root.Get("symbol").String())),
		Side:              types.ParseSide(root.Get("side").String()),
		Confidence:        types.Clamp01(num(root.Get("confidence"))),
		Explanation:       root.Get("explanation").String(),
		StopPrice:         optNum(root.Get("stopPrice")),
		TakeProfit:        optNum(root.Get("takeProfit")),
		TargetExposureUSD: optNum(root.Get("targetExposureUsd")),
		SuggestedQtyBase:  optNum(root.Get("suggestedQtyBase")),
	}
	if sig.Symbol == "" {
		sig.Symbol = symbol
	}
	root.Get("reasons").ForEach(func(_, item gjson.Result) bool {
		r := types.Reason{
			Label:  item.Get("label").String(),
			Weight: optNum(item.Get("weight")),
		}
		switch v := item.Get("value"); v.Type {
		case gjson.Number:
			r.Value = v.Float()
		case gjson.String:
			r.Value = v.Str
		case gjson.True, gjson.False:
			r.Value = v.Bool()
		case gjson.Null:
		default:
			r.Value = v.Value()
		}
		sig.Reasons = append(sig.Reasons, r)
		return true
	})
	return sig
}

func decodeOrderEntry(item gjson.Result) types.OrderLogEntry {
	e := types.OrderLogEntry{
		Timestamp:          item.Get("ts").Int(),
		Symbol:             strings.ToUpper(strings.TrimSpace(item.Get("symbol").String())),
		Side:               types.ParseSide(item.Get("side").String()),
		Quantity:           num(item.Get("qty")),
		Price:              optNum(item.Get("px")),
		Mode:               types.OrderMode(strings.ToLower(strings.TrimSpace(item.Get("mode").String()))),
		OrderID:            optInt(item.Get("orderId")),
		Status:             types.ParseOrderStatus(item.Get("status").String()),
		ExecutedQty:        num(item.Get("executedQty")),
		CumulativeQuoteQty: num(item.Get("cummulativeQuoteQty")),
		Error:              item.Get("error").String(),
	}
	if e.Mode != types.OrderModeLive {
		e.Mode = types.OrderModePaper
	}
	return e
}

func decodeOrders(raw []byte) ([]types.OrderLogEntry, error) {
	root, err := parseJSON(raw, "orders")
	if err != nil {
		return nil, err
	}
	if !root.IsArray() && !root.IsObject() {
		return nil, fmt.Errorf("orders: unexpected payload")
	}
	items := listOf(root, "orders", "items")
	out := make([]types.OrderLogEntry, 0, len(items))
	for _, item := range items {
		out = append(out, decodeOrderEntry(item))
	}
	return out, nil
}

func decodeOrderStatus(item gjson.Result) (types.OrderStatusUpdate, error) {
	status := strings.TrimSpace(item.Get("status").String())
	if status == "" {
		return types.OrderStatusUpdate{}, fmt.Errorf("order status: missing status")
	}
	u := types.OrderStatusUpdate{
		Symbol:             strings.ToUpper(item.Get("symbol").String()),
		Status:             types.ParseOrderStatus(status),
		ExecutedQty:        num(item.Get("executedQty")),
		CumulativeQuoteQty: num(item.Get("cummulativeQuoteQty")),
		Price:              num(item.Get("price")),
		OrigQty:            num(item.Get("origQty")),
		Type:               item.Get("type").String(),
		UpdateTime:         item.Get("updateTime").Int(),
	}
	if id := optInt(item.Get("orderId")); id != nil {
		u.OrderID = *id
	}
	return u, nil
}

func decodeTrades(raw []byte, symbol string) ([]types.Trade, error) {
	root, err := parseJSON(raw, "trades")
	if err != nil {
		return nil, err
	}
	items := listOf(root, "trades")
	out := make([]types.Trade, 0, len(items))
	for _, item := range items {
		t := types.Trade{
			Symbol:          strings.ToUpper(item.Get("symbol").String()),
			Price:           num(item.Get("price")),
			Qty:             num(item.Get("qty")),
			QuoteQty:        num(item.Get("quoteQty")),
			Commission:      num(item.Get("commission")),
			CommissionAsset: strings.ToUpper(item.Get("commissionAsset").String()),
			Time:            item.Get("time").Int(),
			IsBuyer:         item.Get("isBuyer").Bool(),
			IsMaker:         item.Get("isMaker").Bool(),
		}
		if id := optInt(item.Get("id")); id != nil {
			t.ID = *id
		}
		if id := optInt(item.Get("orderId")); id != nil {
			t.OrderID = *id
		}
		if t.Symbol == "" {
			t.Symbol = symbol
		}
		out = append(out, t)
	}
	return out, nil
}
