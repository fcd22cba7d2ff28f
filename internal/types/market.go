package types

import "math"

// Ticker 是某个交易对的最新成交价快照。Price 为 0 表示尚无数据，而不是价格为零。
type Ticker struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	TS     int64   `json:"ts"`
}

// EmptyTicker returns the zero state a ticker feed starts from.
func EmptyTicker(symbol string) Ticker {
	return Ticker{Symbol: symbol}
}

// Known reports whether the ticker carries a usable price.
func (t Ticker) Known() bool {
	return IsPositiveFinite(t.Price)
}

// Balance is a single asset line from the account.
type Balance struct {
	Asset  string  `json:"asset"`
	Free   float64 `json:"free"`
	Locked float64 `json:"locked"`
}

// Total returns free+locked.
func (b Balance) Total() float64 {
	return b.Free + b.Locked
}

// IsPositiveFinite reports v > 0 and not NaN/Inf.
func IsPositiveFinite(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Clamp01 clamps v to [0,1]; NaN becomes 0.
func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
