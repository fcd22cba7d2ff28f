package types

import "strings"

// Side is the direction of a signal or order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
	SideFlat Side = "FLAT"
)

// ParseSide maps free text to a Side; anything unrecognised is FLAT.
func ParseSide(raw string) Side {
	switch Side(strings.ToUpper(strings.TrimSpace(raw))) {
	case SideBuy:
		return SideBuy
	case SideSell:
		return SideSell
	default:
		return SideFlat
	}
}

// Actionable reports whether an order could be placed on this side.
func (s Side) Actionable() bool {
	return s == SideBuy || s == SideSell
}

// Reason is one supporting metric attached to a signal. Value is usually a
// number but the server is free to send text.
type Reason struct {
	Label  string   `json:"label"`
	Value  any      `json:"value"`
	Weight *float64 `json:"weight,omitempty"`
}

// Signal 是服务端计算的交易建议。
type Signal struct {
	Symbol            string   `json:"symbol"`
	Side              Side     `json:"side"`
	Confidence        float64  `json:"confidence"`
	Reasons           []Reason `json:"reasons"`
	Explanation       string   `json:"explanation,omitempty"`
	StopPrice         *float64 `json:"stopPrice,omitempty"`
	TakeProfit        *float64 `json:"takeProfit,omitempty"`
	TargetExposureUSD *float64 `json:"targetExposureUsd,omitempty"`
	SuggestedQtyBase  *float64 `json:"suggestedQtyBase,omitempty"`
}

// FlatSignal is the degraded value a signal feed falls back to.
func FlatSignal(symbol string) Signal {
	return Signal{Symbol: symbol, Side: SideFlat, Confidence: 0}
}

// ClampedConfidence returns Confidence limited to [0,1].
func (s Signal) ClampedConfidence() float64 {
	return Clamp01(s.Confidence)
}

// Clone returns a deep copy so snapshots never share pointers.
func (s Signal) Clone() Signal {
	out := s
	if len(s.Reasons) > 0 {
		out.Reasons = make([]Reason, len(s.Reasons))
		for i, r := range s.Reasons {
			out.Reasons[i] = Reason{Label: r.Label, Value: r.Value, Weight: cloneFloat(r.Weight)}
		}
	}
	out.StopPrice = cloneFloat(s.StopPrice)
	out.TakeProfit = cloneFloat(s.TakeProfit)
	out.TargetExposureUSD = cloneFloat(s.TargetExposureUSD)
	out.SuggestedQtyBase = cloneFloat(s.SuggestedQtyBase)
	return out
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
