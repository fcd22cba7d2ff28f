package types

import "strings"

// Timeframes the server accepts for candle aggregation.
var Timeframes = []string{"1m", "3m", "5m"}

// StrategyConfig mirrors the server-held strategy thresholds.
type StrategyConfig struct {
	Timeframe       string  `json:"timeframe"`
	MinAtrPct       float64 `json:"minAtrPct"`
	MinAtrUsd       float64 `json:"minAtrUsd"`
	ConfirmStreak   int     `json:"confirmStreak"`
	FlipCooldownSec int     `json:"flipCooldownSec"`
	StopAtrMult     float64 `json:"stopAtrMult"`
	TpRiskMultiple  float64 `json:"tpRiskMultiple"`
}

// StrategyPatch is the partial body POSTed to /config.
type StrategyPatch struct {
	Timeframe       *string  `json:"timeframe,omitempty"`
	MinAtrPct       *float64 `json:"minAtrPct,omitempty"`
	MinAtrUsd       *float64 `json:"minAtrUsd,omitempty"`
	ConfirmStreak   *int     `json:"confirmStreak,omitempty"`
	FlipCooldownSec *int     `json:"flipCooldownSec,omitempty"`
	StopAtrMult     *float64 `json:"stopAtrMult,omitempty"`
	TpRiskMultiple  *float64 `json:"tpRiskMultiple,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p StrategyPatch) IsEmpty() bool {
	return p.Timeframe == nil && p.MinAtrPct == nil && p.MinAtrUsd == nil &&
		p.ConfirmStreak == nil && p.FlipCooldownSec == nil &&
		p.StopAtrMult == nil && p.TpRiskMultiple == nil
}

// DefaultStrategyConfig matches the server's boot configuration.
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		Timeframe:       "1m",
		MinAtrPct:       0.02,
		MinAtrUsd:       8,
		ConfirmStreak:   2,
		FlipCooldownSec: 120,
		StopAtrMult:     1.5,
		TpRiskMultiple:  2,
	}
}

// IsTimeframe reports whether tf is one of Timeframes.
func IsTimeframe(tf string) bool {
	tf = strings.ToLower(strings.TrimSpace(tf))
	for _, allowed := range Timeframes {
		if tf == allowed {
			return true
		}
	}
	return false
}

// Apply merges a patch using the same floors the server applies, so the
// optimistic local copy matches what the server will echo back.
func (c StrategyConfig) Apply(p StrategyPatch) StrategyConfig {
	if p.Timeframe != nil && IsTimeframe(*p.Timeframe) {
		c.Timeframe = strings.ToLower(strings.TrimSpace(*p.Timeframe))
	}
	if v, ok := finite(p.MinAtrPct); ok {
		c.MinAtrPct = maxFloat(0, v)
	}
	if v, ok := finite(p.MinAtrUsd); ok {
		c.MinAtrUsd = maxFloat(0, v)
	}
	if p.ConfirmStreak != nil {
		c.ConfirmStreak = maxInt(1, *p.ConfirmStreak)
	}
	if p.FlipCooldownSec != nil {
		c.FlipCooldownSec = maxInt(0, *p.FlipCooldownSec)
	}
	if v, ok := finite(p.StopAtrMult); ok {
		c.StopAtrMult = maxFloat(0.1, v)
	}
	if v, ok := finite(p.TpRiskMultiple); ok {
		c.TpRiskMultiple = maxFloat(0.1, v)
	}
	return c
}

func maxFloat(floor, v float64) float64 {
	if v < floor {
		return floor
	}
	return v
}

func maxInt(floor, v int) int {
	if v < floor {
		return floor
	}
	return v
}
