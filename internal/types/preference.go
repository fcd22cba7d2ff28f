package types

import (
	"math"
	"strings"
)

// TimeInForce controls how long a limit order rests.
type TimeInForce string

const (
	TIFGTC TimeInForce = "GTC"
	TIFIOC TimeInForce = "IOC"
	TIFFOK TimeInForce = "FOK"
)

// ParseTimeInForce falls back to GTC for unknown input.
func ParseTimeInForce(raw string) TimeInForce {
	switch TimeInForce(strings.ToUpper(strings.TrimSpace(raw))) {
	case TIFIOC:
		return TIFIOC
	case TIFFOK:
		return TIFFOK
	default:
		return TIFGTC
	}
}

// Preferences 是用户在本次会话中调整的风险参数，只存在内存中。
type Preferences struct {
	RiskLevel      float64     `json:"riskLevel"`
	MaxExposure    float64     `json:"maxExposure"`
	PreferMaker    bool        `json:"preferMaker"`
	SlippageBudget float64     `json:"slippageBudget"`
	TimeInForce    TimeInForce `json:"timeInForce"`
	PaperTrading   bool        `json:"paperTrading"`
}

// PreferencePatch carries a partial update from the UI. Nil fields are kept.
type PreferencePatch struct {
	RiskLevel      *float64 `json:"riskLevel,omitempty"`
	MaxExposure    *float64 `json:"maxExposure,omitempty"`
	PreferMaker    *bool    `json:"preferMaker,omitempty"`
	SlippageBudget *float64 `json:"slippageBudget,omitempty"`
	TimeInForce    *string  `json:"timeInForce,omitempty"`
	PaperTrading   *bool    `json:"paperTrading,omitempty"`
}

// DefaultPreferences are the session-start values.
func DefaultPreferences() Preferences {
	return Preferences{
		RiskLevel:      0.35,
		MaxExposure:    2000,
		PreferMaker:    true,
		SlippageBudget: 10,
		TimeInForce:    TIFGTC,
		PaperTrading:   true,
	}
}

// Normalize coerces every numeric field into its domain. It never rejects.
func (p Preferences) Normalize() Preferences {
	p.RiskLevel = Clamp01(p.RiskLevel)
	p.MaxExposure = nonNegative(p.MaxExposure)
	p.SlippageBudget = nonNegative(p.SlippageBudget)
	p.TimeInForce = ParseTimeInForce(string(p.TimeInForce))
	return p
}

// Apply merges a patch. Non-finite numbers leave the previous value in place.
func (p Preferences) Apply(patch PreferencePatch) Preferences {
	if v, ok := finite(patch.RiskLevel); ok {
		p.RiskLevel = v
	}
	if v, ok := finite(patch.MaxExposure); ok {
		p.MaxExposure = v
	}
	if patch.PreferMaker != nil {
		p.PreferMaker = *patch.PreferMaker
	}
	if v, ok := finite(patch.SlippageBudget); ok {
		p.SlippageBudget = v
	}
	if patch.TimeInForce != nil {
		p.TimeInForce = TimeInForce(*patch.TimeInForce)
	}
	if patch.PaperTrading != nil {
		p.PaperTrading = *patch.PaperTrading
	}
	return p.Normalize()
}

func finite(p *float64) (float64, bool) {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return 0, false
	}
	return *p, true
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if math.IsInf(v, 1) {
		return math.MaxFloat64
	}
	return v
}
