package types

// AutoTradeStatus mirrors the server-owned auto-trade switch.
type AutoTradeStatus struct {
	Enabled bool     `json:"enabled"`
	Symbols []string `json:"symbols"`
}

// Has reports whether sym is managed.
func (s AutoTradeStatus) Has(sym string) bool {
	for _, v := range s.Symbols {
		if v == sym {
			return true
		}
	}
	return false
}

// Clone copies the symbol slice.
func (s AutoTradeStatus) Clone() AutoTradeStatus {
	out := AutoTradeStatus{Enabled: s.Enabled}
	if s.Symbols != nil {
		out.Symbols = append([]string{}, s.Symbols...)
	}
	return out
}
