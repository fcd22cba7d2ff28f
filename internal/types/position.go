package types

// PortfolioLine values one held asset in USD.
type PortfolioLine struct {
	Asset    string  `json:"asset"`
	Qty      float64 `json:"qty"`
	Price    float64 `json:"price"`
	USDValue float64 `json:"usdValue"`
}

// Portfolio is the server-side equity roll-up of all balances.
type Portfolio struct {
	EquityUSD float64         `json:"equityUsd"`
	Positions []PortfolioLine `json:"positions"`
}

// Line returns the portfolio line for asset, if any.
func (p Portfolio) Line(asset string) (PortfolioLine, bool) {
	for _, line := range p.Positions {
		if line.Asset == asset {
			return line, true
		}
	}
	return PortfolioLine{}, false
}
