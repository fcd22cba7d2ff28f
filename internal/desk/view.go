package desk

import (
	"time"

	"signaldesk/internal/market"
	"signaldesk/internal/orders"
	"signaldesk/internal/pkg/symbol"
	"signaldesk/internal/types"
)

// View 是 UI 一次渲染所需的全部数据。
type View struct {
	Symbol        string                 `json:"symbol"`
	Venue         string                 `json:"venue"`
	Ticker        types.Ticker           `json:"ticker"`
	Signal        types.Signal           `json:"signal"`
	Proposal      *types.OrderProposal   `json:"proposal"`
	Preferences   types.Preferences      `json:"preferences"`
	Config        types.StrategyConfig   `json:"config"`
	ConfigLoaded  bool                   `json:"configLoaded"`
	ConfigPending bool                   `json:"configPending"`
	Balances      []types.Balance        `json:"balances"`
	Holding       *types.Balance         `json:"holding,omitempty"`
	HoldingUSD    *types.PortfolioLine   `json:"holdingUsd,omitempty"`
	Portfolio     types.Portfolio        `json:"portfolio"`
	Orders        []orders.Row           `json:"orders"`
	AutoTrade     *types.AutoTradeStatus `json:"autotrade,omitempty"`
	Feeds         []market.Status        `json:"feeds"`
	GeneratedAt   time.Time              `json:"generatedAt"`
}

// View reads every snapshot once.
func (s *Service) View() View {
	sym := s.Symbol()
	cfg, loaded := s.config.Get()
	balances := s.feeds.Balances.Snapshot()
	portfolio := s.feeds.Portfolio.Snapshot()
	v := View{
		Symbol:        sym,
		Venue:         s.universe.Name(),
		Ticker:        s.feeds.Ticker.Snapshot(),
		Signal:        s.feeds.Signal.Snapshot().Clone(),
		Proposal:      s.Proposal(),
		Preferences:   s.prefs.Get(),
		Config:        cfg,
		ConfigLoaded:  loaded,
		ConfigPending: s.config.Pending(),
		Balances:      append([]types.Balance{}, balances...),
		Holding:       holding(sym, balances),
		Portfolio:     portfolio,
		Orders:        s.orders.Rows(),
		Feeds:         s.feeds.Statuses(),
		GeneratedAt:   s.now(),
	}
	if line, ok := portfolio.Line(symbol.BaseAsset(sym)); ok {
		v.HoldingUSD = &line
	}
	if st, ok := s.autotrade.Status(); ok {
		v.AutoTrade = &st
	}
	return v
}

// holding 当前交易对基础资产的余额，如 BTCUSDC -> BTC。
func holding(sym string, balances []types.Balance) *types.Balance {
	base := symbol.BaseAsset(sym)
	if base == "" {
		return nil
	}
	for _, b := range balances {
		if b.Asset == base {
			h := b
			return &h
		}
	}
	return nil
}
