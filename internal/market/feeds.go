package market

import (
	"context"
	"fmt"
	"time"

	"signaldesk/internal/scheduler"
	"signaldesk/internal/types"
)

// Backend is the read side of the remote service.
type Backend interface {
	Ticker(ctx context.Context, symbol string) (types.Ticker, error)
	Signal(ctx context.Context, symbol string, riskLevel, maxExposure float64) (types.Signal, error)
	Balances(ctx context.Context) ([]types.Balance, error)
	StrategyConfig(ctx context.Context) (types.StrategyConfig, error)
	RecentOrders(ctx context.Context, limit int) ([]types.OrderLogEntry, error)
	Portfolio(ctx context.Context) (types.Portfolio, error)
}

// SignalKey is every parameter the signal endpoint is keyed on.
type SignalKey struct {
	Symbol      string
	RiskLevel   float64
	MaxExposure float64
}

// Unit keys channels that take no parameters.
type Unit struct{}

// Intervals per data kind.
type Intervals struct {
	Ticker    time.Duration
	Signal    time.Duration
	Balances  time.Duration
	Config    time.Duration
	Orders    time.Duration
	Portfolio time.Duration
}

// DefaultIntervals match the browser client's cadences.
func DefaultIntervals() Intervals {
	return Intervals{
		Ticker:    1500 * time.Millisecond,
		Signal:    3 * time.Second,
		Balances:  5 * time.Second,
		Config:    15 * time.Second,
		Orders:    4 * time.Second,
		Portfolio: 10 * time.Second,
	}
}

// Feeds groups one channel per data kind.
type Feeds struct {
	Ticker    *Channel[string, types.Ticker]
	Signal    *Channel[SignalKey, types.Signal]
	Balances  *Channel[Unit, []types.Balance]
	Config    *Channel[Unit, types.StrategyConfig]
	Orders    *Channel[int, []types.OrderLogEntry]
	Portfolio *Channel[Unit, types.Portfolio]
}

func NewFeeds(b Backend, iv Intervals) *Feeds {
	def := DefaultIntervals()
	pick := func(v, d time.Duration) time.Duration {
		if v <= 0 {
			return d
		}
		return v
	}
	return &Feeds{
		Ticker: NewChannel(Spec[string, types.Ticker]{
			Name:       "ticker",
			Interval:   pick(iv.Ticker, def.Ticker),
			Discipline: scheduler.FixedInterval,
			Fetch: func(ctx context.Context, symbol string) (types.Ticker, error) {
				t, err := b.Ticker(ctx, symbol)
				if err != nil {
					return types.Ticker{}, err
				}
				if !t.Known() {
					return types.Ticker{}, fmt.Errorf("ticker %s: unusable price %v", symbol, t.Price)
				}
				t.Symbol = symbol
				return t, nil
			},
			Zero: types.EmptyTicker,
		}),
		Signal: NewChannel(Spec[SignalKey, types.Signal]{
			Name:       "signal",
			Interval:   pick(iv.Signal, def.Signal),
			Discipline: scheduler.FixedInterval,
			Fetch: func(ctx context.Context, k SignalKey) (types.Signal, error) {
				return b.Signal(ctx, k.Symbol, k.RiskLevel, k.MaxExposure)
			},
			Zero: func(k SignalKey) types.Signal { return types.FlatSignal(k.Symbol) },
			Fallback: func(k SignalKey, _ types.Signal) types.Signal {
				return types.FlatSignal(k.Symbol)
			},
		}),
		Balances: NewChannel(Spec[Unit, []types.Balance]{
			Name:       "balances",
			Interval:   pick(iv.Balances, def.Balances),
			Discipline: scheduler.FixedInterval,
			Fetch: func(ctx context.Context, _ Unit) ([]types.Balance, error) {
				return b.Balances(ctx)
			},
			Zero:     func(Unit) []types.Balance { return []types.Balance{} },
			Fallback: func(Unit, []types.Balance) []types.Balance { return []types.Balance{} },
		}),
		Config: NewChannel(Spec[Unit, types.StrategyConfig]{
			Name:       "config",
			Interval:   pick(iv.Config, def.Config),
			Discipline: scheduler.FixedInterval,
			Fetch: func(ctx context.Context, _ Unit) (types.StrategyConfig, error) {
				return b.StrategyConfig(ctx)
			},
		}),
		Orders: NewChannel(Spec[int, []types.OrderLogEntry]{
			Name:       "orders",
			Interval:   pick(iv.Orders, def.Orders),
			Discipline: scheduler.SelfRescheduling,
			Fetch: func(ctx context.Context, limit int) ([]types.OrderLogEntry, error) {
				return b.RecentOrders(ctx, limit)
			},
			Zero: func(int) []types.OrderLogEntry { return []types.OrderLogEntry{} },
		}),
		Portfolio: NewChannel(Spec[Unit, types.Portfolio]{
			Name:       "portfolio",
			Interval:   pick(iv.Portfolio, def.Portfolio),
			Discipline: scheduler.FixedInterval,
			Fetch: func(ctx context.Context, _ Unit) (types.Portfolio, error) {
				return b.Portfolio(ctx)
			},
		}),
	}
}

// Start mounts every channel.
func (f *Feeds) Start(ctx context.Context, symbol string, sig SignalKey, ordersLimit int) {
	f.Ticker.Start(ctx, symbol)
	f.Signal.Start(ctx, sig)
	f.Balances.Start(ctx, Unit{})
	f.Config.Start(ctx, Unit{})
	f.Orders.Start(ctx, ordersLimit)
	f.Portfolio.Start(ctx, Unit{})
}

// Stop unmounts every channel.
func (f *Feeds) Stop() {
	f.Ticker.Stop()
	f.Signal.Stop()
	f.Balances.Stop()
	f.Config.Stop()
	f.Orders.Stop()
	f.Portfolio.Stop()
}

// Statuses lists channel health in a fixed order.
func (f *Feeds) Statuses() []Status {
	return []Status{
		f.Ticker.Status(),
		f.Signal.Status(),
		f.Balances.Status(),
		f.Config.Status(),
		f.Orders.Status(),
		f.Portfolio.Status(),
	}
}
