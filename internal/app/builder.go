package app

import (
	"context"
	"fmt"

	"signaldesk/internal/config"
	"signaldesk/internal/desk"
	"signaldesk/internal/gateway/backend"
	"signaldesk/internal/gateway/notifier"
	"signaldesk/internal/logger"
	"signaldesk/internal/market"
	"signaldesk/internal/scheduler"
	livehttp "signaldesk/internal/transport/http/live"
	"signaldesk/internal/types"
	"signaldesk/internal/universe"
)

const notifyQueueSize = 64

type AppBuilder struct {
	cfg *config.Config

	gatewayFn  func(config.BackendConfig) (desk.Gateway, error)
	notifierFn func(config.TelegramConfig) (notifier.TextNotifier, error)
	universeFn func(venue string) (*universe.Universe, error)
}

type AppBuilderOption func(*AppBuilder)

// WithGateway 替换后端客户端，供测试与回放使用。
func WithGateway(gw desk.Gateway) AppBuilderOption {
	return func(b *AppBuilder) {
		b.gatewayFn = func(config.BackendConfig) (desk.Gateway, error) { return gw, nil }
	}
}

func WithNotifier(n notifier.TextNotifier) AppBuilderOption {
	return func(b *AppBuilder) {
		b.notifierFn = func(config.TelegramConfig) (notifier.TextNotifier, error) { return n, nil }
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		gatewayFn:  buildGateway,
		notifierFn: notifier.NewTelegram,
		universeFn: universe.New,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func buildGateway(cfg config.BackendConfig) (desk.Gateway, error) {
	client, err := backend.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	u, err := b.universeFn(cfg.Venue.Mode)
	if err != nil {
		return nil, fmt.Errorf("load symbol universe: %w", err)
	}
	logger.Infof("✓ 已加载 %d 个交易对 (%s): %v", len(u.Symbols()), u.Name(), u.Symbols())

	gw, err := b.gatewayFn(cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("init backend client: %w", err)
	}

	text, err := b.notifierFn(cfg.Notify.Telegram)
	if err != nil {
		// 通知不可用不影响交易主流程
		logger.Warnf("telegram notifier disabled: %v", err)
		text = notifier.Noop{}
	}
	queue := notifier.NewQueue(text, notifyQueueSize)

	intervals := intervalsFrom(cfg.Polling)
	svc, err := desk.New(gw, u, queue, desk.Options{
		Symbol:      cfg.Venue.DefaultSymbol,
		Preferences: preferencesFrom(cfg.Preferences),
		Intervals:   intervals,
		OrdersLimit: backend.ClampOrdersLimit(cfg.Polling.OrdersLimit),
	})
	if err != nil {
		return nil, err
	}

	server, err := livehttp.NewServer(livehttp.ServerConfig{Addr: cfg.App.HTTPAddr, Desk: svc})
	if err != nil {
		return nil, fmt.Errorf("初始化 desk HTTP 失败: %w", err)
	}
	logger.Infof("✓ Desk HTTP 接口监听 %s", server.Addr())

	_, telegramOn := text.(*notifier.Telegram)
	return &App{
		cfg:    cfg,
		desk:   svc,
		http:   server,
		notify: queue,
		Summary: &StartupSummary{
			Venue:       u.Name(),
			Backend:     cfg.Backend.BaseURL,
			HTTPAddr:    server.Addr(),
			Symbol:      svc.Symbol(),
			Universe:    u.Symbols(),
			Intervals:   intervals,
			OrdersLimit: backend.ClampOrdersLimit(cfg.Polling.OrdersLimit),
			Preferences: svc.Preferences(),
			Telegram:    telegramOn,
		},
	}, nil
}

func intervalsFrom(p config.PollingConfig) market.Intervals {
	def := market.DefaultIntervals()
	return market.Intervals{
		Ticker:    scheduler.Millis(p.TickerMS, def.Ticker),
		Signal:    scheduler.Millis(p.SignalMS, def.Signal),
		Balances:  scheduler.Millis(p.BalancesMS, def.Balances),
		Config:    scheduler.Millis(p.ConfigMS, def.Config),
		Orders:    scheduler.Millis(p.OrdersMS, def.Orders),
		Portfolio: scheduler.Millis(p.PortfolioMS, def.Portfolio),
	}
}

func preferencesFrom(p config.PreferencesConfig) types.Preferences {
	return types.Preferences{
		RiskLevel:      p.RiskLevel,
		MaxExposure:    p.MaxExposure,
		PreferMaker:    p.PreferMaker,
		SlippageBudget: p.SlippageBps,
		TimeInForce:    types.ParseTimeInForce(p.TimeInForce),
		PaperTrading:   p.PaperTrading,
	}.Normalize()
}
