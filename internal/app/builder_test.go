package app

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signaldesk/internal/config"
	"signaldesk/internal/gateway/notifier"
	"signaldesk/internal/types"
)

var errOffline = errors.New("offline")

// offlineGateway 所有调用都失败，读路径会降级，写路径返回错误。
type offlineGateway struct{}

func (offlineGateway) Ticker(context.Context, string) (types.Ticker, error) {
	return types.Ticker{}, errOffline
}

func (offlineGateway) Signal(context.Context, string, float64, float64) (types.Signal, error) {
	return types.Signal{}, errOffline
}

func (offlineGateway) Balances(context.Context) ([]types.Balance, error) { return nil, errOffline }

func (offlineGateway) StrategyConfig(context.Context) (types.StrategyConfig, error) {
	return types.StrategyConfig{}, errOffline
}

func (offlineGateway) PatchStrategyConfig(context.Context, types.StrategyPatch) (types.StrategyConfig, error) {
	return types.StrategyConfig{}, errOffline
}

func (offlineGateway) RecentOrders(context.Context, int) ([]types.OrderLogEntry, error) {
	return nil, errOffline
}

func (offlineGateway) Portfolio(context.Context) (types.Portfolio, error) {
	return types.Portfolio{}, errOffline
}

func (offlineGateway) OrderStatus(context.Context, string, int64) (types.OrderStatusUpdate, error) {
	return types.OrderStatusUpdate{}, errOffline
}

func (offlineGateway) CancelOrder(context.Context, string, int64) error { return errOffline }

func (offlineGateway) PlaceOrder(context.Context, types.PlacementRequest) (types.PlacementResult, error) {
	return types.PlacementResult{}, errOffline
}

func (offlineGateway) OpenOrders(context.Context, string) ([]types.OrderStatusUpdate, error) {
	return nil, errOffline
}

func (offlineGateway) Trades(context.Context, string) ([]types.Trade, error) {
	return nil, errOffline
}

func (offlineGateway) AutoTrade(context.Context) (types.AutoTradeStatus, error) {
	return types.AutoTradeStatus{}, errOffline
}

func (offlineGateway) SetAutoTrade(context.Context, types.AutoTradeStatus) (types.AutoTradeStatus, error) {
	return types.AutoTradeStatus{}, errOffline
}

func testConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{LogLevel: "error", HTTPAddr: "127.0.0.1:0"},
		Backend: config.BackendConfig{BaseURL: "http://127.0.0.1:1", TimeoutSeconds: 1},
		Venue:   config.VenueConfig{Mode: config.VenueTestnet, DefaultSymbol: "ETHUSDC"},
		Polling: config.PollingConfig{TickerMS: 250, OrdersLimit: 500},
		Preferences: config.PreferencesConfig{
			RiskLevel: 0.5, MaxExposure: 1000, SlippageBps: 5, TimeInForce: "ioc", PaperTrading: true,
		},
	}
}

func TestBuildWiresDesk(t *testing.T) {
	a, err := NewAppBuilder(testConfig(), WithGateway(offlineGateway{})).Build(context.Background())
	require.NoError(t, err)
	require.NotNil(t, a.Desk())

	assert.Equal(t, "ETHUSDC", a.Desk().Symbol())
	prefs := a.Desk().Preferences()
	assert.Equal(t, types.TIFIOC, prefs.TimeInForce)
	assert.Equal(t, 0.5, prefs.RiskLevel)

	s := a.Summary
	require.NotNil(t, s)
	assert.Equal(t, "testnet", s.Venue)
	assert.Equal(t, 200, s.OrdersLimit)
	assert.Equal(t, 250*time.Millisecond, s.Intervals.Ticker)
	assert.Equal(t, 3*time.Second, s.Intervals.Signal)
	assert.False(t, s.Telegram)
}

func TestBuildRejectsUnknownVenue(t *testing.T) {
	cfg := testConfig()
	cfg.Venue.Mode = "paper"
	_, err := NewAppBuilder(cfg, WithGateway(offlineGateway{})).Build(context.Background())
	assert.Error(t, err)
}

func TestBuildFallsBackToNoopNotifier(t *testing.T) {
	cfg := testConfig()
	b := NewAppBuilder(cfg, WithGateway(offlineGateway{}))
	b.notifierFn = func(config.TelegramConfig) (notifier.TextNotifier, error) {
		return nil, errors.New("bad token")
	}
	a, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.False(t, a.Summary.Telegram)
}

func TestSummaryPrint(t *testing.T) {
	a, err := NewAppBuilder(testConfig(), WithGateway(offlineGateway{})).Build(context.Background())
	require.NoError(t, err)
	var buf bytes.Buffer
	a.Summary.Fprint(&buf)
	out := buf.String()
	assert.Contains(t, out, "STARTUP SUMMARY")
	assert.Contains(t, out, "当前交易对: ETHUSDC")
	assert.Contains(t, out, "ticker=250ms")
	assert.Contains(t, out, "tif=IOC")
}

func TestRunStopsOnCancel(t *testing.T) {
	a, err := NewAppBuilder(testConfig(), WithGateway(offlineGateway{})).Build(context.Background())
	require.NoError(t, err)
	a.Summary = nil

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestRunRequiresInit(t *testing.T) {
	var a *App
	assert.Error(t, a.Run(context.Background()))
}

func TestNewAppNilConfig(t *testing.T) {
	_, err := NewApp(context.Background(), nil)
	assert.Error(t, err)
}
