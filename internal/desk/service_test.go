package desk

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"signaldesk/internal/market"
	"signaldesk/internal/orders"
	"signaldesk/internal/types"
	"signaldesk/internal/universe"
)

const slowInterval = time.Hour

type MockGateway struct {
	mock.Mock

	callMu sync.Mutex
	counts map[string]int
	risks  []float64
}

func (m *MockGateway) record(method string) {
	m.callMu.Lock()
	defer m.callMu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[method]++
}

func (m *MockGateway) callCount(method string) int {
	m.callMu.Lock()
	defer m.callMu.Unlock()
	return m.counts[method]
}

func (m *MockGateway) sawRisk(v float64) bool {
	m.callMu.Lock()
	defer m.callMu.Unlock()
	for _, r := range m.risks {
		if r == v {
			return true
		}
	}
	return false
}

func (m *MockGateway) Ticker(ctx context.Context, symbol string) (types.Ticker, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(types.Ticker), args.Error(1)
}

func (m *MockGateway) Signal(ctx context.Context, symbol string, riskLevel, maxExposure float64) (types.Signal, error) {
	m.callMu.Lock()
	m.risks = append(m.risks, riskLevel)
	m.callMu.Unlock()
	args := m.Called(ctx, symbol, riskLevel, maxExposure)
	return args.Get(0).(types.Signal), args.Error(1)
}

func (m *MockGateway) Balances(ctx context.Context) ([]types.Balance, error) {
	args := m.Called(ctx)
	return args.Get(0).([]types.Balance), args.Error(1)
}

func (m *MockGateway) StrategyConfig(ctx context.Context) (types.StrategyConfig, error) {
	args := m.Called(ctx)
	return args.Get(0).(types.StrategyConfig), args.Error(1)
}

func (m *MockGateway) PatchStrategyConfig(ctx context.Context, patch types.StrategyPatch) (types.StrategyConfig, error) {
	args := m.Called(ctx, patch)
	return args.Get(0).(types.StrategyConfig), args.Error(1)
}

func (m *MockGateway) RecentOrders(ctx context.Context, limit int) ([]types.OrderLogEntry, error) {
	m.record("RecentOrders")
	args := m.Called(ctx, limit)
	return args.Get(0).([]types.OrderLogEntry), args.Error(1)
}

func (m *MockGateway) Portfolio(ctx context.Context) (types.Portfolio, error) {
	args := m.Called(ctx)
	return args.Get(0).(types.Portfolio), args.Error(1)
}

func (m *MockGateway) OrderStatus(ctx context.Context, symbol string, orderID int64) (types.OrderStatusUpdate, error) {
	args := m.Called(ctx, symbol, orderID)
	return args.Get(0).(types.OrderStatusUpdate), args.Error(1)
}

func (m *MockGateway) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	return m.Called(ctx, symbol, orderID).Error(0)
}

func (m *MockGateway) PlaceOrder(ctx context.Context, req types.PlacementRequest) (types.PlacementResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(types.PlacementResult), args.Error(1)
}

func (m *MockGateway) OpenOrders(ctx context.Context, symbol string) ([]types.OrderStatusUpdate, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).([]types.OrderStatusUpdate), args.Error(1)
}

func (m *MockGateway) Trades(ctx context.Context, symbol string) ([]types.Trade, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).([]types.Trade), args.Error(1)
}

func (m *MockGateway) AutoTrade(ctx context.Context) (types.AutoTradeStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(types.AutoTradeStatus), args.Error(1)
}

func (m *MockGateway) SetAutoTrade(ctx context.Context, st types.AutoTradeStatus) (types.AutoTradeStatus, error) {
	args := m.Called(ctx, st)
	return args.Get(0).(types.AutoTradeStatus), args.Error(1)
}

type recordingNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (r *recordingNotifier) SendText(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return nil
}

func (r *recordingNotifier) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.texts)
}

var buySignal = types.Signal{Symbol: "BTCUSDC", Side: types.SideBuy, Confidence: 0.8}

func oid(v int64) *int64 { return &v }

// stubReads 为所有读接口设置默认返回值。
func stubReads(gw *MockGateway, entries []types.OrderLogEntry) {
	gw.On("Ticker", mock.Anything, "BTCUSDC").Return(types.Ticker{Symbol: "BTCUSDC", Price: 50000, TS: 1}, nil).Maybe()
	gw.On("Ticker", mock.Anything, "ETHUSDC").Return(types.Ticker{Symbol: "ETHUSDC", Price: 2500, TS: 1}, nil).Maybe()
	gw.On("Signal", mock.Anything, "BTCUSDC", mock.Anything, mock.Anything).Return(buySignal, nil).Maybe()
	gw.On("Signal", mock.Anything, "ETHUSDC", mock.Anything, mock.Anything).
		Return(types.Signal{Symbol: "ETHUSDC", Side: types.SideSell, Confidence: 0.5}, nil).Maybe()
	gw.On("Balances", mock.Anything).Return([]types.Balance{{Asset: "BTC", Free: 0.5}, {Asset: "USDC", Free: 1000}}, nil).Maybe()
	gw.On("StrategyConfig", mock.Anything).Return(types.DefaultStrategyConfig(), nil).Maybe()
	gw.On("RecentOrders", mock.Anything, mock.Anything).Return(entries, nil).Maybe()
	gw.On("Portfolio", mock.Anything).Return(types.Portfolio{
		EquityUSD: 35000,
		Positions: []types.PortfolioLine{{Asset: "BTC", Qty: 0.5, Price: 68000, USDValue: 34000}},
	}, nil).Maybe()
	gw.On("AutoTrade", mock.Anything).Return(types.AutoTradeStatus{Enabled: false, Symbols: []string{"BTCUSDC"}}, nil).Maybe()
}

func newService(t *testing.T, gw *MockGateway, n *recordingNotifier) *Service {
	t.Helper()
	u, err := universe.New("testnet")
	require.NoError(t, err)
	iv := market.Intervals{
		Ticker: slowInterval, Signal: slowInterval, Balances: slowInterval,
		Config: slowInterval, Orders: slowInterval, Portfolio: slowInterval,
	}
	svc, err := New(gw, u, n, Options{
		Symbol:      "BTCUSDC",
		Preferences: types.DefaultPreferences(),
		Intervals:   iv,
		OrdersLimit: 50,
	})
	require.NoError(t, err)
	return svc
}

func runService(t *testing.T, svc *Service) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = svc.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestNewRejectsUnknownDefaultSymbol(t *testing.T) {
	u, err := universe.New("testnet")
	require.NoError(t, err)
	_, err = New(new(MockGateway), u, nil, Options{Symbol: "PEPEUSDT"})
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestProposalDerivedFromFeeds(t *testing.T) {
	gw := new(MockGateway)
	stubReads(gw, []types.OrderLogEntry{})
	svc := newService(t, gw, &recordingNotifier{})
	runService(t, svc)

	require.Eventually(t, func() bool { return svc.Proposal() != nil }, 2*time.Second, 5*time.Millisecond)
	p := svc.Proposal()
	assert.Equal(t, "BTCUSDC", p.Symbol)
	assert.Equal(t, types.SideBuy, p.Side)
	assert.Greater(t, p.Quantity, 0.0)

	v := svc.View()
	assert.Equal(t, "BTCUSDC", v.Symbol)
	assert.Equal(t, "testnet", v.Venue)
	require.Eventually(t, func() bool { return svc.View().Holding != nil }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0.5, svc.View().Holding.Free)
	require.Eventually(t, func() bool { return svc.View().HoldingUSD != nil }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 34000.0, svc.View().HoldingUSD.USDValue)
	assert.Len(t, v.Feeds, 6)
}

func TestSelectSymbol(t *testing.T) {
	gw := new(MockGateway)
	stubReads(gw, []types.OrderLogEntry{})
	svc := newService(t, gw, &recordingNotifier{})
	runService(t, svc)

	_, err := svc.SelectSymbol("DOGEUSDT")
	assert.ErrorIs(t, err, ErrUnknownSymbol)

	sym, err := svc.SelectSymbol("eth/usdc")
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDC", sym)
	assert.Equal(t, "ETHUSDC", svc.Symbol())

	require.Eventually(t, func() bool {
		p := svc.Proposal()
		return p != nil && p.Symbol == "ETHUSDC" && p.Side == types.SideSell
	}, 2*time.Second, 5*time.Millisecond)
}

func TestPreferenceChangeRekeysSignal(t *testing.T) {
	gw := new(MockGateway)
	stubReads(gw, []types.OrderLogEntry{})
	svc := newService(t, gw, &recordingNotifier{})
	runService(t, svc)

	require.Eventually(t, func() bool { return svc.Proposal() != nil }, 2*time.Second, 5*time.Millisecond)
	risk := 0.9
	svc.UpdatePreferences(types.PreferencePatch{RiskLevel: &risk})

	require.Eventually(t, func() bool { return gw.sawRisk(0.9) }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0.9, svc.feeds.Signal.Key().RiskLevel)
}

func TestConcurrentSymbolAndPreferenceRekeyStaysConsistent(t *testing.T) {
	gw := new(MockGateway)
	stubReads(gw, []types.OrderLogEntry{})
	svc := newService(t, gw, &recordingNotifier{})
	runService(t, svc)

	symbols := []string{"ETHUSDC", "BTCUSDC"}
	for i := 0; i < 300; i++ {
		risk := float64(i%10) / 10
		start := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			<-start
			_, _ = svc.SelectSymbol(symbols[i%2])
		}()
		go func() {
			defer wg.Done()
			<-start
			svc.UpdatePreferences(types.PreferencePatch{RiskLevel: &risk})
		}()
		go func() {
			defer wg.Done()
			<-start
			exposure := 1000 + float64(i)
			svc.UpdatePreferences(types.PreferencePatch{MaxExposure: &exposure})
		}()
		close(start)
		wg.Wait()

		key := svc.feeds.Signal.Key()
		prefs := svc.Preferences()
		require.Equal(t, svc.feeds.Ticker.Key(), key.Symbol, "iteration %d", i)
		require.Equal(t, prefs.RiskLevel, key.RiskLevel, "iteration %d", i)
		require.Equal(t, prefs.MaxExposure, key.MaxExposure, "iteration %d", i)
	}
}

func TestTradesDefaultsToCurrentSymbol(t *testing.T) {
	gw := new(MockGateway)
	svc := newService(t, gw, &recordingNotifier{})
	gw.On("Trades", mock.Anything, "BTCUSDC").Return([]types.Trade{{ID: 1, Symbol: "BTCUSDC"}}, nil).Once()
	gw.On("Trades", mock.Anything, "ETHUSDC").Return([]types.Trade{}, nil).Once()

	trades, err := svc.Trades(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, trades, 1)

	_, err = svc.Trades(context.Background(), "eth/usdc")
	require.NoError(t, err)

	_, err = svc.Trades(context.Background(), "PEPEUSDT")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
	gw.AssertExpectations(t)
}

func TestConfirmWithoutProposal(t *testing.T) {
	gw := new(MockGateway)
	svc := newService(t, gw, &recordingNotifier{})
	_, err := svc.Confirm(context.Background(), Expect{})
	assert.ErrorIs(t, err, ErrNoProposal)
	gw.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
}

func TestConfirmRejectsChangedProposal(t *testing.T) {
	gw := new(MockGateway)
	stubReads(gw, []types.OrderLogEntry{})
	svc := newService(t, gw, &recordingNotifier{})
	runService(t, svc)
	require.Eventually(t, func() bool { return svc.Proposal() != nil }, 2*time.Second, 5*time.Millisecond)

	_, err := svc.Confirm(context.Background(), Expect{Symbol: "BTCUSDC", Side: types.SideSell})
	assert.ErrorIs(t, err, ErrProposalChanged)
}

func TestConfirmLiveRefreshesOrders(t *testing.T) {
	gw := new(MockGateway)
	stubReads(gw, []types.OrderLogEntry{})
	n := &recordingNotifier{}
	svc := newService(t, gw, n)
	runService(t, svc)
	require.Eventually(t, func() bool { return svc.Proposal() != nil }, 2*time.Second, 5*time.Millisecond)

	live := false
	svc.UpdatePreferences(types.PreferencePatch{PaperTrading: &live})
	gw.On("PlaceOrder", mock.Anything, mock.MatchedBy(func(req types.PlacementRequest) bool {
		return req.Symbol == "BTCUSDC" && !req.PaperTrading && req.TimeInForce == types.TIFGTC && req.PreferMaker
	})).Return(types.PlacementResult{Status: "ok", Order: map[string]any{"orderId": float64(77)}, ClientOrderID: "c1"}, nil).Once()

	res, err := svc.Confirm(context.Background(), Expect{Symbol: "BTCUSDC", Side: types.SideBuy})
	require.NoError(t, err)
	assert.False(t, res.Paper())

	require.Eventually(t, func() bool { return gw.callCount("RecentOrders") >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, n.Count())
}

func TestConfirmFailureNotifies(t *testing.T) {
	gw := new(MockGateway)
	stubReads(gw, []types.OrderLogEntry{})
	n := &recordingNotifier{}
	svc := newService(t, gw, n)
	runService(t, svc)
	require.Eventually(t, func() bool { return svc.Proposal() != nil }, 2*time.Second, 5*time.Millisecond)

	gw.On("PlaceOrder", mock.Anything, mock.Anything).Return(types.PlacementResult{}, errors.New("insufficient balance")).Once()
	_, err := svc.Confirm(context.Background(), Expect{})
	require.Error(t, err)
	assert.Equal(t, 1, n.Count())
}

func TestCancelOrderThroughDesk(t *testing.T) {
	entries := []types.OrderLogEntry{{
		Symbol: "BTCUSDC", Side: types.SideBuy, Quantity: 0.01, Mode: types.OrderModeLive,
		OrderID: oid(11), Status: types.OrderStatusNew,
	}}
	gw := new(MockGateway)
	stubReads(gw, entries)
	n := &recordingNotifier{}
	svc := newService(t, gw, n)
	runService(t, svc)
	require.Eventually(t, func() bool { return len(svc.View().Orders) == 1 }, 2*time.Second, 5*time.Millisecond)

	gw.On("CancelOrder", mock.Anything, "BTCUSDC", int64(11)).Return(nil).Once()
	ok, err := svc.CancelOrder(context.Background(), 11)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, n.Count())

	_, err = svc.CancelOrder(context.Background(), 999)
	assert.ErrorIs(t, err, orders.ErrUnknownOrder)
	assert.Equal(t, 1, n.Count())
}

func TestAutoTradeToggleThroughDesk(t *testing.T) {
	gw := new(MockGateway)
	stubReads(gw, []types.OrderLogEntry{})
	n := &recordingNotifier{}
	svc := newService(t, gw, n)

	st, err := svc.AutoTrade(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDC"}, st.Symbols)

	want := types.AutoTradeStatus{Enabled: true, Symbols: []string{"BTCUSDC"}}
	gw.On("SetAutoTrade", mock.Anything, want).Return(want, nil).Once()
	st, err = svc.ToggleAutoTrade(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Enabled)
	assert.Equal(t, 1, n.Count())

	// 未知交易对不推送也不通知
	_, err = svc.ToggleAutoTradeSymbol(context.Background(), "PEPEUSDT")
	require.NoError(t, err)
	assert.Equal(t, 1, n.Count())
}

func TestPatchConfigFailureNotifies(t *testing.T) {
	gw := new(MockGateway)
	n := &recordingNotifier{}
	svc := newService(t, gw, n)

	streak := 3
	gw.On("PatchStrategyConfig", mock.Anything, mock.Anything).Return(types.StrategyConfig{}, errors.New("down")).Once()
	cfg, err := svc.PatchConfig(context.Background(), types.StrategyPatch{ConfirmStreak: &streak})
	require.Error(t, err)
	assert.Equal(t, 3, cfg.ConfirmStreak)
	assert.Equal(t, 1, n.Count())
}
