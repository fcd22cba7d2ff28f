package desk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"signaldesk/internal/autotrade"
	"signaldesk/internal/gateway/notifier"
	"signaldesk/internal/logger"
	"signaldesk/internal/market"
	"signaldesk/internal/orders"
	"signaldesk/internal/pkg/symbol"
	"signaldesk/internal/strategy"
	"signaldesk/internal/types"
	"signaldesk/internal/universe"
)

var (
	ErrNoProposal      = errors.New("no order proposal available")
	ErrProposalChanged = errors.New("proposal changed since it was displayed")
	ErrUnknownSymbol   = errors.New("symbol not in universe")
)

var deskLog = logger.Prefixed("desk")

// Gateway 桌面需要的全部后端能力，backend.Client 满足该接口。
type Gateway interface {
	market.Backend
	orders.Gateway
	strategy.ConfigWriter
	autotrade.Gateway
	PlaceOrder(ctx context.Context, req types.PlacementRequest) (types.PlacementResult, error)
	OpenOrders(ctx context.Context, symbol string) ([]types.OrderStatusUpdate, error)
	Trades(ctx context.Context, symbol string) ([]types.Trade, error)
}

type Options struct {
	Symbol      string
	Preferences types.Preferences
	Intervals   market.Intervals
	OrdersLimit int
}

// Expect 确认下单时 UI 看到的提案；零值表示不校验。
type Expect struct {
	Symbol string     `json:"symbol"`
	Side   types.Side `json:"side"`
}

// Service 持有所有轮询通道和派生状态，对 UI 只暴露一致的读视图和写操作。
type Service struct {
	gw        Gateway
	universe  *universe.Universe
	feeds     *market.Feeds
	prefs     *strategy.PreferenceStore
	config    *strategy.ConfigState
	orders    *orders.Reconciler
	autotrade *autotrade.Controller
	notify    notifier.TextNotifier
	now       func() time.Time

	ordersLimit int

	// rekeyMu 串行化 ticker/signal 换 key，key 总是由当前交易对和当前偏好构造
	rekeyMu sync.Mutex

	mu       sync.RWMutex
	proposal *types.OrderProposal
}

func New(gw Gateway, u *universe.Universe, n notifier.TextNotifier, opts Options) (*Service, error) {
	if gw == nil {
		return nil, errors.New("desk: gateway is required")
	}
	if u == nil {
		return nil, errors.New("desk: universe is required")
	}
	sym := symbol.Normalize(opts.Symbol)
	if sym == "" {
		sym = u.First()
	}
	if !u.Contains(sym) {
		return nil, fmt.Errorf("desk: default symbol %q: %w", opts.Symbol, ErrUnknownSymbol)
	}
	if n == nil {
		n = notifier.Noop{}
	}

	s := &Service{
		gw:          gw,
		universe:    u,
		feeds:       market.NewFeeds(gw, opts.Intervals),
		prefs:       strategy.NewPreferenceStore(opts.Preferences),
		config:      strategy.NewConfigState(gw),
		orders:      orders.NewReconciler(gw),
		autotrade:   autotrade.NewController(gw, u),
		notify:      n,
		now:         time.Now,
		ordersLimit: opts.OrdersLimit,
	}
	// 通道 key 在 Start 之前只被记录，Run 时用当前值挂载
	s.feeds.Ticker.SetKey(sym)
	s.feeds.Signal.SetKey(s.signalKey(sym, s.prefs.Get()))
	s.wire()
	return s, nil
}

func (s *Service) wire() {
	s.feeds.Ticker.Subscribe(func(string, types.Ticker) { s.recompute() })
	s.feeds.Signal.Subscribe(func(market.SignalKey, types.Signal) { s.recompute() })
	s.feeds.Config.Subscribe(func(_ market.Unit, cfg types.StrategyConfig) { s.config.ApplyServer(cfg) })
	s.feeds.Orders.Subscribe(func(_ int, entries []types.OrderLogEntry) { s.orders.Seed(entries) })
	s.prefs.Subscribe(func(prev, next types.Preferences) {
		if prev.RiskLevel != next.RiskLevel || prev.MaxExposure != next.MaxExposure {
			s.rekeySignal()
		}
		s.recompute()
	})
}

func (s *Service) signalKey(sym string, p types.Preferences) market.SignalKey {
	return market.SignalKey{Symbol: sym, RiskLevel: p.RiskLevel, MaxExposure: p.MaxExposure}
}

// rekeySignal 不使用订阅回调里的 next，并发更新时较旧的回调可能最后执行。
func (s *Service) rekeySignal() {
	s.rekeyMu.Lock()
	defer s.rekeyMu.Unlock()
	s.feeds.Signal.SetKey(s.signalKey(s.feeds.Ticker.Key(), s.prefs.Get()))
}

// Run 挂载所有通道，阻塞到 ctx 结束后卸载。
func (s *Service) Run(ctx context.Context) error {
	s.rekeyMu.Lock()
	sym := s.feeds.Ticker.Key()
	s.feeds.Start(ctx, sym, s.signalKey(sym, s.prefs.Get()), s.ordersLimit)
	s.rekeyMu.Unlock()
	deskLog.Infof("feeds started symbol=%s orders_limit=%d", sym, s.ordersLimit)
	if _, err := s.autotrade.Load(ctx); err != nil {
		deskLog.Warnf("auto-trade initial load failed: %v", err)
	}
	<-ctx.Done()
	s.feeds.Stop()
	deskLog.Infof("feeds stopped")
	return nil
}

// Symbol 当前选中的交易对。
func (s *Service) Symbol() string {
	return s.feeds.Ticker.Key()
}

func (s *Service) Universe() *universe.Universe { return s.universe }

// SelectSymbol 重新 key ticker 和 signal，旧交易对的在途响应会被丢弃。
func (s *Service) SelectSymbol(sym string) (string, error) {
	norm := symbol.Normalize(sym)
	if norm == "" || !s.universe.Contains(norm) {
		return "", fmt.Errorf("%q: %w", sym, ErrUnknownSymbol)
	}
	s.rekeyMu.Lock()
	if norm == s.feeds.Ticker.Key() {
		s.rekeyMu.Unlock()
		return norm, nil
	}
	s.feeds.Ticker.SetKey(norm)
	s.feeds.Signal.SetKey(s.signalKey(norm, s.prefs.Get()))
	s.rekeyMu.Unlock()
	s.recompute()
	deskLog.Infof("symbol -> %s", norm)
	return norm, nil
}

func (s *Service) Preferences() types.Preferences { return s.prefs.Get() }

// UpdatePreferences never rejects; values are coerced into range.
func (s *Service) UpdatePreferences(patch types.PreferencePatch) types.Preferences {
	return s.prefs.Update(patch)
}

// PatchConfig pushes a strategy config patch.
func (s *Service) PatchConfig(ctx context.Context, patch types.StrategyPatch) (types.StrategyConfig, error) {
	cfg, err := s.config.Patch(ctx, patch)
	if err != nil && !errors.Is(err, strategy.ErrInvalidPatch) {
		s.send(notifier.WriteFailed("策略配置", err, s.now()))
	}
	return cfg, err
}

// Proposal 当前提案的副本；nil 表示不可下单。
func (s *Service) Proposal() *types.OrderProposal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProposal(s.proposal)
}

// recompute 整个过程持锁，保证最后一次执行看到的是最新快照。
func (s *Service) recompute() {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticker := s.feeds.Ticker.Snapshot()
	sig := s.feeds.Signal.Snapshot()
	if ticker.Symbol != "" && sig.Symbol != "" && ticker.Symbol != sig.Symbol {
		// 切换交易对的瞬间两个通道可能各自持有不同 symbol 的数据
		s.proposal = nil
		return
	}
	s.proposal = strategy.ComputeProposal(ticker, sig, s.prefs.Get())
}

// Confirm 提交当前提案。实盘成功后立即重新拉取订单日志。
func (s *Service) Confirm(ctx context.Context, expect Expect) (types.PlacementResult, error) {
	p := s.Proposal()
	if p == nil {
		return types.PlacementResult{}, ErrNoProposal
	}
	if (expect.Symbol != "" && symbol.Normalize(expect.Symbol) != p.Symbol) ||
		(expect.Side != "" && expect.Side != p.Side) {
		return types.PlacementResult{}, ErrProposalChanged
	}
	prefs := s.prefs.Get()
	req := types.PlacementRequest{
		OrderProposal: *p,
		TimeInForce:   prefs.TimeInForce,
		PreferMaker:   prefs.PreferMaker,
		PaperTrading:  prefs.PaperTrading,
	}
	res, err := s.gw.PlaceOrder(ctx, req)
	if err != nil {
		deskLog.Warnf("place %s %s qty=%g failed: %v", p.Side, p.Symbol, p.Quantity, err)
		s.send(notifier.WriteFailed("下单 "+p.Symbol, err, s.now()))
		return types.PlacementResult{}, fmt.Errorf("place order: %w", err)
	}
	req.ClientOrderID = res.ClientOrderID
	deskLog.Infof("placed %s %s qty=%g status=%s client=%s", p.Side, p.Symbol, p.Quantity, res.Status, res.ClientOrderID)
	if !res.Paper() {
		s.feeds.Orders.Refresh()
	}
	s.send(notifier.OrderPlaced(req, res, s.now()))
	return res, nil
}

// RefreshOrder patches one order log row from the service.
func (s *Service) RefreshOrder(ctx context.Context, orderID int64) (types.OrderLogEntry, error) {
	return s.orders.RefreshByID(ctx, orderID)
}

// CancelOrder 提交撤单；结果状态由下一次刷新或轮询带回。
func (s *Service) CancelOrder(ctx context.Context, orderID int64) (bool, error) {
	entry, found := s.orders.Lookup(orderID)
	ok, err := s.orders.CancelByID(ctx, orderID)
	switch {
	case err != nil && !errors.Is(err, orders.ErrRowBusy) && !errors.Is(err, orders.ErrUnknownOrder):
		s.send(notifier.WriteFailed(fmt.Sprintf("撤单 %d", orderID), err, s.now()))
	case ok && found:
		s.send(notifier.OrderCanceled(entry, s.now()))
	}
	return ok, err
}

// OpenOrders 直接查询交易所挂单，不进入本地日志。
func (s *Service) OpenOrders(ctx context.Context, sym string) ([]types.OrderStatusUpdate, error) {
	return s.gw.OpenOrders(ctx, sym)
}

// Trades 查询成交记录；sym 为空时用当前交易对。
func (s *Service) Trades(ctx context.Context, sym string) ([]types.Trade, error) {
	norm := s.Symbol()
	if sym != "" {
		norm = symbol.Normalize(sym)
	}
	if norm == "" || !s.universe.Contains(norm) {
		return nil, fmt.Errorf("%q: %w", sym, ErrUnknownSymbol)
	}
	return s.gw.Trades(ctx, norm)
}

// AutoTrade 返回本地镜像；尚未加载时先拉取一次。
func (s *Service) AutoTrade(ctx context.Context) (types.AutoTradeStatus, error) {
	if st, ok := s.autotrade.Status(); ok {
		return st, nil
	}
	return s.autotrade.Load(ctx)
}

func (s *Service) ToggleAutoTrade(ctx context.Context) (types.AutoTradeStatus, error) {
	if err := s.ensureAutoTrade(ctx); err != nil {
		return types.AutoTradeStatus{}, err
	}
	st, err := s.autotrade.ToggleEnabled(ctx)
	return s.afterAutoTrade(st, err)
}

func (s *Service) ToggleAutoTradeSymbol(ctx context.Context, sym string) (types.AutoTradeStatus, error) {
	if err := s.ensureAutoTrade(ctx); err != nil {
		return types.AutoTradeStatus{}, err
	}
	before, _ := s.autotrade.Status()
	st, err := s.autotrade.ToggleSymbol(ctx, sym)
	if err == nil && equalStatus(before, st) {
		return st, nil
	}
	return s.afterAutoTrade(st, err)
}

func (s *Service) ensureAutoTrade(ctx context.Context) error {
	if _, ok := s.autotrade.Status(); ok {
		return nil
	}
	_, err := s.autotrade.Load(ctx)
	return err
}

func (s *Service) afterAutoTrade(st types.AutoTradeStatus, err error) (types.AutoTradeStatus, error) {
	if err != nil {
		s.send(notifier.WriteFailed("自动交易", err, s.now()))
		return st, err
	}
	s.send(notifier.AutoTradeChanged(st, s.now()))
	return st, nil
}

func (s *Service) send(msg notifier.StructuredMessage) {
	if err := s.notify.SendText(msg.RenderMarkdown()); err != nil {
		deskLog.Debugf("notify skipped: %v", err)
	}
}

func equalStatus(a, b types.AutoTradeStatus) bool {
	if a.Enabled != b.Enabled || len(a.Symbols) != len(b.Symbols) {
		return false
	}
	for i := range a.Symbols {
		if a.Symbols[i] != b.Symbols[i] {
			return false
		}
	}
	return true
}

func cloneProposal(p *types.OrderProposal) *types.OrderProposal {
	if p == nil {
		return nil
	}
	cp := *p
	cp.LimitPrice = clonePtr(p.LimitPrice)
	cp.StopPrice = clonePtr(p.StopPrice)
	cp.TakeProfit = clonePtr(p.TakeProfit)
	return &cp
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}
