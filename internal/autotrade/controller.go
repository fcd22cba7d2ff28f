package autotrade

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"signaldesk/internal/logger"
	"signaldesk/internal/pkg/symbol"
	"signaldesk/internal/types"
)

var ErrNotLoaded = errors.New("auto-trade state not loaded yet")

var atLog = logger.Prefixed("autotrade")

// Gateway 远端 auto-trade 资源的读写。
type Gateway interface {
	AutoTrade(ctx context.Context) (types.AutoTradeStatus, error)
	SetAutoTrade(ctx context.Context, st types.AutoTradeStatus) (types.AutoTradeStatus, error)
}

// SymbolFilter 客户端已知的交易对集合。
type SymbolFilter interface {
	Contains(sym string) bool
	Filter(symbols []string) []string
}

// Controller 镜像服务端的 {enabled, symbols}。
// 每次写入都推送完整对象，写入响应直接成为本地状态。
type Controller struct {
	gw       Gateway
	universe SymbolFilter

	// writeMu 串行化变更，避免两次 toggle 基于同一旧状态计算
	writeMu sync.Mutex

	mu     sync.RWMutex
	state  types.AutoTradeStatus
	loaded bool
}

func NewController(gw Gateway, universe SymbolFilter) *Controller {
	return &Controller{gw: gw, universe: universe}
}

// Load 拉取远端状态并与已知交易对取交集。
func (c *Controller) Load(ctx context.Context) (types.AutoTradeStatus, error) {
	st, err := c.gw.AutoTrade(ctx)
	if err != nil {
		return types.AutoTradeStatus{}, fmt.Errorf("load auto-trade: %w", err)
	}
	return c.adopt(st), nil
}

// Status 返回本地副本；loaded 为 false 表示尚未成功加载。
func (c *Controller) Status() (types.AutoTradeStatus, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Clone(), c.loaded
}

// ToggleEnabled flips the master switch and pushes the whole object.
func (c *Controller) ToggleEnabled(ctx context.Context) (types.AutoTradeStatus, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	cur, ok := c.Status()
	if !ok {
		return types.AutoTradeStatus{}, ErrNotLoaded
	}
	next := cur.Clone()
	next.Enabled = !cur.Enabled
	return c.push(ctx, next)
}

// ToggleSymbol adds or removes one symbol. Unknown symbols leave the state untouched.
func (c *Controller) ToggleSymbol(ctx context.Context, sym string) (types.AutoTradeStatus, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	cur, ok := c.Status()
	if !ok {
		return types.AutoTradeStatus{}, ErrNotLoaded
	}
	norm := symbol.Normalize(sym)
	if norm == "" || !c.universe.Contains(norm) {
		atLog.Debugf("ignore toggle for unknown symbol %q", sym)
		return cur, nil
	}

	next := types.AutoTradeStatus{Enabled: cur.Enabled, Symbols: make([]string, 0, len(cur.Symbols)+1)}
	if cur.Has(norm) {
		for _, s := range cur.Symbols {
			if s != norm {
				next.Symbols = append(next.Symbols, s)
			}
		}
	} else {
		next.Symbols = append(next.Symbols, cur.Symbols...)
		next.Symbols = append(next.Symbols, norm)
	}
	next.Symbols = c.universe.Filter(next.Symbols)
	return c.push(ctx, next)
}

func (c *Controller) push(ctx context.Context, next types.AutoTradeStatus) (types.AutoTradeStatus, error) {
	out, err := c.gw.SetAutoTrade(ctx, next)
	if err != nil {
		atLog.Warnf("push failed enabled=%v symbols=%v: %v", next.Enabled, next.Symbols, err)
		return types.AutoTradeStatus{}, fmt.Errorf("set auto-trade: %w", err)
	}
	return c.adopt(out), nil
}

func (c *Controller) adopt(st types.AutoTradeStatus) types.AutoTradeStatus {
	filtered := types.AutoTradeStatus{Enabled: st.Enabled, Symbols: c.universe.Filter(st.Symbols)}
	c.mu.Lock()
	c.state = filtered
	c.loaded = true
	c.mu.Unlock()
	return filtered.Clone()
}
