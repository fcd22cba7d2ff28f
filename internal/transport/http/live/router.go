package livehttp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"signaldesk/internal/autotrade"
	"signaldesk/internal/desk"
	"signaldesk/internal/logger"
	"signaldesk/internal/orders"
	"signaldesk/internal/strategy"
	"signaldesk/internal/types"
	"signaldesk/internal/universe"

	"github.com/gin-gonic/gin"
)

// Desk 由 desk.Service 实现。
type Desk interface {
	View() desk.View
	Universe() *universe.Universe
	SelectSymbol(sym string) (string, error)
	UpdatePreferences(patch types.PreferencePatch) types.Preferences
	PatchConfig(ctx context.Context, patch types.StrategyPatch) (types.StrategyConfig, error)
	Confirm(ctx context.Context, expect desk.Expect) (types.PlacementResult, error)
	RefreshOrder(ctx context.Context, orderID int64) (types.OrderLogEntry, error)
	CancelOrder(ctx context.Context, orderID int64) (bool, error)
	OpenOrders(ctx context.Context, sym string) ([]types.OrderStatusUpdate, error)
	Trades(ctx context.Context, sym string) ([]types.Trade, error)
	AutoTrade(ctx context.Context) (types.AutoTradeStatus, error)
	ToggleAutoTrade(ctx context.Context) (types.AutoTradeStatus, error)
	ToggleAutoTradeSymbol(ctx context.Context, sym string) (types.AutoTradeStatus, error)
}

// Router 暴露 UI 需要的读视图和写操作。
type Router struct {
	desk Desk
}

func NewRouter(d Desk) *Router {
	return &Router{desk: d}
}

// Register 将路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/view", r.handleView)
	group.GET("/universe", r.handleUniverse)
	group.POST("/symbol", r.handleSelectSymbol)
	group.PUT("/preferences", r.handlePreferences)
	group.POST("/config", r.handleConfig)
	group.POST("/confirm", r.handleConfirm)
	group.GET("/orders/open", r.handleOpenOrders)
	group.GET("/trades", r.handleTrades)
	group.POST("/orders/:id/refresh", r.handleOrderRefresh)
	group.POST("/orders/:id/cancel", r.handleOrderCancel)
	group.GET("/autotrade", r.handleAutoTrade)
	group.POST("/autotrade/toggle", r.handleAutoTradeToggle)
	group.POST("/autotrade/symbols/:symbol/toggle", r.handleAutoTradeSymbolToggle)
}

type symbolRequest struct {
	Symbol string `json:"symbol" binding:"required"`
}

func (r *Router) handleView(c *gin.Context) {
	c.JSON(http.StatusOK, r.desk.View())
}

func (r *Router) handleUniverse(c *gin.Context) {
	u := r.desk.Universe()
	c.JSON(http.StatusOK, gin.H{
		"venue":    u.Name(),
		"symbols":  u.Symbols(),
		"selected": r.desk.View().Symbol,
	})
}

func (r *Router) handleSelectSymbol(c *gin.Context) {
	var req symbolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sym, err := r.desk.SelectSymbol(req.Symbol)
	if err != nil {
		r.fail(c, "select symbol", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": sym})
}

func (r *Router) handlePreferences(c *gin.Context) {
	var patch types.PreferencePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, r.desk.UpdatePreferences(patch))
}

func (r *Router) handleConfig(c *gin.Context) {
	var patch types.StrategyPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cfg, err := r.desk.PatchConfig(c.Request.Context(), patch)
	if err != nil {
		r.fail(c, "patch config", err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (r *Router) handleConfirm(c *gin.Context) {
	var expect desk.Expect
	if err := c.ShouldBindJSON(&expect); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := r.desk.Confirm(c.Request.Context(), expect)
	if err != nil {
		r.fail(c, "confirm", err)
		return
	}
	logger.Infof("[api] confirm ip=%s status=%s client=%s", c.ClientIP(), res.Status, res.ClientOrderID)
	c.JSON(http.StatusOK, res)
}

func (r *Router) handleOpenOrders(c *gin.Context) {
	list, err := r.desk.OpenOrders(c.Request.Context(), c.Query("symbol"))
	if err != nil {
		r.fail(c, "open orders", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (r *Router) handleTrades(c *gin.Context) {
	list, err := r.desk.Trades(c.Request.Context(), c.Query("symbol"))
	if err != nil {
		r.fail(c, "trades", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": list})
}

func (r *Router) handleOrderRefresh(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	entry, err := r.desk.RefreshOrder(c.Request.Context(), id)
	if err != nil {
		r.fail(c, "refresh order", err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (r *Router) handleOrderCancel(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	submitted, err := r.desk.CancelOrder(c.Request.Context(), id)
	if err != nil {
		r.fail(c, "cancel order", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submitted": submitted})
}

func (r *Router) handleAutoTrade(c *gin.Context) {
	st, err := r.desk.AutoTrade(c.Request.Context())
	if err != nil {
		r.fail(c, "autotrade", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (r *Router) handleAutoTradeToggle(c *gin.Context) {
	st, err := r.desk.ToggleAutoTrade(c.Request.Context())
	if err != nil {
		r.fail(c, "autotrade toggle", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (r *Router) handleAutoTradeSymbolToggle(c *gin.Context) {
	st, err := r.desk.ToggleAutoTradeSymbol(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		r.fail(c, "autotrade symbol toggle", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func orderIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return 0, false
	}
	return id, true
}

func (r *Router) fail(c *gin.Context, action string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Warnf("[api] %s failed ip=%s err=%v", action, c.ClientIP(), err)
	} else {
		logger.Debugf("[api] %s rejected ip=%s status=%d err=%v", action, c.ClientIP(), status, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, desk.ErrUnknownSymbol),
		errors.Is(err, strategy.ErrInvalidPatch),
		errors.Is(err, orders.ErrNotRefreshable):
		return http.StatusBadRequest
	case errors.Is(err, orders.ErrUnknownOrder):
		return http.StatusNotFound
	case errors.Is(err, orders.ErrRowBusy),
		errors.Is(err, desk.ErrProposalChanged):
		return http.StatusConflict
	case errors.Is(err, desk.ErrNoProposal):
		return http.StatusUnprocessableEntity
	case errors.Is(err, autotrade.ErrNotLoaded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
