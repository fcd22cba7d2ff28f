package orders

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"signaldesk/internal/logger"
	"signaldesk/internal/types"
)

var (
	ErrRowBusy        = errors.New("order row has an action in flight")
	ErrNotRefreshable = errors.New("order has no exchange id or symbol")
	ErrUnknownOrder   = errors.New("order not in local log")
)

var orderLog = logger.Prefixed("orders")

// Gateway is the write side of the order service.
type Gateway interface {
	OrderStatus(ctx context.Context, symbol string, orderID int64) (types.OrderStatusUpdate, error)
	CancelOrder(ctx context.Context, symbol string, orderID int64) error
}

// Row is one order log entry plus the per-row UI state.
type Row struct {
	types.OrderLogEntry
	Busy        bool   `json:"busy"`
	BusyAction  string `json:"busyAction,omitempty"`
	Refreshable bool   `json:"refreshable"`
	Cancelable  bool   `json:"cancelable"`
}

// Reconciler 持有本地订单日志副本：轮询整体替换，手动刷新只按 orderId 原地修补单行。
type Reconciler struct {
	gw   Gateway
	busy *busyTracker

	mu      sync.RWMutex
	entries []types.OrderLogEntry
}

func NewReconciler(gw Gateway) *Reconciler {
	return &Reconciler{gw: gw, busy: newBusyTracker()}
}

// Seed replaces the local log with a fresh poll result.
func (r *Reconciler) Seed(entries []types.OrderLogEntry) {
	cp := make([]types.OrderLogEntry, len(entries))
	for i, e := range entries {
		cp[i] = e.Clone()
	}
	r.mu.Lock()
	r.entries = cp
	r.mu.Unlock()
}

// Entries returns a copy of the local log.
func (r *Reconciler) Entries() []types.OrderLogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.OrderLogEntry, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Clone()
	}
	return out
}

// Rows returns the log decorated with busy and eligibility flags.
func (r *Reconciler) Rows() []Row {
	entries := r.Entries()
	rows := make([]Row, len(entries))
	for i, e := range entries {
		row := Row{OrderLogEntry: e, Refreshable: e.Refreshable(), Cancelable: e.Cancelable()}
		if e.OrderID != nil {
			if action, ok := r.busy.Action(*e.OrderID); ok {
				row.Busy = true
				row.BusyAction = action
			}
		}
		rows[i] = row
	}
	return rows
}

// Lookup finds an entry by exchange order id.
func (r *Reconciler) Lookup(orderID int64) (types.OrderLogEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.OrderID != nil && *e.OrderID == orderID {
			return e.Clone(), true
		}
	}
	return types.OrderLogEntry{}, false
}

// Refresh asks the service for the entry's status and patches only that row.
// On failure the row is left untouched.
func (r *Reconciler) Refresh(ctx context.Context, entry types.OrderLogEntry) (types.OrderLogEntry, error) {
	if !entry.Refreshable() {
		return entry, ErrNotRefreshable
	}
	id := *entry.OrderID
	if !r.busy.Begin(id, ActionRefresh) {
		return entry, ErrRowBusy
	}
	defer r.busy.End(id)

	update, err := r.gw.OrderStatus(ctx, entry.Symbol, id)
	if err != nil {
		orderLog.Warnf("refresh order=%d symbol=%s failed: %v", id, entry.Symbol, err)
		return entry, fmt.Errorf("refresh order %d: %w", id, err)
	}
	if update.OrderID == 0 {
		update.OrderID = id
	}
	patched, ok := r.apply(update)
	if !ok {
		// 行已被轮询替换掉，仍把结果返回给调用方。
		entry.Status = update.Status
		entry.ExecutedQty = update.ExecutedQty
		entry.CumulativeQuoteQty = update.CumulativeQuoteQty
		return entry, nil
	}
	orderLog.Debugf("order=%d status=%s executed=%v", id, patched.Status, patched.ExecutedQty)
	return patched, nil
}

// RefreshByID looks the entry up in the local log, then refreshes it.
func (r *Reconciler) RefreshByID(ctx context.Context, orderID int64) (types.OrderLogEntry, error) {
	entry, ok := r.Lookup(orderID)
	if !ok {
		return types.OrderLogEntry{}, ErrUnknownOrder
	}
	return r.Refresh(ctx, entry)
}

// Cancel submits a cancel for a live open order. Ineligible rows are a no-op
// reported as (false, nil). The resulting status is picked up by the next
// refresh or poll, never applied here.
func (r *Reconciler) Cancel(ctx context.Context, entry types.OrderLogEntry) (bool, error) {
	if !entry.Cancelable() {
		return false, nil
	}
	id := *entry.OrderID
	if !r.busy.Begin(id, ActionCancel) {
		return false, ErrRowBusy
	}
	defer r.busy.End(id)

	if err := r.gw.CancelOrder(ctx, entry.Symbol, id); err != nil {
		orderLog.Warnf("cancel order=%d symbol=%s failed: %v", id, entry.Symbol, err)
		return false, fmt.Errorf("cancel order %d: %w", id, err)
	}
	orderLog.Infof("cancel submitted order=%d symbol=%s", id, entry.Symbol)
	return true, nil
}

// CancelByID looks the entry up in the local log, then cancels it.
func (r *Reconciler) CancelByID(ctx context.Context, orderID int64) (bool, error) {
	entry, ok := r.Lookup(orderID)
	if !ok {
		return false, ErrUnknownOrder
	}
	return r.Cancel(ctx, entry)
}

func (r *Reconciler) apply(u types.OrderStatusUpdate) (types.OrderLogEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		e := &r.entries[i]
		if e.OrderID == nil || *e.OrderID != u.OrderID {
			continue
		}
		if u.Status != "" {
			e.Status = u.Status
		}
		e.ExecutedQty = u.ExecutedQty
		e.CumulativeQuoteQty = u.CumulativeQuoteQty
		return e.Clone(), true
	}
	return types.OrderLogEntry{}, false
}
