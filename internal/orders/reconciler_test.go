package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"signaldesk/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) OrderStatus(ctx context.Context, symbol string, orderID int64) (types.OrderStatusUpdate, error) {
	args := m.Called(ctx, symbol, orderID)
	return args.Get(0).(types.OrderStatusUpdate), args.Error(1)
}

func (m *MockGateway) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	args := m.Called(ctx, symbol, orderID)
	return args.Error(0)
}

func oid(v int64) *int64 { return &v }

func liveEntry(orderID int64, status types.OrderStatus) types.OrderLogEntry {
	return types.OrderLogEntry{
		Symbol: "BTCUSDC", Side: types.SideBuy, Quantity: 0.01,
		Mode: types.OrderModeLive, OrderID: oid(orderID), Status: status,
	}
}

func seeded(gw Gateway) *Reconciler {
	r := NewReconciler(gw)
	r.Seed([]types.OrderLogEntry{
		liveEntry(1, types.OrderStatusNew),
		liveEntry(2, types.OrderStatusNew),
		{Symbol: "ETHUSDC", Side: types.SideSell, Mode: types.OrderModePaper, Status: types.OrderStatusPaper},
	})
	return r
}

func TestRefreshPatchesOnlyMatchingRow(t *testing.T) {
	gw := new(MockGateway)
	gw.On("OrderStatus", mock.Anything, "BTCUSDC", int64(2)).Return(types.OrderStatusUpdate{
		OrderID: 2, Status: types.OrderStatusPartiallyFilled, ExecutedQty: 0.004, CumulativeQuoteQty: 272,
	}, nil)
	r := seeded(gw)
	before := r.Entries()

	got, err := r.RefreshByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, types.OrderStatusPartiallyFilled, got.Status)

	after := r.Entries()
	assert.Equal(t, before[0], after[0])
	assert.Equal(t, before[2], after[2])
	assert.Equal(t, types.OrderStatusPartiallyFilled, after[1].Status)
	assert.Equal(t, 0.004, after[1].ExecutedQty)
	assert.Equal(t, 272.0, after[1].CumulativeQuoteQty)
	assert.Equal(t, before[1].Quantity, after[1].Quantity)
}

func TestRefreshFailureLeavesRowUnchanged(t *testing.T) {
	gw := new(MockGateway)
	gw.On("OrderStatus", mock.Anything, "BTCUSDC", int64(1)).Return(types.OrderStatusUpdate{}, errors.New("timeout"))
	r := seeded(gw)

	_, err := r.RefreshByID(context.Background(), 1)
	require.Error(t, err)
	entry, ok := r.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, types.OrderStatusNew, entry.Status)
}

func TestRefreshRequiresOrderIDAndSymbol(t *testing.T) {
	r := seeded(new(MockGateway))
	_, err := r.Refresh(context.Background(), types.OrderLogEntry{Symbol: "BTCUSDC"})
	assert.ErrorIs(t, err, ErrNotRefreshable)
	_, err = r.Refresh(context.Background(), types.OrderLogEntry{OrderID: oid(5)})
	assert.ErrorIs(t, err, ErrNotRefreshable)
	_, err = r.RefreshByID(context.Background(), 999)
	assert.ErrorIs(t, err, ErrUnknownOrder)
}

func TestCancelEligibility(t *testing.T) {
	gw := new(MockGateway)
	r := NewReconciler(gw)

	paper := types.OrderLogEntry{Symbol: "BTCUSDC", Mode: types.OrderModePaper, OrderID: oid(7), Status: types.OrderStatusNew}
	filled := liveEntry(8, types.OrderStatusFilled)
	noID := types.OrderLogEntry{Symbol: "BTCUSDC", Mode: types.OrderModeLive, Status: types.OrderStatusNew}

	for _, e := range []types.OrderLogEntry{paper, filled, noID} {
		submitted, err := r.Cancel(context.Background(), e)
		assert.NoError(t, err)
		assert.False(t, submitted)
	}
	gw.AssertNotCalled(t, "CancelOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelDoesNotApplyStatusOptimistically(t *testing.T) {
	gw := new(MockGateway)
	gw.On("CancelOrder", mock.Anything, "BTCUSDC", int64(1)).Return(nil)
	r := seeded(gw)

	submitted, err := r.CancelByID(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, submitted)
	entry, _ := r.Lookup(1)
	assert.Equal(t, types.OrderStatusNew, entry.Status)
}

func TestSecondActionOnSameRowIsRejected(t *testing.T) {
	gw := new(MockGateway)
	release := make(chan struct{})
	entered := make(chan struct{})
	gw.On("OrderStatus", mock.Anything, "BTCUSDC", int64(1)).Run(func(mock.Arguments) {
		close(entered)
		<-release
	}).Return(types.OrderStatusUpdate{OrderID: 1, Status: types.OrderStatusFilled}, nil).Once()
	gw.On("OrderStatus", mock.Anything, "BTCUSDC", int64(2)).Return(types.OrderStatusUpdate{OrderID: 2, Status: types.OrderStatusCanceled}, nil)
	r := seeded(gw)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := r.RefreshByID(context.Background(), 1)
		assert.NoError(t, err)
	}()
	<-entered

	rows := r.Rows()
	assert.True(t, rows[0].Busy)
	assert.Equal(t, ActionRefresh, rows[0].BusyAction)
	assert.False(t, rows[1].Busy)

	_, err := r.RefreshByID(context.Background(), 1)
	assert.ErrorIs(t, err, ErrRowBusy)
	_, err = r.CancelByID(context.Background(), 1)
	assert.ErrorIs(t, err, ErrRowBusy)

	// 其他行不受影响
	got, err := r.RefreshByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, types.OrderStatusCanceled, got.Status)

	close(release)
	wg.Wait()
	assert.Eventually(t, func() bool { return !r.Rows()[0].Busy }, time.Second, 5*time.Millisecond)
	entry, _ := r.Lookup(1)
	assert.Equal(t, types.OrderStatusFilled, entry.Status)
}

func TestRowsExposeEligibility(t *testing.T) {
	r := seeded(new(MockGateway))
	rows := r.Rows()
	require.Len(t, rows, 3)
	assert.True(t, rows[0].Cancelable)
	assert.True(t, rows[0].Refreshable)
	assert.False(t, rows[2].Cancelable)
	assert.False(t, rows[2].Refreshable)
}
