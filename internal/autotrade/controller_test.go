package autotrade

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"signaldesk/internal/types"
	"signaldesk/internal/universe"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) AutoTrade(ctx context.Context) (types.AutoTradeStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(types.AutoTradeStatus), args.Error(1)
}

func (m *MockGateway) SetAutoTrade(ctx context.Context, st types.AutoTradeStatus) (types.AutoTradeStatus, error) {
	args := m.Called(ctx, st)
	return args.Get(0).(types.AutoTradeStatus), args.Error(1)
}

func newController(t *testing.T) (*Controller, *MockGateway) {
	t.Helper()
	u, err := universe.New("testnet")
	require.NoError(t, err)
	gw := new(MockGateway)
	return NewController(gw, u), gw
}

func TestLoadFiltersUnknownSymbols(t *testing.T) {
	ctl, gw := newController(t)
	ctx := context.Background()
	gw.On("AutoTrade", ctx).Return(types.AutoTradeStatus{
		Enabled: true,
		Symbols: []string{"SOLUSDC", "FOOUSDC", "BTCUSDC"},
	}, nil)

	st, err := ctl.Load(ctx)
	require.NoError(t, err)
	assert.True(t, st.Enabled)
	assert.Equal(t, []string{"BTCUSDC", "SOLUSDC"}, st.Symbols)

	local, loaded := ctl.Status()
	assert.True(t, loaded)
	assert.Equal(t, st, local)
}

func TestLoadErrorLeavesUnloaded(t *testing.T) {
	ctl, gw := newController(t)
	ctx := context.Background()
	gw.On("AutoTrade", ctx).Return(types.AutoTradeStatus{}, errors.New("down"))

	_, err := ctl.Load(ctx)
	require.Error(t, err)
	_, loaded := ctl.Status()
	assert.False(t, loaded)
}

func TestToggleBeforeLoad(t *testing.T) {
	ctl, _ := newController(t)
	_, err := ctl.ToggleEnabled(context.Background())
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = ctl.ToggleSymbol(context.Background(), "BTCUSDC")
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestToggleEnabledPushesFullObject(t *testing.T) {
	ctl, gw := newController(t)
	ctx := context.Background()
	gw.On("AutoTrade", ctx).Return(types.AutoTradeStatus{Symbols: []string{"ETHUSDC"}}, nil)
	_, err := ctl.Load(ctx)
	require.NoError(t, err)

	want := types.AutoTradeStatus{Enabled: true, Symbols: []string{"ETHUSDC"}}
	gw.On("SetAutoTrade", ctx, want).Return(want, nil).Once()

	st, err := ctl.ToggleEnabled(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, st)
	gw.AssertExpectations(t)
}

func TestToggleSymbolAddAndRemove(t *testing.T) {
	ctl, gw := newController(t)
	ctx := context.Background()
	gw.On("AutoTrade", ctx).Return(types.AutoTradeStatus{Enabled: true, Symbols: []string{"XRPUSDC"}}, nil)
	_, err := ctl.Load(ctx)
	require.NoError(t, err)

	added := types.AutoTradeStatus{Enabled: true, Symbols: []string{"BTCUSDC", "XRPUSDC"}}
	gw.On("SetAutoTrade", ctx, added).Return(added, nil).Once()
	st, err := ctl.ToggleSymbol(ctx, "btc/usdc")
	require.NoError(t, err)
	assert.Equal(t, added, st)

	removed := types.AutoTradeStatus{Enabled: true, Symbols: []string{"BTCUSDC"}}
	gw.On("SetAutoTrade", ctx, removed).Return(removed, nil).Once()
	st, err = ctl.ToggleSymbol(ctx, "XRPUSDC")
	require.NoError(t, err)
	assert.Equal(t, removed, st)
	gw.AssertExpectations(t)
}

func TestToggleUnknownSymbolIsNoop(t *testing.T) {
	ctl, gw := newController(t)
	ctx := context.Background()
	gw.On("AutoTrade", ctx).Return(types.AutoTradeStatus{Symbols: []string{"BNBUSDC"}}, nil)
	_, err := ctl.Load(ctx)
	require.NoError(t, err)

	st, err := ctl.ToggleSymbol(ctx, "PEPEUSDT")
	require.NoError(t, err)
	assert.Equal(t, []string{"BNBUSDC"}, st.Symbols)
	gw.AssertNotCalled(t, "SetAutoTrade", mock.Anything, mock.Anything)
}

func TestWriteResponseIsAuthoritative(t *testing.T) {
	ctl, gw := newController(t)
	ctx := context.Background()
	gw.On("AutoTrade", ctx).Return(types.AutoTradeStatus{}, nil)
	_, err := ctl.Load(ctx)
	require.NoError(t, err)

	sent := types.AutoTradeStatus{Enabled: false, Symbols: []string{"DOGEUSDC"}}
	// 服务端拒绝了该交易对并自行打开了总开关
	gw.On("SetAutoTrade", ctx, sent).Return(types.AutoTradeStatus{Enabled: true, Symbols: []string{}}, nil)

	st, err := ctl.ToggleSymbol(ctx, "DOGEUSDC")
	require.NoError(t, err)
	assert.True(t, st.Enabled)
	assert.Empty(t, st.Symbols)

	local, _ := ctl.Status()
	assert.Equal(t, st, local)
}

func TestPushFailureKeepsLocal(t *testing.T) {
	ctl, gw := newController(t)
	ctx := context.Background()
	gw.On("AutoTrade", ctx).Return(types.AutoTradeStatus{Enabled: true, Symbols: []string{"SOLUSDC"}}, nil)
	_, err := ctl.Load(ctx)
	require.NoError(t, err)

	gw.On("SetAutoTrade", ctx, mock.Anything).Return(types.AutoTradeStatus{}, errors.New("502"))
	_, err = ctl.ToggleEnabled(ctx)
	require.Error(t, err)

	local, _ := ctl.Status()
	assert.True(t, local.Enabled)
	assert.Equal(t, []string{"SOLUSDC"}, local.Symbols)
}
