package backend

import (
	"context"
	"net/http"

	"signaldesk/internal/types"
)

// AutoTrade calls GET /autotrade.
func (c *Client) AutoTrade(ctx context.Context) (types.AutoTradeStatus, error) {
	var st types.AutoTradeStatus
	if err := c.doRequest(ctx, http.MethodGet, "/autotrade", nil, &st); err != nil {
		return types.AutoTradeStatus{}, err
	}
	return st, nil
}

// SetAutoTrade POSTs the complete {enabled, symbols} object.
func (c *Client) SetAutoTrade(ctx context.Context, st types.AutoTradeStatus) (types.AutoTradeStatus, error) {
	if st.Symbols == nil {
		st.Symbols = []string{}
	}
	var out types.AutoTradeStatus
	if err := c.doRequest(ctx, http.MethodPost, "/autotrade", st, &out); err != nil {
		return types.AutoTradeStatus{}, err
	}
	return out, nil
}
