package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"signaldesk/internal/types"
)

// Ticker calls GET /tick.
func (c *Client) Ticker(ctx context.Context, symbol string) (types.Ticker, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	q := url.Values{"symbol": {symbol}}
	raw, err := c.doRaw(ctx, http.MethodGet, "/tick?"+q.Encode(), nil)
	if err != nil {
		return types.Ticker{}, err
	}
	return decodeTicker(raw, symbol)
}

// Signal calls GET /signal keyed by symbol, risk level and exposure cap.
func (c *Client) Signal(ctx context.Context, symbol string, riskLevel, maxExposure float64) (types.Signal, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	q := url.Values{
		"symbol":         {symbol},
		"riskLevel":      {strconv.FormatFloat(types.Clamp01(riskLevel), 'f', -1, 64)},
		"maxExposureUsd": {strconv.FormatFloat(maxExposure, 'f', -1, 64)},
	}
	raw, err := c.doRaw(ctx, http.MethodGet, "/signal?"+q.Encode(), nil)
	if err != nil {
		return types.Signal{}, err
	}
	if err := c.signals.Validate(raw); err != nil {
		return types.Signal{}, err
	}
	root, err := parseJSON(raw, "signal")
	if err != nil {
		return types.Signal{}, err
	}
	return decodeSignal(root, symbol), nil
}

// Balances calls GET /balances.
func (c *Client) Balances(ctx context.Context) ([]types.Balance, error) {
	raw, err := c.doRaw(ctx, http.MethodGet, "/balances", nil)
	if err != nil {
		return nil, err
	}
	return decodeBalances(raw)
}

// Portfolio calls GET /portfolio.
func (c *Client) Portfolio(ctx context.Context) (types.Portfolio, error) {
	raw, err := c.doRaw(ctx, http.MethodGet, "/portfolio", nil)
	if err != nil {
		return types.Portfolio{}, err
	}
	return decodePortfolio(raw)
}
