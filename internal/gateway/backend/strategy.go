package backend

import (
	"context"
	"fmt"
	"net/http"

	"signaldesk/internal/types"
)

// StrategyConfig calls GET /config.
func (c *Client) StrategyConfig(ctx context.Context) (types.StrategyConfig, error) {
	var cfg types.StrategyConfig
	if err := c.doRequest(ctx, http.MethodGet, "/config", nil, &cfg); err != nil {
		return types.StrategyConfig{}, err
	}
	return cfg, nil
}

// PatchStrategyConfig POSTs a partial patch and returns the server's full copy.
func (c *Client) PatchStrategyConfig(ctx context.Context, patch types.StrategyPatch) (types.StrategyConfig, error) {
	if patch.IsEmpty() {
		return types.StrategyConfig{}, fmt.Errorf("config patch is empty")
	}
	var cfg types.StrategyConfig
	if err := c.doRequest(ctx, http.MethodPost, "/config", patch, &cfg); err != nil {
		return types.StrategyConfig{}, err
	}
	return cfg, nil
}
