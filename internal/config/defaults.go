package config

import "strings"

// 默认值常量
const (
	defaultAppEnv         = "dev"
	defaultAppLogLevel    = "info"
	defaultAppHTTPAddr    = ":9992"
	defaultBackendURL     = "http://localhost:8000"
	defaultBackendTimeout = 10
	defaultVenueMode      = VenueTestnet
	defaultVenueSymbol    = "BTCUSDC"
	defaultTickerMS       = 1500
	defaultSignalMS       = 3000
	defaultBalancesMS     = 5000
	defaultConfigMS       = 15000
	defaultOrdersMS       = 4000
	defaultPortfolioMS    = 10000
	defaultOrdersLimit    = 50
	defaultRiskLevel      = 0.35
	defaultMaxExposure    = 2000
	defaultSlippageBps    = 10
	defaultTimeInForce    = "GTC"
	maxOrdersLimit        = 200
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Backend.applyDefaults(keys)
	c.Venue.applyDefaults(keys)
	c.Polling.applyDefaults(keys)
	c.Preferences.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (b *BackendConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("backend.base_url", &b.BaseURL, defaultBackendURL),
	)
	applyFieldDefaults(nil,
		positiveIntDefault("backend.timeout_seconds", &b.TimeoutSeconds, defaultBackendTimeout),
	)
	b.BaseURL = strings.TrimRight(strings.TrimSpace(b.BaseURL), "/")
}

func (v *VenueConfig) applyDefaults(keys keySet) {
	if v == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("venue.mode", &v.Mode, defaultVenueMode),
		stringFieldDefault("venue.default_symbol", &v.DefaultSymbol, defaultVenueSymbol),
	)
	v.Mode = strings.ToLower(strings.TrimSpace(v.Mode))
	v.DefaultSymbol = strings.ToUpper(strings.TrimSpace(v.DefaultSymbol))
}

func (p *PollingConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	// 轮询间隔即使显式写成 0 也回落到默认值，0 间隔没有意义。
	applyFieldDefaults(nil,
		positiveIntDefault("polling.ticker_ms", &p.TickerMS, defaultTickerMS),
		positiveIntDefault("polling.signal_ms", &p.SignalMS, defaultSignalMS),
		positiveIntDefault("polling.balances_ms", &p.BalancesMS, defaultBalancesMS),
		positiveIntDefault("polling.config_ms", &p.ConfigMS, defaultConfigMS),
		positiveIntDefault("polling.orders_ms", &p.OrdersMS, defaultOrdersMS),
		positiveIntDefault("polling.portfolio_ms", &p.PortfolioMS, defaultPortfolioMS),
		positiveIntDefault("polling.orders_limit", &p.OrdersLimit, defaultOrdersLimit),
	)
	if p.OrdersLimit > maxOrdersLimit {
		p.OrdersLimit = maxOrdersLimit
	}
}

func (p *PreferencesConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "preferences.risk_level",
			need:  func() bool { return p.RiskLevel <= 0 },
			apply: func() { p.RiskLevel = defaultRiskLevel },
		},
		fieldDefault{
			key:   "preferences.max_exposure",
			need:  func() bool { return p.MaxExposure <= 0 },
			apply: func() { p.MaxExposure = defaultMaxExposure },
		},
		fieldDefault{
			key:   "preferences.slippage_bps",
			need:  func() bool { return p.SlippageBps <= 0 },
			apply: func() { p.SlippageBps = defaultSlippageBps },
		},
		boolFieldDefault("preferences.prefer_maker", &p.PreferMaker, true),
		boolFieldDefault("preferences.paper_trading", &p.PaperTrading, true),
		stringFieldDefault("preferences.time_in_force", &p.TimeInForce, defaultTimeInForce),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func positiveIntDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
