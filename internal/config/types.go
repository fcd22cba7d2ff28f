package config

import (
	"strings"
	"time"
)

// Config 是 signaldesk 的主配置载体。
type Config struct {
	App         AppConfig         `toml:"app"`
	Backend     BackendConfig     `toml:"backend"`
	Venue       VenueConfig       `toml:"venue"`
	Polling     PollingConfig     `toml:"polling"`
	Preferences PreferencesConfig `toml:"preferences"`
	Notify      NotifyConfig      `toml:"notify"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// BackendConfig 描述远端信号/下单服务的访问方式。只在启动时读取一次。
type BackendConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	APIToken       string `toml:"api_token"`
}

// Timeout returns the HTTP client timeout.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

const (
	VenueTestnet = "testnet"
	VenueMainnet = "mainnet"
)

type VenueConfig struct {
	Mode          string `toml:"mode"`
	DefaultSymbol string `toml:"default_symbol"`
}

// Testnet reports whether the venue runs against the exchange sandbox.
func (v VenueConfig) Testnet() bool {
	return strings.EqualFold(strings.TrimSpace(v.Mode), VenueTestnet)
}

// PollingConfig holds per-feed cadences in milliseconds.
type PollingConfig struct {
	TickerMS    int `toml:"ticker_ms"`
	SignalMS    int `toml:"signal_ms"`
	BalancesMS  int `toml:"balances_ms"`
	ConfigMS    int `toml:"config_ms"`
	OrdersMS    int `toml:"orders_ms"`
	PortfolioMS int `toml:"portfolio_ms"`
	OrdersLimit int `toml:"orders_limit"`
}

// PreferencesConfig seeds the session preferences.
type PreferencesConfig struct {
	RiskLevel    float64 `toml:"risk_level"`
	MaxExposure  float64 `toml:"max_exposure"`
	PreferMaker  bool    `toml:"prefer_maker"`
	SlippageBps  float64 `toml:"slippage_bps"`
	TimeInForce  string  `toml:"time_in_force"`
	PaperTrading bool    `toml:"paper_trading"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
