package config

import (
	"fmt"
	"net/url"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Backend.validate(); err != nil {
		return err
	}
	if err := c.Venue.validate(); err != nil {
		return err
	}
	if err := c.Preferences.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (b *BackendConfig) validate() error {
	u, err := url.Parse(b.BaseURL)
	if err != nil {
		return fmt.Errorf("backend.base_url invalid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.base_url must be http(s), got %q", b.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("backend.base_url missing host")
	}
	return nil
}

func (v *VenueConfig) validate() error {
	switch v.Mode {
	case VenueTestnet, VenueMainnet:
	default:
		return fmt.Errorf("venue.mode must be %s or %s, got %q", VenueTestnet, VenueMainnet, v.Mode)
	}
	if v.DefaultSymbol == "" {
		return fmt.Errorf("venue.default_symbol cannot be empty")
	}
	return nil
}

func (p *PreferencesConfig) validate() error {
	if p.RiskLevel < 0 || p.RiskLevel > 1 {
		return fmt.Errorf("preferences.risk_level must be within [0,1]")
	}
	if p.MaxExposure < 0 {
		return fmt.Errorf("preferences.max_exposure must be >= 0")
	}
	if p.SlippageBps < 0 {
		return fmt.Errorf("preferences.slippage_bps must be >= 0")
	}
	switch strings.ToUpper(strings.TrimSpace(p.TimeInForce)) {
	case "GTC", "IOC", "FOK":
	default:
		return fmt.Errorf("preferences.time_in_force must be GTC, IOC or FOK")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if n.Telegram.Enabled {
		if n.Telegram.BotToken == "" || n.Telegram.ChatID == "" {
			return fmt.Errorf("telegram notification enabled but missing bot_token or chat_id")
		}
	}
	return nil
}
