package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileSettings mirrors Settings with YAML-friendly field types. Durations are
// expressed as Go duration strings.
type fileSettings struct {
	Venue struct {
		Name             string `yaml:"name"`
		WSURL            string `yaml:"ws_url"`
		APIKey           string `yaml:"api_key"`
		APISecret        string `yaml:"api_secret"`
		HandshakeTimeout string `yaml:"handshake_timeout"`
	} `yaml:"venue"`
	Account struct {
		MarginMode  *bool    `yaml:"margin_mode"`
		MaxLeverage *float64 `yaml:"max_leverage"`
	} `yaml:"account"`
	Timing struct {
		FundsRefreshDelay  string `yaml:"funds_refresh_delay"`
		SettleDelay        string `yaml:"settle_delay"`
		WalletWait         string `yaml:"wallet_wait"`
		TickerPollInterval string `yaml:"ticker_poll_interval"`
		TickerPollAttempts int    `yaml:"ticker_poll_attempts"`
	} `yaml:"timing"`
	Symbols []string `yaml:"symbols"`
}

// LoadFile overlays YAML configuration from path onto base.
func LoadFile(base Settings, path string) (Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read config file: %w", err)
	}
	var file fileSettings
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Settings{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := base.clone()
	if file.Venue.Name != "" {
		cfg.Venue.Name = file.Venue.Name
	}
	if file.Venue.WSURL != "" {
		cfg.Venue.WSURL = file.Venue.WSURL
	}
	if file.Venue.APIKey != "" {
		cfg.Venue.Credentials.APIKey = file.Venue.APIKey
	}
	if file.Venue.APISecret != "" {
		cfg.Venue.Credentials.APISecret = file.Venue.APISecret
	}
	if err := overlayDuration(&cfg.Venue.HandshakeTimeout, file.Venue.HandshakeTimeout); err != nil {
		return Settings{}, err
	}
	if file.Account.MarginMode != nil {
		cfg.Account.MarginMode = *file.Account.MarginMode
	}
	if file.Account.MaxLeverage != nil {
		cfg.Account.MaxLeverage = *file.Account.MaxLeverage
	}
	if err := overlayDuration(&cfg.Timing.FundsRefreshDelay, file.Timing.FundsRefreshDelay); err != nil {
		return Settings{}, err
	}
	if err := overlayDuration(&cfg.Timing.SettleDelay, file.Timing.SettleDelay); err != nil {
		return Settings{}, err
	}
	if err := overlayDuration(&cfg.Timing.WalletWait, file.Timing.WalletWait); err != nil {
		return Settings{}, err
	}
	if err := overlayDuration(&cfg.Timing.TickerPollInterval, file.Timing.TickerPollInterval); err != nil {
		return Settings{}, err
	}
	if file.Timing.TickerPollAttempts > 0 {
		cfg.Timing.TickerPollAttempts = file.Timing.TickerPollAttempts
	}
	if len(file.Symbols) > 0 {
		cfg.Symbols = append([]string(nil), file.Symbols...)
	}
	return cfg, nil
}

func overlayDuration(dst *time.Duration, raw string) error {
	if raw == "" {
		return nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	if dur > 0 {
		*dst = dur
	}
	return nil
}
