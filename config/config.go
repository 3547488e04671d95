// Package config centralises runtime configuration for the adapter.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// MaxLeverageCap is the highest leverage multiplier the venue permits.
const MaxLeverageCap = 3.33

// Default timing constants for the reconciliation core.
const (
	// DefaultFundsRefreshDelay is the trailing-edge debounce window for
	// order-driven balance recalculations.
	DefaultFundsRefreshDelay = 100 * time.Millisecond
	// DefaultSettleDelay is how long the adapter waits after authentication
	// before declaring itself ready, letting initial snapshots arrive.
	DefaultSettleDelay = 1000 * time.Millisecond
	// DefaultWalletWait bounds the one-off wait for a first wallet update.
	DefaultWalletWait = 300 * time.Millisecond
	// DefaultTickerPollInterval spaces the ticker-readiness poll attempts.
	DefaultTickerPollInterval = 300 * time.Millisecond
	// DefaultTickerPollAttempts bounds the ticker-readiness poll.
	DefaultTickerPollAttempts = 10
)

// Credentials captures API credentials used for the authentication handshake.
type Credentials struct {
	APIKey    string
	APISecret string
}

// VenueSettings configures the venue streaming endpoint.
type VenueSettings struct {
	Name             string
	WSURL            string
	Credentials      Credentials
	HandshakeTimeout time.Duration
}

// AccountSettings selects the account mode and leverage multiplier.
type AccountSettings struct {
	MarginMode  bool
	MaxLeverage float64
}

// EffectiveLeverage returns the leverage multiplier applied to available
// balances: 1 outside margin mode, otherwise the configured value clamped
// to the venue cap.
func (a AccountSettings) EffectiveLeverage() float64 {
	if !a.MarginMode {
		return 1
	}
	lev := a.MaxLeverage
	if lev <= 0 {
		return 1
	}
	if lev > MaxLeverageCap {
		return MaxLeverageCap
	}
	return lev
}

// Mode returns the account-type tag wallet rows must carry to be retained.
func (a AccountSettings) Mode() string {
	if a.MarginMode {
		return "margin"
	}
	return "exchange"
}

// TimingSettings exposes the core's timing constants so tests can shrink them.
type TimingSettings struct {
	FundsRefreshDelay  time.Duration
	SettleDelay        time.Duration
	WalletWait         time.Duration
	TickerPollInterval time.Duration
	TickerPollAttempts int
}

// Settings contains the adapter configuration tree.
type Settings struct {
	Venue   VenueSettings
	Account AccountSettings
	Timing  TimingSettings
	Symbols []string
}

// Default returns the default adapter configuration.
func Default() Settings {
	return Settings{
		Venue: VenueSettings{
			Name:             "bitfinex",
			WSURL:            "wss://api.bitfinex.com/ws/2",
			Credentials:      Credentials{APIKey: "", APISecret: ""},
			HandshakeTimeout: 10 * time.Second,
		},
		Account: AccountSettings{
			MarginMode:  false,
			MaxLeverage: 1,
		},
		Timing: TimingSettings{
			FundsRefreshDelay:  DefaultFundsRefreshDelay,
			SettleDelay:        DefaultSettleDelay,
			WalletWait:         DefaultWalletWait,
			TickerPollInterval: DefaultTickerPollInterval,
			TickerPollAttempts: DefaultTickerPollAttempts,
		},
		Symbols: nil,
	}
}

// FromEnv loads configuration values from environment variables, overriding defaults.
func FromEnv() Settings {
	cfg := Default()
	if v := strings.TrimSpace(os.Getenv("VENUESYNC_WS_URL")); v != "" {
		cfg.Venue.WSURL = v
	}
	if v := strings.TrimSpace(os.Getenv("VENUESYNC_API_KEY")); v != "" {
		cfg.Venue.Credentials.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("VENUESYNC_API_SECRET")); v != "" {
		cfg.Venue.Credentials.APISecret = v
	}
	if v := strings.TrimSpace(os.Getenv("VENUESYNC_HANDSHAKE_TIMEOUT")); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			cfg.Venue.HandshakeTimeout = dur
		}
	}
	if v := strings.TrimSpace(os.Getenv("VENUESYNC_MARGIN")); v != "" {
		if margin, err := strconv.ParseBool(v); err == nil {
			cfg.Account.MarginMode = margin
		}
	}
	if v := strings.TrimSpace(os.Getenv("VENUESYNC_MAX_LEVERAGE")); v != "" {
		if lev, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Account.MaxLeverage = lev
		}
	}
	if v := strings.TrimSpace(os.Getenv("VENUESYNC_SYMBOLS")); v != "" {
		cfg.Symbols = splitSymbols(v)
	}
	return cfg
}

// Option mutates Settings when applied via Apply.
type Option func(*Settings)

// Apply applies the provided Option set to a copy of the base Settings.
func Apply(base Settings, opts ...Option) Settings {
	cfg := base.clone()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithMarginMode toggles the margin account mode.
func WithMarginMode(margin bool) Option {
	return func(s *Settings) {
		s.Account.MarginMode = margin
	}
}

// WithMaxLeverage sets the leverage multiplier; clamping happens on read.
func WithMaxLeverage(leverage float64) Option {
	return func(s *Settings) {
		s.Account.MaxLeverage = leverage
	}
}

// WithCredentials overrides the venue API credentials.
func WithCredentials(key, secret string) Option {
	key = strings.TrimSpace(key)
	secret = strings.TrimSpace(secret)
	return func(s *Settings) {
		if key != "" {
			s.Venue.Credentials.APIKey = key
		}
		if secret != "" {
			s.Venue.Credentials.APISecret = secret
		}
	}
}

// WithWSURL overrides the venue websocket endpoint.
func WithWSURL(url string) Option {
	url = strings.TrimSpace(url)
	return func(s *Settings) {
		if url != "" {
			s.Venue.WSURL = url
		}
	}
}

// WithSymbols replaces the initially tracked symbol list.
func WithSymbols(symbols ...string) Option {
	return func(s *Settings) {
		s.Symbols = append([]string(nil), symbols...)
	}
}

// WithTiming overrides the timing constants wholesale.
func WithTiming(timing TimingSettings) Option {
	return func(s *Settings) {
		if timing.FundsRefreshDelay > 0 {
			s.Timing.FundsRefreshDelay = timing.FundsRefreshDelay
		}
		if timing.SettleDelay > 0 {
			s.Timing.SettleDelay = timing.SettleDelay
		}
		if timing.WalletWait > 0 {
			s.Timing.WalletWait = timing.WalletWait
		}
		if timing.TickerPollInterval > 0 {
			s.Timing.TickerPollInterval = timing.TickerPollInterval
		}
		if timing.TickerPollAttempts > 0 {
			s.Timing.TickerPollAttempts = timing.TickerPollAttempts
		}
	}
}

func (s Settings) clone() Settings {
	out := s
	out.Symbols = append([]string(nil), s.Symbols...)
	return out
}

func splitSymbols(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
