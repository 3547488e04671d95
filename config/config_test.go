package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEffectiveLeverageClampsToVenueCap(t *testing.T) {
	acct := AccountSettings{MarginMode: true, MaxLeverage: 5}
	require.InDelta(t, MaxLeverageCap, acct.EffectiveLeverage(), 1e-9)

	acct.MaxLeverage = 2.5
	require.InDelta(t, 2.5, acct.EffectiveLeverage(), 1e-9)
}

func TestEffectiveLeverageForcedToOneOutsideMargin(t *testing.T) {
	acct := AccountSettings{MarginMode: false, MaxLeverage: 5}
	require.InDelta(t, 1, acct.EffectiveLeverage(), 1e-9)
	require.Equal(t, "exchange", acct.Mode())
}

func TestEffectiveLeverageDefaultsWhenUnset(t *testing.T) {
	acct := AccountSettings{MarginMode: true, MaxLeverage: 0}
	require.InDelta(t, 1, acct.EffectiveLeverage(), 1e-9)
	require.Equal(t, "margin", acct.Mode())
}

func TestApplyDoesNotMutateBase(t *testing.T) {
	base := Default()
	derived := Apply(base,
		WithMarginMode(true),
		WithMaxLeverage(3),
		WithSymbols("tBTCUSD", "tETHUSD"),
	)

	require.False(t, base.Account.MarginMode)
	require.Empty(t, base.Symbols)
	require.True(t, derived.Account.MarginMode)
	require.Equal(t, []string{"tBTCUSD", "tETHUSD"}, derived.Symbols)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("VENUESYNC_WS_URL", "wss://example.test/ws/2")
	t.Setenv("VENUESYNC_MARGIN", "true")
	t.Setenv("VENUESYNC_MAX_LEVERAGE", "2.0")
	t.Setenv("VENUESYNC_SYMBOLS", "tBTCUSD, tETHUSD ,")

	cfg := FromEnv()
	require.Equal(t, "wss://example.test/ws/2", cfg.Venue.WSURL)
	require.True(t, cfg.Account.MarginMode)
	require.InDelta(t, 2.0, cfg.Account.MaxLeverage, 1e-9)
	require.Equal(t, []string{"tBTCUSD", "tETHUSD"}, cfg.Symbols)
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "venuesync.yaml")
	body := []byte(`
venue:
  ws_url: wss://file.test/ws/2
  api_key: key-from-file
account:
  margin_mode: true
  max_leverage: 2.2
timing:
  funds_refresh_delay: 50ms
  ticker_poll_attempts: 4
symbols:
  - tBTCUSD
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := LoadFile(Default(), path)
	require.NoError(t, err)
	require.Equal(t, "wss://file.test/ws/2", cfg.Venue.WSURL)
	require.Equal(t, "key-from-file", cfg.Venue.Credentials.APIKey)
	require.True(t, cfg.Account.MarginMode)
	require.InDelta(t, 2.2, cfg.Account.MaxLeverage, 1e-9)
	require.Equal(t, 50*time.Millisecond, cfg.Timing.FundsRefreshDelay)
	require.Equal(t, DefaultSettleDelay, cfg.Timing.SettleDelay)
	require.Equal(t, 4, cfg.Timing.TickerPollAttempts)
	require.Equal(t, []string{"tBTCUSD"}, cfg.Symbols)
}

func TestLoadFileRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "venuesync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timing:\n  settle_delay: soon\n"), 0o600))

	_, err := LoadFile(Default(), path)
	require.Error(t, err)
}
