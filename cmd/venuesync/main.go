// Command venuesync runs the venue state-reconciliation adapter: it keeps an
// authenticated websocket session to the venue, folds the event stream into
// in-memory ledgers, and stays up until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/venuesync/venuesync/config"
	"github.com/venuesync/venuesync/internal/adapter"
	"github.com/venuesync/venuesync/internal/observability"
	"github.com/venuesync/venuesync/internal/schema"
	"github.com/venuesync/venuesync/internal/telemetry"
	"github.com/venuesync/venuesync/internal/venues/bitfinex"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "venuesync: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a YAML configuration overlay")
	flag.Parse()

	observability.SetLogger(observability.NewStdLogger())

	cfg := config.FromEnv()
	if *configPath != "" {
		loaded, err := config.LoadFile(cfg, *configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if cfg.Venue.Credentials.APIKey == "" || cfg.Venue.Credentials.APISecret == "" {
		return fmt.Errorf("missing venue credentials: set VENUESYNC_API_KEY and VENUESYNC_API_SECRET")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, shutdownMetrics, err := telemetry.Init(ctx, telemetry.Config{
		OTLPEndpoint: strings.TrimSpace(os.Getenv("VENUESYNC_OTLP_ENDPOINT")),
		ServiceName:  "venuesync",
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	metrics, err := telemetry.NewMetrics(provider.Meter("venuesync"))
	if err != nil {
		return err
	}

	// The transport needs the adapter's intake and the adapter needs the
	// transport as its command sink; the closure breaks the cycle.
	var core *adapter.Adapter
	transport := bitfinex.NewTransport(cfg.Venue, func(ctx context.Context, evt schema.Event) {
		core.Intake(ctx, evt)
	}, bitfinex.WithTransportMetrics(metrics))
	core = adapter.New(cfg, transport, adapter.WithMetrics(metrics))

	if err := core.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize adapter: %w", err)
	}
	observability.Log().Info("venuesync running",
		observability.F("symbols", strings.Join(cfg.Symbols, ",")),
		observability.F("mode", cfg.Account.Mode()),
	)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	core.Terminate(shutdownCtx)
	if err := shutdownMetrics(shutdownCtx); err != nil {
		observability.Log().Error("metrics shutdown failed", observability.F("error", err))
	}
	return nil
}
