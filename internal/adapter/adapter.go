// Package adapter implements the state-reconciliation core: it consumes the
// venue event stream, folds it into the order/wallet/ticker ledgers, and
// exposes the command/query surface downstream trading logic consumes.
package adapter

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/venuesync/venuesync/config"
	"github.com/venuesync/venuesync/errs"
	"github.com/venuesync/venuesync/internal/clock"
	"github.com/venuesync/venuesync/internal/coordinator"
	"github.com/venuesync/venuesync/internal/ledger"
	"github.com/venuesync/venuesync/internal/normalizer"
	"github.com/venuesync/venuesync/internal/observability"
	"github.com/venuesync/venuesync/internal/refresh"
	"github.com/venuesync/venuesync/internal/schema"
	"github.com/venuesync/venuesync/internal/telemetry"
)

// CommandSink is the outbound half of the venue transport.
type CommandSink interface {
	Open(ctx context.Context) error
	Close(ctx context.Context) error
	SubscribeTicker(ctx context.Context, symbol string) error
	RequestCalculation(ctx context.Context, keys []string) error
	SubmitOrder(ctx context.Context, spec schema.OrderSpec) (schema.RawOrder, error)
	CancelOrder(ctx context.Context, id int64) error
}

// Option configures adapter dependencies.
type Option func(*Adapter)

// WithClock overrides the time source, primarily for tests.
func WithClock(clk clock.Clock) Option {
	return func(a *Adapter) {
		if clk != nil {
			a.clk = clk
		}
	}
}

// WithMetrics attaches the telemetry instrument set.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(a *Adapter) {
		a.metrics = metrics
	}
}

// Adapter owns the per-instance reconciliation state. Instances are
// independent: all ledgers live on the struct, never in package state.
type Adapter struct {
	id   uuid.UUID
	cfg  config.Settings
	mode schema.AccountType
	sink CommandSink
	clk  clock.Clock

	norm    *normalizer.Normalizer
	orders  *ledger.OrderLedger
	wallets *ledger.WalletLedger
	tickers *ledger.TickerCache

	coord    *coordinator.Coordinator
	debounce *refresh.Debouncer
	handlers map[schema.EventType]handlerFunc

	metrics *telemetry.Metrics
	cidSeq  atomic.Int64
}

// New constructs an adapter around the given command sink. Symbols listed in
// the configuration are registered up front and subscribed once the venue
// authenticates.
func New(cfg config.Settings, sink CommandSink, opts ...Option) *Adapter {
	a := new(Adapter)
	a.id = uuid.New()
	a.cfg = cfg
	a.mode = schema.AccountType(cfg.Account.Mode())
	a.sink = sink
	a.clk = clock.New()
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	a.norm = normalizer.New(a.mode, cfg.Account.EffectiveLeverage())
	a.orders = ledger.NewOrderLedger()
	a.wallets = ledger.NewWalletLedger()
	a.tickers = ledger.NewTickerCache()

	a.coord = coordinator.New(a.clk, coordinator.Options{
		SettleDelay:        cfg.Timing.SettleDelay,
		TickerPollInterval: cfg.Timing.TickerPollInterval,
		TickerPollAttempts: cfg.Timing.TickerPollAttempts,
	}, a.subscribeSymbol)
	a.debounce = refresh.NewDebouncer(a.clk, cfg.Timing.FundsRefreshDelay, a.emitRecalculation)
	a.handlers = dispatchTable()

	for _, symbol := range cfg.Symbols {
		_ = a.coord.Register(context.Background(), schema.NormalizeSymbol(symbol))
	}
	return a
}

// Initialize opens the transport and blocks until the adapter is Ready: the
// venue has authenticated, registered symbols are subscribed, and the settle
// delay has elapsed.
func (a *Adapter) Initialize(ctx context.Context) error {
	observability.Log().Info("adapter initializing",
		observability.F("adapter_id", a.id.String()),
		observability.F("mode", string(a.mode)),
	)
	// Connecting must be recorded before the transport can deliver the
	// authentication event, or the lifecycle would ignore it.
	a.coord.MarkConnecting()
	if err := a.sink.Open(ctx); err != nil {
		return fmt.Errorf("open transport: %w", err)
	}
	if err := a.coord.WaitReady(ctx); err != nil {
		return err
	}
	observability.Log().Info("adapter ready", observability.F("adapter_id", a.id.String()))
	return nil
}

// AddSymbol registers a symbol for tracking and blocks until its ticker is
// populated or the bounded retry budget is exhausted, whichever comes first.
// Budget exhaustion is not a failure: the ticker may simply be illiquid.
func (a *Adapter) AddSymbol(ctx context.Context, symbol string) error {
	symbol = schema.NormalizeSymbol(symbol)
	if symbol == "" {
		return errs.New(a.cfg.Venue.Name, errs.CodeInvalid, errs.WithMessage("symbol required"))
	}
	if err := a.coord.Register(ctx, symbol); err != nil {
		return err
	}
	return a.coord.AwaitTicker(ctx, func() bool { return a.tickers.Has(symbol) })
}

// Terminate closes the transport and discards all ledgers. Close failures are
// logged and swallowed; the adapter considers itself terminated regardless.
// Outstanding waits are abandoned, not cancelled.
func (a *Adapter) Terminate(ctx context.Context) {
	a.debounce.Stop()
	if err := a.sink.Close(ctx); err != nil {
		observability.Log().Error("transport close failed",
			observability.F("adapter_id", a.id.String()),
			observability.F("error", errs.Termination(a.cfg.Venue.Name, err)),
		)
	}
	a.orders = ledger.NewOrderLedger()
	a.wallets = ledger.NewWalletLedger()
	a.tickers = ledger.NewTickerCache()
	observability.Log().Info("adapter terminated", observability.F("adapter_id", a.id.String()))
}

// State exposes the lifecycle state, primarily for diagnostics.
func (a *Adapter) State() coordinator.State {
	return a.coord.State()
}

// Ticker returns the latest quote for the symbol, failing with a not-found
// error when the symbol never ticked.
func (a *Adapter) Ticker(symbol string) (schema.TickerRecord, error) {
	return a.tickers.Get(schema.NormalizeSymbol(symbol))
}

// WalletBalances returns the current wallet rows. When no wallet update has
// ever been observed, it waits once, up to the configured bound, for the
// first batch before answering.
func (a *Adapter) WalletBalances(ctx context.Context) ([]schema.WalletRecord, error) {
	if !a.wallets.HasReceivedUpdate() {
		elapsed := make(chan struct{})
		timer := a.clk.AfterFunc(a.cfg.Timing.WalletWait, func() { close(elapsed) })
		select {
		case <-a.wallets.FirstUpdate():
			timer.Stop()
		case <-elapsed:
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("wallet balances: %w", ctx.Err())
		}
	}
	return a.wallets.Query(), nil
}

// ActiveOrders returns all tracked orders, optionally filtered by side.
// Unrecognised filter values mean no filter.
func (a *Adapter) ActiveOrders(sideFilter string) []schema.OrderRecord {
	return a.orders.Query(schema.ParseTradeSide(sideFilter))
}

// Order returns the tracked order with the given venue id, if any.
func (a *Adapter) Order(id int64) (schema.OrderRecord, bool) {
	return a.orders.ByID(id)
}

// subscribeSymbol is the coordinator's subscription callback: ticker channel
// always, plus a margin calculation request in margin mode.
func (a *Adapter) subscribeSymbol(ctx context.Context, symbol string) error {
	if err := a.sink.SubscribeTicker(ctx, symbol); err != nil {
		return err
	}
	if a.mode != schema.AccountMargin {
		return nil
	}
	keys := schema.CalculationKeys(a.mode, symbol)
	if len(keys) == 0 {
		return nil
	}
	return a.sink.RequestCalculation(ctx, keys)
}

// emitRecalculation is the debouncer's trailing-edge callback: one
// recalculation command per subscribed symbol, listing both wallet legs.
func (a *Adapter) emitRecalculation() {
	ctx := context.Background()
	for _, symbol := range a.coord.Symbols() {
		keys := schema.CalculationKeys(a.mode, symbol)
		if len(keys) == 0 {
			continue
		}
		if err := a.sink.RequestCalculation(ctx, keys); err != nil {
			observability.Log().Error("recalculation request failed",
				observability.F("symbol", symbol),
				observability.F("error", err),
			)
			continue
		}
		a.metrics.RecalcRequested(ctx)
	}
}
