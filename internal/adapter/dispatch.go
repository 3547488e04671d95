package adapter

import (
	"context"
	"time"

	"github.com/venuesync/venuesync/errs"
	"github.com/venuesync/venuesync/internal/normalizer"
	"github.com/venuesync/venuesync/internal/observability"
	"github.com/venuesync/venuesync/internal/schema"
)

type handlerFunc func(a *Adapter, ctx context.Context, evt schema.Event)

// dispatchTable maps each event kind to its handler. Adding an event kind
// means adding a row here; there is no fallthrough behavior.
func dispatchTable() map[schema.EventType]handlerFunc {
	return map[schema.EventType]handlerFunc{
		schema.EventTypeTicker:         (*Adapter).handleTicker,
		schema.EventTypeWalletSnapshot: (*Adapter).handleWalletBatch,
		schema.EventTypeWalletUpdate:   (*Adapter).handleWalletBatch,
		schema.EventTypeOrderSnapshot:  (*Adapter).handleOrderSnapshot,
		schema.EventTypeOrderNew:       (*Adapter).handleOrderUpdate,
		schema.EventTypeOrderUpdate:    (*Adapter).handleOrderUpdate,
		schema.EventTypeOrderClose:     (*Adapter).handleOrderUpdate,
		schema.EventTypeAuthenticated:  (*Adapter).handleAuthenticated,
		schema.EventTypeError:          (*Adapter).handleError,
		schema.EventTypeClosed:         (*Adapter).handleClosed,
	}
}

// Intake consumes one event from the event source. The transport calls it
// from its single read pump, so handlers run serialized; the ledgers still
// lock because the query surface is concurrent.
func (a *Adapter) Intake(ctx context.Context, evt schema.Event) {
	a.metrics.EventIngested(ctx, string(evt.Type))
	handler, ok := a.handlers[evt.Type]
	if !ok {
		observability.Log().Debug("unhandled event kind", observability.F("kind", string(evt.Type)))
		return
	}
	handler(a, ctx, evt)

	for _, trigger := range a.norm.Triggers(evt.Type) {
		if trigger == normalizer.TriggerFundsRefresh {
			a.metrics.DebounceTriggered(ctx)
			a.debounce.Trigger()
		}
	}
}

func (a *Adapter) receivedAt(evt schema.Event) time.Time {
	if evt.ReceivedAt.IsZero() {
		return a.clk.Now()
	}
	return evt.ReceivedAt
}

func (a *Adapter) handleTicker(_ context.Context, evt schema.Event) {
	if evt.Ticker == nil {
		return
	}
	a.tickers.ApplyTick(a.norm.Ticker(*evt.Ticker))
}

func (a *Adapter) handleWalletBatch(_ context.Context, evt schema.Event) {
	a.wallets.ApplyBatch(a.norm.WalletBatch(evt.WalletEntries))
}

func (a *Adapter) handleOrderSnapshot(_ context.Context, evt schema.Event) {
	at := a.receivedAt(evt)
	records := make([]schema.OrderRecord, 0, len(evt.Orders))
	for _, raw := range evt.Orders {
		records = append(records, a.norm.Order(raw, at))
	}
	a.orders.ApplySnapshot(records)
}

func (a *Adapter) handleOrderUpdate(_ context.Context, evt schema.Event) {
	at := a.receivedAt(evt)
	for _, raw := range evt.Orders {
		a.orders.ApplyUpdate(a.norm.Order(raw, at), false)
	}
}

func (a *Adapter) handleAuthenticated(ctx context.Context, _ schema.Event) {
	if err := a.coord.HandleAuthenticated(ctx); err != nil {
		observability.Log().Error("post-authentication subscription failed",
			observability.F("error", err),
		)
	}
}

func (a *Adapter) handleError(_ context.Context, evt schema.Event) {
	observability.Log().Error("event source error",
		observability.F("error", errs.Transport(a.cfg.Venue.Name, evt.Err)),
	)
}

func (a *Adapter) handleClosed(_ context.Context, _ schema.Event) {
	observability.Log().Info("event source closed")
}
