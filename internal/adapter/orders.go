package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc"

	"github.com/venuesync/venuesync/errs"
	"github.com/venuesync/venuesync/internal/schema"
)

const (
	orderTypeLimit  = "LIMIT"
	orderTypeMarket = "MARKET"
	orderTypeStop   = "STOP"
)

// PlaceLimitOrder submits a limit order and returns the tracked record.
func (a *Adapter) PlaceLimitOrder(ctx context.Context, symbol string, amount, price decimal.Decimal, side schema.TradeSide, reduceOnly bool) (schema.OrderRecord, error) {
	return a.submit(ctx, orderTypeLimit, symbol, amount, price.String(), side, reduceOnly)
}

// PlaceMarketOrder submits a market order. The venue prices it, so the spec
// carries no price.
func (a *Adapter) PlaceMarketOrder(ctx context.Context, symbol string, amount decimal.Decimal, side schema.TradeSide, reduceOnly bool) (schema.OrderRecord, error) {
	return a.submit(ctx, orderTypeMarket, symbol, amount, "", side, reduceOnly)
}

// PlaceStopOrder submits a stop order triggered at the given price.
func (a *Adapter) PlaceStopOrder(ctx context.Context, symbol string, amount, price decimal.Decimal, side schema.TradeSide, reduceOnly bool) (schema.OrderRecord, error) {
	return a.submit(ctx, orderTypeStop, symbol, amount, price.String(), side, reduceOnly)
}

func (a *Adapter) submit(ctx context.Context, kind, symbol string, amount decimal.Decimal, price string, side schema.TradeSide, reduceOnly bool) (schema.OrderRecord, error) {
	symbol = schema.NormalizeSymbol(symbol)
	if symbol == "" {
		return schema.OrderRecord{}, errs.New(a.cfg.Venue.Name, errs.CodeInvalid, errs.WithMessage("symbol required"))
	}
	if amount.IsZero() {
		return schema.OrderRecord{}, errs.New(a.cfg.Venue.Name, errs.CodeInvalid, errs.WithMessage("amount required"))
	}
	if side != schema.TradeSideBuy && side != schema.TradeSideSell {
		return schema.OrderRecord{}, errs.New(a.cfg.Venue.Name, errs.CodeInvalid, errs.WithMessage("side required"))
	}

	signed := amount.Abs()
	if side == schema.TradeSideSell {
		signed = signed.Neg()
	}
	spec := schema.OrderSpec{
		ClientID:   a.nextClientID(),
		Symbol:     symbol,
		Type:       a.orderType(kind),
		Amount:     signed.String(),
		Price:      price,
		ReduceOnly: reduceOnly,
	}

	raw, err := a.sink.SubmitOrder(ctx, spec)
	if err != nil {
		return schema.OrderRecord{}, fmt.Errorf("submit %s %s: %w", spec.Type, symbol, err)
	}
	a.metrics.OrderSubmitted(ctx, spec.Type)

	// A streamed update for the same id may have landed before the
	// submission response; the streamed record is fresher and wins.
	rec := a.norm.Order(raw, a.clk.Now())
	return a.orders.ApplyUpdate(rec, true), nil
}

// CancelOrders issues one cancel command per order, concurrently, and reports
// every failure. The ledger is not touched: the venue confirms each cancel
// through the event stream.
func (a *Adapter) CancelOrders(ctx context.Context, orders []schema.OrderRecord) error {
	if len(orders) == 0 {
		return nil
	}

	var (
		mu       sync.Mutex
		failures []error
	)
	var wg conc.WaitGroup
	for _, ord := range orders {
		ord := ord
		wg.Go(func() {
			if err := a.sink.CancelOrder(ctx, ord.ID); err != nil {
				mu.Lock()
				failures = append(failures, fmt.Errorf("cancel order %d: %w", ord.ID, err))
				mu.Unlock()
				return
			}
			a.metrics.OrderCanceled(ctx)
		})
	}
	wg.Wait()
	return errors.Join(failures...)
}

// orderType applies the venue's account-mode prefix: margin accounts use the
// bare type, exchange accounts the EXCHANGE-prefixed variant.
func (a *Adapter) orderType(kind string) string {
	if a.mode == schema.AccountMargin {
		return kind
	}
	return "EXCHANGE " + kind
}

// nextClientID derives a client order id unique within this process: epoch
// milliseconds widened by a rolling sequence, fitting the venue's integer cid.
func (a *Adapter) nextClientID() int64 {
	return a.clk.Now().UnixMilli()*1000 + a.cidSeq.Add(1)%1000
}
