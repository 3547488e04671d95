// Package normalizer is the translation boundary between raw venue payloads
// and the canonical records the ledgers hold. All raw-shape assumptions live
// here.
package normalizer

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/venuesync/venuesync/internal/schema"
)

// Trigger names a side effect a normalized event asks the core to perform.
type Trigger string

const (
	// TriggerFundsRefresh signals wallet balances may be stale and a
	// recalculation should be scheduled.
	TriggerFundsRefresh Trigger = "funds_refresh"
)

// Normalizer converts raw venue payloads into canonical records. It is a pure
// function of its inputs except for the configured account mode and leverage
// multiplier.
type Normalizer struct {
	mode     schema.AccountType
	leverage decimal.Decimal
}

// New constructs a normalizer for the given account mode and effective
// leverage multiplier.
func New(mode schema.AccountType, leverage float64) *Normalizer {
	return &Normalizer{
		mode:     mode,
		leverage: decimal.NewFromFloat(leverage),
	}
}

// Mode returns the configured account mode.
func (n *Normalizer) Mode() schema.AccountType {
	return n.mode
}

// Order normalizes one raw order. receivedAt supplies the local capture time
// used when the venue omits the update timestamp.
func (n *Normalizer) Order(raw schema.RawOrder, receivedAt time.Time) schema.OrderRecord {
	orig := parseDecimal(raw.AmountOrig)
	remaining := parseDecimal(raw.Amount).Abs()

	side := schema.TradeSideBuy
	if orig.IsNegative() {
		side = schema.TradeSideSell
	}
	amount := orig.Abs()

	executed := amount.Sub(remaining)
	if executed.IsNegative() {
		executed = decimal.Zero
	}

	status := ""
	if raw.Status != nil {
		status = *raw.Status
	}

	updated := receivedAt
	if raw.MTSUpdate > 0 {
		updated = time.UnixMilli(raw.MTSUpdate)
	}

	return schema.OrderRecord{
		ID:          raw.ID,
		Symbol:      schema.NormalizeSymbol(raw.Symbol),
		Side:        side,
		Amount:      amount,
		Remaining:   remaining,
		Executed:    executed,
		Price:       raw.Price,
		Type:        raw.Type,
		Flags:       raw.Flags,
		Status:      status,
		LastUpdated: updated,
	}
}

// WalletBatch normalizes a batch of wallet entries, dropping rows whose
// account-type tag does not match the configured mode. Each surviving entry
// is independent; the result may be empty.
func (n *Normalizer) WalletBatch(entries []schema.RawWalletEntry) []schema.WalletRecord {
	out := make([]schema.WalletRecord, 0, len(entries))
	for _, entry := range entries {
		if schema.AccountType(entry.Type) != n.mode {
			continue
		}
		amount := parseDecimal(entry.Balance)
		available := amount
		if entry.BalanceAvailable != nil {
			available = parseDecimal(*entry.BalanceAvailable)
		}
		out = append(out, schema.WalletRecord{
			Type:      n.mode,
			Currency:  schema.NormalizeCurrencyCode(entry.Currency),
			Amount:    amount,
			Available: available.Mul(n.leverage),
		})
	}
	return out
}

// Ticker normalizes one raw ticker tick. Prices stay the exact text the venue
// sent.
func (n *Normalizer) Ticker(raw schema.RawTicker) schema.TickerRecord {
	return schema.TickerRecord{
		Symbol:    schema.NormalizeSymbol(raw.Symbol),
		Bid:       raw.Bid,
		Ask:       raw.Ask,
		LastPrice: raw.LastPrice,
	}
}

// Triggers lists the side effects an event of the given kind implies.
func (n *Normalizer) Triggers(kind schema.EventType) []Trigger {
	switch kind {
	case schema.EventTypeOrderNew, schema.EventTypeOrderUpdate, schema.EventTypeOrderClose:
		return []Trigger{TriggerFundsRefresh}
	default:
		return nil
	}
}

func parseDecimal(raw string) decimal.Decimal {
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return value
}
