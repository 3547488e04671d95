package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/venuesync/venuesync/errs"
	"github.com/venuesync/venuesync/internal/schema"
)

func order(id int64, side schema.TradeSide, status string) schema.OrderRecord {
	return schema.OrderRecord{
		ID:          id,
		Symbol:      "tBTCUSD",
		Side:        side,
		Amount:      decimal.NewFromInt(1),
		Remaining:   decimal.NewFromInt(1),
		Status:      status,
		LastUpdated: time.Unix(0, 0),
	}
}

func TestOrderLedgerLastWriterWinsPerID(t *testing.T) {
	l := NewOrderLedger()

	first := order(10, schema.TradeSideBuy, "ACTIVE")
	second := order(10, schema.TradeSideBuy, "PARTIALLY FILLED")
	second.Remaining = decimal.RequireFromString("0.4")

	l.ApplyUpdate(first, false)
	applied := l.ApplyUpdate(second, false)

	require.Equal(t, 1, l.Len())
	require.Equal(t, second.Status, applied.Status)
	got, ok := l.ByID(10)
	require.True(t, ok)
	require.Equal(t, "PARTIALLY FILLED", got.Status)
	require.True(t, got.Remaining.Equal(second.Remaining))
}

func TestOrderLedgerKeepExistingWinsRace(t *testing.T) {
	l := NewOrderLedger()

	streamed := order(77, schema.TradeSideSell, "PARTIALLY FILLED")
	l.ApplyUpdate(streamed, false)

	stale := order(77, schema.TradeSideSell, "ACTIVE")
	returned := l.ApplyUpdate(stale, true)

	require.Equal(t, "PARTIALLY FILLED", returned.Status)
	require.Equal(t, 1, l.Len())

	// Without an existing record the flag has no effect.
	fresh := order(78, schema.TradeSideBuy, "ACTIVE")
	returned = l.ApplyUpdate(fresh, true)
	require.Equal(t, "ACTIVE", returned.Status)
	require.Equal(t, 2, l.Len())
}

func TestOrderLedgerSnapshotReplacesTable(t *testing.T) {
	l := NewOrderLedger()
	l.ApplyUpdate(order(1, schema.TradeSideBuy, "ACTIVE"), false)

	l.ApplySnapshot([]schema.OrderRecord{
		order(2, schema.TradeSideSell, "ACTIVE"),
		order(3, schema.TradeSideBuy, "ACTIVE"),
	})

	_, ok := l.ByID(1)
	require.False(t, ok)
	require.Equal(t, 2, l.Len())
}

func TestOrderLedgerQuerySideFilter(t *testing.T) {
	l := NewOrderLedger()
	l.ApplyUpdate(order(1, schema.TradeSideBuy, "ACTIVE"), false)
	l.ApplyUpdate(order(2, schema.TradeSideSell, "ACTIVE"), false)
	l.ApplyUpdate(order(3, schema.TradeSideBuy, "ACTIVE"), false)

	buys := l.Query(schema.TradeSideBuy)
	require.Len(t, buys, 2)
	require.Equal(t, int64(1), buys[0].ID)
	require.Equal(t, int64(3), buys[1].ID)

	// Unrecognised filters normalize to the empty side upstream: no filter.
	all := l.Query(schema.ParseTradeSide("whatever"))
	require.Len(t, all, 3)
}

func TestWalletLedgerIdempotentPerCurrency(t *testing.T) {
	l := NewWalletLedger()
	rec := schema.WalletRecord{
		Type:      schema.AccountExchange,
		Currency:  "btc",
		Amount:    decimal.NewFromInt(2),
		Available: decimal.NewFromInt(2),
	}

	l.ApplyBatch([]schema.WalletRecord{rec})
	l.ApplyBatch([]schema.WalletRecord{rec})

	rows := l.Query()
	require.Len(t, rows, 1)
	require.True(t, rows[0].Amount.Equal(rec.Amount))
}

func TestWalletLedgerCountsEmptyBatches(t *testing.T) {
	l := NewWalletLedger()
	require.False(t, l.HasReceivedUpdate())

	select {
	case <-l.FirstUpdate():
		t.Fatal("first-update channel closed before any batch")
	default:
	}

	l.ApplyBatch(nil)
	require.True(t, l.HasReceivedUpdate())
	require.Empty(t, l.Query())

	select {
	case <-l.FirstUpdate():
	default:
		t.Fatal("first-update channel still open after a batch")
	}

	// Subsequent batches must not re-close the channel.
	l.ApplyBatch(nil)
}

func TestWalletLedgerLastWriterWins(t *testing.T) {
	l := NewWalletLedger()
	l.ApplyBatch([]schema.WalletRecord{
		{Currency: "usd", Amount: decimal.NewFromInt(100), Available: decimal.NewFromInt(100)},
	})
	l.ApplyBatch([]schema.WalletRecord{
		{Currency: "usd", Amount: decimal.NewFromInt(50), Available: decimal.NewFromInt(50)},
		{Currency: "btc", Amount: decimal.NewFromInt(1), Available: decimal.NewFromInt(1)},
	})

	rows := l.Query()
	require.Len(t, rows, 2)
	require.Equal(t, "btc", rows[0].Currency)
	require.Equal(t, "usd", rows[1].Currency)
	require.True(t, rows[1].Amount.Equal(decimal.NewFromInt(50)))
}

func TestTickerCacheNotFoundUntilTicked(t *testing.T) {
	c := NewTickerCache()

	_, err := c.Get("tBTCUSD")
	require.Error(t, err)
	require.True(t, errs.IsNotFound(err))
	require.False(t, c.Has("tBTCUSD"))

	c.ApplyTick(schema.TickerRecord{Symbol: "tBTCUSD", Bid: "100", Ask: "101", LastPrice: "100.5"})

	rec, err := c.Get("tBTCUSD")
	require.NoError(t, err)
	require.Equal(t, "100", rec.Bid)
	require.Equal(t, "101", rec.Ask)
	require.Equal(t, "100.5", rec.LastPrice)
	require.True(t, c.Has("tBTCUSD"))
}

func TestTickerCacheOverwritesWholesale(t *testing.T) {
	c := NewTickerCache()
	c.ApplyTick(schema.TickerRecord{Symbol: "tETHUSD", Bid: "10", Ask: "11", LastPrice: "10.5"})
	c.ApplyTick(schema.TickerRecord{Symbol: "tETHUSD", Bid: "12", Ask: "13", LastPrice: "12.5"})

	rec, err := c.Get("tETHUSD")
	require.NoError(t, err)
	require.Equal(t, "12", rec.Bid)
	require.Equal(t, "13", rec.Ask)
}
