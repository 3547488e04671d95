package normalizer

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/venuesync/venuesync/internal/schema"
)

func strptr(s string) *string { return &s }

func TestOrderPartialFill(t *testing.T) {
	n := New(schema.AccountExchange, 1)
	raw := schema.RawOrder{
		ID:         91445,
		Symbol:     "tBTCUSD",
		Amount:     "2",
		AmountOrig: "5",
		Type:       "EXCHANGE LIMIT",
		Status:     strptr("PARTIALLY FILLED"),
		Price:      "100.0",
		MTSUpdate:  1700000000000,
	}

	rec := n.Order(raw, time.Unix(0, 0))
	require.Equal(t, schema.TradeSideBuy, rec.Side)
	require.True(t, rec.Amount.Equal(decimal.NewFromInt(5)))
	require.True(t, rec.Remaining.Equal(decimal.NewFromInt(2)))
	require.True(t, rec.Executed.Equal(decimal.NewFromInt(3)))
	require.False(t, rec.IsFilled())
	require.True(t, rec.IsOpen())
	require.Equal(t, time.UnixMilli(1700000000000), rec.LastUpdated)
}

func TestOrderSideFromSignOfOriginalAmount(t *testing.T) {
	n := New(schema.AccountExchange, 1)

	sell := n.Order(schema.RawOrder{ID: 1, AmountOrig: "-3", Amount: "-3"}, time.Now())
	require.Equal(t, schema.TradeSideSell, sell.Side)
	require.True(t, sell.Amount.Equal(decimal.NewFromInt(3)))
	require.True(t, sell.Remaining.Equal(decimal.NewFromInt(3)))
	require.True(t, sell.Executed.IsZero())

	buy := n.Order(schema.RawOrder{ID: 2, AmountOrig: "3", Amount: "0"}, time.Now())
	require.Equal(t, schema.TradeSideBuy, buy.Side)
	require.True(t, buy.IsFilled())
}

func TestOrderAbsentStatusAndTimestamp(t *testing.T) {
	n := New(schema.AccountExchange, 1)
	captured := time.Unix(1234, 0)

	rec := n.Order(schema.RawOrder{ID: 7, AmountOrig: "1", Amount: "1"}, captured)
	require.Empty(t, rec.Status)
	require.False(t, rec.IsCanceled())
	require.False(t, rec.IsExecuted())
	require.True(t, rec.IsOpen())
	require.Equal(t, captured, rec.LastUpdated)
}

func TestWalletBatchFiltersAccountMode(t *testing.T) {
	n := New(schema.AccountMargin, 2)

	records := n.WalletBatch([]schema.RawWalletEntry{
		{Type: "margin", Currency: "BTC", Balance: "1.5", BalanceAvailable: strptr("1.0")},
		{Type: "exchange", Currency: "ETH", Balance: "10"},
		{Type: "margin", Currency: "usd", Balance: "100"},
	})

	require.Len(t, records, 2)
	require.Equal(t, "btc", records[0].Currency)
	require.True(t, records[0].Amount.Equal(decimal.RequireFromString("1.5")))
	require.True(t, records[0].Available.Equal(decimal.NewFromInt(2)))
	// Absent available falls back to amount times the multiplier.
	require.Equal(t, "usd", records[1].Currency)
	require.True(t, records[1].Available.Equal(decimal.NewFromInt(200)))
}

func TestWalletBatchAppliesClampedLeverage(t *testing.T) {
	n := New(schema.AccountMargin, 3.33)

	records := n.WalletBatch([]schema.RawWalletEntry{
		{Type: "margin", Currency: "USD", Balance: "100", BalanceAvailable: strptr("100")},
	})
	require.Len(t, records, 1)
	require.True(t, records[0].Available.Equal(decimal.RequireFromString("333")))
}

func TestTickerKeepsExactText(t *testing.T) {
	n := New(schema.AccountExchange, 1)
	rec := n.Ticker(schema.RawTicker{Symbol: "btcusd", Bid: "100", Ask: "101", LastPrice: "100.5"})
	require.Equal(t, "tBTCUSD", rec.Symbol)
	require.Equal(t, "100", rec.Bid)
	require.Equal(t, "101", rec.Ask)
	require.Equal(t, "100.5", rec.LastPrice)
}

func TestTriggersOnlyForOrderEvents(t *testing.T) {
	n := New(schema.AccountExchange, 1)
	require.Equal(t, []Trigger{TriggerFundsRefresh}, n.Triggers(schema.EventTypeOrderNew))
	require.Equal(t, []Trigger{TriggerFundsRefresh}, n.Triggers(schema.EventTypeOrderUpdate))
	require.Equal(t, []Trigger{TriggerFundsRefresh}, n.Triggers(schema.EventTypeOrderClose))
	require.Nil(t, n.Triggers(schema.EventTypeTicker))
	require.Nil(t, n.Triggers(schema.EventTypeWalletUpdate))
}
