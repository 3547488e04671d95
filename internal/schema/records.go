// Package schema defines the canonical record shapes and event kinds the
// reconciliation core operates on.
package schema

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide captures the direction of an order.
type TradeSide string

const (
	// TradeSideBuy indicates a buy order.
	TradeSideBuy TradeSide = "buy"
	// TradeSideSell indicates a sell order.
	TradeSideSell TradeSide = "sell"
)

// ParseTradeSide normalises a caller-supplied side filter. Unrecognised
// values map to the empty side, which ledger queries treat as "no filter".
func ParseTradeSide(value string) TradeSide {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "buy":
		return TradeSideBuy
	case "sell":
		return TradeSideSell
	default:
		return ""
	}
}

// AccountType tags which wallet a balance belongs to.
type AccountType string

const (
	// AccountMargin identifies the margin wallet.
	AccountMargin AccountType = "margin"
	// AccountExchange identifies the exchange (spot) wallet.
	AccountExchange AccountType = "exchange"
)

// OrderRecord is the canonical view of one venue order.
type OrderRecord struct {
	ID          int64
	Symbol      string
	Side        TradeSide
	Amount      decimal.Decimal
	Remaining   decimal.Decimal
	Executed    decimal.Decimal
	Price       string
	Type        string
	Flags       int64
	Status      string
	LastUpdated time.Time
}

// IsFilled reports whether no size remains unfilled.
func (o OrderRecord) IsFilled() bool {
	return o.Remaining.IsZero()
}

// IsCanceled reports whether the venue status marks the order canceled.
// An absent status yields false.
func (o OrderRecord) IsCanceled() bool {
	return strings.Contains(o.Status, "CANCELED")
}

// IsExecuted reports whether the venue status marks the order fully executed.
// An absent status yields false.
func (o OrderRecord) IsExecuted() bool {
	return strings.Contains(o.Status, "EXECUTED")
}

// IsOpen reports whether the order is still working on the venue.
func (o OrderRecord) IsOpen() bool {
	return !o.IsCanceled() && !o.IsExecuted()
}

// WalletRecord is the canonical view of one wallet balance.
type WalletRecord struct {
	Type      AccountType
	Currency  string
	Amount    decimal.Decimal
	Available decimal.Decimal
}

// TickerRecord holds the latest quoted prices for one symbol. Values stay
// exact textual decimals to avoid floating-point drift downstream.
type TickerRecord struct {
	Symbol    string
	Bid       string
	Ask       string
	LastPrice string
}

// NormalizeCurrencyCode lower-cases and trims a venue currency code.
func NormalizeCurrencyCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
