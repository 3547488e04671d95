package schema

import "time"

// EventType enumerates the discrete events the abstract event source emits.
type EventType string

const (
	// EventTypeTicker carries the latest quote for one symbol.
	EventTypeTicker EventType = "ticker"
	// EventTypeWalletSnapshot carries the full set of wallet balances.
	EventTypeWalletSnapshot EventType = "wallet_snapshot"
	// EventTypeWalletUpdate carries one incremental wallet balance.
	EventTypeWalletUpdate EventType = "wallet_update"
	// EventTypeOrderSnapshot carries the full set of open orders.
	EventTypeOrderSnapshot EventType = "order_snapshot"
	// EventTypeOrderNew signals an order accepted by the venue.
	EventTypeOrderNew EventType = "order_new"
	// EventTypeOrderUpdate signals a state change on a working order.
	EventTypeOrderUpdate EventType = "order_update"
	// EventTypeOrderClose signals an order leaving the book.
	EventTypeOrderClose EventType = "order_close"
	// EventTypeAuthenticated signals a successful authentication handshake.
	// Exactly one per connection lifecycle.
	EventTypeAuthenticated EventType = "authenticated"
	// EventTypeError surfaces an asynchronous transport failure.
	EventTypeError EventType = "error"
	// EventTypeClosed signals the event source shut down.
	EventTypeClosed EventType = "closed"
)

// Event is one discrete message pushed by the abstract event source. Exactly
// one payload field is populated, matching the event type.
type Event struct {
	Type          EventType
	Ticker        *RawTicker
	WalletEntries []RawWalletEntry
	Orders        []RawOrder
	Err           error
	ReceivedAt    time.Time
}

// RawTicker is the pre-canonical ticker payload shape.
type RawTicker struct {
	Symbol    string
	Bid       string
	Ask       string
	LastPrice string
}

// RawWalletEntry is the pre-canonical wallet balance shape. BalanceAvailable
// is nil when the venue has not computed it yet.
type RawWalletEntry struct {
	Type             string
	Currency         string
	Balance          string
	BalanceAvailable *string
}

// RawOrder is the pre-canonical order shape. Amount carries the remaining
// size, AmountOrig the originally requested size; both are signed, with
// negative values marking sells. Status is nil when the venue omitted it, and
// MTSUpdate is a millisecond epoch or zero when absent.
type RawOrder struct {
	ID         int64
	Symbol     string
	Amount     string
	AmountOrig string
	Type       string
	Status     *string
	Price      string
	Flags      int64
	MTSUpdate  int64
}

// OrderSpec describes an outbound order submission handed to the command sink.
type OrderSpec struct {
	ClientID   int64
	Symbol     string
	Type       string
	Amount     string
	Price      string
	ReduceOnly bool
}
