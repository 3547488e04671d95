package ledger

import (
	"sort"
	"sync"

	"github.com/venuesync/venuesync/internal/schema"
)

// WalletLedger tracks wallet balances keyed by currency. Only records for the
// configured account mode ever reach it; the normalizer drops the rest.
type WalletLedger struct {
	mu      sync.Mutex
	rows    map[string]schema.WalletRecord
	updates uint64
	first   chan struct{}
}

// NewWalletLedger constructs an empty wallet ledger.
func NewWalletLedger() *WalletLedger {
	ledger := new(WalletLedger)
	ledger.rows = make(map[string]schema.WalletRecord)
	ledger.first = make(chan struct{})
	return ledger
}

// ApplyBatch applies a batch of normalized wallet records, last-writer-wins
// per currency. The update counter increments for every batch, even an empty
// one, so "has a wallet update ever been observed" stays truthful when the
// account-mode filter discards every row.
func (l *WalletLedger) ApplyBatch(records []schema.WalletRecord) {
	l.mu.Lock()
	for _, rec := range records {
		l.rows[rec.Currency] = rec
	}
	l.updates++
	if l.updates == 1 {
		close(l.first)
	}
	l.mu.Unlock()
}

// Query returns all current rows ordered by currency.
func (l *WalletLedger) Query() []schema.WalletRecord {
	l.mu.Lock()
	out := make([]schema.WalletRecord, 0, len(l.rows))
	for _, rec := range l.rows {
		out = append(out, rec)
	}
	l.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out
}

// HasReceivedUpdate reports whether at least one batch has ever been applied.
func (l *WalletLedger) HasReceivedUpdate() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.updates > 0
}

// FirstUpdate returns a channel closed once the first batch is applied.
func (l *WalletLedger) FirstUpdate() <-chan struct{} {
	return l.first
}
