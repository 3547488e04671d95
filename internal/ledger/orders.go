// Package ledger holds the in-memory tables representing current venue truth:
// orders, wallet balances, and tickers. Each table is last-writer-wins per key.
package ledger

import (
	"sort"
	"sync"

	"github.com/venuesync/venuesync/internal/schema"
)

// OrderLedger tracks the current set of venue orders keyed by order id.
type OrderLedger struct {
	mu     sync.Mutex
	orders map[int64]schema.OrderRecord
}

// NewOrderLedger constructs an empty order ledger.
func NewOrderLedger() *OrderLedger {
	ledger := new(OrderLedger)
	ledger.orders = make(map[int64]schema.OrderRecord)
	return ledger
}

// ApplySnapshot wholesale-replaces the table with the provided set. Used on
// the initial order snapshot only.
func (l *OrderLedger) ApplySnapshot(records []schema.OrderRecord) {
	next := make(map[int64]schema.OrderRecord, len(records))
	for _, rec := range records {
		next[rec.ID] = rec
	}
	l.mu.Lock()
	l.orders = next
	l.mu.Unlock()
}

// ApplyUpdate upserts one record. When keepExisting is set and a record with
// the same id is already present, the existing record wins and is returned
// unchanged; this reconciles a just-submitted order against a streamed update
// that arrived first. Otherwise the new record fully replaces any prior one.
func (l *OrderLedger) ApplyUpdate(rec schema.OrderRecord, keepExisting bool) schema.OrderRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.orders[rec.ID]; ok && keepExisting {
		return existing
	}
	l.orders[rec.ID] = rec
	return rec
}

// Query returns all current records, optionally filtered by side. The empty
// side means no filter. Results are ordered by order id for determinism.
func (l *OrderLedger) Query(side schema.TradeSide) []schema.OrderRecord {
	l.mu.Lock()
	out := make([]schema.OrderRecord, 0, len(l.orders))
	for _, rec := range l.orders {
		if side != "" && rec.Side != side {
			continue
		}
		out = append(out, rec)
	}
	l.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ByID returns the record with the given id, if present.
func (l *OrderLedger) ByID(id int64) (schema.OrderRecord, bool) {
	l.mu.Lock()
	rec, ok := l.orders[id]
	l.mu.Unlock()
	return rec, ok
}

// Len reports how many orders the ledger currently holds.
func (l *OrderLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.orders)
}
