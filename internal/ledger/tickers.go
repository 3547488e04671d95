package ledger

import (
	"sync"

	"github.com/venuesync/venuesync/errs"
	"github.com/venuesync/venuesync/internal/schema"
)

// TickerCache holds the latest quoted prices per symbol, overwritten wholesale
// on every tick.
type TickerCache struct {
	mu   sync.Mutex
	rows map[string]schema.TickerRecord
}

// NewTickerCache constructs an empty ticker cache.
func NewTickerCache() *TickerCache {
	cache := new(TickerCache)
	cache.rows = make(map[string]schema.TickerRecord)
	return cache
}

// ApplyTick replaces the row for the tick's symbol.
func (c *TickerCache) ApplyTick(rec schema.TickerRecord) {
	c.mu.Lock()
	c.rows[rec.Symbol] = rec
	c.mu.Unlock()
}

// Get returns the latest tick for the symbol, or a not-found error when the
// symbol was never ticked.
func (c *TickerCache) Get(symbol string) (schema.TickerRecord, error) {
	c.mu.Lock()
	rec, ok := c.rows[symbol]
	c.mu.Unlock()
	if !ok {
		return schema.TickerRecord{}, errs.NotFound("ledger/ticker", "ticker "+symbol+" not tracked")
	}
	return rec, nil
}

// Has reports whether the symbol has ticked at least once.
func (c *TickerCache) Has(symbol string) bool {
	c.mu.Lock()
	_, ok := c.rows[symbol]
	c.mu.Unlock()
	return ok
}
