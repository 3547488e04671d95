// Package refresh coalesces bursts of order-driven "funds may have changed"
// signals into a single delayed recalculation request.
package refresh

import (
	"sync"
	"time"

	"github.com/venuesync/venuesync/internal/clock"
)

// Debouncer restarts a fixed-delay timer on every trigger and invokes the
// emit callback once the window elapses without a new trigger (trailing-edge
// debounce).
type Debouncer struct {
	mu    sync.Mutex
	clk   clock.Clock
	delay time.Duration
	emit  func()
	timer clock.Timer
}

// NewDebouncer constructs a debouncer firing emit after delay of quiet.
func NewDebouncer(clk clock.Clock, delay time.Duration, emit func()) *Debouncer {
	return &Debouncer{
		clk:   clk,
		delay: delay,
		emit:  emit,
		timer: nil,
	}
}

// Trigger notes that funds may have changed, restarting the debounce window.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer == nil {
		d.timer = d.clk.AfterFunc(d.delay, d.emit)
		return
	}
	d.timer.Reset(d.delay)
}

// Stop cancels any pending emission.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
