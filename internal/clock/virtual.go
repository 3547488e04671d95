package clock

import (
	"sync"
	"time"
)

// VirtualClock is an in-memory clock implementation used by deterministic tests.
// Advancing it fires scheduled timers synchronously, in due order.
type VirtualClock struct {
	mu      sync.Mutex
	current time.Time
	nextID  int
	timers  map[int]*virtualTimer
}

type virtualTimer struct {
	clk     *VirtualClock
	id      int
	due     time.Time
	fn      func()
	pending bool
}

// NewVirtual initialises a virtual clock starting at the provided timestamp.
func NewVirtual(start time.Time) *VirtualClock {
	if start.IsZero() {
		start = time.Unix(0, 0)
	}
	return &VirtualClock{current: start, timers: make(map[int]*virtualTimer)}
}

// Now returns the current simulated time.
func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// AfterFunc schedules fn to fire once the clock advances past d.
func (c *VirtualClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	t := &virtualTimer{
		clk:     c,
		id:      c.nextID,
		due:     c.current.Add(d),
		fn:      fn,
		pending: true,
	}
	c.timers[t.id] = t
	return t
}

// Advance moves the clock forward by d, firing every timer whose deadline is
// reached. Callbacks run synchronously on the caller's goroutine and may
// re-arm their timer.
func (c *VirtualClock) Advance(d time.Duration) {
	if d < 0 {
		return
	}
	c.mu.Lock()
	target := c.current.Add(d)
	for {
		next := c.earliestLocked(target)
		if next == nil {
			break
		}
		if next.due.After(c.current) {
			c.current = next.due
		}
		next.pending = false
		fn := next.fn
		c.mu.Unlock()
		fn()
		c.mu.Lock()
	}
	if target.After(c.current) {
		c.current = target
	}
	c.mu.Unlock()
}

// AdvanceTo moves the clock to ts if it is in the future.
func (c *VirtualClock) AdvanceTo(ts time.Time) {
	now := c.Now()
	if ts.After(now) {
		c.Advance(ts.Sub(now))
	}
}

// Pending reports how many timers are armed.
func (c *VirtualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, t := range c.timers {
		if t.pending {
			count++
		}
	}
	return count
}

func (c *VirtualClock) earliestLocked(limit time.Time) *virtualTimer {
	var next *virtualTimer
	for _, t := range c.timers {
		if !t.pending || t.due.After(limit) {
			continue
		}
		if next == nil || t.due.Before(next.due) || (t.due.Equal(next.due) && t.id < next.id) {
			next = t
		}
	}
	return next
}

func (t *virtualTimer) Reset(d time.Duration) bool {
	t.clk.mu.Lock()
	defer t.clk.mu.Unlock()
	wasPending := t.pending
	t.due = t.clk.current.Add(d)
	t.pending = true
	return wasPending
}

func (t *virtualTimer) Stop() bool {
	t.clk.mu.Lock()
	defer t.clk.mu.Unlock()
	wasPending := t.pending
	t.pending = false
	return wasPending
}
