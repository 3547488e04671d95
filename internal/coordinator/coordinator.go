// Package coordinator sequences symbol subscriptions after authentication and
// tracks the adapter's readiness lifecycle.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/venuesync/venuesync/internal/clock"
)

// State enumerates the adapter lifecycle.
type State int32

const (
	// StateCreated is the initial state before the transport is opened.
	StateCreated State = iota
	// StateConnecting means the transport has been opened.
	StateConnecting
	// StateAuthenticated means the venue accepted the auth handshake.
	StateAuthenticated
	// StateReady means the settle delay elapsed and the adapter is usable.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Subscriber performs the venue subscription work for one symbol.
type Subscriber func(ctx context.Context, symbol string) error

// Options carries the coordinator timing knobs.
type Options struct {
	// SettleDelay is the pause between authentication and readiness,
	// letting initial snapshots arrive.
	SettleDelay time.Duration
	// TickerPollInterval spaces the ticker-readiness poll attempts.
	TickerPollInterval time.Duration
	// TickerPollAttempts bounds the ticker-readiness poll.
	TickerPollAttempts int
}

// Coordinator owns the Created → Connecting → Authenticated → Ready state
// machine and the append-only subscription set.
type Coordinator struct {
	mu        sync.Mutex
	state     State
	symbols   []string
	seen      map[string]struct{}
	ready     chan struct{}
	clk       clock.Clock
	opts      Options
	subscribe Subscriber
}

// New constructs a coordinator in the Created state.
func New(clk clock.Clock, opts Options, subscribe Subscriber) *Coordinator {
	c := new(Coordinator)
	c.state = StateCreated
	c.seen = make(map[string]struct{})
	c.ready = make(chan struct{})
	c.clk = clk
	c.opts = opts
	c.subscribe = subscribe
	return c
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// MarkConnecting records that the transport has been opened.
func (c *Coordinator) MarkConnecting() {
	c.mu.Lock()
	if c.state == StateCreated {
		c.state = StateConnecting
	}
	c.mu.Unlock()
}

// HandleAuthenticated reacts to the venue's authentication success signal:
// every previously registered symbol is subscribed in registration order, and
// the settle timer toward Ready is armed. Signals outside the Connecting
// state are ignored; the transport emits exactly one per connection.
func (c *Coordinator) HandleAuthenticated(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.state = StateAuthenticated
	pending := append([]string(nil), c.symbols...)
	c.mu.Unlock()

	for _, symbol := range pending {
		if err := c.subscribe(ctx, symbol); err != nil {
			return fmt.Errorf("subscribe %s: %w", symbol, err)
		}
	}

	c.clk.AfterFunc(c.opts.SettleDelay, c.markReady)
	return nil
}

func (c *Coordinator) markReady() {
	c.mu.Lock()
	if c.state == StateAuthenticated {
		c.state = StateReady
		close(c.ready)
	}
	c.mu.Unlock()
}

// WaitReady blocks until the adapter is Ready or the context ends.
func (c *Coordinator) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait ready: %w", ctx.Err())
	}
}

// Register appends a symbol to the subscription set, subscribing it
// immediately when authentication has already happened. Each symbol is
// subscribed exactly once even under concurrent registration.
func (c *Coordinator) Register(ctx context.Context, symbol string) error {
	c.mu.Lock()
	if _, dup := c.seen[symbol]; dup {
		c.mu.Unlock()
		return nil
	}
	c.seen[symbol] = struct{}{}
	c.symbols = append(c.symbols, symbol)
	authed := c.state >= StateAuthenticated
	c.mu.Unlock()

	if !authed {
		return nil
	}
	if err := c.subscribe(ctx, symbol); err != nil {
		return fmt.Errorf("subscribe %s: %w", symbol, err)
	}
	return nil
}

// Symbols returns the registered symbols in registration order.
func (c *Coordinator) Symbols() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.symbols...)
}

// AwaitTicker polls populated until it reports true or the bounded retry
// budget is exhausted. Exhaustion is not a failure: the ticker may simply be
// illiquid, so the call returns nil either way.
func (c *Coordinator) AwaitTicker(ctx context.Context, populated func() bool) error {
	attempts := c.opts.TickerPollAttempts
	for attempt := 0; attempt < attempts; attempt++ {
		if populated() {
			return nil
		}
		elapsed := make(chan struct{})
		timer := c.clk.AfterFunc(c.opts.TickerPollInterval, func() { close(elapsed) })
		select {
		case <-elapsed:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("await ticker: %w", ctx.Err())
		}
	}
	return nil
}
