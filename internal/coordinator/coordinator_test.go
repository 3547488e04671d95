package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/venuesync/venuesync/internal/clock"
)

func testOptions() Options {
	return Options{
		SettleDelay:        time.Second,
		TickerPollInterval: 2 * time.Millisecond,
		TickerPollAttempts: 3,
	}
}

func TestLifecycleToReady(t *testing.T) {
	clk := clock.NewVirtual(time.Unix(0, 0))
	var subscribed []string
	c := New(clk, testOptions(), func(_ context.Context, symbol string) error {
		subscribed = append(subscribed, symbol)
		return nil
	})

	require.Equal(t, StateCreated, c.State())
	require.NoError(t, c.Register(context.Background(), "tBTCUSD"))
	require.NoError(t, c.Register(context.Background(), "tETHUSD"))
	require.Empty(t, subscribed)

	c.MarkConnecting()
	require.Equal(t, StateConnecting, c.State())

	require.NoError(t, c.HandleAuthenticated(context.Background()))
	require.Equal(t, StateAuthenticated, c.State())
	require.Equal(t, []string{"tBTCUSD", "tETHUSD"}, subscribed)

	clk.Advance(time.Second)
	require.Equal(t, StateReady, c.State())
	require.NoError(t, c.WaitReady(context.Background()))
}

func TestDuplicateAuthenticationIgnored(t *testing.T) {
	clk := clock.NewVirtual(time.Unix(0, 0))
	calls := 0
	c := New(clk, testOptions(), func(context.Context, string) error {
		calls++
		return nil
	})
	require.NoError(t, c.Register(context.Background(), "tBTCUSD"))

	c.MarkConnecting()
	require.NoError(t, c.HandleAuthenticated(context.Background()))
	require.NoError(t, c.HandleAuthenticated(context.Background()))
	require.Equal(t, 1, calls)
}

func TestRegisterAfterAuthenticationSubscribesImmediately(t *testing.T) {
	clk := clock.NewVirtual(time.Unix(0, 0))
	var subscribed []string
	c := New(clk, testOptions(), func(_ context.Context, symbol string) error {
		subscribed = append(subscribed, symbol)
		return nil
	})

	c.MarkConnecting()
	require.NoError(t, c.HandleAuthenticated(context.Background()))

	require.NoError(t, c.Register(context.Background(), "tSOLUSD"))
	require.Equal(t, []string{"tSOLUSD"}, subscribed)
	require.Equal(t, []string{"tSOLUSD"}, c.Symbols())
}

func TestConcurrentRegisterSubscribesOnce(t *testing.T) {
	clk := clock.NewVirtual(time.Unix(0, 0))
	var mu sync.Mutex
	calls := 0
	c := New(clk, testOptions(), func(context.Context, string) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	})
	c.MarkConnecting()
	require.NoError(t, c.HandleAuthenticated(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Register(context.Background(), "tBTCUSD")
		}()
	}
	wg.Wait()

	require.Equal(t, 1, calls)
	require.Equal(t, []string{"tBTCUSD"}, c.Symbols())
}

func TestWaitReadyHonoursContext(t *testing.T) {
	clk := clock.NewVirtual(time.Unix(0, 0))
	c := New(clk, testOptions(), func(context.Context, string) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, c.WaitReady(ctx))
}

func TestAwaitTickerReturnsOncePopulated(t *testing.T) {
	c := New(clock.New(), testOptions(), func(context.Context, string) error { return nil })

	polls := 0
	err := c.AwaitTicker(context.Background(), func() bool {
		polls++
		return polls >= 2
	})
	require.NoError(t, err)
	require.Equal(t, 2, polls)
}

func TestAwaitTickerExhaustionIsNotFailure(t *testing.T) {
	c := New(clock.New(), testOptions(), func(context.Context, string) error { return nil })

	polls := 0
	err := c.AwaitTicker(context.Background(), func() bool {
		polls++
		return false
	})
	require.NoError(t, err)
	require.Equal(t, 3, polls)
}
