package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestVirtualClockAdvanceFiresDueTimers(t *testing.T) {
	clk := NewVirtual(time.Unix(1000, 0))

	var fired []string
	clk.AfterFunc(50*time.Millisecond, func() { fired = append(fired, "early") })
	clk.AfterFunc(200*time.Millisecond, func() { fired = append(fired, "late") })

	clk.Advance(100 * time.Millisecond)
	require.Equal(t, []string{"early"}, fired)
	require.Equal(t, 1, clk.Pending())

	clk.Advance(100 * time.Millisecond)
	require.Equal(t, []string{"early", "late"}, fired)
	require.Equal(t, 0, clk.Pending())
}

func TestVirtualTimerResetPushesDeadline(t *testing.T) {
	clk := NewVirtual(time.Unix(0, 0))

	fires := 0
	timer := clk.AfterFunc(100*time.Millisecond, func() { fires++ })

	clk.Advance(60 * time.Millisecond)
	require.True(t, timer.Reset(100*time.Millisecond))

	clk.Advance(60 * time.Millisecond)
	require.Zero(t, fires)

	clk.Advance(40 * time.Millisecond)
	require.Equal(t, 1, fires)
}

func TestVirtualTimerStop(t *testing.T) {
	clk := NewVirtual(time.Unix(0, 0))

	fired := false
	timer := clk.AfterFunc(10*time.Millisecond, func() { fired = true })
	require.True(t, timer.Stop())
	require.False(t, timer.Stop())

	clk.Advance(time.Second)
	require.False(t, fired)
}

func TestVirtualTimerRearmFromCallback(t *testing.T) {
	clk := NewVirtual(time.Unix(0, 0))

	fires := 0
	var timer Timer
	timer = clk.AfterFunc(10*time.Millisecond, func() {
		fires++
		if fires < 3 {
			timer.Reset(10 * time.Millisecond)
		}
	})

	clk.Advance(time.Second)
	require.Equal(t, 3, fires)
}

func TestVirtualClockNowTracksAdvances(t *testing.T) {
	start := time.Unix(500, 0)
	clk := NewVirtual(start)
	clk.Advance(1500 * time.Millisecond)
	require.Equal(t, start.Add(1500*time.Millisecond), clk.Now())

	clk.AdvanceTo(start)
	require.Equal(t, start.Add(1500*time.Millisecond), clk.Now())
}
