package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestNewLimiter_Disabled returns a nil limiter which never blocks.
func TestNewLimiter_Disabled(t *testing.T) {
	lim := NewLimiter(context.Background(), 0)

	require.Nil(t, lim)
	require.NoError(t, lim.Wait(context.Background()))
	require.Equal(t, 0, lim.Limit())
}

// TestLimiter_Wait_ReceivesToken verifies that Wait returns once a token is emitted.
func TestLimiter_Wait_ReceivesToken(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lim := NewLimiter(ctx, 10)

	waitCtx, waitCancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer waitCancel()
	require.NoError(t, lim.Wait(waitCtx))
}

// TestLimiter_Wait_RespectsCallerContext gives up when the caller's context is done.
func TestLimiter_Wait_RespectsCallerContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lim := NewLimiter(ctx, 1)
	// drain the single burst token
	require.NoError(t, lim.Wait(ctx))

	waitCtx, waitCancel := context.WithCancel(ctx)
	waitCancel()
	require.ErrorIs(t, lim.Wait(waitCtx), context.Canceled)
}

// TestLimiter_StopsOnContextCancel verifies that the provider closes the channel on exit.
func TestLimiter_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	lim := NewLimiter(ctx, 100)

	time.Sleep(10 * time.Millisecond)
	cancel()

	require.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-lim.ch:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 5*time.Millisecond)
}
