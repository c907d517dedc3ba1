package evictor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestNoOpEvictor does nothing and reports zeros.
func TestNoOpEvictor(t *testing.T) {
	var ev Evictor = NoOpEvictor{}

	require.NoError(t, ev.ForceCall(time.Second))
	scans, hits, items, bytes := ev.Metrics()
	require.Zero(t, scans+hits+items+bytes)
	require.NoError(t, ev.Close())
}
