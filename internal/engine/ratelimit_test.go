package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/fanout/internal/platform"
)

func TestNewBWLimiter(t *testing.T) {
	t.Parallel()

	t.Run("burst capped to rate when rate < buffer", func(t *testing.T) {
		t.Parallel()
		lim := NewBWLimiter(1024)
		assert.Equal(t, 1024, lim.Burst())
		assert.Equal(t, int64(1024), chunkSize(lim))
	})

	t.Run("burst is one buffer when rate >= buffer", func(t *testing.T) {
		t.Parallel()
		lim := NewBWLimiter(10 << 20)
		assert.Equal(t, platform.BufferSize, lim.Burst())
		assert.Equal(t, int64(platform.BufferSize), chunkSize(lim))
	})

	t.Run("no limiter", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, int64(platform.BufferSize), chunkSize(nil))
		assert.NoError(t, waitN(context.Background(), nil, 1<<30))
	})
}

func TestWaitN(t *testing.T) {
	t.Parallel()

	t.Run("enforces rate", func(t *testing.T) {
		t.Parallel()
		lim := NewBWLimiter(4096)
		start := time.Now()
		for range 3 {
			require.NoError(t, waitN(context.Background(), lim, 4096))
		}
		// First call uses the burst; the next two wait about a second each.
		assert.GreaterOrEqual(t, time.Since(start), 1500*time.Millisecond)
	})

	t.Run("honors cancellation", func(t *testing.T) {
		t.Parallel()
		lim := NewBWLimiter(1)
		require.NoError(t, waitN(context.Background(), lim, 1))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Error(t, waitN(ctx, lim, 1))
	})
}
