package engine

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/bamsammich/fanout/internal/platform"
)

// NewBWLimiter creates a rate.Limiter that caps aggregate write throughput
// across all destinations to bytesPerSec. The burst is one copy buffer, or
// the whole rate when that is smaller.
func NewBWLimiter(bytesPerSec int64) *rate.Limiter {
	burst := platform.BufferSize
	if bytesPerSec < int64(burst) {
		burst = int(bytesPerSec)
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

// chunkSize returns the largest block that may be moved in one limiter
// reservation.
func chunkSize(lim *rate.Limiter) int64 {
	if lim == nil {
		return platform.BufferSize
	}
	return int64(max(1, min(platform.BufferSize, lim.Burst())))
}

// waitN blocks until lim admits n bytes. A nil limiter admits everything.
func waitN(ctx context.Context, lim *rate.Limiter, n int64) error {
	if lim == nil {
		return nil
	}
	return lim.WaitN(ctx, int(n))
}
