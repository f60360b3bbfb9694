package engine

import "time"

const (
	// DefaultSlice is the volume of the first slice of every invocation.
	DefaultSlice int64 = 1 << 20
	// DefaultMaxSlice bounds slice growth.
	DefaultMaxSlice int64 = 256 << 20
	// DefaultTargetInterval is the wall time a slice should take.
	DefaultTargetInterval = time.Second
)

// NextSlice returns the slice size to use after a slice of volume bytes
// took elapsed. The size moves toward the volume that would have taken
// target, but only by doubling or halving per step; it never grows past
// max (when max > 0) and never drops to zero. A zero millisecond
// measurement leaves the size unchanged.
func NextSlice(cur, volume int64, elapsed, target time.Duration, max int64) int64 {
	ms := elapsed.Milliseconds()
	if ms <= 0 || cur <= 0 {
		return cur
	}
	ideal := volume * target.Milliseconds() / ms

	switch {
	case ideal > 2*cur:
		if max > 0 && 2*cur > max {
			return cur
		}
		return 2 * cur
	case ideal < cur/2 && cur/2 > 0:
		return cur / 2
	default:
		return cur
	}
}
