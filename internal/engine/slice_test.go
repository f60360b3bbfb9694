package engine

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextSlice(t *testing.T) {
	const mib = 1 << 20
	tests := []struct {
		name    string
		cur     int64
		volume  int64
		elapsed time.Duration
		max     int64
		want    int64
	}{
		{"zero elapsed keeps size", mib, mib, 0, 0, mib},
		{"sub-millisecond keeps size", mib, mib, 500 * time.Microsecond, 0, mib},
		{"fast slice doubles", mib, mib, 100 * time.Millisecond, 0, 2 * mib},
		{"very fast slice still only doubles", mib, mib, time.Millisecond, 0, 2 * mib},
		{"slow slice halves", mib, mib, 5 * time.Second, 0, mib / 2},
		{"very slow slice still only halves", mib, mib, time.Hour, 0, mib / 2},
		{"on target keeps size", mib, mib, time.Second, 0, mib},
		{"within factor two keeps size", mib, mib, 600 * time.Millisecond, 0, mib},
		{"max blocks doubling", mib, mib, 10 * time.Millisecond, mib, mib},
		{"one byte never reaches zero", 1, 1, time.Hour, 0, 1},
		{"short final volume halves", mib, 1024, 100 * time.Millisecond, 0, mib / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextSlice(tt.cur, tt.volume, tt.elapsed, time.Second, tt.max)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextSliceDamping(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	cur := DefaultSlice
	for range 10000 {
		volume := 1 + r.Int64N(cur)
		elapsed := time.Duration(r.Int64N(int64(3 * time.Second)))

		next := NextSlice(cur, volume, elapsed, time.Second, DefaultMaxSlice)

		assert.True(t, next == cur || next == 2*cur || next == cur/2,
			"slice moved from %d to %d", cur, next)
		assert.Positive(t, next)
		assert.LessOrEqual(t, next, DefaultMaxSlice)
		cur = next
	}
}
