// Package stats keeps the counters of a copy run.
package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const ringSize = 60

// Collector tracks copy statistics with atomic counters. Counters are
// written by the engine's destination tasks; the rolling window is written
// only by Tick.
type Collector struct {
	filesTotal        atomic.Int64
	bytesTotal        atomic.Int64
	filesCopied       atomic.Int64
	filesFailed       atomic.Int64
	dirsCreated       atomic.Int64
	bytesCopied       atomic.Int64
	bytesWritten      atomic.Int64
	filesVerified     atomic.Int64
	filesVerifyFailed atomic.Int64
	digestsComputed   atomic.Int64
	cacheHits         atomic.Int64
	sliceSize         atomic.Int64
	startTime         time.Time

	mu         sync.Mutex
	throughput [ringSize]int64 // source bytes per tick
	ringIdx    int
	ringCount  int
	lastBytes  int64
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	FilesTotal        int64
	BytesTotal        int64
	FilesCopied       int64
	FilesFailed       int64
	DirsCreated       int64
	BytesCopied       int64 // source bytes transferred, counted once
	BytesWritten      int64 // bytes written summed over destinations
	FilesVerified     int64
	FilesVerifyFailed int64
	DigestsComputed   int64
	CacheHits         int64
	SliceSize         int64
	Elapsed           time.Duration
}

// AddTotals grows the expected totals as jobs are expanded.
func (c *Collector) AddTotals(files, bytes int64) {
	c.filesTotal.Add(files)
	c.bytesTotal.Add(bytes)
}

func (c *Collector) AddFilesCopied(n int64)       { c.filesCopied.Add(n) }
func (c *Collector) AddFilesFailed(n int64)       { c.filesFailed.Add(n) }
func (c *Collector) AddDirsCreated(n int64)       { c.dirsCreated.Add(n) }
func (c *Collector) AddBytesCopied(n int64)       { c.bytesCopied.Add(n) }
func (c *Collector) AddBytesWritten(n int64)      { c.bytesWritten.Add(n) }
func (c *Collector) AddFilesVerified(n int64)     { c.filesVerified.Add(n) }
func (c *Collector) AddFilesVerifyFailed(n int64) { c.filesVerifyFailed.Add(n) }
func (c *Collector) AddDigestsComputed(n int64)   { c.digestsComputed.Add(n) }
func (c *Collector) AddCacheHits(n int64)         { c.cacheHits.Add(n) }

// SetSliceSize records the slice volume the engine currently plans with.
func (c *Collector) SetSliceSize(n int64) { c.sliceSize.Store(n) }

// Snapshot returns a point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		FilesTotal:        c.filesTotal.Load(),
		BytesTotal:        c.bytesTotal.Load(),
		FilesCopied:       c.filesCopied.Load(),
		FilesFailed:       c.filesFailed.Load(),
		DirsCreated:       c.dirsCreated.Load(),
		BytesCopied:       c.bytesCopied.Load(),
		BytesWritten:      c.bytesWritten.Load(),
		FilesVerified:     c.filesVerified.Load(),
		FilesVerifyFailed: c.filesVerifyFailed.Load(),
		DigestsComputed:   c.digestsComputed.Load(),
		CacheHits:         c.cacheHits.Load(),
		SliceSize:         c.sliceSize.Load(),
		Elapsed:           c.Elapsed(),
	}
}

// Tick records the bytes copied since the previous tick. The presenter
// calls it once per second.
func (c *Collector) Tick() {
	current := c.bytesCopied.Load()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.throughput[c.ringIdx] = current - c.lastBytes
	c.lastBytes = current
	c.ringIdx = (c.ringIdx + 1) % ringSize
	if c.ringCount < ringSize {
		c.ringCount++
	}
}

// RollingSpeed returns average bytes/sec over the last n ticks.
func (c *Collector) RollingSpeed(n int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := min(n, c.ringCount)
	if count <= 0 {
		return 0
	}
	var sum int64
	for i := range count {
		sum += c.throughput[(c.ringIdx-1-i+ringSize)%ringSize]
	}
	return float64(sum) / float64(count)
}

// ETA estimates remaining time from the rolling speed.
func (c *Collector) ETA() time.Duration {
	speed := c.RollingSpeed(10)
	if speed <= 0 {
		return 0
	}
	remaining := c.bytesTotal.Load() - c.bytesCopied.Load()
	if remaining <= 0 {
		return 0
	}
	return time.Duration(float64(remaining)/speed) * time.Second
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"files=%d/%d failed=%d dirs=%d bytes=%d written=%d verified=%d mismatched=%d digests=%d cached=%d",
		s.FilesCopied, s.FilesTotal, s.FilesFailed, s.DirsCreated,
		s.BytesCopied, s.BytesWritten, s.FilesVerified, s.FilesVerifyFailed,
		s.DigestsComputed, s.CacheHits,
	)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
