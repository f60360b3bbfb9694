package engine

import (
	"context"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bamsammich/fanout/internal/barrier"
	"github.com/bamsammich/fanout/internal/digest"
	"github.com/bamsammich/fanout/internal/event"
	"github.com/bamsammich/fanout/internal/platform"
)

// fileResult is what verification needs from a finished transfer.
type fileResult struct {
	targets  []string
	expected []byte // source digest; nil when there is nothing to verify
}

// createDir creates a directory entry at every destination. Existing
// directories are reused.
func (e *Engine) createDir(log *slog.Logger, j *CopyJob, en Entry) error {
	e.setCurrent(en.Path, ModeCopying)
	for _, dst := range j.targets(en) {
		info, err := os.Stat(dst)
		switch {
		case err == nil && info.IsDir():
			log.Info("directory exists", "path", dst)
		case err == nil:
			return &ConflictError{Path: dst, Reason: "existing file where a directory is needed"}
		case !errors.Is(err, fs.ErrNotExist):
			return &TransferError{Src: en.Path, Dst: dst, Err: err}
		default:
			if err := os.MkdirAll(dst, 0o755); err != nil {
				return &TransferError{Src: en.Path, Dst: dst, Err: err}
			}
			e.stats.AddDirsCreated(1)
			log.Info("created directory", "path", dst)
		}
	}
	return nil
}

// transfer copies one file to all of the job's destinations.
func (e *Engine) transfer(ctx context.Context, log *slog.Logger, j *CopyJob, en Entry, checked bool) (fileResult, error) {
	res := fileResult{targets: j.targets(en)}
	e.setCurrent(en.Path, ModeCopying)

	info, err := os.Stat(en.Path)
	if err != nil {
		return res, &TransferError{Src: en.Path, Err: err}
	}
	size := info.Size()
	if size != en.Size {
		log.Warn("source size changed since scan", "path", en.Path, "scanned", en.Size, "now", size)
	}

	// Parents only: the destination file itself first appears through its
	// first write.
	for _, dst := range res.targets {
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return res, &TransferError{Src: en.Path, Dst: dst, Err: err}
		}
	}

	if size == 0 {
		log.Info("creating empty file", "src", en.Path, "destinations", len(res.targets))
		for _, dst := range res.targets {
			f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
			if err != nil {
				return res, &TransferError{Src: en.Path, Dst: dst, Err: err}
			}
			e.closeAsync(log, f)
		}
		return res, nil
	}

	var h hash.Hash
	if checked {
		if d, ok := e.cachedDigest(en.Path); ok {
			log.Debug("digest cache hit", "path", en.Path, "digest", digest.Hex(d))
			e.stats.AddCacheHits(1)
			res.expected = d
		} else if h, err = e.cfg.Digest.New(); err != nil {
			return res, err
		}
	}

	log.Info("copying", "src", en.Path, "destinations", len(res.targets), "size", size)
	if err := e.fanOut(ctx, log, en.Path, info.Mode().Perm(), size, res.targets, h); err != nil {
		return res, err
	}

	if h != nil {
		res.expected = h.Sum(nil)
		e.stats.AddDigestsComputed(1)
		if e.cfg.Cache != nil {
			e.cfg.Cache.Put(en.Path, res.expected)
		}
	}
	return res, nil
}

func (e *Engine) cachedDigest(path string) ([]byte, bool) {
	if e.cfg.Cache == nil {
		return nil, false
	}
	return e.cfg.Cache.Get(path)
}

// fanOut runs one task per destination. The tasks copy the file slice by
// slice and meet at a barrier after every slice; the barrier action, run
// once per slice, accounts the slice and plans the next one. Every task
// leaves the loop when the planned volume is zero.
//
// When h is set, the first task feeds it every byte it reads, and no task
// uses zero-copy so the file passes through user memory.
func (e *Engine) fanOut(
	ctx context.Context,
	log *slog.Logger,
	src string,
	perm fs.FileMode,
	size int64,
	targets []string,
	h hash.Hash,
) error {
	zeroCopy := h == nil && platform.ZeroCopySupported && !e.cfg.DisableZeroCopy

	var (
		copied  int64
		volume  = min(e.Snapshot().SliceSize, size)
		started = time.Now()
	)
	first := volume

	bar := barrier.New(len(targets), func() int64 {
		now := time.Now()
		elapsed := now.Sub(started)
		copied += volume
		slice := e.advance(volume, elapsed)
		log.Debug("slice done", "path", src, "volume", volume, "elapsed", elapsed, "next_slice", slice)

		volume = min(slice, size-copied)
		started = now
		return volume
	})

	g, gctx := errgroup.WithContext(ctx)
	for i, dst := range targets {
		var tee io.Writer
		if i == 0 && h != nil {
			tee = h
		}
		g.Go(func() error {
			err := e.copyTask(gctx, log, bar, src, dst, perm, size, first, tee, zeroCopy)
			switch {
			case err == nil:
				return nil
			case errors.Is(err, barrier.ErrBroken):
				// A sibling broke the barrier and reports the cause.
				return nil
			default:
				bar.Break()
				return &TransferError{Src: src, Dst: dst, Err: err}
			}
		})
	}
	return g.Wait()
}

// copyTask writes one destination, slice by slice.
func (e *Engine) copyTask(
	ctx context.Context,
	log *slog.Logger,
	bar *barrier.Barrier[int64],
	src, dst string,
	perm fs.FileMode,
	size, volume int64,
	tee io.Writer,
	zeroCopy bool,
) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		in.Close()
		return err
	}
	defer e.closeAsync(log, in, out)

	if e.cfg.Preallocate {
		platform.Preallocate(out, size)
	}

	var (
		off    int64
		method platform.CopyMethod
	)
	for volume > 0 {
		if method, err = e.copyRange(ctx, in, out, off, volume, tee, zeroCopy); err != nil {
			return err
		}
		off += volume
		if volume, err = bar.Await(ctx); err != nil {
			return err
		}
	}
	log.Debug("destination written", "dst", dst, "bytes", off, "method", method)
	return nil
}

// copyRange moves n bytes at off in buffer-sized steps, each admitted by
// the bandwidth limiter. It reports the method of the last step.
func (e *Engine) copyRange(
	ctx context.Context,
	in, out *os.File,
	off, n int64,
	tee io.Writer,
	zeroCopy bool,
) (platform.CopyMethod, error) {
	var method platform.CopyMethod
	chunk := chunkSize(e.limiter)
	for n > 0 {
		step := min(chunk, n)
		if err := waitN(ctx, e.limiter, step); err != nil {
			return method, err
		}
		if err := ctx.Err(); err != nil {
			return method, err
		}

		params := platform.RangeParams{Src: in, Dst: out, Offset: off, Length: step}
		var (
			res platform.CopyResult
			err error
		)
		if zeroCopy {
			res, err = platform.CopyRange(params)
		} else {
			res, err = platform.CopyThrough(params, tee)
		}
		e.stats.AddBytesWritten(res.BytesWritten)
		method = res.Method
		if err != nil {
			return method, err
		}
		if res.BytesWritten < step {
			return method, fmt.Errorf("source ended at offset %d: %w", off+res.BytesWritten, io.ErrUnexpectedEOF)
		}
		off += step
		n -= step
	}
	return method, nil
}

// advance accounts a finished slice and returns the size of the next one.
// Only barrier actions call it, so progress has a single writer.
func (e *Engine) advance(volume int64, elapsed time.Duration) int64 {
	e.mu.Lock()
	old := e.reported
	e.state.CopiedBytes += volume
	e.state.LastSliceDuration = elapsed
	e.state.SliceSize = NextSlice(e.state.SliceSize, volume, elapsed, e.cfg.TargetInterval, e.sliceCap)
	cur, slice := e.state.CopiedBytes, e.state.SliceSize
	e.reported = cur
	e.mu.Unlock()

	e.stats.AddBytesCopied(volume)
	e.stats.SetSliceSize(slice)
	e.bus.Fire(event.ByteCounter, old, cur)
	return slice
}

// closeAsync closes files in the background; Copy waits for all of them
// before it returns.
func (e *Engine) closeAsync(log *slog.Logger, files ...*os.File) {
	e.closers.Add(1)
	go func() {
		defer e.closers.Done()
		for _, f := range files {
			if err := f.Close(); err != nil {
				log.Warn("close failed", "path", f.Name(), "error", err)
			}
		}
	}()
}
