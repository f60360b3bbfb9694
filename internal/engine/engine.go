// Package engine copies sets of source files to one or more destination
// roots. Each file is written to all destinations in parallel, in
// lock-stepped slices whose size adapts to the measured throughput, and
// can be verified afterwards against a digest of the source.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/mem"
	"golang.org/x/time/rate"

	"github.com/bamsammich/fanout/internal/digest"
	"github.com/bamsammich/fanout/internal/event"
	"github.com/bamsammich/fanout/internal/platform"
	"github.com/bamsammich/fanout/internal/stats"
)

// DigestCache maps absolute source paths to digests computed earlier. The
// engine never invalidates entries. Implementations shared between
// engines must be safe for concurrent use.
type DigestCache interface {
	Get(path string) ([]byte, bool)
	Put(path string, digest []byte)
}

// Config configures an Engine. The zero value is usable.
type Config struct {
	Logger *slog.Logger
	Events *event.Bus
	Stats  *stats.Collector

	Cache   DigestCache     // optional
	Digest  digest.Algorithm // defaults to digest.Default
	Evictor platform.Evictor // defaults to the platform's fadvise evictor

	InitialSlice   int64
	MaxSlice       int64
	TargetInterval time.Duration

	BWLimit         int64 // bytes/sec over all destinations; 0 = unlimited
	DisableZeroCopy bool
	Preallocate     bool
}

// Engine runs copy invocations. It is not safe for concurrent Copy calls;
// its state accessors may be called from any goroutine.
type Engine struct {
	cfg     Config
	log     *slog.Logger
	bus     *event.Bus
	stats   *stats.Collector
	evictor platform.Evictor
	limiter *rate.Limiter

	running atomic.Bool
	closers sync.WaitGroup

	mu       sync.RWMutex
	state    TransferState
	reported int64 // last CopiedBytes value fired as a ByteCounter change
	sliceCap int64
}

// New creates an engine in the Start phase.
func New(cfg Config) (*Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Events == nil {
		cfg.Events = event.NewBus()
	}
	if cfg.Stats == nil {
		cfg.Stats = stats.NewCollector()
	}
	if cfg.Digest == "" {
		cfg.Digest = digest.Default
	}
	if _, err := cfg.Digest.New(); err != nil {
		return nil, err
	}
	if cfg.Evictor == nil {
		cfg.Evictor = platform.NewEvictor(platform.EvictFadvise)
	}
	if cfg.InitialSlice <= 0 {
		cfg.InitialSlice = DefaultSlice
	}
	if cfg.MaxSlice <= 0 {
		cfg.MaxSlice = DefaultMaxSlice
	}
	cfg.MaxSlice = max(cfg.MaxSlice, cfg.InitialSlice)
	if cfg.TargetInterval <= 0 {
		cfg.TargetInterval = DefaultTargetInterval
	}

	e := &Engine{
		cfg:     cfg,
		log:     cfg.Logger,
		bus:     cfg.Events,
		stats:   cfg.Stats,
		evictor: cfg.Evictor,
	}
	if cfg.BWLimit > 0 {
		e.limiter = NewBWLimiter(cfg.BWLimit)
	}
	e.state = TransferState{Phase: Start, SliceSize: cfg.InitialSlice}
	return e, nil
}

// Events returns the bus the engine fires progress changes on.
func (e *Engine) Events() *event.Bus { return e.bus }

// Stats returns the engine's counters.
func (e *Engine) Stats() *stats.Collector { return e.stats }

// Phase returns the current lifecycle phase.
func (e *Engine) Phase() Phase {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Phase
}

// ByteCount returns the total size of all files of the current invocation.
func (e *Engine) ByteCount() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.ByteCount
}

// CopiedBytes returns the number of source bytes copied so far.
func (e *Engine) CopiedBytes() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.CopiedBytes
}

// CurrentlyProcessedFile returns the file being copied or verified, or
// nil.
func (e *Engine) CurrentlyProcessedFile() *CurrentlyProcessedFile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Current
}

// Snapshot returns a copy of the transfer state.
func (e *Engine) Snapshot() TransferState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Reset returns the engine to the Start phase and clears its counters.
// The adapted slice size starts over from the configured initial size.
func (e *Engine) Reset() {
	e.mu.Lock()
	old := e.state.Phase
	e.state = TransferState{Phase: Start, SliceSize: e.cfg.InitialSlice}
	e.reported = 0
	e.mu.Unlock()
	e.bus.Fire(event.State, old, Start)
}

func (e *Engine) setPhase(p Phase) {
	e.mu.Lock()
	old := e.state.Phase
	e.state.Phase = p
	e.mu.Unlock()
	e.bus.Fire(event.State, old, p)
}

func (e *Engine) setByteCount(n int64) {
	e.mu.Lock()
	e.state.ByteCount = n
	e.mu.Unlock()
}

func (e *Engine) setCurrent(path string, mode ProcessingMode) {
	e.mu.Lock()
	e.state.Current = &CurrentlyProcessedFile{Path: path, Mode: mode}
	e.mu.Unlock()
	e.bus.Fire(event.File, nil, path)
}

// flushProgress fires a ByteCounter change if the copied byte count moved
// since the last one.
func (e *Engine) flushProgress() {
	e.mu.Lock()
	old, cur := e.reported, e.state.CopiedBytes
	e.reported = cur
	e.mu.Unlock()
	if old != cur {
		e.bus.Fire(event.ByteCounter, old, cur)
	}
}

// Copy runs one invocation over jobs. With checked set, every copied file
// is verified at each destination against a digest of its source.
//
// Configuration errors (missing pattern, destination conflicts) are
// returned before anything is written. Per-file failures are logged and
// the next file is started; they are returned together once all files
// were attempted. A checksum mismatch stops the invocation after the
// offending file's destinations are all verified. Nil jobs are skipped.
func (e *Engine) Copy(ctx context.Context, checked bool, jobs ...*CopyJob) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer e.running.Store(false)

	jobs = slices.DeleteFunc(slices.Clone(jobs), func(j *CopyJob) bool { return j == nil })
	if e.Phase() != Start {
		e.Reset()
	}
	log := e.log.With("run", uuid.NewString()[:8])

	e.setPhase(CheckingSource)
	files, err := e.scan(log, jobs)
	if err != nil {
		return err
	}
	if files == 0 {
		log.Info("no files to copy")
		e.setPhase(End)
		return nil
	}
	for _, j := range jobs {
		if err := j.check(); err != nil {
			return err
		}
	}
	e.sliceCap = e.maxSlice(log)

	e.setPhase(Copying)
	errs := e.copyJobs(ctx, log, checked, jobs)

	e.flushProgress()
	e.closers.Wait()
	e.setPhase(End)

	if err := joinErrors(errs); err != nil {
		return err
	}
	s := e.stats.Snapshot()
	log.Info("copy complete", "files", s.FilesCopied, "bytes", s.BytesCopied)
	return nil
}

func (e *Engine) scan(log *slog.Logger, jobs []*CopyJob) (int, error) {
	sc := &Scanner{Logger: log, Events: e.bus}

	var total int64
	var files int
	for _, j := range jobs {
		j.dirs = nil
		for _, src := range j.sources {
			info, err := sc.ScanSource(src)
			if err != nil {
				return 0, err
			}
			if info != nil {
				j.dirs = append(j.dirs, info)
			}
		}
		f, d := j.counts()
		files += f + d
		total += j.Bytes()
		e.stats.AddTotals(int64(f), j.Bytes())

		if log.Enabled(context.Background(), slog.LevelDebug) {
			for _, en := range j.Entries() {
				kind := "f"
				if en.IsDir {
					kind = "d"
				}
				log.Debug("scanned "+kind, "path", en.Path, "size", en.Size)
			}
		}
	}
	e.setByteCount(total)
	log.Info("sources scanned", "entries", files, "bytes", total)
	return files, nil
}

func (e *Engine) copyJobs(ctx context.Context, log *slog.Logger, checked bool, jobs []*CopyJob) []error {
	var errs []error
	for _, j := range jobs {
		for _, en := range j.Entries() {
			if err := ctx.Err(); err != nil {
				return append([]error{err}, errs...)
			}

			if en.IsDir {
				if err := e.createDir(log, j, en); err != nil {
					errs = append(errs, err)
					var conflict *ConflictError
					if errors.As(err, &conflict) {
						return errs
					}
				}
				continue
			}

			res, err := e.transfer(ctx, log, j, en, checked)
			if err != nil {
				log.Error("copy failed", "path", en.Path, "error", err)
				e.stats.AddFilesFailed(1)
				errs = append(errs, err)
				continue
			}
			e.stats.AddFilesCopied(1)

			if !checked || res.expected == nil {
				continue
			}
			if verrs := e.verify(ctx, log, en.Path, res.targets, res.expected); len(verrs) > 0 {
				errs = append(errs, verrs...)
				for _, verr := range verrs {
					var mismatch *MismatchError
					if errors.As(verr, &mismatch) {
						return errs
					}
				}
			}
		}
	}
	return errs
}

// maxSlice caps slice growth so the data written between two rendezvous
// (one slice per destination) stays a small share of available memory.
func (e *Engine) maxSlice(log *slog.Logger) int64 {
	limit := e.cfg.MaxSlice
	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Debug("memory probe failed", "error", err)
		return limit
	}
	if memCap := int64(vm.Available / 16); memCap > 0 && memCap < limit { //nolint:gosec // G115: available memory fits in int64
		limit = max(memCap, e.cfg.InitialSlice)
	}
	log.Debug("slice limit", "bytes", limit, "available", vm.Available)
	return limit
}
