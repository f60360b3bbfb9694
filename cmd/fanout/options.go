package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bamsammich/fanout/internal/config"
	"github.com/bamsammich/fanout/internal/digest"
	"github.com/bamsammich/fanout/internal/digestcache"
	"github.com/bamsammich/fanout/internal/engine"
	"github.com/bamsammich/fanout/internal/event"
	"github.com/bamsammich/fanout/internal/pattern"
	"github.com/bamsammich/fanout/internal/platform"
	"github.com/bamsammich/fanout/internal/stats"
	"github.com/bamsammich/fanout/internal/ui"
)

const (
	cacheAuto   = "auto"
	cacheMemory = "memory"
	cacheOff    = "off"
)

// options holds the flags shared by the root command and `run`.
type options struct {
	configFile  string
	verify      bool
	digestName  string
	cache       string
	bwLimit     string
	evict       string
	noZeroCopy  bool
	preallocate bool
	logFile     string
	verbose     bool
	quiet       bool
	noProgress  bool
}

func (o *options) register(f *pflag.FlagSet) {
	f.StringVar(&o.configFile, "config", "", "config file (default: $XDG_CONFIG_HOME/fanout/config.toml)")
	f.BoolVar(&o.verify, "verify", false, "verify every copy against a digest of its source")
	f.StringVar(&o.digestName, "digest", "", "digest algorithm: blake3 or md5 (default blake3)")
	f.StringVar(&o.cache, "cache", cacheMemory,
		"digest cache: memory, off, auto (per source set, under the user cache dir) or a FILE (.zst to compress)")
	f.StringVar(&o.bwLimit, "bwlimit", "", "bandwidth limit over all destinations (e.g. 100M, 1G)")
	f.StringVar(&o.evict, "evict", "", "page cache eviction before verifying: fadvise, command or none")
	f.BoolVar(&o.noZeroCopy, "no-zero-copy", false, "always copy through userspace buffers")
	f.BoolVar(&o.preallocate, "preallocate", false, "reserve destination space before writing")
	f.StringVar(&o.logFile, "log", "", "write structured JSON log to FILE")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "verbose output")
	f.BoolVarP(&o.quiet, "quiet", "q", false, "suppress all output except errors")
	f.BoolVar(&o.noProgress, "no-progress", false, "disable progress display")
}

// applyConfigDefaults applies config file defaults for flags not explicitly set on the CLI.
func applyConfigDefaults(flags *pflag.FlagSet, defaults config.DefaultsConfig, o *options) {
	if !flags.Changed("verify") && defaults.Verify != nil {
		o.verify = *defaults.Verify
	}
	if !flags.Changed("digest") && defaults.Digest != nil {
		o.digestName = *defaults.Digest
	}
	if !flags.Changed("cache") && defaults.Cache != nil {
		o.cache = *defaults.Cache
	}
	if !flags.Changed("bwlimit") && defaults.BWLimit != nil {
		o.bwLimit = *defaults.BWLimit
	}
	if !flags.Changed("evict") && defaults.Evict != nil {
		o.evict = *defaults.Evict
	}
	if !flags.Changed("no-zero-copy") && defaults.ZeroCopy != nil {
		o.noZeroCopy = !*defaults.ZeroCopy
	}
	if !flags.Changed("preallocate") && defaults.Preallocate != nil {
		o.preallocate = *defaults.Preallocate
	}
}

// setupLogging installs the default logger: text on stderr, plus a debug
// level JSON log when --log is set. The returned function closes the log
// file.
func setupLogging(o *options) (func(), error) {
	logLevel := slog.LevelWarn
	if o.verbose {
		logLevel = slog.LevelDebug
	} else if !o.quiet {
		logLevel = slog.LevelInfo
	}
	textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	var logHandler slog.Handler = textHandler
	closeLog := func() {}
	if o.logFile != "" {
		lf, err := os.Create(o.logFile)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		closeLog = func() { _ = lf.Close() }
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
		logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
	}
	slog.SetDefault(slog.New(logHandler))
	return closeLog, nil
}

func loadConfig(o *options) (config.Config, error) {
	if o.configFile != "" {
		return config.LoadFile(o.configFile)
	}
	return config.Load()
}

// openCache resolves the --cache setting. save persists a file backed
// cache and is a no-op otherwise.
//
//nolint:ireturn // the engine only needs the interface
func openCache(
	spec string,
	alg digest.Algorithm,
	jobs []*engine.CopyJob,
) (cache engine.DigestCache, save func() error, err error) {
	noop := func() error { return nil }
	switch spec {
	case cacheOff:
		return nil, noop, nil
	case "", cacheMemory:
		return digestcache.NewMap(), noop, nil
	case cacheAuto:
		var roots []string
		for _, j := range jobs {
			for _, src := range j.Sources() {
				roots = append(roots, src.Base)
			}
		}
		if spec, err = digestcache.DefaultPath(roots); err != nil {
			return nil, nil, err
		}
	}
	f, err := digestcache.Open(spec, string(alg))
	if err != nil {
		return nil, nil, err
	}
	return f, f.Save, nil
}

// logEvents mirrors every bus change into the debug log.
func logEvents(bus *event.Bus) (unsubscribe func()) {
	listener := func(c event.Change) {
		slog.Debug("fanout.event",
			"property", c.Property.String(),
			"old", fmt.Sprint(c.Old),
			"new", fmt.Sprint(c.New),
		)
	}
	unsubs := []func(){
		bus.Subscribe(event.State, listener),
		bus.Subscribe(event.File, listener),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

//nolint:gocyclo,revive // cyclomatic,cognitive-complexity: wires every component of an invocation
func execute(cmd *cobra.Command, o *options, jobs []*engine.CopyJob) error {
	closeLog, err := setupLogging(o)
	if err != nil {
		return err
	}
	defer closeLog()

	cfg, err := loadConfig(o)
	if err != nil {
		slog.Warn("failed to load config", "error", err)
	}
	applyConfigDefaults(cmd.Flags(), cfg.Defaults, o)

	tuning, err := cfg.Transfer.Parse()
	if err != nil {
		return fmt.Errorf("config [transfer]: %w", err)
	}

	var bwLimit int64
	if o.bwLimit != "" {
		if bwLimit, err = pattern.ParseSize(o.bwLimit); err != nil {
			return fmt.Errorf("invalid --bwlimit: %w", err)
		}
	}
	alg, err := digest.Parse(o.digestName)
	if err != nil {
		return fmt.Errorf("invalid --digest: %w", err)
	}
	evictKind, err := platform.ParseEvictKind(o.evict)
	if err != nil {
		return fmt.Errorf("invalid --evict: %w", err)
	}
	cache, saveCache, err := openCache(o.cache, alg, jobs)
	if err != nil {
		return fmt.Errorf("digest cache: %w", err)
	}

	collector := stats.NewCollector()
	bus := event.NewBus()
	if o.logFile != "" {
		defer logEvents(bus)()
	}

	eng, err := engine.New(engine.Config{
		Logger:          slog.Default(),
		Events:          bus,
		Stats:           collector,
		Cache:           cache,
		Digest:          alg,
		Evictor:         platform.NewEvictor(evictKind),
		InitialSlice:    tuning.InitialSlice,
		MaxSlice:        tuning.MaxSlice,
		TargetInterval:  tuning.TargetInterval,
		BWLimit:         bwLimit,
		DisableZeroCopy: o.noZeroCopy,
		Preallocate:     o.preallocate,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	presenter := ui.NewPresenter(ui.Config{
		Writer:     os.Stdout,
		ErrWriter:  os.Stderr,
		Stats:      collector,
		Theme:      ui.NewTheme(cfg.Theme),
		Width:      ui.TermWidth(os.Stderr),
		IsTTY:      ui.IsTTY(os.Stderr),
		Quiet:      o.quiet,
		NoProgress: o.noProgress,
	})
	changes := make(chan event.Change, 256)
	detach := bus.Forward(changes)

	var presenterErr error
	var presenterWg sync.WaitGroup
	presenterWg.Add(1)
	go func() {
		defer presenterWg.Done()
		presenterErr = presenter.Run(changes)
	}()

	slog.Debug("starting copy",
		"jobs", len(jobs),
		"verify", o.verify,
		"digest", alg,
		"bwlimit", bwLimit,
		"evict", evictKind,
	)

	copyErr := eng.Copy(ctx, o.verify, jobs...)
	stop()
	detach()
	close(changes)
	presenterWg.Wait()
	if presenterErr != nil {
		fmt.Fprintf(os.Stderr, "presenter: %v\n", presenterErr)
	}

	if err := saveCache(); err != nil {
		slog.Warn("failed to save digest cache", "error", err)
	}

	if !o.quiet {
		if summary := presenter.Summary(); summary != "" {
			fmt.Fprintln(os.Stderr, summary)
		}
	}

	if copyErr != nil {
		slog.Error("copy failed", "error", copyErr)
		if collector.Snapshot().FilesCopied > 0 {
			return &exitError{code: 1} // partial failure
		}
		return &exitError{code: 2} // total failure
	}
	return nil
}
