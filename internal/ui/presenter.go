package ui

import (
	"io"

	"github.com/bamsammich/fanout/internal/event"
	"github.com/bamsammich/fanout/internal/stats"
)

// Presenter renders engine progress.
type Presenter interface {
	// Run consumes changes until the channel closes. Blocks until done.
	Run(changes <-chan event.Change) error
	// Summary returns the final summary line.
	Summary() string
}

// Config configures a Presenter.
type Config struct {
	Writer     io.Writer
	ErrWriter  io.Writer
	Stats      *stats.Collector
	Theme      Theme
	Width      int // terminal columns; 0 means 80
	IsTTY      bool
	Quiet      bool
	NoProgress bool
}

// NewPresenter creates the appropriate presenter based on configuration.
//
//nolint:ireturn // factory function returns interface by design
func NewPresenter(cfg Config) Presenter {
	if cfg.Quiet {
		return &quietPresenter{}
	}
	if !cfg.IsTTY || cfg.NoProgress {
		return &plainPresenter{
			w:     cfg.Writer,
			errW:  cfg.ErrWriter,
			stats: cfg.Stats,
			theme: cfg.Theme,
		}
	}
	width := cfg.Width
	if width <= 0 {
		width = 80
	}
	return &barPresenter{
		w:     cfg.ErrWriter, // the bar renders to stderr (the TTY)
		stats: cfg.Stats,
		theme: cfg.Theme,
		width: barWidth(width),
	}
}
