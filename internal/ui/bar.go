package ui

import (
	"io"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/bamsammich/fanout/internal/engine"
	"github.com/bamsammich/fanout/internal/event"
	"github.com/bamsammich/fanout/internal/stats"
)

const descriptionWidth = 24

// barPresenter draws a single progress bar over all bytes of the
// invocation, labelled with the file being processed.
type barPresenter struct {
	w     io.Writer
	stats *stats.Collector
	theme Theme
	width int
	bar   *progressbar.ProgressBar
	phase engine.Phase
}

func (p *barPresenter) Run(changes <-chan event.Change) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case c, ok := <-changes:
			if !ok {
				p.finish()
				return nil
			}
			p.handle(c)
		case <-ticker.C:
			p.stats.Tick()
		}
	}
}

func (p *barPresenter) handle(c event.Change) {
	switch c.Property {
	case event.State:
		phase, ok := c.New.(engine.Phase)
		if !ok {
			return
		}
		p.phase = phase
		switch phase {
		case engine.Copying:
			p.start(p.stats.Snapshot().BytesTotal)
		case engine.End:
			p.finish()
		}
	case event.ByteCounter:
		if n, ok := c.New.(int64); ok && p.bar != nil {
			_ = p.bar.Set64(n)
		}
	case event.File:
		if path, ok := c.New.(string); ok && p.bar != nil && p.phase == engine.Copying {
			p.bar.Describe(fitDescription(filepath.Base(path)))
		}
	}
}

func (p *barPresenter) start(total int64) {
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetWidth(p.width),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func (p *barPresenter) finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	p.bar = nil
}

func (p *barPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot(), p.theme)
}

// fitDescription pads or truncates name to a fixed width so the bar does
// not jump around between files.
func fitDescription(name string) string {
	r := []rune(name)
	if len(r) > descriptionWidth {
		return string(r[:descriptionWidth-1]) + "…"
	}
	for len(r) < descriptionWidth {
		r = append(r, ' ')
	}
	return string(r)
}
