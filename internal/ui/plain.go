package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/bamsammich/fanout/internal/engine"
	"github.com/bamsammich/fanout/internal/event"
	"github.com/bamsammich/fanout/internal/stats"
)

const plainProgressEvery = 5 // ticks

// plainPresenter prints one line per file to stdout and periodic progress
// to stderr. It is used when stderr is not a terminal.
type plainPresenter struct {
	w     io.Writer
	errW  io.Writer
	stats *stats.Collector
	theme Theme
	phase engine.Phase
	last  string
}

func (p *plainPresenter) Run(changes <-chan event.Change) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	ticks := 0
	for {
		select {
		case c, ok := <-changes:
			if !ok {
				return nil
			}
			p.handle(c)
		case <-ticker.C:
			p.stats.Tick()
			ticks++
			if ticks%plainProgressEvery == 0 && p.phase == engine.Copying {
				p.printProgress()
			}
		}
	}
}

func (p *plainPresenter) handle(c event.Change) {
	switch c.Property {
	case event.State:
		phase, ok := c.New.(engine.Phase)
		if !ok {
			return
		}
		p.phase = phase
		switch phase {
		case engine.CheckingSource:
			fmt.Fprintln(p.errW, "scanning sources...")
		case engine.Copying:
			snap := p.stats.Snapshot()
			fmt.Fprintf(p.errW, "copying %s files, %s\n",
				FormatCount(snap.FilesTotal), FormatBytes(snap.BytesTotal))
		}
	case event.File:
		path, ok := c.New.(string)
		if !ok || p.phase != engine.Copying {
			return
		}
		// A file is announced again when its verification starts.
		if path == p.last {
			fmt.Fprintf(p.w, "check  %s\n", path)
			return
		}
		p.last = path
		fmt.Fprintf(p.w, "copy   %s\n", path)
	}
}

func (p *plainPresenter) printProgress() {
	snap := p.stats.Snapshot()
	if snap.BytesTotal <= 0 {
		return
	}
	pct := float64(snap.BytesCopied) / float64(snap.BytesTotal)
	fmt.Fprintf(p.errW, "progress: %s %.0f%% %s/%s %s/%s files %s eta %s\n",
		meter(pct, 20),
		pct*100,
		FormatBytes(snap.BytesCopied), FormatBytes(snap.BytesTotal),
		FormatCount(snap.FilesCopied), FormatCount(snap.FilesTotal),
		FormatRate(p.stats.RollingSpeed(10)),
		FormatETA(p.stats.ETA()),
	)
}

func (p *plainPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot(), p.theme)
}
