package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/fanout/internal/config"
	"github.com/bamsammich/fanout/internal/engine"
	"github.com/bamsammich/fanout/internal/event"
	"github.com/bamsammich/fanout/internal/stats"
)

func stateChange(from, to engine.Phase) event.Change {
	return event.Change{Property: event.State, Old: from, New: to}
}

func fileChange(path string) event.Change {
	return event.Change{Property: event.File, New: path}
}

func TestPlainPresenterFiles(t *testing.T) {
	var out, errOut bytes.Buffer
	collector := stats.NewCollector()
	collector.AddTotals(2, 3072)

	p := &plainPresenter{w: &out, errW: &errOut, stats: collector}

	changes := make(chan event.Change, 10)
	changes <- stateChange(engine.Start, engine.CheckingSource)
	changes <- fileChange("/src") // scanned directory
	changes <- stateChange(engine.CheckingSource, engine.Copying)
	changes <- fileChange("/src/a.txt")
	changes <- fileChange("/src/a.txt") // verification
	changes <- fileChange("/src/b.txt")
	changes <- stateChange(engine.Copying, engine.End)
	close(changes)

	require.NoError(t, p.Run(changes))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		"copy   /src/a.txt",
		"check  /src/a.txt",
		"copy   /src/b.txt",
	}, lines)

	assert.Contains(t, errOut.String(), "scanning sources...")
	assert.Contains(t, errOut.String(), "copying 2 files, 3.0 KiB")
}

func TestPlainPresenterIgnoresForeignValues(t *testing.T) {
	var out, errOut bytes.Buffer
	p := &plainPresenter{w: &out, errW: &errOut, stats: stats.NewCollector()}

	changes := make(chan event.Change, 3)
	changes <- event.Change{Property: event.State, New: "bogus"}
	changes <- event.Change{Property: event.File, New: 42}
	changes <- event.Change{Property: event.ByteCounter, Old: int64(0), New: int64(10)}
	close(changes)

	require.NoError(t, p.Run(changes))
	assert.Empty(t, out.String())
}

func TestPlainPresenterProgress(t *testing.T) {
	var errOut bytes.Buffer
	collector := stats.NewCollector()
	collector.AddTotals(4, 1000)
	collector.AddBytesCopied(250)
	collector.AddFilesCopied(1)

	p := &plainPresenter{errW: &errOut, stats: collector}
	p.printProgress()

	assert.Contains(t, errOut.String(), "25%")
	assert.Contains(t, errOut.String(), "1/4 files")
}

func TestPlainPresenterSummary(t *testing.T) {
	collector := stats.NewCollector()
	collector.AddFilesCopied(100)
	collector.AddBytesCopied(1024 * 1024)

	p := &plainPresenter{stats: collector, theme: NewTheme(config.ThemeConfig{})}
	s := p.Summary()
	assert.Contains(t, s, "files 100")
	assert.Contains(t, s, "errors 0")
}
