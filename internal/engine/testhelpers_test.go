package engine

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bamsammich/fanout/internal/event"
	"github.com/bamsammich/fanout/internal/platform"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEngine returns an engine that logs nowhere and never evicts.
func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}
	if cfg.Evictor == nil {
		cfg.Evictor = platform.NoopEvictor{}
	}
	e, err := New(cfg)
	require.NoError(t, err)
	return e
}

func writeRandom(t *testing.T, path string, size int) []byte {
	t.Helper()
	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return data
}

func mustJob(t *testing.T, base, expr string, recursive bool, dsts ...string) *CopyJob {
	t.Helper()
	src, err := NewSource(base, expr, recursive)
	require.NoError(t, err)
	job, err := NewCopyJob([]Source{src}, dsts)
	require.NoError(t, err)
	return job
}

// recorder collects changes fired on a bus.
type recorder struct {
	mu      sync.Mutex
	changes []event.Change
}

func record(bus *event.Bus, props ...event.Property) *recorder {
	r := &recorder{}
	for _, p := range props {
		bus.Subscribe(p, func(c event.Change) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.changes = append(r.changes, c)
		})
	}
	return r
}

func (r *recorder) values(p event.Property) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, c := range r.changes {
		if c.Property == p {
			out = append(out, c.New)
		}
	}
	return out
}

// corruptingEvictor flips the first byte of one path when asked to evict
// it, simulating a destination that was damaged on the medium.
type corruptingEvictor struct {
	path string
}

func (c corruptingEvictor) Evict(_ context.Context, path string) error {
	if path != c.path {
		return nil
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	b := make([]byte, 1)
	if _, err := f.ReadAt(b, 0); err != nil {
		return err
	}
	b[0] ^= 0xff
	_, err = f.WriteAt(b, 0)
	return err
}
