package platform

import (
	"context"
	"fmt"
	"os/exec"
)

// Evictor drops a file's cached pages so that the next read of it comes
// from the storage medium. Eviction is best effort; callers log failures
// and carry on.
type Evictor interface {
	Evict(ctx context.Context, path string) error
}

// EvictKind selects an Evictor implementation.
type EvictKind string

const (
	EvictNone    EvictKind = "none"
	EvictFadvise EvictKind = "fadvise" // fdatasync + posix_fadvise(DONTNEED)
	EvictCommand EvictKind = "command" // `sync` + `dd oflag=nocache`
)

// ParseEvictKind validates an eviction kind name. The empty string selects
// the platform default.
func ParseEvictKind(s string) (EvictKind, error) {
	switch k := EvictKind(s); k {
	case "":
		return EvictFadvise, nil
	case EvictNone, EvictFadvise, EvictCommand:
		return k, nil
	default:
		return "", fmt.Errorf("unknown eviction method %q (use fadvise, command or none)", s)
	}
}

// NewEvictor returns the Evictor for kind. Platforms without page cache
// control always get a no-op.
//
//nolint:ireturn // factory returns interface by design
func NewEvictor(kind EvictKind) Evictor {
	if !EvictionSupported {
		return NoopEvictor{}
	}
	switch kind {
	case EvictFadvise:
		return fadviseEvictor{}
	case EvictCommand:
		return CommandEvictor{}
	default:
		return NoopEvictor{}
	}
}

// NoopEvictor does nothing.
type NoopEvictor struct{}

func (NoopEvictor) Evict(context.Context, string) error { return nil }

// CommandEvictor shells out to coreutils: `sync <path>` writes the file's
// dirty pages, then a zero-length `dd` with oflag=nocache drops its cached
// pages.
type CommandEvictor struct {
	// Run executes a command. Nil means exec.CommandContext(...).Run().
	Run func(ctx context.Context, name string, args ...string) error
}

func (e CommandEvictor) Evict(ctx context.Context, path string) error {
	run := e.Run
	if run == nil {
		run = runCommand
	}
	if err := run(ctx, "sync", path); err != nil {
		return fmt.Errorf("sync %s: %w", path, err)
	}
	err := run(ctx, "dd", "of="+path, "oflag=nocache", "conv=notrunc,fdatasync", "count=0")
	if err != nil {
		return fmt.Errorf("dd nocache %s: %w", path, err)
	}
	return nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		if len(out) > 0 {
			return fmt.Errorf("%w: %s", err, out)
		}
		return err
	}
	return nil
}
