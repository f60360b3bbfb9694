package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingPattern is returned when a source has no inclusion pattern.
	ErrMissingPattern = errors.New("source pattern is required")
	// ErrNoSources is returned by NewCopyJob for an empty source list.
	ErrNoSources = errors.New("copy job has no sources")
	// ErrNoDestinations is returned by NewCopyJob for an empty destination list.
	ErrNoDestinations = errors.New("copy job has no destinations")
	// ErrBusy is returned when Copy is called while another Copy is running
	// on the same engine.
	ErrBusy = errors.New("engine is already copying")
)

// ConflictError reports a destination whose shape does not fit what is
// being copied onto it, e.g. a directory onto an existing file.
type ConflictError struct {
	Path   string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("destination conflict at %s: %s", e.Path, e.Reason)
}

// TransferError is a per-file I/O failure.
type TransferError struct {
	Src string
	Dst string
	Err error
}

func (e *TransferError) Error() string {
	if e.Dst == "" {
		return fmt.Sprintf("copy %s: %v", e.Src, e.Err)
	}
	return fmt.Sprintf("copy %s -> %s: %v", e.Src, e.Dst, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// MismatchError reports a destination whose digest differs from its
// source's.
type MismatchError struct {
	Src      string
	Dst      string
	Expected string
	Actual   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected %s (from %s), got %s",
		e.Dst, e.Expected, e.Src, e.Actual)
}

// joinErrors keeps the first error and notes how many followed it.
func joinErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return fmt.Errorf("%w (and %d more errors)", errs[0], len(errs)-1)
	}
}
