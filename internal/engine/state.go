package engine

import "time"

// Phase is the lifecycle state of an engine. An invocation moves through
// Start, CheckingSource, Copying and End in that order; Reset returns to
// Start.
type Phase int

const (
	Start Phase = iota
	CheckingSource
	Copying
	End
)

func (p Phase) String() string {
	switch p {
	case Start:
		return "START"
	case CheckingSource:
		return "CHECKING_SOURCE"
	case Copying:
		return "COPYING"
	case End:
		return "END"
	default:
		return "UNKNOWN"
	}
}

// ProcessingMode tells whether the current file is being copied or
// verified.
type ProcessingMode int

const (
	ModeCopying ProcessingMode = iota
	ModeChecking
)

func (m ProcessingMode) String() string {
	if m == ModeChecking {
		return "CHECKING"
	}
	return "COPYING"
}

// CurrentlyProcessedFile names the file the engine is working on. A new
// value is created for every file and every mode change.
type CurrentlyProcessedFile struct {
	Path string
	Mode ProcessingMode
}

// TransferState is a snapshot of an engine's progress.
type TransferState struct {
	Phase             Phase
	ByteCount         int64 // total bytes of all matched files
	CopiedBytes       int64
	Current           *CurrentlyProcessedFile
	SliceSize         int64
	LastSliceDuration time.Duration
}
