package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/bamsammich/fanout/internal/pattern"
)

// Source selects entries below Base whose path relative to Base matches
// Pattern.
type Source struct {
	Pattern   *regexp.Regexp
	Base      string
	Recursive bool
}

// NewSource builds a Source from a regular expression. The expression must
// match the whole relative path.
func NewSource(base, expr string, recursive bool) (Source, error) {
	if expr == "" {
		return Source{}, ErrMissingPattern
	}
	re, err := pattern.Compile(expr)
	if err != nil {
		return Source{}, err
	}
	return Source{Base: base, Pattern: re, Recursive: recursive}, nil
}

// GlobSource builds a Source from a shell glob.
func GlobSource(base, glob string, recursive bool) (Source, error) {
	if glob == "" {
		return Source{}, ErrMissingPattern
	}
	re, err := pattern.FromGlob(glob)
	if err != nil {
		return Source{}, err
	}
	return Source{Base: base, Pattern: re, Recursive: recursive}, nil
}

// Entry is a matched filesystem entry.
type Entry struct {
	Path  string // absolute source path
	Rel   string // path relative to the source base
	Size  int64  // 0 for directories
	Mode  fs.FileMode
	IsDir bool
}

// DirectoryInfo is the scan result for one base directory. Bytes counts
// matched files only.
type DirectoryInfo struct {
	Base    string
	Entries []Entry
	Bytes   int64
}

func (d *DirectoryInfo) merge(child *DirectoryInfo) {
	d.Entries = append(d.Entries, child.Entries...)
	d.Bytes += child.Bytes
}

type rootKind int

const (
	rootMissing rootKind = iota
	rootDir
	rootFile
)

// CopyJob pairs sources with destination roots. Sources and destinations
// are fixed at construction; the directory list is filled in by the
// engine when it scans the sources.
type CopyJob struct {
	sources      []Source
	destinations []string
	dirs         []*DirectoryInfo
	roots        []rootKind
	single       bool
}

// NewCopyJob validates and creates a job.
func NewCopyJob(sources []Source, destinations []string) (*CopyJob, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	if len(destinations) == 0 {
		return nil, ErrNoDestinations
	}
	for _, s := range sources {
		if s.Pattern == nil {
			return nil, ErrMissingPattern
		}
	}
	return &CopyJob{
		sources:      append([]Source(nil), sources...),
		destinations: append([]string(nil), destinations...),
	}, nil
}

// Sources returns the job's sources.
func (j *CopyJob) Sources() []Source { return append([]Source(nil), j.sources...) }

// Destinations returns the job's destination roots.
func (j *CopyJob) Destinations() []string { return append([]string(nil), j.destinations...) }

// Directories returns the scan results, one per readable source base.
func (j *CopyJob) Directories() []*DirectoryInfo { return j.dirs }

// Bytes returns the total size of the job's matched files.
func (j *CopyJob) Bytes() int64 {
	var n int64
	for _, d := range j.dirs {
		n += d.Bytes
	}
	return n
}

// Entries returns the matched entries of all sources in scan order.
func (j *CopyJob) Entries() []Entry {
	var out []Entry
	for _, d := range j.dirs {
		out = append(out, d.Entries...)
	}
	return out
}

func (j *CopyJob) counts() (files, dirs int) {
	for _, d := range j.dirs {
		for _, e := range d.Entries {
			if e.IsDir {
				dirs++
			} else {
				files++
			}
		}
	}
	return files, dirs
}

// singleFile reports whether the job copies exactly one file and nothing
// else, in which case destination roots may name the target file itself.
func (j *CopyJob) singleFile() bool {
	files, dirs := j.counts()
	return files == 1 && dirs == 0
}

// check classifies every destination root and rejects shapes that cannot
// receive the job's entries. It runs before any byte is written.
func (j *CopyJob) check() error {
	j.roots = make([]rootKind, len(j.destinations))
	j.single = j.singleFile()

	for i, root := range j.destinations {
		info, err := os.Stat(root)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			j.roots[i] = rootMissing
		case err != nil:
			return fmt.Errorf("destination %s: %w", root, err)
		case info.IsDir():
			j.roots[i] = rootDir
		case !info.Mode().IsRegular():
			return &ConflictError{Path: root, Reason: "not a regular file or directory"}
		case !j.single:
			return &ConflictError{Path: root, Reason: "existing file cannot receive a directory or several files"}
		default:
			j.roots[i] = rootFile
		}
	}

	for _, e := range j.Entries() {
		for i := range j.destinations {
			if err := checkTarget(j.target(i, e), e); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkTarget(path string, e Entry) error {
	info, err := os.Stat(path)
	if err != nil {
		return nil //nolint:nilerr // missing targets are created later
	}
	switch {
	case e.IsDir && !info.IsDir():
		return &ConflictError{Path: path, Reason: "existing file where a directory is needed"}
	case !e.IsDir && info.IsDir():
		return &ConflictError{Path: path, Reason: "existing directory where a file is needed"}
	case e.IsDir:
		return nil
	case !info.Mode().IsRegular():
		return &ConflictError{Path: path, Reason: "not a regular file"}
	}
	if src, err := os.Stat(e.Path); err == nil && os.SameFile(src, info) {
		return &ConflictError{Path: path, Reason: "destination is the source file"}
	}
	return nil
}

// target maps an entry onto destination root i.
func (j *CopyJob) target(i int, e Entry) string {
	root := j.destinations[i]
	switch j.roots[i] {
	case rootFile:
		return root
	case rootMissing:
		if !e.IsDir && j.single {
			return root
		}
	}
	return filepath.Join(root, e.Rel)
}

// targets maps an entry onto every destination root.
func (j *CopyJob) targets(e Entry) []string {
	out := make([]string, len(j.destinations))
	for i := range j.destinations {
		out[i] = j.target(i, e)
	}
	return out
}
