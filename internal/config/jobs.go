package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/bamsammich/fanout/internal/engine"
)

// JobFile lists copy jobs to run in one invocation:
//
//	[[job]]
//	destinations = ["/mnt/a", "/mnt/b"]
//
//	  [[job.source]]
//	  base = "/data/photos"
//	  glob = "**/*.jpg"
//	  recursive = true
type JobFile struct {
	Jobs []Job `toml:"job"`
}

// Job is one set of sources copied to the same destinations.
type Job struct {
	Destinations []string     `toml:"destinations"`
	Sources      []SourceSpec `toml:"source"`
}

// SourceSpec selects entries below Base by regular expression (Pattern)
// or shell glob (Glob); exactly one must be set.
type SourceSpec struct {
	Base      string `toml:"base"`
	Pattern   string `toml:"pattern,omitempty"`
	Glob      string `toml:"glob,omitempty"`
	Recursive bool   `toml:"recursive"`
}

// Source compiles the spec.
func (s SourceSpec) Source() (engine.Source, error) {
	switch {
	case s.Base == "":
		return engine.Source{}, errors.New("source has no base")
	case s.Pattern != "" && s.Glob != "":
		return engine.Source{}, fmt.Errorf("source %s: pattern and glob are exclusive", s.Base)
	case s.Glob != "":
		return engine.GlobSource(s.Base, s.Glob, s.Recursive)
	default:
		return engine.NewSource(s.Base, s.Pattern, s.Recursive)
	}
}

// CopyJobs builds the engine jobs described by the file.
func (f JobFile) CopyJobs() ([]*engine.CopyJob, error) {
	if len(f.Jobs) == 0 {
		return nil, errors.New("job file defines no jobs")
	}
	jobs := make([]*engine.CopyJob, 0, len(f.Jobs))
	for i, j := range f.Jobs {
		sources := make([]engine.Source, 0, len(j.Sources))
		for _, spec := range j.Sources {
			src, err := spec.Source()
			if err != nil {
				return nil, fmt.Errorf("job %d: %w", i+1, err)
			}
			sources = append(sources, src)
		}
		job, err := engine.NewCopyJob(sources, j.Destinations)
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", i+1, err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// ReadJobs decodes a job file.
func ReadJobs(path string) (JobFile, error) {
	var f JobFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return JobFile{}, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return JobFile{}, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	return f, nil
}

// WriteJobs encodes f to path, creating the parent directory if needed.
func WriteJobs(path string, f JobFile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create job dir: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(f); err != nil {
		return fmt.Errorf("encode jobs: %w", err)
	}

	//nolint:gosec // G306: job files hold no secrets
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
