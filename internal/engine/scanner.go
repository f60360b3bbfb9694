package engine

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bamsammich/fanout/internal/event"
	"github.com/bamsammich/fanout/internal/pattern"
)

// Scanner expands sources into matched entries.
type Scanner struct {
	Logger *slog.Logger
	Events *event.Bus // receives a File change per scanned directory; may be nil
}

// BaseLength returns how many leading characters of an entry path belong
// to base, including the separator that follows it. A base that already
// ends in a separator (such as "/") is not given a second one.
func BaseLength(base string) int {
	if strings.HasSuffix(base, string(filepath.Separator)) {
		return len(base)
	}
	return len(base) + 1
}

// ScanSource expands a whole source. The base is made absolute first so
// entry paths and cache keys are absolute.
func (s *Scanner) ScanSource(src Source) (*DirectoryInfo, error) {
	if src.Pattern == nil {
		return nil, ErrMissingPattern
	}
	base, err := filepath.Abs(src.Base)
	if err != nil {
		return nil, err
	}
	info, err := s.Expand(BaseLength(base), base, src.Pattern, src.Recursive)
	if info != nil {
		info.Base = base
	}
	return info, err
}

// Expand lists the entries of dir whose path, minus its first baseLen
// characters, matches re. Matched directories are listed only when
// recursive is set; recursion into subdirectories happens whether or not
// they match. Entries are visited in the order the filesystem returns
// them.
//
// A missing, non-directory or unreadable dir yields (nil, nil) after a
// warning.
func (s *Scanner) Expand(baseLen int, dir string, re *regexp.Regexp, recursive bool) (*DirectoryInfo, error) {
	if re == nil {
		return nil, ErrMissingPattern
	}
	log := s.logger()

	info, err := os.Stat(dir)
	if err != nil {
		log.Warn("skipping source directory", "path", dir, "error", err)
		return nil, nil
	}
	if !info.IsDir() {
		log.Warn("skipping source: not a directory", "path", dir)
		return nil, nil
	}

	f, err := os.Open(dir)
	if err != nil {
		log.Warn("skipping unreadable directory", "path", dir, "error", err)
		return nil, nil
	}
	entries, err := f.ReadDir(-1)
	f.Close()
	if err != nil {
		log.Warn("skipping unreadable directory", "path", dir, "error", err)
		return nil, nil
	}

	s.Events.Fire(event.File, nil, dir)
	log.Debug("scanning", "dir", dir, "entries", len(entries))

	result := &DirectoryInfo{Base: dir}
	for _, de := range entries {
		path := filepath.Join(dir, de.Name())
		if len(path) < baseLen {
			continue
		}
		rel := path[baseLen:]

		fi, ok := s.resolve(log, path, de)
		if !ok {
			continue
		}
		matched := pattern.Match(re, rel)

		if fi.IsDir() {
			if matched && recursive {
				result.Entries = append(result.Entries, Entry{
					Path: path, Rel: rel, Mode: fi.Mode(), IsDir: true,
				})
			}
			if recursive {
				if child, err := s.Expand(baseLen, path, re, recursive); err != nil {
					return nil, err
				} else if child != nil {
					result.merge(child)
				}
			}
			continue
		}

		if matched {
			result.Entries = append(result.Entries, Entry{
				Path: path, Rel: rel, Size: fi.Size(), Mode: fi.Mode(),
			})
			result.Bytes += fi.Size()
		}
	}
	return result, nil
}

// resolve returns the FileInfo to scan de with. A symlink to a file is
// treated as that file; symlinked directories are not expanded. Anything
// other than a regular file or directory is skipped.
func (s *Scanner) resolve(log *slog.Logger, path string, de fs.DirEntry) (fs.FileInfo, bool) {
	var (
		fi  fs.FileInfo
		err error
	)
	if de.Type()&fs.ModeSymlink != 0 {
		fi, err = os.Stat(path)
		if err != nil {
			log.Warn("skipping broken symlink", "path", path, "error", err)
			return nil, false
		}
		if fi.IsDir() {
			log.Debug("skipping symlinked directory", "path", path)
			return nil, false
		}
	} else {
		fi, err = de.Info()
		if err != nil {
			log.Warn("skipping entry", "path", path, "error", err)
			return nil, false
		}
	}
	if !fi.IsDir() && !fi.Mode().IsRegular() {
		log.Debug("skipping special file", "path", path, "mode", fi.Mode().Type())
		return nil, false
	}
	return fi, true
}

func (s *Scanner) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
