package digestcache

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
)

const fileVersion = 1

// File is a Map persisted to disk. Paths ending in ".zst" are stored
// zstd-compressed.
type File struct {
	*Map
	path      string
	algorithm string
}

type fileFormat struct {
	Entries   map[string]string `json:"entries"`
	Algorithm string            `json:"algorithm"`
	Version   int               `json:"version"`
}

// Open loads the cache at path. A missing file yields an empty cache. A
// file written for a different digest algorithm is discarded, since its
// digests cannot be compared with new ones.
func Open(path, algorithm string) (*File, error) {
	c := &File{Map: NewMap(), path: path, algorithm: algorithm}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("no digest cache file", "path", path)
			return c, nil
		}
		return nil, fmt.Errorf("open digest cache: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if compressed(path) {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("digest cache %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}

	var ff fileFormat
	if err := json.NewDecoder(r).Decode(&ff); err != nil {
		return nil, fmt.Errorf("decode digest cache %s: %w", path, err)
	}

	if ff.Version != fileVersion || ff.Algorithm != algorithm {
		slog.Info("discarding digest cache",
			"path", path, "algorithm", ff.Algorithm, "version", ff.Version)
		return c, nil
	}

	for p, h := range ff.Entries {
		d, err := hex.DecodeString(h)
		if err != nil {
			return nil, fmt.Errorf("digest cache %s: entry %s: %w", path, p, err)
		}
		c.Put(p, d)
	}
	slog.Debug("loaded digest cache", "path", path, "entries", c.Len())
	return c, nil
}

// Path returns the file backing the cache.
func (c *File) Path() string { return c.path }

// Save writes the cache atomically (temp file + rename).
func (c *File) Save() error {
	snap := c.snapshot()
	ff := fileFormat{
		Version:   fileVersion,
		Algorithm: c.algorithm,
		Entries:   make(map[string]string, len(snap)),
	}
	for p, d := range snap {
		ff.Entries[p] = hex.EncodeToString(d)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create digest cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".digestcache-*")
	if err != nil {
		return fmt.Errorf("create digest cache: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename

	if err := c.encode(tmp, ff); err != nil {
		tmp.Close()
		return fmt.Errorf("write digest cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close digest cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("rename digest cache: %w", err)
	}
	return nil
}

func (c *File) encode(w io.Writer, ff fileFormat) error {
	if !compressed(c.path) {
		return json.NewEncoder(w).Encode(ff)
	}
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(zw).Encode(ff); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func compressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

// DefaultPath returns a per-source-set cache location under the user cache
// directory, so repeated copies of the same sources share one cache.
func DefaultPath(sourceRoots []string) (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}

	roots := append([]string(nil), sourceRoots...)
	sort.Strings(roots)
	sum := xxhash.Sum64String(strings.Join(roots, "\x00"))
	return filepath.Join(dir, "fanout", fmt.Sprintf("digests-%016x.json.zst", sum)), nil
}
