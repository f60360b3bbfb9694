// Package digest provides the fixed 128-bit content digests used for
// verification and digest cache entries.
package digest

import (
	"crypto/md5" //nolint:gosec // change detection only, not a security boundary
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Size is the digest length in bytes for every supported algorithm.
const Size = 16

// ErrUnknownAlgorithm is returned for an unsupported algorithm name.
var ErrUnknownAlgorithm = errors.New("unknown digest algorithm")

// Algorithm names a digest algorithm.
type Algorithm string

const (
	// BLAKE3 is BLAKE3 with its extendable output truncated to 128 bits.
	BLAKE3 Algorithm = "blake3"
	// MD5 matches checksums produced by md5sum.
	MD5 Algorithm = "md5"

	Default = BLAKE3
)

// Parse validates an algorithm name. The empty string selects Default.
func Parse(s string) (Algorithm, error) {
	switch a := Algorithm(s); a {
	case "":
		return Default, nil
	case BLAKE3, MD5:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}
}

// New returns a fresh accumulator for a.
//
//nolint:ireturn // hash.Hash is the standard accumulator interface
func (a Algorithm) New() (hash.Hash, error) {
	switch a {
	case BLAKE3:
		return &blake3Hash{Hasher: blake3.New()}, nil
	case MD5:
		return md5.New(), nil //nolint:gosec // change detection only
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(a))
	}
}

// File streams the file at path through a and returns the digest.
func (a Algorithm) File(path string) ([]byte, error) {
	h, err := a.New()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, 1024*1024)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return nil, fmt.Errorf("hash %s: %w", path, err)
	}
	return h.Sum(nil), nil
}

// Hex renders a digest for logs and error messages.
func Hex(d []byte) string {
	return hex.EncodeToString(d)
}

// blake3Hash truncates BLAKE3 output to Size bytes. BLAKE3's output is an
// XOF, so the prefix is itself a well-defined digest.
type blake3Hash struct {
	*blake3.Hasher
}

func (h *blake3Hash) Size() int { return Size }

func (h *blake3Hash) Sum(b []byte) []byte {
	var full [32]byte
	h.Hasher.Sum(full[:0])
	return append(b, full[:Size]...)
}
