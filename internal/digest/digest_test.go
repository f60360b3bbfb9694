package digest

import (
	"crypto/md5" //nolint:gosec // test compares against the reference implementation
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Algorithm
	}{
		{"", BLAKE3},
		{"blake3", BLAKE3},
		{"md5", MD5},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Parse("sha1")
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestNewUnknown(t *testing.T) {
	_, err := Algorithm("crc32").New()
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestDigestSize(t *testing.T) {
	for _, a := range []Algorithm{BLAKE3, MD5} {
		t.Run(string(a), func(t *testing.T) {
			h, err := a.New()
			require.NoError(t, err)
			_, _ = h.Write([]byte("hello world"))
			assert.Len(t, h.Sum(nil), Size)
			assert.Equal(t, Size, h.Size())
		})
	}
}

func TestBLAKE3IsTruncatedPrefix(t *testing.T) {
	data := []byte("hello world")
	h, err := BLAKE3.New()
	require.NoError(t, err)
	_, _ = h.Write(data)

	full := blake3.Sum256(data)
	assert.Equal(t, full[:Size], h.Sum(nil))
}

func TestSumAppends(t *testing.T) {
	h, err := BLAKE3.New()
	require.NoError(t, err)
	out := h.Sum([]byte{0xff})
	assert.Len(t, out, Size+1)
	assert.Equal(t, byte(0xff), out[0])
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0644))

	got, err := MD5.File(path)
	require.NoError(t, err)
	want := md5.Sum([]byte("hello world")) //nolint:gosec // reference value
	assert.Equal(t, want[:], got)

	// Same content, same digest; different content, different digest.
	path2 := filepath.Join(dir, "test2.txt")
	require.NoError(t, os.WriteFile(path2, []byte("hello world"), 0644))
	path3 := filepath.Join(dir, "test3.txt")
	require.NoError(t, os.WriteFile(path3, []byte("different content"), 0644))

	h1, err := BLAKE3.File(path)
	require.NoError(t, err)
	h2, err := BLAKE3.File(path2)
	require.NoError(t, err)
	h3, err := BLAKE3.File(path3)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}

func TestFileNotExist(t *testing.T) {
	_, err := BLAKE3.File("/nonexistent/file")
	assert.Error(t, err)
}

func TestHex(t *testing.T) {
	assert.Equal(t, "00ff10", Hex([]byte{0x00, 0xff, 0x10}))
}

func TestMD5MatchesMd5sum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abc")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	d, err := MD5.File(path)
	require.NoError(t, err)
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", Hex(d))
}
