//go:build linux

package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreallocate(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "dst"))
	require.NoError(t, err)
	defer f.Close()

	Preallocate(f, 1<<20)

	info, err := f.Stat()
	require.NoError(t, err)
	// Filesystems without fallocate leave the file untouched.
	assert.Contains(t, []int64{0, 1 << 20}, info.Size())

	_, err = f.WriteAt([]byte("x"), 0)
	require.NoError(t, err)
}
