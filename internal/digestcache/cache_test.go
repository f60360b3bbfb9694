package digestcache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapGetPut(t *testing.T) {
	m := NewMap()
	_, ok := m.Get("/src/a")
	assert.False(t, ok)

	d := []byte{1, 2, 3}
	m.Put("/src/a", d)
	d[0] = 9 // caller mutation must not leak in

	got, ok := m.Get("/src/a")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, got)
	assert.Equal(t, 1, m.Len())

	m.Clear()
	assert.Equal(t, 0, m.Len())
}

func TestMapZeroValue(t *testing.T) {
	var m Map
	m.Put("/x", []byte{1})
	_, ok := m.Get("/x")
	assert.True(t, ok)
}

func TestMapConcurrent(t *testing.T) {
	m := NewMap()
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := filepath.Join("/src", string(rune('a'+i)))
			for range 100 {
				m.Put(p, []byte{byte(i)})
				_, _ = m.Get(p)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, m.Len())
}

func TestFileRoundTrip(t *testing.T) {
	for _, name := range []string{"cache.json", "cache.json.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)

			c, err := Open(path, "blake3")
			require.NoError(t, err)
			assert.Equal(t, 0, c.Len())
			assert.Equal(t, path, c.Path())

			c.Put("/src/a.txt", []byte{0xde, 0xad, 0xbe, 0xef})
			c.Put("/src/b.txt", []byte{0x01})
			require.NoError(t, c.Save())

			reopened, err := Open(path, "blake3")
			require.NoError(t, err)
			assert.Equal(t, 2, reopened.Len())
			got, ok := reopened.Get("/src/a.txt")
			require.True(t, ok)
			assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, got)
		})
	}
}

func TestFileAlgorithmMismatchDiscards(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	c, err := Open(path, "md5")
	require.NoError(t, err)
	c.Put("/src/a.txt", []byte{1})
	require.NoError(t, c.Save())

	reopened, err := Open(path, "blake3")
	require.NoError(t, err)
	assert.Equal(t, 0, reopened.Len())
}

func TestFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Open(path, "blake3")
	assert.Error(t, err)
}

func TestDefaultPathStable(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/custom/cache")
	t.Setenv("HOME", "/home/test")

	a, err := DefaultPath([]string{"/src/b", "/src/a"})
	require.NoError(t, err)
	b, err := DefaultPath([]string{"/src/a", "/src/b"})
	require.NoError(t, err)
	c, err := DefaultPath([]string{"/src/c"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, filepath.IsAbs(a))
	assert.Equal(t, ".zst", filepath.Ext(a))
}
