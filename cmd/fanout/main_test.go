package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/fanout/internal/config"
	"github.com/bamsammich/fanout/internal/digest"
	"github.com/bamsammich/fanout/internal/digestcache"
	"github.com/bamsammich/fanout/internal/engine"
)

func TestSourceSpecs(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a+b.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	specs, err := sourceSpecs([]string{dir, file}, "", "", true)
	require.NoError(t, err)
	require.Len(t, specs, 2)

	assert.Equal(t, config.SourceSpec{Base: dir, Pattern: ".*", Recursive: true}, specs[0])
	assert.Equal(t, config.SourceSpec{Base: dir, Pattern: `a\+b\.txt`}, specs[1])

	src, err := specs[1].Source()
	require.NoError(t, err)
	assert.True(t, src.Pattern.MatchString("a+b.txt"))
	assert.False(t, src.Pattern.MatchString("aab.txt"))
}

func TestSourceSpecsGlob(t *testing.T) {
	dir := t.TempDir()

	specs, err := sourceSpecs([]string{dir}, "", "**/*.jpg", false)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Empty(t, specs[0].Pattern)
	assert.Equal(t, "**/*.jpg", specs[0].Glob)
}

func TestSourceSpecsMissing(t *testing.T) {
	_, err := sourceSpecs([]string{filepath.Join(t.TempDir(), "nope")}, "", "", false)
	require.Error(t, err)
}

func TestApplyConfigDefaults(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	var o options
	o.register(flags)
	require.NoError(t, flags.Parse([]string{"--digest", "md5"}))

	yes, no := true, false
	cache, evict := "auto", "none"
	blake := "blake3"
	applyConfigDefaults(flags, config.DefaultsConfig{
		Verify:      &yes,
		Digest:      &blake,
		Cache:       &cache,
		Evict:       &evict,
		ZeroCopy:    &no,
		Preallocate: &yes,
	}, &o)

	assert.True(t, o.verify)
	assert.Equal(t, "md5", o.digestName, "explicit flag wins over config")
	assert.Equal(t, "auto", o.cache)
	assert.Equal(t, "none", o.evict)
	assert.True(t, o.noZeroCopy)
	assert.True(t, o.preallocate)
}

func TestOpenCache(t *testing.T) {
	cache, save, err := openCache(cacheOff, digest.BLAKE3, nil)
	require.NoError(t, err)
	assert.Nil(t, cache)
	require.NoError(t, save())

	cache, _, err = openCache(cacheMemory, digest.BLAKE3, nil)
	require.NoError(t, err)
	assert.IsType(t, &digestcache.Map{}, cache)

	path := filepath.Join(t.TempDir(), "digests.json.zst")
	cache, save, err = openCache(path, digest.BLAKE3, nil)
	require.NoError(t, err)
	cache.Put("/src/a", []byte("0123456789abcdef"))
	require.NoError(t, save())

	reopened, err := digestcache.Open(path, string(digest.BLAKE3))
	require.NoError(t, err)
	got, ok := reopened.Get("/src/a")
	require.True(t, ok)
	assert.Equal(t, []byte("0123456789abcdef"), got)
}

func TestOpenCacheAuto(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	src, err := engine.NewSource(t.TempDir(), ".*", false)
	require.NoError(t, err)
	job, err := engine.NewCopyJob([]engine.Source{src}, []string{t.TempDir()})
	require.NoError(t, err)

	cache, save, err := openCache(cacheAuto, digest.MD5, []*engine.CopyJob{job})
	require.NoError(t, err)
	require.IsType(t, &digestcache.File{}, cache)
	require.NoError(t, save())

	want, err := digestcache.DefaultPath([]string{src.Base})
	require.NoError(t, err)
	assert.Equal(t, want, cache.(*digestcache.File).Path())
	assert.FileExists(t, want)
}

func TestGenDocs(t *testing.T) {
	root := &cobra.Command{Use: "fanout", Run: func(*cobra.Command, []string) {}}
	root.AddCommand(newRunCmd(&options{}))

	dir := t.TempDir()
	require.NoError(t, genDocs(root, dir, "markdown"))
	assert.FileExists(t, filepath.Join(dir, "fanout.md"))
	assert.FileExists(t, filepath.Join(dir, "fanout_run.md"))

	require.Error(t, genDocs(root, dir, "html"))
}
