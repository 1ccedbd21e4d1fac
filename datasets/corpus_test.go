package datasets_test

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Noofbiz/clipset/container"
	"github.com/Noofbiz/clipset/datasets"
)

func buildCorpus(t *testing.T, cfg datasets.Config) *datasets.Corpus {
	t.Helper()
	c, err := datasets.BuildCorpus(context.Background(), cfg, nil)
	require.NoError(t, err)
	return c
}

func TestBuildCorpus_Uniform(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeCorpus(t, dir, [][]int64{{5, 7, 9}, {9, 5, 7}})

	c := buildCorpus(t, datasets.Config{RootPath: dir})

	assert.Equal(t, 2, c.NumContainers())
	assert.Equal(t, 3, c.ExamplesPerContainer())
	assert.True(t, c.Uniform())
	assert.Equal(t, c.NumContainers()*c.ExamplesPerContainer(), c.Len())
	assert.Equal(t, 3, c.NumTargets())
	assert.Equal(t, []int64{5, 7, 9}, c.Targets())
	assert.Equal(t, map[int64]int{5: 2, 7: 2, 9: 2}, c.TargetCounts())
	assert.Equal(t, int64(5), c.TargetOffset())
	assert.Equal(t, dir, c.Root())

	var want int64
	for _, p := range c.Paths() {
		fi, err := os.Stat(p)
		require.NoError(t, err)
		want += fi.Size()
	}
	got, err := c.DiskUsage()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLocate(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeCorpus(t, dir, [][]int64{{1, 2, 3}, {4, 5, 6}})
	c := buildCorpus(t, datasets.Config{RootPath: dir})

	loc, err := c.Locate(4)
	require.NoError(t, err)
	assert.Equal(t, 1, loc.Container)
	assert.Equal(t, 1, loc.Example)
	assert.Equal(t, c.Paths()[1], loc.Path)

	n := c.ExamplesPerContainer()
	counts := c.Counts()
	for i := 0; i < c.Len(); i++ {
		loc, err := c.Locate(i)
		require.NoError(t, err)
		assert.Equal(t, i, loc.Container*n+loc.Example, "index %d", i)
		assert.Equal(t, i/n, loc.Container)
		assert.Equal(t, i%n, loc.Example)
		assert.Less(t, loc.Container, c.NumContainers())
		assert.Less(t, loc.Example, counts[loc.Container])
	}

	for _, bad := range []int{-1, c.Len(), c.Len() + 10} {
		_, err := c.Locate(bad)
		assert.ErrorIs(t, err, datasets.ErrOutOfRange, "index %d", bad)
	}
}

func TestBuildCorpus_UnevenContainers(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeCorpus(t, dir, [][]int64{{0, 1, 2}, {}, {3}, {4, 5}})
	c := buildCorpus(t, datasets.Config{RootPath: dir})

	assert.False(t, c.Uniform())
	assert.Equal(t, 3, c.ExamplesPerContainer())
	assert.Equal(t, []int{3, 0, 1, 2}, c.Counts())
	assert.Equal(t, 6, c.Len())

	want := []datasets.Location{
		{Container: 0, Example: 0}, {Container: 0, Example: 1}, {Container: 0, Example: 2},
		{Container: 2, Example: 0},
		{Container: 3, Example: 0}, {Container: 3, Example: 1},
	}
	for i, w := range want {
		loc, err := c.Locate(i)
		require.NoError(t, err)
		assert.Equal(t, w.Container, loc.Container, "index %d", i)
		assert.Equal(t, w.Example, loc.Example, "index %d", i)
	}
}

func TestBuildCorpus_Deterministic(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	// Written out of order; discovery must sort by path.
	for _, name := range []string{"b", "c", "a"} {
		writeContainer(t, filepath.Join(dir, name+container.Ext), 0, []int64{1, 2})
	}
	// Files not matching the pattern are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "d"+container.Ext), 0o755))

	c1 := buildCorpus(t, datasets.Config{RootPath: dir})
	c2 := buildCorpus(t, datasets.Config{RootPath: dir, ScanWorkers: 3})

	want := []string{
		filepath.Join(dir, "a"+container.Ext),
		filepath.Join(dir, "b"+container.Ext),
		filepath.Join(dir, "c"+container.Ext),
	}
	assert.Equal(t, want, c1.Paths())
	assert.Equal(t, c1.Paths(), c2.Paths())
	assert.Equal(t, c1.Len(), c2.Len())
	assert.Equal(t, c1.TargetCounts(), c2.TargetCounts())
}

func TestBuildCorpus_Empty(t *testing.T) {
	t.Parallel()

	t.Run("no files", func(t *testing.T) {
		t.Parallel()
		_, err := datasets.BuildCorpus(context.Background(), datasets.Config{RootPath: t.TempDir()}, nil)
		assert.ErrorIs(t, err, datasets.ErrEmptyCorpus)
		assert.ErrorIs(t, err, datasets.ErrConfiguration)
	})

	t.Run("no examples", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeCorpus(t, dir, [][]int64{{}, {}})
		_, err := datasets.BuildCorpus(context.Background(), datasets.Config{RootPath: dir}, nil)
		assert.ErrorIs(t, err, datasets.ErrEmptyCorpus)
	})
}

func TestBuildCorpus_BadRoot(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := datasets.BuildCorpus(context.Background(), datasets.Config{RootPath: filepath.Join(dir, "missing")}, nil)
	assert.ErrorIs(t, err, datasets.ErrConfiguration)

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = datasets.BuildCorpus(context.Background(), datasets.Config{RootPath: file}, nil)
	assert.ErrorIs(t, err, datasets.ErrConfiguration)

	_, err = datasets.BuildCorpus(context.Background(), datasets.Config{}, nil)
	assert.ErrorIs(t, err, datasets.ErrConfiguration)

	_, err = datasets.BuildCorpus(context.Background(), datasets.Config{RootPath: dir, Pattern: "[x"}, nil)
	assert.ErrorIs(t, err, datasets.ErrConfiguration)
}

func TestBuildCorpus_CorruptContainer(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeCorpus(t, dir, [][]int64{{1, 2}})
	bad := filepath.Join(dir, "z"+container.Ext)
	require.NoError(t, os.WriteFile(bad, []byte("this is not a container file"), 0o644))

	for _, workers := range []int{1, 4} {
		_, err := datasets.BuildCorpus(context.Background(), datasets.Config{RootPath: dir, ScanWorkers: workers}, nil)
		require.ErrorIs(t, err, datasets.ErrContainerRead)
		var cre *datasets.ContainerReadError
		require.ErrorAs(t, err, &cre)
		assert.Equal(t, bad, cre.Path)
		assert.ErrorIs(t, err, container.ErrBadMagic)
	}
}

func TestBuildCorpus_CorruptTrailerCount(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	paths := writeCorpus(t, dir, [][]int64{{1, 2}, {3}})

	data, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	// The entry count sits in the trailer, before the closing magic.
	binary.LittleEndian.PutUint32(data[len(data)-8:], 0xFFFFFFFF)
	require.NoError(t, os.WriteFile(paths[1], data, 0o644))

	_, err = datasets.BuildCorpus(context.Background(), datasets.Config{RootPath: dir, ScanWorkers: 2}, nil)
	require.ErrorIs(t, err, datasets.ErrContainerRead)
	assert.ErrorIs(t, err, container.ErrCorrupt)
	var cre *datasets.ContainerReadError
	require.ErrorAs(t, err, &cre)
	assert.Equal(t, paths[1], cre.Path)
}

func TestBuildCorpus_Cancelled(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeCorpus(t, dir, [][]int64{{1}, {2}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := datasets.BuildCorpus(ctx, datasets.Config{RootPath: dir}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "clipset.json")
	data := `{"root_path": "data", "spatial_size": 112, "temporal_size": 16, "scan_workers": 2}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := datasets.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.RootPath)
	assert.Equal(t, 112, cfg.SpatialSize)
	assert.Equal(t, 16, cfg.TemporalSize)
	assert.Equal(t, 2, cfg.ScanWorkers)
	assert.Equal(t, datasets.DefaultPattern, cfg.WithDefaults().Pattern)

	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err = datasets.LoadConfig(path)
	assert.ErrorIs(t, err, datasets.ErrConfiguration)

	_, err = datasets.LoadConfig(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, datasets.ErrConfiguration)

	assert.Error(t, datasets.Config{RootPath: dir, SpatialSize: -1}.Validate())
	assert.Error(t, datasets.Config{RootPath: dir, ScanWorkers: -1}.Validate())
}
