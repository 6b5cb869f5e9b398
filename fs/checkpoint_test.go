package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointStore_SaveAndLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "checkpoint.json")
	store := fs.NewCheckpointStore(path)
	ctx := context.Background()

	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	cp := &harvest.Checkpoint{
		Timestamp: time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC),
		RunID:     "run-1",
		Visited:   []string{"https://example.com/a", "https://example.com/b"},
		Pending:   []string{"https://example.com/c"},
		FailureCounts: map[string]int{
			"https://example.com/flaky": 2,
		},
		Stats: harvest.StatsSnapshot{
			PagesCrawled: 2,
			TotalBytes:   4096,
			StartTime:    start,
		},
		StartTime: start,
	}

	require.NoError(t, store.Save(ctx, cp))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, "run-1", loaded.RunID)
	assert.Equal(t, cp.Visited, loaded.Visited)
	assert.Equal(t, cp.Pending, loaded.Pending)
	assert.Equal(t, cp.FailureCounts, loaded.FailureCounts)
	assert.Equal(t, int64(2), loaded.Stats.PagesCrawled)
	assert.Equal(t, int64(4096), loaded.Stats.TotalBytes)
	assert.True(t, loaded.Timestamp.Equal(cp.Timestamp))
	assert.True(t, loaded.StartTime.Equal(start))
}

func TestCheckpointStore_Load_NotFound(t *testing.T) {
	t.Parallel()

	store := fs.NewCheckpointStore(filepath.Join(t.TempDir(), "missing.json"))
	_, err := store.Load(context.Background())

	require.Error(t, err)
	assert.Equal(t, harvest.ENOTFOUND, harvest.ErrorCode(err))
}

func TestCheckpointStore_Load_Corrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "checkpoint.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	store := fs.NewCheckpointStore(path)
	_, err := store.Load(context.Background())

	require.Error(t, err)
	assert.Equal(t, harvest.EPERSISTENCE, harvest.ErrorCode(err))
}

func TestCheckpointStore_Save_RejectsInvalidCheckpoint(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "checkpoint.json")
	store := fs.NewCheckpointStore(path)

	cp := &harvest.Checkpoint{
		Visited: []string{"https://example.com/a"},
		Pending: []string{"https://example.com/a"},
	}
	err := store.Save(context.Background(), cp)

	require.Error(t, err)
	assert.Equal(t, harvest.EINVALID, harvest.ErrorCode(err))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCheckpointStore_Save_ReplacesAtomically(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.json")
	store := fs.NewCheckpointStore(path)
	ctx := context.Background()

	first := &harvest.Checkpoint{Visited: []string{"https://example.com/a"}, Pending: []string{}}
	second := &harvest.Checkpoint{Visited: []string{"https://example.com/a", "https://example.com/b"}, Pending: []string{}}

	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, second))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.Visited, 2)

	// No temp files left behind.
	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
