package fs_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsFile_ReportAndLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "stats.json")
	statsFile := fs.NewStatsFile(path)
	ctx := context.Background()

	snap := harvest.StatsSnapshot{
		PagesCrawled:       120,
		PagesFailed:        3,
		CodeFilesCollected: 7,
		TotalBytes:         2 * 1024 * 1024,
		DuplicatesSkipped:  5,
		StartTime:          time.Now().Add(-2 * time.Minute).UTC(),
	}
	require.NoError(t, statsFile.Report(ctx, snap))

	report, err := statsFile.LoadReport(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(120), report.PagesCrawled)
	assert.Equal(t, int64(3), report.PagesFailed)
	assert.Equal(t, int64(7), report.CodeFilesCollected)
	assert.Equal(t, int64(5), report.DuplicatesSkipped)
	assert.InDelta(t, 2.0, report.TotalMB, 0.01)
	assert.GreaterOrEqual(t, report.ElapsedSeconds, int64(119))
	assert.Greater(t, report.PagesPerMinute, 0.0)
}

func TestStatsFile_LoadReport_NotFound(t *testing.T) {
	t.Parallel()

	statsFile := fs.NewStatsFile(filepath.Join(t.TempDir(), "missing.json"))
	_, err := statsFile.LoadReport(context.Background())

	require.Error(t, err)
	assert.Equal(t, harvest.ENOTFOUND, harvest.ErrorCode(err))
}

func TestStatsFile_Report_ReplacesPrevious(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "stats.json")
	statsFile := fs.NewStatsFile(path)
	ctx := context.Background()

	start := time.Now().Add(-time.Minute).UTC()
	require.NoError(t, statsFile.Report(ctx, harvest.StatsSnapshot{PagesCrawled: 1, StartTime: start}))
	require.NoError(t, statsFile.Report(ctx, harvest.StatsSnapshot{PagesCrawled: 2, StartTime: start}))

	report, err := statsFile.LoadReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.PagesCrawled)
}
