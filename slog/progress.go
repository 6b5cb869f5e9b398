package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/harvest"
)

// Ensure ProgressSink implements harvest.StatsSink.
var _ harvest.StatsSink = (*ProgressSink)(nil)

// ProgressSink logs each stats snapshot as a progress report, giving the
// crawl log a periodic heartbeat with throughput numbers.
type ProgressSink struct {
	logger *slog.Logger
}

// NewProgressSink creates a new ProgressSink.
func NewProgressSink(logger *slog.Logger) *ProgressSink {
	return &ProgressSink{logger: logger}
}

// Report implements harvest.StatsSink.
func (s *ProgressSink) Report(_ context.Context, snap harvest.StatsSnapshot) error {
	report := snap.Report(time.Now())
	s.logger.Info("progress_report",
		"pages_crawled", report.PagesCrawled,
		"pages_failed", report.PagesFailed,
		"code_files", report.CodeFilesCollected,
		"total_mb", report.TotalMB,
		"duplicates_skipped", report.DuplicatesSkipped,
		"elapsed_hours", report.ElapsedHours,
		"pages_per_minute", report.PagesPerMinute,
	)
	return nil
}
