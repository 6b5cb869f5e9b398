package harvest

import (
	"context"
	"math"
	"sync"
	"time"
)

// Statistics tracks the monotonically increasing counters of a crawl run.
// It is safe for concurrent use: the scheduler increments counters while
// the periodic report and checkpoint tasks read snapshots.
type Statistics struct {
	mu                 sync.Mutex
	pagesCrawled       int64
	pagesFailed        int64
	codeFilesCollected int64
	totalBytes         int64
	duplicatesSkipped  int64
	startTime          time.Time
}

// NewStatistics creates Statistics with the run start time fixed to now.
func NewStatistics() *Statistics {
	return &Statistics{startTime: time.Now().UTC()}
}

// RecordSaved accounts for a record written to the log: every record
// counts as a crawled page and contributes its size; code records
// additionally increment the code file counter.
func (s *Statistics) RecordSaved(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pagesCrawled++
	s.totalBytes += int64(rec.Size())
	if rec.RecordType() == RecordCode {
		s.codeFilesCollected++
	}
}

// RecordFailed increments the failed page counter.
func (s *Statistics) RecordFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pagesFailed++
}

// RecordDuplicate increments the duplicates skipped counter.
func (s *Statistics) RecordDuplicate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.duplicatesSkipped++
}

// StartTime returns the fixed run start time.
func (s *Statistics) StartTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startTime
}

// Snapshot returns a stable copy of the counters for serialization.
func (s *Statistics) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{
		PagesCrawled:       s.pagesCrawled,
		PagesFailed:        s.pagesFailed,
		CodeFilesCollected: s.codeFilesCollected,
		TotalBytes:         s.totalBytes,
		DuplicatesSkipped:  s.duplicatesSkipped,
		StartTime:          s.startTime,
	}
}

// Restore overwrites the counters and start time from a checkpoint.
// Called before a resumed run starts; never during one.
func (s *Statistics) Restore(snap StatsSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pagesCrawled = snap.PagesCrawled
	s.pagesFailed = snap.PagesFailed
	s.codeFilesCollected = snap.CodeFilesCollected
	s.totalBytes = snap.TotalBytes
	s.duplicatesSkipped = snap.DuplicatesSkipped
	if !snap.StartTime.IsZero() {
		s.startTime = snap.StartTime
	}
}

// StatsSnapshot is a point-in-time copy of the raw counters.
// Only raw values are stored; derived fields come from Report.
type StatsSnapshot struct {
	PagesCrawled       int64     `json:"pagesCrawled"`
	PagesFailed        int64     `json:"pagesFailed"`
	CodeFilesCollected int64     `json:"codeFilesCollected"`
	TotalBytes         int64     `json:"totalBytes"`
	DuplicatesSkipped  int64     `json:"duplicatesSkipped"`
	StartTime          time.Time `json:"startTime"`
}

// StatsReport is the derived view written to the stats file and pushed to
// the dashboard. Derived fields are computed on read, never stored.
type StatsReport struct {
	StatsSnapshot

	TotalMB        float64 `json:"totalMB"`
	ElapsedSeconds int64   `json:"elapsedSeconds"`
	ElapsedHours   float64 `json:"elapsedHours"`
	PagesPerMinute float64 `json:"pagesPerMinute"`
}

// Report computes the derived fields as of now.
func (s StatsSnapshot) Report(now time.Time) StatsReport {
	elapsed := now.Sub(s.StartTime)
	if elapsed < 0 {
		elapsed = 0
	}
	r := StatsReport{
		StatsSnapshot:  s,
		TotalMB:        round2(float64(s.TotalBytes) / (1024 * 1024)),
		ElapsedSeconds: int64(elapsed.Seconds()),
		ElapsedHours:   round2(elapsed.Hours()),
	}
	if elapsed > 0 {
		r.PagesPerMinute = round2(float64(s.PagesCrawled) / elapsed.Minutes())
	}
	return r
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// StatsSink receives periodic statistics snapshots. The scheduler fans the
// same snapshot out to all configured sinks: the stats file writer, the
// progress logger and the Prometheus exporter.
type StatsSink interface {
	Report(ctx context.Context, snap StatsSnapshot) error
}

// StatsReader loads the most recently written stats report.
// Returns ENOTFOUND if no report has been written yet.
type StatsReader interface {
	LoadReport(ctx context.Context) (*StatsReport, error)
}
