package mock

import (
	"context"

	"github.com/fwojciec/harvest"
)

var _ harvest.RecordWriter = (*RecordWriter)(nil)

// RecordWriter is a mock implementation of harvest.RecordWriter.
type RecordWriter struct {
	WriteFn func(ctx context.Context, rec harvest.Record) error
}

func (w *RecordWriter) Write(ctx context.Context, rec harvest.Record) error {
	return w.WriteFn(ctx, rec)
}

var _ harvest.CheckpointStore = (*CheckpointStore)(nil)

// CheckpointStore is a mock implementation of harvest.CheckpointStore.
type CheckpointStore struct {
	SaveFn func(ctx context.Context, cp *harvest.Checkpoint) error
	LoadFn func(ctx context.Context) (*harvest.Checkpoint, error)
}

func (s *CheckpointStore) Save(ctx context.Context, cp *harvest.Checkpoint) error {
	return s.SaveFn(ctx, cp)
}

func (s *CheckpointStore) Load(ctx context.Context) (*harvest.Checkpoint, error) {
	return s.LoadFn(ctx)
}

var _ harvest.StatsSink = (*StatsSink)(nil)

// StatsSink is a mock implementation of harvest.StatsSink.
type StatsSink struct {
	ReportFn func(ctx context.Context, snap harvest.StatsSnapshot) error
}

func (s *StatsSink) Report(ctx context.Context, snap harvest.StatsSnapshot) error {
	if s.ReportFn == nil {
		return nil
	}
	return s.ReportFn(ctx, snap)
}

var _ harvest.RecordReader = (*RecordReader)(nil)

// RecordReader is a mock implementation of harvest.RecordReader.
type RecordReader struct {
	TailRecordsFn  func(ctx context.Context, n int) ([]harvest.Record, error)
	CountRecordsFn func(ctx context.Context) (int, error)
}

func (r *RecordReader) TailRecords(ctx context.Context, n int) ([]harvest.Record, error) {
	return r.TailRecordsFn(ctx, n)
}

func (r *RecordReader) CountRecords(ctx context.Context) (int, error) {
	return r.CountRecordsFn(ctx)
}

var _ harvest.StatsReader = (*StatsReader)(nil)

// StatsReader is a mock implementation of harvest.StatsReader.
type StatsReader struct {
	LoadReportFn func(ctx context.Context) (*harvest.StatsReport, error)
}

func (s *StatsReader) LoadReport(ctx context.Context) (*harvest.StatsReport, error) {
	return s.LoadReportFn(ctx)
}

var _ harvest.LogTailer = (*LogTailer)(nil)

// LogTailer is a mock implementation of harvest.LogTailer.
type LogTailer struct {
	TailFn func(ctx context.Context, n int) ([]string, error)
}

func (l *LogTailer) Tail(ctx context.Context, n int) ([]string, error) {
	return l.TailFn(ctx, n)
}
