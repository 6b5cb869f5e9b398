package fs

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/fwojciec/harvest"
)

// Ensure StatsFile implements both stats interfaces at compile time.
var (
	_ harvest.StatsSink   = (*StatsFile)(nil)
	_ harvest.StatsReader = (*StatsFile)(nil)
)

// StatsFile persists the derived stats report as a JSON document that the
// dashboard and the stats subcommand read back.
type StatsFile struct {
	path string
}

// NewStatsFile creates a StatsFile at path.
func NewStatsFile(path string) *StatsFile {
	return &StatsFile{path: path}
}

// Report implements harvest.StatsSink: it derives the report from the
// snapshot as of now and atomically replaces the stats file.
func (s *StatsFile) Report(ctx context.Context, snap harvest.StatsSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	report := snap.Report(time.Now())
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return harvest.Errorf(harvest.EINTERNAL, "marshal stats report: %v", err)
	}
	return atomicWriteFile(s.path, data)
}

// LoadReport implements harvest.StatsReader.
func (s *StatsFile) LoadReport(ctx context.Context) (*harvest.StatsReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, harvest.Errorf(harvest.ENOTFOUND, "no stats report at %s", s.path)
		}
		return nil, harvest.Errorf(harvest.EPERSISTENCE, "read stats report: %v", err)
	}

	var report harvest.StatsReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, harvest.Errorf(harvest.EPERSISTENCE, "parse stats report %s: %v", s.path, err)
	}
	return &report, nil
}
