package main

import (
	"fmt"
	"time"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/crawl"
	"github.com/fwojciec/harvest/fs"
)

// Run executes the stats command.
func (c *StatsCmd) Run(deps *Dependencies) error {
	cfg := deps.Config
	ctx := deps.Ctx

	report, err := fs.NewStatsFile(cfg.Output.StatsFile).LoadReport(ctx)
	if err != nil {
		if harvest.ErrorCode(err) == harvest.ENOTFOUND {
			fmt.Fprintln(deps.Stdout, "No stats report yet. Run 'harvest crawl' first.")
			return nil
		}
		return err
	}

	fmt.Fprintf(deps.Stdout, "Pages crawled:      %d\n", report.PagesCrawled)
	fmt.Fprintf(deps.Stdout, "Pages failed:       %d\n", report.PagesFailed)
	fmt.Fprintf(deps.Stdout, "Code files:         %d\n", report.CodeFilesCollected)
	fmt.Fprintf(deps.Stdout, "Duplicates skipped: %d\n", report.DuplicatesSkipped)
	fmt.Fprintf(deps.Stdout, "Collected:          %s\n", crawl.FormatBytes(report.TotalBytes))
	fmt.Fprintf(deps.Stdout, "Elapsed:            %s\n", time.Duration(report.ElapsedSeconds)*time.Second)
	fmt.Fprintf(deps.Stdout, "Rate:               %.2f pages/min\n", report.PagesPerMinute)

	cp, err := fs.NewCheckpointStore(cfg.Output.CheckpointFile).Load(ctx)
	if err != nil {
		if harvest.ErrorCode(err) == harvest.ENOTFOUND {
			return nil
		}
		return err
	}
	fmt.Fprintf(deps.Stdout, "Visited URLs:       %d\n", len(cp.Visited))
	fmt.Fprintf(deps.Stdout, "Queued URLs:        %d\n", len(cp.Pending))
	return nil
}
