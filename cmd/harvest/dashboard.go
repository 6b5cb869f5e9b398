package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fwojciec/harvest/fs"
	harvesthttp "github.com/fwojciec/harvest/http"
)

// Run executes the dashboard command. The dashboard is a separate process
// that observes a crawl strictly through its output files, so it can run
// alongside the crawl or after it finished.
func (c *DashboardCmd) Run(deps *Dependencies) error {
	cfg := deps.Config
	if c.Addr != "" {
		cfg.Dashboard.Addr = c.Addr
	}

	logger := slog.New(slog.NewTextHandler(deps.Stderr, nil))

	dash := harvesthttp.NewDashboard(
		fs.NewCheckpointStore(cfg.Output.CheckpointFile),
		fs.NewRecordLog(cfg.Output.DataFile),
		fs.NewStatsFile(cfg.Output.StatsFile),
		fs.NewLogFile(cfg.Output.LogFile),
		cfg,
		logger,
	)

	srv := &http.Server{Addr: cfg.Dashboard.Addr, Handler: dash.Handler()}

	ctx, stop := signal.NotifyContext(deps.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	fmt.Fprintf(deps.Stdout, "Dashboard listening on %s\n", cfg.Dashboard.Addr)

	select {
	case err := <-errCh:
		return fmt.Errorf("dashboard server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("dashboard shutdown: %w", err)
	}
	return nil
}
