package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/crawl"
	"github.com/fwojciec/harvest/fs"
	"github.com/fwojciec/harvest/goquery"
	harvesthttp "github.com/fwojciec/harvest/http"
	harvestprom "github.com/fwojciec/harvest/prometheus"
	"github.com/fwojciec/harvest/readability"
	harvestslog "github.com/fwojciec/harvest/slog"
	"github.com/fwojciec/harvest/trafilatura"
	"github.com/fwojciec/harvest/whatlanggo"
)

// Run executes the crawl command.
func (c *CrawlCmd) Run(deps *Dependencies) error {
	cfg := deps.Config
	for _, seed := range c.Seed {
		cfg.SeedURLs = append(cfg.SeedURLs, seed)
		if host := hostOf(seed); host != "" && !harvest.AllowedHost(host, cfg.AllowedDomains) {
			cfg.AllowedDomains = append(cfg.AllowedDomains, host)
		}
	}
	if c.Duration > 0 {
		cfg.Runtime.Duration = harvest.DurationFrom(c.Duration)
	}

	logger, closeLog, err := newLogger(deps.Stderr, cfg.Output.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := context.WithCancel(deps.Ctx)
	defer cancel()

	fetchOpts := []harvesthttp.Option{
		harvesthttp.WithTimeout(cfg.Crawling.RequestTimeout.Duration),
		harvesthttp.WithRetryLimit(cfg.Crawling.RetryLimit),
		harvesthttp.WithMaxBodySize(cfg.DataQuality.MaxPageSizeBytes),
		harvesthttp.WithConcurrency(cfg.Crawling.MaxConcurrentRequests),
	}
	if len(cfg.Crawling.UserAgents) > 0 {
		fetchOpts = append(fetchOpts, harvesthttp.WithUserAgents(cfg.Crawling.UserAgents))
	}
	fetcher := harvestslog.NewLoggingFetcher(harvesthttp.NewFetcher(fetchOpts...), logger)
	defer fetcher.Close()

	var detector harvest.LanguageDetector
	if cfg.DataQuality.DetectLanguage {
		detector = whatlanggo.NewDetector()
	}
	var webpages harvest.Extractor
	switch cfg.DataQuality.Extractor {
	case harvest.ExtractorTrafilatura:
		webpages = trafilatura.NewExtractor(cfg.DataQuality.MinTextLength, detector)
	case harvest.ExtractorReadability:
		webpages = readability.NewExtractor(cfg.DataQuality.MinTextLength, detector)
	default:
		webpages = goquery.NewWebpageExtractor(cfg.DataQuality.MinTextLength, detector)
	}

	records := fs.NewRecordLog(cfg.Output.DataFile)
	defer records.Close()
	checkpoints := harvestslog.NewLoggingCheckpointStore(fs.NewCheckpointStore(cfg.Output.CheckpointFile), logger)

	stats := harvest.NewStatistics()
	frontier := crawl.NewFrontier(cfg.Crawling.MaxURLs)
	var dedup harvest.Deduplicator
	if cfg.DataQuality.RemoveDuplicates {
		dedup = crawl.NewFingerprintSet()
	}

	if c.Resume {
		if err := restore(ctx, checkpoints, records, frontier, stats, dedup, logger); err != nil {
			fmt.Fprintf(deps.Stderr, "error restoring checkpoint: %s\n", harvest.ErrorMessage(err))
			return err
		}
	}
	for _, seed := range cfg.SeedURLs {
		frontier.Add(seed)
	}
	if c.SeedSitemaps {
		seedFromSitemaps(ctx, cfg, frontier, logger)
	}

	sinks := []harvest.StatsSink{
		fs.NewStatsFile(cfg.Output.StatsFile),
		harvestslog.NewProgressSink(logger),
	}
	reg := prometheus.NewRegistry()
	promSink, err := harvestprom.NewStatsSink(reg)
	if err != nil {
		return err
	}
	sinks = append(sinks, promSink)

	if addr := cfg.Runtime.MetricsAddr; addr != "" {
		metricsSrv := &http.Server{Addr: addr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics_listener_failed", "addr", addr, "error", err)
			}
		}()
		defer metricsSrv.Close()
	}

	var limiter harvest.DomainLimiter
	if cfg.Crawling.PerDomainRPS > 0 {
		limiter = crawl.NewDomainLimiter(cfg.Crawling.PerDomainRPS)
	}

	sched := &crawl.Scheduler{
		Fetcher:     fetcher,
		Classifier:  harvest.NewClassifier(cfg.CodeExtensions),
		Webpages:    webpages,
		Code: &harvest.CodeExtractor{
			MinLength: cfg.DataQuality.MinCodeLength,
			MaxLength: cfg.DataQuality.MaxCodeLength,
			Detector:  detector,
		},
		Links:       goquery.NewLinkExtractor(cfg.AllowedDomains),
		Dedup:       dedup,
		Writer:      records,
		Checkpoints: checkpoints,
		Sinks:       sinks,
		Stats:       stats,
		Frontier:    frontier,
		Delay:       crawl.NewDelay(cfg.Crawling.MinDelay.Duration, cfg.Crawling.MaxDelay.Duration),
		Limiter:     limiter,
		Logger:      logger,

		Concurrency:        cfg.Crawling.MaxConcurrentRequests,
		MaxURLs:            cfg.Crawling.MaxURLs,
		RunDuration:        cfg.Runtime.Duration.Duration,
		CheckpointInterval: cfg.Runtime.CheckpointInterval.Duration,
		ReportInterval:     cfg.Runtime.ReportInterval.Duration,
		FollowLinks:        cfg.Crawling.FollowLinks,
	}

	stopSignals := notifyStop(ctx, cancel, sched, deps.Stderr)
	defer stopSignals()

	result, err := sched.Run(ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", harvest.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Crawl finished: %s\n", result.Reason)
	fmt.Fprintf(deps.Stdout, "  Saved %d pages and %d code files (%s) in %s\n",
		result.Stats.PagesCrawled, result.Stats.CodeFilesCollected,
		crawl.FormatBytes(result.Stats.TotalBytes), result.Elapsed.Round(time.Second))
	fmt.Fprintf(deps.Stdout, "  %d URLs visited, %d queued, %d failed, %d duplicates skipped\n",
		result.VisitedCount, result.PendingCount,
		result.Stats.PagesFailed, result.Stats.DuplicatesSkipped)
	return nil
}

// restore loads the checkpoint into the frontier and counters. A missing
// checkpoint is not an error; the run simply starts fresh. Fingerprints
// are not part of the checkpoint, so they are rebuilt by replaying the
// webpage records already in the record log.
func restore(ctx context.Context, checkpoints harvest.CheckpointStore, records *fs.RecordLog, frontier *crawl.Frontier, stats *harvest.Statistics, dedup harvest.Deduplicator, logger *slog.Logger) error {
	cp, err := checkpoints.Load(ctx)
	if err != nil {
		if harvest.ErrorCode(err) == harvest.ENOTFOUND {
			logger.Info("no_checkpoint_starting_fresh")
			return nil
		}
		return err
	}
	if err := frontier.Restore(cp); err != nil {
		return err
	}
	stats.Restore(cp.Stats)
	if dedup == nil {
		return nil
	}
	if err := records.ScanRecords(ctx, func(rec harvest.Record) error {
		if wp, ok := rec.(*harvest.WebpageRecord); ok {
			dedup.Admit(crawl.Fingerprint(wp.Content))
		}
		return nil
	}); err != nil {
		return err
	}
	logger.Info("fingerprints_rebuilt", "count", dedup.Len())
	return nil
}

// seedFromSitemaps adds every sitemap URL under the configured seeds to
// the frontier. Discovery failures are logged and skipped; a site without
// sitemaps is not an error.
func seedFromSitemaps(ctx context.Context, cfg harvest.Config, frontier *crawl.Frontier, logger *slog.Logger) {
	sitemaps := harvestslog.NewLoggingSitemapService(harvesthttp.NewSitemapService(nil), logger)
	for _, seed := range cfg.SeedURLs {
		urls, err := sitemaps.DiscoverURLs(ctx, seed)
		if err != nil {
			logger.Warn("sitemap_seeding_failed", "url", seed, "error", err)
			continue
		}
		for _, u := range urls {
			if harvest.AllowedHost(hostOf(u), cfg.AllowedDomains) {
				frontier.Add(u)
			}
		}
	}
}

// newLogger builds the run logger. When a log file is configured the
// logger writes to stderr and the file; the dashboard's log view tails
// that file.
func newLogger(stderr io.Writer, logPath string) (*slog.Logger, func(), error) {
	w := stderr
	closeFn := func() {}
	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, nil, fmt.Errorf("create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(stderr, f)
		closeFn = func() { f.Close() }
	}
	return slog.New(slog.NewTextHandler(w, nil)), closeFn, nil
}

// notifyStop wires the two-signal shutdown: the first SIGINT or SIGTERM
// asks the scheduler to stop after the current batch, a second one cancels
// the run context and abandons in-flight requests. The final checkpoint is
// written on both paths.
func notifyStop(ctx context.Context, cancel context.CancelFunc, sched *crawl.Scheduler, stderr io.Writer) func() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
		}
		fmt.Fprintln(stderr, "Stopping after the current batch; interrupt again to abandon it.")
		sched.Stop()
		select {
		case <-ctx.Done():
		case <-sigCh:
			fmt.Fprintln(stderr, "Abandoning in-flight requests.")
			cancel()
		}
	}()
	return func() { signal.Stop(sigCh) }
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
