// Package crawl implements the crawl engine: the URL frontier, politeness
// and rate limiting, content deduplication and the batch scheduler that
// drives fetching, extraction and persistence.
package crawl

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/fwojciec/harvest"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// RunState is the lifecycle state of a Scheduler.
type RunState int32

const (
	StateIdle RunState = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// StopReason explains why a run ended.
type StopReason string

const (
	StopFrontierExhausted StopReason = "frontier_exhausted"
	StopMaxURLs           StopReason = "max_urls_reached"
	StopDurationElapsed   StopReason = "duration_elapsed"
	StopRequested         StopReason = "stop_requested"
	StopCanceled          StopReason = "canceled"
)

// Result holds the outcome of a completed run.
type Result struct {
	Stats        harvest.StatsSnapshot
	VisitedCount int
	PendingCount int
	Elapsed      time.Duration
	Reason       StopReason
}

// Scheduler drives the crawl: it pops batches of URLs from the frontier,
// fans them out to a bounded worker pool for fetching and extraction, and
// applies every state mutation itself. Workers only fetch and parse;
// frontier updates, dedup admission, record writes and counters all happen
// on the scheduler's own goroutine, which keeps the record log serialized
// and the frontier invariant easy to reason about.
type Scheduler struct {
	Fetcher     harvest.Fetcher
	Classifier  *harvest.Classifier
	Webpages    harvest.Extractor
	Code        harvest.Extractor
	Links       harvest.LinkExtractor
	Dedup       harvest.Deduplicator
	Writer      harvest.RecordWriter
	Checkpoints harvest.CheckpointStore
	Sinks       []harvest.StatsSink
	Stats       *harvest.Statistics
	Frontier    *Frontier
	Delay       *Delay
	Limiter     harvest.DomainLimiter
	Logger      *slog.Logger

	Concurrency int
	MaxURLs     int

	// RunDuration is the wall-clock budget for this run; zero means
	// unlimited. Like all stop conditions it is checked at batch
	// boundaries only, so an in-flight batch always completes.
	RunDuration time.Duration

	CheckpointInterval time.Duration
	ReportInterval     time.Duration
	FollowLinks        bool

	state atomic.Int32
	runID string
}

// outcome is what a worker hands back to the scheduler for one URL.
type outcome struct {
	url   string
	rec   harvest.Record
	links []string
	err   error
}

// Run executes the crawl until a stop condition is met: frontier empty,
// max URLs visited, run duration elapsed, Stop called, or context
// canceled. A final checkpoint and stats report are written however the
// run ends. A Scheduler runs at most once.
func (s *Scheduler) Run(ctx context.Context) (*Result, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return nil, harvest.Errorf(harvest.EINTERNAL, "scheduler has already run")
	}
	defer s.state.Store(int32(StateStopped))

	logger := s.logger()
	start := time.Now()
	s.runID = uuid.NewString()

	logger.Info("crawl_started",
		slog.String("run_id", s.runID),
		slog.Int("pending", s.Frontier.PendingCount()),
		slog.Int("visited", s.Frontier.VisitedCount()),
		slog.Int("concurrency", s.Concurrency),
	)

	taskCtx, stopTasks := context.WithCancel(ctx)
	defer stopTasks()

	var tasks errgroup.Group
	if s.CheckpointInterval > 0 {
		tasks.Go(func() error {
			s.checkpointLoop(taskCtx)
			return nil
		})
	}
	if s.ReportInterval > 0 {
		tasks.Go(func() error {
			s.reportLoop(taskCtx)
			return nil
		})
	}

	reason := s.loop(ctx, start)

	stopTasks()
	_ = tasks.Wait()

	// The final checkpoint and report must go through even when the run
	// was canceled, so crash recovery sees the latest state. A failed save
	// leaves the last periodic checkpoint in place; resume redoes the gap.
	final := context.WithoutCancel(ctx)
	s.report(final)
	if err := s.saveCheckpoint(final); err != nil {
		logger.Error("final_checkpoint_failed",
			slog.String("run_id", s.runID),
			slog.Any("error", err),
		)
	}

	elapsed := time.Since(start)
	snap := s.Stats.Snapshot()
	logger.Info("crawl_finished",
		slog.String("run_id", s.runID),
		slog.String("reason", string(reason)),
		slog.Int64("pages_crawled", snap.PagesCrawled),
		slog.Int64("pages_failed", snap.PagesFailed),
		slog.Duration("elapsed", elapsed),
	)

	return &Result{
		Stats:        snap,
		VisitedCount: s.Frontier.VisitedCount(),
		PendingCount: s.Frontier.PendingCount(),
		Elapsed:      elapsed,
		Reason:       reason,
	}, nil
}

// Stop requests a graceful halt: the current batch finishes, a final
// checkpoint is written and Run returns. Safe to call from any goroutine.
func (s *Scheduler) Stop() {
	s.state.CompareAndSwap(int32(StateRunning), int32(StateStopping))
}

// State returns the scheduler's lifecycle state.
func (s *Scheduler) State() RunState {
	return RunState(s.state.Load())
}

// loop runs batches until a stop condition holds. Conditions are only
// evaluated between batches.
func (s *Scheduler) loop(ctx context.Context, start time.Time) StopReason {
	for {
		switch {
		case ctx.Err() != nil:
			return StopCanceled
		case RunState(s.state.Load()) == StateStopping:
			return StopRequested
		case s.RunDuration > 0 && time.Since(start) >= s.RunDuration:
			return StopDurationElapsed
		case s.MaxURLs > 0 && s.Frontier.VisitedCount() >= s.MaxURLs:
			return StopMaxURLs
		}

		batch := s.Frontier.NextBatch(2 * s.Concurrency)
		if len(batch) == 0 {
			return StopFrontierExhausted
		}

		s.runBatch(ctx, batch)
	}
}

// runBatch fans the batch out to at most Concurrency workers and applies
// their outcomes as they arrive on the scheduler goroutine.
func (s *Scheduler) runBatch(ctx context.Context, batch []string) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Concurrency)

	resultCh := make(chan outcome, len(batch))
	go func() {
		for _, u := range batch {
			u := u
			g.Go(func() error {
				resultCh <- s.processURL(gctx, u)
				return nil
			})
		}
		_ = g.Wait()
		close(resultCh)
	}()

	for out := range resultCh {
		s.apply(ctx, out)
	}
}

// processURL is the worker side of the pipeline: politeness delay, rate
// limit, fetch, classify, extract, discover links. It mutates no shared
// state.
func (s *Scheduler) processURL(ctx context.Context, rawURL string) outcome {
	out := outcome{url: rawURL}

	if s.Delay != nil {
		if err := s.Delay.Wait(ctx); err != nil {
			out.err = err
			return out
		}
	}

	if s.Limiter != nil {
		u, err := url.Parse(rawURL)
		if err != nil {
			out.err = harvest.Errorf(harvest.EINVALID, "invalid URL %q: %v", rawURL, err)
			return out
		}
		if err := s.Limiter.Wait(ctx, u.Host); err != nil {
			out.err = err
			return out
		}
	}

	body, err := s.Fetcher.Fetch(ctx, rawURL)
	if err != nil {
		out.err = err
		return out
	}

	extractor := s.Webpages
	if s.Classifier.Classify(rawURL) == harvest.KindCode {
		extractor = s.Code
	}

	rec, err := extractor.Extract(rawURL, body)
	if err != nil {
		out.err = err
		return out
	}
	out.rec = rec

	if s.FollowLinks && s.Links != nil && rec.RecordType() == harvest.RecordWebpage {
		links, err := s.Links.ExtractLinks(body, rawURL)
		if err != nil {
			s.logger().Debug("link_extraction_failed",
				slog.String("url", rawURL),
				slog.Any("error", err),
			)
		} else {
			out.links = links
		}
	}

	return out
}

// apply folds one outcome into the crawl state. Rejections are consumed
// quietly, failures are counted against the URL, and admitted records are
// written before their links enter the frontier. Nothing here ends the
// run: even a record write failure only costs the one page.
func (s *Scheduler) apply(ctx context.Context, out outcome) {
	logger := s.logger()

	if out.err != nil {
		// A worker interrupted by shutdown has not failed its page.
		if ctx.Err() != nil && errors.Is(out.err, context.Canceled) {
			return
		}
		if harvest.IsRejection(out.err) {
			if harvest.ErrorCode(out.err) == harvest.EDUPLICATE {
				s.Stats.RecordDuplicate()
			}
			logger.Debug("page_rejected",
				slog.String("url", out.url),
				slog.String("code", harvest.ErrorCode(out.err)),
				slog.String("reason", harvest.ErrorMessage(out.err)),
			)
			return
		}

		s.Stats.RecordFailed()
		failures := s.Frontier.RecordFailure(out.url)
		logger.Warn("page_failed",
			slog.String("url", out.url),
			slog.String("code", harvest.ErrorCode(out.err)),
			slog.String("error", harvest.ErrorMessage(out.err)),
			slog.Int("failures", failures),
		)
		return
	}

	if wp, ok := out.rec.(*harvest.WebpageRecord); ok && s.Dedup != nil {
		if !s.Dedup.Admit(Fingerprint(wp.Content)) {
			s.Stats.RecordDuplicate()
			logger.Debug("duplicate_skipped", slog.String("url", out.url))
			return
		}
	}

	if err := s.Writer.Write(ctx, out.rec); err != nil {
		// Best-effort durability: the page is lost but the crawl goes on.
		// Its links are dropped with it, same as any other unadmitted page.
		logger.Error("record_write_failed",
			slog.String("url", out.url),
			slog.Any("error", err),
		)
		return
	}
	s.Stats.RecordSaved(out.rec)

	for _, link := range out.links {
		s.Frontier.Add(link)
	}
}

func (s *Scheduler) checkpointLoop(ctx context.Context) {
	ticker := time.NewTicker(s.CheckpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.saveCheckpoint(ctx); err != nil {
				s.logger().Error("checkpoint_failed", slog.Any("error", err))
			}
		}
	}
}

func (s *Scheduler) reportLoop(ctx context.Context) {
	ticker := time.NewTicker(s.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.report(ctx)
		}
	}
}

// report fans the current stats snapshot out to every sink. Sink errors
// never interrupt the crawl.
func (s *Scheduler) report(ctx context.Context) {
	snap := s.Stats.Snapshot()
	for _, sink := range s.Sinks {
		if err := sink.Report(ctx, snap); err != nil {
			s.logger().Warn("stats_report_failed", slog.Any("error", err))
		}
	}
}

// saveCheckpoint snapshots the frontier and counters into a checkpoint
// document.
func (s *Scheduler) saveCheckpoint(ctx context.Context) error {
	visited, pending, failures := s.Frontier.Snapshot()
	cp := &harvest.Checkpoint{
		Timestamp:     time.Now().UTC(),
		RunID:         s.runID,
		Visited:       visited,
		Pending:       pending,
		FailureCounts: failures,
		Stats:         s.Stats.Snapshot(),
		StartTime:     s.Stats.StartTime(),
	}
	return s.Checkpoints.Save(ctx, cp)
}

func (s *Scheduler) validate() error {
	switch {
	case s.Fetcher == nil:
		return harvest.Errorf(harvest.EINVALID, "scheduler requires a fetcher")
	case s.Classifier == nil:
		return harvest.Errorf(harvest.EINVALID, "scheduler requires a classifier")
	case s.Webpages == nil:
		return harvest.Errorf(harvest.EINVALID, "scheduler requires a webpage extractor")
	case s.Code == nil:
		return harvest.Errorf(harvest.EINVALID, "scheduler requires a code extractor")
	case s.Writer == nil:
		return harvest.Errorf(harvest.EINVALID, "scheduler requires a record writer")
	case s.Checkpoints == nil:
		return harvest.Errorf(harvest.EINVALID, "scheduler requires a checkpoint store")
	case s.Stats == nil:
		return harvest.Errorf(harvest.EINVALID, "scheduler requires statistics")
	case s.Frontier == nil:
		return harvest.Errorf(harvest.EINVALID, "scheduler requires a frontier")
	case s.Concurrency <= 0:
		return harvest.Errorf(harvest.EINVALID, "scheduler concurrency must be > 0")
	case s.FollowLinks && s.Links == nil:
		return harvest.Errorf(harvest.EINVALID, "link following requires a link extractor")
	}
	return nil
}

func (s *Scheduler) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
