package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/harvest"
)

// Ensure LoggingCheckpointStore implements harvest.CheckpointStore.
var _ harvest.CheckpointStore = (*LoggingCheckpointStore)(nil)

// LoggingCheckpointStore wraps a CheckpointStore with logging, so the log
// shows when crawl state hit disk and how big it was.
type LoggingCheckpointStore struct {
	next   harvest.CheckpointStore
	logger *slog.Logger
}

// NewLoggingCheckpointStore creates a new LoggingCheckpointStore.
func NewLoggingCheckpointStore(next harvest.CheckpointStore, logger *slog.Logger) *LoggingCheckpointStore {
	return &LoggingCheckpointStore{next: next, logger: logger}
}

// Save delegates to the wrapped store and logs the operation.
func (s *LoggingCheckpointStore) Save(ctx context.Context, cp *harvest.Checkpoint) (err error) {
	defer func(begin time.Time) {
		s.logger.Info("checkpoint_saved",
			"visited", len(cp.Visited),
			"pending", len(cp.Pending),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Save(ctx, cp)
}

// Load delegates to the wrapped store and logs the operation. Absent
// checkpoints (ENOTFOUND on a first run) are not worth a log entry.
func (s *LoggingCheckpointStore) Load(ctx context.Context) (cp *harvest.Checkpoint, err error) {
	defer func(begin time.Time) {
		if err != nil && harvest.ErrorCode(err) == harvest.ENOTFOUND {
			return
		}
		var visited, pending int
		if cp != nil {
			visited = len(cp.Visited)
			pending = len(cp.Pending)
		}
		s.logger.Info("checkpoint_loaded",
			"visited", visited,
			"pending", pending,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Load(ctx)
}

// Ensure LoggingSitemapService implements harvest.SitemapService.
var _ harvest.SitemapService = (*LoggingSitemapService)(nil)

// LoggingSitemapService wraps a SitemapService with discovery logging.
type LoggingSitemapService struct {
	next   harvest.SitemapService
	logger *slog.Logger
}

// NewLoggingSitemapService creates a new LoggingSitemapService.
func NewLoggingSitemapService(next harvest.SitemapService, logger *slog.Logger) *LoggingSitemapService {
	return &LoggingSitemapService{next: next, logger: logger}
}

// DiscoverURLs delegates to the wrapped service and logs the operation.
func (s *LoggingSitemapService) DiscoverURLs(ctx context.Context, baseURL string) (urls []string, err error) {
	defer func(begin time.Time) {
		s.logger.Info("sitemap_discovery",
			"url", baseURL,
			"count", len(urls),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.DiscoverURLs(ctx, baseURL)
}
