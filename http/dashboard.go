package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fwojciec/harvest"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxRecentRecords caps the /api/recent limit parameter.
const maxRecentRecords = 100

// Dashboard is the read-only monitoring server. It runs as a separate
// process from the crawl and observes it solely through the files the
// crawl writes: the record log, the checkpoint, the stats report and the
// log file. It never mutates crawl state.
type Dashboard struct {
	Checkpoints harvest.CheckpointStore
	Records     harvest.RecordReader
	Stats       harvest.StatsReader
	Logs        harvest.LogTailer
	Config      harvest.Config
	Logger      *slog.Logger

	upgrader websocket.Upgrader
}

// NewDashboard constructs a Dashboard over the given read-side stores.
func NewDashboard(
	checkpoints harvest.CheckpointStore,
	records harvest.RecordReader,
	stats harvest.StatsReader,
	logs harvest.LogTailer,
	cfg harvest.Config,
	logger *slog.Logger,
) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{
		Checkpoints: checkpoints,
		Records:     records,
		Stats:       stats,
		Logs:        logs,
		Config:      cfg,
		Logger:      logger,
		upgrader: websocket.Upgrader{
			// The dashboard is a local monitoring tool; cross-origin
			// browser pages may connect to it.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the router for use with http.Server.
func (d *Dashboard) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/stats", d.handleStats)
	r.Get("/api/recent", d.handleRecent)
	r.Get("/api/config", d.handleConfig)
	r.Get("/api/logs", d.handleLogs)
	r.Get("/ws", d.handleWS)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// statsPayload assembles the combined view pushed to clients: the last
// stats report plus live frontier and record-log counts. Files that do
// not exist yet read as zero values, so the dashboard works from the
// moment a crawl starts.
func (d *Dashboard) statsPayload(ctx context.Context) (map[string]any, error) {
	var queueSize, visitedCount int
	cp, err := d.Checkpoints.Load(ctx)
	switch {
	case err == nil:
		queueSize = len(cp.Pending)
		visitedCount = len(cp.Visited)
	case harvest.ErrorCode(err) == harvest.ENOTFOUND:
	default:
		return nil, err
	}

	var report *harvest.StatsReport
	rep, err := d.Stats.LoadReport(ctx)
	switch {
	case err == nil:
		report = rep
	case harvest.ErrorCode(err) == harvest.ENOTFOUND:
	default:
		return nil, err
	}

	totalItems, err := d.Records.CountRecords(ctx)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"stats":        report,
		"queueSize":    queueSize,
		"visitedCount": visitedCount,
		"totalItems":   totalItems,
		"timestamp":    time.Now().UTC(),
	}, nil
}

func (d *Dashboard) handleStats(w http.ResponseWriter, r *http.Request) {
	payload, err := d.statsPayload(r.Context())
	if err != nil {
		d.Logger.Error("stats_payload_failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to read crawl state")
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (d *Dashboard) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := d.Config.Dashboard.RecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxRecentRecords {
		limit = maxRecentRecords
	}

	records, err := d.Records.TailRecords(r.Context(), limit)
	if err != nil {
		d.Logger.Error("tail_records_failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to read record log")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":      records,
		"timestamp": time.Now().UTC(),
	})
}

func (d *Dashboard) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, d.Config)
}

func (d *Dashboard) handleLogs(w http.ResponseWriter, r *http.Request) {
	lines := d.Config.Dashboard.LogLines
	if raw := r.URL.Query().Get("lines"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "lines must be a positive integer")
			return
		}
		lines = n
	}

	tail, err := d.Logs.Tail(r.Context(), lines)
	if err != nil {
		d.Logger.Error("tail_logs_failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to read log file")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"logs":      tail,
		"timestamp": time.Now().UTC(),
	})
}

// wsMessage is the envelope for pushed dashboard updates.
type wsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// handleWS upgrades the connection and pushes a stats snapshot
// immediately, then on every push interval until the client goes away.
func (d *Dashboard) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.Logger.Warn("ws_upgrade_failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	clientID := uuid.NewString()
	logger := d.Logger.With(slog.String("client_id", clientID))
	logger.Info("ws_client_connected", slog.String("remote", r.RemoteAddr))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reads are discarded; the pump only notices the client closing.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := d.pushStats(ctx, conn); err != nil {
		logger.Debug("ws_initial_push_failed", slog.Any("error", err))
		return
	}

	interval := d.Config.Dashboard.PushInterval.Duration
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("ws_client_disconnected")
			return
		case <-ticker.C:
			if err := d.pushStats(ctx, conn); err != nil {
				logger.Info("ws_client_disconnected", slog.Any("error", err))
				return
			}
		}
	}
}

func (d *Dashboard) pushStats(ctx context.Context, conn *websocket.Conn) error {
	payload, err := d.statsPayload(ctx)
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return err
	}
	return conn.WriteJSON(wsMessage{Type: "stats", Data: payload})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Default().Error("write JSON failed", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
