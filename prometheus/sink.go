// Package prometheus exports crawl statistics as Prometheus gauges.
package prometheus

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fwojciec/harvest"
)

// Ensure StatsSink implements harvest.StatsSink at compile time.
var _ harvest.StatsSink = (*StatsSink)(nil)

// StatsSink mirrors each statistics snapshot into a set of Prometheus
// gauges. Snapshots carry absolute counter values, so every Report call
// overwrites the previous reading.
type StatsSink struct {
	pagesCrawled       prometheus.Gauge
	pagesFailed        prometheus.Gauge
	codeFilesCollected prometheus.Gauge
	totalBytes         prometheus.Gauge
	duplicatesSkipped  prometheus.Gauge
	pagesPerMinute     prometheus.Gauge
}

// NewStatsSink registers the collectors against the provided registry.
func NewStatsSink(reg prometheus.Registerer) (*StatsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &StatsSink{
		pagesCrawled: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "harvest_pages_crawled",
			Help: "Pages fetched and recorded so far this run.",
		}),
		pagesFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "harvest_pages_failed",
			Help: "Pages that exhausted their fetch retries.",
		}),
		codeFilesCollected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "harvest_code_files_collected",
			Help: "Code files recorded so far this run.",
		}),
		totalBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "harvest_total_bytes",
			Help: "Total bytes of extracted content collected.",
		}),
		duplicatesSkipped: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "harvest_duplicates_skipped",
			Help: "Pages discarded as duplicates of earlier content.",
		}),
		pagesPerMinute: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "harvest_pages_per_minute",
			Help: "Crawl rate averaged over the whole run.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.pagesCrawled,
		s.pagesFailed,
		s.codeFilesCollected,
		s.totalBytes,
		s.duplicatesSkipped,
		s.pagesPerMinute,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, harvest.Errorf(harvest.EINTERNAL, "register stats collector: %v", err)
		}
	}
	return s, nil
}

// Report sets the gauges from the snapshot. It never blocks and is safe
// for concurrent use.
func (s *StatsSink) Report(_ context.Context, snap harvest.StatsSnapshot) error {
	report := snap.Report(time.Now())
	s.pagesCrawled.Set(float64(snap.PagesCrawled))
	s.pagesFailed.Set(float64(snap.PagesFailed))
	s.codeFilesCollected.Set(float64(snap.CodeFilesCollected))
	s.totalBytes.Set(float64(snap.TotalBytes))
	s.duplicatesSkipped.Set(float64(snap.DuplicatesSkipped))
	s.pagesPerMinute.Set(report.PagesPerMinute)
	return nil
}
