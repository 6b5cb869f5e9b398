package harvest

import (
	"net/url"
	"strings"
	"time"
)

// Config is the full configuration for a crawl run and its dashboard.
// The core treats a loaded Config as an immutable snapshot for the run's
// duration; there is no hot reload.
type Config struct {
	SeedURLs       []string `yaml:"seed_urls" json:"seed_urls"`
	AllowedDomains []string `yaml:"allowed_domains" json:"allowed_domains"`
	CodeExtensions []string `yaml:"code_extensions" json:"code_extensions"`

	Crawling    CrawlingConfig    `yaml:"crawling" json:"crawling"`
	DataQuality DataQualityConfig `yaml:"data_quality" json:"data_quality"`
	Output      OutputConfig      `yaml:"output" json:"output"`
	Runtime     RuntimeConfig     `yaml:"runtime" json:"runtime"`
	Dashboard   DashboardConfig   `yaml:"dashboard" json:"dashboard"`
}

// CrawlingConfig controls concurrency, retries and politeness.
type CrawlingConfig struct {
	// MaxConcurrentRequests sizes the global fetch limiter; it bounds
	// simultaneous outbound connections regardless of batch size.
	MaxConcurrentRequests int `yaml:"max_concurrent_requests" json:"max_concurrent_requests"`

	// RetryLimit bounds fetch attempts for transient and rate-limit
	// failures. Other HTTP errors are never retried.
	RetryLimit int `yaml:"retry_limit" json:"retry_limit"`

	RequestTimeout Duration `yaml:"request_timeout" json:"request_timeout"`

	// MinDelay and MaxDelay bound the uniform random politeness delay
	// applied before each fetch.
	MinDelay Duration `yaml:"min_delay" json:"min_delay"`
	MaxDelay Duration `yaml:"max_delay" json:"max_delay"`

	// MaxURLs caps visited+pending; link discovery stops at the ceiling.
	MaxURLs int `yaml:"max_urls" json:"max_urls"`

	// FollowLinks enables link discovery from admitted webpages.
	FollowLinks bool `yaml:"follow_links" json:"follow_links"`

	// PerDomainRPS throttles request rate per domain, independent of the
	// politeness delay and the concurrency limiter. Zero disables it.
	PerDomainRPS float64 `yaml:"per_domain_rps" json:"per_domain_rps"`

	// UserAgents overrides the default rotation pool when non-empty.
	UserAgents []string `yaml:"user_agents" json:"user_agents,omitempty"`
}

// DataQualityConfig controls extraction thresholds and dedup.
type DataQualityConfig struct {
	MinTextLength    int    `yaml:"min_text_length" json:"min_text_length"`
	MinCodeLength    int    `yaml:"min_code_length" json:"min_code_length"`
	MaxCodeLength    int    `yaml:"max_code_length" json:"max_code_length"`
	MaxPageSizeBytes int64  `yaml:"max_page_size_bytes" json:"max_page_size_bytes"`
	RemoveDuplicates bool   `yaml:"remove_duplicates" json:"remove_duplicates"`
	DetectLanguage   bool   `yaml:"detect_language" json:"detect_language"`
	Extractor        string `yaml:"extractor" json:"extractor"`
}

// Webpage extraction engines selectable via data_quality.extractor.
const (
	ExtractorGoquery     = "goquery"
	ExtractorTrafilatura = "trafilatura"
	ExtractorReadability = "readability"
)

// OutputConfig names the files the run writes and the dashboard reads.
type OutputConfig struct {
	DataFile       string `yaml:"data_file" json:"data_file"`
	CheckpointFile string `yaml:"checkpoint_file" json:"checkpoint_file"`
	StatsFile      string `yaml:"stats_file" json:"stats_file"`
	LogFile        string `yaml:"log_file" json:"log_file"`
}

// RuntimeConfig controls the run lifecycle and background tasks.
type RuntimeConfig struct {
	// Duration is the wall-clock budget for the run; zero means
	// unlimited. Checked at batch boundaries only.
	Duration Duration `yaml:"duration" json:"duration"`

	CheckpointInterval Duration `yaml:"checkpoint_interval" json:"checkpoint_interval"`
	ReportInterval     Duration `yaml:"report_interval" json:"report_interval"`

	// MetricsAddr serves Prometheus metrics from the crawl process when
	// set (e.g. ":9090"). Empty disables the listener.
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr,omitempty"`
}

// DashboardConfig controls the read-only monitoring server.
type DashboardConfig struct {
	Addr         string   `yaml:"addr" json:"addr"`
	PushInterval Duration `yaml:"push_interval" json:"push_interval"`
	RecentLimit  int      `yaml:"recent_limit" json:"recent_limit"`
	LogLines     int      `yaml:"log_lines" json:"log_lines"`
}

// DefaultConfig returns the configuration used when a field is absent
// from the config file.
func DefaultConfig() Config {
	return Config{
		CodeExtensions: []string{".py", ".go", ".js", ".ts", ".rs", ".java", ".c", ".cpp", ".h", ".rb", ".sh"},
		Crawling: CrawlingConfig{
			MaxConcurrentRequests: 10,
			RetryLimit:            3,
			RequestTimeout:        DurationFrom(10 * time.Second),
			MinDelay:              DurationFrom(500 * time.Millisecond),
			MaxDelay:              DurationFrom(2 * time.Second),
			MaxURLs:               10000,
			FollowLinks:           true,
			PerDomainRPS:          1,
		},
		DataQuality: DataQualityConfig{
			MinTextLength:    100,
			MinCodeLength:    DefaultMinCodeLength,
			MaxCodeLength:    DefaultMaxCodeLength,
			MaxPageSizeBytes: 5 * 1024 * 1024,
			RemoveDuplicates: true,
			DetectLanguage:   true,
			Extractor:        ExtractorGoquery,
		},
		Output: OutputConfig{
			DataFile:       "harvest_data.jsonl",
			CheckpointFile: "harvest_checkpoint.json",
			StatsFile:      "harvest_stats.json",
			LogFile:        "harvest.log",
		},
		Runtime: RuntimeConfig{
			CheckpointInterval: DurationFrom(5 * time.Minute),
			ReportInterval:     DurationFrom(time.Minute),
		},
		Dashboard: DashboardConfig{
			Addr:         ":8000",
			PushInterval: DurationFrom(2 * time.Second),
			RecentLimit:  20,
			LogLines:     50,
		},
	}
}

// Normalize fills derivable fields: an empty allowed-domain list defaults
// to the hostnames of the seed URLs. Ports are dropped so the list can be
// compared against URL.Hostname values.
func (c *Config) Normalize() {
	if len(c.AllowedDomains) > 0 {
		return
	}
	seen := make(map[string]struct{})
	for _, seed := range c.SeedURLs {
		u, err := url.Parse(seed)
		if err != nil || u.Hostname() == "" {
			continue
		}
		host := strings.ToLower(u.Hostname())
		if _, ok := seen[host]; ok {
			continue
		}
		seen[host] = struct{}{}
		c.AllowedDomains = append(c.AllowedDomains, host)
	}
}

// Validate enforces the invariants the crawl engine relies on.
func (c *Config) Validate() error {
	if len(c.SeedURLs) == 0 {
		return Errorf(EINVALID, "at least one seed URL must be configured")
	}
	for _, seed := range c.SeedURLs {
		u, err := url.Parse(seed)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return Errorf(EINVALID, "invalid seed URL %q", seed)
		}
	}
	if c.Crawling.MaxConcurrentRequests <= 0 {
		return Errorf(EINVALID, "crawling.max_concurrent_requests must be > 0 (got %d)", c.Crawling.MaxConcurrentRequests)
	}
	if c.Crawling.RetryLimit <= 0 {
		return Errorf(EINVALID, "crawling.retry_limit must be > 0 (got %d)", c.Crawling.RetryLimit)
	}
	if c.Crawling.RequestTimeout.Duration <= 0 {
		return Errorf(EINVALID, "crawling.request_timeout must be > 0")
	}
	if c.Crawling.MinDelay.Duration < 0 {
		return Errorf(EINVALID, "crawling.min_delay must be >= 0")
	}
	if c.Crawling.MaxDelay.Duration < c.Crawling.MinDelay.Duration {
		return Errorf(EINVALID, "crawling.max_delay must be >= crawling.min_delay")
	}
	if c.Crawling.MaxURLs <= 0 {
		return Errorf(EINVALID, "crawling.max_urls must be > 0 (got %d)", c.Crawling.MaxURLs)
	}
	if c.Crawling.PerDomainRPS < 0 {
		return Errorf(EINVALID, "crawling.per_domain_rps must be >= 0")
	}
	if c.DataQuality.MinTextLength <= 0 {
		return Errorf(EINVALID, "data_quality.min_text_length must be > 0")
	}
	if c.DataQuality.MinCodeLength <= 0 {
		return Errorf(EINVALID, "data_quality.min_code_length must be > 0")
	}
	if c.DataQuality.MaxCodeLength < c.DataQuality.MinCodeLength {
		return Errorf(EINVALID, "data_quality.max_code_length must be >= data_quality.min_code_length")
	}
	if c.DataQuality.MaxPageSizeBytes <= 0 {
		return Errorf(EINVALID, "data_quality.max_page_size_bytes must be > 0")
	}
	switch c.DataQuality.Extractor {
	case ExtractorGoquery, ExtractorTrafilatura, ExtractorReadability:
	default:
		return Errorf(EINVALID, "data_quality.extractor must be %q, %q or %q (got %q)",
			ExtractorGoquery, ExtractorTrafilatura, ExtractorReadability, c.DataQuality.Extractor)
	}
	if c.Output.DataFile == "" || c.Output.CheckpointFile == "" || c.Output.StatsFile == "" {
		return Errorf(EINVALID, "output data_file, checkpoint_file and stats_file must be set")
	}
	if c.Runtime.Duration.Duration < 0 {
		return Errorf(EINVALID, "runtime.duration must be >= 0")
	}
	if c.Runtime.CheckpointInterval.Duration <= 0 {
		return Errorf(EINVALID, "runtime.checkpoint_interval must be > 0")
	}
	if c.Runtime.ReportInterval.Duration <= 0 {
		return Errorf(EINVALID, "runtime.report_interval must be > 0")
	}
	if c.Dashboard.PushInterval.Duration <= 0 {
		return Errorf(EINVALID, "dashboard.push_interval must be > 0")
	}
	return nil
}
