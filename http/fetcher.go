// Package http provides the HTTP side of the crawler: the polite fetcher
// with retry and backoff, sitemap-based seed discovery, and the read-only
// dashboard server.
package http

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/fwojciec/harvest"
	"golang.org/x/sync/semaphore"
)

// DefaultFetchTimeout is the default timeout for a single HTTP attempt.
const DefaultFetchTimeout = 10 * time.Second

// DefaultRetryLimit is the default number of fetch attempts for transient
// and rate-limit failures.
const DefaultRetryLimit = 3

// DefaultMaxBodySize is the default response size ceiling (5 MB).
const DefaultMaxBodySize int64 = 5 * 1024 * 1024

// DefaultConcurrency is the default global fetch concurrency.
const DefaultConcurrency = 10

// transientRetryDelay is the fixed wait after a timeout or transport
// error, as opposed to the exponential wait after a rate-limit response.
const transientRetryDelay = time.Second

// DefaultUserAgents is the browser pool rotated across requests.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
}

// Ensure Fetcher implements harvest.Fetcher at compile time.
var _ harvest.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves page bodies over HTTP. It owns the crawl's global
// concurrency limit: a weighted semaphore bounds simultaneous requests
// across all workers, and the semaphore wraps the whole retry loop so a
// retrying URL cannot free its slot between attempts.
//
// Retry policy: 429 and 503 responses back off exponentially (2^attempt
// seconds), timeouts and transport errors wait a fixed short delay, any
// other non-200 status fails immediately. Responses larger than the size
// ceiling are rejected without retry.
type Fetcher struct {
	client      *http.Client
	timeout     time.Duration
	retryLimit  int
	maxBodySize int64
	concurrency int64
	userAgents  []string
	sem         *semaphore.Weighted
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-attempt timeout.
// Defaults to DefaultFetchTimeout (10s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithRetryLimit sets the maximum number of attempts per URL.
func WithRetryLimit(n int) Option {
	return func(f *Fetcher) {
		f.retryLimit = n
	}
}

// WithMaxBodySize sets the response size ceiling in bytes.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = n
	}
}

// WithConcurrency sets the global limit on simultaneous requests.
func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		f.concurrency = int64(n)
	}
}

// WithUserAgents replaces the default user agent pool.
func WithUserAgents(agents []string) Option {
	return func(f *Fetcher) {
		if len(agents) > 0 {
			f.userAgents = agents
		}
	}
}

// WithSleep replaces the backoff sleep function. Tests use this to
// observe retry delays without waiting them out.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(f *Fetcher) {
		f.sleep = sleep
	}
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:     DefaultFetchTimeout,
		retryLimit:  DefaultRetryLimit,
		maxBodySize: DefaultMaxBodySize,
		concurrency: DefaultConcurrency,
		userAgents:  DefaultUserAgents,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.retryLimit < 1 {
		f.retryLimit = 1
	}
	if f.concurrency < 1 {
		f.concurrency = 1
	}

	f.sem = semaphore.NewWeighted(f.concurrency)
	f.client = &http.Client{
		Timeout: f.timeout,
	}

	return f
}

// Fetch retrieves the body of the given URL, retrying per the policy
// above. It blocks while the global concurrency limit is saturated.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer f.sem.Release(1)

	var lastErr error
	for attempt := 0; attempt < f.retryLimit; attempt++ {
		body, retry, err := f.attempt(ctx, url)
		if err == nil {
			return body, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err

		if attempt < f.retryLimit-1 {
			if serr := f.sleep(ctx, retryDelay(err, attempt)); serr != nil {
				return nil, serr
			}
		}
	}
	return nil, lastErr
}

// attempt performs one GET. The boolean reports whether the error is
// worth retrying.
func (f *Fetcher) attempt(ctx context.Context, url string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, harvest.Errorf(harvest.EINVALID, "invalid request for %q: %v", url, err)
	}
	req.Header.Set("User-Agent", f.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, harvest.Errorf(harvest.ETRANSIENT, "fetch %s: %v", url, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return nil, true, harvest.Errorf(harvest.ERATELIMITED, "status %d for %s", resp.StatusCode, url)
	default:
		return nil, false, harvest.Errorf(harvest.EHTTP, "unexpected status %d for %s", resp.StatusCode, url)
	}

	// Read one byte past the ceiling so an at-limit body is
	// distinguishable from an oversized one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, harvest.Errorf(harvest.ETRANSIENT, "read %s: %v", url, err)
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, false, harvest.Errorf(harvest.EOVERSIZED, "response for %s exceeds %d bytes", url, f.maxBodySize)
	}

	return body, false, nil
}

// Close releases idle connections held by the underlying client.
func (f *Fetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

func (f *Fetcher) userAgent() string {
	return f.userAgents[rand.Intn(len(f.userAgents))]
}

// retryDelay picks the wait before the next attempt: exponential for
// rate-limit responses, fixed for transport-level failures.
func retryDelay(err error, attempt int) time.Duration {
	if harvest.ErrorCode(err) == harvest.ERATELIMITED {
		return time.Duration(1<<attempt) * time.Second
	}
	return transientRetryDelay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
