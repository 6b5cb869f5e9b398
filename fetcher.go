package harvest

import "context"

// Fetcher retrieves the raw body of a URL.
//
// A Fetcher owns its retry policy: transient network errors and rate
// limiting are retried internally up to a configured limit. The returned
// error's code distinguishes rejections from failures: EOVERSIZED marks a
// response over the size ceiling (skipped, never retried), while
// ETRANSIENT, ERATELIMITED and EHTTP mark fetch failures.
type Fetcher interface {
	// Fetch issues a single logical GET for the URL, applying the
	// retry/backoff policy. The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) ([]byte, error)

	// Close releases client resources.
	Close() error
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error
}
