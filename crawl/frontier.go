package crawl

import (
	"sort"
	"sync"

	"github.com/fwojciec/harvest"
)

// Frontier tracks the crawl's URL universe: an exact visited set, a FIFO
// pending queue and per-URL failure counts. Exact sets (rather than a
// probabilistic filter) keep both sets enumerable for checkpointing.
//
// Invariant: a URL is never in both the visited set and the pending queue.
// Dequeued URLs move to visited immediately, before their fetch begins, so
// a URL is attempted at most once per crawl lifetime.
type Frontier struct {
	mu       sync.Mutex
	visited  map[string]struct{}
	pending  []string
	enqueued map[string]struct{}
	failures map[string]int
	maxURLs  int
}

// NewFrontier creates an empty frontier. maxURLs caps the total number of
// URLs admitted (visited + pending); zero means unlimited.
func NewFrontier(maxURLs int) *Frontier {
	return &Frontier{
		visited:  make(map[string]struct{}),
		enqueued: make(map[string]struct{}),
		failures: make(map[string]int),
		maxURLs:  maxURLs,
	}
}

// Add enqueues a URL for crawling. It returns false if the URL was already
// visited or pending, or if the frontier is at capacity.
func (f *Frontier) Add(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.visited[url]; ok {
		return false
	}
	if _, ok := f.enqueued[url]; ok {
		return false
	}
	if f.maxURLs > 0 && len(f.visited)+len(f.pending) >= f.maxURLs {
		return false
	}

	f.pending = append(f.pending, url)
	f.enqueued[url] = struct{}{}
	return true
}

// NextBatch dequeues up to n URLs in FIFO order and marks each one visited.
// A dequeued URL is consumed permanently: it is never re-enqueued, whatever
// the outcome of its fetch.
func (f *Frontier) NextBatch(n int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n <= 0 || len(f.pending) == 0 {
		return nil
	}
	if n > len(f.pending) {
		n = len(f.pending)
	}

	batch := make([]string, n)
	copy(batch, f.pending[:n])
	f.pending = f.pending[n:]

	for _, url := range batch {
		delete(f.enqueued, url)
		f.visited[url] = struct{}{}
	}
	return batch
}

// RecordFailure increments and returns the failure count for a URL.
func (f *Frontier) RecordFailure(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failures[url]++
	return f.failures[url]
}

// VisitedCount returns the number of visited URLs.
func (f *Frontier) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visited)
}

// PendingCount returns the number of queued URLs.
func (f *Frontier) PendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// Snapshot returns a consistent copy of the frontier state for
// checkpointing. Visited URLs are sorted for stable output; pending URLs
// keep their queue order.
func (f *Frontier) Snapshot() (visited, pending []string, failures map[string]int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	visited = make([]string, 0, len(f.visited))
	for url := range f.visited {
		visited = append(visited, url)
	}
	sort.Strings(visited)

	pending = make([]string, len(f.pending))
	copy(pending, f.pending)

	failures = make(map[string]int, len(f.failures))
	for url, n := range f.failures {
		failures[url] = n
	}
	return visited, pending, failures
}

// Restore replaces the frontier state from a checkpoint. It rejects state
// where a URL appears as both visited and pending, and drops duplicate
// pending entries.
func (f *Frontier) Restore(cp *harvest.Checkpoint) error {
	if err := cp.Validate(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.visited = make(map[string]struct{}, len(cp.Visited))
	for _, url := range cp.Visited {
		f.visited[url] = struct{}{}
	}

	f.pending = f.pending[:0]
	f.enqueued = make(map[string]struct{}, len(cp.Pending))
	for _, url := range cp.Pending {
		if _, ok := f.enqueued[url]; ok {
			continue
		}
		f.enqueued[url] = struct{}{}
		f.pending = append(f.pending, url)
	}

	f.failures = make(map[string]int, len(cp.FailureCounts))
	for url, n := range cp.FailureCounts {
		f.failures[url] = n
	}
	return nil
}
