package crawl

import (
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/harvest"
)

// Fingerprint computes the content fingerprint used for exact duplicate
// detection, a fixed-width hex encoding of the xxhash of the content.
func Fingerprint(content string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(content))
}

var _ harvest.Deduplicator = (*FingerprintSet)(nil)

// FingerprintSet is an exact in-memory set of content fingerprints. On
// resume it is rebuilt from the record log, so a restarted crawl keeps
// rejecting content it has already collected.
type FingerprintSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewFingerprintSet creates an empty fingerprint set.
func NewFingerprintSet() *FingerprintSet {
	return &FingerprintSet{seen: make(map[string]struct{})}
}

// Admit inserts the fingerprint and returns true if it was not already
// present.
func (s *FingerprintSet) Admit(fingerprint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[fingerprint]; ok {
		return false
	}
	s.seen[fingerprint] = struct{}{}
	return true
}

// Len returns the number of fingerprints in the set.
func (s *FingerprintSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
