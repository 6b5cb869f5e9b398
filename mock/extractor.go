package mock

import (
	"github.com/fwojciec/harvest"
)

var _ harvest.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of harvest.Extractor.
type Extractor struct {
	ExtractFn func(pageURL string, body []byte) (harvest.Record, error)
}

func (e *Extractor) Extract(pageURL string, body []byte) (harvest.Record, error) {
	return e.ExtractFn(pageURL, body)
}

var _ harvest.LinkExtractor = (*LinkExtractor)(nil)

// LinkExtractor is a mock implementation of harvest.LinkExtractor.
type LinkExtractor struct {
	ExtractLinksFn func(body []byte, baseURL string) ([]string, error)
}

func (e *LinkExtractor) ExtractLinks(body []byte, baseURL string) ([]string, error) {
	return e.ExtractLinksFn(body, baseURL)
}

var _ harvest.LanguageDetector = (*LanguageDetector)(nil)

// LanguageDetector is a mock implementation of harvest.LanguageDetector.
type LanguageDetector struct {
	DetectFn func(text string) (string, bool)
}

func (d *LanguageDetector) Detect(text string) (string, bool) {
	return d.DetectFn(text)
}

var _ harvest.Deduplicator = (*Deduplicator)(nil)

// Deduplicator is a mock implementation of harvest.Deduplicator.
type Deduplicator struct {
	AdmitFn func(fingerprint string) bool
	LenFn   func() int
}

func (d *Deduplicator) Admit(fingerprint string) bool {
	return d.AdmitFn(fingerprint)
}

func (d *Deduplicator) Len() int {
	if d.LenFn == nil {
		return 0
	}
	return d.LenFn()
}
