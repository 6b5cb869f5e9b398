// Package trafilatura implements webpage extraction with the
// go-trafilatura content extraction library. It is the alternative to the
// selector-based goquery extractor for pages where boilerplate removal
// matters more than raw coverage.
package trafilatura

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/fwojciec/harvest"
	"github.com/markusmobius/go-trafilatura"
)

// languageSampleSize bounds the text handed to language detection.
const languageSampleSize = 1000

var whitespaceRE = regexp.MustCompile(`\s+`)

// Ensure Extractor implements harvest.Extractor at compile time.
var _ harvest.Extractor = (*Extractor)(nil)

// Extractor wraps go-trafilatura to build WebpageRecords from HTML.
type Extractor struct {
	// MinTextLength rejects pages whose extracted text is shorter
	// (ETOOSHORT).
	MinTextLength int

	// Detector is optional; when nil the language field stays unset.
	Detector harvest.LanguageDetector
}

// NewExtractor creates an Extractor.
func NewExtractor(minTextLength int, detector harvest.LanguageDetector) *Extractor {
	return &Extractor{
		MinTextLength: minTextLength,
		Detector:      detector,
	}
}

// Extract implements harvest.Extractor for webpage URLs.
func (e *Extractor) Extract(pageURL string, body []byte) (harvest.Record, error) {
	if len(body) == 0 {
		return nil, harvest.Errorf(harvest.EINVALID, "empty HTML input for %s", pageURL)
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, harvest.Errorf(harvest.EINVALID, "invalid page URL %q: %v", pageURL, err)
	}

	opts := trafilatura.Options{
		EnableFallback: true,
		OriginalURL:    u,
	}

	result, err := trafilatura.Extract(bytes.NewReader(body), opts)
	if err != nil {
		return nil, harvest.Errorf(harvest.EINVALID, "extract content from %s: %v", pageURL, err)
	}

	content := collapseWhitespace(result.ContentText)
	if content == "" {
		return nil, harvest.Errorf(harvest.ETOOSHORT, "no content extracted from %s", pageURL)
	}
	if len(content) < e.MinTextLength {
		return nil, harvest.Errorf(harvest.ETOOSHORT, "content %d bytes below minimum %d for %s", len(content), e.MinTextLength, pageURL)
	}

	title := collapseWhitespace(result.Metadata.Title)
	if title == "" {
		title = "No Title"
	}

	var lang string
	if e.Detector != nil {
		sample := content
		if len(sample) > languageSampleSize {
			sample = sample[:languageSampleSize]
		}
		if detected, ok := e.Detector.Detect(sample); ok {
			lang = detected
		}
	}

	return &harvest.WebpageRecord{
		Type:         harvest.RecordWebpage,
		URL:          pageURL,
		Timestamp:    time.Now().UTC(),
		Title:        title,
		Description:  collapseWhitespace(result.Metadata.Description),
		Keywords:     strings.Join(result.Metadata.Tags, ","),
		Content:      content,
		Language:     lang,
		SizeBytes:    len(content),
		SourceDomain: u.Host,
	}, nil
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(s, " "))
}
