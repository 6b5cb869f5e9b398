package harvest

import (
	"net/url"
	"path"
	"time"
)

// Code extraction limits used when the corresponding Config values are zero.
const (
	DefaultMinCodeLength = 50
	DefaultMaxCodeLength = 50000

	// codeSampleSize bounds the text handed to language detection.
	codeSampleSize = 500
)

// Ensure CodeExtractor implements Extractor at compile time.
var _ Extractor = (*CodeExtractor)(nil)

// CodeExtractor builds CodeRecords from raw fetched files. It needs no
// HTML parsing: the file extension comes from the URL path and the content
// is stored as-is, truncated to MaxLength.
type CodeExtractor struct {
	// MinLength rejects files with less content than this (ETOOSHORT).
	MinLength int

	// MaxLength caps the stored code; content beyond the cap is
	// discarded, not an error.
	MaxLength int

	// Detector is optional; when nil the language field stays unset.
	Detector LanguageDetector
}

// Extract implements Extractor for code URLs.
func (e *CodeExtractor) Extract(pageURL string, body []byte) (Record, error) {
	minLen := e.MinLength
	if minLen <= 0 {
		minLen = DefaultMinCodeLength
	}
	maxLen := e.MaxLength
	if maxLen <= 0 {
		maxLen = DefaultMaxCodeLength
	}

	if len(body) < minLen {
		return nil, Errorf(ETOOSHORT, "code content %d bytes below minimum %d for %s", len(body), minLen, pageURL)
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, Errorf(EINVALID, "invalid code URL %q: %v", pageURL, err)
	}

	content := string(body)

	var lang string
	if e.Detector != nil && len(content) > codeSampleSize {
		if detected, ok := e.Detector.Detect(content[:codeSampleSize]); ok {
			lang = detected
		}
	}

	code := content
	if len(code) > maxLen {
		code = code[:maxLen]
	}

	return &CodeRecord{
		Type:          RecordCode,
		URL:           pageURL,
		Timestamp:     time.Now().UTC(),
		FileExtension: path.Ext(u.Path),
		Language:      lang,
		Code:          code,
		SizeBytes:     len(body),
		SourceDomain:  u.Host,
	}, nil
}
