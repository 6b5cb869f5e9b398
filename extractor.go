package harvest

// Extractor turns a fetched body into a record.
//
// Implementations reject unusable content with coded errors rather than
// producing partial records: ETOOSHORT when the cleaned content is below
// the configured minimum, EINVALID when the body cannot be parsed. Both
// are rejections; the scheduler never counts them as failures.
type Extractor interface {
	Extract(pageURL string, body []byte) (Record, error)
}

// LinkExtractor discovers followable links in a webpage body.
// Returned URLs are absolute, fragment-free and filtered to the allowed
// domains, deduplicated in first-seen order.
type LinkExtractor interface {
	ExtractLinks(body []byte, baseURL string) ([]string, error)
}

// LanguageDetector identifies the natural language of a text sample.
//
// It is an optional capability: callers pass a size-limited sample and
// treat ok=false as "language unknown", never as an error.
type LanguageDetector interface {
	Detect(text string) (lang string, ok bool)
}

// Deduplicator gatekeeps webpage records by content fingerprint.
type Deduplicator interface {
	// Admit inserts the fingerprint and returns true if it was not
	// already present. A false return means duplicate content.
	Admit(fingerprint string) bool

	// Len returns the number of fingerprints seen.
	Len() int
}
