package harvest

import (
	"context"
	"time"
)

// RecordType tags the two record kinds in the record log.
type RecordType string

// Record type tags. Every line in the record log carries exactly one.
const (
	RecordWebpage RecordType = "webpage"
	RecordCode    RecordType = "code"
)

// Record is the tagged union of the two record kinds. A record is immutable
// once constructed and is written to the record log exactly once.
type Record interface {
	// RecordType returns the type tag serialized in the "type" field.
	RecordType() RecordType

	// Size returns the stored content size in bytes, used for the
	// totalBytes statistic.
	Size() int

	// Validate returns an error if the record is missing required fields.
	Validate() error
}

// WebpageRecord holds the extracted prose content of a crawled page.
type WebpageRecord struct {
	Type         RecordType `json:"type"`
	URL          string     `json:"url"`
	Timestamp    time.Time  `json:"timestamp"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Keywords     string     `json:"keywords"`
	Content      string     `json:"content"`
	Language     string     `json:"language,omitempty"`
	SizeBytes    int        `json:"sizeBytes"`
	SourceDomain string     `json:"sourceDomain"`
}

// RecordType implements Record.
func (r *WebpageRecord) RecordType() RecordType { return RecordWebpage }

// Size implements Record.
func (r *WebpageRecord) Size() int { return r.SizeBytes }

// Validate returns an error if the record contains invalid fields.
func (r *WebpageRecord) Validate() error {
	if r.URL == "" {
		return Errorf(EINVALID, "webpage record URL required")
	}
	if r.Content == "" {
		return Errorf(EINVALID, "webpage record content required")
	}
	return nil
}

// CodeRecord holds a collected source-code file.
//
// Code is truncated to the configured cap; SizeBytes always counts the
// full fetched content, not the truncated portion.
type CodeRecord struct {
	Type          RecordType `json:"type"`
	URL           string     `json:"url"`
	Timestamp     time.Time  `json:"timestamp"`
	FileExtension string     `json:"fileExtension"`
	Language      string     `json:"language,omitempty"`
	Code          string     `json:"code"`
	SizeBytes     int        `json:"sizeBytes"`
	SourceDomain  string     `json:"sourceDomain"`
}

// RecordType implements Record.
func (r *CodeRecord) RecordType() RecordType { return RecordCode }

// Size implements Record.
func (r *CodeRecord) Size() int { return r.SizeBytes }

// Validate returns an error if the record contains invalid fields.
func (r *CodeRecord) Validate() error {
	if r.URL == "" {
		return Errorf(EINVALID, "code record URL required")
	}
	if r.Code == "" {
		return Errorf(EINVALID, "code record content required")
	}
	return nil
}

// RecordWriter appends records to the record log.
// Implementations must serialize concurrent writes; multiple pipeline
// goroutines may complete within the same batch.
type RecordWriter interface {
	Write(ctx context.Context, rec Record) error
}

// RecordReader provides read access over the record log for collaborators
// like the dashboard. Implementations tolerate a log that is being
// appended to concurrently by the crawl process.
type RecordReader interface {
	// TailRecords returns up to n of the most recent records, newest
	// first. A missing log yields an empty slice.
	TailRecords(ctx context.Context, n int) ([]Record, error)

	// CountRecords returns the number of complete records in the log.
	CountRecords(ctx context.Context) (int, error)
}
