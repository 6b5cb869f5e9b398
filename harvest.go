// Package harvest provides a resumable web crawler for building text and
// code datasets. It crawls a frontier of URLs under bounded concurrency,
// extracts prose or source-code records, suppresses duplicate content by
// fingerprint, and checkpoints its state so an interrupted crawl can be
// resumed without redundant work.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., http/, goquery/, fs/); the crawl
// engine lives in crawl/.
package harvest
