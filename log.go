package harvest

import "context"

// LogTailer returns the most recent lines of the crawl log for the
// dashboard's log view.
type LogTailer interface {
	Tail(ctx context.Context, n int) ([]string, error)
}
