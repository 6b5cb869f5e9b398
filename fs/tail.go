package fs

import (
	"bytes"
	"context"
	"os"
	"strings"

	"github.com/fwojciec/harvest"
)

// tailChunkSize is the read granularity when walking a file backwards.
const tailChunkSize = 32 * 1024

// TailLines returns the last n lines of the file at path, in file order.
// A missing file yields an empty slice. The file is read backwards in
// chunks, so tailing a large log does not load it whole.
func TailLines(path string, n int) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		return []string{}, nil
	}

	var (
		tail     []byte
		offset   = size
		newlines int
	)
	for offset > 0 && newlines <= n {
		readSize := int64(tailChunkSize)
		if offset < readSize {
			readSize = offset
		}
		offset -= readSize

		chunk := make([]byte, readSize)
		if _, err := f.ReadAt(chunk, offset); err != nil {
			return nil, err
		}
		tail = append(chunk, tail...)
		newlines = bytes.Count(tail, []byte{'\n'})
	}

	trimmed := strings.TrimRight(string(tail), "\n")
	if trimmed == "" {
		return []string{}, nil
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

// Ensure LogFile implements harvest.LogTailer at compile time.
var _ harvest.LogTailer = (*LogFile)(nil)

// LogFile serves the crawl log to the dashboard's log view.
type LogFile struct {
	path string
}

// NewLogFile creates a LogFile over the log at path.
func NewLogFile(path string) *LogFile {
	return &LogFile{path: path}
}

// Tail implements harvest.LogTailer.
func (l *LogFile) Tail(ctx context.Context, n int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lines, err := TailLines(l.path, n)
	if err != nil {
		return nil, harvest.Errorf(harvest.EPERSISTENCE, "read log file: %v", err)
	}
	return lines, nil
}
