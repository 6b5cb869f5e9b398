// Package fs provides file-based persistence for crawl output: the JSONL
// record log, the resume checkpoint, the stats report and log tailing.
package fs

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fwojciec/harvest"
)

// maxRecordLineSize bounds a single record line during scans. Page
// content is capped well below this by the fetcher's size ceiling.
const maxRecordLineSize = 32 * 1024 * 1024

// Ensure RecordLog implements both record interfaces at compile time.
var (
	_ harvest.RecordWriter = (*RecordLog)(nil)
	_ harvest.RecordReader = (*RecordLog)(nil)
)

// RecordLog is an append-only JSONL file of crawl records, one JSON
// document per line. A single writer (the crawl scheduler) appends;
// readers like the dashboard observe the same path independently, so the
// read methods reopen the file instead of sharing the write handle.
type RecordLog struct {
	path string

	mu sync.Mutex
	f  *os.File
}

// NewRecordLog creates a RecordLog at path. The file is created lazily on
// first write, so read-only users never create it.
func NewRecordLog(path string) *RecordLog {
	return &RecordLog{path: path}
}

// Write implements harvest.RecordWriter. Writes are serialized under a
// mutex so concurrent batch completions cannot interleave lines.
func (l *RecordLog) Write(ctx context.Context, rec harvest.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return harvest.Errorf(harvest.EINTERNAL, "marshal record: %v", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
			return harvest.Errorf(harvest.EPERSISTENCE, "create record log directory: %v", err)
		}
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return harvest.Errorf(harvest.EPERSISTENCE, "open record log: %v", err)
		}
		l.f = f
	}

	if _, err := l.f.Write(data); err != nil {
		return harvest.Errorf(harvest.EPERSISTENCE, "append record: %v", err)
	}
	return nil
}

// Close closes the write handle if one was opened.
func (l *RecordLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

// TailRecords implements harvest.RecordReader. Undecodable lines (a
// partial line from an in-progress append) are skipped.
func (l *RecordLog) TailRecords(ctx context.Context, n int) ([]harvest.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return []harvest.Record{}, nil
	}

	lines, err := TailLines(l.path, n)
	if err != nil {
		return nil, harvest.Errorf(harvest.EPERSISTENCE, "read record log: %v", err)
	}

	records := make([]harvest.Record, 0, len(lines))
	for i := len(lines) - 1; i >= 0; i-- {
		rec, err := decodeRecord([]byte(lines[i]))
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// CountRecords implements harvest.RecordReader by counting complete
// lines. A missing log counts as zero.
func (l *RecordLog) CountRecords(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, harvest.Errorf(harvest.EPERSISTENCE, "open record log: %v", err)
	}
	defer f.Close()

	var count int
	buf := make([]byte, 64*1024)
	for {
		n, err := f.Read(buf)
		count += bytes.Count(buf[:n], []byte{'\n'})
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, harvest.Errorf(harvest.EPERSISTENCE, "read record log: %v", err)
		}
	}
	return count, nil
}

// ScanRecords streams every record in the log through fn in file order.
// Undecodable lines are skipped rather than failing the scan, so a crash
// mid-append does not poison a later resume.
func (l *RecordLog) ScanRecords(ctx context.Context, fn func(harvest.Record) error) error {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return harvest.Errorf(harvest.EPERSISTENCE, "open record log: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxRecordLineSize)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := decodeRecord(scanner.Bytes())
		if err != nil {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return harvest.Errorf(harvest.EPERSISTENCE, "scan record log: %v", err)
	}
	return nil
}

// decodeRecord parses a record line by its type tag.
func decodeRecord(line []byte) (harvest.Record, error) {
	var probe struct {
		Type harvest.RecordType `json:"type"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return nil, harvest.Errorf(harvest.EINVALID, "parse record line: %v", err)
	}

	switch probe.Type {
	case harvest.RecordWebpage:
		var rec harvest.WebpageRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, harvest.Errorf(harvest.EINVALID, "parse webpage record: %v", err)
		}
		return &rec, nil
	case harvest.RecordCode:
		var rec harvest.CodeRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, harvest.Errorf(harvest.EINVALID, "parse code record: %v", err)
		}
		return &rec, nil
	default:
		return nil, harvest.Errorf(harvest.EINVALID, "unknown record type %q", probe.Type)
	}
}
