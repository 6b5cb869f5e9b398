package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/fwojciec/harvest"
)

// Ensure CheckpointStore implements harvest.CheckpointStore at compile time.
var _ harvest.CheckpointStore = (*CheckpointStore)(nil)

// CheckpointStore persists checkpoints as a single JSON document, written
// to a temporary file and renamed into place so a concurrent reader never
// observes a torn checkpoint.
type CheckpointStore struct {
	path string
}

// NewCheckpointStore creates a CheckpointStore at path.
func NewCheckpointStore(path string) *CheckpointStore {
	return &CheckpointStore{path: path}
}

// Save implements harvest.CheckpointStore.
func (s *CheckpointStore) Save(ctx context.Context, cp *harvest.Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cp.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return harvest.Errorf(harvest.EINTERNAL, "marshal checkpoint: %v", err)
	}
	return atomicWriteFile(s.path, data)
}

// Load implements harvest.CheckpointStore.
func (s *CheckpointStore) Load(ctx context.Context) (*harvest.Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, harvest.Errorf(harvest.ENOTFOUND, "no checkpoint at %s", s.path)
		}
		return nil, harvest.Errorf(harvest.EPERSISTENCE, "read checkpoint: %v", err)
	}

	var cp harvest.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, harvest.Errorf(harvest.EPERSISTENCE, "parse checkpoint %s: %v", s.path, err)
	}
	return &cp, nil
}

// atomicWriteFile writes data to path via a temporary file and rename, so
// concurrent readers see either the old document or the new one.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return harvest.Errorf(harvest.EPERSISTENCE, "create directory %s: %v", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return harvest.Errorf(harvest.EPERSISTENCE, "create temp file: %v", err)
	}
	tmpName := tmp.Name()

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(tmpName)
		if werr == nil {
			werr = cerr
		}
		return harvest.Errorf(harvest.EPERSISTENCE, "write %s: %v", path, werr)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return harvest.Errorf(harvest.EPERSISTENCE, "replace %s: %v", path, err)
	}
	return nil
}
