package harvest

import (
	"context"
	"time"
)

// Checkpoint is a point-in-time snapshot of the frontier and statistics,
// serialized atomically to a single JSON document. It exists only for
// resume; live queries during a run read the in-memory state.
//
// The fingerprint set is deliberately absent: on resume it is rebuilt by
// replaying the webpage records already in the record log.
type Checkpoint struct {
	Timestamp     time.Time      `json:"timestamp"`
	RunID         string         `json:"runId,omitempty"`
	Visited       []string       `json:"visited"`
	Pending       []string       `json:"pending"`
	FailureCounts map[string]int `json:"failureCounts"`
	Stats         StatsSnapshot  `json:"statistics"`
	StartTime     time.Time      `json:"startTime"`
}

// Validate returns an error if the checkpoint is unusable for resume.
func (c *Checkpoint) Validate() error {
	visited := make(map[string]struct{}, len(c.Visited))
	for _, u := range c.Visited {
		visited[u] = struct{}{}
	}
	for _, u := range c.Pending {
		if _, ok := visited[u]; ok {
			return Errorf(EINVALID, "checkpoint URL %q is both visited and pending", u)
		}
	}
	return nil
}

// CheckpointStore persists and restores checkpoints.
type CheckpointStore interface {
	// Save atomically replaces the stored checkpoint. An external reader
	// must never observe a half-written document.
	Save(ctx context.Context, cp *Checkpoint) error

	// Load returns the stored checkpoint.
	// Returns ENOTFOUND if no checkpoint exists.
	Load(ctx context.Context) (*Checkpoint, error)
}
