package crawl

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Delay implements the politeness pause between request dispatches: a
// uniformly random wait in [Min, Max] applied before each fetch. The wait
// is interruptible so shutdown is never blocked on a sleeping worker.
type Delay struct {
	min, max time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewDelay creates a Delay with the given bounds. Bounds are swapped if
// inverted; negative values are clamped to zero.
func NewDelay(min, max time.Duration) *Delay {
	if min < 0 {
		min = 0
	}
	if max < min {
		min, max = max, min
	}
	return &Delay{
		min: min,
		max: max,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Wait sleeps for a random duration within the configured bounds, or until
// the context is canceled.
func (d *Delay) Wait(ctx context.Context) error {
	wait := d.pick()
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// pick draws a duration uniformly from [min, max].
func (d *Delay) pick() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()

	spread := d.max - d.min
	if spread <= 0 {
		return d.min
	}
	return d.min + time.Duration(d.rng.Int63n(int64(spread)+1))
}
