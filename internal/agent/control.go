// File: internal/agent/control.go
package agent

import (
	"context"
	"sync/atomic"
	"time"
)

// pausePollInterval is how often the run loop re-checks the pause and stop
// flags while suspended. Small enough for responsive stops, large enough to
// avoid CPU spinning.
const pausePollInterval = 200 * time.Millisecond

// RunControl is the pause/stop token threaded through a run. Signal handlers
// and callers flip the flags; the run loop polls them at its suspension
// points. Stop is sticky, pause is not.
type RunControl struct {
	paused  atomic.Bool
	stopped atomic.Bool
}

// NewRunControl returns a token in the running state.
func NewRunControl() *RunControl {
	return &RunControl{}
}

// Pause requests the run loop to suspend before the next step.
func (c *RunControl) Pause() {
	c.paused.Store(true)
}

// Resume clears a pause request.
func (c *RunControl) Resume() {
	c.paused.Store(false)
}

// Stop requests the run loop to terminate. An in-flight step always completes
// first; the flag is only honored at loop boundaries.
func (c *RunControl) Stop() {
	c.stopped.Store(true)
}

// Paused reports whether a pause is requested.
func (c *RunControl) Paused() bool {
	return c.paused.Load()
}

// Stopped reports whether a stop is requested.
func (c *RunControl) Stopped() bool {
	return c.stopped.Load()
}

// WaitWhilePaused blocks while the token is paused, re-checking the stop flag
// each cycle so a stop issued during a pause is honored. It returns the
// context error on cancellation, nil otherwise.
func (c *RunControl) WaitWhilePaused(ctx context.Context) error {
	if !c.Paused() {
		return nil
	}
	ticker := time.NewTicker(pausePollInterval)
	defer ticker.Stop()
	for c.Paused() {
		if c.Stopped() {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
