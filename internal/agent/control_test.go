// File: internal/agent/control_test.go
package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestRunControlTransitions(t *testing.T) {
	control := NewRunControl()

	assert.False(t, control.Paused())
	assert.False(t, control.Stopped())

	control.Pause()
	assert.True(t, control.Paused())

	control.Resume()
	assert.False(t, control.Paused())

	control.Stop()
	assert.True(t, control.Stopped())
}

func TestWaitWhilePaused(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("should return immediately when not paused", func(t *testing.T) {
		control := NewRunControl()

		start := time.Now()
		require.NoError(t, control.WaitWhilePaused(context.Background()))
		assert.Less(t, time.Since(start), pausePollInterval)
	})

	t.Run("should block until resumed", func(t *testing.T) {
		control := NewRunControl()
		control.Pause()

		go func() {
			time.Sleep(50 * time.Millisecond)
			control.Resume()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, control.WaitWhilePaused(ctx))
		assert.False(t, control.Paused())
	})

	t.Run("should honor a stop issued during the pause", func(t *testing.T) {
		control := NewRunControl()
		control.Pause()
		control.Stop()

		require.NoError(t, control.WaitWhilePaused(context.Background()))
		assert.True(t, control.Stopped())
	})

	t.Run("should return the context error on cancellation", func(t *testing.T) {
		control := NewRunControl()
		control.Pause()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, control.WaitWhilePaused(ctx), context.Canceled)
	})
}
