// File: internal/agent/interfaces.go
package agent

import (
	"context"

	"github.com/xkilldash9x/cadence/api/schemas"
	"github.com/xkilldash9x/cadence/internal/pacing"
)

// Pacer is the delay applier the controller drives. Satisfied by
// pacing.Pacer; mocked in tests.
type Pacer interface {
	// Apply awaits the configured delay for a category.
	Apply(ctx context.Context, category pacing.Category) error
	// WaitStep blocks until the step-rate ceiling admits another iteration.
	WaitStep(ctx context.Context) error
}

// BaseAgent is the step-execution collaborator the controller paces. The
// hard parts (planning, DOM execution, page tracking) live behind this
// interface; the controller only sequences calls into it and reads the state
// it maintains.
type BaseAgent interface {
	// Step executes one unit of work and records its outcome in the run
	// state. Implementations track consecutive failures themselves and
	// should only return an error for unrecoverable conditions or context
	// cancellation.
	Step(ctx context.Context, info schemas.StepInfo) error

	// MultiAct executes a batch of actions without any pacing. The
	// controller slices batches apart and re-dispatches them one action at a
	// time so delays land between every discrete action.
	MultiAct(ctx context.Context, actions []schemas.Action, checkForNewElements bool) ([]schemas.ActionResult, error)

	// State exposes the run state the collaborator owns.
	State() *RunState

	// ValidateOutput double-checks a completed run's output. A false return
	// sends the run loop back for another step.
	ValidateOutput(ctx context.Context) (bool, error)

	// Close releases the collaborator's resources.
	Close(ctx context.Context) error
}

// Hook runs at a step boundary. The controller is passed in so hooks can
// inspect state or flip the run control.
type Hook func(ctx context.Context, c *Controller) error

// RunState is owned by the base agent and read by the controller across the
// run loop. There is exactly one logical thread of control, so plain fields
// suffice.
type RunState struct {
	ConsecutiveFailures int
	History             *schemas.History
	LastResult          []schemas.ActionResult
}

// NewRunState returns an empty run state with an initialized history.
func NewRunState() *RunState {
	return &RunState{History: &schemas.History{}}
}
