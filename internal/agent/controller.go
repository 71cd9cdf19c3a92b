// File: internal/agent/controller.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cadence/api/schemas"
	"github.com/xkilldash9x/cadence/internal/artifacts"
	"github.com/xkilldash9x/cadence/internal/config"
	"github.com/xkilldash9x/cadence/internal/pacing"
)

// closeTimeout bounds base-agent cleanup during finalization. Finalization
// runs even when the run context is already cancelled, so it gets its own
// deadline.
const closeTimeout = 30 * time.Second

// exhaustionMessage is recorded in history when the step budget runs out.
const exhaustionMessage = "Failed to complete task in maximum steps"

// Controller paces a base agent through a bounded run loop: delays between
// steps and actions, pause/resume/stop control, and end-of-run artifact
// generation. It composes over the collaborator instead of subclassing it;
// all pacing decisions live here, all execution lives behind BaseAgent.
type Controller struct {
	base    BaseAgent
	pacer   Pacer
	cfg     config.AgentConfig
	control *RunControl
	logger  *zap.Logger

	task           string
	sensitiveData  map[string]string
	initialActions []schemas.Action
	onStepStart    Hook
	onStepEnd      Hook

	// Artifact writers, swapped out in tests.
	exportScript func(path string, history *schemas.History, opts artifacts.ScriptOptions) error
	renderGIF    func(task string, history *schemas.History, path string) error
	writeHistory func(path string, history *schemas.History) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithTask sets the human-readable task description used in logs and
// artifacts.
func WithTask(task string) Option {
	return func(c *Controller) { c.task = task }
}

// WithSensitiveData registers the sensitive-value map for the run. Exported
// artifacts reference these entries by key name only, never by value.
func WithSensitiveData(data map[string]string) Option {
	return func(c *Controller) { c.sensitiveData = data }
}

// WithInitialActions sets an action batch executed before the first step.
func WithInitialActions(actions []schemas.Action) Option {
	return func(c *Controller) { c.initialActions = actions }
}

// WithStepHooks installs optional callbacks around each step. A hook error
// is logged but never aborts the run.
func WithStepHooks(onStart, onEnd Hook) Option {
	return func(c *Controller) {
		c.onStepStart = onStart
		c.onStepEnd = onEnd
	}
}

// NewController creates a paced run controller over a base agent.
func NewController(base BaseAgent, pacer Pacer, cfg config.AgentConfig, logger *zap.Logger, opts ...Option) *Controller {
	runID := uuid.New().String()[:8]
	c := &Controller{
		base:         base,
		pacer:        pacer,
		cfg:          cfg,
		control:      NewRunControl(),
		logger:       logger.Named("controller").With(zap.String("run_id", runID)),
		exportScript: artifacts.ExportScript,
		renderGIF:    artifacts.RenderGIF,
		writeHistory: artifacts.WriteHistoryJSON,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Control exposes the pause/stop token so callers and tests can drive state
// transitions without going through process signals.
func (c *Controller) Control() *RunControl {
	return c.control
}

// MultiAct executes a batch of actions with an ACTION-category delay between
// every discrete action. The first action runs without a delay; each
// subsequent action is dispatched alone to the base agent after a delay, so
// pacing applies even when the caller submits a whole batch.
func (c *Controller) MultiAct(ctx context.Context, actions []schemas.Action, checkForNewElements bool) ([]schemas.ActionResult, error) {
	if len(actions) == 0 {
		return []schemas.ActionResult{}, nil
	}

	results, err := c.base.MultiAct(ctx, actions[:1], checkForNewElements)
	if err != nil {
		return results, err
	}

	for _, action := range actions[1:] {
		if err := c.pacer.Apply(ctx, pacing.CategoryAction); err != nil {
			return results, err
		}
		next, err := c.base.MultiAct(ctx, []schemas.Action{action}, checkForNewElements)
		results = append(results, next...)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// Run executes the task with a maximum number of steps. It always returns
// the accumulated history; an interrupt or context cancellation is a
// graceful-stop signal, not an error. Finalization (signal teardown, script
// export, base close, GIF render) runs on every exit path.
func (c *Controller) Run(ctx context.Context) (*schemas.History, error) {
	state := c.base.State()
	bridge := NewSignalBridge(c.control, true, c.logger)
	bridge.Register()
	defer c.finalize(bridge, state)

	c.logger.Info("Starting paced run",
		zap.String("task", c.task),
		zap.Int("max_steps", c.cfg.MaxSteps),
		zap.Int("max_failures", c.cfg.MaxFailures),
	)

	if len(c.initialActions) > 0 {
		results, err := c.MultiAct(ctx, c.initialActions, false)
		if err != nil {
			if interrupted(ctx, err) {
				return c.interruptedHistory(state), nil
			}
			return state.History, fmt.Errorf("initial actions failed: %w", err)
		}
		state.LastResult = results
	}

	exhausted := true
	for step := 0; step < c.cfg.MaxSteps; step++ {
		// An interrupt may have paused the run; wait for the operator's
		// decision before anything else.
		if c.control.Paused() {
			if err := bridge.WaitForResume(ctx); err != nil {
				return c.interruptedHistory(state), nil
			}
		}

		if state.ConsecutiveFailures >= c.cfg.MaxFailures {
			c.logger.Error("Stopping: too many consecutive failures",
				zap.Int("consecutive_failures", state.ConsecutiveFailures),
				zap.Int("max_failures", c.cfg.MaxFailures),
			)
			exhausted = false
			break
		}

		if c.control.Stopped() {
			c.logger.Info("Agent stopped")
			exhausted = false
			break
		}

		if err := c.control.WaitWhilePaused(ctx); err != nil {
			return c.interruptedHistory(state), nil
		}

		if c.onStepStart != nil {
			if err := c.onStepStart(ctx, c); err != nil {
				c.logger.Warn("Step-start hook failed", zap.Int("step", step), zap.Error(err))
			}
		}

		if err := c.pacer.Apply(ctx, pacing.CategoryStep); err != nil {
			return c.interruptedHistory(state), nil
		}
		if step == 0 {
			// The task delay applies on the first step of every run
			// invocation, not once per process.
			if err := c.pacer.Apply(ctx, pacing.CategoryTask); err != nil {
				return c.interruptedHistory(state), nil
			}
		}
		if err := c.pacer.WaitStep(ctx); err != nil {
			return c.interruptedHistory(state), nil
		}

		if err := c.base.Step(ctx, schemas.StepInfo{Step: step, MaxSteps: c.cfg.MaxSteps}); err != nil {
			if interrupted(ctx, err) {
				return c.interruptedHistory(state), nil
			}
			// The base tracks its own failure count; the threshold check at
			// the top of the loop decides when enough is enough.
			c.logger.Warn("Step failed", zap.Int("step", step), zap.Error(err))
			continue
		}

		if c.onStepEnd != nil {
			if err := c.onStepEnd(ctx, c); err != nil {
				c.logger.Warn("Step-end hook failed", zap.Int("step", step), zap.Error(err))
			}
		}

		if state.History.IsDone() {
			if c.cfg.ValidateOutput && step < c.cfg.MaxSteps-1 {
				valid, err := c.base.ValidateOutput(ctx)
				if err != nil {
					if interrupted(ctx, err) {
						return c.interruptedHistory(state), nil
					}
					c.logger.Warn("Output validation errored; accepting completion", zap.Error(err))
				} else if !valid {
					continue
				}
			}
			c.logger.Info("Task completed",
				zap.Bool("success", state.History.IsSuccessful()),
				zap.Int("steps", step+1),
				zap.String("final_result", state.History.FinalResult()),
			)
			exhausted = false
			break
		}
	}

	if exhausted {
		state.History.AppendFailure(exhaustionMessage)
		c.logger.Info(exhaustionMessage, zap.Int("max_steps", c.cfg.MaxSteps))
	}
	return state.History, nil
}

// finalize runs the teardown sequence regardless of how the run exited. Each
// stage is isolated: a failing script export never blocks the close or the
// GIF render.
func (c *Controller) finalize(bridge *SignalBridge, state *RunState) {
	bridge.Unregister()

	if c.cfg.SaveScriptPath != "" {
		c.logger.Info("Run finished; saving replay script", zap.String("path", c.cfg.SaveScriptPath))
		opts := artifacts.ScriptOptions{
			Task:          c.task,
			SensitiveKeys: sortedKeys(c.sensitiveData),
		}
		if err := c.exportScript(c.cfg.SaveScriptPath, state.History, opts); err != nil {
			c.logger.Error("Failed to save replay script",
				zap.String("path", c.cfg.SaveScriptPath),
				zap.Error(err),
			)
		}
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := c.base.Close(closeCtx); err != nil {
		c.logger.Warn("Base agent did not close cleanly", zap.Error(err))
	}

	if c.cfg.GenerateGIF {
		path := c.cfg.GIFPath
		if path == "" {
			path = artifacts.DefaultGIFPath
		}
		if err := c.renderGIF(c.task, state.History, path); err != nil {
			if errors.Is(err, artifacts.ErrNoFrames) {
				c.logger.Warn("History has no screenshots; skipping GIF", zap.String("path", path))
			} else {
				c.logger.Error("Failed to render run GIF", zap.String("path", path), zap.Error(err))
			}
		}
	}

	if c.cfg.SaveHistoryPath != "" {
		if err := c.writeHistory(c.cfg.SaveHistoryPath, state.History); err != nil {
			c.logger.Error("Failed to export run history",
				zap.String("path", c.cfg.SaveHistoryPath),
				zap.Error(err),
			)
		}
	}
}

// interruptedHistory logs the graceful-stop path and hands back whatever has
// accumulated.
func (c *Controller) interruptedHistory(state *RunState) *schemas.History {
	c.logger.Info("Interrupted during execution; returning current history",
		zap.Int("records", state.History.Len()))
	return state.History
}

// interrupted reports whether an error is the run context ending rather than
// a real failure.
func interrupted(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func sortedKeys(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
