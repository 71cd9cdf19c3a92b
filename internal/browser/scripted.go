// File: internal/browser/scripted.go
package browser

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/cadence/api/schemas"
	"github.com/xkilldash9x/cadence/internal/agent"
)

// Actor dispatches an action batch. The controller's paced MultiAct is
// injected here so delays land between the actions of a step; the default is
// the collaborator's own unpaced execution.
type Actor func(ctx context.Context, actions []schemas.Action, checkForNewElements bool) ([]schemas.ActionResult, error)

// PageDriver is the browser surface the scripted collaborator executes
// against. *Session satisfies it.
type PageDriver interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	Sleep(ctx context.Context, d time.Duration) error
	Location(ctx context.Context) (url, title string, err error)
	Screenshot(ctx context.Context) ([]byte, error)
	Close()
}

// ScriptedAgent walks a predefined action plan against a browser session. It
// is the module's built-in BaseAgent: useful on its own for replaying flows,
// and the reference collaborator for the paced run controller.
type ScriptedAgent struct {
	session   PageDriver
	plan      *Plan
	sensitive map[string]string
	state     *agent.RunState
	logger    *zap.Logger
	actor     Actor
	cursor    int
}

// NewScriptedAgent builds a collaborator over an open browser session.
// sensitive maps secret keys referenced by fill actions to their values.
func NewScriptedAgent(session PageDriver, plan *Plan, sensitive map[string]string, logger *zap.Logger) *ScriptedAgent {
	a := &ScriptedAgent{
		session:   session,
		plan:      plan,
		sensitive: sensitive,
		state:     agent.NewRunState(),
		logger:    logger.Named("scripted_agent"),
	}
	a.actor = a.MultiAct
	return a
}

// SetActor replaces the action dispatcher, typically with the controller's
// paced MultiAct.
func (a *ScriptedAgent) SetActor(actor Actor) {
	if actor != nil {
		a.actor = actor
	}
}

// State exposes the run state the collaborator maintains.
func (a *ScriptedAgent) State() *agent.RunState {
	return a.state
}

// Step executes the next plan step and appends its record to the history.
// Once the plan is exhausted a terminal done record is appended, so a plan
// without an explicit DONE action still completes.
func (a *ScriptedAgent) Step(ctx context.Context, info schemas.StepInfo) error {
	started := time.Now()

	if a.cursor >= len(a.plan.Steps) {
		a.appendRecord(nil, []schemas.ActionResult{{
			Done:             true,
			Success:          true,
			ExtractedContent: "Plan exhausted; task complete",
		}}, started, info)
		return nil
	}

	batch := a.plan.Steps[a.cursor]
	a.cursor++

	results, err := a.actor(ctx, batch.Actions, true)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		a.state.ConsecutiveFailures++
		results = append(results, schemas.ActionResult{
			Error:           err.Error(),
			IncludeInMemory: true,
		})
		a.appendRecord(batch.Actions, results, started, info)
		a.logger.Warn("Plan step failed",
			zap.Int("step", info.Step),
			zap.Int("consecutive_failures", a.state.ConsecutiveFailures),
			zap.Error(err),
		)
		return nil
	}

	a.state.ConsecutiveFailures = 0
	a.state.LastResult = results
	a.appendRecord(batch.Actions, results, started, info)
	return nil
}

// MultiAct executes a batch of actions sequentially against the session.
// checkForNewElements is accepted for interface parity; a scripted plan
// targets fixed selectors, so there is nothing to re-discover.
func (a *ScriptedAgent) MultiAct(ctx context.Context, actions []schemas.Action, checkForNewElements bool) ([]schemas.ActionResult, error) {
	results := make([]schemas.ActionResult, 0, len(actions))
	for _, action := range actions {
		result, err := a.execute(ctx, action)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

// ValidateOutput confirms a completed run. A scripted plan is valid exactly
// when its terminal result succeeded.
func (a *ScriptedAgent) ValidateOutput(ctx context.Context) (bool, error) {
	return a.state.History.IsSuccessful(), nil
}

// Close releases the browser session.
func (a *ScriptedAgent) Close(ctx context.Context) error {
	a.session.Close()
	return nil
}

// execute runs one action against the session.
func (a *ScriptedAgent) execute(ctx context.Context, action schemas.Action) (schemas.ActionResult, error) {
	switch action.Type {
	case schemas.ActionNavigate:
		if err := a.session.Navigate(ctx, action.Value); err != nil {
			return schemas.ActionResult{}, fmt.Errorf("navigate %s: %w", action.Value, err)
		}
		return schemas.ActionResult{Success: true, ExtractedContent: "Navigated to " + action.Value}, nil

	case schemas.ActionClick:
		if err := a.session.Click(ctx, action.Selector); err != nil {
			return schemas.ActionResult{}, fmt.Errorf("click %s: %w", action.Selector, err)
		}
		return schemas.ActionResult{Success: true, ExtractedContent: "Clicked " + action.Selector}, nil

	case schemas.ActionFill:
		value := action.Value
		if action.SecretKey != "" {
			secret, ok := a.sensitive[action.SecretKey]
			if !ok {
				return schemas.ActionResult{}, fmt.Errorf("fill %s: unknown secret key %q", action.Selector, action.SecretKey)
			}
			value = secret
		}
		if err := a.session.Fill(ctx, action.Selector, value); err != nil {
			return schemas.ActionResult{}, fmt.Errorf("fill %s: %w", action.Selector, err)
		}
		return schemas.ActionResult{Success: true, ExtractedContent: "Filled " + action.Selector}, nil

	case schemas.ActionWait:
		d := time.Second
		if ms, err := strconv.Atoi(action.Value); err == nil && ms > 0 {
			d = time.Duration(ms) * time.Millisecond
		}
		if err := a.session.Sleep(ctx, d); err != nil {
			return schemas.ActionResult{}, fmt.Errorf("wait: %w", err)
		}
		return schemas.ActionResult{Success: true}, nil

	case schemas.ActionDone:
		return schemas.ActionResult{
			Done:             true,
			Success:          true,
			ExtractedContent: action.Message,
		}, nil

	default:
		return schemas.ActionResult{}, fmt.Errorf("unsupported action type %q", string(action.Type))
	}
}

// appendRecord snapshots the page and appends a history record. Snapshot
// failures degrade to a record without page state.
func (a *ScriptedAgent) appendRecord(actions []schemas.Action, results []schemas.ActionResult, started time.Time, info schemas.StepInfo) {
	record := schemas.HistoryRecord{
		Actions: actions,
		Results: results,
		Metadata: &schemas.StepMetadata{
			StepNumber: info.Step,
			StartedAt:  started,
			Duration:   time.Since(started),
		},
	}

	snapCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if url, title, err := a.session.Location(snapCtx); err == nil {
		record.State.URL = url
		record.State.Title = title
	}
	if shot, err := a.session.Screenshot(snapCtx); err == nil {
		record.State.Screenshot = shot
	} else {
		a.logger.Debug("Screenshot capture failed", zap.Error(err))
	}

	a.state.History.Append(record)
}
