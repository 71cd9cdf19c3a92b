// File: internal/browser/plan.go
package browser

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/cadence/api/schemas"
)

// Plan is a scripted action sequence for the collaborator to walk through.
// One PlanStep maps to one run-loop step; the actions inside a step flow
// through the controller's paced MultiAct.
type Plan struct {
	Task  string     `yaml:"task"`
	Steps []PlanStep `yaml:"steps"`
}

// PlanStep is one batch of actions executed as a single step.
type PlanStep struct {
	Actions []schemas.Action `yaml:"actions"`
}

// LoadPlan reads and validates a YAML task plan.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading task plan: %w", err)
	}
	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parsing task plan: %w", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task plan: %w", err)
	}
	return &plan, nil
}

// Validate rejects empty plans and actions missing their required fields.
func (p *Plan) Validate() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("plan has no steps")
	}
	for i, step := range p.Steps {
		if len(step.Actions) == 0 {
			return fmt.Errorf("step %d has no actions", i)
		}
		for j, action := range step.Actions {
			if err := validateAction(action); err != nil {
				return fmt.Errorf("step %d action %d: %w", i, j, err)
			}
		}
	}
	return nil
}

func validateAction(action schemas.Action) error {
	switch action.Type {
	case schemas.ActionNavigate:
		if action.Value == "" {
			return fmt.Errorf("navigate requires a value")
		}
	case schemas.ActionClick:
		if action.Selector == "" {
			return fmt.Errorf("click requires a selector")
		}
	case schemas.ActionFill:
		if action.Selector == "" {
			return fmt.Errorf("fill requires a selector")
		}
		if action.Value == "" && action.SecretKey == "" {
			return fmt.Errorf("fill requires a value or a secret_key")
		}
	case schemas.ActionWait, schemas.ActionDone:
		// No required fields.
	default:
		return fmt.Errorf("unknown action type %q", string(action.Type))
	}
	return nil
}
