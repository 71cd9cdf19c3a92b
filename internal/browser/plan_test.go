// File: internal/browser/plan_test.go
package browser_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/cadence/api/schemas"
	"github.com/xkilldash9x/cadence/internal/browser"
)

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPlan(t *testing.T) {
	t.Run("should load a valid plan", func(t *testing.T) {
		path := writePlan(t, `
task: Log in and export the report
steps:
  - actions:
      - type: NAVIGATE
        value: https://example.com/login
  - actions:
      - type: FILL
        selector: "#user"
        value: alice
      - type: FILL
        selector: "#pass"
        secret_key: LOGIN_PASSWORD
      - type: CLICK
        selector: "#submit"
  - actions:
      - type: DONE
        message: logged in
`)

		plan, err := browser.LoadPlan(path)
		require.NoError(t, err)

		want := &browser.Plan{
			Task: "Log in and export the report",
			Steps: []browser.PlanStep{
				{Actions: []schemas.Action{
					{Type: schemas.ActionNavigate, Value: "https://example.com/login"},
				}},
				{Actions: []schemas.Action{
					{Type: schemas.ActionFill, Selector: "#user", Value: "alice"},
					{Type: schemas.ActionFill, Selector: "#pass", SecretKey: "LOGIN_PASSWORD"},
					{Type: schemas.ActionClick, Selector: "#submit"},
				}},
				{Actions: []schemas.Action{
					{Type: schemas.ActionDone, Message: "logged in"},
				}},
			},
		}
		assert.Empty(t, cmp.Diff(want, plan))
	})

	t.Run("should fail on a missing file", func(t *testing.T) {
		_, err := browser.LoadPlan(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading task plan")
	})

	t.Run("should fail on malformed YAML", func(t *testing.T) {
		path := writePlan(t, "task: [unterminated")
		_, err := browser.LoadPlan(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing task plan")
	})
}

func TestPlanValidate(t *testing.T) {
	testCases := []struct {
		name    string
		plan    browser.Plan
		wantErr string
	}{
		{
			name:    "should reject an empty plan",
			plan:    browser.Plan{},
			wantErr: "no steps",
		},
		{
			name:    "should reject a step without actions",
			plan:    browser.Plan{Steps: []browser.PlanStep{{}}},
			wantErr: "step 0 has no actions",
		},
		{
			name: "should reject a navigate without a value",
			plan: browser.Plan{Steps: []browser.PlanStep{
				{Actions: []schemas.Action{{Type: schemas.ActionNavigate}}},
			}},
			wantErr: "navigate requires a value",
		},
		{
			name: "should reject a click without a selector",
			plan: browser.Plan{Steps: []browser.PlanStep{
				{Actions: []schemas.Action{{Type: schemas.ActionClick}}},
			}},
			wantErr: "click requires a selector",
		},
		{
			name: "should reject a fill without a value or secret",
			plan: browser.Plan{Steps: []browser.PlanStep{
				{Actions: []schemas.Action{{Type: schemas.ActionFill, Selector: "#user"}}},
			}},
			wantErr: "fill requires a value or a secret_key",
		},
		{
			name: "should reject an unknown action type",
			plan: browser.Plan{Steps: []browser.PlanStep{
				{Actions: []schemas.Action{{Type: "HOVER"}}},
			}},
			wantErr: `unknown action type "HOVER"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.plan.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
