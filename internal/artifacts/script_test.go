// File: internal/artifacts/script_test.go
package artifacts_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/cadence/api/schemas"
	"github.com/xkilldash9x/cadence/internal/artifacts"
)

func TestExportScript(t *testing.T) {
	history := &schemas.History{
		Records: []schemas.HistoryRecord{
			{Actions: []schemas.Action{
				{Type: schemas.ActionNavigate, Value: "https://example.com/login"},
				{Type: schemas.ActionFill, Selector: "#user", Value: "alice"},
			}},
			{Actions: []schemas.Action{
				{Type: schemas.ActionFill, Selector: "#pass", SecretKey: "LOGIN_PASSWORD"},
				{Type: schemas.ActionClick, Selector: "#submit"},
			}},
			{Actions: []schemas.Action{
				{Type: schemas.ActionWait, Value: "250"},
				{Type: schemas.ActionDone, Message: "logged in"},
			}},
		},
	}

	t.Run("should emit replayable chromedp tasks", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "replay.go")
		opts := artifacts.ScriptOptions{
			Task:          "Log in to example.com",
			SensitiveKeys: []string{"LOGIN_PASSWORD"},
		}
		require.NoError(t, artifacts.ExportScript(path, history, opts))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		script := string(data)

		assert.Contains(t, script, "// Task: Log in to example.com")
		assert.Contains(t, script, `chromedp.Navigate("https://example.com/login")`)
		assert.Contains(t, script, `chromedp.SendKeys("#user", "alice", chromedp.ByQuery)`)
		assert.Contains(t, script, `chromedp.Click("#submit", chromedp.ByQuery)`)
		assert.Contains(t, script, "chromedp.Sleep(250 * time.Millisecond)")
		assert.Contains(t, script, "// done: logged in")
	})

	t.Run("should reference secrets by key name only", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "replay.go")
		opts := artifacts.ScriptOptions{SensitiveKeys: []string{"LOGIN_PASSWORD"}}
		require.NoError(t, artifacts.ExportScript(path, history, opts))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		script := string(data)

		assert.Contains(t, script, `os.Getenv("LOGIN_PASSWORD")`)
		assert.Contains(t, script, "// Sensitive values are read from the environment at replay time: LOGIN_PASSWORD")
	})

	t.Run("should keep multiline task text inside its comment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "replay.go")
		opts := artifacts.ScriptOptions{Task: "line one\nline two"}
		require.NoError(t, artifacts.ExportScript(path, history, opts))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "// Task: line one line two")
	})

	t.Run("should create missing parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "replay.go")
		require.NoError(t, artifacts.ExportScript(path, history, artifacts.ScriptOptions{}))

		_, err := os.Stat(path)
		assert.NoError(t, err)
	})
}
