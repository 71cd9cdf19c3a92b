// File: internal/artifacts/script.go
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xkilldash9x/cadence/api/schemas"
)

// ScriptOptions controls replay-script generation.
type ScriptOptions struct {
	// Task is embedded as a header comment.
	Task string
	// SensitiveKeys lists the names of the run's sensitive values. Only the
	// names appear in the script; the generated code reads the values from
	// the environment at replay time.
	SensitiveKeys []string
}

// ExportScript writes a standalone chromedp program that replays the actions
// recorded in the history. Sensitive values are never embedded: actions that
// referenced a secret emit an os.Getenv lookup by key name.
func ExportScript(path string, history *schemas.History, opts ScriptOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating script directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("// Replay script generated from a cadence run history.\n")
	if opts.Task != "" {
		b.WriteString("// Task: " + sanitizeComment(opts.Task) + "\n")
	}
	if len(opts.SensitiveKeys) > 0 {
		b.WriteString("// Sensitive values are read from the environment at replay time: " +
			strings.Join(opts.SensitiveKeys, ", ") + "\n")
	}
	b.WriteString(`package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/chromedp/chromedp"
)

func main() {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()
	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	tasks := chromedp.Tasks{
`)

	for _, record := range history.Records {
		for _, action := range record.Actions {
			writeActionTask(&b, action)
		}
	}

	b.WriteString(`	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		log.Fatalf("replay failed: %v", err)
	}
	_ = os.Getenv
	_ = time.Second
}
`)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing replay script: %w", err)
	}
	return nil
}

// writeActionTask emits one chromedp task line for an action. Unknown action
// types become comments so the script still compiles.
func writeActionTask(b *strings.Builder, action schemas.Action) {
	switch action.Type {
	case schemas.ActionNavigate:
		fmt.Fprintf(b, "\t\tchromedp.Navigate(%s),\n", strconv.Quote(action.Value))
	case schemas.ActionClick:
		fmt.Fprintf(b, "\t\tchromedp.Click(%s, chromedp.ByQuery),\n", strconv.Quote(action.Selector))
	case schemas.ActionFill:
		fmt.Fprintf(b, "\t\tchromedp.SendKeys(%s, %s, chromedp.ByQuery),\n",
			strconv.Quote(action.Selector), valueExpr(action))
	case schemas.ActionWait:
		fmt.Fprintf(b, "\t\tchromedp.Sleep(%s * time.Millisecond),\n", waitMillis(action.Value))
	case schemas.ActionDone:
		fmt.Fprintf(b, "\t\t// done: %s\n", sanitizeComment(action.Message))
	default:
		fmt.Fprintf(b, "\t\t// unsupported action type %q\n", string(action.Type))
	}
}

// valueExpr renders the value argument for a fill action. Secret-backed
// values become environment lookups by key name only.
func valueExpr(action schemas.Action) string {
	if action.SecretKey != "" {
		return fmt.Sprintf("os.Getenv(%s)", strconv.Quote(action.SecretKey))
	}
	return strconv.Quote(action.Value)
}

// waitMillis parses a wait action's value as integer milliseconds, defaulting
// to one second for anything unparseable.
func waitMillis(value string) string {
	if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
		return strconv.Itoa(ms)
	}
	return "1000"
}

// sanitizeComment keeps embedded text from breaking out of a line comment.
func sanitizeComment(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r", " "), "\n", " ")
}
