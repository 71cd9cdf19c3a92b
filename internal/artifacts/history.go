// File: internal/artifacts/history.go
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/cadence/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WriteHistoryJSON serializes the run history to path as indented JSON.
// Screenshots ride along base64-encoded, so the export is self-contained.
func WriteHistoryJSON(path string, history *schemas.History) error {
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing history export: %w", err)
	}
	return nil
}
