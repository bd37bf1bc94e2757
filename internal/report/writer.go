package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tcrun/internal/runner"
)

const (
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

// Formats lists the supported report formats.
var Formats = []string{FormatJSON, FormatXLSX}

// Write stores result at path in the given format.
func Write(format, path string, result runner.SuiteResult) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	switch strings.ToLower(format) {
	case FormatJSON:
		return WriteJSON(path, result)
	case FormatXLSX:
		return WriteXLSX(path, result)
	default:
		return fmt.Errorf("unsupported report format %q (supported: %s)", format, strings.Join(Formats, ", "))
	}
}

// WriteJSON stores result as indented JSON.
func WriteJSON(path string, result runner.SuiteResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}
