// Package formatting renders command output as a table, JSON or YAML.
package formatting

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"
)

// OutputFormat represents the desired output format.
type OutputFormat string

const (
	FormatTable OutputFormat = "table" // Rich table output
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
)

// OutputFormats lists the supported formats.
var OutputFormats = []string{string(FormatTable), string(FormatJSON), string(FormatYAML)}

// ParseOutputFormat validates s. The empty string selects FormatTable.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (supported: %s)", s, strings.Join(OutputFormats, ", "))
	}
}

// NewTable creates a table with standard styling writing to w on Render.
func NewTable(w io.Writer, headers ...string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)

	row := make(table.Row, len(headers))
	for i, h := range headers {
		row[i] = text.FgHiCyan.Sprint(h)
	}
	t.AppendHeader(row)
	return t
}

// WriteData writes v as JSON or YAML.
func WriteData(w io.Writer, format OutputFormat, v any) error {
	switch format {
	case FormatJSON:
		_, err := fmt.Fprintln(w, PrettyJSON(v))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("format %q cannot render data", format)
	}
}

// EmptyMessage formats the line printed when there is nothing to show.
func EmptyMessage(icon, message string) string {
	return fmt.Sprintf("%s %s\n", text.FgYellow.Sprint(icon), text.FgYellow.Sprint(message))
}

// PrettyJSON formats v as indented JSON, falling back to %v when v cannot
// be marshalled.
func PrettyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
