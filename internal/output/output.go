package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mj1618/ui-harness/internal/model"
	"gopkg.in/yaml.v3"
)

// Format represents the output format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// OutputFormat is the current output format, set by the root command's --format flag.
var OutputFormat Format = FormatYAML

// PrettyOutput enables pretty-printing for JSON output.
var PrettyOutput bool

// Writer is where Print sends serialized output. Tests redirect it.
var Writer io.Writer = os.Stdout

// TreeResult is the top-level output of the `elements` command and tool.
type TreeResult struct {
	App      string          `yaml:"app,omitempty"    json:"app,omitempty"`
	PID      int             `yaml:"pid,omitempty"    json:"pid,omitempty"`
	Window   string          `yaml:"window,omitempty" json:"window,omitempty"`
	TS       int64           `yaml:"ts"               json:"ts"`
	Elements []model.Element `yaml:"elements"         json:"elements"`
}

// LaunchResult is the top-level output of the `launch` command.
type LaunchResult struct {
	Executable string `yaml:"executable"       json:"executable"`
	PID        int    `yaml:"pid"              json:"pid"`
	Window     string `yaml:"window,omitempty" json:"window,omitempty"`
	WindowID   int    `yaml:"window_id"        json:"window_id"`
	Elapsed    string `yaml:"elapsed"          json:"elapsed"`
}

// WaitResult is the top-level output of the `wait` command.
type WaitResult struct {
	Found    bool           `yaml:"found"             json:"found"`
	Elapsed  string         `yaml:"elapsed"           json:"elapsed"`
	Attempts int            `yaml:"attempts"          json:"attempts"`
	Element  *model.Element `yaml:"element,omitempty" json:"element,omitempty"`
}

// Print serializes v in the current output format.
func Print(v interface{}) error {
	switch OutputFormat {
	case FormatJSON:
		if PrettyOutput {
			return PrintPrettyJSON(v)
		}
		return PrintJSON(v)
	case FormatYAML:
		return PrintYAML(v)
	default:
		return fmt.Errorf("unsupported output format: %s", OutputFormat)
	}
}

// PrintJSON serializes v as compact single-line JSON.
func PrintJSON(v interface{}) error {
	enc := json.NewEncoder(Writer)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// PrintPrettyJSON serializes v as indented JSON.
func PrintPrettyJSON(v interface{}) error {
	enc := json.NewEncoder(Writer)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// PrintYAML serializes v as YAML.
func PrintYAML(v interface{}) error {
	enc := yaml.NewEncoder(Writer)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}
	return enc.Close()
}
