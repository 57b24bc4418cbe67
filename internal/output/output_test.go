package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mj1618/ui-harness/internal/model"
	"gopkg.in/yaml.v3"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	old := Writer
	buf := &bytes.Buffer{}
	Writer = buf
	t.Cleanup(func() { Writer = old })
	return buf
}

func TestPrintYAML(t *testing.T) {
	buf := captureOutput(t)
	result := TreeResult{
		App:    "inventory",
		PID:    1234,
		Window: "Inventory Manager",
		TS:     1707500000,
		Elements: []model.Element{
			{ID: 1, Kind: model.KindButton, Name: "OK", Bounds: [4]int{10, 20, 100, 30}},
		},
	}

	if err := PrintYAML(result); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	// YAML output should be multi-line
	if strings.Count(out, "\n") <= 1 {
		t.Errorf("YAML output should be multi-line, got:\n%s", out)
	}

	var decoded TreeResult
	if err := yaml.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if decoded.App != "inventory" {
		t.Errorf("app: got %q, want %q", decoded.App, "inventory")
	}
	if len(decoded.Elements) != 1 {
		t.Errorf("elements: got %d, want 1", len(decoded.Elements))
	}
}

func TestPrintJSON_SingleLine(t *testing.T) {
	buf := captureOutput(t)
	if err := PrintJSON(WaitResult{Found: true, Elapsed: "120ms", Attempts: 3}); err != nil {
		t.Fatal(err)
	}
	out := strings.TrimRight(buf.String(), "\n")
	if strings.Contains(out, "\n") {
		t.Errorf("compact JSON should be single-line, got:\n%s", out)
	}
	var decoded WaitResult
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if !decoded.Found || decoded.Attempts != 3 {
		t.Errorf("round trip mismatch: %+v", decoded)
	}
}

func TestPrint_RespectsFormat(t *testing.T) {
	buf := captureOutput(t)
	oldFormat, oldPretty := OutputFormat, PrettyOutput
	t.Cleanup(func() { OutputFormat, PrettyOutput = oldFormat, oldPretty })

	OutputFormat = FormatJSON
	PrettyOutput = true
	if err := Print(LaunchResult{Executable: "bin/app", PID: 42, Elapsed: "1.2s"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "  \"pid\": 42") {
		t.Errorf("pretty JSON expected, got:\n%s", buf.String())
	}

	OutputFormat = Format("xml")
	if err := Print(struct{}{}); err == nil {
		t.Error("unsupported format should error")
	}
}

func TestTreeResult_OmitEmpty(t *testing.T) {
	result := TreeResult{
		TS:       123,
		Elements: []model.Element{},
	}
	data, err := yaml.Marshal(result)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]interface{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	// App, PID, Window should be omitted when empty/zero
	for _, key := range []string{"app", "pid", "window"} {
		if _, ok := m[key]; ok {
			t.Errorf("empty %s should be omitted", key)
		}
	}
	// TS should always be present
	if _, ok := m["ts"]; !ok {
		t.Error("ts should always be present")
	}
}
