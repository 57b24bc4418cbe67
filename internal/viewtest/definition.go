package viewtest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mj1618/ui-harness/internal/model"
)

// Marker is one expected child element of a view. At least one of the
// matching fields must be set; set fields are ANDed together.
type Marker struct {
	AutomationID string     `yaml:"automation_id,omitempty"`
	Name         string     `yaml:"name,omitempty"`
	Class        string     `yaml:"class,omitempty"`
	Kind         model.Kind `yaml:"kind,omitempty"`
	// MinCount requires at least this many matches. Zero means one.
	MinCount int `yaml:"min_count,omitempty"`
}

// Query builds the element query for this marker.
func (m Marker) Query() model.Query {
	var q model.Query
	set := false
	add := func(next model.Query) {
		if set {
			q = q.And(next)
		} else {
			q = next
			set = true
		}
	}
	if m.AutomationID != "" {
		add(model.ByAutomationID(m.AutomationID))
	}
	if m.Name != "" {
		add(model.ByName(m.Name))
	}
	if m.Class != "" {
		add(model.ByClass(m.Class))
	}
	if m.Kind != "" {
		add(model.ByKind(m.Kind))
	}
	return q
}

func (m Marker) empty() bool {
	return m.AutomationID == "" && m.Name == "" && m.Class == "" && m.Kind == ""
}

// Definition declares one view to verify: how to navigate to it and what
// must be visible once it rendered. Definitions live for one run only.
type Definition struct {
	View      string   `yaml:"view"`
	NavLabels []string `yaml:"nav_labels,omitempty"`
	Markers   []Marker `yaml:"markers,omitempty"`
	Skip      bool     `yaml:"skip,omitempty"`
	Reason    string   `yaml:"reason,omitempty"`
}

func (d Definition) validate() error {
	if d.View == "" {
		return fmt.Errorf("view name is required")
	}
	if d.Skip {
		return nil
	}
	for i, m := range d.Markers {
		if m.empty() {
			return fmt.Errorf("view %q: marker %d has no matching fields", d.View, i)
		}
	}
	return nil
}

// Load reads view-test definitions from a YAML file.
func Load(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read view definitions: %w", err)
	}
	return Parse(data)
}

// Parse decodes view-test definitions from YAML bytes.
func Parse(data []byte) ([]Definition, error) {
	var file struct {
		Views []Definition `yaml:"views"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse view definitions: %w", err)
	}
	if len(file.Views) == 0 {
		return nil, fmt.Errorf("view definitions file declares no views")
	}
	for _, d := range file.Views {
		if err := d.validate(); err != nil {
			return nil, err
		}
	}
	return file.Views, nil
}
