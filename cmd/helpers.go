package cmd

import (
	"fmt"
	"strings"

	"github.com/mj1618/ui-harness/internal/automation"
	"github.com/mj1618/ui-harness/internal/harness"
	"github.com/mj1618/ui-harness/internal/model"
)

// newHarness builds a harness on the registered platform backend and the
// loaded configuration.
func newHarness() (*harness.Harness, error) {
	driver, err := automation.NewDriver()
	if err != nil {
		return nil, err
	}
	return harness.New(driver, cfg), nil
}

// buildQuery combines the element-matching flags shared by wait and the MCP
// tools. Set fields are ANDed; at least one must be set.
func buildQuery(text, automationID, kind string) (model.Query, error) {
	if text == "" && automationID == "" && kind == "" {
		return model.Query{}, fmt.Errorf("specify at least one condition: text, automation id, or kind")
	}
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
	if automationID != "" {
		add(model.ByAutomationID(automationID))
	}
	if text != "" {
		add(model.ByName(text))
	}
	if kind != "" {
		add(model.ByKind(model.Kind(strings.TrimSpace(kind))))
	}
	return q, nil
}

// parseKinds converts repeated --kind flag values into normalized kinds,
// dropping blanks.
func parseKinds(values []string) []model.Kind {
	var kinds []model.Kind
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kinds = append(kinds, model.Kind(v))
		}
	}
	return kinds
}
