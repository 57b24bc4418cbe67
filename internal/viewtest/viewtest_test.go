//go:build !windows

package viewtest

import (
	"context"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mj1618/ui-harness/internal/automation/sim"
	"github.com/mj1618/ui-harness/internal/config"
	"github.com/mj1618/ui-harness/internal/harness"
	"github.com/mj1618/ui-harness/internal/model"
)

const defsYAML = `
views:
  - view: Orders
    nav_labels: ["Orders", "Order Management"]
    markers:
      - automation_id: OrdersGrid
      - name: Refresh
        kind: btn
  - view: Settings
    skip: true
    reason: flaky on headless agents
`

func TestParse(t *testing.T) {
	defs, err := Parse([]byte(defsYAML))
	require.NoError(t, err)
	require.Len(t, defs, 2)

	assert.Equal(t, "Orders", defs[0].View)
	assert.Equal(t, []string{"Orders", "Order Management"}, defs[0].NavLabels)
	require.Len(t, defs[0].Markers, 2)
	assert.Equal(t, model.KindButton, defs[0].Markers[1].Kind)

	assert.True(t, defs[1].Skip)
	assert.Equal(t, "flaky on headless agents", defs[1].Reason)
}

func TestParse_Rejections(t *testing.T) {
	cases := map[string]string{
		"no views":     `views: []`,
		"unnamed view": "views:\n  - nav_labels: [\"Home\"]",
		"empty marker": "views:\n  - view: Home\n    markers:\n      - min_count: 3",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/no/such/views.yaml")
	assert.Error(t, err)
}

func TestMarkerQuery(t *testing.T) {
	m := Marker{Name: "Refresh", Kind: model.KindButton}
	q := m.Query()

	assert.True(t, q.Matches(model.Element{Name: "Refresh", Kind: model.KindButton}))
	assert.False(t, q.Matches(model.Element{Name: "Refresh", Kind: model.KindInput}))
	assert.Contains(t, q.String(), "Refresh")
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		TimeoutMultiplier: 0.25, // shrink preset budgets to keep tests quick
		FailureKeywords:   []string{"exception", "error", "crash"},
		SplashKeywords:    []string{"loading"},
		PoolSize:          2,
		ArtifactDir:       t.TempDir(),
	}
}

func findBin(t *testing.T, name string) string {
	t.Helper()
	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
	return path
}

func ordersScript() sim.Script {
	return sim.Script{
		WindowTitle: "Inventory Manager",
		Views: []sim.View{
			{
				Name:     "Home",
				NavLabel: "Home",
				Elements: []model.Element{
					{AutomationID: "Welcome", Kind: model.KindOther, Class: "Text", Name: "Welcome"},
				},
			},
			{
				Name:     "Orders",
				NavLabel: "Orders",
				Elements: []model.Element{
					{AutomationID: "OrdersGrid", Kind: model.KindList, Class: "DataGrid", Name: "Order List"},
					{AutomationID: "RefreshBtn", Kind: model.KindButton, Class: "Button", Name: "Refresh"},
				},
				RenderDelay: 50 * time.Millisecond,
			},
		},
		InitialView: "Home",
	}
}

func launchSession(t *testing.T, d *sim.Driver, h *harness.Harness) *harness.Session {
	t.Helper()
	s, err := h.Launch(context.Background(), harness.LaunchOptions{
		Executable: findBin(t, "sleep"),
		Args:       []string{"60"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { h.Teardown(context.Background(), s) })
	return s
}

func TestRun_Pass(t *testing.T) {
	d := sim.NewDriver(ordersScript())
	h := harness.New(d, testConfig(t))
	defer h.Close()
	s := launchSession(t, d, h)

	res := NewRunner(h).Run(context.Background(), s, Definition{
		View:      "Orders",
		NavLabels: []string{"Orders"},
		Markers: []Marker{
			{AutomationID: "OrdersGrid"},
			{Name: "Refresh", Kind: model.KindButton},
		},
	})

	assert.Equal(t, OutcomePass, res.Outcome, "detail: %s", res.Detail)
	assert.NotEmpty(t, res.Elapsed)
}

func TestRun_SecondNavLabelWorks(t *testing.T) {
	d := sim.NewDriver(ordersScript())
	h := harness.New(d, testConfig(t))
	defer h.Close()
	s := launchSession(t, d, h)

	res := NewRunner(h).Run(context.Background(), s, Definition{
		View:      "Orders",
		NavLabels: []string{"Order Management", "Orders"},
		Markers:   []Marker{{AutomationID: "OrdersGrid"}},
	})

	assert.Equal(t, OutcomePass, res.Outcome, "detail: %s", res.Detail)
}

func TestRun_MissingMarkerFailsWithScreenshot(t *testing.T) {
	d := sim.NewDriver(ordersScript())
	cfg := testConfig(t)
	h := harness.New(d, cfg)
	defer h.Close()
	s := launchSession(t, d, h)

	res := NewRunner(h).Run(context.Background(), s, Definition{
		View:      "Orders",
		NavLabels: []string{"Orders"},
		Markers:   []Marker{{AutomationID: "Ghost"}},
	})

	assert.Equal(t, OutcomeFail, res.Outcome)
	assert.Contains(t, res.Detail, "Ghost")

	entries, err := os.ReadDir(cfg.ArtifactDir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries, "a failure must leave a screenshot behind")
}

func TestRun_MinCountAfterGrowth(t *testing.T) {
	script := ordersScript()
	script.Views[1].Elements = []model.Element{
		{AutomationID: "Row1", Kind: model.KindListItem, Class: "Row", Name: "Row 1"},
		{AutomationID: "Row2", Kind: model.KindListItem, Class: "Row", Name: "Row 2"},
		{AutomationID: "Row3", Kind: model.KindListItem, Class: "Row", Name: "Row 3"},
	}
	script.Views[1].GrowEvery = 40 * time.Millisecond

	d := sim.NewDriver(script)
	h := harness.New(d, testConfig(t))
	defer h.Close()
	s := launchSession(t, d, h)

	res := NewRunner(h).Run(context.Background(), s, Definition{
		View:      "Orders",
		NavLabels: []string{"Orders"},
		Markers:   []Marker{{Kind: model.KindListItem, MinCount: 3}},
	})

	assert.Equal(t, OutcomePass, res.Outcome, "detail: %s", res.Detail)
}

func TestRun_Skip(t *testing.T) {
	h := harness.New(sim.NewDriver(sim.Script{}), testConfig(t))
	defer h.Close()

	res := NewRunner(h).Run(context.Background(), nil, Definition{
		View:   "Settings",
		Skip:   true,
		Reason: "flaky on headless agents",
	})

	assert.Equal(t, OutcomeSkip, res.Outcome)
	assert.Equal(t, "flaky on headless agents", res.Detail)
}

func TestRunAll(t *testing.T) {
	d := sim.NewDriver(ordersScript())
	h := harness.New(d, testConfig(t))
	defer h.Close()

	defs := []Definition{
		{View: "Home", NavLabels: []string{"Home"}, Markers: []Marker{{AutomationID: "Welcome"}}},
		{View: "Orders", NavLabels: []string{"Orders"}, Markers: []Marker{{AutomationID: "OrdersGrid"}}},
		{View: "Settings", Skip: true, Reason: "not implemented"},
	}

	launch := func(ctx context.Context) (*harness.Session, error) {
		return h.Launch(ctx, harness.LaunchOptions{
			Executable: findBin(t, "sleep"),
			Args:       []string{"60"},
		})
	}

	report, err := NewRunner(h).RunAll(context.Background(), defs, launch, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Passed)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Results, 3)
	assert.Equal(t, "Home", report.Results[0].View, "results keep definition order")

	assert.Equal(t, d.Attaches(), d.Releases(), "every launched session must be released")
}
