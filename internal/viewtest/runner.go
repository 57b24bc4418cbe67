// Package viewtest navigates an application's views and verifies that each
// renders the elements it is expected to. Definitions come from a YAML file;
// results are produced and consumed within one run.
package viewtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mj1618/ui-harness/internal/diag"
	"github.com/mj1618/ui-harness/internal/harness"
	"github.com/mj1618/ui-harness/internal/model"
	"github.com/mj1618/ui-harness/internal/retry"
)

// Outcome is the verdict for one view.
type Outcome string

const (
	OutcomePass Outcome = "pass"
	OutcomeFail Outcome = "fail"
	OutcomeSkip Outcome = "skip"
)

// stableThreshold is how many consecutive equal element counts mean a view
// finished rendering.
const stableThreshold = 3

// Result records the verdict for one view.
type Result struct {
	View    string  `yaml:"view"             json:"view"`
	Outcome Outcome `yaml:"outcome"          json:"outcome"`
	Detail  string  `yaml:"detail,omitempty" json:"detail,omitempty"`
	Elapsed string  `yaml:"elapsed"          json:"elapsed"`
}

// Report is the aggregate of one run.
type Report struct {
	Results []Result `yaml:"results" json:"results"`
	Passed  int      `yaml:"passed"  json:"passed"`
	Failed  int      `yaml:"failed"  json:"failed"`
	Skipped int      `yaml:"skipped" json:"skipped"`
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	switch res.Outcome {
	case OutcomePass:
		r.Passed++
	case OutcomeFail:
		r.Failed++
	case OutcomeSkip:
		r.Skipped++
	}
}

// Runner drives view tests against live sessions.
type Runner struct {
	h   *harness.Harness
	log *slog.Logger
}

// NewRunner builds a Runner on an existing harness.
func NewRunner(h *harness.Harness) *Runner {
	return &Runner{h: h, log: diag.Logger("ViewTest")}
}

// Run verifies one view inside an already-launched session: navigate to it,
// wait for rendering to settle, then check every marker. A failed view never
// aborts the run; the caller decides what a failure means.
func (r *Runner) Run(ctx context.Context, s *harness.Session, def Definition) (res Result) {
	start := time.Now()
	res.View = def.View
	defer func() { res.Elapsed = time.Since(start).Round(time.Millisecond).String() }()

	if def.Skip {
		res.Outcome = OutcomeSkip
		res.Detail = def.Reason
		r.log.Info("view skipped", "view", def.View, "reason", def.Reason)
		return res
	}

	if err := r.navigate(ctx, s, def); err != nil {
		return r.fail(s, res, fmt.Sprintf("navigation: %v", err))
	}

	// Views populate asynchronously; wait for the element count to hold
	// steady before judging markers.
	if _, ok, stats := r.h.WaitForStableCount(ctx, s, model.Query{}, stableThreshold, retry.ViewRender); !ok {
		return r.fail(s, res, fmt.Sprintf("view never settled (%s)", stats))
	}

	for _, m := range def.Markers {
		if err := r.checkMarker(ctx, s, m); err != nil {
			return r.fail(s, res, err.Error())
		}
	}

	res.Outcome = OutcomePass
	r.log.Info("view verified", "view", def.View, "markers", len(def.Markers))
	return res
}

// navigate clicks the first navigation label that resolves to a clickable
// element. Labels are candidates because the same view is reachable under
// different captions across application versions.
func (r *Runner) navigate(ctx context.Context, s *harness.Session, def Definition) error {
	if len(def.NavLabels) == 0 {
		return nil // view is expected to already be showing
	}
	var lastErr error
	for _, label := range def.NavLabels {
		err := r.h.ClickElement(ctx, s, model.ByName(label), retry.Navigation)
		if err == nil {
			return nil
		}
		lastErr = err
		r.log.Debug("navigation label missed", "view", def.View, "label", label, "error", err)
	}
	return fmt.Errorf("no navigation label matched %v: %w", def.NavLabels, lastErr)
}

func (r *Runner) checkMarker(ctx context.Context, s *harness.Session, m Marker) error {
	q := m.Query()
	if m.MinCount > 1 {
		n, ok, stats := r.h.WaitForStableCount(ctx, s, q, stableThreshold, retry.ElementSearch)
		if !ok {
			return fmt.Errorf("marker %s: count never settled (%s)", q, stats)
		}
		if n < m.MinCount {
			return fmt.Errorf("marker %s: want at least %d, saw %d", q, m.MinCount, n)
		}
		return nil
	}
	if _, err := r.h.RequireElement(ctx, s, q, retry.ElementSearch); err != nil {
		return fmt.Errorf("marker %s: %w", q, err)
	}
	return nil
}

func (r *Runner) fail(s *harness.Session, res Result, detail string) Result {
	res.Outcome = OutcomeFail
	res.Detail = detail
	r.log.Error("view failed", "view", res.View, "detail", detail)
	if win := s.Window(); win != nil {
		if path, err := diag.CaptureWindow(s.Root(), win.ID, r.h.Config().ArtifactDir, "view-"+res.View); err == nil {
			r.log.Info("failure screenshot written", "path", path)
		}
	}
	return res
}

// RunAll runs every definition, sharding them across up to parallel
// sessions. launch produces a fresh session per worker; every session is
// torn down before RunAll returns. Results come back in definition order.
func (r *Runner) RunAll(ctx context.Context, defs []Definition, launch func(context.Context) (*harness.Session, error), parallel int) (*Report, error) {
	if parallel < 1 {
		parallel = 1
	}
	if parallel > len(defs) {
		parallel = len(defs)
	}

	results := make([]Result, len(defs))
	type job struct {
		idx int
		def Definition
	}
	jobs := make(chan job)

	g, gctx := errgroup.WithContext(ctx)
	for range parallel {
		g.Go(func() error {
			var s *harness.Session
			for j := range jobs {
				if j.def.Skip {
					results[j.idx] = r.Run(gctx, nil, j.def)
					continue
				}
				if s == nil {
					var err error
					if s, err = launch(gctx); err != nil {
						return fmt.Errorf("launch for view %q: %w", j.def.View, err)
					}
					defer r.h.Teardown(context.WithoutCancel(gctx), s)
				}
				results[j.idx] = r.Run(gctx, s, j.def)
			}
			return nil
		})
	}

	go func() {
		defer close(jobs)
		for i, d := range defs {
			select {
			case jobs <- job{idx: i, def: d}:
			case <-gctx.Done():
				return
			}
		}
	}()

	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{}
	for _, res := range results {
		report.add(res)
	}
	return report, nil
}
