package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/mj1618/ui-harness/internal/automation"
	"github.com/mj1618/ui-harness/internal/model"
	"github.com/mj1618/ui-harness/internal/retry"
)

// probeSubmitTimeout bounds one marshaled tree read or input action on a
// worker slot. Poll loops run outside the slot; only the touch itself is
// marshaled.
const probeSubmitTimeout = 2 * time.Second

// readTree reads the session's element tree on its worker slot.
func (h *Harness) readTree(ctx context.Context, s *Session) ([]model.Element, error) {
	var tree []model.Element
	err := h.Submit(ctx, s, h.submitBudget(), func() error {
		var rerr error
		tree, rerr = s.root.Elements(automation.ReadOptions{})
		return rerr
	})
	return tree, err
}

func (h *Harness) submitBudget() time.Duration {
	return time.Duration(float64(probeSubmitTimeout) * h.cfg.TimeoutMultiplier)
}

// Elements returns one fresh read of the session's element tree.
func (h *Harness) Elements(ctx context.Context, s *Session) ([]model.Element, error) {
	return h.readTree(ctx, s)
}

// WaitForElement polls the tree until the query matches. The tree is re-read
// fresh on every attempt because it mutates between polls. Absence is a
// result here, not an error; use RequireElement when absence is fatal.
func (h *Harness) WaitForElement(ctx context.Context, s *Session, q model.Query, p retry.Policy) (model.Element, bool, retry.Stats) {
	p = p.Scaled(h.cfg.TimeoutMultiplier)
	return retry.PollUntil(ctx, p, func() (model.Element, bool) {
		tree, err := h.readTree(ctx, s)
		if err != nil {
			return model.Element{}, false
		}
		return model.FindFirst(tree, q)
	})
}

// RequireElement is WaitForElement with absence converted into
// *ElementNotFoundError at this boundary, where it is known to be fatal.
func (h *Harness) RequireElement(ctx context.Context, s *Session, q model.Query, p retry.Policy) (model.Element, error) {
	el, ok, stats := h.WaitForElement(ctx, s, q, p)
	if !ok {
		return model.Element{}, &ElementNotFoundError{Query: q.String(), Stats: stats}
	}
	return el, nil
}

// ClickElement waits until the query matches a clickable element, then
// clicks it on the session's worker slot.
func (h *Harness) ClickElement(ctx context.Context, s *Session, q model.Query, p retry.Policy) error {
	p = p.Scaled(h.cfg.TimeoutMultiplier)
	el, ok, stats := retry.PollUntil(ctx, p, func() (model.Element, bool) {
		tree, err := h.readTree(ctx, s)
		if err != nil {
			return model.Element{}, false
		}
		found, match := model.FindFirst(tree, q)
		if !match || !found.Clickable() {
			return model.Element{}, false
		}
		return found, true
	})
	if !ok {
		return &ElementNotFoundError{Query: q.String() + " (clickable)", Stats: stats}
	}

	win := s.Window()
	if win == nil {
		return fmt.Errorf("click %s: session has no resolved window", q)
	}
	return h.Submit(ctx, s, h.submitBudget(), func() error {
		return s.root.Click(win.ID, el.ID)
	})
}

// SetElementValue waits for the query to match, then sets the element's
// value on the session's worker slot.
func (h *Harness) SetElementValue(ctx context.Context, s *Session, q model.Query, value string, p retry.Policy) error {
	el, err := h.RequireElement(ctx, s, q, p)
	if err != nil {
		return err
	}
	win := s.Window()
	if win == nil {
		return fmt.Errorf("set value on %s: session has no resolved window", q)
	}
	return h.Submit(ctx, s, h.submitBudget(), func() error {
		return s.root.SetValue(win.ID, el.ID, value)
	})
}

// InvokeElement waits for the query to match, then performs the named
// accessibility action on the element.
func (h *Harness) InvokeElement(ctx context.Context, s *Session, q model.Query, action string, p retry.Policy) error {
	el, err := h.RequireElement(ctx, s, q, p)
	if err != nil {
		return err
	}
	win := s.Window()
	if win == nil {
		return fmt.Errorf("invoke %s on %s: session has no resolved window", action, q)
	}
	return h.Submit(ctx, s, h.submitBudget(), func() error {
		return s.root.Invoke(win.ID, el.ID, action)
	})
}

// WaitForStableCount polls the cardinality of query matches until it holds
// for threshold consecutive reads — how the harness detects that a
// dynamically populated view finished loading without a "loaded" signal.
func (h *Harness) WaitForStableCount(ctx context.Context, s *Session, q model.Query, threshold int, p retry.Policy) (int, bool, retry.Stats) {
	p = p.Scaled(h.cfg.TimeoutMultiplier)
	return retry.WaitForStable(ctx, p, threshold, func() (int, bool) {
		tree, err := h.readTree(ctx, s)
		if err != nil {
			// A failed read is not an observation; it must not count
			// toward stability.
			return -1, false
		}
		return model.Count(tree, q), true
	})
}

// EnsureWindowLive verifies the session's resolved window is still available
// and responsive. A component that discovers the window went stale must fail
// the enclosing test rather than silently continuing; this is the check that
// enforces it.
func (h *Harness) EnsureWindowLive(ctx context.Context, s *Session) error {
	win := s.Window()
	if win == nil {
		return fmt.Errorf("session %s has no resolved window", s.key[:8])
	}
	p := retry.Responsive.Scaled(h.cfg.TimeoutMultiplier)
	_, ok, stats := retry.PollUntil(ctx, p, func() (struct{}, bool) {
		avail, err := s.root.Available(win.ID)
		if err != nil || !avail {
			return struct{}{}, false
		}
		resp, err := s.root.Responsive(win.ID, respProbeBound)
		return struct{}{}, err == nil && resp
	})
	if !ok {
		return &TimeoutError{
			Op:     "window liveness check",
			Stats:  stats,
			Detail: fmt.Sprintf("window %q (id %d) went stale", win.Title, win.ID),
		}
	}
	return nil
}
