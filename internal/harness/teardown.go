package harness

import (
	"context"
	"os"

	"github.com/mj1618/ui-harness/internal/diag"
	"github.com/mj1618/ui-harness/internal/model"
	"github.com/mj1618/ui-harness/internal/retry"
)

// Teardown reclaims everything a session holds: window, process, automation
// root, and the exclusivity lock when one was taken. It is idempotent, safe
// on partially populated sessions (launch may have failed before a window
// existed), and never fails the enclosing test — a verdict is about
// application behavior, not cleanup hygiene. Every cleanup failure is logged
// with full context so fleet-level leak detection can see it.
func (h *Harness) Teardown(ctx context.Context, s *Session) {
	if s == nil {
		return
	}
	log := diag.Logger("Teardown").With("session", s.key[:8], "pid", s.pid)
	if !s.markTorn() {
		log.Debug("teardown already ran")
		return
	}
	defer func() {
		if s.exclusive {
			h.excl.Release(1)
		}
	}()

	// Graceful window close first, if a window was ever resolved and is
	// still present.
	if win := s.Window(); win != nil && s.root != nil {
		if wins, err := s.root.Windows(); err == nil && windowPresent(wins, win.ID) {
			if err := s.root.CloseWindow(win.ID); err != nil {
				log.Warn("graceful window close failed", "window_id", win.ID, "error", err)
			}
		}
	}

	// Process next, independent of window state: grace period, then
	// escalation.
	if !s.Exited() {
		if err := s.cmd.Process.Signal(os.Interrupt); err != nil {
			log.Debug("graceful exit signal failed", "error", err)
		}
		grace := retry.TeardownGrace.Scaled(h.cfg.TimeoutMultiplier)
		_, exited, stats := retry.PollUntil(ctx, grace, func() (struct{}, bool) {
			return struct{}{}, s.Exited()
		})
		if !exited {
			log.Warn("process survived grace period; forcing termination", "waited", stats.Elapsed)
			// Evidence for fleet-level leak detection, while a window may
			// still be reachable.
			h.captureFailure(s, "teardown-forced")
			s.mu.Lock()
			s.killCount++
			s.mu.Unlock()
			if err := s.cmd.Process.Kill(); err != nil {
				// The original handle may have gone stale; fall back to the
				// recorded identifier.
				log.Warn("kill by handle failed, terminating by pid", "error", err)
				if proc, ferr := os.FindProcess(s.pid); ferr == nil {
					if kerr := proc.Kill(); kerr != nil {
						log.Error("kill by pid failed", "error", kerr)
					}
				}
			}
		}
	}

	// How the process died is useful context when hunting leaks.
	if err := s.ExitErr(); err != nil {
		log.Info("process exit status", "status", err)
	}

	// Automation-root disposal always runs last and must not throw past
	// this boundary.
	if s.root != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic while releasing automation root", "panic", r)
				}
			}()
			if err := s.root.Release(); err != nil {
				s.mu.Lock()
				s.releaseErr = err
				s.mu.Unlock()
				log.Error("automation root release failed", "error", err)
			}
		}()
	}
	log.Info("teardown complete")
}

func windowPresent(wins []model.Window, id int) bool {
	for _, w := range wins {
		if w.ID == id {
			return true
		}
	}
	return false
}
