package harness

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/mj1618/ui-harness/internal/diag"
	"github.com/mj1618/ui-harness/internal/model"
	"github.com/mj1618/ui-harness/internal/retry"
)

// LaunchOptions configures one launch of the application under test.
type LaunchOptions struct {
	Executable string       // Name or path; resolved via ResolveExecutable
	Args       []string     // Passed through to the process
	ExtraEnv   []string     // Appended after the inherited environment
	Policy     retry.Policy // Window-resolution budget; zero value = MainWindow preset
	Exclusive  bool         // Serialize against other exclusive launches
}

// Launch starts the application, attaches an automation root, and resolves a
// ready main window, or fails with a specific, diagnosable error:
// *ConfigurationError when the executable is missing (never retried),
// *CrashError when a failure dialog is observed, *TimeoutError when the
// budget runs out with neither.
func (h *Harness) Launch(ctx context.Context, opts LaunchOptions) (*Session, error) {
	log := diag.Logger("Launch")

	exe, err := ResolveExecutable(opts.Executable, h.cfg)
	if err != nil {
		return nil, err
	}

	policy := opts.Policy
	if policy.Timeout == 0 {
		policy = retry.MainWindow
	}
	policy = policy.Scaled(h.cfg.TimeoutMultiplier)

	if opts.Exclusive {
		if err := h.excl.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("acquire exclusive automation lock: %w", err)
		}
	}
	releaseExcl := func() {
		if opts.Exclusive {
			h.excl.Release(1)
		}
	}

	cmd := exec.Command(exe, opts.Args...)
	cmd.Env = append(os.Environ(), "UIHARNESS_AUTO_DISMISS=1")
	cmd.Env = append(cmd.Env, opts.ExtraEnv...)
	if err := cmd.Start(); err != nil {
		releaseExcl()
		return nil, &ConfigurationError{Detail: fmt.Sprintf("start %s: %v", exe, err)}
	}

	root, err := h.driver.Attach(cmd.Process.Pid)
	if err != nil {
		_ = cmd.Process.Kill()
		releaseExcl()
		return nil, fmt.Errorf("attach automation root to pid %d: %w", cmd.Process.Pid, err)
	}

	s := newSession(cmd, root, opts.Exclusive)
	log = log.With("session", s.key[:8], "pid", s.pid)
	log.Info("process started", "exe", exe, "policy", policy.String())

	win, err := h.awaitWindow(ctx, s, policy)
	if err != nil {
		log.Error("launch failed", "error", err)
		h.captureFailure(s, "launch-failed")
		h.Teardown(context.WithoutCancel(ctx), s)
		return nil, err
	}

	s.setWindow(win)
	log.Info("session ready", "window", win.Title, "window_id", win.ID)
	return s, nil
}

// awaitWindow runs two cooperating tasks under one cancellation context: a
// crash-dialog watcher and a main-window resolver. Whichever reports first
// is authoritative. The watcher running out of budget without a sighting is
// not an outcome; the resolver then decides between ready and timeout.
func (h *Harness) awaitWindow(ctx context.Context, s *Session, policy retry.Policy) (model.Window, error) {
	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type crashResult struct {
		title string
		found bool
	}
	type winResult struct {
		win   model.Window
		ok    bool
		stats retry.Stats
	}
	crashCh := make(chan crashResult, 1)
	winCh := make(chan winResult, 1)

	go func() {
		title, found, _ := retry.PollUntil(pollCtx, policy, h.scanForCrash)
		crashCh <- crashResult{title: title, found: found}
	}()
	go func() {
		win, ok, stats := retry.PollUntil(pollCtx, policy, func() (model.Window, bool) {
			return h.probeWindow(s)
		})
		winCh <- winResult{win: win, ok: ok, stats: stats}
	}()

	for {
		select {
		case c := <-crashCh:
			if c.found {
				return model.Window{}, &CrashError{Title: c.title}
			}
			crashCh = nil
		case r := <-winCh:
			if !r.ok {
				detail := ""
				if s.Exited() {
					detail = "process exited before its main window appeared"
				}
				return model.Window{}, &TimeoutError{Op: "launch", Stats: r.stats, Detail: detail}
			}
			// A dialog can appear after a slow but successful resolution;
			// scan once more before the session is handed back.
			if title, crashed := h.scanForCrash(); crashed {
				return model.Window{}, &CrashError{Title: title}
			}
			return r.win, nil
		case <-ctx.Done():
			return model.Window{}, ctx.Err()
		}
	}
}

// probeWindow attempts one window resolution: find a non-splash candidate,
// then check availability before responsiveness — a responsiveness probe
// against an unavailable window proves nothing.
func (h *Harness) probeWindow(s *Session) (model.Window, bool) {
	wins, err := s.root.Windows()
	if err != nil || len(wins) == 0 {
		return model.Window{}, false
	}

	var candidate *model.Window
	for i := range wins {
		if h.isSplash(wins[i].Title) {
			diag.Logger("Launch").Debug("splash window visible", "title", wins[i].Title)
			continue
		}
		if wins[i].Main {
			candidate = &wins[i]
			break
		}
		if candidate == nil {
			candidate = &wins[i]
		}
	}
	if candidate == nil {
		return model.Window{}, false
	}

	if ok, err := s.root.Available(candidate.ID); err != nil || !ok {
		return model.Window{}, false
	}
	if ok, err := s.root.Responsive(candidate.ID, respProbeBound); err != nil || !ok {
		return model.Window{}, false
	}
	return *candidate, true
}

// scanForCrash checks every top-level window on the desktop for a title
// matching the configured failure keywords.
func (h *Harness) scanForCrash() (string, bool) {
	wins, err := h.driver.TopLevelWindows()
	if err != nil {
		return "", false
	}
	for _, w := range wins {
		title := strings.ToLower(w.Title)
		for _, kw := range h.cfg.FailureKeywords {
			if strings.Contains(title, strings.ToLower(kw)) {
				return w.Title, true
			}
		}
	}
	return "", false
}

func (h *Harness) isSplash(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range h.cfg.SplashKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// captureFailure writes a post-mortem bitmap of whatever window is still
// reachable. Capture problems are logged, never propagated: diagnostics must
// not turn one failure into two.
func (h *Harness) captureFailure(s *Session, label string) {
	if s.root == nil {
		return
	}
	wins, err := s.root.Windows()
	if err != nil || len(wins) == 0 {
		return
	}
	path, err := diag.CaptureWindow(s.root, wins[0].ID, h.cfg.ArtifactDir, label)
	if err != nil {
		diag.Logger("Launch").Warn("failure capture failed", "error", err)
		return
	}
	diag.Logger("Launch").Info("failure capture written", "path", path)
}
