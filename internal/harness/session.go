package harness

import (
	"os/exec"
	"sync"

	"github.com/google/uuid"

	"github.com/mj1618/ui-harness/internal/automation"
	"github.com/mj1618/ui-harness/internal/model"
)

// Session bundles the process handle, window reference, and automation root
// for one running instance of the application under test. Exactly one
// Session exists per test execution; sessions are never shared or pooled.
// The window reference is nil until the launch orchestrator resolves it, and
// once set it must stay valid (responsive or explicitly closed) until
// teardown.
type Session struct {
	key string
	cmd *exec.Cmd
	pid int

	root automation.Root

	waitDone chan struct{} // closed when cmd.Wait returns
	waitErr  error

	mu         sync.Mutex
	window     *model.Window
	torn       bool
	exclusive  bool // holds the global automation lock until teardown
	killCount  int
	releaseErr error
}

func newSession(cmd *exec.Cmd, root automation.Root, exclusive bool) *Session {
	s := &Session{
		key:       uuid.NewString(),
		cmd:       cmd,
		pid:       cmd.Process.Pid,
		root:      root,
		exclusive: exclusive,
		waitDone:  make(chan struct{}),
	}
	go func() {
		s.waitErr = cmd.Wait()
		close(s.waitDone)
	}()
	return s
}

// Key uniquely identifies the session; the execution pool serializes window
// access per key.
func (s *Session) Key() string { return s.key }

// PID is the recorded process identifier, kept even after the original
// handle becomes invalid so teardown can terminate by identifier.
func (s *Session) PID() int { return s.pid }

// Executable is the resolved path the process was started from.
func (s *Session) Executable() string { return s.cmd.Path }

// Root is the automation root bound to the process.
func (s *Session) Root() automation.Root { return s.root }

// Window returns the resolved main window, or nil before resolution.
func (s *Session) Window() *model.Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window
}

func (s *Session) setWindow(w model.Window) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window = &w
}

// Exited reports whether the process has terminated.
func (s *Session) Exited() bool {
	select {
	case <-s.waitDone:
		return true
	default:
		return false
	}
}

// ExitErr returns the process's wait result once it has exited, nil while it
// is still running. A non-nil result after teardown tells a leak hunter how
// the process died (interrupted, killed, non-zero exit).
func (s *Session) ExitErr() error {
	select {
	case <-s.waitDone:
		return s.waitErr
	default:
		return nil
	}
}

// markTorn flips the teardown flag, returning false if it was already set.
func (s *Session) markTorn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.torn {
		return false
	}
	s.torn = true
	return true
}
