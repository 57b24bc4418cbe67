// Package harness launches the application under test, attaches an
// automation root to it, resolves its main window, and reclaims every
// resource on teardown — on the failure path as much as the happy one.
package harness

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/mj1618/ui-harness/internal/automation"
	"github.com/mj1618/ui-harness/internal/config"
	"github.com/mj1618/ui-harness/internal/diag"
	"github.com/mj1618/ui-harness/internal/pool"
	"github.com/mj1618/ui-harness/internal/retry"
)

// respProbeBound is the per-attempt budget for a window responsiveness
// probe. A window object can exist before its message loop is pumping, so
// each probe must round-trip quickly or count as a miss.
const respProbeBound = 500 * time.Millisecond

// Harness owns the automation driver, the execution pool, and the global
// exclusivity lock. One Harness serves many sequential or parallel sessions.
type Harness struct {
	driver automation.Driver
	pool   *pool.Pool
	cfg    *config.Config
	log    *slog.Logger

	// Some windowing environments support only one foreground automation
	// session at a time; Exclusive launches serialize here, at the
	// session-launch boundary, not just at the worker boundary.
	excl *semaphore.Weighted
}

// New builds a Harness around an injected driver. The pool is owned by the
// harness, never ambient state.
func New(driver automation.Driver, cfg *config.Config) *Harness {
	if cfg == nil {
		cfg = config.Default()
	}
	acquire := time.Duration(float64(5*time.Second) * cfg.TimeoutMultiplier)
	return &Harness{
		driver: driver,
		pool:   pool.New(cfg.PoolSize, acquire),
		cfg:    cfg,
		log:    diag.Logger("Harness"),
		excl:   semaphore.NewWeighted(1),
	}
}

// Close stops the execution pool. Sessions must be torn down first.
func (h *Harness) Close() {
	h.pool.Close()
}

// Config returns the active configuration.
func (h *Harness) Config() *config.Config { return h.cfg }

// Policy scales a preset by the configured CI multiplier.
func (h *Harness) Policy(p retry.Policy) retry.Policy {
	return p.Scaled(h.cfg.TimeoutMultiplier)
}

// Submit marshals an action touching the session's window onto a worker
// slot. All window access for one session flows through here, which is what
// guarantees single-threaded affinity and per-session serialization.
func (h *Harness) Submit(ctx context.Context, s *Session, timeout time.Duration, action func() error) error {
	return h.pool.Submit(ctx, s.Key(), timeout, action)
}
