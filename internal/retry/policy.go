// Package retry provides bounded poll/retry primitives for converting the
// eventually-consistent UI of an external application into synchronous test
// assertions. Primitives never fail on timeout; they report absence and let
// the caller decide whether absence is fatal.
package retry

import (
	"fmt"
	"time"
)

// Policy is an immutable retry budget: how long to keep polling and how far
// apart the attempts are. Construct with NewPolicy or start from a preset;
// never mutate one after construction.
type Policy struct {
	Name     string
	Timeout  time.Duration
	Interval time.Duration
	Jitter   time.Duration // Optional extra random delay added per attempt
}

// NewPolicy validates and builds a Policy. Timeout and interval must both be
// strictly positive; zero or negative values are configuration errors, not
// "poll forever" or "poll never".
func NewPolicy(name string, timeout, interval time.Duration) (Policy, error) {
	if timeout <= 0 {
		return Policy{}, fmt.Errorf("policy %q: timeout must be positive, got %s", name, timeout)
	}
	if interval <= 0 {
		return Policy{}, fmt.Errorf("policy %q: interval must be positive, got %s", name, interval)
	}
	return Policy{Name: name, Timeout: timeout, Interval: interval}, nil
}

func mustPolicy(name string, timeout, interval time.Duration) Policy {
	p, err := NewPolicy(name, timeout, interval)
	if err != nil {
		panic(err)
	}
	return p
}

// Per-purpose presets. Searching for a static element and waiting out a
// multi-second navigation transition have different natural budgets, so each
// purpose gets its own. Scale them with Scaled when running under CI.
var (
	ElementSearch = mustPolicy("element-search", 5*time.Second, 250*time.Millisecond)
	Responsive    = mustPolicy("responsive", 3*time.Second, 100*time.Millisecond)
	Clickable     = mustPolicy("clickable", 5*time.Second, 250*time.Millisecond)
	ViewRender    = mustPolicy("view-render", 10*time.Second, 500*time.Millisecond)
	Navigation    = mustPolicy("navigation", 15*time.Second, 500*time.Millisecond)
	MainWindow    = mustPolicy("main-window", 30*time.Second, 500*time.Millisecond)
	TeardownGrace = mustPolicy("teardown-grace", 5*time.Second, 100*time.Millisecond)
)

// Scaled returns a copy of the policy with all durations multiplied by mult.
// A multiplier <= 0 is treated as 1.
func (p Policy) Scaled(mult float64) Policy {
	if mult <= 0 || mult == 1 {
		return p
	}
	scaled := p
	scaled.Timeout = time.Duration(float64(p.Timeout) * mult)
	scaled.Interval = time.Duration(float64(p.Interval) * mult)
	scaled.Jitter = time.Duration(float64(p.Jitter) * mult)
	return scaled
}

// WithJitter returns a copy of the policy with per-attempt jitter set.
func (p Policy) WithJitter(j time.Duration) Policy {
	withJitter := p
	withJitter.Jitter = j
	return withJitter
}

// String renders the policy for timeout diagnostics: a bare "timed out" is
// not actionable when the same primitive runs with very different budgets.
func (p Policy) String() string {
	return fmt.Sprintf("%s (timeout %s, interval %s)", p.Name, p.Timeout, p.Interval)
}
