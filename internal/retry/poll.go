package retry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Stats describes how a poll ended, for diagnostics. Timeout-class failures
// must report which policy and duration were in effect.
type Stats struct {
	Policy   Policy
	Elapsed  time.Duration
	Attempts int
}

// String renders the stats for inclusion in error messages.
func (s Stats) String() string {
	return fmt.Sprintf("%d attempt(s) over %s under policy %s", s.Attempts, s.Elapsed.Round(time.Millisecond), s.Policy)
}

// PollUntil evaluates probe at the policy's interval until it reports ok or
// the policy's timeout elapses. It returns the last observed value either
// way; timing out is not an error here because only the caller knows whether
// absence is fatal. The probe runs at least once, and the total overshoot
// past the timeout is bounded by one interval (plus jitter, if configured).
// Context cancellation ends the poll early with ok=false.
//
// Policies must come from NewPolicy or a preset; PollUntil panics on a
// non-positive timeout or interval rather than polling forever or never.
func PollUntil[T any](ctx context.Context, p Policy, probe func() (T, bool)) (T, bool, Stats) {
	if p.Timeout <= 0 || p.Interval <= 0 {
		panic(fmt.Sprintf("retry: policy %q was not built with NewPolicy (timeout %s, interval %s)", p.Name, p.Timeout, p.Interval))
	}

	start := time.Now()
	deadline := start.Add(p.Timeout)
	stats := Stats{Policy: p}

	for {
		stats.Attempts++
		v, ok := probe()
		stats.Elapsed = time.Since(start)
		if ok {
			return v, true, stats
		}
		if !time.Now().Before(deadline) {
			return v, false, stats
		}

		wait := p.Interval
		if p.Jitter > 0 {
			wait += rand.N(p.Jitter)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			stats.Elapsed = time.Since(start)
			return v, false, stats
		case <-timer.C:
		}
	}
}

// WaitForStable polls a cardinality function and reports stability once the
// same count has been observed for threshold consecutive polls; the streak
// resets whenever the count changes. This detects that a dynamically
// populated view has finished loading without an explicit "loaded" signal
// from the application. A probe that cannot produce a count reports ok=false;
// such polls never extend a streak and clear any streak in progress, so a
// source that is never readable can never look stable. Returns the last
// observed count and whether stability was reached within the policy's
// timeout.
func WaitForStable(ctx context.Context, p Policy, threshold int, count func() (int, bool)) (int, bool, Stats) {
	if threshold < 1 {
		threshold = 1
	}

	last := 0
	streak := 0
	counted := false
	n, ok, stats := PollUntil(ctx, p, func() (int, bool) {
		c, ok := count()
		if !ok {
			counted = false
			streak = 0
			return c, false
		}
		if counted && c == last {
			streak++
		} else {
			last, streak, counted = c, 1, true
		}
		return c, streak >= threshold
	})
	return n, ok, stats
}
