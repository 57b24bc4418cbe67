package harness

import (
	"fmt"
	"strings"

	"github.com/mj1618/ui-harness/internal/retry"
)

// ConfigurationError means the harness was set up wrong — a missing
// executable, an override pointing nowhere. It is never retried; launching
// again cannot fix it.
type ConfigurationError struct {
	Detail string
	Tried  []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Tried) == 0 {
		return "configuration: " + e.Detail
	}
	return fmt.Sprintf("configuration: %s (tried: %s)", e.Detail, strings.Join(e.Tried, ", "))
}

// TimeoutError means a bounded wait was exhausted. It always carries the
// policy, elapsed time, and attempt count: the same primitive runs with very
// different budgets across call sites, so a bare "timed out" is useless.
type TimeoutError struct {
	Op     string
	Stats  retry.Stats
	Detail string
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("%s: timed out after %s", e.Op, e.Stats)
	if e.Detail != "" {
		msg += "; " + e.Detail
	}
	return msg
}

// CrashError means a failure dialog from the application under test was
// observed on the desktop. The offending title is the primary evidence.
type CrashError struct {
	Title string
}

func (e *CrashError) Error() string {
	return fmt.Sprintf("application crashed with dialog %q", e.Title)
}

// ElementNotFoundError means a query never matched within its budget. It is
// distinct from TimeoutError because some callers treat "not found" as a
// valid negative result rather than a failure.
type ElementNotFoundError struct {
	Query string
	Stats retry.Stats
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("no element matched %s after %s", e.Query, e.Stats)
}
