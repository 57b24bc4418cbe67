// Package diag is the harness's diagnostics boundary: subsystem-tagged
// structured logging and post-mortem window captures. Failure paths in the
// orchestrator and teardown write here; nothing in this package ever fails a
// test on its own.
package diag

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu     sync.Mutex
	level  = new(slog.LevelVar)
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
)

// Init configures the log sink and verbosity. Verbose enables debug-level
// entries; it affects patience of the reader, never correctness.
func Init(verbose bool, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Logger returns a logger tagged with the given subsystem (Launch, Teardown,
// Pool, ViewTest). Every entry carries a timestamp from the handler; callers
// add a slot or session tag where one applies.
func Logger(subsystem string) *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger.With("subsystem", subsystem)
}
