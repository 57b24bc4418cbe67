// Package automation defines the abstract accessibility-tree boundary the
// harness drives. Platform backends implement Driver and Root; the harness
// itself never touches a windowing API directly.
package automation

import (
	"time"

	"github.com/mj1618/ui-harness/internal/model"
)

// ReadOptions controls which part of the element tree to read.
type ReadOptions struct {
	WindowID int          // Window to read (0 = all windows of the process)
	Depth    int          // Max traversal depth (0 = unlimited)
	Kinds    []model.Kind // Only include these kinds (empty = all)
}

// ScreenshotOptions configures a window capture.
type ScreenshotOptions struct {
	Format  string  // "png" or "jpg"
	Quality int     // JPEG quality 1-100 (ignored for PNG)
	Scale   float64 // Scale factor 0.1-1.0 (default 1.0)
}

// Driver is the entry point of an automation backend.
type Driver interface {
	// Attach binds an automation root to a running process. The root stays
	// valid until Release is called, even if the process later exits.
	Attach(pid int) (Root, error)

	// TopLevelWindows lists every top-level window on the desktop, not just
	// those of attached processes. The launch orchestrator scans these for
	// crash-dialog titles.
	TopLevelWindows() ([]model.Window, error)
}

// Root is an automation root bound to one process. All methods taking a
// window ID operate on windows returned by Windows. Interactions with one
// window must be serialized by the caller; concurrent access to a window
// from two goroutines is undefined.
type Root interface {
	// Windows lists the top-level windows of the attached process.
	Windows() ([]model.Window, error)

	// Available reports whether the window object reports itself live. A
	// window existing is not sufficient for interaction: it can exist
	// before its message loop is pumping.
	Available(windowID int) (bool, error)

	// Responsive reports whether a property access on the window
	// round-trips within the given bound.
	Responsive(windowID int, within time.Duration) (bool, error)

	// Elements reads the element tree.
	Elements(opts ReadOptions) ([]model.Element, error)

	// Click simulates a click on the element with the given sequential ID
	// from the most recent Elements read of that window.
	Click(windowID, elementID int) error

	// SetValue sets the value of an editable element.
	SetValue(windowID, elementID int, value string) error

	// Invoke performs a named accessibility action on an element.
	Invoke(windowID, elementID int, action string) error

	// CloseWindow requests a graceful close of the window.
	CloseWindow(windowID int) error

	// CaptureWindow captures a bitmap of the window for diagnostics.
	CaptureWindow(windowID int, opts ScreenshotOptions) ([]byte, error)

	// Release disposes the automation root. Safe to call more than once.
	Release() error
}
