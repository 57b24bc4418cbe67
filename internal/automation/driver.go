package automation

import (
	"fmt"
	"runtime"
)

// ErrUnsupported is returned when no automation backend is registered for
// the current OS.
var ErrUnsupported = fmt.Errorf("no automation backend registered for %s/%s", runtime.GOOS, runtime.GOARCH)

// NewDriverFunc is set by platform-specific packages via init(). The
// simulated backend in automation/sim is constructed explicitly instead,
// since it needs a script.
var NewDriverFunc func() (Driver, error)

// NewDriver returns the registered Driver for the current OS.
func NewDriver() (Driver, error) {
	if NewDriverFunc == nil {
		return nil, ErrUnsupported
	}
	return NewDriverFunc()
}
