package harness

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mj1618/ui-harness/internal/config"
)

// conventionalDirs are the build-output locations searched when the
// executable is given as a bare name and no configured path matches.
var conventionalDirs = []string{
	"bin",
	filepath.Join("build", "bin"),
	"out",
	filepath.Join("bin", "Release"),
}

// ResolveExecutable locates the application under test: explicit environment
// override first, then the configured fallback paths, then conventional
// build-output locations. A miss is a *ConfigurationError listing every path
// tried — this is a setup problem, never a flaky condition, so callers must
// not retry it.
func ResolveExecutable(name string, cfg *config.Config) (string, error) {
	var tried []string
	try := func(p string) bool {
		tried = append(tried, p)
		st, err := os.Stat(p)
		return err == nil && !st.IsDir()
	}

	if cfg.ExecutableOverride != "" {
		if try(cfg.ExecutableOverride) {
			return cfg.ExecutableOverride, nil
		}
		// An explicit override pointing nowhere is an outright error;
		// falling back silently would hide the misconfiguration.
		return "", &ConfigurationError{
			Detail: "executable override does not exist",
			Tried:  tried,
		}
	}

	if name == "" {
		return "", &ConfigurationError{Detail: "no executable specified"}
	}

	// A path (absolute or with separators) is checked as-is.
	if strings.ContainsRune(name, os.PathSeparator) || filepath.IsAbs(name) {
		if try(name) {
			return name, nil
		}
		return "", &ConfigurationError{Detail: "executable not found", Tried: tried}
	}

	for _, dir := range cfg.FallbackPaths {
		if p := filepath.Join(dir, name); try(p) {
			return p, nil
		}
	}
	for _, dir := range conventionalDirs {
		if p := filepath.Join(dir, name); try(p) {
			return p, nil
		}
	}
	return "", &ConfigurationError{Detail: "executable not found", Tried: tried}
}
