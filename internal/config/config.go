// Package config is the harness's configuration surface. Everything here
// affects patience and verbosity, never correctness: CI timeout scaling,
// executable search paths, diagnostic verbosity, and the keyword sets used
// for crash and splash detection.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables read by the harness.
const (
	EnvTimeoutMultiplier = "UIHARNESS_TIMEOUT_MULTIPLIER"
	EnvAppPath           = "UIHARNESS_APP_PATH"
	EnvVerbose           = "UIHARNESS_VERBOSE"
	EnvCI                = "CI"
)

// ciMultiplier is applied when a continuous-integration context is detected
// and no explicit multiplier is set; contention there is typically worse.
const ciMultiplier = 2.0

// Config holds all tunables. Zero values are filled by Default.
type Config struct {
	TimeoutMultiplier  float64  `yaml:"timeout_multiplier,omitempty"`
	ExecutableOverride string   `yaml:"executable,omitempty"`
	FallbackPaths      []string `yaml:"fallback_paths,omitempty"`
	FailureKeywords    []string `yaml:"failure_keywords,omitempty"`
	SplashKeywords     []string `yaml:"splash_keywords,omitempty"`
	PoolSize           int      `yaml:"pool_size,omitempty"`
	ArtifactDir        string   `yaml:"artifact_dir,omitempty"`
	Verbose            bool     `yaml:"verbose,omitempty"`
}

// Default returns the built-in configuration with environment overrides
// applied.
func Default() *Config {
	cfg := &Config{
		TimeoutMultiplier: 1,
		FailureKeywords: []string{
			"exception", "error", "crash", "assert", "fatal", "not responding",
		},
		SplashKeywords: []string{"loading", "splash", "starting"},
		PoolSize:       4,
		ArtifactDir:    "artifacts",
	}
	cfg.applyEnv()
	return cfg
}

// Load reads a YAML config file and layers environment overrides on top.
// A missing file is not an error; the defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.PoolSize < 1 {
		cfg.PoolSize = 1
	}
	// Env wins over the file.
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvTimeoutMultiplier); v != "" {
		if mult, err := strconv.ParseFloat(v, 64); err == nil && mult > 0 {
			c.TimeoutMultiplier = mult
		}
	} else if isTruthy(os.Getenv(EnvCI)) && c.TimeoutMultiplier == 1 {
		c.TimeoutMultiplier = ciMultiplier
	}
	if v := os.Getenv(EnvAppPath); v != "" {
		c.ExecutableOverride = v
	}
	if isTruthy(os.Getenv(EnvVerbose)) {
		c.Verbose = true
	}
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
