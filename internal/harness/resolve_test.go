package harness

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mj1618/ui-harness/internal/config"
)

func writeExe(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveExecutable_OverrideWins(t *testing.T) {
	dir := t.TempDir()
	exe := writeExe(t, dir, "app")
	cfg := &config.Config{ExecutableOverride: exe}

	got, err := ResolveExecutable("ignored", cfg)
	if err != nil {
		t.Fatalf("ResolveExecutable failed: %v", err)
	}
	if got != exe {
		t.Errorf("expected override %s, got %s", exe, got)
	}
}

func TestResolveExecutable_BrokenOverrideFailsFast(t *testing.T) {
	dir := t.TempDir()
	writeExe(t, dir, "app")
	cfg := &config.Config{
		ExecutableOverride: filepath.Join(dir, "missing"),
		FallbackPaths:      []string{dir},
	}

	// A broken override must not silently fall back; that would hide the
	// misconfiguration.
	_, err := ResolveExecutable("app", cfg)
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestResolveExecutable_FallbackPaths(t *testing.T) {
	dir := t.TempDir()
	exe := writeExe(t, dir, "app")
	cfg := &config.Config{FallbackPaths: []string{t.TempDir(), dir}}

	got, err := ResolveExecutable("app", cfg)
	if err != nil {
		t.Fatalf("ResolveExecutable failed: %v", err)
	}
	if got != exe {
		t.Errorf("expected %s, got %s", exe, got)
	}
}

func TestResolveExecutable_ExplicitPath(t *testing.T) {
	dir := t.TempDir()
	exe := writeExe(t, dir, "app")

	got, err := ResolveExecutable(exe, &config.Config{})
	if err != nil {
		t.Fatalf("ResolveExecutable failed: %v", err)
	}
	if got != exe {
		t.Errorf("expected %s, got %s", exe, got)
	}
}

func TestResolveExecutable_MissReportsTriedPaths(t *testing.T) {
	cfg := &config.Config{FallbackPaths: []string{t.TempDir()}}
	_, err := ResolveExecutable("ghost", cfg)

	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if len(ce.Tried) == 0 {
		t.Error("expected the error to list every path tried")
	}
}

func TestResolveExecutable_EmptyName(t *testing.T) {
	_, err := ResolveExecutable("", &config.Config{})
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}
