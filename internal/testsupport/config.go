package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"winprep/internal/config"
)

// ConfigOption customizes the config built by NewConfig.
type ConfigOption func(t testing.TB, base string, cfg *config.Config)

// NewConfig returns a config whose state and log directories live under a
// per-test temp dir. Unload pauses are disabled and attempts reduced so hive
// lifecycle tests run instantly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Registry.UnloadDelayMS = 0
	cfg.Registry.UnloadAttempts = 2

	for _, opt := range opts {
		opt(t, base, &cfg)
	}
	return &cfg
}

// WithChecklist points paths.checklist at path.
func WithChecklist(path string) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Paths.Checklist = path
	}
}

// WithStubbedBinaries puts no-op executables named names (default: the
// configured reg binary) first on PATH for the duration of the test.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(t testing.TB, base string, cfg *config.Config) {
		if len(names) == 0 {
			names = []string{cfg.Registry.RegBinary}
		}
		binDir := filepath.Join(base, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			t.Fatalf("mkdir bin dir: %v", err)
		}
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(binDir, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				t.Fatalf("write stub %s: %v", name, err)
			}
		}
		t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// WriteConfig serializes cfg as TOML next to its state directory and returns
// the file path, for tests that drive config.Load or the CLI.
func WriteConfig(t testing.TB, cfg *config.Config) string {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(BaseDir(cfg), "winprep.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// BaseDir returns the temp directory backing cfg.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
