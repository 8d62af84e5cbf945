package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"winprep/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("ProgramData", "")
	t.Setenv("WINPREP_LOG_FILE", "")
	t.Setenv("WINPREP_CHECKLIST", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "winprep")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Paths.LogDir != filepath.Join(os.TempDir(), "winprep") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.Registry.RegBinary != "reg.exe" {
		t.Fatalf("unexpected reg binary %q", cfg.Registry.RegBinary)
	}
	if cfg.Registry.DefaultPrincipalID != ".DEFAULT" {
		t.Fatalf("unexpected default principal id %q", cfg.Registry.DefaultPrincipalID)
	}
	if strings.EqualFold(cfg.Registry.DefaultMountName, ".DEFAULT") {
		t.Fatalf("default mount name must not shadow HKU\\.DEFAULT, got %q", cfg.Registry.DefaultMountName)
	}
	if cfg.UnloadDelay() != time.Second {
		t.Fatalf("unexpected unload delay %s", cfg.UnloadDelay())
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults %+v", cfg.Logging)
	}
}

func TestLoadCustomConfigOverridesDefaults(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("WINPREP_LOG_FILE", "")
	t.Setenv("WINPREP_CHECKLIST", "")

	configPath := filepath.Join(tempDir, "config.toml")
	payload := struct {
		Paths struct {
			StateDir  string `toml:"state_dir"`
			Checklist string `toml:"checklist"`
		} `toml:"paths"`
		Registry struct {
			MountRoot      string `toml:"mount_root"`
			UnloadDelayMS  int    `toml:"unload_delay_ms"`
			UnloadAttempts int    `toml:"unload_attempts"`
		} `toml:"registry"`
		Logging struct {
			Format string `toml:"format"`
			Level  string `toml:"level"`
		} `toml:"logging"`
	}{}
	payload.Paths.StateDir = "~/state"
	payload.Paths.Checklist = "~/checklist.toml"
	payload.Registry.MountRoot = "hkey_users"
	payload.Registry.UnloadDelayMS = 250
	payload.Registry.UnloadAttempts = 5
	payload.Logging.Format = "JSON"
	payload.Logging.Level = "DEBUG"

	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Paths.StateDir != filepath.Join(tempDir, "state") {
		t.Fatalf("unexpected state dir %q", cfg.Paths.StateDir)
	}
	if cfg.Paths.Checklist != filepath.Join(tempDir, "checklist.toml") {
		t.Fatalf("unexpected checklist %q", cfg.Paths.Checklist)
	}
	if cfg.Registry.MountRoot != "HKU" {
		t.Fatalf("expected mount root normalized to HKU, got %q", cfg.Registry.MountRoot)
	}
	if cfg.UnloadDelay() != 250*time.Millisecond {
		t.Fatalf("unexpected unload delay %s", cfg.UnloadDelay())
	}
	if cfg.Registry.UnloadAttempts != 5 {
		t.Fatalf("unexpected attempts %d", cfg.Registry.UnloadAttempts)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging %+v", cfg.Logging)
	}
	if got := cfg.LedgerPath(); got != filepath.Join(tempDir, "state", "mounts.db") {
		t.Fatalf("unexpected ledger path %q", got)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.toml")
	if err := os.WriteFile(configPath, []byte("[registry]\nmount_rooot = \"HKU\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestEnvironmentFallbacks(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	logFile := filepath.Join(tempDir, "logs", "custom.log")
	t.Setenv("WINPREP_LOG_FILE", logFile)
	t.Setenv("WINPREP_CHECKLIST", filepath.Join(tempDir, "list.yaml"))

	cfg, _, _, err := config.Load(filepath.Join(tempDir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Logging.File != logFile {
		t.Fatalf("expected log file from env, got %q", cfg.Logging.File)
	}
	if cfg.RunLogPath("abc") != logFile {
		t.Fatalf("explicit log file should win over per-run path, got %q", cfg.RunLogPath("abc"))
	}
	if cfg.Paths.Checklist != filepath.Join(tempDir, "list.yaml") {
		t.Fatalf("expected checklist from env, got %q", cfg.Paths.Checklist)
	}
}

func TestRunLogPathUsesRunID(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = "/var/log/winprep"
	got := cfg.RunLogPath("0d1f")
	if got != filepath.Join("/var/log/winprep", "winprep-0d1f.log") {
		t.Fatalf("unexpected run log path %q", got)
	}
}

func TestValidateRejectsBadRegistrySettings(t *testing.T) {
	cases := map[string]func(*config.Config){
		"pattern":        func(c *config.Config) { c.Registry.PrincipalPattern = "([" },
		"mount root":     func(c *config.Config) { c.Registry.MountRoot = "HKCU" },
		"reserved mount": func(c *config.Config) { c.Registry.DefaultMountName = ".default" },
		"nested mount":   func(c *config.Config) { c.Registry.DefaultMountName = `a\b` },
		"attempts":       func(c *config.Config) { c.Registry.UnloadAttempts = 0 },
		"delay":          func(c *config.Config) { c.Registry.UnloadDelayMS = -1 },
		"level":          func(c *config.Config) { c.Logging.Level = "loud" },
	}
	for name, mutate := range cases {
		cfg := config.Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("WINPREP_LOG_FILE", "")
	t.Setenv("WINPREP_CHECKLIST", "")
	path := filepath.Join(tempDir, "nested", "config.toml")
	if err := config.CreateSample(path, false); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if err := config.CreateSample(path, false); !errors.Is(err, config.ErrConfigExists) {
		t.Fatalf("expected ErrConfigExists, got %v", err)
	}
	if err := config.CreateSample(path, true); err != nil {
		t.Fatalf("CreateSample overwrite: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Registry.UnloadAttempts != 3 {
		t.Fatalf("unexpected attempts %d", cfg.Registry.UnloadAttempts)
	}
}
