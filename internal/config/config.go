package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and input file configuration.
type Paths struct {
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
	Checklist string `toml:"checklist"`
}

// Registry contains configuration for principal enumeration and hive mounting.
type Registry struct {
	RegBinary        string `toml:"reg_binary"`
	ProfileListKey   string `toml:"profile_list_key"`
	PrincipalPattern string `toml:"principal_pattern"`
	MountRoot        string `toml:"mount_root"`
	// DefaultPrincipalID is the marker used in logs and the ledger for the
	// template profile that seeds new accounts.
	DefaultPrincipalID string `toml:"default_principal_id"`
	// DefaultMountName is the key name the template hive is loaded under.
	// It must not collide with keys the OS keeps loaded (HKU\.DEFAULT is the
	// LocalSystem hive, not the new-user template).
	DefaultMountName string `toml:"default_mount_name"`
	DefaultHivePath  string `toml:"default_hive_path"`
	UnloadDelayMS    int    `toml:"unload_delay_ms"`
	UnloadAttempts   int    `toml:"unload_attempts"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	// File overrides the per-run log file location.
	File string `toml:"file"`
}

// Config encapsulates all configuration values for winprep.
//
// Configuration sections by subsystem:
//   - Paths: state (ledger, lock), log directory, default checklist
//   - Registry: profile enumeration, reg.exe, hive mount/unmount tuning
//   - Logging: log format, level, and file override
type Config struct {
	Paths    Paths    `toml:"paths"`
	Registry Registry `toml:"registry"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/winprep/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/winprep/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("winprep.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LedgerPath returns the sqlite mount ledger location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "mounts.db")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "winprep.lock")
}

// RunLogPath returns the log file for the given run. An explicit
// logging.file wins over the per-run default.
func (c *Config) RunLogPath(runID string) string {
	if file := strings.TrimSpace(c.Logging.File); file != "" {
		return file
	}
	name := "winprep.log"
	if runID = strings.TrimSpace(runID); runID != "" {
		name = fmt.Sprintf("winprep-%s.log", runID)
	}
	return filepath.Join(c.Paths.LogDir, name)
}

// UnloadDelay returns the pause taken before unloading a hive.
func (c *Config) UnloadDelay() time.Duration {
	return time.Duration(c.Registry.UnloadDelayMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultStateDir() string {
	if base, ok := os.LookupEnv("ProgramData"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "winprep")
	}
	return "~/.local/share/winprep"
}

func defaultLogDir() string {
	return filepath.Join(os.TempDir(), "winprep")
}

// ErrConfigExists is returned by CreateSample when the target is already present.
var ErrConfigExists = errors.New("config file already exists")

// CreateSample writes the annotated sample configuration to path. An existing
// file is only replaced when overwrite is set.
func CreateSample(path string, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
		return fmt.Errorf("open config for writing: %w", err)
	}
	if _, err := file.WriteString(sampleConfig); err != nil {
		_ = file.Close()
		return fmt.Errorf("write sample config: %w", err)
	}
	return file.Close()
}
