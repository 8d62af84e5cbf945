package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRegistry(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateRegistry() error {
	if _, err := regexp.Compile(c.Registry.PrincipalPattern); err != nil {
		return fmt.Errorf("registry.principal_pattern: %w", err)
	}
	switch c.Registry.MountRoot {
	case "HKU", "HKLM":
	default:
		return fmt.Errorf("registry.mount_root must be HKU or HKLM, got %q", c.Registry.MountRoot)
	}
	if strings.ContainsAny(c.Registry.DefaultMountName, `\/`) {
		return fmt.Errorf("registry.default_mount_name must be a single key name, got %q", c.Registry.DefaultMountName)
	}
	if strings.EqualFold(c.Registry.DefaultMountName, ".DEFAULT") {
		return errors.New("registry.default_mount_name must not be .DEFAULT (reserved for the LocalSystem hive)")
	}
	if c.Registry.UnloadDelayMS < 0 || c.Registry.UnloadDelayMS > maxUnloadDelayMS {
		return fmt.Errorf("registry.unload_delay_ms must be between 0 and %d", maxUnloadDelayMS)
	}
	if c.Registry.UnloadAttempts < 1 || c.Registry.UnloadAttempts > maxUnloadAttempts {
		return fmt.Errorf("registry.unload_attempts must be between 1 and %d", maxUnloadAttempts)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}
