package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRegistry()
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir()
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir()
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.Checklist = strings.TrimSpace(c.Paths.Checklist)
	if c.Paths.Checklist == "" {
		if value, ok := os.LookupEnv(envChecklist); ok {
			c.Paths.Checklist = strings.TrimSpace(value)
		}
	}
	if c.Paths.Checklist != "" {
		if c.Paths.Checklist, err = expandPath(c.Paths.Checklist); err != nil {
			return fmt.Errorf("paths.checklist: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeRegistry() {
	c.Registry.RegBinary = strings.TrimSpace(c.Registry.RegBinary)
	if c.Registry.RegBinary == "" {
		c.Registry.RegBinary = defaultRegBinary
	}
	c.Registry.ProfileListKey = strings.Trim(strings.TrimSpace(c.Registry.ProfileListKey), `\`)
	if c.Registry.ProfileListKey == "" {
		c.Registry.ProfileListKey = defaultProfileListKey
	}
	c.Registry.PrincipalPattern = strings.TrimSpace(c.Registry.PrincipalPattern)
	if c.Registry.PrincipalPattern == "" {
		c.Registry.PrincipalPattern = defaultPrincipalPattern
	}
	c.Registry.MountRoot = strings.ToUpper(strings.TrimSpace(c.Registry.MountRoot))
	switch c.Registry.MountRoot {
	case "":
		c.Registry.MountRoot = defaultMountRoot
	case "HKEY_USERS":
		c.Registry.MountRoot = "HKU"
	case "HKEY_LOCAL_MACHINE":
		c.Registry.MountRoot = "HKLM"
	}
	c.Registry.DefaultPrincipalID = strings.TrimSpace(c.Registry.DefaultPrincipalID)
	if c.Registry.DefaultPrincipalID == "" {
		c.Registry.DefaultPrincipalID = defaultPrincipalID
	}
	c.Registry.DefaultMountName = strings.TrimSpace(c.Registry.DefaultMountName)
	if c.Registry.DefaultMountName == "" {
		c.Registry.DefaultMountName = defaultMountName
	}
	// Windows paths are handed to reg.exe verbatim; only whitespace is trimmed.
	c.Registry.DefaultHivePath = strings.TrimSpace(c.Registry.DefaultHivePath)
	if c.Registry.DefaultHivePath == "" {
		c.Registry.DefaultHivePath = defaultHivePath
	}
	if c.Registry.UnloadAttempts == 0 {
		c.Registry.UnloadAttempts = defaultUnloadAttempts
	}
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console", "text":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.File = strings.TrimSpace(c.Logging.File)
	if c.Logging.File == "" {
		if value, ok := os.LookupEnv(envLogFile); ok {
			c.Logging.File = strings.TrimSpace(value)
		}
	}
	if c.Logging.File != "" {
		var err error
		if c.Logging.File, err = expandPath(c.Logging.File); err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
	}
	return nil
}
