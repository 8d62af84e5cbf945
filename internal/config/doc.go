// Package config loads, normalizes, and validates winprep configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// WINPREP_LOG_FILE and WINPREP_CHECKLIST. The Config type centralizes the
// registry knobs used for principal enumeration and hive mounting so the CLI
// and the propagation engine agree on mount names and unload timing.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
