// Package logging assembles structured slog loggers and formatting helpers
// used across winprep.
//
// Every run writes two streams: the console at the configured level and
// format, and a plain-text per-run log file that records everything from
// debug upward. Context helpers stamp run id, step counter, and principal
// onto log lines so the file alone is enough to reconstruct what happened to
// each profile. A no-op logger is provided for tests and optional wiring.
package logging
