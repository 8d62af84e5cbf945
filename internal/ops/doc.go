// Package ops defines shared utilities consumed by the settings accessor, the
// hive mount lifecycle, and the checklist runner.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, step numbers, and principal IDs for
//     logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (validation, mount, unmount, store) without string matching.
//   - A thin Executor abstraction that makes external tool calls (reg.exe)
//     testable.
package ops
