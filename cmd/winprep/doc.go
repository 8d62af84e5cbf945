// Package main hosts the winprep CLI entrypoint and command graph.
//
// The Cobra-based command tree resolves configuration, opens the settings
// store, mount ledger, and run lock, and hands checklist rows or single edits
// to the internal runner and propagator. Read-only commands (principals,
// mounts, checklist validate, preflight) never mount a hive.
//
// Keep this package lean: behavior belongs in the internal packages and is
// surfaced here through dedicated commands or flags.
package main
