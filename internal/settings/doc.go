// Package settings applies one registry value edit at a time.
//
// Edit carries the path, value name, typed value, and action. The Accessor
// resolves the path beneath a base key (a machine root or a mounted user
// hive), creates missing keys for Add/Update, and treats removals from
// absent keys as warnings rather than failures.
package settings
