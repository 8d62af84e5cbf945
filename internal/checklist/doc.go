// Package checklist loads the settings table that drives a winprep run.
//
// A checklist is a TOML file with a [[setting]] array or a YAML file with a
// settings: list. Each row names a registry value, its type and data, and
// whether it is written into every user profile (all_users) or once under a
// machine root. Compile validates rows independently so one bad row never
// hides the others.
package checklist
