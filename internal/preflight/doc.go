// Package preflight provides readiness checks for the environment a winprep
// run depends on: writable state and log directories, an elevated process,
// reg.exe on PATH, a readable ProfileList, and a valid checklist.
//
// The CLI "winprep preflight" command prints every result; "winprep run"
// calls RunAll first and logs failures as warnings without stopping.
package preflight
