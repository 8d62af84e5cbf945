// Package runner executes checklist steps against an explicit RunContext.
//
// Every step is logged at start and end with its 1-based number, and failures
// are recorded rather than propagated: a checklist run is best effort and
// always reaches the last row.
package runner
