// Package propagate replicates a registry edit into every user profile.
//
// For each enumerated principal, including the default-profile template, the
// Propagator leases the principal's hive, applies the edit beneath the
// lease's key, and releases the lease. Principals are processed strictly in
// sequence. A failure for one principal is logged and recorded in the
// returned Report and never prevents the next principal from being tried.
package propagate
