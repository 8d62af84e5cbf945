// Package hive manages the load/unload lifecycle of per-user registry hives.
//
// Manager.Acquire returns a Lease; the lease records whether this process
// loaded the hive, and Release unloads only hives it owns. Before unloading
// the manager forces a garbage collection and pauses so lingering handles
// close, then retries reg.exe unload with exponential backoff. With a
// Recorder attached, loads are written to the mount ledger so hives stranded
// by a crashed run can be adopted or recovered later.
package hive
