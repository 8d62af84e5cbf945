// Package regstore models the Windows registry as a small Store interface.
//
// Keys are addressed by a predefined root plus a backslash path, values carry
// one of the five value types winprep edits (dword, string, expand_string,
// binary, multi_string). SystemStore talks to the live registry through
// golang.org/x/sys/windows/registry; MemoryStore is a case-insensitive
// in-process tree whose Attach/Detach calls mirror hive load and unload so
// propagation can be exercised on any platform.
package regstore
