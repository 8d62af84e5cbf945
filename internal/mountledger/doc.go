// Package mountledger records every hive load winprep performs in a small
// SQLite database.
//
// A key under HKU may exist because Windows loaded it for a signed-in user
// or because an earlier winprep run crashed between load and unload. The
// ledger distinguishes the two: rows left open by another run mark a stale
// mount that the current run may adopt and unload, while keys with no open
// row belong to the OS and are never unloaded.
package mountledger
