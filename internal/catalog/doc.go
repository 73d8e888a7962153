// Package catalog records every conversion the service attempts in a SQLite
// database under the state directory.
//
// The catalog is a ledger, not an index: downloads resolve files straight
// from the upload directory and never consult it. Operators use it to list
// what has been published, see how often outputs were fetched, and prune old
// outputs with PruneOlderThan. Writes retry briefly on SQLITE_BUSY so a CLI
// prune can run beside a live server.
package catalog
