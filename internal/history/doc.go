// Package history records evaluation runs and the jobs they submitted in a
// SQLite database under the state directory.
//
// The ledger in storage stays the source of truth for what has been
// evaluated; history is an operator aid answering "what happened in run X"
// and "which pairs keep failing". It is safe to delete: the next run starts a
// fresh database. Schema changes bump the version in schema.go.
package history
