// Package preflight provides readiness checks for the local paths, object
// store, binaries and reference endpoints an evaluation run depends on.
//
// The run command calls RunAll before touching the ledger so a missing
// binary or unreadable root fails in seconds instead of after hours of
// transcription. The check command renders the same results as a table.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight
