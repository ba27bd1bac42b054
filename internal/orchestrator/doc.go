// Package orchestrator runs one evaluation pass over the storage root.
//
// A run decides what has already been computed from the ledger, submits
// standard transcriptions for new folders and custom model transcriptions for
// every (model, folder) pair without a row, scores the results, and feeds the
// words both engines missed back into the keyword corpus. Optionally it first
// trains a new custom language model ("self-heal") from training data fetched
// for those keywords.
//
// Work is sequential. A failing pair is logged, reported in the Summary and
// the run history, and left without a ledger row so the next run retries it.
// Only failures that make the whole run meaningless (listing inputs, loading
// or saving the ledger) abort it; rows gathered before such a failure are
// still saved.
package orchestrator
