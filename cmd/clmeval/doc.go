// Package main hosts the clmeval CLI entrypoint and command graph.
//
// The Cobra-based command tree resolves configuration once, builds the
// storage, transcription, scoring and keyword collaborators the config
// selects, and hands them to the orchestrator. Read-only commands print the
// ledger, the leaderboard and the local run history.
//
// Keep this package lean: add functionality to the internal packages first
// and surface it here through dedicated commands or flags.
package main
