// Package services defines shared utilities consumed by the orchestrator and
// the external integrations it drives.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, model names, and input
//     folders for logging and history.
//   - Structured error markers plus the Wrap helper that classify failures
//     (job failure, timeout, external tool, not found) so a single bad
//     (model, folder) pair can be reported without aborting a run.
//
// Use these helpers when wiring new backends so operational behaviour (error
// handling, observability, retries) stays uniform across the evaluation loop.
package services
