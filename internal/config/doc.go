// Package config loads, normalizes, and validates clmeval configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CLMEVAL_STORAGE_ROOT and CLMEVAL_ACCESS_ROLE_ARN. The Config type centralizes
// every knob the evaluation run and CLI need, so storage roots, backend choices
// and polling budgets are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical backend names, and clear validation errors.
package config
