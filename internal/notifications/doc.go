// Package notifications publishes run milestones to an ntfy topic.
//
// The topic comes from config.toml; without one NewService returns a no-op
// so callers never branch on whether notifications are enabled.
package notifications
