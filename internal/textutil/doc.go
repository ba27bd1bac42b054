// Package textutil provides small string helpers shared across packages:
// transcription job names and training-data object names.
package textutil
