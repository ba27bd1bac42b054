// Package language normalizes the locale codes handed to transcription
// backends.
//
// Amazon Transcribe takes BCP-47 style locales ("en-US") while WhisperX
// wants ISO 639-1 codes ("en"). Only a subset of locales can train custom
// language models; SupportsCustomModels reports which.
package language
