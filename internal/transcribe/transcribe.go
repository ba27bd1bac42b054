// Package transcribe defines the transcription backend contract and the
// blocking helpers that submit a job and wait for its terminal state.
//
// Backends are asynchronous: a submit returns a Job handle and callers poll
// JobStatus (or TrainingStatus for CLM training) until COMPLETED or FAILED.
// Wait implements that polling with capped exponential backoff and a
// wall-clock timeout. No cancellation is ever sent to the backend.
package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
)

// Status is the lifecycle state reported by a backend.
type Status string

// Statuses shared by transcription and training jobs.
const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Terminal reports whether polling can stop.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Request describes one transcription job. Keys are storage keys relative to
// the configured root.
type Request struct {
	JobName      string
	MediaKey     string
	OutputKey    string
	LanguageCode string
}

// Job is the handle returned by a submit.
type Job struct {
	Name      string
	OutputKey string
	ModelID   string
}

// TrainingRequest describes one custom language model training job.
type TrainingRequest struct {
	ModelName     string
	DataPrefix    string
	AccessRoleARN string
	BaseModel     string
	LanguageCode  string
}

// Backend is a transcription service. Implementations report a failed job
// either as StatusFailed or as an error wrapping services.ErrJobFailed.
type Backend interface {
	SubmitStandard(ctx context.Context, req Request) (Job, error)
	SubmitCustom(ctx context.Context, req Request, modelID string) (Job, error)
	JobStatus(ctx context.Context, job Job) (Status, error)
	FetchResult(ctx context.Context, job Job) (string, error)
	SubmitTraining(ctx context.Context, req TrainingRequest) (string, error)
	TrainingStatus(ctx context.Context, modelID string) (Status, error)
}

// Output is the transcript document written under output/. It mirrors the
// Amazon Transcribe result shape so every backend's output reads the same.
type Output struct {
	JobName string        `json:"jobName,omitempty"`
	Results OutputResults `json:"results"`
}

// OutputResults holds the transcript alternatives.
type OutputResults struct {
	Transcripts []OutputTranscript `json:"transcripts"`
}

// OutputTranscript is one transcript alternative.
type OutputTranscript struct {
	Transcript string `json:"transcript"`
}

// EncodeOutput renders a single transcript as an output document.
func EncodeOutput(jobName, transcript string) ([]byte, error) {
	doc := Output{
		JobName: jobName,
		Results: OutputResults{Transcripts: []OutputTranscript{{Transcript: transcript}}},
	}
	return json.MarshalIndent(doc, "", "  ")
}

// DecodeOutput returns the first transcript of an output document.
func DecodeOutput(data []byte) (string, error) {
	var doc Output
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("decode transcript output: %w", err)
	}
	if len(doc.Results.Transcripts) == 0 {
		return "", fmt.Errorf("decode transcript output: no transcripts")
	}
	return doc.Results.Transcripts[0].Transcript, nil
}
