package history

import "time"

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// JobKind distinguishes standard, custom and training jobs.
type JobKind string

const (
	JobStandard JobKind = "standard"
	JobCustom   JobKind = "custom"
	JobTraining JobKind = "training"
)

// Job statuses recorded in history.
const (
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
)

// Run is one evaluation run.
type Run struct {
	ID            string
	Status        RunStatus
	SelfHeal      bool
	StorageRoot   string
	Submitted     int
	Scored        int
	Failures      int
	NewModel      string
	KeywordsAdded int
	ErrorMessage  string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Duration returns the wall-clock time of a finished run, or zero.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunOutcome carries the counters written when a run finishes.
type RunOutcome struct {
	Status        RunStatus
	Submitted     int
	Scored        int
	Failures      int
	NewModel      string
	KeywordsAdded int
	ErrorMessage  string
}

// Job is one submitted transcription or training job.
type Job struct {
	ID           int64
	RunID        string
	Kind         JobKind
	Name         string
	Model        string
	Folder       string
	Status       string
	WER          *float64
	ErrorClass   string
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}
