package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"clmeval/internal/logging"
	"clmeval/internal/services"
)

var errStillRunning = errors.New("job still running")

// PollOptions bounds one wait.
type PollOptions struct {
	// Initial is the first polling interval.
	Initial time.Duration
	// Max caps the polling interval.
	Max time.Duration
	// Timeout is the wall-clock budget for the whole wait.
	Timeout time.Duration
	Logger  *slog.Logger
}

func (o PollOptions) withDefaults() PollOptions {
	if o.Initial <= 0 {
		o.Initial = 15 * time.Second
	}
	if o.Max < o.Initial {
		o.Max = o.Initial
	}
	if o.Timeout <= 0 {
		o.Timeout = 4 * time.Hour
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	return o
}

// StatusFunc reports the current status of one job.
type StatusFunc func(ctx context.Context) (Status, error)

// Wait polls until the job completes. A FAILED status returns an error
// wrapping services.ErrJobFailed; exhausting the timeout returns one wrapping
// services.ErrTimeout. Status query errors are retried unless they carry a
// non-transient marker. Context cancellation stops the wait immediately.
func Wait(ctx context.Context, name string, poll StatusFunc, opts PollOptions) error {
	opts = opts.withDefaults()

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = opts.Initial
	expo.MaxInterval = opts.Max

	var permanent error
	operation := func() (Status, error) {
		status, err := poll(ctx)
		if err != nil {
			if isPermanent(err) {
				permanent = err
				return status, backoff.Permanent(err)
			}
			return status, err
		}
		switch status {
		case StatusCompleted:
			return status, nil
		case StatusFailed:
			permanent = services.Wrap(services.ErrJobFailed, "transcribe", "wait", fmt.Sprintf("%s reported FAILED", name), nil)
			return status, backoff.Permanent(permanent)
		default:
			return status, errStillRunning
		}
	}
	notify := func(err error, next time.Duration) {
		if errors.Is(err, errStillRunning) {
			opts.Logger.Debug("job still running",
				logging.String("job", name),
				logging.Duration("next_poll", next),
			)
			return
		}
		opts.Logger.Warn("job status query failed; retrying",
			logging.String("job", name),
			logging.Duration("next_poll", next),
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_status_retry"),
			logging.String(logging.FieldImpact, "polling continues until the job timeout"),
		)
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxElapsedTime(opts.Timeout),
		backoff.WithNotify(notify),
	)
	switch {
	case err == nil:
		return nil
	case permanent != nil:
		return permanent
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return services.Wrap(services.ErrTimeout, "transcribe", "wait",
			fmt.Sprintf("%s not finished after %s", name, opts.Timeout), err)
	}
}

func isPermanent(err error) bool {
	return errors.Is(err, services.ErrJobFailed) ||
		errors.Is(err, services.ErrNotFound) ||
		errors.Is(err, services.ErrConfiguration) ||
		errors.Is(err, services.ErrValidation)
}

// Transcribe submits a job, waits for it and returns the transcript. An empty
// modelID submits a standard transcription.
func Transcribe(ctx context.Context, backend Backend, req Request, modelID string, opts PollOptions) (Job, string, error) {
	var (
		job Job
		err error
	)
	if modelID == "" {
		job, err = backend.SubmitStandard(ctx, req)
	} else {
		job, err = backend.SubmitCustom(ctx, req, modelID)
	}
	if err != nil {
		return job, "", err
	}
	if err := Wait(ctx, job.Name, func(ctx context.Context) (Status, error) {
		return backend.JobStatus(ctx, job)
	}, opts); err != nil {
		return job, "", err
	}
	text, err := backend.FetchResult(ctx, job)
	if err != nil {
		return job, "", err
	}
	return job, text, nil
}

// Train submits a CLM training job and waits for the model to be usable.
func Train(ctx context.Context, backend Backend, req TrainingRequest, opts PollOptions) (string, error) {
	modelID, err := backend.SubmitTraining(ctx, req)
	if err != nil {
		return "", err
	}
	if err := Wait(ctx, modelID, func(ctx context.Context) (Status, error) {
		return backend.TrainingStatus(ctx, modelID)
	}, opts); err != nil {
		return modelID, err
	}
	return modelID, nil
}
