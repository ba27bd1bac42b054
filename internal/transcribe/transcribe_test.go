package transcribe_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clmeval/internal/services"
	"clmeval/internal/transcribe"
)

func fastPoll() transcribe.PollOptions {
	return transcribe.PollOptions{Initial: time.Millisecond, Max: 2 * time.Millisecond, Timeout: time.Second}
}

func sequence(statuses ...transcribe.Status) transcribe.StatusFunc {
	var mu sync.Mutex
	i := 0
	return func(context.Context) (transcribe.Status, error) {
		mu.Lock()
		defer mu.Unlock()
		s := statuses[min(i, len(statuses)-1)]
		i++
		return s, nil
	}
}

func TestWaitCompletes(t *testing.T) {
	poll := sequence(transcribe.StatusInProgress, transcribe.StatusInProgress, transcribe.StatusCompleted)
	if err := transcribe.Wait(context.Background(), "job", poll, fastPoll()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestWaitFailedStatus(t *testing.T) {
	poll := sequence(transcribe.StatusInProgress, transcribe.StatusFailed)
	err := transcribe.Wait(context.Background(), "job", poll, fastPoll())
	if !errors.Is(err, services.ErrJobFailed) {
		t.Fatalf("expected job failed, got %v", err)
	}
}

func TestWaitTimesOut(t *testing.T) {
	opts := fastPoll()
	opts.Timeout = 20 * time.Millisecond
	err := transcribe.Wait(context.Background(), "job", sequence(transcribe.StatusInProgress), opts)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestWaitRetriesTransientErrors(t *testing.T) {
	calls := 0
	poll := func(context.Context) (transcribe.Status, error) {
		calls++
		if calls < 3 {
			return "", errors.New("throttled")
		}
		return transcribe.StatusCompleted, nil
	}
	if err := transcribe.Wait(context.Background(), "job", poll, fastPoll()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 polls, got %d", calls)
	}
}

func TestWaitStopsOnPermanentError(t *testing.T) {
	calls := 0
	poll := func(context.Context) (transcribe.Status, error) {
		calls++
		return "", services.Wrap(services.ErrNotFound, "transcribe", "status", "unknown job", nil)
	}
	err := transcribe.Wait(context.Background(), "job", poll, fastPoll())
	if !errors.Is(err, services.ErrNotFound) || calls != 1 {
		t.Fatalf("expected single not-found poll, got %v after %d calls", err, calls)
	}
}

func TestWaitHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opts := transcribe.PollOptions{Initial: time.Hour, Max: time.Hour, Timeout: 10 * time.Hour}
	done := make(chan error, 1)
	go func() { done <- transcribe.Wait(ctx, "job", sequence(transcribe.StatusInProgress), opts) }()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after cancellation")
	}
}

type fakeBackend struct {
	statuses   []transcribe.Status
	polls      int
	submitted  []string
	transcript string
}

func (f *fakeBackend) SubmitStandard(_ context.Context, req transcribe.Request) (transcribe.Job, error) {
	f.submitted = append(f.submitted, "standard:"+req.JobName)
	return transcribe.Job{Name: req.JobName, OutputKey: req.OutputKey}, nil
}

func (f *fakeBackend) SubmitCustom(_ context.Context, req transcribe.Request, modelID string) (transcribe.Job, error) {
	f.submitted = append(f.submitted, modelID+":"+req.JobName)
	return transcribe.Job{Name: req.JobName, OutputKey: req.OutputKey, ModelID: modelID}, nil
}

func (f *fakeBackend) JobStatus(context.Context, transcribe.Job) (transcribe.Status, error) {
	s := f.statuses[min(f.polls, len(f.statuses)-1)]
	f.polls++
	return s, nil
}

func (f *fakeBackend) FetchResult(context.Context, transcribe.Job) (string, error) {
	return f.transcript, nil
}

func (f *fakeBackend) SubmitTraining(_ context.Context, req transcribe.TrainingRequest) (string, error) {
	return req.ModelName, nil
}

func (f *fakeBackend) TrainingStatus(context.Context, string) (transcribe.Status, error) {
	return f.JobStatus(context.Background(), transcribe.Job{})
}

func TestTranscribeSelectsSubmitByModel(t *testing.T) {
	backend := &fakeBackend{statuses: []transcribe.Status{transcribe.StatusCompleted}, transcript: "hello world"}
	_, text, err := transcribe.Transcribe(context.Background(), backend, transcribe.Request{JobName: "st-job"}, "", fastPoll())
	if err != nil || text != "hello world" {
		t.Fatalf("Transcribe standard = %q, %v", text, err)
	}
	job, _, err := transcribe.Transcribe(context.Background(), backend, transcribe.Request{JobName: "clm-job"}, "clm-model-1", fastPoll())
	if err != nil {
		t.Fatalf("Transcribe custom: %v", err)
	}
	if job.ModelID != "clm-model-1" {
		t.Fatalf("expected model on job, got %+v", job)
	}
	want := []string{"standard:st-job", "clm-model-1:clm-job"}
	if len(backend.submitted) != 2 || backend.submitted[0] != want[0] || backend.submitted[1] != want[1] {
		t.Fatalf("submitted = %v, want %v", backend.submitted, want)
	}
}

func TestTrainReportsFailure(t *testing.T) {
	backend := &fakeBackend{statuses: []transcribe.Status{transcribe.StatusInProgress, transcribe.StatusFailed}}
	modelID, err := transcribe.Train(context.Background(), backend, transcribe.TrainingRequest{ModelName: "clm-model-x"}, fastPoll())
	if !errors.Is(err, services.ErrJobFailed) {
		t.Fatalf("expected job failed, got %v", err)
	}
	if modelID != "clm-model-x" {
		t.Fatalf("expected model id on failure, got %q", modelID)
	}
}

func TestOutputRoundTrip(t *testing.T) {
	data, err := transcribe.EncodeOutput("job", "some words")
	if err != nil {
		t.Fatalf("EncodeOutput: %v", err)
	}
	text, err := transcribe.DecodeOutput(data)
	if err != nil || text != "some words" {
		t.Fatalf("DecodeOutput = %q, %v", text, err)
	}
	if _, err := transcribe.DecodeOutput([]byte(`{"results":{"transcripts":[]}}`)); err == nil {
		t.Fatal("expected error for empty transcripts")
	}
}
