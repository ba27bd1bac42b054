package history_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"clmeval/internal/history"
	"clmeval/internal/testsupport"
)

func TestRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	if err := store.StartRun(ctx, history.Run{ID: "run-1", SelfHeal: true, StorageRoot: "s3://bucket/eval"}); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	run, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run == nil || run.Status != history.RunRunning || !run.SelfHeal || run.StorageRoot != "s3://bucket/eval" {
		t.Fatalf("unexpected run %+v", run)
	}

	if err := store.FinishRun(ctx, "run-1", history.RunOutcome{
		Status:        history.RunCompleted,
		Submitted:     4,
		Scored:        3,
		Failures:      1,
		NewModel:      "clm-model-1",
		KeywordsAdded: 2,
	}); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	run, err = store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != history.RunCompleted || run.Scored != 3 || run.NewModel != "clm-model-1" || run.FinishedAt.IsZero() {
		t.Fatalf("unexpected finished run %+v", run)
	}
	if run.Duration() < 0 {
		t.Fatalf("negative duration %v", run.Duration())
	}
}

func TestFinishUnknownRun(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	err := store.FinishRun(context.Background(), "missing", history.RunOutcome{})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
}

func TestJobsAndFailureCounts(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()
	if err := store.StartRun(ctx, history.Run{ID: "run-1"}); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	wer := 12.5
	jobs := []history.Job{
		{RunID: "run-1", Kind: history.JobStandard, Name: "st-job-1", Model: "ST", Folder: "001", Status: history.JobSucceeded, WER: &wer},
		{RunID: "run-1", Kind: history.JobCustom, Name: "clm-job-1", Model: "clm-1", Folder: "001", Status: history.JobFailed, ErrorClass: "timeout", ErrorMessage: "timeout: not finished"},
		{RunID: "run-1", Kind: history.JobCustom, Name: "clm-job-2", Model: "clm-1", Folder: "001", Status: history.JobFailed, ErrorClass: "job_failed"},
	}
	for _, job := range jobs {
		if _, err := store.RecordJob(ctx, job); err != nil {
			t.Fatalf("RecordJob: %v", err)
		}
	}

	got, err := store.ListJobs(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(got) != 3 || got[0].Name != "st-job-1" || got[0].WER == nil || *got[0].WER != 12.5 {
		t.Fatalf("unexpected jobs %+v", got)
	}
	if got[1].WER != nil || got[1].ErrorClass != "timeout" || got[1].Kind != history.JobCustom {
		t.Fatalf("unexpected failed job %+v", got[1])
	}

	counts, err := store.FailureCounts(ctx)
	if err != nil {
		t.Fatalf("FailureCounts: %v", err)
	}
	if counts["clm-1@001"] != 2 || counts["ST@001"] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestListFindAndPruneRuns(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ids := []string{"aaaa1111", "aaaa2222", "bbbb3333"}
	for i, id := range ids {
		if err := store.StartRun(ctx, history.Run{ID: id, StartedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("StartRun %s: %v", id, err)
		}
	}
	if _, err := store.RecordJob(ctx, history.Job{RunID: "aaaa1111", Kind: history.JobStandard, Name: "j", Status: history.JobSucceeded}); err != nil {
		t.Fatalf("RecordJob: %v", err)
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "bbbb3333" || runs[1].ID != "aaaa2222" {
		t.Fatalf("unexpected run order %+v", runs)
	}

	run, err := store.FindRun(ctx, "bbbb")
	if err != nil || run == nil || run.ID != "bbbb3333" {
		t.Fatalf("FindRun prefix = %+v, %v", run, err)
	}
	if _, err := store.FindRun(ctx, "aaaa"); err == nil {
		t.Fatal("expected ambiguous prefix error")
	}
	if run, err := store.FindRun(ctx, "zzzz"); err != nil || run != nil {
		t.Fatalf("expected no match, got %+v, %v", run, err)
	}

	removed, err := store.PruneRuns(ctx, base.Add(30*time.Minute))
	if err != nil || removed != 1 {
		t.Fatalf("PruneRuns = %d, %v", removed, err)
	}
	jobs, err := store.ListJobs(ctx, "aaaa1111")
	if err != nil || len(jobs) != 0 {
		t.Fatalf("expected cascaded job delete, got %v, %v", jobs, err)
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := first.StartRun(context.Background(), history.Run{ID: "run-1"}); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	first.Close()

	second := testsupport.MustOpenHistory(t, cfg)
	run, err := second.GetRun(context.Background(), "run-1")
	if err != nil || run == nil {
		t.Fatalf("expected persisted run, got %+v, %v", run, err)
	}
}
