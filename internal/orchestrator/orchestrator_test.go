package orchestrator_test

import (
	"context"
	"errors"
	"fmt"
	"path"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"clmeval/internal/history"
	"clmeval/internal/keywords"
	"clmeval/internal/ledger"
	"clmeval/internal/orchestrator"
	"clmeval/internal/scoring/diffscore"
	"clmeval/internal/services"
	"clmeval/internal/storage"
	"clmeval/internal/testsupport"
	"clmeval/internal/trainingdata"
	"clmeval/internal/transcribe"
)

// fakeBackend answers every job immediately from a transcript table keyed
// "<model>|<folder>"; custom models fall back to "CLM|<folder>".
type fakeBackend struct {
	mu          sync.Mutex
	store       *testsupport.MemStore
	transcripts map[string]string
	failing     map[string]bool
	trainErr    error
	jobs        map[string]string
	submits     []string
	trained     []transcribe.TrainingRequest
}

func newFakeBackend(store *testsupport.MemStore, transcripts map[string]string) *fakeBackend {
	return &fakeBackend{
		store:       store,
		transcripts: transcripts,
		failing:     make(map[string]bool),
		jobs:        make(map[string]string),
	}
}

func (f *fakeBackend) submit(ctx context.Context, req transcribe.Request, model string) (transcribe.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	folder := path.Base(path.Dir(req.MediaKey))
	key := model + "|" + folder
	text, ok := f.transcripts[key]
	if !ok && model != ledger.StandardModel {
		text, ok = f.transcripts["CLM|"+folder]
	}
	if !ok {
		return transcribe.Job{}, fmt.Errorf("no transcript for %s", key)
	}
	f.submits = append(f.submits, key)
	f.jobs[req.JobName] = key
	payload, err := transcribe.EncodeOutput(req.JobName, text)
	if err != nil {
		return transcribe.Job{}, err
	}
	if err := f.store.Write(ctx, req.OutputKey, payload); err != nil {
		return transcribe.Job{}, err
	}
	job := transcribe.Job{Name: req.JobName, OutputKey: req.OutputKey}
	if model != ledger.StandardModel {
		job.ModelID = model
	}
	return job, nil
}

func (f *fakeBackend) SubmitStandard(ctx context.Context, req transcribe.Request) (transcribe.Job, error) {
	return f.submit(ctx, req, ledger.StandardModel)
}

func (f *fakeBackend) SubmitCustom(ctx context.Context, req transcribe.Request, modelID string) (transcribe.Job, error) {
	return f.submit(ctx, req, modelID)
}

func (f *fakeBackend) JobStatus(_ context.Context, job transcribe.Job) (transcribe.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing[f.jobs[job.Name]] {
		return transcribe.StatusFailed, nil
	}
	return transcribe.StatusCompleted, nil
}

func (f *fakeBackend) FetchResult(ctx context.Context, job transcribe.Job) (string, error) {
	data, err := f.store.Read(ctx, job.OutputKey)
	if err != nil {
		return "", err
	}
	return transcribe.DecodeOutput(data)
}

func (f *fakeBackend) SubmitTraining(_ context.Context, req transcribe.TrainingRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trained = append(f.trained, req)
	if f.trainErr != nil {
		return "", f.trainErr
	}
	return req.ModelName, nil
}

func (f *fakeBackend) TrainingStatus(context.Context, string) (transcribe.Status, error) {
	return transcribe.StatusCompleted, nil
}

func (f *fakeBackend) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submits)
}

type fakeAcquirer struct{ calls int }

func (a *fakeAcquirer) Acquire(context.Context) (trainingdata.Result, error) {
	a.calls++
	return trainingdata.Result{FilesScanned: 1, Written: 2}, nil
}

type harness struct {
	store    *testsupport.MemStore
	backend  *fakeBackend
	history  *history.Store
	acquirer *fakeAcquirer
	orch     *orchestrator.Orchestrator
	runs     int
}

func newHarness(t *testing.T, truths, transcripts map[string]string) *harness {
	t.Helper()
	h := &harness{
		store:    testsupport.NewMemStore(),
		history:  testsupport.MustOpenHistory(t, testsupport.NewConfig(t)),
		acquirer: &fakeAcquirer{},
	}
	h.store.SeedFolders(t, truths)
	h.backend = newFakeBackend(h.store, transcripts)
	poll := transcribe.PollOptions{Initial: time.Millisecond, Max: time.Millisecond, Timeout: time.Second}
	orch, err := orchestrator.New(orchestrator.Dependencies{
		Store:     h.store,
		Backend:   h.backend,
		Scorer:    diffscore.New(),
		Extractor: keywords.Passthrough{},
		Acquirer:  h.acquirer,
		History:   h.history,
		NewRunID: func() string {
			h.runs++
			return fmt.Sprintf("run%d", h.runs)
		},
	}, orchestrator.Settings{JobPoll: poll, TrainingPoll: poll, LanguageCode: "en-US"})
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}
	h.orch = orch
	return h
}

func (h *harness) ledger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Load(context.Background(), h.store, storage.LedgerKey)
	if err != nil {
		t.Fatalf("ledger.Load: %v", err)
	}
	return l
}

var (
	truths = map[string]string{
		"001": "The cat sat.",
		"002": "Hello (laughs) Kubernetes world",
	}
	transcripts = map[string]string{
		"ST|001":  "the dog sat",
		"ST|002":  "hello kubernetes world",
		"CLM|001": "the cat sat",
		"CLM|002": "hello kubernetes world",
	}
)

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := orchestrator.New(orchestrator.Dependencies{}, orchestrator.Settings{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRunScoresStandardAndIsIdempotent(t *testing.T) {
	h := newHarness(t, truths, transcripts)
	ctx := context.Background()

	summary, err := h.orch.Run(ctx, orchestrator.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.RunID != "run1" || summary.Submitted != 2 || summary.Scored != 2 || len(summary.Failures) != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	l := h.ledger(t)
	if !l.HasRun(ledger.StandardModel, "001") || !l.HasRun(ledger.StandardModel, "002") {
		t.Fatalf("expected ST rows, got %+v", l.Records())
	}
	if got := l.MissedWordsFor(ledger.StandardModel, "001"); !reflect.DeepEqual(got, []string{"cat"}) {
		t.Fatalf("missed words for 001 = %v", got)
	}
	for _, rec := range l.Records() {
		if rec.Folder == "002" && (rec.WER == nil || *rec.WER != 0) {
			t.Fatalf("expected perfect score for 002, got %+v", rec)
		}
	}
	if got := h.store.Text(storage.LearnedKeywordsKey); got != "Cat" {
		t.Fatalf("keyword corpus = %q", got)
	}
	if summary.KeywordsAdded != 1 {
		t.Fatalf("keywords added = %d", summary.KeywordsAdded)
	}
	board := h.store.Text(storage.LeaderboardKey)
	if !strings.HasPrefix(board, ledger.LeaderboardHeader+ledger.StandardLabel+": ") {
		t.Fatalf("unexpected leaderboard %q", board)
	}

	ledgerBefore := h.store.Text(storage.LedgerKey)
	second, err := h.orch.Run(ctx, orchestrator.Options{})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.Submitted != 0 || second.Scored != 0 || h.backend.submitCount() != 2 {
		t.Fatalf("rerun submitted work: %+v (backend saw %d)", second, h.backend.submitCount())
	}
	if h.store.Text(storage.LedgerKey) != ledgerBefore {
		t.Fatal("rerun changed the ledger")
	}
	if h.store.Text(storage.LeaderboardKey) != board {
		t.Fatal("rerun changed the leaderboard")
	}

	runs, err := h.history.ListRuns(ctx, 0)
	if err != nil || len(runs) != 2 {
		t.Fatalf("expected two runs in history, got %v, %v", runs, err)
	}
}

func TestRunSelfHealTrainsAndEvaluatesModel(t *testing.T) {
	h := newHarness(t, truths, transcripts)
	ctx := context.Background()
	if _, err := h.orch.Run(ctx, orchestrator.Options{}); err != nil {
		t.Fatalf("baseline Run: %v", err)
	}

	summary, err := h.orch.Run(ctx, orchestrator.Options{SelfHeal: true, AccessCredential: "arn:role"})
	if err != nil {
		t.Fatalf("self-heal Run: %v", err)
	}
	if summary.NewModel != "clm-model-run2" {
		t.Fatalf("new model = %q", summary.NewModel)
	}
	if h.acquirer.calls != 1 || summary.TrainingData.Written != 2 {
		t.Fatalf("training data not acquired: calls=%d result=%+v", h.acquirer.calls, summary.TrainingData)
	}
	if len(h.backend.trained) != 1 || h.backend.trained[0].AccessRoleARN != "arn:role" ||
		h.backend.trained[0].DataPrefix != storage.TrainingDataPrefix {
		t.Fatalf("unexpected training requests %+v", h.backend.trained)
	}
	if summary.Scored != 2 {
		t.Fatalf("expected both folders scored for the new model, got %+v", summary)
	}

	l := h.ledger(t)
	var fixed []string
	placeholder := false
	for _, rec := range l.Records() {
		if rec.Model != summary.NewModel {
			continue
		}
		if rec.IsPlaceholder() {
			placeholder = true
		}
		if rec.Folder == "001" {
			fixed = rec.FixedWords
			if len(rec.MissedWords) != 0 {
				t.Fatalf("custom model should miss nothing on 001, got %v", rec.MissedWords)
			}
		}
	}
	if !placeholder {
		t.Fatal("expected placeholder row for the trained model")
	}
	if !reflect.DeepEqual(fixed, []string{"cat"}) {
		t.Fatalf("fixed words = %v", fixed)
	}

	board := h.store.Text(storage.LeaderboardKey)
	want := ledger.LeaderboardHeader + "clm-model-run2: 0\n\n" + ledger.StandardLabel + ": "
	if !strings.HasPrefix(board, want) {
		t.Fatalf("leaderboard = %q, want prefix %q", board, want)
	}
}

func TestRunFailedPairIsRetriedNextRun(t *testing.T) {
	h := newHarness(t, truths, transcripts)
	h.backend.failing["ST|002"] = true
	ctx := context.Background()

	summary, err := h.orch.Run(ctx, orchestrator.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.Failures) != 1 {
		t.Fatalf("expected one failure, got %+v", summary.Failures)
	}
	failure := summary.Failures[0]
	if failure.Model != ledger.StandardModel || failure.Folder != "002" || failure.Class != "job_failed" ||
		!errors.Is(failure.Err, services.ErrJobFailed) {
		t.Fatalf("unexpected failure %+v", failure)
	}
	if h.ledger(t).HasRun(ledger.StandardModel, "002") {
		t.Fatal("failed pair must not get a ledger row")
	}

	jobs, err := h.history.ListJobs(ctx, summary.RunID)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	failed := 0
	for _, job := range jobs {
		if job.Status == history.JobFailed {
			failed++
			if job.Folder != "002" || job.ErrorClass != "job_failed" {
				t.Fatalf("unexpected failed job %+v", job)
			}
		}
	}
	if failed != 1 {
		t.Fatalf("expected one failed job in history, got %d", failed)
	}

	delete(h.backend.failing, "ST|002")
	retry, err := h.orch.Run(ctx, orchestrator.Options{})
	if err != nil {
		t.Fatalf("retry Run: %v", err)
	}
	if retry.Scored != 1 || !h.ledger(t).HasRun(ledger.StandardModel, "002") {
		t.Fatalf("expected the failed pair to be retried, got %+v", retry)
	}
}

func TestRunDefersCustomPairUntilStandardSucceeds(t *testing.T) {
	h := newHarness(t, truths, transcripts)
	ctx := context.Background()
	seed := h.ledger(t)
	seed.Append(ledger.Placeholder("clm-x"))
	if err := seed.Save(ctx); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
	h.backend.failing["ST|001"] = true

	first, err := h.orch.Run(ctx, orchestrator.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(first.Failures) != 1 || first.Failures[0].Folder != "001" {
		t.Fatalf("expected only the standard pair to fail, got %+v", first.Failures)
	}
	l := h.ledger(t)
	if l.HasRun("clm-x", "001") {
		t.Fatal("custom pair must wait for a standard row")
	}
	if !l.HasRun("clm-x", "002") {
		t.Fatal("custom pair with a standard row should be evaluated")
	}
	for _, key := range h.backend.submits {
		if key == "clm-x|001" {
			t.Fatal("deferred custom pair was submitted")
		}
	}

	delete(h.backend.failing, "ST|001")
	if _, err := h.orch.Run(ctx, orchestrator.Options{}); err != nil {
		t.Fatalf("retry Run: %v", err)
	}
	var fixed []string
	found := false
	for _, rec := range h.ledger(t).Records() {
		if rec.Model == "clm-x" && rec.Folder == "001" {
			found = true
			fixed = rec.FixedWords
		}
	}
	if !found {
		t.Fatal("expected the deferred custom pair to be evaluated on retry")
	}
	if !reflect.DeepEqual(fixed, []string{"cat"}) {
		t.Fatalf("fixed words = %v, want [cat]", fixed)
	}
}

func TestRunTrainingFailureKeepsEvaluating(t *testing.T) {
	h := newHarness(t, truths, transcripts)
	h.backend.trainErr = services.Wrap(services.ErrConfiguration, "transcribe", "train", "no role", nil)

	summary, err := h.orch.Run(context.Background(), orchestrator.Options{SelfHeal: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.NewModel != "" {
		t.Fatalf("failed training must not register a model, got %q", summary.NewModel)
	}
	if summary.Scored != 2 || len(summary.Failures) != 1 || summary.Failures[0].Folder != "" {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if models := h.ledger(t).DistinctModels(ledger.StandardModel); len(models) != 0 {
		t.Fatalf("unexpected models %v", models)
	}
}

func TestRunSkipsMalformedFolders(t *testing.T) {
	h := newHarness(t, truths, transcripts)
	h.store.Put(t, "input/003/notes.txt", "a")
	h.store.Put(t, "input/003/other.txt", "b")
	h.store.Put(t, "input/003/003.mp3", "ID3")

	summary, err := h.orch.Run(context.Background(), orchestrator.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.Skipped) != 1 || summary.Skipped[0].ID != "003" {
		t.Fatalf("expected folder 003 skipped, got %+v", summary.Skipped)
	}
	if summary.Scored != 2 {
		t.Fatalf("expected the valid folders scored, got %+v", summary)
	}
}

func TestRunCancelledStillSavesLedger(t *testing.T) {
	h := newHarness(t, truths, transcripts)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.orch.Run(ctx, orchestrator.Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if !h.store.Has(storage.LedgerKey) {
		t.Fatal("expected ledger saved on cancellation")
	}
	if h.backend.submitCount() != 0 {
		t.Fatalf("expected no submissions after cancellation, got %d", h.backend.submitCount())
	}
	runs, err := h.history.ListRuns(context.Background(), 1)
	if err != nil || len(runs) != 1 || runs[0].Status != history.RunFailed {
		t.Fatalf("expected failed run in history, got %+v, %v", runs, err)
	}
}

func TestFixedWords(t *testing.T) {
	got := orchestrator.FixedWords([]string{"cat", "kubernetes", "cat", "mat"}, []string{"mat"})
	want := []string{"cat", "kubernetes"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FixedWords = %v, want %v", got, want)
	}
	if got := orchestrator.FixedWords(nil, []string{"x"}); len(got) != 0 {
		t.Fatalf("expected no fixed words, got %v", got)
	}
}
