package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"clmeval/internal/history"
	"clmeval/internal/keywords"
	"clmeval/internal/ledger"
	"clmeval/internal/logging"
	"clmeval/internal/scoring"
	"clmeval/internal/services"
	"clmeval/internal/storage"
	"clmeval/internal/trainingdata"
	"clmeval/internal/transcribe"
)

// Recorder persists run and job history. *history.Store satisfies it.
type Recorder interface {
	StartRun(ctx context.Context, run history.Run) error
	FinishRun(ctx context.Context, runID string, outcome history.RunOutcome) error
	RecordJob(ctx context.Context, job history.Job) (int64, error)
}

// Acquirer refreshes CLM training data. *trainingdata.Acquirer satisfies it.
type Acquirer interface {
	Acquire(ctx context.Context) (trainingdata.Result, error)
}

// Dependencies are the collaborators of a run. Store, Backend, Scorer and
// Extractor are required.
type Dependencies struct {
	Store     storage.Store
	Backend   transcribe.Backend
	Scorer    scoring.Backend
	Extractor keywords.Extractor
	// Acquirer is optional; without it self-heal trains on whatever
	// training data already exists.
	Acquirer Acquirer
	// History is optional.
	History Recorder
	Logger  *slog.Logger
	// NewRunID overrides run id generation (for testing).
	NewRunID func() string
}

// Settings carry per-deployment values.
type Settings struct {
	JobPoll      transcribe.PollOptions
	TrainingPoll transcribe.PollOptions
	LanguageCode string
	BaseModel    string
	// StorageRoot is recorded in history for operator reference.
	StorageRoot string
}

// Options select the behavior of one run.
type Options struct {
	// SelfHeal acquires training data and trains a new custom model first.
	SelfHeal bool
	// AccessCredential is the data access role handed to CLM training.
	AccessCredential string
}

// PairFailure reports one job that produced no ledger row.
type PairFailure struct {
	Model  string
	Folder string
	Class  string
	Err    error
}

// Summary reports what a run did.
type Summary struct {
	RunID         string
	Submitted     int
	Scored        int
	Failures      []PairFailure
	Skipped       []storage.SkippedFolder
	NewModel      string
	KeywordsAdded int
	TrainingData  trainingdata.Result
	Duration      time.Duration
}

// Orchestrator evaluates models against the inputs of one storage root.
type Orchestrator struct {
	deps     Dependencies
	settings Settings
	logger   *slog.Logger
	keywords *keywords.Store
}

// New validates the dependencies and returns an orchestrator.
func New(deps Dependencies, settings Settings) (*Orchestrator, error) {
	var missing []string
	if deps.Store == nil {
		missing = append(missing, "store")
	}
	if deps.Backend == nil {
		missing = append(missing, "transcription backend")
	}
	if deps.Scorer == nil {
		missing = append(missing, "scoring backend")
	}
	if deps.Extractor == nil {
		missing = append(missing, "keyword extractor")
	}
	if len(missing) > 0 {
		return nil, services.Wrap(services.ErrConfiguration, "orchestrator", "init",
			"missing "+strings.Join(missing, ", "), nil)
	}
	if deps.NewRunID == nil {
		deps.NewRunID = uuid.NewString
	}
	return &Orchestrator{
		deps:     deps,
		settings: settings,
		logger:   logging.NewComponentLogger(deps.Logger, "orchestrator"),
		keywords: keywords.NewStore(deps.Store),
	}, nil
}

// runState is the per-run mutable state threaded through the steps.
type runState struct {
	id      string
	started time.Time
	logger  *slog.Logger
	ledger  *ledger.Ledger
	summary *Summary
	missed  map[string]struct{}
}

func (r *runState) addMissed(words []string) {
	for _, w := range words {
		r.missed[w] = struct{}{}
	}
}

func (r *runState) missedText() string {
	words := make([]string, 0, len(r.missed))
	for w := range r.missed {
		words = append(words, w)
	}
	sort.Strings(words)
	return strings.Join(words, " ")
}

// Run performs one evaluation pass. The returned Summary is populated even
// when an error aborts the run.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (Summary, error) {
	runID := o.deps.NewRunID()
	ctx = services.WithRunID(ctx, runID)
	summary := Summary{RunID: runID}
	state := &runState{
		id:      runID,
		started: time.Now(),
		logger:  logging.WithContext(ctx, o.logger),
		summary: &summary,
		missed:  make(map[string]struct{}),
	}
	state.logger.Info("evaluation run started",
		logging.Bool("self_heal", opts.SelfHeal),
		logging.String("storage_root", o.settings.StorageRoot),
	)
	o.recordStart(ctx, state, opts)

	led, err := ledger.Load(ctx, o.deps.Store, storage.LedgerKey)
	if err != nil {
		return o.abort(ctx, state, err)
	}
	state.ledger = led

	if opts.SelfHeal {
		o.selfHeal(services.WithStage(ctx, "self_heal"), state, opts)
	}

	folders, skipped, err := storage.ListFolders(ctx, o.deps.Store)
	if err != nil {
		return o.abort(ctx, state, services.Wrap(services.ErrTransient, "orchestrator", "list inputs", storage.InputPrefix, err))
	}
	summary.Skipped = skipped
	for _, s := range skipped {
		logging.WarnWithContext(state.logger, "input folder skipped", "input_folder_skipped",
			logging.String(logging.FieldFolder, s.ID),
			logging.String("reason", s.Reason),
			logging.String(logging.FieldImpact, "folder is not evaluated"),
			logging.String(logging.FieldErrorHint, "place exactly one .txt ground truth and one media file in the folder"),
		)
	}
	state.logger.Info("inputs listed",
		logging.Int("folders", len(folders)),
		logging.Int("skipped", len(skipped)),
		logging.Int("ledger_rows", led.Len()),
	)

	loopErr := o.evaluateStandard(services.WithStage(ctx, "standard"), state, folders)
	if loopErr == nil {
		loopErr = o.evaluateCustom(services.WithStage(ctx, "custom"), state, folders)
	}

	// Persist what was gathered even when the loops were cancelled.
	finalCtx := ctx
	if loopErr != nil {
		finalCtx = context.WithoutCancel(ctx)
	}
	if err := o.finalize(finalCtx, state); err != nil {
		return o.abort(finalCtx, state, errors.Join(loopErr, err))
	}
	if loopErr != nil {
		return o.abort(finalCtx, state, loopErr)
	}

	summary.Duration = time.Since(state.started)
	o.recordFinish(ctx, state, nil)
	state.logger.Info("evaluation run finished",
		logging.Int("submitted", summary.Submitted),
		logging.Int("scored", summary.Scored),
		logging.Int("failures", len(summary.Failures)),
		logging.Int("keywords_added", summary.KeywordsAdded),
		logging.Duration("duration", summary.Duration),
	)
	return summary, nil
}

func (o *Orchestrator) abort(ctx context.Context, state *runState, err error) (Summary, error) {
	state.summary.Duration = time.Since(state.started)
	logging.ErrorWithContext(state.logger, "evaluation run aborted", "run_aborted",
		logging.Error(err),
		logging.String("error_class", services.FailureClass(err)),
		logging.String(logging.FieldErrorHint, "fix the cause and rerun; completed pairs are kept in the ledger"),
	)
	o.recordFinish(context.WithoutCancel(ctx), state, err)
	return *state.summary, err
}
