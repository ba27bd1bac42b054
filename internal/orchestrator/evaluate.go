package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clmeval/internal/history"
	"clmeval/internal/ledger"
	"clmeval/internal/logging"
	"clmeval/internal/missedwords"
	"clmeval/internal/services"
	"clmeval/internal/storage"
	"clmeval/internal/textnorm"
	"clmeval/internal/textutil"
	"clmeval/internal/transcribe"
)

// evaluateStandard scores the standard transcription of every folder
// without an ST row.
func (o *Orchestrator) evaluateStandard(ctx context.Context, state *runState, folders []storage.Folder) error {
	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return err
		}
		if state.ledger.HasRun(ledger.StandardModel, folder.ID) {
			continue
		}
		o.evaluatePair(ctx, state, ledger.StandardModel, folder)
	}
	return ctx.Err()
}

// evaluateCustom scores every known custom model against every folder it has
// no row for. Folders without a standard row are left for a later run.
func (o *Orchestrator) evaluateCustom(ctx context.Context, state *runState, folders []storage.Folder) error {
	for _, model := range state.ledger.DistinctModels(ledger.StandardModel) {
		for _, folder := range folders {
			if err := ctx.Err(); err != nil {
				return err
			}
			if state.ledger.HasRun(model, folder.ID) {
				continue
			}
			if !state.ledger.HasRun(ledger.StandardModel, folder.ID) {
				logging.WarnWithContext(state.logger, "custom pair deferred", "custom_pair_deferred",
					logging.String(logging.FieldModel, model),
					logging.String(logging.FieldFolder, folder.ID),
					logging.String(logging.FieldImpact, "fixed words need a standard baseline for this folder"),
					logging.String(logging.FieldErrorHint, "the pair is evaluated on the run after the standard transcription succeeds"),
				)
				continue
			}
			err := o.evaluatePair(ctx, state, model, folder)
			if errors.Is(err, services.ErrConfiguration) {
				logging.WarnWithContext(state.logger, "custom model evaluation unavailable", "custom_model_unsupported",
					logging.String(logging.FieldModel, model),
					logging.Error(err),
					logging.String(logging.FieldImpact, "remaining folders for this model are not evaluated"),
					logging.String(logging.FieldErrorHint, "use the aws transcription backend for custom language models"),
				)
				break
			}
		}
	}
	return ctx.Err()
}

// evaluatePair transcribes, scores and records one (model, folder) pair. On
// failure no row is appended and the failure is reported.
func (o *Orchestrator) evaluatePair(ctx context.Context, state *runState, model string, folder storage.Folder) error {
	ctx = services.WithPair(ctx, model, folder.ID)
	logger := logging.WithContext(ctx, o.logger)
	standard := model == ledger.StandardModel
	kind := textutil.Ternary(standard, "st", "clm")
	req := transcribe.Request{
		JobName:      textutil.JobName(kind+"-job", state.id, model, folder.ID),
		MediaKey:     folder.MediaKey,
		OutputKey:    storage.OutputPrefix + textutil.JobName(kind, state.id, model, folder.ID) + ".json",
		LanguageCode: o.settings.LanguageCode,
	}
	job := history.Job{
		RunID:     state.id,
		Kind:      textutil.Ternary(standard, history.JobStandard, history.JobCustom),
		Name:      req.JobName,
		Model:     model,
		Folder:    folder.ID,
		StartedAt: time.Now(),
	}

	rec, err := o.scorePair(ctx, state, req, model, folder)
	job.FinishedAt = time.Now()
	if err != nil {
		job.Status = history.JobFailed
		job.ErrorClass = services.FailureClass(err)
		job.ErrorMessage = err.Error()
		o.recordJob(ctx, state, job)
		state.summary.Failures = append(state.summary.Failures, PairFailure{
			Model:  model,
			Folder: folder.ID,
			Class:  job.ErrorClass,
			Err:    err,
		})
		logging.ErrorWithContext(logger, "pair evaluation failed", "pair_failed",
			logging.String("job", req.JobName),
			logging.String("error_class", job.ErrorClass),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the pair has no ledger row and is retried on the next run"),
		)
		return err
	}

	job.Status = history.JobSucceeded
	job.WER = rec.WER
	o.recordJob(ctx, state, job)
	state.ledger.Append(rec)
	state.addMissed(rec.MissedWords)
	state.summary.Scored++
	logger.Info("pair evaluated",
		logging.String("job", req.JobName),
		logging.Float64("wer", *rec.WER),
		logging.Int("missed_words", len(rec.MissedWords)),
		logging.Int("fixed_words", len(rec.FixedWords)),
		logging.Duration("elapsed", job.FinishedAt.Sub(job.StartedAt)),
	)
	return nil
}

func (o *Orchestrator) scorePair(ctx context.Context, state *runState, req transcribe.Request, model string, folder storage.Folder) (ledger.Record, error) {
	truth, err := storage.ReadText(ctx, o.deps.Store, folder.TruthKey)
	if err != nil {
		return ledger.Record{}, services.Wrap(services.ErrTransient, "orchestrator", "read ground truth", folder.TruthKey, err)
	}

	modelID := textutil.Ternary(model == ledger.StandardModel, "", model)
	state.summary.Submitted++
	_, hypothesis, err := transcribe.Transcribe(ctx, o.deps.Backend, req, modelID, o.settings.JobPoll)
	if err != nil {
		return ledger.Record{}, err
	}

	result, err := o.deps.Scorer.Score(ctx, textnorm.Normalize(truth), textnorm.Normalize(hypothesis))
	if err != nil {
		return ledger.Record{}, services.Wrap(services.ErrExternalTool, "orchestrator", "score", req.JobName, err)
	}
	wer := result.WER
	missed := missedwords.Extract(result.AnnotatedReference, result.Markers)
	rec := ledger.Record{
		Model:       model,
		Folder:      folder.ID,
		WER:         &wer,
		MissedWords: missed,
	}
	if model != ledger.StandardModel {
		rec.FixedWords = FixedWords(state.ledger.MissedWordsFor(ledger.StandardModel, folder.ID), missed)
	}
	return rec, nil
}

// FixedWords returns the words the standard transcription missed that the
// custom model did not, in standard order.
func FixedWords(standardMissed, customMissed []string) []string {
	custom := make(map[string]struct{}, len(customMissed))
	for _, w := range customMissed {
		custom[w] = struct{}{}
	}
	var fixed []string
	seen := make(map[string]struct{})
	for _, w := range standardMissed {
		if _, ok := custom[w]; ok {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		fixed = append(fixed, w)
	}
	return fixed
}

// String renders the failure as "model@folder: error".
func (f PairFailure) String() string {
	label := fmt.Sprintf("%s@%s", f.Model, f.Folder)
	if f.Folder == "" {
		label = f.Model
	}
	if f.Err == nil {
		return label
	}
	return label + ": " + f.Err.Error()
}
