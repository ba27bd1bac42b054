package orchestrator

import (
	"context"
	"time"

	"clmeval/internal/history"
	"clmeval/internal/ledger"
	"clmeval/internal/logging"
	"clmeval/internal/services"
	"clmeval/internal/storage"
	"clmeval/internal/textutil"
	"clmeval/internal/transcribe"
)

// selfHeal refreshes training data and trains a new custom model, registering
// it in the ledger as a placeholder row. Failures are logged and the run
// continues with the models already known.
func (o *Orchestrator) selfHeal(ctx context.Context, state *runState, opts Options) {
	logger := logging.WithContext(ctx, o.logger)

	if o.deps.Acquirer != nil {
		result, err := o.deps.Acquirer.Acquire(ctx)
		state.summary.TrainingData = result
		if err != nil {
			logging.WarnWithContext(logger, "training data acquisition failed", "training_data_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "the new model trains on existing training data"),
			)
		} else {
			logger.Info("training data refreshed",
				logging.Int("keyword_files", result.FilesScanned),
				logging.Int("written", result.Written),
				logging.Int("missing", len(result.Missing)),
				logging.Strings("missing_keywords", result.Missing),
			)
		}
	}

	modelName := textutil.JobName("clm-model", state.id)
	job := history.Job{
		RunID:     state.id,
		Kind:      history.JobTraining,
		Name:      modelName,
		Model:     modelName,
		StartedAt: time.Now(),
	}
	logger.Info("custom language model training started",
		logging.String(logging.FieldModel, modelName),
		logging.String("training_data", o.deps.Store.URI(storage.TrainingDataPrefix)),
	)
	state.summary.Submitted++
	modelID, err := transcribe.Train(ctx, o.deps.Backend, transcribe.TrainingRequest{
		ModelName:     modelName,
		DataPrefix:    storage.TrainingDataPrefix,
		AccessRoleARN: opts.AccessCredential,
		BaseModel:     o.settings.BaseModel,
		LanguageCode:  o.settings.LanguageCode,
	}, o.settings.TrainingPoll)
	job.FinishedAt = time.Now()
	if err != nil {
		job.Status = history.JobFailed
		job.ErrorClass = services.FailureClass(err)
		job.ErrorMessage = err.Error()
		o.recordJob(ctx, state, job)
		state.summary.Failures = append(state.summary.Failures, PairFailure{
			Model: modelName,
			Class: job.ErrorClass,
			Err:   err,
		})
		logging.ErrorWithContext(logger, "custom language model training failed", "training_failed",
			logging.String(logging.FieldModel, modelName),
			logging.String("error_class", job.ErrorClass),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the model is not registered; evaluation continues with known models"),
		)
		return
	}

	job.Status = history.JobSucceeded
	o.recordJob(ctx, state, job)
	state.ledger.Append(ledger.Placeholder(modelID))
	state.summary.NewModel = modelID
	logger.Info("custom language model registered",
		logging.String(logging.FieldModel, modelID),
		logging.Duration("elapsed", job.FinishedAt.Sub(job.StartedAt)),
	)
}
