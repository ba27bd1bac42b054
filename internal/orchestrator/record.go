package orchestrator

import (
	"context"

	"clmeval/internal/history"
	"clmeval/internal/logging"
)

func (o *Orchestrator) recordStart(ctx context.Context, state *runState, opts Options) {
	if o.deps.History == nil {
		return
	}
	if err := o.deps.History.StartRun(context.WithoutCancel(ctx), history.Run{
		ID:          state.id,
		SelfHeal:    opts.SelfHeal,
		StorageRoot: o.settings.StorageRoot,
		StartedAt:   state.started,
	}); err != nil {
		state.logger.Warn("run history unavailable", logging.Error(err))
	}
}

func (o *Orchestrator) recordJob(ctx context.Context, state *runState, job history.Job) {
	if o.deps.History == nil {
		return
	}
	if _, err := o.deps.History.RecordJob(context.WithoutCancel(ctx), job); err != nil {
		state.logger.Warn("failed to record job history", logging.String("job", job.Name), logging.Error(err))
	}
}

func (o *Orchestrator) recordFinish(ctx context.Context, state *runState, runErr error) {
	if o.deps.History == nil {
		return
	}
	s := state.summary
	outcome := history.RunOutcome{
		Status:        history.RunCompleted,
		Submitted:     s.Submitted,
		Scored:        s.Scored,
		Failures:      len(s.Failures),
		NewModel:      s.NewModel,
		KeywordsAdded: s.KeywordsAdded,
	}
	if runErr != nil {
		outcome.Status = history.RunFailed
		outcome.ErrorMessage = summaryError(runErr)
	}
	if err := o.deps.History.FinishRun(context.WithoutCancel(ctx), state.id, outcome); err != nil {
		state.logger.Warn("failed to record run outcome", logging.Error(err))
	}
}
