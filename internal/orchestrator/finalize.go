package orchestrator

import (
	"context"
	"fmt"

	"clmeval/internal/logging"
	"clmeval/internal/services"
	"clmeval/internal/storage"
)

// finalize saves the ledger, merges this run's missed words into the keyword
// corpus and rewrites the leaderboard.
func (o *Orchestrator) finalize(ctx context.Context, state *runState) error {
	ctx = services.WithStage(ctx, "finalize")
	if err := state.ledger.Save(ctx); err != nil {
		return err
	}

	if text := state.missedText(); text != "" {
		nouns, err := o.deps.Extractor.ExtractNouns(ctx, text)
		if err != nil {
			logging.WarnWithContext(state.logger, "keyword extraction failed", "keyword_extraction_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "missed words from this run are not added to the keyword corpus"),
			)
		} else {
			added, err := o.keywords.MergeAndSave(ctx, nouns)
			if err != nil {
				return services.Wrap(services.ErrTransient, "orchestrator", "save keywords", o.keywords.Key(), err)
			}
			state.summary.KeywordsAdded = added
			state.logger.Info("keyword corpus updated",
				logging.Int("candidates", len(nouns)),
				logging.Int("added", added),
			)
		}
	}

	board := state.ledger.BuildLeaderboard()
	if err := storage.WriteText(ctx, o.deps.Store, storage.LeaderboardKey, board); err != nil {
		return services.Wrap(services.ErrTransient, "orchestrator", "save leaderboard", storage.LeaderboardKey, err)
	}
	state.logger.Debug("leaderboard written", logging.String("key", storage.LeaderboardKey))
	return nil
}

// summaryError renders an abort error for history.
func summaryError(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", services.FailureClass(err), err)
}
