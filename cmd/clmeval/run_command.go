package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"clmeval/internal/history"
	"clmeval/internal/ledger"
	"clmeval/internal/logging"
	"clmeval/internal/notifications"
	"clmeval/internal/orchestrator"
	"clmeval/internal/preflight"
	"clmeval/internal/storage"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var selfHeal bool
	var accessRoleARN string
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate every model against the input folders",
		Long: "Transcribe each input folder with the standard model and every custom model\n" +
			"in the ledger, score the results, and update the ledger and leaderboard.\n" +
			"With --self-heal a new custom model is trained from learned keywords first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("self-heal") {
				cfg.CLM.SelfHeal = selfHeal
			}
			if arn := strings.TrimSpace(accessRoleARN); arn != "" {
				cfg.CLM.AccessRoleARN = arn
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			lock := flock.New(cfg.LockPath())
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return fmt.Errorf("another clmeval run holds %s", cfg.LockPath())
			}
			defer func() { _ = lock.Unlock() }()

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			logging.PruneDailyLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, time.Now())

			builder := newCollaborators(cfg, logger)
			store, err := builder.store(signalCtx)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}

			if !skipPreflight {
				if failed := preflight.Failed(preflight.RunAll(signalCtx, cfg, store)); len(failed) > 0 {
					return fmt.Errorf("preflight failed: %s", preflight.Summarize(failed))
				}
			}

			backend, err := builder.backend(signalCtx, store)
			if err != nil {
				return fmt.Errorf("init transcription backend: %w", err)
			}
			extractor, err := builder.extractor(signalCtx)
			if err != nil {
				return fmt.Errorf("init keyword extractor: %w", err)
			}

			deps := orchestrator.Dependencies{
				Store:     store,
				Backend:   backend,
				Scorer:    builder.scorer(),
				Extractor: extractor,
				Acquirer:  builder.acquirer(store),
				Logger:    logger,
			}
			hist, err := history.Open(cfg)
			if err != nil {
				logger.Warn("run history unavailable; continuing without it",
					logging.String("path", cfg.HistoryPath()),
					logging.Error(err),
				)
			} else {
				defer hist.Close()
				deps.History = hist
			}

			orch, err := orchestrator.New(deps, builder.settings())
			if err != nil {
				return err
			}

			summary, runErr := orch.Run(signalCtx, orchestrator.Options{
				SelfHeal:         cfg.CLM.SelfHeal,
				AccessCredential: cfg.CLM.AccessRoleARN,
			})
			printSummary(cmd.OutOrStdout(), summary)
			notifyOutcome(context.WithoutCancel(signalCtx), notifications.NewService(cfg), store, summary, runErr, logger)
			if runErr != nil && errors.Is(runErr, context.Canceled) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Run interrupted; the ledger keeps every pair scored so far")
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&selfHeal, "self-heal", false, "Train a new custom model from learned keywords before evaluating")
	cmd.Flags().StringVar(&accessRoleARN, "access-role-arn", "", "IAM role Transcribe assumes to read training data")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip readiness checks")
	return cmd
}

func printSummary(out io.Writer, s orchestrator.Summary) {
	if s.RunID == "" {
		return
	}
	fmt.Fprintf(out, "Run %s\n", s.RunID)
	fmt.Fprintf(out, "  Jobs submitted: %d\n", s.Submitted)
	fmt.Fprintf(out, "  Pairs scored:   %d\n", s.Scored)
	if s.NewModel != "" {
		fmt.Fprintf(out, "  New model:      %s\n", s.NewModel)
	}
	if s.TrainingData.Written > 0 || len(s.TrainingData.Missing) > 0 {
		fmt.Fprintf(out, "  Training pages: %d written, %d missing\n", s.TrainingData.Written, len(s.TrainingData.Missing))
	}
	fmt.Fprintf(out, "  Keywords added: %d\n", s.KeywordsAdded)
	if s.Duration > 0 {
		fmt.Fprintf(out, "  Duration:       %s\n", s.Duration.Round(time.Second))
	}
	for _, skipped := range s.Skipped {
		fmt.Fprintf(out, "  Skipped folder %s: %s\n", skipped.ID, skipped.Reason)
	}
	for _, failure := range s.Failures {
		fmt.Fprintf(out, "  Failed: %s\n", failure.String())
	}
}

// notifyOutcome publishes the run result. Notification failures are logged
// and never change the command's exit status.
func notifyOutcome(ctx context.Context, svc notifications.Service, store storage.Store, s orchestrator.Summary, runErr error, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	warn := func(err error) {
		if err != nil {
			logger.Warn("notification failed", logging.Error(err))
		}
	}
	if s.NewModel != "" {
		warn(svc.NotifyModelTrained(ctx, s.NewModel))
	}
	if runErr != nil {
		if !errors.Is(runErr, context.Canceled) {
			warn(svc.NotifyError(ctx, runErr, "run "+s.RunID))
		}
		return
	}

	report := notifications.RunReport{
		RunID:    s.RunID,
		Scored:   s.Scored,
		Failed:   len(s.Failures),
		Duration: s.Duration,
	}
	if l, err := ledger.Load(ctx, store, storage.LedgerKey); err == nil {
		if standings := l.Standings(); len(standings) > 0 {
			report.Leader = standings[0].Label
			report.LeaderWER = standings[0].Mean
		}
	}
	warn(svc.NotifyRunCompleted(ctx, report))
}
