package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clmeval/internal/history"
	"clmeval/internal/ledger"
)

const shortRunIDLen = 8

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var failures bool
	var pruneDays int

	cmd := &cobra.Command{
		Use:   "history [RUN_ID]",
		Short: "Show recent runs or the jobs of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			switch {
			case pruneDays > 0:
				cutoff := time.Now().AddDate(0, 0, -pruneDays)
				removed, err := store.PruneRuns(cmd.Context(), cutoff)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d runs started before %s\n", removed, cutoff.Format("2006-01-02"))
				return nil
			case failures:
				return printFailureCounts(cmd.Context(), out, store)
			case len(args) == 1:
				return printRunDetail(cmd.Context(), out, store, args[0])
			default:
				return printRecentRuns(cmd.Context(), out, store, limit)
			}
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list (0 for all)")
	cmd.Flags().BoolVar(&failures, "failures", false, "Count failed jobs per model and folder")
	cmd.Flags().IntVar(&pruneDays, "prune-days", 0, "Delete runs older than this many days")
	return cmd
}

func printRecentRuns(ctx context.Context, out io.Writer, store *history.Store, limit int) error {
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			string(run.Status),
			yesNo(run.SelfHeal),
			strconv.Itoa(run.Submitted),
			strconv.Itoa(run.Scored),
			strconv.Itoa(run.Failures),
			formatDuration(run.Duration()),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]column{col("Run"), col("Started"), col("Status"), col("Self-heal"),
			numCol("Jobs"), numCol("Scored"), numCol("Failed"), numCol("Duration")},
		rows,
		"",
	))
	return nil
}

func printRunDetail(ctx context.Context, out io.Writer, store *history.Store, idOrPrefix string) error {
	run, err := store.FindRun(ctx, idOrPrefix)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %q not found", idOrPrefix)
	}

	fmt.Fprintf(out, "Run:        %s\n", run.ID)
	fmt.Fprintf(out, "Status:     %s\n", run.Status)
	fmt.Fprintf(out, "Storage:    %s\n", run.StorageRoot)
	fmt.Fprintf(out, "Started:    %s\n", run.StartedAt.Local().Format(time.RFC3339))
	if !run.FinishedAt.IsZero() {
		fmt.Fprintf(out, "Duration:   %s\n", formatDuration(run.Duration()))
	}
	fmt.Fprintf(out, "Self-heal:  %s\n", yesNo(run.SelfHeal))
	if run.NewModel != "" {
		fmt.Fprintf(out, "New model:  %s\n", run.NewModel)
	}
	fmt.Fprintf(out, "Keywords:   %d added\n", run.KeywordsAdded)
	if run.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:      %s\n", run.ErrorMessage)
	}

	jobs, err := store.ListJobs(ctx, run.ID)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		wer := "-"
		if job.WER != nil {
			wer = strconv.FormatFloat(*job.WER, 'f', 2, 64)
		}
		detail := job.ErrorClass
		if job.ErrorMessage != "" {
			detail = strings.TrimSpace(detail + " " + job.ErrorMessage)
		}
		rows = append(rows, []string{
			string(job.Kind),
			ledger.Label(job.Model),
			job.Folder,
			job.Status,
			wer,
			formatDuration(job.FinishedAt.Sub(job.StartedAt)),
			detail,
		})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable(
		[]column{col("Kind"), col("Model"), col("Folder"), col("Status"),
			numCol("WER"), numCol("Took"), wideCol("Detail", 60)},
		rows,
		"",
	))
	return nil
}

func printFailureCounts(ctx context.Context, out io.Writer, store *history.Store) error {
	counts, err := store.FailureCounts(ctx)
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		fmt.Fprintln(out, "No failed jobs recorded")
		return nil
	}
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		model, folder, _ := strings.Cut(key, "@")
		rows = append(rows, []string{model, folder, strconv.Itoa(counts[key])})
	}
	fmt.Fprintln(out, renderTable(
		[]column{col("Model"), col("Folder"), numCol("Failures")},
		rows,
		"",
	))
	return nil
}

func shortID(id string) string {
	if len(id) <= shortRunIDLen {
		return id
	}
	return id[:shortRunIDLen]
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}
