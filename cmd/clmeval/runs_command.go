package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clmeval/internal/ledger"
)

const maxWordsShown = 6

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var model string
	var folder string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List ledger rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, _, err := ctx.loadLedger(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			model = strings.TrimSpace(model)
			folder = strings.TrimSpace(folder)
			var rows [][]string
			for _, rec := range l.Records() {
				if model != "" && rec.Model != model {
					continue
				}
				if folder != "" && rec.Folder != folder {
					continue
				}
				rows = append(rows, []string{
					rec.Model,
					displayFolder(rec),
					displayWER(rec),
					strconv.Itoa(len(rec.MissedWords)),
					summarizeWords(rec.FixedWords),
				})
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "No ledger rows")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]column{col("Model"), col("Folder"), numCol("WER"), numCol("Missed"), wideCol("Fixed words", 48)},
				rows,
				fmt.Sprintf("%d rows", len(rows)),
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Only show rows for this model (ST for standard)")
	cmd.Flags().StringVar(&folder, "folder", "", "Only show rows for this input folder")
	return cmd
}

func displayFolder(rec ledger.Record) string {
	if rec.IsPlaceholder() {
		return "(registered)"
	}
	return rec.Folder
}

func displayWER(rec ledger.Record) string {
	if rec.WER == nil {
		return "-"
	}
	return strconv.FormatFloat(*rec.WER, 'f', 2, 64)
}

func summarizeWords(words []string) string {
	if len(words) == 0 {
		return ""
	}
	if len(words) <= maxWordsShown {
		return strings.Join(words, " ")
	}
	return fmt.Sprintf("%s (+%d more)", strings.Join(words[:maxWordsShown], " "), len(words)-maxWordsShown)
}
