package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"clmeval/internal/storage"
)

func newLeaderboardCommand(ctx *commandContext) *cobra.Command {
	var asTable bool

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show models ranked by mean WER",
		Long: "Print the leaderboard written by the last run. With --table the standings\n" +
			"are recomputed from the ledger and shown with row counts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, store, err := ctx.loadLedger(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if !asTable {
				text, err := storage.ReadText(cmd.Context(), store, storage.LeaderboardKey)
				switch {
				case err == nil:
					fmt.Fprint(out, text)
					return nil
				case errors.Is(err, storage.ErrNotFound):
					if l.Len() == 0 {
						fmt.Fprintln(out, "No runs recorded yet")
						return nil
					}
					// Ledger exists but the last run aborted before writing the leaderboard.
					fmt.Fprint(out, l.BuildLeaderboard())
					return nil
				default:
					return err
				}
			}

			standings := l.Standings()
			if len(standings) == 0 {
				fmt.Fprintln(out, "No scored rows yet")
				return nil
			}
			rows := make([][]string, 0, len(standings))
			for i, s := range standings {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					s.Label,
					strconv.FormatFloat(s.Mean, 'f', 2, 64),
					strconv.Itoa(s.Count),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]column{numCol("#"), col("Model"), numCol("Mean WER"), numCol("Rows")},
				rows,
				"",
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asTable, "table", false, "Recompute standings from the ledger and render a table")
	return cmd
}
