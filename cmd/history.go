package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/audit-cli/internal/history"
	"github.com/sells-group/audit-cli/internal/render"
	"github.com/sells-group/audit-cli/internal/store"
)

var (
	historyXLSX  string
	historyAll   bool
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded comparisons",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, "session")
		if err != nil {
			return err
		}
		defer env.Close()

		filter := store.ComparisonFilter{Limit: historyLimit}
		if !historyAll {
			filter.SessionID = sessionID
		}
		recs, err := env.Store.ListComparisons(ctx, filter)
		if err != nil {
			return err
		}

		if historyXLSX != "" {
			if err := history.WriteXLSX(historyXLSX, recs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d comparaciones exportadas a %s\n", len(recs), historyXLSX)
			return nil
		}
		render.History(cmd.OutOrStdout(), recs)
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyXLSX, "xlsx", "", "write the history to an Excel workbook")
	historyCmd.Flags().BoolVar(&historyAll, "all", false, "include every session")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 100, "maximum records")
	rootCmd.AddCommand(historyCmd)
}
