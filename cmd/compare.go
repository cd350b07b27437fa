package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/audit-cli/internal/render"
)

var (
	compareFile  string
	compareDraft string
)

var compareCmd = &cobra.Command{
	Use:   "compare [user analysis...]",
	Short: "Compare your analysis with the AI analysis",
	Long: "Scores your analysis against the AI analysis and stores it as the auditor's analysis on success. " +
		"--draft compares against an edited copy of the AI analysis instead.",
	RunE: func(cmd *cobra.Command, args []string) error {
		userText, err := readText(args, compareFile, cmd.InOrStdin())
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		env, err := initEnv(ctx, "session")
		if err != nil {
			return err
		}
		defer env.Close()

		o, err := env.openSession(ctx, sessionID, env.Services)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("draft") {
			o.EditDraft(compareDraft)
		}

		res, err := o.Compare(ctx, userText)
		if err != nil {
			return err
		}
		render.Comparison(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	compareCmd.Flags().StringVarP(&compareFile, "file", "f", "", "read your analysis from a file (- for stdin)")
	compareCmd.Flags().StringVar(&compareDraft, "draft", "", "compare against this text instead of the stored AI analysis")
	rootCmd.AddCommand(compareCmd)
}
