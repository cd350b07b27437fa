package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/audit-cli/internal/render"
)

var caseFile string

var caseCmd = &cobra.Command{
	Use:   "case [text...]",
	Short: "Replace the case study with text you provide",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readText(args, caseFile, cmd.InOrStdin())
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

		render.Session(cmd.OutOrStdout(), sessionID, o.EnterCase(text))
		return nil
	},
}

func init() {
	caseCmd.Flags().StringVarP(&caseFile, "file", "f", "", "read the case from a file (- for stdin)")
	rootCmd.AddCommand(caseCmd)
}
