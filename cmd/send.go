package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/audit-cli/internal/render"
)

var sendFile string

var sendCmd = &cobra.Command{
	Use:   "send [message...]",
	Short: "Ask the assistant about a message and store the reply as the AI analysis",
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := readText(args, sendFile, cmd.InOrStdin())
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

		reply, err := o.Send(ctx, msg)
		if err != nil {
			return err
		}
		render.Text(cmd.OutOrStdout(), reply)
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVarP(&sendFile, "file", "f", "", "read the message from a file (- for stdin)")
	rootCmd.AddCommand(sendCmd)
}
