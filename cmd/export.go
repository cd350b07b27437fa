package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/audit-cli/internal/workflow"
)

var exportDir string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the session as a PDF report and start a new one",
	Long:  "Renders the case, both analyses and the comparison summary into a PDF. The session is cleared only after the file is saved.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, "session")
		if err != nil {
			return err
		}
		defer env.Close()

		dir := cfg.Export.Dir
		if exportDir != "" {
			dir = exportDir
		}
		svc := env.Services
		svc.Sink = workflow.NewFileSink(dir, cfg.Export.FileName)

		o, err := env.openSession(ctx, sessionID, svc)
		if err != nil {
			return err
		}

		art, err := o.Export(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Informe guardado en %s (%d bytes)\n", art.Location, len(art.Data))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "output directory (default from config)")
	rootCmd.AddCommand(exportCmd)
}
