package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/audit-cli/internal/config"
)

var (
	cfg       *config.Config
	sessionID string
)

var rootCmd = &cobra.Command{
	Use:   "audit-cli",
	Short: "ISO 9001 audit training assistant",
	Long: "Generates or ingests audit case studies, requests an AI analysis, compares it with the auditor's own " +
		"analysis and exports the result as a PDF report.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		if sessionID == "" {
			sessionID = cfg.Session.DefaultID
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sessionID, "session", "", "session id (default from config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
