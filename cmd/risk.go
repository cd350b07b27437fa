package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/audit-cli/internal/model"
	"github.com/sells-group/audit-cli/internal/render"
)

var (
	riskImpact      int
	riskProbability int
)

var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "Evaluate a risk from its impact and probability",
	Long:  "Computes risk as impact × probability (each 1-5) and classifies it as Alto (12+), Medio (6+) or Bajo.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := model.AssessRisk(riskImpact, riskProbability)
		if err != nil {
			return err
		}
		render.Risk(cmd.OutOrStdout(), r)
		return nil
	},
}

func init() {
	riskCmd.Flags().IntVar(&riskImpact, "impact", 0, "impact score (1-5)")
	riskCmd.Flags().IntVar(&riskProbability, "probability", 0, "probability score (1-5)")
	_ = riskCmd.MarkFlagRequired("impact")
	_ = riskCmd.MarkFlagRequired("probability")
	rootCmd.AddCommand(riskCmd)
}
