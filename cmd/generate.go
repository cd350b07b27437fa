package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/audit-cli/internal/model"
	"github.com/sells-group/audit-cli/internal/render"
)

var (
	genCountry string
	genSector  string
	genType    string
	genSize    string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a case study and its AI analysis",
	Long: "Requests a case study matching the filters, stores it, then requests its ISO 9001 analysis. " +
		"Filter values match case- and accent-insensitively; blank filters take the first allowed value.",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := model.ParseFilter(genCountry, genSector, genType, genSize)
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

		res, err := o.Generate(ctx, filter)
		if res != nil && res.CaseStudy != "" {
			render.Generated(cmd.OutOrStdout(), res)
		}
		return err
	},
}

func init() {
	generateCmd.Flags().StringVar(&genCountry, "country", "", "country (Ecuador, México, Colombia, Argentina, España)")
	generateCmd.Flags().StringVar(&genSector, "sector", "", "sector (Salud, Educación, Automotriz, Alimentos, Tecnología)")
	generateCmd.Flags().StringVar(&genType, "type", "", "company type (Pública, Privada, ONG, Startup)")
	generateCmd.Flags().StringVar(&genSize, "size", "", "company size (Microempresa, Pequeña, Mediana, Grande)")
	rootCmd.AddCommand(generateCmd)
}
