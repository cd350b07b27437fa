package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/audit-cli/internal/model"
	"github.com/sells-group/audit-cli/internal/render"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Extract a case study from a document and analyze it",
	Long:  "Uploads a PDF, image or text file. The extracted text and its analysis replace the case study and the AI analysis together.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return eris.Wrapf(err, "read %s", path)
		}
		doc := &model.Document{
			Name:        filepath.Base(path),
			ContentType: mime.TypeByExtension(filepath.Ext(path)),
			Data:        data,
		}
		if doc.Empty() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s is empty, nothing to ingest\n", path)
			return nil
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

		ext, err := o.Ingest(ctx, doc)
		if err != nil {
			return err
		}
		render.Extraction(cmd.OutOrStdout(), ext)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
