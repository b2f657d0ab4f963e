package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taxkb/internal/kb/schema"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Ingest a document file or a directory of documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, _, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		path := args[0]
		info, err := os.Stat(path)
		if err != nil {
			return err
		}

		if info.IsDir() {
			report, err := app.KB.BatchAddDocuments(cmd.Context(), path)
			if err != nil {
				return err
			}
			fmt.Printf("Ingested %d documents (%d failed, %d skipped)\n",
				len(report.Succeeded), len(report.Failed), len(report.Skipped))
			for _, failure := range report.Failed {
				fmt.Printf("  failed: %s: %s\n", failure.Path, failure.Error)
			}
			return nil
		}

		result, err := app.KB.AddDocument(cmd.Context(), path, schema.Metadata{})
		if err != nil {
			return err
		}
		fmt.Printf("Ingested %s as %d chunks\n", result.DocumentID, result.ChunkCount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
