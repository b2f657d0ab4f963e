package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"taxkb/internal/kb/vectorstore"
)

var (
	searchTopK         int
	searchDocumentType string
	searchJurisdiction string
	searchSource       string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the knowledge base for relevant passages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, _, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		filters := make(map[string]string)
		if searchDocumentType != "" {
			filters[vectorstore.FieldDocumentType] = searchDocumentType
		}
		if searchJurisdiction != "" {
			filters[vectorstore.FieldJurisdiction] = searchJurisdiction
		}
		if searchSource != "" {
			filters[vectorstore.FieldSource] = searchSource
		}

		results, err := app.KB.Search(cmd.Context(), args[0], searchTopK, filters)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No results.")
			return nil
		}

		for i, res := range results {
			fmt.Printf("%d. [%.4f] %s (%s)\n", i+1, res.Score, res.Chunk.Metadata.Title, res.Chunk.ID)
			fmt.Printf("   %s\n", res.Chunk.Preview())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVar(&searchTopK, "top-k", 0, "number of results to return (0 uses the configured default)")
	searchCmd.Flags().StringVar(&searchDocumentType, "document-type", "", "filter by document type")
	searchCmd.Flags().StringVar(&searchJurisdiction, "jurisdiction", "", "filter by jurisdiction")
	searchCmd.Flags().StringVar(&searchSource, "source", "", "filter by source")
}
