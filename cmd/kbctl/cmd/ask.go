package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var askTopK int

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question and get a generated, cited answer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, _, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		answer, err := app.KB.Ask(cmd.Context(), args[0], askTopK, nil)
		if err != nil {
			return err
		}

		fmt.Println(answer.Text)
		if len(answer.Citations) > 0 {
			fmt.Println("\nSources:")
			for _, citation := range answer.Citations {
				fmt.Printf("  - %s (%s, score %.4f)\n", citation.Title, citation.ChunkID, citation.Score)
			}
		}
		fmt.Printf("\nConfidence: %.2f\n", answer.Confidence)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().IntVar(&askTopK, "top-k", 0, "number of context passages to retrieve (0 uses the configured default)")
}
