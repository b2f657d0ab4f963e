package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"taxkb/internal/collector"
)

var (
	collectPublications []string
	collectYear         string
	collectDir          string
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Download IRS publications into the documents directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfigAndLogger()
		if err != nil {
			return err
		}

		dir := collectDir
		if dir == "" {
			dir = cfg.KnowledgeBase.DocumentsDir
		}
		c, err := collector.NewCollector(dir, log)
		if err != nil {
			return err
		}

		downloaded, err := c.CollectPublications(cmd.Context(), collectPublications, collectYear)
		if err != nil {
			return err
		}
		fmt.Printf("Downloaded %d publications to %s\n", len(downloaded), dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(collectCmd)
	collectCmd.Flags().StringSliceVar(&collectPublications, "pub", nil, "IRS publication numbers to download (default: a common set)")
	collectCmd.Flags().StringVar(&collectYear, "year", "2023", "tax year recorded in the publication metadata")
	collectCmd.Flags().StringVar(&collectDir, "dir", "", "target directory (default: the configured documents directory)")
}
