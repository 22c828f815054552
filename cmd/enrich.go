package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bookdesk/enrichment"
	"bookdesk/models"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich <title>...",
	Short: "Look titles up in Open Library and print the enriched records",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		books := make([]models.BookRecord, len(args))
		tasks := make([]enrichment.Task, len(args))
		for i, title := range args {
			books[i].Title = title
			tasks[i] = enrichment.Task{Title: title, Target: &books[i]}
		}
		summary := a.enricher.Enrich(cmd.Context(), tasks)
		logger.Info("enrichment finished",
			zap.Int("enriched", summary.Enriched),
			zap.Int("failed", summary.Failed),
			zap.Int("limit", a.enricher.Limit()))

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(books)
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)
}
