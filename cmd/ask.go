package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bookdesk/models"
	"bookdesk/validation"
)

var (
	askMode  string
	askFrom  string
	askTo    string
	askFlags models.SnapshotFlags
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask one question from the terminal",
	Long: `ask runs a single question through the assistant and prints the answer as JSON.

Modes:
  sql    one generated query, answered from its rows (default)
  plan   analytics snapshot plus up to two supplemental queries
  tools  customer chat with order, invoice and catalog lookups`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.TrimSpace(strings.Join(args, " "))
		if !validation.IsValidPrompt(question) {
			return fmt.Errorf("%q does not look like a question", question)
		}

		a, err := buildApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		var out any
		switch askMode {
		case "sql":
			out, err = a.assistant.AskQuestion(cmd.Context(), question, nil)
		case "plan":
			dr, perr := cliDateRange(askFrom, askTo)
			if perr != nil {
				return perr
			}
			out, err = a.assistant.PlanAndAnswer(cmd.Context(), question, dr, askFlags, nil)
		case "tools":
			out, err = a.assistant.ChatWithTools(cmd.Context(), question)
		default:
			return fmt.Errorf("unknown mode %q", askMode)
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

// cliDateRange reads inclusive YYYY-MM-DD bounds.
func cliDateRange(from, to string) (models.DateRange, error) {
	var dr models.DateRange
	if from != "" {
		t, err := time.Parse(time.DateOnly, from)
		if err != nil {
			return dr, fmt.Errorf("--from: %w", err)
		}
		dr.From = t
	}
	if to != "" {
		t, err := time.Parse(time.DateOnly, to)
		if err != nil {
			return dr, fmt.Errorf("--to: %w", err)
		}
		dr.To = t.AddDate(0, 0, 1)
	}
	if !dr.From.IsZero() && !dr.To.IsZero() && !dr.From.Before(dr.To) {
		return dr, fmt.Errorf("--from must not be after --to")
	}
	return dr, nil
}

func init() {
	f := askCmd.Flags()
	f.StringVarP(&askMode, "mode", "m", "sql", "sql, plan or tools")
	f.StringVar(&askFrom, "from", "", "first day of the range (plan mode)")
	f.StringVar(&askTo, "to", "", "last day of the range (plan mode)")
	f.BoolVar(&askFlags.IncludeInventory, "inventory", false, "add the inventory summary (plan mode)")
	f.BoolVar(&askFlags.IncludeCategoryShare, "categories", false, "add category revenue share (plan mode)")
	f.BoolVar(&askFlags.IncludeTopSellers, "top-sellers", false, "add top sellers (plan mode)")
	f.BoolVar(&askFlags.IncludeConfirmedDemand, "confirmed-demand", false, "count Confirmed orders in top sellers (plan mode)")
	rootCmd.AddCommand(askCmd)
}
