package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nkoval/tradefeed/internal/model"
	"github.com/nkoval/tradefeed/internal/store"
)

var reviewLimit int

// reviewCmd represents the review command
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Show recent extraction audit rows",
	Long: `Review lists the most recent extraction attempts and their outcomes.

Batches held back by the confidence gate show up here with status
manual_review; their source URLs point at the original documents so an
operator can verify them by hand.

Example:
  tradefeed review
  tradefeed review --limit 50`,
	RunE: runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	reviewCmd.Flags().IntVar(&reviewLimit, "limit", 20, "number of audit rows to show")
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logs := store.NewLogRepository(db, newLogger())
	entries, err := logs.Recent(ctx, reviewLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No extraction attempts recorded yet.")
		return nil
	}

	pending, err := logs.CountByStatus(ctx, model.LogManualReview)
	if err != nil {
		return err
	}

	for _, e := range entries {
		line := fmt.Sprintf("%s  %-13s  %-12s  conf=%.2f  records=%d/%d  %s",
			e.CreatedAt.Format("2006-01-02 15:04"), e.Status, e.SourceType,
			e.Confidence, e.ExtractedCount, e.RawRecordCount, e.SourceURL)
		if e.ErrorMessage != "" {
			line += "  (" + e.ErrorMessage + ")"
		}
		fmt.Println(line)
	}
	fmt.Printf("\n%d batch(es) awaiting manual review in total\n", pending)
	return nil
}
