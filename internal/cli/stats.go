package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"xpurge/internal/analytics"
	"xpurge/internal/cmdlog"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show deletions per day",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("stats", func() error { return runStats(cmd) })
		},
	}
	cmd.Flags().Int("days", 7, "Days to look back")
	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command) error {
	days, _ := cmd.Flags().GetInt("days")
	if days <= 0 {
		days = 7
	}
	db, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	end := time.Now().UTC()
	start := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))
	events, err := db.LoadDeletionEvents(cmd.Context(), userID, start, end.Add(time.Second))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	totals := analytics.SortedDays(analytics.DailyDeletions(events))
	if len(totals) == 0 {
		fmt.Fprintf(out, "No deletions in the last %d days.\n", days)
		return nil
	}
	fmt.Fprintf(out, "%-10s  %7s  %7s  %6s\n", "day", "batches", "deleted", "failed")
	sum := 0
	for _, d := range totals {
		sum += d.Deleted
		fmt.Fprintf(out, "%-10s  %7d  %7d  %6d\n", d.Day.Format("2006-01-02"), d.Batches, d.Deleted, d.Failed)
	}
	fmt.Fprintf(out, "total deleted %d, failure rate %.1f%%\n", sum, 100*analytics.FailureRate(totals))
	return nil
}
