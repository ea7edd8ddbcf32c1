package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendease/internal/attendance"
	"github.com/kozaktomas/attendease/internal/config"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Recompute and print a monthly attendance summary",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)

	summaryCmd.Flags().Int64("user", 0, "User ID (required)")
	summaryCmd.Flags().Int("month", 0, "Month 1-12 (default: current month)")
	summaryCmd.Flags().Int("year", 0, "Year (default: current year)")
	_ = summaryCmd.MarkFlagRequired("user")
}

func runSummary(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	userID := mustGetInt64(cmd, "user")
	month := mustGetInt(cmd, "month")
	year := mustGetInt(cmd, "year")

	now := time.Now().UTC()
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("invalid month %d", month)
	}

	pool, stores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	user, err := stores.Users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("could not load user %d: %w", userID, err)
	}

	aggregator := attendance.NewAggregator(stores.Attendance, stores.Leave, stores.Summaries)
	s, err := aggregator.Recompute(ctx, userID, month, year, now)
	if err != nil {
		return fmt.Errorf("could not compute summary: %w", err)
	}

	fmt.Printf("Attendance summary for %s, %d-%02d\n\n", user.Username, year, month)
	fmt.Printf("  Total days:   %d\n", s.TotalDays)
	fmt.Printf("  Present:      %d\n", s.PresentDays)
	fmt.Printf("  Absent:       %d\n", s.AbsentDays)
	fmt.Printf("  Leave:        %d\n", s.LeaveDays)
	fmt.Printf("  Holiday:      %d\n", s.HolidayDays)
	fmt.Printf("  Percentage:   %.2f%%\n", s.Percentage)
	return nil
}
