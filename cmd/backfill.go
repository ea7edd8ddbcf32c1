package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendease/internal/attendance"
	"github.com/kozaktomas/attendease/internal/config"
	"github.com/kozaktomas/attendease/internal/database"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Fill in missing attendance days",
	Long: `Mark every day without a scan as Absent, Holiday or Leave, for one
user (--user) or for all approved users. Days already recorded are left
alone, so the command can run repeatedly, e.g. from a nightly cron.`,
	RunE: runBackfill,
}

func init() {
	rootCmd.AddCommand(backfillCmd)

	backfillCmd.Flags().Int64("user", 0, "Backfill a single user ID (default: all approved users)")
	backfillCmd.Flags().String("from", "", "Start date YYYY-MM-DD (default: user registration date)")
}

func runBackfill(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	userID := mustGetInt64(cmd, "user")
	fromArg := mustGetString(cmd, "from")

	var from time.Time
	if fromArg != "" {
		var err error
		from, err = time.Parse("2006-01-02", fromArg)
		if err != nil {
			return fmt.Errorf("invalid --from date: %w", err)
		}
	}

	pool, stores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	var users []database.User
	if userID != 0 {
		u, err := stores.Users.GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("could not load user %d: %w", userID, err)
		}
		users = []database.User{*u}
	} else {
		all, err := stores.Users.List(ctx)
		if err != nil {
			return fmt.Errorf("could not list users: %w", err)
		}
		for _, u := range all {
			if u.Approved {
				users = append(users, u)
			}
		}
	}

	if len(users) == 0 {
		fmt.Println("No users to backfill")
		return nil
	}

	bar := progressbar.NewOptions(len(users),
		progressbar.OptionSetDescription("Backfilling"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("users"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	backfiller := attendance.NewBackfiller(stores.Attendance, stores.Leave)
	// today stays open for scans; backfill covers days strictly before it
	today := time.Now().UTC().Truncate(24 * time.Hour)

	var created, failed int
	for _, u := range users {
		start := from
		if start.IsZero() {
			start = u.CreatedAt.UTC().Truncate(24 * time.Hour)
		}
		n, err := backfiller.AutoMarkAbsent(ctx, u.ID, start, today)
		if err != nil {
			failed++
			fmt.Printf("\nuser %d (%s): %v\n", u.ID, u.Username, err)
		} else {
			created += n
		}
		_ = bar.Add(1)
	}

	fmt.Printf("\n\nBackfill complete: %d days created across %d users", created, len(users)-failed)
	if failed > 0 {
		fmt.Printf(", %d users failed", failed)
	}
	fmt.Println()
	return nil
}
