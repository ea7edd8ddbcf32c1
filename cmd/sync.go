package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendease/internal/config"
	"github.com/kozaktomas/attendease/internal/roster"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync users from the legacy campus directory",
	Long: `Import active members of the legacy MySQL campus directory into the
local user table, keyed by enrollment number. Existing users are updated,
new ones are created unapproved.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	if cfg.Roster.LegacyDSN == "" {
		return errors.New("LEGACY_ROSTER_DSN environment variable is required")
	}

	pool, stores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	directory, err := roster.OpenLegacy(cfg.Roster.LegacyDSN)
	if err != nil {
		return fmt.Errorf("could not connect to legacy directory: %w", err)
	}
	defer directory.Close()

	entries, err := directory.Entries(ctx)
	if err != nil {
		return fmt.Errorf("could not read legacy directory: %w", err)
	}
	fmt.Printf("Directory members to sync: %d\n\n", len(entries))

	bar := progressbar.NewOptions(len(entries),
		progressbar.OptionSetDescription("Syncing users"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("users"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var result roster.ImportResult
	for _, entry := range entries {
		r, err := roster.Import(ctx, stores.Users, []roster.Entry{entry})
		if err != nil {
			fmt.Printf("\n%s: %v\n", entry.EnrollmentNo, err)
		} else {
			result.Created += r.Created
			result.Updated += r.Updated
			result.Skipped += r.Skipped
		}
		_ = bar.Add(1)
	}

	fmt.Printf("\n\nSync complete: %d created, %d updated, %d skipped\n",
		result.Created, result.Updated, result.Skipped)
	return nil
}
