package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendease/internal/config"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export attendance data to CSV files",
	Long: `Write a user's attendance history and monthly summaries as CSV
files to the current directory, or to the paths given by --days-out and
--summary-out.`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().Int64("user", 0, "User ID (required)")
	exportCmd.Flags().String("days-out", "", "Output file for attendance days (default attendance-<user>.csv)")
	exportCmd.Flags().String("summary-out", "", "Output file for monthly summaries (default summary-<user>.csv)")
	_ = exportCmd.MarkFlagRequired("user")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	userID := mustGetInt64(cmd, "user")
	daysOut := mustGetString(cmd, "days-out")
	summaryOut := mustGetString(cmd, "summary-out")
	if daysOut == "" {
		daysOut = fmt.Sprintf("attendance-%d.csv", userID)
	}
	if summaryOut == "" {
		summaryOut = fmt.Sprintf("summary-%d.csv", userID)
	}

	pool, stores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if _, err := stores.Users.GetByID(ctx, userID); err != nil {
		return fmt.Errorf("could not load user %d: %w", userID, err)
	}

	days, err := stores.Attendance.ListAll(ctx, userID)
	if err != nil {
		return fmt.Errorf("could not load attendance: %w", err)
	}
	if err := writeCSV(daysOut, []string{"Date", "Check In", "Check Out", "Status"}, func(w *csv.Writer) error {
		for _, d := range days {
			checkIn, checkOut := "", ""
			if d.CheckIn != nil {
				checkIn = d.CheckIn.UTC().Format("15:04:05")
			}
			if d.CheckOut != nil {
				checkOut = d.CheckOut.UTC().Format("15:04:05")
			}
			if err := w.Write([]string{d.Date.Format("2006-01-02"), checkIn, checkOut, string(d.Status)}); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}
	fmt.Printf("Wrote %d attendance days to %s\n", len(days), daysOut)

	summaries, err := stores.Summaries.ListForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("could not load summaries: %w", err)
	}
	header := []string{"Month", "Year", "Total Days", "Present", "Absent", "Leave", "Holiday", "Percentage"}
	if err := writeCSV(summaryOut, header, func(w *csv.Writer) error {
		for _, s := range summaries {
			row := []string{
				strconv.Itoa(s.Month),
				strconv.Itoa(s.Year),
				strconv.Itoa(s.TotalDays),
				strconv.Itoa(s.PresentDays),
				strconv.Itoa(s.AbsentDays),
				strconv.Itoa(s.LeaveDays),
				strconv.Itoa(s.HolidayDays),
				strconv.FormatFloat(s.Percentage, 'f', 2, 64) + "%",
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}
	fmt.Printf("Wrote %d monthly summaries to %s\n", len(summaries), summaryOut)
	return nil
}

func writeCSV(path string, header []string, rows func(*csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := rows(w); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
