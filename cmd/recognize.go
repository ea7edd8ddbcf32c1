package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendease/internal/attendance"
	"github.com/kozaktomas/attendease/internal/config"
	"github.com/kozaktomas/attendease/internal/embedding"
	"github.com/kozaktomas/attendease/internal/facematch"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Match a face image and record a scan",
	Long: `Match an image file against all enrolled faces. With --record
the matched user also gets a check-in or check-out stored, exactly as a
scanner kiosk would do through the API.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().String("record", "", "Record a scan for the match: check_in or check_out")
	recognizeCmd.Flags().Bool("json", false, "Output the match as JSON")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	record := mustGetString(cmd, "record")
	jsonOutput := mustGetBool(cmd, "json")
	action := attendance.ScanAction(record)
	if record != "" && action != attendance.ActionCheckIn && action != attendance.ActionCheckOut {
		return errors.New("--record must be check_in or check_out")
	}

	pool, stores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("could not read %s: %w", args[0], err)
	}
	prepared, err := embedding.PrepareImage(data)
	if err != nil {
		return fmt.Errorf("could not decode %s: %w", args[0], err)
	}

	extractor := embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.Model, cfg.Embedding.Timeout)
	result, err := extractor.ExtractFace(ctx, prepared)
	if err != nil {
		return fmt.Errorf("face extraction failed: %w", err)
	}

	candidates, err := stores.Embeddings.AllByUser(ctx)
	if err != nil {
		return fmt.Errorf("could not load enrolled faces: %w", err)
	}

	match := facematch.BestMatch(result.Embedding, candidates, cfg.Matcher.Threshold)
	if match == nil {
		if jsonOutput {
			fmt.Println(`{"matched": false}`)
		} else {
			fmt.Println("No match below the distance threshold")
		}
		return nil
	}

	user, err := stores.Users.GetByID(ctx, match.UserID)
	if err != nil {
		return fmt.Errorf("could not load matched user: %w", err)
	}
	if jsonOutput {
		out, err := json.Marshal(map[string]any{
			"matched":    true,
			"user_id":    user.ID,
			"username":   user.Username,
			"distance":   match.Distance,
			"confidence": match.Confidence,
		})
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else {
		fmt.Printf("Matched %s (user %d), distance %.4f, confidence %.1f%%\n",
			user.Username, user.ID, match.Distance, match.Confidence)
	}

	if record == "" {
		return nil
	}
	if !user.Approved {
		return fmt.Errorf("user %s is not approved for attendance", user.Username)
	}

	machine := attendance.NewMachine(stores.Attendance, cfg.Attendance.DayStartHour)
	scan, err := machine.RecordScan(ctx, user.ID, time.Now(), action)
	if err != nil {
		return fmt.Errorf("could not record scan: %w", err)
	}
	if scan.AlreadyDone {
		fmt.Printf("%s already recorded for %s\n", scan.Action, scan.Date.Format("2006-01-02"))
	} else {
		fmt.Printf("Recorded %s for %s, status %s\n", scan.Action, scan.Date.Format("2006-01-02"), scan.Status)
	}
	return nil
}
