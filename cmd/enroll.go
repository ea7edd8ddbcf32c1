package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendease/internal/config"
	"github.com/kozaktomas/attendease/internal/database"
	"github.com/kozaktomas/attendease/internal/embedding"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <image>...",
	Short: "Enroll face images for a user",
	Long: `Extract face embeddings from one or more image files and store
them for the given user. Each image should contain exactly one face;
when several are detected the highest scoring one is used.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().Int64("user", 0, "User ID to enroll faces for (required)")
	enrollCmd.MarkFlagRequired("user")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	pool, stores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	userID := mustGetInt64(cmd, "user")
	user, err := stores.Users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("user %d not found: %w", userID, err)
	}

	extractor := embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.Model, cfg.Embedding.Timeout)

	enrolled := 0
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("could not read %s: %w", path, err)
		}
		prepared, err := embedding.PrepareImage(data)
		if err != nil {
			return fmt.Errorf("could not decode %s: %w", path, err)
		}

		result, err := extractor.ExtractFace(ctx, prepared)
		if err != nil {
			fmt.Printf("Skipping %s: %v\n", path, err)
			continue
		}

		emb := &database.StoredEmbedding{
			UserID:    user.ID,
			ImageRef:  filepath.Base(path),
			Embedding: result.Embedding,
			Model:     result.Model,
			Dim:       result.Dim,
		}
		if err := stores.Embeddings.Add(ctx, emb); err != nil {
			return fmt.Errorf("could not store embedding for %s: %w", path, err)
		}
		enrolled++
		fmt.Printf("Enrolled %s (score %.2f)\n", path, result.DetScore)
	}

	if enrolled > 0 {
		stored, err := stores.Embeddings.AllForUser(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("could not count embeddings: %w", err)
		}
		if err := stores.Users.SetFaceData(ctx, user.ID, true, len(stored)); err != nil {
			return fmt.Errorf("could not update face data: %w", err)
		}
	}

	fmt.Printf("\nEnrolled %d of %d images for %s\n", enrolled, len(args), user.Username)
	return nil
}
