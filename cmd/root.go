package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "attendease",
	Short: "Face recognition attendance tracking for campus environments",
	Long: `Attendease records student and faculty attendance through face
recognition. A camera frame is matched against enrolled face embeddings
and the resulting check-in or check-out is written to PostgreSQL.
Monthly summaries are derived from the per-day records.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
