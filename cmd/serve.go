package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendease/internal/cache"
	"github.com/kozaktomas/attendease/internal/config"
	"github.com/kozaktomas/attendease/internal/embedding"
	"github.com/kozaktomas/attendease/internal/facematch"
	"github.com/kozaktomas/attendease/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance API server",
	Long: `Start the Attendease API server.
The server exposes the recognition endpoint used by scanner kiosks,
face enrollment, attendance queries, leave management and CSV exports.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// buildCandidateIndex loads all stored embeddings into the in-memory
// candidate index. Recognition falls back to brute force when this fails.
func buildCandidateIndex(ctx context.Context, stores web.Stores) *facematch.CandidateIndex {
	all, err := stores.Embeddings.All(ctx)
	if err != nil {
		fmt.Printf("Warning: failed to load embeddings for the candidate index: %v\n", err)
		fmt.Println("Recognition will use exact brute-force matching")
		return nil
	}
	index := facematch.NewCandidateIndex()
	index.Build(all)
	fmt.Printf("Candidate index built with %d embeddings\n", index.Len())
	return index
}

func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	fmt.Println("Connecting to PostgreSQL database...")
	pool, stores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	var index *facematch.CandidateIndex
	if cfg.Matcher.UseIndex {
		index = buildCandidateIndex(ctx, stores)
	}

	summaryCache := cache.New(cfg.Redis.Addr, cfg.Redis.SummaryTTL)
	if summaryCache != nil {
		fmt.Println("Summary cache enabled (Redis)")
		defer summaryCache.Close()
	}

	extractor := embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.Model, cfg.Embedding.Timeout)
	port, host := resolveServeHostPort(cmd)

	server := web.NewServer(cfg, port, host, stores, extractor, summaryCache, index, pool)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Attendease API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
