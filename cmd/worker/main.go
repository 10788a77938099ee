// Package main provides the document-processing worker CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/pdfchat/internal/config"
	"github.com/bull/pdfchat/internal/embedding"
	"github.com/bull/pdfchat/internal/queue"
	"github.com/bull/pdfchat/internal/storage"
	"github.com/bull/pdfchat/internal/textsplit"
	"github.com/bull/pdfchat/internal/worker"
)

var rootCmd = &cobra.Command{
	Use:   "pdfchat-worker",
	Short: "Background document processor",
	Long:  "Consumes upload jobs from the ingestion queue and indexes documents into Qdrant",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Consume upload jobs until interrupted",
	Long: `Runs the worker pool against the ingestion queue.

Each job loads the uploaded file, splits its text into overlapping chunks,
generates embeddings and writes the chunks into Qdrant.

Environment variables:
  NATS_URL            NATS broker URL (default: nats://localhost:4222)
  QDRANT_HOST         Qdrant hostname (default: localhost)
  QDRANT_PORT         Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION   Collection name (default: documents)
  OPENAI_API_KEY      OpenAI API key for embeddings (required)
  WORKER_CONCURRENCY  Parallel job limit (default: 5)
  CHUNK_SIZE          Target chunk size in characters (default: 1000)
  CHUNK_OVERLAP       Overlap between chunks (default: 200)
  WATCH_UPLOADS       Also enqueue files dropped into UPLOAD_DIR (default: false)`,
	RunE: runWorker,
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Drop and recreate the chunk collection",
	RunE:  runPurge,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(purgeCmd)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg := config.Load()
	logger := slog.Default()

	store, err := storage.NewStore(cfg.QdrantHost, cfg.QdrantPort, cfg.Collection)
	if err != nil {
		return fmt.Errorf("connect to Qdrant: %w", err)
	}
	defer store.Close()

	if err := store.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	q, err := queue.Connect(ctx, cfg.NATSURL)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer q.Close()

	embeddingClient, err := embedding.NewClient()
	if err != nil {
		return fmt.Errorf("create embedding client: %w", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient, 0)

	splitter := textsplit.New(cfg.ChunkSize, cfg.ChunkOverlap)
	processor := worker.NewProcessor(nil, splitter, embedder, store, logger)
	pool := worker.NewPool(q, processor, cfg.Concurrency, logger)

	if cfg.WatchUploads {
		go func() {
			if err := worker.WatchUploads(ctx, cfg.UploadDir, q, logger); err != nil {
				logger.Error("upload watcher stopped", "error", err)
			}
		}()
	}

	return pool.Run(ctx)
}

func runPurge(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	store, err := storage.NewStore(cfg.QdrantHost, cfg.QdrantPort, cfg.Collection)
	if err != nil {
		return fmt.Errorf("connect to Qdrant: %w", err)
	}
	defer store.Close()

	if err := store.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	if err := store.DropCollection(ctx); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}

	fmt.Printf("Collection %q cleared\n", cfg.Collection)
	return nil
}
