// Package main provides the HTTP API server: uploads, chat and health.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bull/pdfchat/internal/config"
	"github.com/bull/pdfchat/internal/embedding"
	"github.com/bull/pdfchat/internal/httpapi"
	"github.com/bull/pdfchat/internal/llm"
	"github.com/bull/pdfchat/internal/queue"
	"github.com/bull/pdfchat/internal/responder"
	"github.com/bull/pdfchat/internal/storage"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg := config.Load()

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatalf("failed to create upload directory: %v", err)
	}

	// Vector index
	store, err := storage.NewStore(cfg.QdrantHost, cfg.QdrantPort, cfg.Collection)
	if err != nil {
		log.Fatalf("failed to connect to Qdrant: %v", err)
	}
	defer store.Close()

	if err := store.EnsureCollection(ctx); err != nil {
		log.Fatalf("failed to ensure collection: %v", err)
	}

	// Ingestion queue
	q, err := queue.Connect(ctx, cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}
	defer q.Close()

	// Embeddings (shared by the query path with the worker's ingestion path)
	embeddingClient, err := embedding.NewClient()
	if err != nil {
		log.Fatalf("failed to create embedding client: %v", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient, 0)

	// Generation backend
	backend, err := newBackend(ctx, cfg, embeddingClient)
	if err != nil {
		log.Fatalf("failed to create generation backend: %v", err)
	}
	log.Printf("Using generation backend: %s", backend.Name())

	rag := responder.New(embedder, store, backend, cfg.RetrievalK, slog.Default())

	server := httpapi.NewServer(q, rag, store, backend, cfg.UploadDir, slog.Default())

	addr := "0.0.0.0:" + cfg.Port
	log.Printf("Starting API server on %s", addr)
	if err := server.Router().Run(addr); err != nil {
		log.Fatalf("HTTP server error: %v", err)
	}
}

// newBackend selects the generation backend from configuration. All variants
// satisfy llm.Completer; nothing else in the system changes with the choice.
func newBackend(ctx context.Context, cfg *config.Config, embeddingClient *embedding.Client) (llm.Completer, error) {
	switch cfg.Backend {
	case "ollama":
		return llm.NewOllama(cfg.OllamaURL, cfg.OllamaModel, nil), nil
	case "gemini":
		return llm.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	default:
		return llm.NewOpenAIChat(embeddingClient.Client(), cfg.OpenAIModel), nil
	}
}
