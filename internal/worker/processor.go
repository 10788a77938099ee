// Package worker consumes upload jobs and turns files into embedded chunks
// in the vector index.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/bull/pdfchat/internal/embedding"
	"github.com/bull/pdfchat/internal/extract"
	"github.com/bull/pdfchat/internal/queue"
	"github.com/bull/pdfchat/internal/storage"
	"github.com/bull/pdfchat/internal/textsplit"
)

// TextEmbedder embeds a batch of chunk texts, preserving order.
type TextEmbedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkUpserter is the write side of the vector index.
type ChunkUpserter interface {
	UpsertChunks(ctx context.Context, chunks []*storage.Chunk) error
}

// PageLoader loads per-page text from a file. extract.Pages in production.
type PageLoader func(path string) ([]extract.Page, error)

// Processor runs the ingestion pipeline for one job: load pages, split each
// page into overlapping chunks, embed all chunk texts in one batch, upsert
// everything into the vector index. Processors hold no per-job state and can
// run concurrently; the vector index is the only shared resource.
type Processor struct {
	load     PageLoader
	splitter *textsplit.Splitter
	embedder TextEmbedder
	store    ChunkUpserter
	logger   *slog.Logger
}

// NewProcessor creates a Processor. A nil loader defaults to extract.Pages.
func NewProcessor(load PageLoader, splitter *textsplit.Splitter, embedder TextEmbedder, store ChunkUpserter, logger *slog.Logger) *Processor {
	if load == nil {
		load = extract.Pages
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		load:     load,
		splitter: splitter,
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// Process ingests one job and returns the number of chunks written.
//
// The upsert is one logical batch but is not atomic: a failure partway
// through leaves earlier points written and is not compensated here. Chunk
// IDs are fresh per attempt, so a redelivered job writes duplicate chunks.
func (p *Processor) Process(ctx context.Context, job queue.UploadJob) (int, error) {
	pages, err := p.load(job.StoragePath)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", job.StoragePath, err)
	}
	p.logger.Debug("loaded document", "file", job.Filename, "pages", len(pages))

	// Split per page so each chunk keeps its page number.
	var chunks []*storage.Chunk
	var texts []string
	for _, page := range pages {
		pieces, err := p.splitter.Split(page.Text)
		if err != nil {
			return 0, fmt.Errorf("split page %d: %w", page.Number, err)
		}
		for _, piece := range pieces {
			chunks = append(chunks, &storage.Chunk{
				ID:         uuid.New().String(),
				Content:    piece,
				Source:     job.Filename,
				PageNumber: page.Number,
			})
			texts = append(texts, piece)
		}
	}

	if len(chunks) == 0 {
		p.logger.Warn("document produced no chunks", "file", job.Filename)
		return 0, nil
	}

	embeddings, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}

	if err := p.store.UpsertChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}

	p.logger.Info("indexed document", "file", job.Filename, "pages", len(pages), "chunks", len(chunks))
	return len(chunks), nil
}

// Classify maps a processing error to its queue disposition. Only quota
// pressure is handed back for redelivery; everything else fails the job, and
// any retry policy beyond that belongs to the broker's configuration.
func Classify(err error) queue.Outcome {
	switch {
	case err == nil:
		return queue.Done
	case errors.Is(err, embedding.ErrQuotaExceeded):
		return queue.Retry
	case errors.Is(err, os.ErrNotExist),
		errors.Is(err, extract.ErrUnsupportedType),
		errors.Is(err, embedding.ErrAuth):
		return queue.Fail
	default:
		return queue.Fail
	}
}
