// Package responder answers user questions by grounding a generation backend
// in chunks retrieved from the vector index.
package responder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bull/pdfchat/internal/llm"
	"github.com/bull/pdfchat/internal/storage"
)

// ErrEmptyQuery is returned for blank queries before any side effect occurs.
var ErrEmptyQuery = errors.New("query must not be empty")

// DefaultTopK is the number of chunks retrieved per query when not configured.
const DefaultTopK = 3

// QueryEmbedder embeds query text. Must be the same embedder instance used at
// ingestion: a mismatched embedding space silently degrades retrieval.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// VectorSearcher is the read side of the vector index.
type VectorSearcher interface {
	Search(ctx context.Context, embedding []float32, k int) ([]*storage.ScoredChunk, error)
}

// Answer is the responder's result: the generated message plus the chunks it
// was grounded in, for citation display.
type Answer struct {
	Message string
	Sources []*storage.ScoredChunk
}

// Responder wires the query path: embed, retrieve top-k, assemble a grounding
// prompt, forward to the generation backend. It never mutates stored chunks.
type Responder struct {
	embedder QueryEmbedder
	index    VectorSearcher
	backend  llm.Completer
	topK     int
	logger   *slog.Logger
}

// New creates a Responder. Non-positive topK selects DefaultTopK.
func New(embedder QueryEmbedder, index VectorSearcher, backend llm.Completer, topK int, logger *slog.Logger) *Responder {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{
		embedder: embedder,
		index:    index,
		backend:  backend,
		topK:     topK,
		logger:   logger,
	}
}

// Answer answers the query from indexed content. With zero retrieved chunks
// the prompt is still sent; the instructions make the backend state that no
// information is available.
func (r *Responder) Answer(ctx context.Context, query string, history []llm.Turn) (*Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	embedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	chunks, err := r.index.Search(ctx, embedding, r.topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	r.logger.Debug("retrieved chunks", "query", query, "count", len(chunks))

	prompt := buildPrompt(query, chunks)

	message, err := r.backend.Complete(ctx, prompt, history)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	if chunks == nil {
		chunks = []*storage.ScoredChunk{}
	}
	return &Answer{Message: message, Sources: chunks}, nil
}

// buildPrompt assembles the grounding prompt. Chunk texts go in verbatim,
// labeled with their ordinal and provenance; truncation is a display concern,
// never applied here.
func buildPrompt(query string, chunks []*storage.ScoredChunk) string {
	var context strings.Builder
	for i, chunk := range chunks {
		fmt.Fprintf(&context, "[%d] (%s, page %d)\n%s\n\n",
			i+1, chunk.Source, chunk.PageNumber, chunk.Content)
	}

	return fmt.Sprintf(`You are a helpful assistant answering questions about uploaded documents.
Answer the question using ONLY the context below. If the context does not
contain the information needed, say explicitly that the documents do not
contain relevant information. Do not use outside knowledge.

Context:
%s
Question: %s`, context.String(), query)
}
