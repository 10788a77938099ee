// Package embedding generates embedding vectors for chunk and query text.
//
// The same Embedder instance serves both the ingestion and the query path.
// Retrieval quality depends on both paths sharing one embedding space, so the
// model name is fixed here rather than configured per call site.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

const (
	// Model is the OpenAI embedding model used on both paths.
	Model = "text-embedding-3-small"

	// Dimension is the vector size produced by Model. Must match the
	// vector store's collection configuration.
	Dimension = 1536

	// DefaultBatchSize balances requests-per-minute vs tokens-per-minute
	// rate limits for batch ingestion.
	DefaultBatchSize = 500
)

// ErrQuotaExceeded marks rate-limit failures that are worth retrying later.
var ErrQuotaExceeded = errors.New("embedding quota exceeded")

// ErrAuth marks credential failures; retrying cannot help.
var ErrAuth = errors.New("embedding authentication failed")

// Embedder batches embedding requests and retries rate-limit errors with
// exponential backoff. Auth errors fail immediately.
type Embedder struct {
	client    *Client
	batchSize int
}

// NewEmbedder creates an Embedder. A non-positive batchSize selects
// DefaultBatchSize.
func NewEmbedder(client *Client, batchSize int) *Embedder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Embedder{
		client:    client,
		batchSize: batchSize,
	}
}

// EmbedTexts generates one embedding per input text, preserving order.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	var all [][]float32

	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))
		batch := texts[i:end]

		embeddings, err := e.embedBatchWithRetry(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		all = append(all, embeddings...)
	}

	return all, nil
}

// EmbedQuery generates the embedding for a single query string.
func (e *Embedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := e.embedBatchWithRetry(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

func (e *Embedder) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var embeddings [][]float32

	operation := func() error {
		resp, err := e.client.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model: Model,
		})
		if err != nil {
			if classified := Classify(err); classified != nil {
				err = classified
			}
			if errors.Is(err, ErrQuotaExceeded) {
				return err // retried with backoff
			}
			return backoff.Permanent(err)
		}

		embeddings = make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			embeddings[i] = toFloat32(data.Embedding)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	err := backoff.Retry(operation, backoff.WithContext(b, ctx))
	return embeddings, err
}

// Classify maps an OpenAI API error to the package's typed errors. Returns
// nil for errors it does not recognize, which callers treat as fatal.
func Classify(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return nil
	}
	switch apiErr.StatusCode {
	case 429:
		return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	case 401, 403:
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}
	return nil
}

// toFloat32 converts the API's float64 vectors to the storage layer's float32.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
