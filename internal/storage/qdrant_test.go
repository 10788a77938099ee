//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires a Qdrant instance on localhost:6334.
func newTestStore(t *testing.T) *Store {
	store, err := NewStore("localhost", 6334, "documents_test")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.EnsureCollection(context.Background()))
	require.NoError(t, store.DropCollection(context.Background()))
	return store
}

func makeEmbedding(seed float32) []float32 {
	v := make([]float32, VectorDimension)
	for i := range v {
		v[i] = seed
	}
	v[0] = 1 // non-degenerate direction
	return v
}

func TestUpsertSearch_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	embedding := makeEmbedding(0.1)
	chunk := &Chunk{
		ID:         uuid.New().String(),
		Content:    "the quarterly report covers revenue growth",
		Source:     "report.pdf",
		PageNumber: 2,
		Embedding:  embedding,
	}
	require.NoError(t, store.UpsertChunks(ctx, []*Chunk{chunk}))

	// Querying with the chunk's own embedding must return it at (or near)
	// maximum cosine similarity.
	results, err := store.Search(ctx, embedding, 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	top := results[0]
	assert.Equal(t, chunk.ID, top.ID)
	assert.Equal(t, "the quarterly report covers revenue growth", top.Content)
	assert.Equal(t, "report.pdf", top.Source)
	assert.Equal(t, 2, top.PageNumber)
	assert.InDelta(t, 1.0, top.Score, 0.001)
}

func TestUpsertChunks_DimensionMismatch(t *testing.T) {
	store := newTestStore(t)

	chunk := &Chunk{
		ID:        uuid.New().String(),
		Content:   "bad vector",
		Embedding: []float32{1, 2, 3},
	}
	err := store.UpsertChunks(context.Background(), []*Chunk{chunk})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSearch_DimensionMismatch(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Search(context.Background(), []float32{1, 2}, 3)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chunks := []*Chunk{
		{ID: uuid.New().String(), Content: "a", Source: "a.pdf", PageNumber: 1, Embedding: makeEmbedding(0.2)},
		{ID: uuid.New().String(), Content: "b", Source: "a.pdf", PageNumber: 1, Embedding: makeEmbedding(0.3)},
	}
	require.NoError(t, store.UpsertChunks(ctx, chunks))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}
