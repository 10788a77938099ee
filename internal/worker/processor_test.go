package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/pdfchat/internal/embedding"
	"github.com/bull/pdfchat/internal/extract"
	"github.com/bull/pdfchat/internal/queue"
	"github.com/bull/pdfchat/internal/storage"
	"github.com/bull/pdfchat/internal/textsplit"
)

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

type fakeStore struct {
	err  error
	got  []*storage.Chunk
	sets int
}

func (f *fakeStore) UpsertChunks(_ context.Context, chunks []*storage.Chunk) error {
	f.sets++
	f.got = append(f.got, chunks...)
	return f.err
}

func pagesLoader(pages []extract.Page, err error) PageLoader {
	return func(string) ([]extract.Page, error) { return pages, err }
}

func threePages() []extract.Page {
	long := strings.Repeat("The third page repeats itself to force a split. ", 30)
	return []extract.Page{
		{Number: 1, Text: "Introduction to the document."},
		{Number: 2, Text: "The middle of the document."},
		{Number: 3, Text: long},
	}
}

func TestProcess_ChunksCarryPageNumbers(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{}
	p := NewProcessor(pagesLoader(threePages(), nil), textsplit.New(200, 40), embedder, store, nil)

	count, err := p.Process(context.Background(), queue.UploadJob{
		ID: "job-1", Filename: "doc.pdf", StoragePath: "/tmp/doc.pdf",
	})
	require.NoError(t, err)
	assert.Greater(t, count, 0)
	assert.Len(t, store.got, count)

	for _, chunk := range store.got {
		assert.Equal(t, "doc.pdf", chunk.Source)
		assert.GreaterOrEqual(t, chunk.PageNumber, 1)
		assert.LessOrEqual(t, chunk.PageNumber, 3)
		assert.NotEmpty(t, chunk.ID)
		assert.NotEmpty(t, chunk.Content)
		assert.NotEmpty(t, chunk.Embedding)
	}

	// Long page 3 must yield more than one chunk.
	page3 := 0
	for _, chunk := range store.got {
		if chunk.PageNumber == 3 {
			page3++
		}
	}
	assert.Greater(t, page3, 1)

	// All chunks for a job go through one embedding batch and one upsert batch.
	assert.Equal(t, 1, embedder.calls)
	assert.Equal(t, 1, store.sets)
}

func TestProcess_MissingFile(t *testing.T) {
	p := NewProcessor(pagesLoader(nil, fmt.Errorf("open: %w", os.ErrNotExist)),
		textsplit.New(0, 0), &fakeEmbedder{}, &fakeStore{}, nil)

	_, err := p.Process(context.Background(), queue.UploadJob{Filename: "gone.pdf", StoragePath: "/tmp/gone.pdf"})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, queue.Fail, Classify(err))
}

func TestProcess_EmptyDocument(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{}
	p := NewProcessor(pagesLoader([]extract.Page{{Number: 1, Text: "   "}}, nil),
		textsplit.New(0, 0), embedder, store, nil)

	count, err := p.Process(context.Background(), queue.UploadJob{Filename: "blank.pdf"})
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, embedder.calls)
	assert.Zero(t, store.sets)
}

func TestProcess_EmbeddingFailureReachesClassifier(t *testing.T) {
	embedder := &fakeEmbedder{err: fmt.Errorf("batch 0-1: %w", embedding.ErrQuotaExceeded)}
	p := NewProcessor(pagesLoader(threePages(), nil), textsplit.New(0, 0), embedder, &fakeStore{}, nil)

	_, err := p.Process(context.Background(), queue.UploadJob{Filename: "doc.pdf"})
	require.Error(t, err)
	assert.Equal(t, queue.Retry, Classify(err))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want queue.Outcome
	}{
		{"nil", nil, queue.Done},
		{"quota", embedding.ErrQuotaExceeded, queue.Retry},
		{"auth", embedding.ErrAuth, queue.Fail},
		{"missing file", os.ErrNotExist, queue.Fail},
		{"unsupported type", extract.ErrUnsupportedType, queue.Fail},
		{"unknown", errors.New("boom"), queue.Fail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
