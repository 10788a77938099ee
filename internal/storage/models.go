package storage

// Chunk is the unit of persistence: a bounded slice of a source document's
// text together with its embedding vector and provenance metadata. Chunks are
// immutable once written.
type Chunk struct {
	ID         string    // UUID
	Content    string    // Chunk text
	Source     string    // Original upload filename
	PageNumber int       // 1-based page the chunk came from
	Embedding  []float32 // VectorDimension-sized vector
}

// ScoredChunk is a Chunk returned from similarity search with its cosine
// similarity score.
type ScoredChunk struct {
	Chunk
	Score float64
}

// VectorDimension is the embedding size the collection is created with.
// Matches embedding.Dimension (text-embedding-3-small).
const VectorDimension = 1536
