// Package textsplit splits extracted document text into bounded, overlapping
// chunks for embedding. Splitting is delegated to langchaingo's recursive
// character splitter; the overlap keeps context that straddles a boundary
// present in both neighboring chunks.
package textsplit

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the number of characters shared between
	// consecutive chunks.
	DefaultChunkOverlap = 200
)

// Splitter chunks text with a fixed target size and overlap. Splitting the
// same text with the same parameters always yields the same chunks.
type Splitter struct {
	inner textsplitter.RecursiveCharacter
}

// New creates a splitter. Non-positive parameters fall back to the defaults.
func New(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	return &Splitter{
		inner: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
	}
}

// Split returns the ordered chunks of text. Blank input yields no chunks.
func (s *Splitter) Split(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return s.inner.SplitText(text)
}
