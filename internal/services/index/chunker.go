// Package index implements document chunking, the in-memory vector index,
// and the indexer that ties them to the embedding service and chunk storage.
package index

import (
	"fmt"

	"github.com/marketmoves/marketmoves/internal/common"
)

// Chunker splits document text into fixed-size overlapping windows.
// Windows are measured in runes so multi-byte text never splits inside a
// character, and consecutive chunks reconstruct the exact original text when
// the overlap is stripped.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker. Overlap must be smaller than size or the
// stride would be non-positive and chunking could never terminate.
func NewChunker(cfg common.ChunkingConfig) (*Chunker, error) {
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d",
			common.ErrInvalidConfiguration, cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be in [0, %d)",
			common.ErrInvalidConfiguration, cfg.ChunkOverlap, cfg.ChunkSize)
	}
	return &Chunker{size: cfg.ChunkSize, overlap: cfg.ChunkOverlap}, nil
}

// Chunk splits text into overlapping rune windows. Empty text yields no
// chunks. The final chunk may be shorter than the window size; it is never
// padded.
func (c *Chunker) Chunk(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	stride := c.size - c.overlap

	var chunks []string
	for start := 0; start < len(runes); start += stride {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// Reassemble reverses Chunk: dropping each subsequent chunk's leading overlap
// reconstructs the original text exactly.
func (c *Chunker) Reassemble(chunks []string) string {
	if len(chunks) == 0 {
		return ""
	}

	runes := []rune(chunks[0])
	for _, chunk := range chunks[1:] {
		r := []rune(chunk)
		if len(r) > c.overlap {
			runes = append(runes, r[c.overlap:]...)
		}
	}
	return string(runes)
}
