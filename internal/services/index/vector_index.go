package index

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/marketmoves/marketmoves/internal/common"
	"github.com/marketmoves/marketmoves/internal/models"
)

// VectorIndex is an in-memory brute-force cosine similarity index over chunk
// embeddings. The corpus is small enough (thousands of chunks) that an exact
// linear scan beats the operational cost of an approximate index. Safe for
// concurrent use; writes replace single chunks or whole documents under the
// write lock.
type VectorIndex struct {
	mu        sync.RWMutex
	dimension int

	// chunks grouped by document so reindex and delete swap whole sets
	byDocument map[string][]*models.DocumentChunk
}

// NewVectorIndex creates an index for vectors of the given dimension
func NewVectorIndex(dimension int) (*VectorIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: embedding dimension must be positive, got %d",
			common.ErrInvalidConfiguration, dimension)
	}
	return &VectorIndex{
		dimension:  dimension,
		byDocument: make(map[string][]*models.DocumentChunk),
	}, nil
}

// Dimension returns the fixed vector dimension
func (v *VectorIndex) Dimension() int {
	return v.dimension
}

// PutDocument atomically replaces the document's chunks in the index.
// Every embedding must match the index dimension; on mismatch nothing is
// changed and ErrDimensionMismatch is returned.
func (v *VectorIndex) PutDocument(documentID string, chunks []*models.DocumentChunk) error {
	for _, chunk := range chunks {
		if len(chunk.Embedding) != v.dimension {
			return fmt.Errorf("%w: chunk %s has dimension %d, index expects %d",
				common.ErrDimensionMismatch, chunk.ID, len(chunk.Embedding), v.dimension)
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if len(chunks) == 0 {
		delete(v.byDocument, documentID)
	} else {
		v.byDocument[documentID] = chunks
	}
	return nil
}

// Upsert inserts a single chunk or, when its ID is already indexed, replaces
// that chunk's vector and text in place. The replacement happens under the
// write lock, so a concurrent Search observes either the old vector or the
// new one, never a partial state.
func (v *VectorIndex) Upsert(chunk *models.DocumentChunk) error {
	if len(chunk.Embedding) != v.dimension {
		return fmt.Errorf("%w: chunk %s has dimension %d, index expects %d",
			common.ErrDimensionMismatch, chunk.ID, len(chunk.Embedding), v.dimension)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	chunks := v.byDocument[chunk.DocumentID]
	for i, existing := range chunks {
		if existing.ID == chunk.ID {
			chunks[i] = chunk
			return nil
		}
	}
	v.byDocument[chunk.DocumentID] = append(chunks, chunk)
	return nil
}

// DeleteDocument removes the document's chunks from the index
func (v *VectorIndex) DeleteDocument(documentID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.byDocument, documentID)
}

// Size returns the number of indexed chunks
func (v *VectorIndex) Size() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	n := 0
	for _, chunks := range v.byDocument {
		n += len(chunks)
	}
	return n
}

// Search returns the top k chunks by cosine similarity to the query vector,
// descending, with ties broken by chunk ID for determinism. A ticker filter
// restricts the scan to that entity's chunks; empty means all. Fewer than k
// matches returns what exists, never an error.
func (v *VectorIndex) Search(query []float32, k int, ticker string) ([]*models.RetrievalResult, error) {
	if len(query) != v.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index expects %d",
			common.ErrDimensionMismatch, len(query), v.dimension)
	}
	if k <= 0 {
		return nil, nil
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	var results []*models.RetrievalResult
	for _, chunks := range v.byDocument {
		for _, chunk := range chunks {
			if ticker != "" && chunk.Ticker != ticker {
				continue
			}
			results = append(results, &models.RetrievalResult{
				ChunkID:    chunk.ID,
				DocumentID: chunk.DocumentID,
				Ticker:     chunk.Ticker,
				Text:       chunk.Text,
				Similarity: CosineSimilarity(query, chunk.Embedding),
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if len(results) > k {
		results = results[:k]
	}
	for i, r := range results {
		r.Rank = i + 1
	}
	return results, nil
}

// CosineSimilarity computes cosine similarity between two equal-length
// vectors. A zero vector yields 0 rather than NaN.
func CosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
