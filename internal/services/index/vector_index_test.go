package index

import (
	"errors"
	"math"
	"testing"

	"github.com/marketmoves/marketmoves/internal/common"
	"github.com/marketmoves/marketmoves/internal/models"
)

func chunk(id, docID, ticker string, embedding []float32) *models.DocumentChunk {
	return &models.DocumentChunk{
		ID:         id,
		DocumentID: docID,
		Ticker:     ticker,
		Text:       "text for " + id,
		Embedding:  embedding,
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"scaled", []float32{1, 1}, []float32{5, 5}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSearchRanksBySimilarity(t *testing.T) {
	idx, err := NewVectorIndex(3)
	if err != nil {
		t.Fatalf("NewVectorIndex: %v", err)
	}

	chunks := []*models.DocumentChunk{
		chunk("doc1_chunk_0", "doc1", "ACME", []float32{1, 0, 0}),
		chunk("doc1_chunk_1", "doc1", "ACME", []float32{0.9, 0.1, 0}),
		chunk("doc1_chunk_2", "doc1", "ACME", []float32{0, 1, 0}),
	}
	if err := idx.PutDocument("doc1", chunks); err != nil {
		t.Fatalf("PutDocument: %v", err)
	}

	results, err := idx.Search([]float32{1, 0, 0}, 2, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ChunkID != "doc1_chunk_0" {
		t.Errorf("top result = %s, want doc1_chunk_0", results[0].ChunkID)
	}
	if results[0].Similarity < results[1].Similarity {
		t.Error("results not in descending similarity order")
	}
	if results[0].Rank != 1 || results[1].Rank != 2 {
		t.Errorf("ranks = %d, %d, want 1, 2", results[0].Rank, results[1].Rank)
	}
}

// Requesting more neighbors than exist returns everything without error
func TestSearchKExceedsCorpus(t *testing.T) {
	idx, _ := NewVectorIndex(2)
	_ = idx.PutDocument("doc1", []*models.DocumentChunk{
		chunk("doc1_chunk_0", "doc1", "ACME", []float32{1, 0}),
		chunk("doc1_chunk_1", "doc1", "ACME", []float32{0, 1}),
		chunk("doc1_chunk_2", "doc1", "ACME", []float32{1, 1}),
	})

	results, err := idx.Search([]float32{1, 0}, 5, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("got %d results, want all 3", len(results))
	}
}

func TestSearchTickerFilter(t *testing.T) {
	idx, _ := NewVectorIndex(2)
	_ = idx.PutDocument("doc1", []*models.DocumentChunk{
		chunk("doc1_chunk_0", "doc1", "ACME", []float32{1, 0}),
	})
	_ = idx.PutDocument("doc2", []*models.DocumentChunk{
		chunk("doc2_chunk_0", "doc2", "GLOBEX", []float32{1, 0}),
	})

	results, err := idx.Search([]float32{1, 0}, 10, "GLOBEX")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Ticker != "GLOBEX" {
		t.Errorf("filter leaked other tickers: %+v", results)
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	idx, _ := NewVectorIndex(2)
	results, err := idx.Search([]float32{1, 0}, 5, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestSearchDimensionMismatch(t *testing.T) {
	idx, _ := NewVectorIndex(3)
	_, err := idx.Search([]float32{1, 0}, 5, "")
	if !errors.Is(err, common.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestPutDocumentDimensionMismatch(t *testing.T) {
	idx, _ := NewVectorIndex(3)
	err := idx.PutDocument("doc1", []*models.DocumentChunk{
		chunk("doc1_chunk_0", "doc1", "ACME", []float32{1, 0}),
	})
	if !errors.Is(err, common.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if idx.Size() != 0 {
		t.Errorf("rejected put changed the index, size = %d", idx.Size())
	}
}

func TestPutDocumentReplacesChunks(t *testing.T) {
	idx, _ := NewVectorIndex(2)
	_ = idx.PutDocument("doc1", []*models.DocumentChunk{
		chunk("doc1_chunk_0", "doc1", "ACME", []float32{1, 0}),
		chunk("doc1_chunk_1", "doc1", "ACME", []float32{0, 1}),
	})
	_ = idx.PutDocument("doc1", []*models.DocumentChunk{
		chunk("doc1_chunk_0", "doc1", "ACME", []float32{1, 1}),
	})

	if idx.Size() != 1 {
		t.Errorf("size = %d after replacement, want 1", idx.Size())
	}
}

func TestUpsertInsertsAndReplaces(t *testing.T) {
	idx, _ := NewVectorIndex(2)

	if err := idx.Upsert(chunk("doc1_chunk_0", "doc1", "ACME", []float32{1, 0})); err != nil {
		t.Fatalf("Upsert insert: %v", err)
	}
	if err := idx.Upsert(chunk("doc1_chunk_1", "doc1", "ACME", []float32{0, 1})); err != nil {
		t.Fatalf("Upsert insert: %v", err)
	}
	if idx.Size() != 2 {
		t.Fatalf("size = %d after two inserts, want 2", idx.Size())
	}

	// Re-upserting an existing chunk ID replaces its vector, not adds a copy
	if err := idx.Upsert(chunk("doc1_chunk_0", "doc1", "ACME", []float32{0, 1})); err != nil {
		t.Fatalf("Upsert replace: %v", err)
	}
	if idx.Size() != 2 {
		t.Errorf("size = %d after replacement, want 2", idx.Size())
	}

	results, err := idx.Search([]float32{0, 1}, 1, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || math.Abs(results[0].Similarity-1.0) > 1e-9 {
		t.Errorf("replaced vector not searchable at similarity 1.0: %+v", results)
	}
}

func TestUpsertDimensionMismatch(t *testing.T) {
	idx, _ := NewVectorIndex(3)
	err := idx.Upsert(chunk("doc1_chunk_0", "doc1", "ACME", []float32{1, 0}))
	if !errors.Is(err, common.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if idx.Size() != 0 {
		t.Errorf("rejected upsert changed the index, size = %d", idx.Size())
	}
}

func TestDeleteDocument(t *testing.T) {
	idx, _ := NewVectorIndex(2)
	_ = idx.PutDocument("doc1", []*models.DocumentChunk{
		chunk("doc1_chunk_0", "doc1", "ACME", []float32{1, 0}),
	})

	idx.DeleteDocument("doc1")

	if idx.Size() != 0 {
		t.Errorf("size = %d after delete, want 0", idx.Size())
	}
	results, _ := idx.Search([]float32{1, 0}, 5, "")
	if len(results) != 0 {
		t.Errorf("deleted chunks still searchable: %+v", results)
	}
}
