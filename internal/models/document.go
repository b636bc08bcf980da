package models

import "time"

// Document represents one filed document's raw text for an entity.
// The text arrives pre-extracted from the ingestion layer; the core never
// scrapes or parses source formats.
type Document struct {
	ID         string    `json:"id"` // doc_{uuid}
	Ticker     string    `json:"ticker" badgerhold:"index"`
	Title      string    `json:"title"`
	FilingType string    `json:"filing_type,omitempty"` // e.g. 10-K, 10-Q, 8-K
	FiledAt    time.Time `json:"filed_at,omitempty"`
	Content    string    `json:"content"`

	// ChunkVersion increments each time the document is re-chunked; chunks
	// carry the version so a re-ingest replaces the full set atomically.
	ChunkVersion int `json:"chunk_version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentChunk is one overlapping text window of a source document with its
// embedding vector. Immutable once created; re-chunking replaces the full set.
type DocumentChunk struct {
	ID         string    `json:"id"` // {doc_id}_chunk_{index}
	DocumentID string    `json:"document_id" badgerhold:"index"`
	Ticker     string    `json:"ticker" badgerhold:"index"`
	Index      int       `json:"index"` // Contiguous from 0 per document
	Text       string    `json:"text"`
	Embedding  []float32 `json:"embedding"` // Fixed configured dimension
	Version    int       `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
}

// RetrievalResult is one chunk returned for a query, ranked by similarity
type RetrievalResult struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Ticker     string  `json:"ticker"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"` // Cosine similarity to the query vector
	Rank       int     `json:"rank"`       // 1-based, ascending with descending similarity
}
