package index

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/marketmoves/marketmoves/internal/interfaces"
	"github.com/marketmoves/marketmoves/internal/models"
)

// Indexer chunks documents, embeds the chunks, persists them, and keeps the
// in-memory vector index in sync with storage
type Indexer struct {
	chunker   *Chunker
	embedder  interfaces.EmbeddingService
	documents interfaces.DocumentStorage
	index     *VectorIndex
	logger    arbor.ILogger
}

// NewIndexer creates an indexer over the given chunker, embedding service,
// document storage, and vector index
func NewIndexer(chunker *Chunker, embedder interfaces.EmbeddingService, documents interfaces.DocumentStorage, index *VectorIndex, logger arbor.ILogger) *Indexer {
	return &Indexer{
		chunker:   chunker,
		embedder:  embedder,
		documents: documents,
		index:     index,
		logger:    logger,
	}
}

// IngestDocument stores a new document, chunks and embeds its content, and
// makes it searchable. The document ID is assigned here.
func (ix *Indexer) IngestDocument(ctx context.Context, doc *models.Document) (*models.Document, error) {
	now := time.Now().UTC()
	doc.ID = "doc_" + uuid.New().String()
	doc.ChunkVersion = 1
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if err := ix.documents.SaveDocument(doc); err != nil {
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	if err := ix.indexContent(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ReindexDocument re-chunks and re-embeds an existing document, bumping its
// chunk version. The previous chunk set stays searchable until the new one is
// fully written, then is replaced atomically.
func (ix *Indexer) ReindexDocument(ctx context.Context, documentID string) error {
	doc, err := ix.documents.GetDocument(documentID)
	if err != nil {
		return fmt.Errorf("failed to load document %s: %w", documentID, err)
	}
	if doc == nil {
		return fmt.Errorf("document %s not found", documentID)
	}

	doc.ChunkVersion++
	doc.UpdatedAt = time.Now().UTC()
	if err := ix.documents.SaveDocument(doc); err != nil {
		return fmt.Errorf("failed to update document %s: %w", documentID, err)
	}

	return ix.indexContent(ctx, doc)
}

// RemoveDocument deletes a document, its chunks, and its index entries
func (ix *Indexer) RemoveDocument(documentID string) error {
	if err := ix.documents.DeleteChunks(documentID); err != nil {
		return fmt.Errorf("failed to delete chunks for %s: %w", documentID, err)
	}
	if err := ix.documents.DeleteDocument(documentID); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", documentID, err)
	}
	ix.index.DeleteDocument(documentID)
	return nil
}

// LoadFromStorage rebuilds the in-memory index from persisted chunks.
// Called once at startup so the index survives restarts without re-embedding.
func (ix *Indexer) LoadFromStorage() error {
	chunks, err := ix.documents.GetAllChunks()
	if err != nil {
		return fmt.Errorf("failed to load chunks: %w", err)
	}

	byDoc := make(map[string][]*models.DocumentChunk)
	for _, chunk := range chunks {
		byDoc[chunk.DocumentID] = append(byDoc[chunk.DocumentID], chunk)
	}
	for documentID, docChunks := range byDoc {
		if err := ix.index.PutDocument(documentID, docChunks); err != nil {
			ix.logger.Warn().
				Str("document_id", documentID).
				Err(err).
				Msg("Skipping document with mismatched embeddings")
		}
	}

	ix.logger.Info().
		Int("documents", len(byDoc)).
		Int("chunks", len(chunks)).
		Msg("Vector index loaded from storage")
	return nil
}

// indexContent chunks and embeds the document's content, then swaps the chunk
// set in storage and the index
func (ix *Indexer) indexContent(ctx context.Context, doc *models.Document) error {
	texts := ix.chunker.Chunk(doc.Content)

	now := time.Now().UTC()
	chunks := make([]*models.DocumentChunk, 0, len(texts))
	for i, text := range texts {
		embedding, err := ix.embedder.GenerateEmbedding(ctx, text)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d of %s: %w", i, doc.ID, err)
		}
		chunks = append(chunks, &models.DocumentChunk{
			ID:         fmt.Sprintf("%s_chunk_%d", doc.ID, i),
			DocumentID: doc.ID,
			Ticker:     doc.Ticker,
			Index:      i,
			Text:       text,
			Embedding:  embedding,
			Version:    doc.ChunkVersion,
			CreatedAt:  now,
		})
	}

	if err := ix.documents.ReplaceChunks(doc.ID, chunks); err != nil {
		return fmt.Errorf("failed to persist chunks for %s: %w", doc.ID, err)
	}
	if err := ix.index.PutDocument(doc.ID, chunks); err != nil {
		return fmt.Errorf("failed to index chunks for %s: %w", doc.ID, err)
	}

	ix.logger.Info().
		Str("document_id", doc.ID).
		Str("ticker", doc.Ticker).
		Int("chunks", len(chunks)).
		Int("version", doc.ChunkVersion).
		Msg("Document indexed")
	return nil
}
