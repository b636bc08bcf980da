package badger

import (
	"fmt"
	"sort"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/marketmoves/marketmoves/internal/interfaces"
	"github.com/marketmoves/marketmoves/internal/models"
)

// DocumentStorage implements the DocumentStorage interface for Badger
type DocumentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewDocumentStorage creates a new DocumentStorage instance
func NewDocumentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DocumentStorage {
	return &DocumentStorage{
		db:     db,
		logger: logger,
	}
}

func (s *DocumentStorage) SaveDocument(doc *models.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	if err := s.db.Store().Upsert(doc.ID, doc); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// GetDocument returns nil without error when the document does not exist
func (s *DocumentStorage) GetDocument(id string) (*models.Document, error) {
	var doc models.Document
	if err := s.db.Store().Get(id, &doc); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

func (s *DocumentStorage) DeleteDocument(id string) error {
	if err := s.db.Store().Delete(id, &models.Document{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// ListDocuments returns documents for one ticker, or all when ticker is empty
func (s *DocumentStorage) ListDocuments(ticker string) ([]*models.Document, error) {
	var docs []models.Document
	var err error
	if ticker == "" {
		err = s.db.Store().Find(&docs, nil)
	} else {
		err = s.db.Store().Find(&docs, badgerhold.Where("Ticker").Eq(ticker).Index("Ticker"))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedAt.Before(docs[j].CreatedAt) })

	result := make([]*models.Document, len(docs))
	for i := range docs {
		result[i] = &docs[i]
	}
	return result, nil
}

func (s *DocumentStorage) CountDocuments() (int, error) {
	count, err := s.db.Store().Count(&models.Document{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return int(count), nil
}

// ReplaceChunks swaps the document's chunk set in one transaction, so a
// concurrent reader sees either the old complete set or the new one
func (s *DocumentStorage) ReplaceChunks(documentID string, chunks []*models.DocumentChunk) error {
	store := s.db.Store()
	err := store.Badger().Update(func(tx *badgerdb.Txn) error {
		if err := store.TxDeleteMatching(tx, &models.DocumentChunk{},
			badgerhold.Where("DocumentID").Eq(documentID)); err != nil {
			return fmt.Errorf("failed to delete previous chunks: %w", err)
		}
		for _, chunk := range chunks {
			if err := store.TxUpsert(tx, chunk.ID, chunk); err != nil {
				return fmt.Errorf("failed to write chunk %s: %w", chunk.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace chunks for %s: %w", documentID, err)
	}
	return nil
}

func (s *DocumentStorage) GetChunks(documentID string) ([]*models.DocumentChunk, error) {
	var chunks []models.DocumentChunk
	err := s.db.Store().Find(&chunks,
		badgerhold.Where("DocumentID").Eq(documentID).Index("DocumentID"))
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks for %s: %w", documentID, err)
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })

	result := make([]*models.DocumentChunk, len(chunks))
	for i := range chunks {
		result[i] = &chunks[i]
	}
	return result, nil
}

func (s *DocumentStorage) GetAllChunks() ([]*models.DocumentChunk, error) {
	var chunks []models.DocumentChunk
	if err := s.db.Store().Find(&chunks, nil); err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}

	result := make([]*models.DocumentChunk, len(chunks))
	for i := range chunks {
		result[i] = &chunks[i]
	}
	return result, nil
}

func (s *DocumentStorage) DeleteChunks(documentID string) error {
	err := s.db.Store().DeleteMatching(&models.DocumentChunk{},
		badgerhold.Where("DocumentID").Eq(documentID))
	if err != nil {
		return fmt.Errorf("failed to delete chunks for %s: %w", documentID, err)
	}
	return nil
}
