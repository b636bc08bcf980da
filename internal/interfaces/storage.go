package interfaces

import (
	"time"

	"github.com/marketmoves/marketmoves/internal/models"
)

// PriceStorage persists immutable price observations
type PriceStorage interface {
	SavePrices(obs []*models.PriceObservation) error

	// GetPrices returns observations for the ticker in [from, to], ascending by date
	GetPrices(ticker string, from, to time.Time) ([]*models.PriceObservation, error)

	// GetLatestPrice returns the most recent observation, or nil when none exist
	GetLatestPrice(ticker string) (*models.PriceObservation, error)

	ListTickers() ([]string, error)
}

// NewsStorage persists polarity-scored textual observations
type NewsStorage interface {
	SaveNews(obs []*models.NewsObservation) error

	// GetRecentNews returns observations for the ticker published in [from, to],
	// descending by publication time
	GetRecentNews(ticker string, from, to time.Time) ([]*models.NewsObservation, error)
}

// FactStorage persists graph-fact summaries per entity
type FactStorage interface {
	SaveFacts(facts *models.EntityFacts) error

	// GetFacts returns nil without error when the facts feed has never
	// reported on the ticker
	GetFacts(ticker string) (*models.EntityFacts, error)
}

// SnapshotStorage persists computed risk snapshots append-only.
// Saving an existing (ticker, timestamp) key overwrites deterministically.
type SnapshotStorage interface {
	SaveSnapshot(snapshot *models.RiskSnapshot) error

	// GetLatestSnapshot returns the most recent snapshot at/before asOf, or nil
	GetLatestSnapshot(ticker string, asOf time.Time) (*models.RiskSnapshot, error)

	// GetTimeline returns snapshots in [from, to], ascending by timestamp.
	// Stateless; no cursor is retained between calls.
	GetTimeline(ticker string, from, to time.Time) ([]*models.RiskSnapshot, error)
}

// DocumentStorage persists documents and their chunk sets
type DocumentStorage interface {
	SaveDocument(doc *models.Document) error
	GetDocument(id string) (*models.Document, error)
	DeleteDocument(id string) error
	ListDocuments(ticker string) ([]*models.Document, error)
	CountDocuments() (int, error)

	// ReplaceChunks atomically replaces the document's chunk set: the previous
	// version's chunks are removed in the same transaction that writes the new
	// ones, so readers never observe a partial set.
	ReplaceChunks(documentID string, chunks []*models.DocumentChunk) error
	GetChunks(documentID string) ([]*models.DocumentChunk, error)
	GetAllChunks() ([]*models.DocumentChunk, error)
	DeleteChunks(documentID string) error
}

// StorageManager provides access to all storage implementations
type StorageManager interface {
	PriceStorage() PriceStorage
	NewsStorage() NewsStorage
	FactStorage() FactStorage
	SnapshotStorage() SnapshotStorage
	DocumentStorage() DocumentStorage
	Close() error
}
