package badger

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/marketmoves/marketmoves/internal/interfaces"
	"github.com/marketmoves/marketmoves/internal/models"
)

// FactStorage implements the FactStorage interface for Badger
type FactStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewFactStorage creates a new FactStorage instance
func NewFactStorage(db *BadgerDB, logger arbor.ILogger) interfaces.FactStorage {
	return &FactStorage{
		db:     db,
		logger: logger,
	}
}

// SaveFacts upserts the per-entity fact summary. One record per ticker; the
// feed replaces the whole summary on each report.
func (s *FactStorage) SaveFacts(facts *models.EntityFacts) error {
	if facts.Ticker == "" {
		return fmt.Errorf("entity facts ticker is required")
	}
	facts.UpdatedAt = time.Now().UTC()

	if err := s.db.Store().Upsert(facts.Ticker, facts); err != nil {
		return fmt.Errorf("failed to save facts for %s: %w", facts.Ticker, err)
	}
	return nil
}

// GetFacts returns nil without error when the feed has never reported on the
// ticker. Callers distinguish that from a present record with zero counts.
func (s *FactStorage) GetFacts(ticker string) (*models.EntityFacts, error) {
	var facts models.EntityFacts
	if err := s.db.Store().Get(ticker, &facts); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get facts for %s: %w", ticker, err)
	}
	return &facts, nil
}
