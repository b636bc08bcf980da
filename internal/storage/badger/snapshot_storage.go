package badger

import (
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/marketmoves/marketmoves/internal/interfaces"
	"github.com/marketmoves/marketmoves/internal/models"
)

// SnapshotStorage implements the SnapshotStorage interface for Badger
type SnapshotStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSnapshotStorage creates a new SnapshotStorage instance
func NewSnapshotStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SnapshotStorage {
	return &SnapshotStorage{
		db:     db,
		logger: logger,
	}
}

// SaveSnapshot upserts by the snapshot's (ticker, timestamp) key, so a
// recomputation for the same instant overwrites rather than duplicates
func (s *SnapshotStorage) SaveSnapshot(snapshot *models.RiskSnapshot) error {
	if snapshot.Ticker == "" {
		return fmt.Errorf("snapshot ticker is required")
	}
	if snapshot.Timestamp.IsZero() {
		return fmt.Errorf("snapshot timestamp is required")
	}

	if err := s.db.Store().Upsert(snapshot.Key(), snapshot); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", snapshot.Key(), err)
	}
	return nil
}

func (s *SnapshotStorage) GetLatestSnapshot(ticker string, asOf time.Time) (*models.RiskSnapshot, error) {
	var snaps []models.RiskSnapshot
	err := s.db.Store().Find(&snaps,
		badgerhold.Where("Ticker").Eq(ticker).Index("Ticker").
			And("Timestamp").Le(asOf))
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots for %s: %w", ticker, err)
	}
	if len(snaps) == 0 {
		return nil, nil
	}

	latest := &snaps[0]
	for i := range snaps {
		if snaps[i].Timestamp.After(latest.Timestamp) {
			latest = &snaps[i]
		}
	}
	return latest, nil
}

func (s *SnapshotStorage) GetTimeline(ticker string, from, to time.Time) ([]*models.RiskSnapshot, error) {
	var snaps []models.RiskSnapshot
	err := s.db.Store().Find(&snaps,
		badgerhold.Where("Ticker").Eq(ticker).Index("Ticker").
			And("Timestamp").Ge(from).And("Timestamp").Le(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query timeline for %s: %w", ticker, err)
	}

	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Timestamp.Before(snaps[j].Timestamp) })

	result := make([]*models.RiskSnapshot, len(snaps))
	for i := range snaps {
		result[i] = &snaps[i]
	}
	return result, nil
}
