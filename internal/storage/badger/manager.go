package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/marketmoves/marketmoves/internal/common"
	"github.com/marketmoves/marketmoves/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db       *BadgerDB
	price    interfaces.PriceStorage
	news     interfaces.NewsStorage
	fact     interfaces.FactStorage
	snapshot interfaces.SnapshotStorage
	document interfaces.DocumentStorage
	logger   arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		price:    NewPriceStorage(db, logger),
		news:     NewNewsStorage(db, logger),
		fact:     NewFactStorage(db, logger),
		snapshot: NewSnapshotStorage(db, logger),
		document: NewDocumentStorage(db, logger),
		logger:   logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// PriceStorage returns the price storage interface
func (m *Manager) PriceStorage() interfaces.PriceStorage {
	return m.price
}

// NewsStorage returns the news storage interface
func (m *Manager) NewsStorage() interfaces.NewsStorage {
	return m.news
}

// FactStorage returns the fact storage interface
func (m *Manager) FactStorage() interfaces.FactStorage {
	return m.fact
}

// SnapshotStorage returns the snapshot storage interface
func (m *Manager) SnapshotStorage() interfaces.SnapshotStorage {
	return m.snapshot
}

// DocumentStorage returns the document storage interface
func (m *Manager) DocumentStorage() interfaces.DocumentStorage {
	return m.document
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
