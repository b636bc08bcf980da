package badger

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/marketmoves/marketmoves/internal/interfaces"
	"github.com/marketmoves/marketmoves/internal/models"
)

// NewsStorage implements the NewsStorage interface for Badger
type NewsStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewNewsStorage creates a new NewsStorage instance
func NewNewsStorage(db *BadgerDB, logger arbor.ILogger) interfaces.NewsStorage {
	return &NewsStorage{
		db:     db,
		logger: logger,
	}
}

func (s *NewsStorage) SaveNews(obs []*models.NewsObservation) error {
	for _, o := range obs {
		if o.Ticker == "" {
			return fmt.Errorf("news observation ticker is required")
		}
		if o.Polarity < -1 || o.Polarity > 1 {
			return fmt.Errorf("news polarity %.2f outside [-1,1]", o.Polarity)
		}
		if o.ID == "" {
			o.ID = "news_" + uuid.New().String()
		}
		if err := s.db.Store().Upsert(o.ID, o); err != nil {
			return fmt.Errorf("failed to save news %s: %w", o.ID, err)
		}
	}
	return nil
}

func (s *NewsStorage) GetRecentNews(ticker string, from, to time.Time) ([]*models.NewsObservation, error) {
	var obs []models.NewsObservation
	err := s.db.Store().Find(&obs,
		badgerhold.Where("Ticker").Eq(ticker).Index("Ticker").
			And("PublishedAt").Ge(from).And("PublishedAt").Le(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query news for %s: %w", ticker, err)
	}

	// Most recent first
	sort.Slice(obs, func(i, j int) bool { return obs[i].PublishedAt.After(obs[j].PublishedAt) })

	result := make([]*models.NewsObservation, len(obs))
	for i := range obs {
		result[i] = &obs[i]
	}
	return result, nil
}
