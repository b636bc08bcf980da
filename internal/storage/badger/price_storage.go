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

// PriceStorage implements the PriceStorage interface for Badger
type PriceStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPriceStorage creates a new PriceStorage instance
func NewPriceStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PriceStorage {
	return &PriceStorage{
		db:     db,
		logger: logger,
	}
}

// SavePrices upserts observations keyed by (ticker, date), so re-ingesting a
// range is idempotent
func (s *PriceStorage) SavePrices(obs []*models.PriceObservation) error {
	for _, o := range obs {
		if o.Ticker == "" {
			return fmt.Errorf("price observation ticker is required")
		}
		if err := s.db.Store().Upsert(o.Key(), o); err != nil {
			return fmt.Errorf("failed to save price %s: %w", o.Key(), err)
		}
	}
	return nil
}

func (s *PriceStorage) GetPrices(ticker string, from, to time.Time) ([]*models.PriceObservation, error) {
	var obs []models.PriceObservation
	err := s.db.Store().Find(&obs,
		badgerhold.Where("Ticker").Eq(ticker).Index("Ticker").
			And("Date").Ge(from).And("Date").Le(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query prices for %s: %w", ticker, err)
	}

	sort.Slice(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })

	result := make([]*models.PriceObservation, len(obs))
	for i := range obs {
		result[i] = &obs[i]
	}
	return result, nil
}

func (s *PriceStorage) GetLatestPrice(ticker string) (*models.PriceObservation, error) {
	var obs []models.PriceObservation
	err := s.db.Store().Find(&obs, badgerhold.Where("Ticker").Eq(ticker).Index("Ticker"))
	if err != nil {
		return nil, fmt.Errorf("failed to query prices for %s: %w", ticker, err)
	}
	if len(obs) == 0 {
		return nil, nil
	}

	latest := &obs[0]
	for i := range obs {
		if obs[i].Date.After(latest.Date) {
			latest = &obs[i]
		}
	}
	return latest, nil
}

func (s *PriceStorage) ListTickers() ([]string, error) {
	var obs []models.PriceObservation
	if err := s.db.Store().Find(&obs, nil); err != nil {
		return nil, fmt.Errorf("failed to list price observations: %w", err)
	}

	seen := make(map[string]bool)
	var tickers []string
	for i := range obs {
		if !seen[obs[i].Ticker] {
			seen[obs[i].Ticker] = true
			tickers = append(tickers, obs[i].Ticker)
		}
	}
	sort.Strings(tickers)
	return tickers, nil
}
