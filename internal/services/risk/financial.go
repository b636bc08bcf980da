package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/marketmoves/marketmoves/internal/common"
	"github.com/marketmoves/marketmoves/internal/interfaces"
	"github.com/marketmoves/marketmoves/internal/models"
)

// FinancialAnomalyRule scores the fraction of trailing-window days flagged by
// the anomaly detector, scaled to [0,10]
type FinancialAnomalyRule struct {
	prices     interfaces.PriceStorage
	detector   *AnomalyDetector
	windowDays int // Window the flag fraction is measured over
	leadDays   int // Extra history fetched so the rolling window has context
}

// NewFinancialAnomalyRule creates the financial-anomaly normalization rule
func NewFinancialAnomalyRule(prices interfaces.PriceStorage, detector *AnomalyDetector, cfg common.RiskConfig, anomalyCfg common.AnomalyConfig) *FinancialAnomalyRule {
	return &FinancialAnomalyRule{
		prices:     prices,
		detector:   detector,
		windowDays: cfg.AnomalyWindowDays,
		// The first windowDays days need a full rolling window behind them
		leadDays: anomalyCfg.WindowDays * 2,
	}
}

func (r *FinancialAnomalyRule) Dimension() models.Dimension {
	return models.DimensionFinancial
}

func (r *FinancialAnomalyRule) Normalize(ctx context.Context, ticker string, asOf time.Time) (models.SubScore, error) {
	if err := ctx.Err(); err != nil {
		return models.SubScore{}, err
	}

	from := asOf.AddDate(0, 0, -(r.windowDays + r.leadDays))
	obs, err := r.prices.GetPrices(ticker, from, asOf)
	if err != nil {
		return models.SubScore{}, fmt.Errorf("failed to read prices for %s: %w", ticker, err)
	}

	windowStart := asOf.AddDate(0, 0, -r.windowDays)
	inWindow := 0
	for _, o := range obs {
		if !o.Date.Before(windowStart) {
			inWindow++
		}
	}
	if inWindow == 0 {
		return models.SubScore{}, fmt.Errorf("no trading days in trailing %d days for %s: %w",
			r.windowDays, ticker, common.ErrDataUnavailable)
	}

	flagged := r.detector.DetectAnomalies(obs)

	flaggedInWindow := 0
	for date := range flagged {
		if !date.Before(windowStart) {
			flaggedInWindow++
		}
	}

	fraction := float64(flaggedInWindow) / float64(inWindow)
	score := ClampScore(fraction * 10.0)

	return models.SubScore{
		Dimension: models.DimensionFinancial,
		Ticker:    ticker,
		Value:     score,
		Timestamp: asOf,
		Detail:    fmt.Sprintf("%d of %d trading days flagged", flaggedInWindow, inWindow),
	}, nil
}
