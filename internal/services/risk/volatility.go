package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/marketmoves/marketmoves/internal/common"
	"github.com/marketmoves/marketmoves/internal/interfaces"
	"github.com/marketmoves/marketmoves/internal/models"
)

// VolatilityRule scores annualized volatility of daily log returns over a
// trailing window. A 25% annualized volatility (configurable midpoint) maps to
// 5.0; the transform is affine then clamped, so the score is monotonic in
// volatility.
type VolatilityRule struct {
	prices     interfaces.PriceStorage
	windowDays int
	midpoint   float64
}

// NewVolatilityRule creates the volatility normalization rule
func NewVolatilityRule(prices interfaces.PriceStorage, cfg common.RiskConfig) *VolatilityRule {
	return &VolatilityRule{
		prices:     prices,
		windowDays: cfg.VolatilityWindowDays,
		midpoint:   cfg.VolatilityMidpoint,
	}
}

func (r *VolatilityRule) Dimension() models.Dimension {
	return models.DimensionVolatility
}

func (r *VolatilityRule) Normalize(ctx context.Context, ticker string, asOf time.Time) (models.SubScore, error) {
	if err := ctx.Err(); err != nil {
		return models.SubScore{}, err
	}

	from := asOf.AddDate(0, 0, -r.windowDays)
	obs, err := r.prices.GetPrices(ticker, from, asOf)
	if err != nil {
		return models.SubScore{}, fmt.Errorf("failed to read prices for %s: %w", ticker, err)
	}

	returns := DailyLogReturns(obs)
	if len(returns) == 0 {
		return models.SubScore{}, fmt.Errorf("no returns in trailing %d days for %s: %w",
			r.windowDays, ticker, common.ErrDataUnavailable)
	}

	annVol := AnnualizedVolatility(returns)
	score := ClampScore(5.0 * annVol / r.midpoint)

	return models.SubScore{
		Dimension: models.DimensionVolatility,
		Ticker:    ticker,
		Value:     score,
		Timestamp: asOf,
		Detail:    fmt.Sprintf("annualized volatility %.1f%% over %d returns", annVol*100, len(returns)),
	}, nil
}
