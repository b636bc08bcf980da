package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/marketmoves/marketmoves/internal/common"
	"github.com/marketmoves/marketmoves/internal/interfaces"
	"github.com/marketmoves/marketmoves/internal/models"
)

// SentimentRule scores mean news polarity over a trailing window.
// Polarity is [-1,1]; risk = 5 - 5×polarity, so fully negative sentiment
// scores 10 and fully positive scores 0.
type SentimentRule struct {
	news       interfaces.NewsStorage
	windowDays int
}

// NewSentimentRule creates the sentiment normalization rule
func NewSentimentRule(news interfaces.NewsStorage, cfg common.RiskConfig) *SentimentRule {
	return &SentimentRule{
		news:       news,
		windowDays: cfg.SentimentWindowDays,
	}
}

func (r *SentimentRule) Dimension() models.Dimension {
	return models.DimensionSentiment
}

func (r *SentimentRule) Normalize(ctx context.Context, ticker string, asOf time.Time) (models.SubScore, error) {
	if err := ctx.Err(); err != nil {
		return models.SubScore{}, err
	}

	from := asOf.AddDate(0, 0, -r.windowDays)
	articles, err := r.news.GetRecentNews(ticker, from, asOf)
	if err != nil {
		return models.SubScore{}, fmt.Errorf("failed to read news for %s: %w", ticker, err)
	}

	if len(articles) == 0 {
		return models.SubScore{}, fmt.Errorf("no news in trailing %d days for %s: %w",
			r.windowDays, ticker, common.ErrDataUnavailable)
	}

	sum := 0.0
	for _, a := range articles {
		sum += a.Polarity
	}
	avg := sum / float64(len(articles))

	score := ClampScore(5.0 - 5.0*avg)

	return models.SubScore{
		Dimension: models.DimensionSentiment,
		Ticker:    ticker,
		Value:     score,
		Timestamp: asOf,
		Detail:    fmt.Sprintf("mean polarity %.2f across %d articles", avg, len(articles)),
	}, nil
}
