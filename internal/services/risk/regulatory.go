package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/marketmoves/marketmoves/internal/common"
	"github.com/marketmoves/marketmoves/internal/interfaces"
	"github.com/marketmoves/marketmoves/internal/models"
)

// RegulatoryRule scores regulatory-penalty graph facts with the same
// saturating curve as litigation
type RegulatoryRule struct {
	facts interfaces.FactStorage
}

// NewRegulatoryRule creates the regulatory normalization rule
func NewRegulatoryRule(facts interfaces.FactStorage) *RegulatoryRule {
	return &RegulatoryRule{facts: facts}
}

func (r *RegulatoryRule) Dimension() models.Dimension {
	return models.DimensionRegulatory
}

func (r *RegulatoryRule) Normalize(ctx context.Context, ticker string, asOf time.Time) (models.SubScore, error) {
	if err := ctx.Err(); err != nil {
		return models.SubScore{}, err
	}

	facts, err := r.facts.GetFacts(ticker)
	if err != nil {
		return models.SubScore{}, fmt.Errorf("failed to read facts for %s: %w", ticker, err)
	}
	if facts == nil {
		return models.SubScore{}, fmt.Errorf("no regulatory facts reported for %s: %w",
			ticker, common.ErrDataUnavailable)
	}

	score := saturatingFactScore(facts.Regulatory)

	return models.SubScore{
		Dimension: models.DimensionRegulatory,
		Ticker:    ticker,
		Value:     score,
		Timestamp: asOf,
		Detail: fmt.Sprintf("%d penalties, avg severity %.1f, %d high severity",
			facts.Regulatory.Count, facts.Regulatory.AvgSeverity, facts.Regulatory.HighSeverityCount),
	}, nil
}
