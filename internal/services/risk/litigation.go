package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/marketmoves/marketmoves/internal/common"
	"github.com/marketmoves/marketmoves/internal/interfaces"
	"github.com/marketmoves/marketmoves/internal/models"
)

// Saturation points for the additive fact-count curve. The score is
// non-decreasing in both count and severity and saturates at 10:
// count contributes up to 5 points (caps at 5 facts), average severity up to
// 3 points (caps at severity 5), high-severity count up to 2 points (caps at 3).
const (
	factCountCap        = 5.0
	factSeverityCap     = 5.0
	factHighSeverityCap = 3.0
)

// saturatingFactScore maps fact counts to [0,10]. Zero facts score a 1.0
// floor: the feed looked and found nothing, which is low risk, not no risk.
func saturatingFactScore(fc models.FactCounts) float64 {
	if fc.Count == 0 {
		return 1.0
	}

	countScore := ClampFloat64(float64(fc.Count)/factCountCap*5.0, 0, 5.0)
	severityScore := ClampFloat64(fc.AvgSeverity/factSeverityCap*3.0, 0, 3.0)
	highSeverityScore := ClampFloat64(float64(fc.HighSeverityCount)/factHighSeverityCap*2.0, 0, 2.0)

	return ClampScore(countScore + severityScore + highSeverityScore)
}

// LitigationRule scores the count and severity of litigation graph facts
// linked to the entity
type LitigationRule struct {
	facts interfaces.FactStorage
}

// NewLitigationRule creates the litigation normalization rule
func NewLitigationRule(facts interfaces.FactStorage) *LitigationRule {
	return &LitigationRule{facts: facts}
}

func (r *LitigationRule) Dimension() models.Dimension {
	return models.DimensionLitigation
}

func (r *LitigationRule) Normalize(ctx context.Context, ticker string, asOf time.Time) (models.SubScore, error) {
	if err := ctx.Err(); err != nil {
		return models.SubScore{}, err
	}

	facts, err := r.facts.GetFacts(ticker)
	if err != nil {
		return models.SubScore{}, fmt.Errorf("failed to read facts for %s: %w", ticker, err)
	}
	if facts == nil {
		return models.SubScore{}, fmt.Errorf("no litigation facts reported for %s: %w",
			ticker, common.ErrDataUnavailable)
	}

	score := saturatingFactScore(facts.Litigation)

	return models.SubScore{
		Dimension: models.DimensionLitigation,
		Ticker:    ticker,
		Value:     score,
		Timestamp: asOf,
		Detail: fmt.Sprintf("%d lawsuits, avg severity %.1f, %d high severity",
			facts.Litigation.Count, facts.Litigation.AvgSeverity, facts.Litigation.HighSeverityCount),
	}, nil
}
