// Package risk implements the signal normalization and aggregation engine:
// per-dimension rules that reduce raw observations to bounded [0,10]
// sub-scores, a rolling z-score anomaly detector, and the weighted composite
// aggregator with its snapshot timeline.
package risk

import (
	"context"
	"time"

	"github.com/marketmoves/marketmoves/internal/models"
)

// NeutralScore is substituted for a dimension with no data ever computed,
// instead of failing the whole snapshot. Snapshots carrying it are flagged
// partial.
const NeutralScore = 5.0

// Rule normalizes one dimension's raw observations into a sub-score.
// Implementations fail closed: an empty trailing window yields
// common.ErrDataUnavailable, never a fabricated numeric value.
type Rule interface {
	Dimension() models.Dimension
	Normalize(ctx context.Context, ticker string, asOf time.Time) (models.SubScore, error)
}

// BatchResult is the per-entity outcome of a batch computation
type BatchResult struct {
	Snapshot *models.RiskSnapshot `json:"snapshot,omitempty"`
	Error    string               `json:"error,omitempty"`
}
