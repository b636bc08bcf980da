package risk

import (
	"time"

	"github.com/marketmoves/marketmoves/internal/common"
	"github.com/marketmoves/marketmoves/internal/models"
)

// AnomalyDetector flags days whose return deviates from the trailing rolling
// mean by more than a stddev multiple. The rolling window looks strictly
// backward (including the current day), so extending a series never changes
// flags for previously covered dates.
type AnomalyDetector struct {
	window    int     // Rolling window length in returns
	minObs    int     // Minimum returns in the window before any flag
	threshold float64 // |z| above this flags the day
}

// NewAnomalyDetector creates a detector from configuration
func NewAnomalyDetector(cfg common.AnomalyConfig) *AnomalyDetector {
	return &AnomalyDetector{
		window:    cfg.WindowDays,
		minObs:    cfg.MinObservations,
		threshold: cfg.Threshold,
	}
}

// DetectAnomalies returns the set of flagged dates for the price series.
// Prices must be ordered ascending by date. A date is either flagged or not;
// severity is not modeled at this layer.
func (d *AnomalyDetector) DetectAnomalies(prices []*models.PriceObservation) map[time.Time]bool {
	flagged := make(map[time.Time]bool)

	returns := DailyLogReturns(prices)
	if len(returns) < d.minObs {
		return flagged
	}

	for i := range returns {
		start := i - d.window + 1
		if start < 0 {
			start = 0
		}
		window := returns[start : i+1]
		if len(window) < d.minObs {
			continue
		}

		values := make([]float64, len(window))
		for j, r := range window {
			values[j] = r.Value
		}

		mean := Mean(values)
		std := Stddev(values)

		// Constant price in the window: never anomalous
		if std == 0 {
			continue
		}

		z := (returns[i].Value - mean) / std
		if z < 0 {
			z = -z
		}
		if z > d.threshold {
			flagged[returns[i].Date] = true
		}
	}

	return flagged
}
