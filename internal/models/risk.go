package models

import "time"

// Dimension identifies one risk dimension
type Dimension string

const (
	DimensionVolatility Dimension = "volatility"
	DimensionSentiment  Dimension = "sentiment"
	DimensionLitigation Dimension = "litigation"
	DimensionFinancial  Dimension = "financial_anomaly"
	DimensionRegulatory Dimension = "regulatory"
)

// AllDimensions lists the fixed dimension set in composite order
var AllDimensions = []Dimension{
	DimensionVolatility,
	DimensionSentiment,
	DimensionLitigation,
	DimensionFinancial,
	DimensionRegulatory,
}

// SubScore is one dimension's normalized risk contribution at a point in time.
// Value is always clamped to [0,10].
type SubScore struct {
	Dimension Dimension `json:"dimension"`
	Ticker    string    `json:"ticker"`
	Value     float64   `json:"value"` // 0-10
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"` // Human-readable computation summary
}

// RiskLevel classifies a composite score
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "Low"
	RiskLevelMedium   RiskLevel = "Medium"
	RiskLevelHigh     RiskLevel = "High"
	RiskLevelCritical RiskLevel = "Critical"
)

// RiskSnapshot is the composite result for one entity at one time. Snapshots
// are append-only; a recomputation for an existing (ticker, timestamp) pair
// overwrites deterministically with the same output.
type RiskSnapshot struct {
	Ticker    string                 `json:"ticker" badgerhold:"index"`
	Timestamp time.Time              `json:"timestamp"`
	Composite float64                `json:"composite"` // 0-10, weighted sum of sub-scores
	Level     RiskLevel              `json:"level"`
	SubScores map[Dimension]SubScore `json:"sub_scores"`
	Weights   map[Dimension]float64  `json:"weights"`

	// Partial is set when one or more dimensions had no data and the neutral
	// midpoint was substituted.
	Partial           bool        `json:"partial"`
	MissingDimensions []Dimension `json:"missing_dimensions,omitempty"`
}

// Key returns the storage key for the snapshot, one per (ticker, timestamp).
// Keys carry second precision, so Timestamp must be truncated to the second
// before the snapshot is stored; the aggregator does this on construction.
func (s *RiskSnapshot) Key() string {
	return s.Ticker + "|" + s.Timestamp.UTC().Format(time.RFC3339)
}
