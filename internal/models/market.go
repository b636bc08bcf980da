package models

import "time"

// PriceObservation represents one trading day's OHLCV for an entity.
// Observations are created by ingestion and immutable once stored; upstream
// deduplicates by (ticker, date).
type PriceObservation struct {
	Ticker string    `json:"ticker" badgerhold:"index"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Key returns the storage key for the observation. One record per (ticker, date).
func (p *PriceObservation) Key() string {
	return p.Ticker + "|" + p.Date.UTC().Format("2006-01-02")
}

// NewsObservation is a timestamped textual observation with a precomputed
// polarity score in [-1,1] supplied by the ingestion layer.
type NewsObservation struct {
	ID          string    `json:"id"`
	Ticker      string    `json:"ticker" badgerhold:"index"`
	PublishedAt time.Time `json:"published_at"`
	Headline    string    `json:"headline"`
	Source      string    `json:"source,omitempty"`
	URL         string    `json:"url,omitempty"`
	Polarity    float64   `json:"polarity"` // [-1,1], negative raises risk
}

// FactCounts summarizes graph facts of one category linked to an entity
type FactCounts struct {
	Count             int     `json:"count"`
	AvgSeverity       float64 `json:"avg_severity"`        // 0-5 scale from the graph extractor
	HighSeverityCount int     `json:"high_severity_count"` // Facts above the extractor's severity cut
}

// EntityFacts holds the litigation and regulatory graph-fact summaries for an
// entity. A missing record means the facts feed has never reported on the
// entity; a present record with zero counts means it has and found nothing.
type EntityFacts struct {
	Ticker     string     `json:"ticker"`
	Litigation FactCounts `json:"litigation"`
	Regulatory FactCounts `json:"regulatory"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
