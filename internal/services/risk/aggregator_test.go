package risk

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/marketmoves/marketmoves/internal/common"
	"github.com/marketmoves/marketmoves/internal/models"
)

type stubRule struct {
	dimension models.Dimension
	value     float64
	err       error
	delay     time.Duration
	panics    bool
}

func (r *stubRule) Dimension() models.Dimension { return r.dimension }

func (r *stubRule) Normalize(ctx context.Context, ticker string, asOf time.Time) (models.SubScore, error) {
	if r.panics {
		panic("rule blew up")
	}
	if r.delay > 0 {
		// Deliberately ignores ctx: models a rule stuck in a storage read
		// that takes no context.
		time.Sleep(r.delay)
	}
	if r.err != nil {
		return models.SubScore{}, r.err
	}
	return models.SubScore{
		Dimension: r.dimension,
		Ticker:    ticker,
		Value:     r.value,
		Timestamp: asOf,
	}, nil
}

type memorySnapshotStorage struct {
	mu        sync.Mutex
	snapshots map[string]*models.RiskSnapshot
	saves     int
}

func newMemorySnapshotStorage() *memorySnapshotStorage {
	return &memorySnapshotStorage{snapshots: make(map[string]*models.RiskSnapshot)}
}

func (s *memorySnapshotStorage) SaveSnapshot(snapshot *models.RiskSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.Key()] = snapshot
	s.saves++
	return nil
}

func (s *memorySnapshotStorage) GetLatestSnapshot(ticker string, asOf time.Time) (*models.RiskSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.RiskSnapshot
	for _, snap := range s.snapshots {
		if snap.Ticker != ticker || snap.Timestamp.After(asOf) {
			continue
		}
		if latest == nil || snap.Timestamp.After(latest.Timestamp) {
			latest = snap
		}
	}
	return latest, nil
}

func (s *memorySnapshotStorage) GetTimeline(ticker string, from, to time.Time) ([]*models.RiskSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.RiskSnapshot
	for _, snap := range s.snapshots {
		if snap.Ticker == ticker && !snap.Timestamp.Before(from) && !snap.Timestamp.After(to) {
			out = append(out, snap)
		}
	}
	return out, nil
}

func uniformRules(value float64) []Rule {
	rules := make([]Rule, 0, len(models.AllDimensions))
	for _, dim := range models.AllDimensions {
		rules = append(rules, &stubRule{dimension: dim, value: value})
	}
	return rules
}

func newTestAggregator(t *testing.T, rules []Rule, store *memorySnapshotStorage) *Aggregator {
	t.Helper()
	agg, err := NewAggregator(rules, testRiskConfig(), store, common.GetLogger())
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	return agg
}

func TestLevelForScore(t *testing.T) {
	tests := []struct {
		score    float64
		expected models.RiskLevel
	}{
		{0, models.RiskLevelLow},
		{2.99, models.RiskLevelLow},
		{3.0, models.RiskLevelMedium},
		{5.99, models.RiskLevelMedium},
		{6.0, models.RiskLevelHigh},
		{7.99, models.RiskLevelHigh},
		{8.0, models.RiskLevelCritical},
		{10.0, models.RiskLevelCritical},
	}

	for _, tt := range tests {
		if got := LevelForScore(tt.score); got != tt.expected {
			t.Errorf("LevelForScore(%v) = %v, want %v", tt.score, got, tt.expected)
		}
	}
}

func TestComputeSnapshotUniformScores(t *testing.T) {
	store := newMemorySnapshotStorage()
	agg := newTestAggregator(t, uniformRules(5.0), store)

	snap, err := agg.ComputeSnapshot(context.Background(), "ACME", day(10))
	if err != nil {
		t.Fatalf("ComputeSnapshot: %v", err)
	}

	if math.Abs(snap.Composite-5.0) > 1e-9 {
		t.Errorf("composite = %v, want 5.0", snap.Composite)
	}
	if snap.Level != models.RiskLevelMedium {
		t.Errorf("level = %v, want medium", snap.Level)
	}
	if snap.Partial {
		t.Error("expected complete snapshot")
	}
	if len(snap.SubScores) != len(models.AllDimensions) {
		t.Errorf("got %d sub-scores, want %d", len(snap.SubScores), len(models.AllDimensions))
	}
}

func TestComputeSnapshotWeightedComposite(t *testing.T) {
	rules := []Rule{
		&stubRule{dimension: models.DimensionVolatility, value: 10},
		&stubRule{dimension: models.DimensionLitigation, value: 0},
		&stubRule{dimension: models.DimensionSentiment, value: 0},
		&stubRule{dimension: models.DimensionFinancial, value: 0},
		&stubRule{dimension: models.DimensionRegulatory, value: 0},
	}
	agg := newTestAggregator(t, rules, newMemorySnapshotStorage())

	snap, err := agg.ComputeSnapshot(context.Background(), "ACME", day(10))
	if err != nil {
		t.Fatalf("ComputeSnapshot: %v", err)
	}

	// Only volatility contributes, at its 0.30 weight
	if math.Abs(snap.Composite-3.0) > 1e-9 {
		t.Errorf("composite = %v, want 3.0", snap.Composite)
	}
}

func TestComputeSnapshotNeutralSubstitution(t *testing.T) {
	rules := []Rule{
		&stubRule{dimension: models.DimensionVolatility, value: 5},
		&stubRule{dimension: models.DimensionLitigation, value: 5},
		&stubRule{dimension: models.DimensionSentiment, err: fmt.Errorf("empty window: %w", common.ErrDataUnavailable)},
		&stubRule{dimension: models.DimensionFinancial, value: 5},
		&stubRule{dimension: models.DimensionRegulatory, value: 5},
	}
	agg := newTestAggregator(t, rules, newMemorySnapshotStorage())

	snap, err := agg.ComputeSnapshot(context.Background(), "ACME", day(10))
	if err != nil {
		t.Fatalf("ComputeSnapshot: %v", err)
	}

	if !snap.Partial {
		t.Error("expected partial snapshot")
	}
	if len(snap.MissingDimensions) != 1 || snap.MissingDimensions[0] != models.DimensionSentiment {
		t.Errorf("missing dimensions = %v", snap.MissingDimensions)
	}
	if snap.SubScores[models.DimensionSentiment].Value != NeutralScore {
		t.Errorf("substituted value = %v, want %v",
			snap.SubScores[models.DimensionSentiment].Value, NeutralScore)
	}
	if math.Abs(snap.Composite-5.0) > 1e-9 {
		t.Errorf("composite = %v, want 5.0", snap.Composite)
	}
}

func TestComputeSnapshotHardFailureAborts(t *testing.T) {
	rules := []Rule{
		&stubRule{dimension: models.DimensionVolatility, value: 5},
		&stubRule{dimension: models.DimensionLitigation, err: errors.New("storage corrupted")},
		&stubRule{dimension: models.DimensionSentiment, value: 5},
		&stubRule{dimension: models.DimensionFinancial, value: 5},
		&stubRule{dimension: models.DimensionRegulatory, value: 5},
	}
	store := newMemorySnapshotStorage()
	agg := newTestAggregator(t, rules, store)

	_, err := agg.ComputeSnapshot(context.Background(), "ACME", day(10))
	if err == nil {
		t.Fatal("expected error from hard dimension failure")
	}
	if store.saves != 0 {
		t.Errorf("snapshot persisted despite failure, saves = %d", store.saves)
	}
}

func TestComputeSnapshotPersistsBeforeReturning(t *testing.T) {
	store := newMemorySnapshotStorage()
	agg := newTestAggregator(t, uniformRules(7.0), store)

	snap, err := agg.ComputeSnapshot(context.Background(), "ACME", day(10))
	if err != nil {
		t.Fatalf("ComputeSnapshot: %v", err)
	}

	persisted, err := store.GetLatestSnapshot("ACME", day(10))
	if err != nil {
		t.Fatalf("GetLatestSnapshot: %v", err)
	}
	if persisted == nil {
		t.Fatal("snapshot not persisted")
	}
	if persisted.Composite != snap.Composite {
		t.Errorf("persisted composite = %v, returned %v", persisted.Composite, snap.Composite)
	}
}

func TestComputeSnapshotRecomputeOverwrites(t *testing.T) {
	store := newMemorySnapshotStorage()
	agg := newTestAggregator(t, uniformRules(4.0), store)

	asOf := day(10)
	if _, err := agg.ComputeSnapshot(context.Background(), "ACME", asOf); err != nil {
		t.Fatalf("first compute: %v", err)
	}
	if _, err := agg.ComputeSnapshot(context.Background(), "ACME", asOf); err != nil {
		t.Fatalf("second compute: %v", err)
	}

	timeline, err := store.GetTimeline("ACME", asOf.AddDate(0, 0, -1), asOf.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("GetTimeline: %v", err)
	}
	if len(timeline) != 1 {
		t.Errorf("expected 1 snapshot after recompute, got %d", len(timeline))
	}
}

func TestComputeBatchIsolatesFailures(t *testing.T) {
	store := newMemorySnapshotStorage()

	rules := make([]Rule, 0, len(models.AllDimensions))
	for _, dim := range models.AllDimensions {
		dim := dim
		rules = append(rules, &tickerSwitchRule{dimension: dim})
	}
	agg := newTestAggregator(t, rules, store)

	results := agg.ComputeBatch(context.Background(), []string{"GOOD", "BAD", "ALSO_GOOD"}, day(10))

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results["GOOD"].Error != "" || results["GOOD"].Snapshot == nil {
		t.Errorf("GOOD should succeed: %+v", results["GOOD"])
	}
	if results["ALSO_GOOD"].Error != "" || results["ALSO_GOOD"].Snapshot == nil {
		t.Errorf("ALSO_GOOD should succeed: %+v", results["ALSO_GOOD"])
	}
	if results["BAD"].Error == "" {
		t.Error("BAD should report an error")
	}
	if results["BAD"].Snapshot != nil {
		t.Error("BAD should not carry a snapshot")
	}
}

// tickerSwitchRule fails hard for the BAD ticker and scores 5 otherwise
type tickerSwitchRule struct {
	dimension models.Dimension
}

func (r *tickerSwitchRule) Dimension() models.Dimension { return r.dimension }

func (r *tickerSwitchRule) Normalize(ctx context.Context, ticker string, asOf time.Time) (models.SubScore, error) {
	if ticker == "BAD" {
		return models.SubScore{}, errors.New("feed offline")
	}
	return models.SubScore{Dimension: r.dimension, Ticker: ticker, Value: 5, Timestamp: asOf}, nil
}

// A rule stuck past the dimension timeout must not stall the snapshot: the
// stuck dimension is replaced by the neutral midpoint and flagged partial.
func TestComputeSnapshotBoundsSlowDimension(t *testing.T) {
	cfg := testRiskConfig()
	cfg.DimensionTimeout = "100ms"

	rules := []Rule{
		&stubRule{dimension: models.DimensionVolatility, value: 5},
		&stubRule{dimension: models.DimensionLitigation, value: 5},
		&stubRule{dimension: models.DimensionSentiment, value: 9, delay: 500 * time.Millisecond},
		&stubRule{dimension: models.DimensionFinancial, value: 5},
		&stubRule{dimension: models.DimensionRegulatory, value: 5},
	}
	store := newMemorySnapshotStorage()
	agg, err := NewAggregator(rules, cfg, store, common.GetLogger())
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}

	start := time.Now()
	snap, err := agg.ComputeSnapshot(context.Background(), "ACME", day(10))
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("ComputeSnapshot: %v", err)
	}

	if elapsed >= 400*time.Millisecond {
		t.Errorf("snapshot took %v, want bounded by the 100ms dimension timeout", elapsed)
	}
	if !snap.Partial {
		t.Error("expected partial snapshot")
	}
	if len(snap.MissingDimensions) != 1 || snap.MissingDimensions[0] != models.DimensionSentiment {
		t.Errorf("missing dimensions = %v, want [sentiment]", snap.MissingDimensions)
	}
	if snap.SubScores[models.DimensionSentiment].Value != NeutralScore {
		t.Errorf("stuck dimension value = %v, want neutral %v",
			snap.SubScores[models.DimensionSentiment].Value, NeutralScore)
	}
}

func TestComputeSnapshotPanickingRuleDoesNotHang(t *testing.T) {
	rules := []Rule{
		&stubRule{dimension: models.DimensionVolatility, panics: true},
		&stubRule{dimension: models.DimensionLitigation, value: 5},
		&stubRule{dimension: models.DimensionSentiment, value: 5},
		&stubRule{dimension: models.DimensionFinancial, value: 5},
		&stubRule{dimension: models.DimensionRegulatory, value: 5},
	}
	store := newMemorySnapshotStorage()
	agg := newTestAggregator(t, rules, store)

	type outcome struct {
		snap *models.RiskSnapshot
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		snap, err := agg.ComputeSnapshot(context.Background(), "ACME", day(10))
		done <- outcome{snap, err}
	}()

	select {
	case res := <-done:
		if res.err == nil {
			t.Fatal("expected error from panicking rule")
		}
		if res.snap != nil {
			t.Error("panicking rule should not yield a snapshot")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ComputeSnapshot did not return after a rule panicked")
	}
	if store.saves != 0 {
		t.Errorf("snapshot persisted despite panic, saves = %d", store.saves)
	}
}

func TestComputeBatchIsolatesPanics(t *testing.T) {
	store := newMemorySnapshotStorage()

	rules := make([]Rule, 0, len(models.AllDimensions))
	for _, dim := range models.AllDimensions {
		rules = append(rules, &panicSwitchRule{dimension: dim})
	}
	agg := newTestAggregator(t, rules, store)

	results := agg.ComputeBatch(context.Background(), []string{"GOOD", "POISON"}, day(10))

	if results["GOOD"].Error != "" || results["GOOD"].Snapshot == nil {
		t.Errorf("GOOD should succeed: %+v", results["GOOD"])
	}
	if results["POISON"].Error == "" {
		t.Error("POISON should report an error")
	}
	if results["POISON"].Snapshot != nil {
		t.Error("POISON should not carry a snapshot")
	}
}

// panicSwitchRule panics for the POISON ticker and scores 5 otherwise
type panicSwitchRule struct {
	dimension models.Dimension
}

func (r *panicSwitchRule) Dimension() models.Dimension { return r.dimension }

func (r *panicSwitchRule) Normalize(ctx context.Context, ticker string, asOf time.Time) (models.SubScore, error) {
	if ticker == "POISON" {
		panic("poisoned feed")
	}
	return models.SubScore{Dimension: r.dimension, Ticker: ticker, Value: 5, Timestamp: asOf}, nil
}

// Snapshots computed within the same second share one storage key, so the
// stored timestamp must carry the same second precision as the key.
func TestComputeSnapshotTimestampMatchesKeyPrecision(t *testing.T) {
	store := newMemorySnapshotStorage()
	agg := newTestAggregator(t, uniformRules(4.0), store)

	asOf := day(10).Add(123456789 * time.Nanosecond)
	snap, err := agg.ComputeSnapshot(context.Background(), "ACME", asOf)
	if err != nil {
		t.Fatalf("first compute: %v", err)
	}
	if snap.Timestamp.Nanosecond() != 0 {
		t.Errorf("timestamp carries sub-second precision: %v", snap.Timestamp)
	}
	if !snap.Timestamp.Equal(asOf.UTC().Truncate(time.Second)) {
		t.Errorf("timestamp = %v, want %v", snap.Timestamp, asOf.UTC().Truncate(time.Second))
	}

	// A second compute later in the same second overwrites, not duplicates
	if _, err := agg.ComputeSnapshot(context.Background(), "ACME", day(10).Add(987654321*time.Nanosecond)); err != nil {
		t.Fatalf("second compute: %v", err)
	}
	timeline, err := store.GetTimeline("ACME", day(9), day(11))
	if err != nil {
		t.Fatalf("GetTimeline: %v", err)
	}
	if len(timeline) != 1 {
		t.Errorf("expected 1 snapshot after same-second recompute, got %d", len(timeline))
	}
}

func TestNewAggregatorRejectsBadWeights(t *testing.T) {
	cfg := testRiskConfig()
	cfg.WeightVolatility = 0.9 // sum now exceeds 1.0

	_, err := NewAggregator(uniformRules(5), cfg, newMemorySnapshotStorage(), common.GetLogger())
	if !errors.Is(err, common.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestNewAggregatorRejectsMissingDimension(t *testing.T) {
	rules := uniformRules(5)[:4]

	_, err := NewAggregator(rules, testRiskConfig(), newMemorySnapshotStorage(), common.GetLogger())
	if !errors.Is(err, common.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
}
