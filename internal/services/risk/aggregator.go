package risk

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/marketmoves/marketmoves/internal/common"
	"github.com/marketmoves/marketmoves/internal/interfaces"
	"github.com/marketmoves/marketmoves/internal/models"
)

// Level thresholds on the composite score. Closed on the lower edge, open on
// the upper, except Critical which includes 10.
const (
	ThresholdMedium   = 3.0
	ThresholdHigh     = 6.0
	ThresholdCritical = 8.0
)

// Aggregator combines the five dimension sub-scores into a weighted composite,
// classifies it, and persists the snapshot timeline.
type Aggregator struct {
	rules            []Rule
	weights          map[models.Dimension]float64
	snapshots        interfaces.SnapshotStorage
	dimensionTimeout time.Duration
	batchConcurrency int
	logger           arbor.ILogger
}

// NewAggregator creates an aggregator from the configured weights and rules.
// Weights must cover every dimension exactly once and sum to 1.0; anything
// else is ErrInvalidConfiguration.
func NewAggregator(rules []Rule, cfg common.RiskConfig, snapshots interfaces.SnapshotStorage, logger arbor.ILogger) (*Aggregator, error) {
	weights := map[models.Dimension]float64{
		models.DimensionVolatility: cfg.WeightVolatility,
		models.DimensionLitigation: cfg.WeightLitigation,
		models.DimensionSentiment:  cfg.WeightSentiment,
		models.DimensionFinancial:  cfg.WeightFinancial,
		models.DimensionRegulatory: cfg.WeightRegulatory,
	}

	sum := 0.0
	for _, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("%w: negative risk weight", common.ErrInvalidConfiguration)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return nil, fmt.Errorf("%w: risk weights sum to %.4f, must sum to 1.0", common.ErrInvalidConfiguration, sum)
	}

	seen := make(map[models.Dimension]bool, len(rules))
	for _, r := range rules {
		if seen[r.Dimension()] {
			return nil, fmt.Errorf("%w: duplicate rule for dimension %s", common.ErrInvalidConfiguration, r.Dimension())
		}
		seen[r.Dimension()] = true
	}
	for _, dim := range models.AllDimensions {
		if !seen[dim] {
			return nil, fmt.Errorf("%w: no rule for dimension %s", common.ErrInvalidConfiguration, dim)
		}
	}

	timeout, err := time.ParseDuration(cfg.DimensionTimeoutOrDefault())
	if err != nil {
		return nil, fmt.Errorf("%w: bad dimension_timeout: %v", common.ErrInvalidConfiguration, err)
	}

	concurrency := cfg.BatchConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &Aggregator{
		rules:            rules,
		weights:          weights,
		snapshots:        snapshots,
		dimensionTimeout: timeout,
		batchConcurrency: concurrency,
		logger:           logger,
	}, nil
}

// LevelForScore classifies a composite score into a risk level
func LevelForScore(score float64) models.RiskLevel {
	switch {
	case score < ThresholdMedium:
		return models.RiskLevelLow
	case score < ThresholdHigh:
		return models.RiskLevelMedium
	case score < ThresholdCritical:
		return models.RiskLevelHigh
	default:
		return models.RiskLevelCritical
	}
}

type dimensionResult struct {
	dimension models.Dimension
	score     models.SubScore
	err       error
}

// ComputeSnapshot computes, persists, and returns the composite snapshot for
// the entity as of the given time. Dimension rules run concurrently; each is
// bounded by the configured per-dimension timeout, and a timed-out or
// data-less dimension is replaced by the neutral midpoint with the snapshot
// flagged partial. The snapshot is persisted before it is returned; the write
// is keyed by (ticker, timestamp), so recomputation overwrites
// deterministically.
func (a *Aggregator) ComputeSnapshot(ctx context.Context, ticker string, asOf time.Time) (*models.RiskSnapshot, error) {
	// Buffered so rule goroutines never block sending, even when the fan-in
	// has already given up on them.
	results := make(chan dimensionResult, len(a.rules))

	for _, rule := range a.rules {
		rule := rule
		common.SafeGo(a.logger, "normalize_"+string(rule.Dimension()), func() {
			dimCtx, cancel := context.WithTimeout(ctx, a.dimensionTimeout)
			defer cancel()

			// A panicking rule must still report, or the fan-in would wait
			// on it forever.
			defer func() {
				if r := recover(); r != nil {
					results <- dimensionResult{
						dimension: rule.Dimension(),
						err:       fmt.Errorf("rule panicked: %v", r),
					}
				}
			}()

			score, err := rule.Normalize(dimCtx, ticker, asOf)
			results <- dimensionResult{dimension: rule.Dimension(), score: score, err: err}
		})
	}

	subScores := make(map[models.Dimension]models.SubScore, len(a.rules))
	var missing []models.Dimension
	done := make(map[models.Dimension]bool, len(a.rules))

	collect := func(res dimensionResult) error {
		done[res.dimension] = true
		switch {
		case res.err == nil:
			subScores[res.dimension] = res.score
		case errors.Is(res.err, common.ErrDataUnavailable),
			errors.Is(res.err, context.DeadlineExceeded),
			errors.Is(res.err, common.ErrTimeout):
			a.logger.Debug().
				Str("ticker", ticker).
				Str("dimension", string(res.dimension)).
				Err(res.err).
				Msg("Dimension unavailable - substituting neutral midpoint")
			missing = append(missing, res.dimension)
		default:
			return fmt.Errorf("dimension %s failed for %s: %w", res.dimension, ticker, res.err)
		}
		return nil
	}

	// The timer backstops rules that never observe their context: when it
	// fires, every dimension still outstanding is treated as timed out.
	timer := time.NewTimer(a.dimensionTimeout)
	defer timer.Stop()

	for len(done) < len(a.rules) {
		select {
		case res := <-results:
			if err := collect(res); err != nil {
				return nil, err
			}
		case <-timer.C:
			// Take results that arrived alongside the deadline before
			// declaring the rest timed out.
		drain:
			for len(done) < len(a.rules) {
				select {
				case res := <-results:
					if err := collect(res); err != nil {
						return nil, err
					}
				default:
					break drain
				}
			}
			for _, rule := range a.rules {
				dim := rule.Dimension()
				if done[dim] {
					continue
				}
				a.logger.Warn().
					Str("ticker", ticker).
					Str("dimension", string(dim)).
					Dur("timeout", a.dimensionTimeout).
					Msg("Dimension timed out - substituting neutral midpoint")
				missing = append(missing, dim)
				done[dim] = true
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	for _, dim := range missing {
		subScores[dim] = models.SubScore{
			Dimension: dim,
			Ticker:    ticker,
			Value:     NeutralScore,
			Timestamp: asOf,
			Detail:    "no data available - neutral midpoint substituted",
		}
	}

	composite := 0.0
	for dim, weight := range a.weights {
		composite += weight * subScores[dim].Value
	}
	composite = ClampScore(composite)

	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })

	// Timestamp truncated to the second so it matches the second-precision
	// storage key exactly.
	snapshot := &models.RiskSnapshot{
		Ticker:            ticker,
		Timestamp:         asOf.UTC().Truncate(time.Second),
		Composite:         composite,
		Level:             LevelForScore(composite),
		SubScores:         subScores,
		Weights:           a.weights,
		Partial:           len(missing) > 0,
		MissingDimensions: missing,
	}

	if err := a.snapshots.SaveSnapshot(snapshot); err != nil {
		return nil, fmt.Errorf("failed to persist snapshot for %s: %w", ticker, err)
	}

	a.logger.Info().
		Str("ticker", ticker).
		Float64("composite", composite).
		Str("level", string(snapshot.Level)).
		Bool("partial", snapshot.Partial).
		Msg("Computed risk snapshot")

	return snapshot, nil
}

// GetTimeline returns persisted snapshots in [from, to], ascending by
// timestamp. Stateless; safe to call repeatedly with the same bounds.
func (a *Aggregator) GetTimeline(ticker string, from, to time.Time) ([]*models.RiskSnapshot, error) {
	return a.snapshots.GetTimeline(ticker, from, to)
}

// ComputeBatch computes snapshots for many entities in parallel. One entity's
// failure (including a panic in its rules) is isolated and reported in its
// own result; the batch never aborts.
func (a *Aggregator) ComputeBatch(ctx context.Context, tickers []string, asOf time.Time) map[string]BatchResult {
	results := make(map[string]BatchResult, len(tickers))

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, a.batchConcurrency)
	)

	for _, ticker := range tickers {
		ticker := ticker
		wg.Add(1)
		sem <- struct{}{}

		common.SafeGo(a.logger, "batch_"+ticker, func() {
			defer func() {
				// Record the entity as failed if its goroutine panicked before
				// writing a result. SafeGo has already logged the panic.
				mu.Lock()
				if _, ok := results[ticker]; !ok {
					results[ticker] = BatchResult{Error: "computation panicked"}
				}
				mu.Unlock()
				<-sem
				wg.Done()
			}()

			snapshot, err := a.ComputeSnapshot(ctx, ticker, asOf)

			mu.Lock()
			if err != nil {
				results[ticker] = BatchResult{Error: err.Error()}
			} else {
				results[ticker] = BatchResult{Snapshot: snapshot}
			}
			mu.Unlock()
		})
	}

	wg.Wait()
	return results
}
