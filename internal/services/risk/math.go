package risk

import (
	"math"
	"time"

	"github.com/marketmoves/marketmoves/internal/models"
)

// TradingDaysPerYear is the annualization factor for daily volatility
const TradingDaysPerYear = 252

// Return is one day's log return
type Return struct {
	Date  time.Time
	Value float64
}

// Mean calculates the arithmetic mean
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Stddev calculates standard deviation
func Stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	mean := Mean(values)

	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))

	return math.Sqrt(variance)
}

// DailyLogReturns calculates daily log returns from price observations.
// Observations must be ordered ascending by date; each return carries the date
// of the later observation.
func DailyLogReturns(prices []*models.PriceObservation) []Return {
	if len(prices) < 2 {
		return nil
	}

	returns := make([]Return, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1].Close > 0 && prices[i].Close > 0 {
			returns = append(returns, Return{
				Date:  prices[i].Date,
				Value: math.Log(prices[i].Close / prices[i-1].Close),
			})
		}
	}
	return returns
}

// AnnualizedVolatility computes the annualized standard deviation of daily
// log returns
func AnnualizedVolatility(returns []Return) float64 {
	if len(returns) == 0 {
		return 0
	}
	values := make([]float64, len(returns))
	for i, r := range returns {
		values[i] = r.Value
	}
	return Stddev(values) * math.Sqrt(TradingDaysPerYear)
}

// ClampScore constrains a sub-score to the [0,10] range
func ClampScore(value float64) float64 {
	return ClampFloat64(value, 0, 10)
}

// ClampFloat64 constrains a value to a range
func ClampFloat64(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
