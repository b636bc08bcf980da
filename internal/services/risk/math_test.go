package risk

import (
	"math"
	"testing"
	"time"

	"github.com/marketmoves/marketmoves/internal/models"
)

func day(n int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func priceSeries(ticker string, closes []float64) []*models.PriceObservation {
	obs := make([]*models.PriceObservation, len(closes))
	for i, c := range closes {
		obs[i] = &models.PriceObservation{
			Ticker: ticker,
			Date:   day(i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}
	return obs
}

func TestMean(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"empty", nil, 0},
		{"single", []float64{4.2}, 4.2},
		{"symmetric", []float64{-1, 0, 1}, 0},
		{"uniform", []float64{3, 3, 3, 3}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Mean(tt.values); math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("Mean(%v) = %v, want %v", tt.values, got, tt.expected)
			}
		})
	}
}

func TestStddev(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"empty", nil, 0},
		{"constant", []float64{2, 2, 2}, 0},
		{"known", []float64{2, 4, 4, 4, 5, 5, 7, 9}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Stddev(tt.values); math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Stddev(%v) = %v, want %v", tt.values, got, tt.expected)
			}
		})
	}
}

func TestDailyLogReturns(t *testing.T) {
	prices := priceSeries("TEST", []float64{100, 110, 110, 99})
	returns := DailyLogReturns(prices)

	if len(returns) != 3 {
		t.Fatalf("expected 3 returns, got %d", len(returns))
	}

	expected := []float64{
		math.Log(110.0 / 100.0),
		0,
		math.Log(99.0 / 110.0),
	}
	for i, want := range expected {
		if math.Abs(returns[i].Value-want) > 1e-12 {
			t.Errorf("return %d = %v, want %v", i, returns[i].Value, want)
		}
	}

	// Each return carries the later observation's date
	if !returns[0].Date.Equal(day(1)) {
		t.Errorf("return 0 date = %v, want %v", returns[0].Date, day(1))
	}
}

func TestDailyLogReturnsSkipsNonPositiveCloses(t *testing.T) {
	prices := priceSeries("TEST", []float64{100, 0, 105})
	returns := DailyLogReturns(prices)
	if len(returns) != 0 {
		t.Errorf("expected no returns across zero close, got %d", len(returns))
	}
}

func TestDailyLogReturnsTooFewPrices(t *testing.T) {
	if got := DailyLogReturns(priceSeries("TEST", []float64{100})); got != nil {
		t.Errorf("expected nil for single observation, got %v", got)
	}
}

func TestAnnualizedVolatility(t *testing.T) {
	// Alternating +1%/-1% daily moves
	closes := []float64{100}
	for i := 0; i < 40; i++ {
		if i%2 == 0 {
			closes = append(closes, closes[len(closes)-1]*1.01)
		} else {
			closes = append(closes, closes[len(closes)-1]*0.99)
		}
	}
	returns := DailyLogReturns(priceSeries("TEST", closes))

	got := AnnualizedVolatility(returns)
	if got <= 0 {
		t.Fatalf("expected positive volatility, got %v", got)
	}

	// Daily stddev is about 1%, annualized about 16%
	if got < 0.10 || got > 0.25 {
		t.Errorf("annualized volatility = %v, expected near 0.16", got)
	}
}

func TestAnnualizedVolatilityEmpty(t *testing.T) {
	if got := AnnualizedVolatility(nil); got != 0 {
		t.Errorf("expected 0 for empty returns, got %v", got)
	}
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		value    float64
		expected float64
	}{
		{-3.5, 0},
		{0, 0},
		{5.5, 5.5},
		{10, 10},
		{14.2, 10},
	}

	for _, tt := range tests {
		if got := ClampScore(tt.value); got != tt.expected {
			t.Errorf("ClampScore(%v) = %v, want %v", tt.value, got, tt.expected)
		}
	}
}
