// Package metrics computes single-ticker metric values from raw market data.
//
// Every resolver converts fetch failures, empty series, and malformed data
// into an explicit "unavailable" result instead of returning an error: callers
// never need failure handling around a single resolver call.
package metrics

import (
	"context"
	"math"

	"github.com/lmoretti/finquery/internal/market"
)

// annualizationFactor converts daily volatility to annual (252 trading days).
var annualizationFactor = math.Sqrt(252)

// PriceRange holds the extreme closing prices of one series.
type PriceRange struct {
	Max float64 `json:"max"`
	Min float64 `json:"min"`
}

// Resolver computes one metric for one (ticker, period) against a data source.
type Resolver struct {
	source market.Source
}

// NewResolver creates a Resolver backed by the given market data source.
func NewResolver(source market.Source) *Resolver {
	return &Resolver{source: source}
}

// Return computes the percentage return between the first and last closes of
// the period, rounded to 2 decimals. The second return value is false when
// the series is unavailable or has no points.
func (r *Resolver) Return(ctx context.Context, ticker, period string) (float64, bool) {
	series, err := r.source.FetchSeries(ctx, ticker, period)
	if err != nil || len(series) == 0 {
		return 0, false
	}
	first := series[0].Close
	last := series[len(series)-1].Close
	if first == 0 {
		return 0, false
	}
	return round2((last - first) / first * 100), true
}

// Volatility computes the annualized volatility of day-over-day percentage
// changes, as a percentage rounded to 2 decimals.
//
// The sample standard deviation needs at least two changes, so series with
// fewer than three points are unavailable.
func (r *Resolver) Volatility(ctx context.Context, ticker, period string) (float64, bool) {
	series, err := r.source.FetchSeries(ctx, ticker, period)
	if err != nil || len(series) < 2 {
		return 0, false
	}

	closes := series.Closes()
	changes := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			return 0, false
		}
		changes = append(changes, (closes[i]-closes[i-1])/closes[i-1])
	}
	if len(changes) < 2 {
		return 0, false
	}

	return round2(sampleStdDev(changes) * annualizationFactor * 100), true
}

// MaxMin returns the highest and lowest closes of the period, each rounded to
// 2 decimals.
func (r *Resolver) MaxMin(ctx context.Context, ticker, period string) (PriceRange, bool) {
	series, err := r.source.FetchSeries(ctx, ticker, period)
	if err != nil || len(series) == 0 {
		return PriceRange{}, false
	}

	maxClose := series[0].Close
	minClose := series[0].Close
	for _, p := range series[1:] {
		if p.Close > maxClose {
			maxClose = p.Close
		}
		if p.Close < minClose {
			minClose = p.Close
		}
	}
	return PriceRange{Max: round2(maxClose), Min: round2(minClose)}, true
}

// Fundamentals returns the fundamentals record for ticker, or nil when the
// fetch fails. Individual attributes may be nil inside a non-nil record.
func (r *Resolver) Fundamentals(ctx context.Context, ticker string) *market.Fundamentals {
	f, err := r.source.FetchFundamentals(ctx, ticker)
	if err != nil {
		return nil
	}
	return f
}

// sampleStdDev computes the sample (n-1) standard deviation. Callers ensure
// len(xs) >= 2.
func sampleStdDev(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(xs)-1))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
