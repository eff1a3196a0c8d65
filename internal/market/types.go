package market

import (
	"context"
	"time"
)

// Point is one daily observation of a ticker's closing price.
type Point struct {
	Time  time.Time `json:"time"`
	Close float64   `json:"close"`
}

// Series is an ordered (chronological) sequence of closing prices for one
// ticker over one period. An empty series signals "unavailable".
type Series []Point

// Closes returns just the closing prices, in chronological order.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Close
	}
	return out
}

// Fundamentals is a fixed set of named attributes for one ticker.
//
// Each attribute is independently optional: a nil pointer marshals to JSON
// null and the absence of one attribute does not invalidate the others.
// Field names follow the upstream provider vocabulary.
type Fundamentals struct {
	Name          *string  `json:"longName"`
	MarketCap     *float64 `json:"marketCap"`
	PERatio       *float64 `json:"peRatio"`
	EPS           *float64 `json:"eps"`
	DividendYield *float64 `json:"dividendYield"`
	DebtToEquity  *float64 `json:"debtToEquity"`
}

// Source is the market data provider boundary.
//
// Periods are opaque tokens the provider understands (relative windows such
// as "3mo" or "ytd", or a literal year like "2022"); they are not validated
// locally. Unknown tickers and invalid periods surface as errors or empty
// series, never as panics.
type Source interface {
	FetchSeries(ctx context.Context, ticker, period string) (Series, error)
	FetchFundamentals(ctx context.Context, ticker string) (*Fundamentals, error)
}
