// Package compare aggregates one metric across multiple tickers for a single
// period and derives a ranked comparison.
//
// Partial data never fails a comparison outright: tickers with missing data
// are excluded from the ranking but simply absent from the aggregate maps.
// Only when every ticker is missing does a comparator report "no data"
// (ok=false). Ties are broken by input order: the first ticker in the request
// list wins.
package compare

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/lmoretti/finquery/internal/market"
	"github.com/lmoretti/finquery/internal/metrics"
)

// maxFanOut bounds concurrent per-ticker fetches inside one comparison.
const maxFanOut = 8

// TickerValue names a ticker together with one numeric value.
type TickerValue struct {
	Ticker string  `json:"ticker"`
	Value  float64 `json:"value"`
}

// ReturnComparison ranks tickers by percentage return.
type ReturnComparison struct {
	BestTicker string             `json:"best_ticker"`
	BestReturn float64            `json:"best_return"`
	AllReturns map[string]float64 `json:"all_returns"`
}

// VolatilityComparison reports the least and most volatile tickers.
type VolatilityComparison struct {
	LeastVolatile   string             `json:"least_volatile"`
	LeastVolatility float64            `json:"least_volatility"`
	MostVolatile    string             `json:"most_volatile"`
	MostVolatility  float64            `json:"most_volatility"`
	AllVolatilities map[string]float64 `json:"all_volatilities"`
}

// MaxMinComparison reports independent extrema across tickers: the single
// highest max and the single lowest min, which may belong to different
// tickers.
type MaxMinComparison struct {
	HighestMax TickerValue                   `json:"highest_max"`
	LowestMin  TickerValue                   `json:"lowest_min"`
	AllData    map[string]metrics.PriceRange `json:"all_data"`
}

// FundamentalsComparison holds the per-ticker fundamentals plus one
// best-in-class entry per comparable attribute. A sub-comparison is omitted
// from Analysis when no ticker has a qualifying value for it.
type FundamentalsComparison struct {
	AllFundamentals map[string]*market.Fundamentals `json:"all_fundamentals"`
	Analysis        map[string]TickerValue          `json:"analysis"`
}

// Comparator applies a Resolver across ticker sets.
type Comparator struct {
	resolver *metrics.Resolver
}

// NewComparator creates a Comparator on top of the given resolver.
func NewComparator(r *metrics.Resolver) *Comparator {
	return &Comparator{resolver: r}
}

// gathered is one per-ticker resolution outcome, in input order.
type gathered[T any] struct {
	ticker string
	value  T
	ok     bool
}

// gather runs fn once per ticker with bounded concurrency and joins before
// returning. A panic in one resolution marks that ticker unavailable without
// affecting siblings.
func gather[T any](ctx context.Context, tickers []string, fn func(context.Context, string) (T, bool)) []gathered[T] {
	out := make([]gathered[T], len(tickers))
	g := new(errgroup.Group)
	g.SetLimit(maxFanOut)
	for i, ticker := range tickers {
		i, ticker := i, ticker
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					out[i] = gathered[T]{ticker: ticker}
				}
			}()
			v, ok := fn(ctx, ticker)
			out[i] = gathered[T]{ticker: ticker, value: v, ok: ok}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Returns compares percentage returns and picks the maximum as best.
func (c *Comparator) Returns(ctx context.Context, tickers []string, period string) (*ReturnComparison, bool) {
	results := gather(ctx, tickers, func(ctx context.Context, t string) (float64, bool) {
		return c.resolver.Return(ctx, t, period)
	})

	cmp := &ReturnComparison{AllReturns: make(map[string]float64)}
	found := false
	for _, res := range results {
		if !res.ok {
			continue
		}
		cmp.AllReturns[res.ticker] = res.value
		if !found || res.value > cmp.BestReturn {
			cmp.BestTicker = res.ticker
			cmp.BestReturn = res.value
			found = true
		}
	}
	if !found {
		return nil, false
	}
	return cmp, true
}

// Volatility compares annualized volatilities, reporting both the least
// volatile (least risky) and most volatile (most risky) tickers.
func (c *Comparator) Volatility(ctx context.Context, tickers []string, period string) (*VolatilityComparison, bool) {
	results := gather(ctx, tickers, func(ctx context.Context, t string) (float64, bool) {
		return c.resolver.Volatility(ctx, t, period)
	})

	cmp := &VolatilityComparison{AllVolatilities: make(map[string]float64)}
	found := false
	for _, res := range results {
		if !res.ok {
			continue
		}
		cmp.AllVolatilities[res.ticker] = res.value
		if !found {
			cmp.LeastVolatile, cmp.LeastVolatility = res.ticker, res.value
			cmp.MostVolatile, cmp.MostVolatility = res.ticker, res.value
			found = true
			continue
		}
		if res.value < cmp.LeastVolatility {
			cmp.LeastVolatile, cmp.LeastVolatility = res.ticker, res.value
		}
		if res.value > cmp.MostVolatility {
			cmp.MostVolatile, cmp.MostVolatility = res.ticker, res.value
		}
	}
	if !found {
		return nil, false
	}
	return cmp, true
}

// MaxMin compares price ranges across tickers. The highest max and lowest min
// are independent extrema and may come from different tickers.
func (c *Comparator) MaxMin(ctx context.Context, tickers []string, period string) (*MaxMinComparison, bool) {
	results := gather(ctx, tickers, func(ctx context.Context, t string) (metrics.PriceRange, bool) {
		return c.resolver.MaxMin(ctx, t, period)
	})

	cmp := &MaxMinComparison{AllData: make(map[string]metrics.PriceRange)}
	found := false
	for _, res := range results {
		if !res.ok {
			continue
		}
		cmp.AllData[res.ticker] = res.value
		if !found {
			cmp.HighestMax = TickerValue{Ticker: res.ticker, Value: res.value.Max}
			cmp.LowestMin = TickerValue{Ticker: res.ticker, Value: res.value.Min}
			found = true
			continue
		}
		if res.value.Max > cmp.HighestMax.Value {
			cmp.HighestMax = TickerValue{Ticker: res.ticker, Value: res.value.Max}
		}
		if res.value.Min < cmp.LowestMin.Value {
			cmp.LowestMin = TickerValue{Ticker: res.ticker, Value: res.value.Min}
		}
	}
	if !found {
		return nil, false
	}
	return cmp, true
}

// Fundamentals compares fundamentals attribute by attribute. Each
// sub-comparison is independent: a ticker missing one attribute is only
// excluded from that attribute's ranking.
//
// Preference directions: highest market cap, lowest positive P/E ratio
// (zero or negative ratios are economically meaningless and excluded),
// highest positive dividend yield, lowest positive debt-to-equity.
func (c *Comparator) Fundamentals(ctx context.Context, tickers []string) (*FundamentalsComparison, bool) {
	results := gather(ctx, tickers, func(ctx context.Context, t string) (*market.Fundamentals, bool) {
		f := c.resolver.Fundamentals(ctx, t)
		return f, f != nil
	})

	cmp := &FundamentalsComparison{
		AllFundamentals: make(map[string]*market.Fundamentals),
		Analysis:        make(map[string]TickerValue),
	}
	ordered := make([]gathered[*market.Fundamentals], 0, len(results))
	for _, res := range results {
		if !res.ok {
			continue
		}
		cmp.AllFundamentals[res.ticker] = res.value
		ordered = append(ordered, res)
	}
	if len(ordered) == 0 {
		return nil, false
	}

	pick := func(key string, attr func(*market.Fundamentals) *float64, better func(candidate, current float64) bool, positiveOnly bool) {
		var best *TickerValue
		for _, res := range ordered {
			v := attr(res.value)
			if v == nil || (positiveOnly && *v <= 0) {
				continue
			}
			if best == nil || better(*v, best.Value) {
				best = &TickerValue{Ticker: res.ticker, Value: *v}
			}
		}
		if best != nil {
			cmp.Analysis[key] = *best
		}
	}

	higher := func(candidate, current float64) bool { return candidate > current }
	lower := func(candidate, current float64) bool { return candidate < current }

	pick("largest_market_cap", func(f *market.Fundamentals) *float64 { return f.MarketCap }, higher, false)
	pick("best_pe_ratio", func(f *market.Fundamentals) *float64 { return f.PERatio }, lower, true)
	pick("highest_dividend_yield", func(f *market.Fundamentals) *float64 { return f.DividendYield }, higher, true)
	pick("lowest_debt_to_equity", func(f *market.Fundamentals) *float64 { return f.DebtToEquity }, lower, true)

	return cmp, true
}
