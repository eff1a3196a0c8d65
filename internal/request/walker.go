package request

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lmoretti/finquery/internal/compare"
	"github.com/lmoretti/finquery/internal/logger"
	"github.com/lmoretti/finquery/internal/metrics"
)

// maxLeafFanOut bounds concurrent leaf resolutions within one request.
const maxLeafFanOut = 8

// No-data messages mirrored into compare leaves when every ticker of a
// sub-metric is unavailable.
const (
	noReturnData       = "No data available for tickers"
	noVolatilityData   = "No volatility data available for tickers"
	noFundamentalsData = "No fundamentals data available for tickers"
	noMaxMinData       = "No max/min data available for tickers"
)

// Walker resolves every leaf of a parsed Request into a metric value,
// a comparison aggregate, or null.
type Walker struct {
	resolver   *metrics.Resolver
	comparator *compare.Comparator
}

// NewWalker creates a Walker over the given resolver and comparator.
func NewWalker(r *metrics.Resolver, c *compare.Comparator) *Walker {
	return &Walker{resolver: r, comparator: c}
}

// Resolve traverses req and returns the populated result in the same nested
// shape the oracle produced (metric -> ticker -> period -> value).
//
// Leaves are resolved concurrently; failure of one leaf (including a panic)
// becomes a null value for that leaf only and never cancels siblings. Compare
// branches assign the identical aggregate to every ticker/period leaf sharing
// a period: consumers are allowed to read any one ticker's slot, so the
// redundancy is preserved while the aggregate itself is computed only once
// per (sub-metric, period).
func (w *Walker) Resolve(ctx context.Context, req *Request) map[string]any {
	result := make(map[string]any, len(req.Metrics)+1)

	g := new(errgroup.Group)
	g.SetLimit(maxLeafFanOut)
	var mu sync.Mutex

	for _, branch := range req.Metrics {
		branchOut := make(map[string]any, len(branch.Tickers))
		result[string(branch.Metric)] = branchOut
		w.resolveBranch(ctx, g, &mu, branch, branchOut)
	}
	_ = g.Wait()

	if len(req.Compare) > 0 {
		compareOut := make(map[string]any, len(req.Compare))
		result["compare"] = compareOut
		for _, branch := range req.Compare {
			compareOut[string(branch.Metric)] = w.resolveCompare(ctx, branch)
		}
	}

	return result
}

// resolveBranch schedules one leaf job per (ticker, period) of a non-compare
// branch. Fundamentals resolves once per ticker with no period level.
func (w *Walker) resolveBranch(ctx context.Context, g *errgroup.Group, mu *sync.Mutex, branch Branch, out map[string]any) {
	for _, tp := range branch.Tickers {
		tp := tp
		if branch.Metric == MetricFundamentals {
			g.Go(func() error {
				value := w.resolveLeaf(ctx, branch.Metric, tp.Ticker, "")
				mu.Lock()
				out[tp.Ticker] = value
				mu.Unlock()
				return nil
			})
			continue
		}

		periodsOut := make(map[string]any, len(tp.Periods))
		mu.Lock()
		out[tp.Ticker] = periodsOut
		mu.Unlock()
		for _, period := range tp.Periods {
			period := period
			g.Go(func() error {
				value := w.resolveLeaf(ctx, branch.Metric, tp.Ticker, period)
				mu.Lock()
				periodsOut[period] = value
				mu.Unlock()
				return nil
			})
		}
	}
}

// resolveLeaf computes one metric value, absorbing panics into null.
func (w *Walker) resolveLeaf(ctx context.Context, metric Metric, ticker, period string) (value any) {
	defer func() {
		if r := recover(); r != nil {
			logger.Component("walker").Warn().
				Str("metric", string(metric)).
				Str("ticker", ticker).
				Str("period", period).
				Interface("panic", r).
				Msg("leaf resolution panicked")
			value = nil
		}
	}()

	switch metric {
	case MetricReturn:
		if v, ok := w.resolver.Return(ctx, ticker, period); ok {
			return v
		}
	case MetricVolatility:
		if v, ok := w.resolver.Volatility(ctx, ticker, period); ok {
			return v
		}
	case MetricMaxMin:
		if v, ok := w.resolver.MaxMin(ctx, ticker, period); ok {
			return v
		}
	case MetricFundamentals:
		if f := w.resolver.Fundamentals(ctx, ticker); f != nil {
			return f
		}
	}
	return nil
}

// resolveCompare builds the ticker -> period -> aggregate map for one compare
// sub-metric. The aggregate for a period is computed once over all tickers of
// the branch and copied into every ticker's slot for that period.
func (w *Walker) resolveCompare(ctx context.Context, branch Branch) map[string]any {
	tickers := branch.TickerList()
	cache := make(map[string]any)

	aggregate := func(period string) any {
		if v, ok := cache[period]; ok {
			return v
		}
		v := w.compareLeaf(ctx, branch.Metric, tickers, period)
		cache[period] = v
		return v
	}

	out := make(map[string]any, len(branch.Tickers))
	for _, tp := range branch.Tickers {
		tp := tp
		if branch.Metric == MetricFundamentals {
			// Fundamentals comparison is period-independent, but the parsed
			// request keeps any period keys under each ticker so the
			// aggregate still lands at the ticker/period leaf.
			periodsOut := make(map[string]any, len(tp.Periods))
			for _, period := range tp.Periods {
				periodsOut[period] = aggregate("")
			}
			if len(tp.Periods) == 0 {
				out[tp.Ticker] = aggregate("")
				continue
			}
			out[tp.Ticker] = periodsOut
			continue
		}

		periodsOut := make(map[string]any, len(tp.Periods))
		for _, period := range tp.Periods {
			periodsOut[period] = aggregate(period)
		}
		out[tp.Ticker] = periodsOut
	}
	return out
}

// compareLeaf runs one comparator, absorbing panics and mapping no-data to
// the explicit error object consumers expect.
func (w *Walker) compareLeaf(ctx context.Context, metric Metric, tickers []string, period string) (value any) {
	defer func() {
		if r := recover(); r != nil {
			logger.Component("walker").Warn().
				Str("metric", string(metric)).
				Str("period", period).
				Interface("panic", r).
				Msg("comparison panicked")
			value = nil
		}
	}()

	switch metric {
	case MetricReturn:
		if cmp, ok := w.comparator.Returns(ctx, tickers, period); ok {
			return cmp
		}
		return map[string]string{"error": noReturnData}
	case MetricVolatility:
		if cmp, ok := w.comparator.Volatility(ctx, tickers, period); ok {
			return cmp
		}
		return map[string]string{"error": noVolatilityData}
	case MetricMaxMin:
		if cmp, ok := w.comparator.MaxMin(ctx, tickers, period); ok {
			return cmp
		}
		return map[string]string{"error": noMaxMinData}
	case MetricFundamentals:
		if cmp, ok := w.comparator.Fundamentals(ctx, tickers); ok {
			return cmp
		}
		return map[string]string{"error": noFundamentalsData}
	}
	return nil
}
