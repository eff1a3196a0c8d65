// Package request defines the structured request produced by the text oracle
// and the walker that resolves it into concrete metric values.
//
// The oracle's raw JSON is validated once, up front, into a typed tree;
// traversal then never needs ad-hoc shape checks. Ticker and period order is
// preserved from the oracle output, which makes comparator tie-breaking
// deterministic.
package request

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Metric names the fixed set of resolvable metrics.
type Metric string

const (
	MetricReturn       Metric = "return"
	MetricVolatility   Metric = "volatility"
	MetricFundamentals Metric = "fundamentals"
	MetricMaxMin       Metric = "max_min"
)

// ErrBadShape marks a structured request whose JSON is valid but whose shape
// is unrecognizable (not an object, unknown branch name, non-object nesting).
// This is a request-level failure: nothing in such a request can be resolved.
var ErrBadShape = errors.New("unrecognized request shape")

// TickerPeriods lists the periods requested for one ticker, in oracle order.
// Fundamentals entries carry no periods.
type TickerPeriods struct {
	Ticker  string
	Periods []string
}

// Branch is one metric branch: the metric plus its tickers in request order.
type Branch struct {
	Metric  Metric
	Tickers []TickerPeriods
}

// Request is the typed form of the oracle's structured request: top-level
// metric branches plus the optional compare branches nested one level deeper.
type Request struct {
	Metrics []Branch
	Compare []Branch
}

// TickerList returns the branch's tickers in request order.
func (b Branch) TickerList() []string {
	out := make([]string, len(b.Tickers))
	for i, tp := range b.Tickers {
		out[i] = tp.Ticker
	}
	return out
}

func knownMetric(name string) (Metric, bool) {
	switch Metric(name) {
	case MetricReturn, MetricVolatility, MetricFundamentals, MetricMaxMin:
		return Metric(name), true
	}
	return "", false
}

// Parse validates raw oracle output into a typed Request.
//
// Errors are either JSON syntax errors (the oracle produced non-JSON text) or
// wrap ErrBadShape (valid JSON in an unrecognizable shape); callers can tell
// the two apart with errors.Is.
func Parse(raw []byte) (*Request, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	if err := expectDelim(dec, '{', "top level"); err != nil {
		return nil, err
	}

	req := &Request{}
	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if name == "compare" {
			branches, err := parseCompare(dec)
			if err != nil {
				return nil, err
			}
			req.Compare = branches
			continue
		}
		metric, ok := knownMetric(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown branch %q", ErrBadShape, name)
		}
		tickers, err := parseTickers(dec, metric, false)
		if err != nil {
			return nil, err
		}
		req.Metrics = append(req.Metrics, Branch{Metric: metric, Tickers: tickers})
	}
	if err := closeDelim(dec, '}'); err != nil {
		return nil, err
	}
	return req, nil
}

// parseCompare parses the compare branch: sub-metric -> ticker -> periods.
func parseCompare(dec *json.Decoder) ([]Branch, error) {
	if err := expectDelim(dec, '{', "compare branch"); err != nil {
		return nil, err
	}
	var branches []Branch
	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		metric, ok := knownMetric(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown compare sub-metric %q", ErrBadShape, name)
		}
		tickers, err := parseTickers(dec, metric, true)
		if err != nil {
			return nil, err
		}
		branches = append(branches, Branch{Metric: metric, Tickers: tickers})
	}
	if err := closeDelim(dec, '}'); err != nil {
		return nil, err
	}
	return branches, nil
}

// parseTickers parses ticker -> periods for one branch. Top-level fundamentals
// leaves may be null or an object, and carry no period level either way.
// Under compare, fundamentals leaves keep their period keys so the aggregate
// can be assigned at every ticker/period leaf; every other metric requires an
// object of period -> placeholder.
func parseTickers(dec *json.Decoder, metric Metric, inCompare bool) ([]TickerPeriods, error) {
	if err := expectDelim(dec, '{', string(metric)+" branch"); err != nil {
		return nil, err
	}
	var tickers []TickerPeriods
	for dec.More() {
		ticker, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if metric == MetricFundamentals {
			if inCompare {
				periods, err := parseOptionalPeriods(dec)
				if err != nil {
					return nil, err
				}
				tickers = append(tickers, TickerPeriods{Ticker: ticker, Periods: periods})
				continue
			}
			if err := skipValue(dec); err != nil {
				return nil, err
			}
			tickers = append(tickers, TickerPeriods{Ticker: ticker})
			continue
		}
		periods, err := parsePeriods(dec, ticker)
		if err != nil {
			return nil, err
		}
		tickers = append(tickers, TickerPeriods{Ticker: ticker, Periods: periods})
	}
	if err := closeDelim(dec, '}'); err != nil {
		return nil, err
	}
	return tickers, nil
}

// parsePeriods parses period -> placeholder for one ticker, keeping order and
// discarding placeholder values.
func parsePeriods(dec *json.Decoder, ticker string) ([]string, error) {
	if err := expectDelim(dec, '{', "periods for "+ticker); err != nil {
		return nil, err
	}
	var periods []string
	for dec.More() {
		period, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if err := skipValue(dec); err != nil {
			return nil, err
		}
		periods = append(periods, period)
	}
	if err := closeDelim(dec, '}'); err != nil {
		return nil, err
	}
	return periods, nil
}

// parseOptionalPeriods parses a leaf that is either null (no period level) or
// an object of period -> placeholder, keeping key order.
func parseOptionalPeriods(dec *json.Decoder) ([]string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return nil, nil // null (or scalar placeholder)
	}
	if d != '{' {
		return nil, fmt.Errorf("%w: fundamentals leaf must be null or an object", ErrBadShape)
	}
	var periods []string
	for dec.More() {
		period, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if err := skipValue(dec); err != nil {
			return nil, err
		}
		periods = append(periods, period)
	}
	if err := closeDelim(dec, '}'); err != nil {
		return nil, err
	}
	return periods, nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected object key, got %v", ErrBadShape, tok)
	}
	return key, nil
}

func expectDelim(dec *json.Decoder, want json.Delim, where string) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: %s must be an object", ErrBadShape, where)
	}
	return nil
}

func closeDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: unbalanced object", ErrBadShape)
	}
	return nil
}

// skipValue consumes and discards one JSON value of any shape.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return nil // scalar
	}
	switch d {
	case '{', '[':
		for dec.More() {
			if err := skipValue(dec); err != nil {
				return err
			}
		}
		_, err := dec.Token() // closing delim
		return err
	default:
		return fmt.Errorf("%w: unexpected %v", ErrBadShape, d)
	}
}
