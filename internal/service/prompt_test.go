package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lmoretti/finquery/internal/compare"
	"github.com/lmoretti/finquery/internal/market"
	"github.com/lmoretti/finquery/internal/metrics"
	"github.com/lmoretti/finquery/internal/request"
)

// scriptedOracle returns canned responses in call order.
type scriptedOracle struct {
	responses []string
	errs      []error
	calls     int
}

func (o *scriptedOracle) Complete(_ context.Context, _, _ string) (string, error) {
	i := o.calls
	o.calls++
	var err error
	if i < len(o.errs) {
		err = o.errs[i]
	}
	var resp string
	if i < len(o.responses) {
		resp = o.responses[i]
	}
	return resp, err
}

type fakeSource struct {
	series map[string]market.Series
}

func (f *fakeSource) FetchSeries(_ context.Context, ticker, _ string) (market.Series, error) {
	if s, ok := f.series[ticker]; ok {
		return s, nil
	}
	return nil, errors.New("ticker not found")
}

func (f *fakeSource) FetchFundamentals(_ context.Context, _ string) (*market.Fundamentals, error) {
	return nil, errors.New("not implemented")
}

func newService(o *scriptedOracle, src market.Source) PromptService {
	r := metrics.NewResolver(src)
	return NewPromptService(o, request.NewWalker(r, compare.NewComparator(r)))
}

func aaplSeries() market.Series {
	base := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	return market.Series{
		{Time: base, Close: 100},
		{Time: base.AddDate(0, 0, 1), Close: 112.34},
	}
}

func TestAnalyze_HappyPath(t *testing.T) {
	o := &scriptedOracle{responses: []string{
		"```json\n{\"return\": {\"AAPL\": {\"ytd\": null}}}\n```",
		"AAPL gained 12.34% year to date.",
	}}
	svc := newService(o, &fakeSource{series: map[string]market.Series{"AAPL": aaplSeries()}})

	analysis, err := svc.Analyze(context.Background(), "What is AAPL's return this year?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	leaf := analysis.Result["return"].(map[string]any)["AAPL"].(map[string]any)["ytd"]
	if leaf != 12.34 {
		t.Fatalf("expected 12.34, got %v", leaf)
	}
	if analysis.NaturalLanguage != "AAPL gained 12.34% year to date." {
		t.Fatalf("unexpected narrative: %q", analysis.NaturalLanguage)
	}
	if o.calls != 2 {
		t.Fatalf("expected 2 oracle calls, got %d", o.calls)
	}
}

func TestAnalyze_OracleCallFails(t *testing.T) {
	o := &scriptedOracle{errs: []error{errors.New("upstream down")}}
	svc := newService(o, &fakeSource{})

	_, err := svc.Analyze(context.Background(), "whatever")
	if !errors.Is(err, ErrOracleParse) {
		t.Fatalf("expected ErrOracleParse, got %v", err)
	}
}

func TestAnalyze_OracleReturnsNonJSON(t *testing.T) {
	o := &scriptedOracle{responses: []string{"I cannot answer that."}}
	svc := newService(o, &fakeSource{})

	_, err := svc.Analyze(context.Background(), "whatever")
	if !errors.Is(err, ErrOracleParse) {
		t.Fatalf("expected ErrOracleParse, got %v", err)
	}
}

func TestAnalyze_UnrecognizableShape(t *testing.T) {
	o := &scriptedOracle{responses: []string{`{"momentum": {"AAPL": {"ytd": null}}}`}}
	svc := newService(o, &fakeSource{})

	_, err := svc.Analyze(context.Background(), "whatever")
	if !errors.Is(err, ErrResolution) {
		t.Fatalf("expected ErrResolution, got %v", err)
	}
}

// Summary failure degrades to an inline error string; the structured result
// is still returned with a nil error.
func TestAnalyze_SummaryFailureDegrades(t *testing.T) {
	o := &scriptedOracle{
		responses: []string{`{"return": {"AAPL": {"ytd": null}}}`, ""},
		errs:      []error{nil, errors.New("rate limited")},
	}
	svc := newService(o, &fakeSource{series: map[string]market.Series{"AAPL": aaplSeries()}})

	analysis, err := svc.Analyze(context.Background(), "AAPL ytd return?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.Result == nil {
		t.Fatalf("result must survive summary failure")
	}
	if !strings.Contains(analysis.NaturalLanguage, "Failed to generate natural language summary") {
		t.Fatalf("unexpected narrative: %q", analysis.NaturalLanguage)
	}
}

func TestStripFences(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"  {\"a\": 1}  ", `{"a": 1}`},
		{"```{\"a\": 1}```", `{"a": 1}`},
	}
	for _, c := range cases {
		if got := stripFences(c.in); got != c.want {
			t.Fatalf("stripFences(%q)=%q, want %q", c.in, got, c.want)
		}
	}
}
