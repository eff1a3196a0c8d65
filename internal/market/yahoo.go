package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"time"
)

// quoteSummary modules needed to populate all six fundamentals attributes.
const fundamentalsModules = "price,summaryDetail,defaultKeyStatistics,financialData"

var yearToken = regexp.MustCompile(`^\d{4}$`)

// YahooSource implements Source using the Yahoo Finance public API.
type YahooSource struct {
	client  *http.Client
	baseURL string
}

// YahooOption configures a YahooSource.
type YahooOption func(*YahooSource)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) YahooOption {
	return func(y *YahooSource) { y.client = c }
}

// NewYahooSource creates a Yahoo Finance data source.
//
// baseURL is the API root (e.g. "https://query1.finance.yahoo.com"); tests
// point it at a local httptest server.
func NewYahooSource(baseURL string, opts ...YahooOption) *YahooSource {
	y := &YahooSource{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

// yahooChart is the response structure of the Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// rawValue is Yahoo's {"raw": 1.23, "fmt": "1.23"} number wrapper.
type rawValue struct {
	Raw *float64 `json:"raw"`
}

// yahooQuoteSummary is the subset of the quoteSummary API response we map
// onto Fundamentals.
type yahooQuoteSummary struct {
	QuoteSummary struct {
		Result []struct {
			Price *struct {
				LongName  string   `json:"longName"`
				MarketCap rawValue `json:"marketCap"`
			} `json:"price"`
			SummaryDetail *struct {
				TrailingPE    rawValue `json:"trailingPE"`
				DividendYield rawValue `json:"dividendYield"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics *struct {
				TrailingEps rawValue `json:"trailingEps"`
			} `json:"defaultKeyStatistics"`
			FinancialData *struct {
				DebtToEquity rawValue `json:"debtToEquity"`
			} `json:"financialData"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// chartQuery builds the query string for one period token.
//
// Relative windows (1mo, 3mo, ..., ytd) map to Yahoo's "range" parameter;
// a literal year maps to an explicit period1/period2 epoch window covering
// that calendar year.
func chartQuery(period string) string {
	if yearToken.MatchString(period) {
		var year int
		_, _ = fmt.Sscanf(period, "%d", &year)
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
		return fmt.Sprintf("interval=1d&period1=%d&period2=%d", start.Unix(), end.Unix())
	}
	return fmt.Sprintf("interval=1d&range=%s", url.QueryEscape(period))
}

func (y *YahooSource) get(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.client.Do(req)
	if err != nil {
		return fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("yahoo decode: %w", err)
	}
	return nil
}

// FetchSeries returns the daily closing-price series for ticker over period.
//
// Null bars (holidays, halts) are skipped and the result is sorted
// chronologically. An empty series with a nil error means the provider had
// no data for the window.
func (y *YahooSource) FetchSeries(ctx context.Context, ticker, period string) (Series, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", y.baseURL, url.PathEscape(ticker), chartQuery(period))

	var chart yahooChart
	if err := y.get(ctx, u, &chart); err != nil {
		return nil, err
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return Series{}, nil
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	series := make(Series, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		series = append(series, Point{Time: time.Unix(ts, 0).UTC(), Close: *quote.Close[i]})
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Time.Before(series[j].Time) })
	return series, nil
}

// FetchFundamentals returns the fundamentals record for ticker.
//
// Attributes missing from the provider response stay nil; the whole record is
// an error only when the fetch itself fails or the ticker is unknown upstream.
func (y *YahooSource) FetchFundamentals(ctx context.Context, ticker string) (*Fundamentals, error) {
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s", y.baseURL, url.PathEscape(ticker), fundamentalsModules)

	var summary yahooQuoteSummary
	if err := y.get(ctx, u, &summary); err != nil {
		return nil, err
	}
	if summary.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", summary.QuoteSummary.Error.Description)
	}
	if len(summary.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("yahoo: no quote summary for %s", ticker)
	}

	r := summary.QuoteSummary.Result[0]
	f := &Fundamentals{}
	if r.Price != nil {
		if r.Price.LongName != "" {
			name := r.Price.LongName
			f.Name = &name
		}
		f.MarketCap = r.Price.MarketCap.Raw
	}
	if r.SummaryDetail != nil {
		f.PERatio = r.SummaryDetail.TrailingPE.Raw
		f.DividendYield = r.SummaryDetail.DividendYield.Raw
	}
	if r.DefaultKeyStatistics != nil {
		f.EPS = r.DefaultKeyStatistics.TrailingEps.Raw
	}
	if r.FinancialData != nil {
		f.DebtToEquity = r.FinancialData.DebtToEquity.Raw
	}
	return f, nil
}
