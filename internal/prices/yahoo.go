package prices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"trade-mentor/internal/api"
	"trade-mentor/internal/interfaces"
	"trade-mentor/internal/logger"
	"trade-mentor/internal/trace"
	"trade-mentor/internal/types"
)

var krxCode = regexp.MustCompile(`^\d{6}$`)

var ErrMalformedChart = errors.New("malformed chart response")

// YahooSource reads daily closes from the Yahoo Finance chart API.
type YahooSource struct {
	client *api.Client
	suffix string
}

var _ interfaces.PriceSource = (*YahooSource)(nil)

// NewYahooSource creates a source. suffix is appended to bare six-digit KRX
// codes (".KS" for KOSPI, ".KQ" for KOSDAQ).
func NewYahooSource(baseURL, suffix string, timeout time.Duration) *YahooSource {
	return &YahooSource{
		client: api.NewClient(
			api.WithBaseURL(baseURL),
			api.WithTimeout(timeout),
			api.WithHeaders(api.YahooFinanceHeaders()),
			api.WithLogging(true),
		),
		suffix: suffix,
	}
}

func (y *YahooSource) Name() string { return "yahoo" }

// Symbol maps a stock code to its Yahoo ticker.
func (y *YahooSource) Symbol(code string) string {
	if krxCode.MatchString(code) {
		return code + y.suffix
	}
	return code
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				GMTOffset    int    `json:"gmtoffset"`
				ExchangeZone string `json:"exchangeTimezoneName"`
			} `json:"meta"`
			Timestamp  []*int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []json.Number `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// History returns closes between from and to (whole days, inclusive).
// Points with a null timestamp or close are skipped.
func (y *YahooSource) History(ctx context.Context, code string, from, to time.Time) ([]types.StockPriceSample, error) {
	ctx, span := trace.StartSpan(ctx, "prices.Yahoo.History")
	defer span.End()

	symbol := y.Symbol(code)
	period1 := startOfDay(from).Unix()
	period2 := startOfDay(to).Add(24*time.Hour - time.Second).Unix()
	path := fmt.Sprintf("/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d", symbol, period1, period2)

	resp, err := y.client.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("yahoo chart request for %s failed: %w", symbol, err)
	}

	var chart chartResponse
	if err := resp.ParseJSON(&chart); err != nil {
		return nil, err
	}
	if e := chart.Chart.Error; e != nil {
		return nil, fmt.Errorf("yahoo chart error %s: %s", e.Code, e.Description)
	}
	if len(chart.Chart.Result) == 0 {
		logger.Warn(ctx, "No results in chart response", "symbol", symbol)
		return nil, nil
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		logger.Warn(ctx, "No quotes in chart response", "symbol", symbol)
		return nil, nil
	}
	closes := result.Indicators.Quote[0].Close
	if len(result.Timestamp) != len(closes) {
		return nil, fmt.Errorf("%w: %d timestamps, %d closes", ErrMalformedChart, len(result.Timestamp), len(closes))
	}

	loc := time.FixedZone(result.Meta.ExchangeZone, result.Meta.GMTOffset)
	samples := make([]types.StockPriceSample, 0, len(closes))
	for i, ts := range result.Timestamp {
		if ts == nil || closes[i] == "" {
			continue
		}
		price, err := decimal.NewFromString(closes[i].String())
		if err != nil {
			return nil, fmt.Errorf("%w: close %q: %v", ErrMalformedChart, closes[i], err)
		}
		samples = append(samples, types.StockPriceSample{
			Date:       time.Unix(*ts, 0).In(loc).Format(dateLayout),
			ClosePrice: price,
		})
	}

	logger.Debug(ctx, "Parsed price data points", "symbol", symbol, "count", len(samples))
	return samples, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
