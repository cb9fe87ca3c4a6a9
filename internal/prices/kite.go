package prices

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"trade-mentor/internal/interfaces"
	"trade-mentor/internal/trace"
	"trade-mentor/internal/types"
)

// historyClient is the slice of the Kite client used here.
type historyClient interface {
	GetHistoricalData(instrumentToken int, interval string, fromDate time.Time, toDate time.Time, continuous bool, OI bool) ([]kiteconnect.HistoricalData, error)
}

// KiteSource reads daily candles from Kite Connect. The stock code is the
// numeric instrument token.
type KiteSource struct {
	kc historyClient
}

var _ interfaces.PriceSource = (*KiteSource)(nil)

func NewKiteSource(apiKey, accessToken string) *KiteSource {
	kc := kiteconnect.New(apiKey)
	kc.SetAccessToken(accessToken)
	return &KiteSource{kc: kc}
}

func (k *KiteSource) Name() string { return "kite" }

func (k *KiteSource) History(ctx context.Context, code string, from, to time.Time) ([]types.StockPriceSample, error) {
	_, span := trace.StartSpan(ctx, "prices.Kite.History")
	defer span.End()

	token, err := strconv.Atoi(code)
	if err != nil {
		return nil, fmt.Errorf("kite needs a numeric instrument token, got %q", code)
	}

	candles, err := k.kc.GetHistoricalData(token, "day", startOfDay(from), startOfDay(to).Add(24*time.Hour-time.Second), false, false)
	if err != nil {
		return nil, fmt.Errorf("kite historical data for %d failed: %w", token, err)
	}

	samples := make([]types.StockPriceSample, 0, len(candles))
	for _, c := range candles {
		if c.Close <= 0 {
			continue
		}
		samples = append(samples, types.StockPriceSample{
			Date:       c.Date.Time.Format(dateLayout),
			ClosePrice: decimal.NewFromFloat(c.Close),
		})
	}
	return samples, nil
}
