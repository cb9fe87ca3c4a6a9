package interfaces

import (
	"context"
	"time"

	"trade-mentor/internal/types"
)

// PriceSource looks up daily closing prices for a stock code, oldest first.
type PriceSource interface {
	Name() string
	History(ctx context.Context, code string, from, to time.Time) ([]types.StockPriceSample, error)
}
