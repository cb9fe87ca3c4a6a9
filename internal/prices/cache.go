package prices

import (
	"context"
	"fmt"
	"sync"
	"time"

	"trade-mentor/internal/interfaces"
	"trade-mentor/internal/logger"
	"trade-mentor/internal/types"
)

// CachedSource keeps recent History results in memory for ttl.
type CachedSource struct {
	source interfaces.PriceSource
	ttl    time.Duration
	now    func() time.Time

	mu   sync.RWMutex
	data map[string]cacheEntry
}

type cacheEntry struct {
	samples   []types.StockPriceSample
	timestamp time.Time
}

var _ interfaces.PriceSource = (*CachedSource)(nil)

func NewCachedSource(source interfaces.PriceSource, ttl time.Duration) *CachedSource {
	return &CachedSource{
		source: source,
		ttl:    ttl,
		now:    time.Now,
		data:   make(map[string]cacheEntry),
	}
}

func (c *CachedSource) Name() string { return c.source.Name() }

// Symbol forwards to the wrapped source when it maps codes to tickers.
func (c *CachedSource) Symbol(code string) string {
	if s, ok := c.source.(interface{ Symbol(string) string }); ok {
		return s.Symbol(code)
	}
	return code
}

func (c *CachedSource) History(ctx context.Context, code string, from, to time.Time) ([]types.StockPriceSample, error) {
	key := fmt.Sprintf("%s|%s|%s", code, from.Format(dateLayout), to.Format(dateLayout))

	if samples, ok := c.get(key); ok {
		logger.Debug(ctx, "Price history served from cache", "code", code)
		return samples, nil
	}

	samples, err := c.source.History(ctx, code, from, to)
	if err != nil {
		return nil, err
	}
	// empty answers are not cached, the data may simply not be there yet
	if len(samples) > 0 {
		c.set(key, samples)
	}
	return samples, nil
}

func (c *CachedSource) get(key string) ([]types.StockPriceSample, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.data[key]
	if !exists || c.now().Sub(entry.timestamp) > c.ttl {
		return nil, false
	}
	return entry.samples, true
}

func (c *CachedSource) set(key string, samples []types.StockPriceSample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.data {
		if now.Sub(e.timestamp) > c.ttl {
			delete(c.data, k)
		}
	}
	c.data[key] = cacheEntry{samples: samples, timestamp: now}
}
