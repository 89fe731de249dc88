package redis

import (
	"context"
	"strconv"
	"time"

	"telegram-one-bot/internal/domain/ports/adapter"
)

const oneUSDKey = "price:one_usd"

// PriceCache wraps a price feed with a short-lived Redis cache so every
// balance check does not hit the upstream API.
type PriceCache struct {
	client RedisClient
	next   adapter.PriceFeed
	ttl    time.Duration
}

var _ adapter.PriceFeed = (*PriceCache)(nil)

func NewPriceCache(client RedisClient, next adapter.PriceFeed, ttl time.Duration) *PriceCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &PriceCache{client: client, next: next, ttl: ttl}
}

func (c *PriceCache) ONEUSD(ctx context.Context) (float64, error) {
	if raw, err := c.client.Get(ctx, oneUSDKey); err == nil {
		if rate, perr := strconv.ParseFloat(raw, 64); perr == nil && rate > 0 {
			return rate, nil
		}
	} else if !IsNil(err) {
		// Redis being down must not take the bot down with it.
		return c.next.ONEUSD(ctx)
	}
	rate, err := c.next.ONEUSD(ctx)
	if err != nil {
		return 0, err
	}
	_ = c.client.Set(ctx, oneUSDKey, strconv.FormatFloat(rate, 'f', -1, 64), c.ttl)
	return rate, nil
}
