package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"telegram-one-bot/internal/domain/ports/adapter"
)

const defaultFeedURL = "https://api.coingecko.com/api/v3"

var _ adapter.PriceFeed = (*CoinGeckoFeed)(nil)

// CoinGeckoFeed reports the ONE/USD rate from the CoinGecko simple price API.
type CoinGeckoFeed struct {
	client *resty.Client
}

func NewCoinGeckoFeed(baseURL string) *CoinGeckoFeed {
	if baseURL == "" {
		baseURL = defaultFeedURL
	}
	return &CoinGeckoFeed{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10 * time.Second),
	}
}

func (f *CoinGeckoFeed) ONEUSD(ctx context.Context) (float64, error) {
	var out map[string]map[string]float64
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":           "harmony",
			"vs_currencies": "usd",
		}).
		SetResult(&out).
		Get("/simple/price")
	if err != nil {
		return 0, fmt.Errorf("price feed: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("price feed: http %d", resp.StatusCode())
	}
	rate := out["harmony"]["usd"]
	if rate <= 0 {
		return 0, fmt.Errorf("price feed: missing harmony/usd rate")
	}
	return rate, nil
}
