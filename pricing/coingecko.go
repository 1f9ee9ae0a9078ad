// Package pricing quotes the native token's fiat price for balance displays.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const (
	coinID   = "avalanche-2"
	cacheTTL = time.Minute
)

// CoinGecko answers USD price lookups against the CoinGecko simple-price
// endpoint, caching the answer briefly to stay inside the free-tier rate
// limit. It implements interfaces.PriceSource.
type CoinGecko struct {
	baseURL string
	apiKey  string
	http    *http.Client

	mu        sync.Mutex
	cached    decimal.Decimal
	fetchedAt time.Time
	now       func() time.Time
}

// NewCoinGecko creates a price source; apiKey may be empty for the free tier
func NewCoinGecko(baseURL, apiKey string) *CoinGecko {
	return &CoinGecko{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		now:     time.Now,
	}
}

// USDPrice returns the current AVAX price in USD. Lookup failures degrade to
// a zero price so callers can drop the fiat estimate instead of failing the
// whole balance display.
func (c *CoinGecko) USDPrice(ctx context.Context) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.cached.IsZero() && c.now().Sub(c.fetchedAt) < cacheTTL {
		return c.cached, nil
	}

	price, err := c.fetch(ctx)
	if err != nil {
		log.WithError(err).Warn("Price lookup failed")
		return decimal.Zero, nil
	}

	c.cached = price
	c.fetchedAt = c.now()
	return price, nil
}

func (c *CoinGecko) fetch(ctx context.Context) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, coinID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("price request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("price API returned %d", resp.StatusCode)
	}

	var payload map[string]struct {
		USD decimal.Decimal `json:"usd"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode price response: %w", err)
	}

	entry, ok := payload[coinID]
	if !ok {
		return decimal.Zero, fmt.Errorf("price response missing %s", coinID)
	}
	return entry.USD, nil
}
