// Package market fetches and normalizes CoinGecko price data.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andrejche/coinfly-v2/internal/logging"
)

// sparkline1DPoints is the trailing window of the 7-day sparkline served as
// the 1-day series. The 7-day series is hourly, so 24 points is one day.
const sparkline1DPoints = 24

// PricePoint is the canonical per-coin shape served to clients.
type PricePoint struct {
	USD         float64   `json:"usd"`
	Change24Pct float64   `json:"usd_24h_change_pct"`
	Sparkline1D []float64 `json:"sparkline_1d"`
	Sparkline7D []float64 `json:"sparkline_7d"`
	Name        string    `json:"name"`
	Symbol      string    `json:"symbol"`
}

// Payload is the published prices document.
type Payload struct {
	UpdatedAt string                `json:"updatedAt"`
	Data      map[string]PricePoint `json:"data"`
}

// coinMarket is the upstream /coins/markets response shape.
type coinMarket struct {
	ID           string  `json:"id"`
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	CurrentPrice float64 `json:"current_price"`
	Change24Pct  float64 `json:"price_change_percentage_24h"`
	Sparkline7D  *struct {
		Price []float64 `json:"price"`
	} `json:"sparkline_in_7d"`
}

type Client struct {
	apiURL     string
	vsCurrency string
	coins      []string
	client     *http.Client
	logger     *slog.Logger
}

func NewClient(apiURL, vsCurrency string, coins []string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiURL:     apiURL,
		vsCurrency: vsCurrency,
		coins:      coins,
		client:     &http.Client{Timeout: timeout},
		logger:     logging.Default(logger).With("component", "market"),
	}
}

func (c *Client) requestURL() string {
	q := url.Values{}
	q.Set("vs_currency", c.vsCurrency)
	q.Set("ids", strings.Join(c.coins, ","))
	q.Set("order", "market_cap_desc")
	q.Set("per_page", "250")
	q.Set("page", "1")
	q.Set("sparkline", "true")
	q.Set("price_change_percentage", "24h")
	return c.apiURL + "?" + q.Encode()
}

// Fetch returns normalized price points keyed by coin id.
func (c *Client) Fetch(ctx context.Context) (map[string]PricePoint, error) {
	reqURL := c.requestURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "coinfly/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prices upstream returned http %d", resp.StatusCode)
	}

	var markets []coinMarket
	if err := json.NewDecoder(resp.Body).Decode(&markets); err != nil {
		return nil, fmt.Errorf("decoding prices response: %w", err)
	}

	data := make(map[string]PricePoint, len(markets))
	for _, m := range markets {
		var spark7 []float64
		if m.Sparkline7D != nil {
			spark7 = m.Sparkline7D.Price
		}
		data[m.ID] = PricePoint{
			USD:         m.CurrentPrice,
			Change24Pct: m.Change24Pct,
			Sparkline1D: Window1D(spark7),
			Sparkline7D: spark7,
			Name:        m.Name,
			Symbol:      strings.ToUpper(m.Symbol),
		}
	}
	c.logger.Debug("prices fetched", "coins", len(data))
	return data, nil
}

// Window1D is the trailing 24-point window of a 7-day sparkline, in original
// order. The 1-day series is always derived from the 7-day series, never
// fetched separately.
func Window1D(spark7d []float64) []float64 {
	if len(spark7d) < 2 {
		return []float64{}
	}
	if len(spark7d) <= sparkline1DPoints {
		return spark7d
	}
	return spark7d[len(spark7d)-sparkline1DPoints:]
}
