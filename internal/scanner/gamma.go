package scanner

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// ErrMarketNotFound is returned when no lookup strategy resolves a market.
var ErrMarketNotFound = fmt.Errorf("market not found")

// GammaClient is an HTTP client for the Polymarket Gamma API.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewGammaClient creates a new Gamma API client.
func NewGammaClient(baseURL string, logger *zap.Logger) *GammaClient {
	return &GammaClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// FetchMarketByID fetches a single market by its numeric id.
func (c *GammaClient) FetchMarketByID(ctx context.Context, id string) (*Market, error) {
	var market Market
	err := c.getJSON(ctx, fmt.Sprintf("%s/markets/%s", c.baseURL, url.PathEscape(id)), &market)
	if err != nil {
		return nil, err
	}
	return &market, nil
}

// FetchMarketBySlug fetches a single market by its market slug.
func (c *GammaClient) FetchMarketBySlug(ctx context.Context, slug string) (*Market, error) {
	var market Market
	err := c.getJSON(ctx, fmt.Sprintf("%s/markets/slug/%s", c.baseURL, url.PathEscape(slug)), &market)
	if err != nil {
		return nil, err
	}
	return &market, nil
}

// eventResponse mirrors the Gamma events payload: an event groups markets.
type eventResponse struct {
	ID      json.RawMessage `json:"id"`
	Markets []Market        `json:"markets"`
}

// FetchEventMarket fetches an event by slug and returns its first market,
// re-resolved through the markets endpoint for the full detail payload.
func (c *GammaClient) FetchEventMarket(ctx context.Context, slug string) (*Market, error) {
	var event eventResponse
	err := c.getJSON(ctx, fmt.Sprintf("%s/events/slug/%s", c.baseURL, url.PathEscape(slug)), &event)
	if err != nil {
		return nil, err
	}

	if len(event.Markets) == 0 {
		return nil, ErrMarketNotFound
	}

	first := event.Markets[0]
	if first.ID == "" {
		return nil, ErrMarketNotFound
	}

	return c.FetchMarketByID(ctx, first.ID)
}

// ListActiveMarkets fetches open markets for the candidate-list fallback.
func (c *GammaClient) ListActiveMarkets(ctx context.Context, limit int) ([]Market, error) {
	params := url.Values{}
	params.Add("limit", strconv.Itoa(limit))
	params.Add("active", "true")
	params.Add("closed", "false")

	var markets []Market
	err := c.getJSON(ctx, fmt.Sprintf("%s/markets?%s", c.baseURL, params.Encode()), &markets)
	if err != nil {
		return nil, err
	}
	return markets, nil
}

func (c *GammaClient) getJSON(ctx context.Context, requestURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "polymarket-fleet/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrMarketNotFound
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	err = json.Unmarshal(body, out)
	if err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}
