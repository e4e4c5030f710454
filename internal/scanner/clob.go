package scanner

import (
	"bytes"
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

// CLOBClient reads prices from the Polymarket CLOB API.
type CLOBClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewCLOBClient creates a new CLOB price client.
func NewCLOBClient(baseURL string, logger *zap.Logger) *CLOBClient {
	return &CLOBClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// flexFloat decodes a JSON number or numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}

	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		*f = 0
		return nil
	}

	*f = flexFloat(v)
	return nil
}

// askEntry is the normalized ask quote shape. The CLOB has shipped the
// ask under several keys depending on the endpoint.
type askEntry struct {
	TokenID string    `json:"token_id"`
	TokenD  string    `json:"tokenId"`
	Ask     flexFloat `json:"ask"`
	BestAsk flexFloat `json:"bestAsk"`
	Sell    flexFloat `json:"sell"`
}

func (e *askEntry) tokenID() string {
	if e.TokenID != "" {
		return e.TokenID
	}
	return e.TokenD
}

func (e *askEntry) ask() (float64, bool) {
	for _, v := range []flexFloat{e.Ask, e.BestAsk, e.Sell} {
		if v != 0 {
			return normalizePrice(float64(v))
		}
	}
	return 0, false
}

// Spreads fetches ask prices for a batch of tokens. Missing or
// unparseable entries are simply absent from the result map.
func (c *CLOBClient) Spreads(ctx context.Context, tokenIDs []string) (map[string]float64, error) {
	params := make([]map[string]string, 0, len(tokenIDs))
	for _, id := range tokenIDs {
		params = append(params, map[string]string{"token_id": id})
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/spreads", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	prices := make(map[string]float64)

	// The endpoint has returned a token-keyed map of quote objects, a
	// token-keyed map of bare numbers, and a flat list.
	var keyed map[string]askEntry
	if err := json.Unmarshal(raw, &keyed); err == nil {
		for id, entry := range keyed {
			if price, ok := entry.ask(); ok {
				prices[id] = price
			}
		}
		return prices, nil
	}

	var flat map[string]flexFloat
	if err := json.Unmarshal(raw, &flat); err == nil {
		for id, v := range flat {
			if price, ok := normalizePrice(float64(v)); ok {
				prices[id] = price
			}
		}
		return prices, nil
	}

	var listed []askEntry
	if err := json.Unmarshal(raw, &listed); err == nil {
		for i := range listed {
			if price, ok := listed[i].ask(); ok {
				prices[listed[i].tokenID()] = price
			}
		}
		return prices, nil
	}

	return nil, fmt.Errorf("unrecognized spreads payload")
}

// SummaryAsk fetches the ask for one token via the order summary endpoint.
func (c *CLOBClient) SummaryAsk(ctx context.Context, tokenID string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/summary?token_id=%s", c.baseURL, url.QueryEscape(tokenID)), nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	raw, err := c.do(req)
	if err != nil {
		return 0, err
	}

	var entry askEntry
	if err := json.Unmarshal(raw, &entry); err == nil {
		if price, ok := entry.ask(); ok {
			return price, nil
		}
	}

	var listed []askEntry
	if err := json.Unmarshal(raw, &listed); err == nil && len(listed) > 0 {
		if price, ok := listed[0].ask(); ok {
			return price, nil
		}
	}

	return 0, fmt.Errorf("no ask in summary for token %s", tokenID)
}

type bookLevel struct {
	Price flexFloat `json:"price"`
	Size  flexFloat `json:"size"`
}

type bookResponse struct {
	Asks []bookLevel `json:"asks"`
}

// BookBestAsk scans the order book for the lowest valid ask.
func (c *CLOBClient) BookBestAsk(ctx context.Context, tokenID string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/book?token_id=%s", c.baseURL, url.QueryEscape(tokenID)), nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	raw, err := c.do(req)
	if err != nil {
		return 0, err
	}

	var book bookResponse
	err = json.Unmarshal(raw, &book)
	if err != nil {
		return 0, fmt.Errorf("unmarshal book: %w", err)
	}

	best := 0.0
	for _, level := range book.Asks {
		price, ok := normalizePrice(float64(level.Price))
		if !ok {
			continue
		}
		if best == 0 || price < best {
			best = price
		}
	}

	if best == 0 {
		return 0, fmt.Errorf("no asks in book for token %s", tokenID)
	}

	return best, nil
}

func (c *CLOBClient) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "polymarket-fleet/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return body, nil
}

// normalizePrice maps a raw quote into (0,1]. Quotes published on the
// 0-100 scale are divided down; non-positive and out-of-range values are
// rejected.
func normalizePrice(p float64) (float64, bool) {
	if p <= 0 {
		return 0, false
	}
	if p > 1 && p <= 100 {
		p /= 100
	}
	if p > 1 {
		return 0, false
	}
	return p, true
}
