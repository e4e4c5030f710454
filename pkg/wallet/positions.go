package wallet

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
)

// Position is a market position held by one account, as reported by
// the Polymarket Data API.
type Position struct {
	TokenID     string
	ConditionID string
	MarketSlug  string
	Outcome     string
	Size        float64
	CurPrice    float64
	Value       float64
	Redeemable  bool
}

type dataAPIPosition struct {
	Asset        string  `json:"asset"`
	ConditionID  string  `json:"conditionId"`
	Size         float64 `json:"size"`
	CurPrice     float64 `json:"curPrice"`
	CurrentValue float64 `json:"currentValue"`
	Slug         string  `json:"slug"`
	Outcome      string  `json:"outcome"`
	Redeemable   bool    `json:"redeemable"`
}

// GetPositions fetches the account's open positions. Dust below the
// size threshold is filtered server-side.
func (c *Client) GetPositions(ctx context.Context, dataURL, address string) ([]Position, error) {
	requestURL := fmt.Sprintf("%s/positions?user=%s&sizeThreshold=0.01",
		dataURL, url.QueryEscape(address))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	httpClient := &http.Client{Timeout: 15 * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error: status %d", resp.StatusCode)
	}

	var apiPositions []dataAPIPosition
	err = json.NewDecoder(resp.Body).Decode(&apiPositions)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	positions := make([]Position, 0, len(apiPositions))
	for _, pos := range apiPositions {
		if pos.Size <= 0 {
			continue
		}
		positions = append(positions, Position{
			TokenID:     pos.Asset,
			ConditionID: pos.ConditionID,
			MarketSlug:  pos.Slug,
			Outcome:     pos.Outcome,
			Size:        pos.Size,
			CurPrice:    pos.CurPrice,
			Value:       pos.CurrentValue,
			Redeemable:  pos.Redeemable,
		})
	}

	return positions, nil
}
