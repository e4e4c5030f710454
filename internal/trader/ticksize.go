package trader

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// defaultTickSize matches the CLOB's coarsest price grid.
const defaultTickSize = 0.01

type tickSizeResponse struct {
	MinimumTickSize json.Number `json:"minimum_tick_size"`
}

// tickSize returns the token's minimum price increment. Lookup failures
// fall back to the default without poisoning the cache.
func (t *AccountTrader) tickSize(ctx context.Context, tokenID string) float64 {
	t.tickMu.Lock()
	cached, ok := t.tickCache[tokenID]
	t.tickMu.Unlock()
	if ok {
		return cached
	}

	tick, err := t.fetchTickSize(ctx, tokenID)
	if err != nil {
		t.logger.Warn("tick-size-lookup-failed",
			zap.String("token_id", tokenID),
			zap.Error(err))
		return defaultTickSize
	}

	t.tickMu.Lock()
	t.tickCache[tokenID] = tick
	t.tickMu.Unlock()
	return tick
}

func (t *AccountTrader) fetchTickSize(ctx context.Context, tokenID string) (float64, error) {
	reqURL := t.cfg.CLOBURL + "/tick-size?token_id=" + url.QueryEscape(tokenID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var tickResp tickSizeResponse
	if err := json.Unmarshal(body, &tickResp); err != nil {
		return 0, fmt.Errorf("parse response: %w", err)
	}

	tick, err := tickResp.MinimumTickSize.Float64()
	if err != nil || tick <= 0 || tick >= 1 {
		return 0, fmt.Errorf("invalid tick size %q", tickResp.MinimumTickSize)
	}
	return tick, nil
}

// roundToTick snaps a price down onto the tick grid, keeping it inside
// the (0, 1) band the exchange accepts.
func roundToTick(price, tick float64) float64 {
	if tick <= 0 {
		tick = defaultTickSize
	}
	rounded := math.Floor(price/tick+1e-9) * tick
	if rounded < tick {
		return tick
	}
	if rounded > 1-tick {
		return 1 - tick
	}
	return rounded
}
