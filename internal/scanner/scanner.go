package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-fleet/pkg/cache"
)

const (
	// cycleSeconds is the length of the short-cycle market window.
	cycleSeconds = 900

	candidateSlugPrefix = "eth-updown-15m-"

	detailCacheTTL = 30 * time.Second
	listFallback   = 200
)

// SideQuote carries one side's token id and its current ask.
type SideQuote struct {
	TokenID string
	Price   float64
}

// Quotes holds both sides of a market priced in (0,1]. A zero price
// means no valid quote was found for that side.
type Quotes struct {
	Up   SideQuote
	Down SideQuote
}

// Scanner resolves market details and live prices from the Polymarket
// gamma and CLOB APIs.
type Scanner struct {
	gamma  *GammaClient
	clob   *CLOBClient
	cache  cache.Cache
	logger *zap.Logger
	now    func() time.Time
}

// New creates a scanner. The cache may be nil, in which case every
// detail lookup goes to the network.
func New(gamma *GammaClient, clob *CLOBClient, c cache.Cache, logger *zap.Logger) *Scanner {
	return &Scanner{
		gamma:  gamma,
		clob:   clob,
		cache:  c,
		logger: logger,
		now:    time.Now,
	}
}

// CandidateMarkets returns the currently tradable short-cycle markets.
// Slugs are probed on the cycle grid around the present time; if none
// resolve, the active-market listing is filtered as a fallback. Only
// markets with time remaining inside the current cycle are returned.
func (s *Scanner) CandidateMarkets(ctx context.Context) ([]Market, error) {
	now := s.now()
	base := now.Unix() - now.Unix()%cycleSeconds

	var out []Market
	seen := make(map[string]bool)

	for _, offset := range []int64{-1, 0, 1} {
		slug := fmt.Sprintf("%s%d", candidateSlugPrefix, base+offset*cycleSeconds)

		market, err := s.gamma.FetchMarketBySlug(ctx, slug)
		if err != nil {
			if !errors.Is(err, ErrMarketNotFound) {
				s.logger.Warn("candidate-slug-fetch-failed",
					zap.String("slug", slug),
					zap.Error(err))
			}
			continue
		}

		if s.tradable(*market, now) && !seen[market.ID] {
			seen[market.ID] = true
			out = append(out, *market)
		}
	}

	if len(out) > 0 {
		CandidatesFound.Observe(float64(len(out)))
		return out, nil
	}

	listed, err := s.gamma.ListActiveMarkets(ctx, listFallback)
	if err != nil {
		return nil, fmt.Errorf("list active markets: %w", err)
	}

	for _, market := range listed {
		if !strings.Contains(market.Slug, candidateSlugPrefix) {
			continue
		}
		if s.tradable(market, now) && !seen[market.ID] {
			seen[market.ID] = true
			out = append(out, market)
		}
	}

	CandidatesFound.Observe(float64(len(out)))
	return out, nil
}

func (s *Scanner) tradable(m Market, now time.Time) bool {
	if m.Closed || m.EndDate.IsZero() {
		return false
	}
	remaining := m.EndDate.Sub(now).Seconds()
	return remaining > 0 && remaining <= cycleSeconds
}

// MarketDetail resolves a market reference to its full details. Slug
// references are tried first as event slugs, then as market slugs; id
// references go straight to the market endpoint. Results are cached
// briefly to keep repeated scans off the network.
func (s *Scanner) MarketDetail(ctx context.Context, ref MarketRef) (*Market, error) {
	cacheKey := "market:" + ref.Value

	if s.cache != nil {
		if v, ok := s.cache.Get(cacheKey); ok {
			if m, ok := v.(*Market); ok {
				return m, nil
			}
		}
	}

	market, err := s.resolve(ctx, ref)
	if err != nil {
		DetailLookupsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	DetailLookupsTotal.WithLabelValues("ok").Inc()

	if s.cache != nil {
		s.cache.Set(cacheKey, market, detailCacheTTL)
	}

	return market, nil
}

func (s *Scanner) resolve(ctx context.Context, ref MarketRef) (*Market, error) {
	if ref.Kind == RefID {
		return s.gamma.FetchMarketByID(ctx, ref.Value)
	}

	market, err := s.gamma.FetchEventMarket(ctx, ref.Value)
	if err == nil {
		return market, nil
	}
	if !errors.Is(err, ErrMarketNotFound) {
		s.logger.Debug("event-slug-resolution-failed",
			zap.String("slug", ref.Value),
			zap.Error(err))
	}

	return s.gamma.FetchMarketBySlug(ctx, ref.Value)
}

// RemainingSeconds reports how long until the market resolves, clamped
// at zero. The second return is false when the end date is unknown.
func (s *Scanner) RemainingSeconds(m *Market) (float64, bool) {
	if m.EndDate.IsZero() {
		return 0, false
	}
	remaining := m.EndDate.Sub(s.now()).Seconds()
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// SideQuotes resolves both sides' token ids and asks. Prices fall back
// from the batched spread lookup to the per-token summary and finally
// to a best-ask scan of the order book.
func (s *Scanner) SideQuotes(ctx context.Context, m *Market) (*Quotes, error) {
	upToken, upOK := m.TokenBySide(SideUp)
	downToken, downOK := m.TokenBySide(SideDown)
	if !upOK && !downOK {
		return nil, fmt.Errorf("market %s has no resolvable tokens", m.ID)
	}

	quotes := &Quotes{}
	var ids []string
	if upOK {
		quotes.Up.TokenID = upToken.TokenID
		ids = append(ids, upToken.TokenID)
	}
	if downOK {
		quotes.Down.TokenID = downToken.TokenID
		ids = append(ids, downToken.TokenID)
	}

	spreads, err := s.clob.Spreads(ctx, ids)
	if err != nil {
		s.logger.Debug("spread-lookup-failed",
			zap.String("market", m.ID),
			zap.Error(err))
		spreads = map[string]float64{}
	}

	quotes.Up.Price = s.priceFor(ctx, quotes.Up.TokenID, spreads)
	quotes.Down.Price = s.priceFor(ctx, quotes.Down.TokenID, spreads)

	return quotes, nil
}

func (s *Scanner) priceFor(ctx context.Context, tokenID string, spreads map[string]float64) float64 {
	if tokenID == "" {
		return 0
	}

	if price, ok := spreads[tokenID]; ok && price > 0 {
		PriceFallbacksTotal.WithLabelValues("spreads").Inc()
		return price
	}

	price, err := s.clob.SummaryAsk(ctx, tokenID)
	if err == nil && price > 0 {
		PriceFallbacksTotal.WithLabelValues("summary").Inc()
		return price
	}

	price, err = s.clob.BookBestAsk(ctx, tokenID)
	if err != nil {
		s.logger.Debug("price-resolution-exhausted",
			zap.String("token", tokenID),
			zap.Error(err))
		PriceFallbacksTotal.WithLabelValues("none").Inc()
		return 0
	}

	PriceFallbacksTotal.WithLabelValues("book").Inc()
	return price
}
