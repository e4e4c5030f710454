package scanner

import (
	"regexp"
	"strings"
)

// RefKind classifies a market reference.
type RefKind string

const (
	RefSlug RefKind = "slug"
	RefID   RefKind = "id"
)

// MarketRef is a parsed market reference: either an id or a slug.
type MarketRef struct {
	Kind  RefKind
	Value string
}

var (
	eventPathRe   = regexp.MustCompile(`/event/([^/?]+)`)
	marketsPathRe = regexp.MustCompile(`/markets/([^/?]+)`)
	numericPathRe = regexp.MustCompile(`/(\d+)/?`)
	digitsRe      = regexp.MustCompile(`^\d+$`)
)

// ParseMarketRef classifies a free-text market reference. Polymarket URLs
// are unwrapped to their event slug or market id; a bare numeric string is
// an id; anything else is treated as a slug.
func ParseMarketRef(text string) (MarketRef, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return MarketRef{}, false
	}

	if strings.Contains(text, "polymarket.com") {
		if m := eventPathRe.FindStringSubmatch(text); m != nil {
			return MarketRef{Kind: RefSlug, Value: m[1]}, true
		}
		if m := marketsPathRe.FindStringSubmatch(text); m != nil {
			kind := RefSlug
			if digitsRe.MatchString(m[1]) {
				kind = RefID
			}
			return MarketRef{Kind: kind, Value: m[1]}, true
		}
		if m := numericPathRe.FindStringSubmatch(text); m != nil {
			return MarketRef{Kind: RefID, Value: m[1]}, true
		}
	}

	if digitsRe.MatchString(text) {
		return MarketRef{Kind: RefID, Value: text}, true
	}

	return MarketRef{Kind: RefSlug, Value: text}, true
}
