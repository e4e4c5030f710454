package scanner

import (
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Side identifies one of the two outcomes of a binary market.
type Side string

const (
	SideUp   Side = "UP"
	SideDown Side = "DOWN"
)

// ParseSide maps the accepted aliases onto a canonical side.
// "YES" is the UP side, "NO" is the DOWN side.
func ParseSide(s string) (Side, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "UP", "YES":
		return SideUp, true
	case "DOWN", "NO":
		return SideDown, true
	default:
		return "", false
	}
}

// Token represents a market outcome token.
type Token struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
}

// Market is the normalized view of a Gamma API market. Every transport
// shape (stringified outcome arrays, epoch vs RFC3339 end dates, numeric
// vs string ids) is adapted here once so the scheduler never re-sniffs
// response types.
type Market struct {
	ID       string
	Slug     string
	Question string
	Closed   bool
	Active   bool
	EndDate  time.Time // zero when the payload carried no recognizable expiry
	Tokens   []Token
}

// gammaMarket mirrors the raw Gamma API market payload.
type gammaMarket struct {
	ID         json.RawMessage `json:"id"`
	Slug       string          `json:"slug"`
	Question   string          `json:"question"`
	Closed     bool            `json:"closed"`
	Active     bool            `json:"active"`
	Outcomes   string          `json:"outcomes"`     // JSON string: "[\"Up\", \"Down\"]"
	ClobTokens string          `json:"clobTokenIds"` // JSON string: "[\"token1\", \"token2\"]"

	// The API has shipped the expiry under several names and encodings.
	EndDate      json.RawMessage `json:"endDate"`
	EndDateAlt   json.RawMessage `json:"end_date"`
	EndTime      json.RawMessage `json:"endTime"`
	EndTimestamp json.RawMessage `json:"endDateTimestamp"`
}

// UnmarshalJSON adapts the raw Gamma payload into the normalized Market.
func (m *Market) UnmarshalJSON(data []byte) error {
	var raw gammaMarket
	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	m.ID = rawToString(raw.ID)
	m.Slug = raw.Slug
	m.Question = raw.Question
	m.Closed = raw.Closed
	m.Active = raw.Active
	m.Tokens = parseTokens(raw.Outcomes, raw.ClobTokens)

	for _, candidate := range []json.RawMessage{raw.EndDate, raw.EndDateAlt, raw.EndTime, raw.EndTimestamp} {
		if ts, ok := parseEndTime(candidate); ok {
			m.EndDate = ts
			break
		}
	}

	return nil
}

// TokenBySide resolves the token for a side. Outcome titles are matched
// by prefix (Up/Yes vs Down/No); when titles are unrecognizable the
// first token is treated as UP and the second as DOWN, which is how the
// exchange orders binary outcomes.
func (m *Market) TokenBySide(side Side) (Token, bool) {
	for _, tok := range m.Tokens {
		title := strings.ToLower(strings.TrimSpace(tok.Outcome))
		switch side {
		case SideUp:
			if strings.HasPrefix(title, "up") || strings.HasPrefix(title, "yes") {
				return tok, true
			}
		case SideDown:
			if strings.HasPrefix(title, "down") || strings.HasPrefix(title, "no") {
				return tok, true
			}
		}
	}

	if len(m.Tokens) >= 2 {
		if side == SideUp {
			return m.Tokens[0], true
		}
		return m.Tokens[1], true
	}

	return Token{}, false
}

func parseTokens(outcomes, clobTokens string) []Token {
	var names []string
	var ids []string

	if outcomes != "" {
		_ = json.Unmarshal([]byte(outcomes), &names)
	}
	if clobTokens != "" {
		err := json.Unmarshal([]byte(clobTokens), &ids)
		if err != nil {
			// Older payloads used comma-separated ids.
			for _, id := range strings.Split(clobTokens, ",") {
				if id = strings.TrimSpace(id); id != "" {
					ids = append(ids, id)
				}
			}
		}
	}

	tokens := make([]Token, 0, len(ids))
	for i, id := range ids {
		tok := Token{TokenID: id}
		if i < len(names) {
			tok.Outcome = names[i]
		}
		tokens = append(tokens, tok)
	}

	return tokens
}

// rawToString renders a JSON scalar (string or number) as a string.
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	return strings.TrimSpace(string(raw))
}

// parseEndTime accepts RFC3339 strings and epoch numbers, normalizing
// millisecond epochs down to seconds.
func parseEndTime(raw json.RawMessage) (time.Time, bool) {
	if len(raw) == 0 {
		return time.Time{}, false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return time.Time{}, false
		}
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, false
		}
		return ts, true
	}

	var epoch float64
	if err := json.Unmarshal(raw, &epoch); err == nil && epoch > 0 {
		if epoch > 1e12 {
			epoch /= 1000
		}
		sec := int64(epoch)
		nsec := int64((epoch - float64(sec)) * 1e9)
		return time.Unix(sec, nsec), true
	}

	return time.Time{}, false
}
