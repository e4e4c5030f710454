package scanner

import (
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func TestMarketUnmarshal_StringID(t *testing.T) {
	payload := `{
		"id": "516710",
		"slug": "eth-updown-15m-1756713600",
		"question": "ETH up or down?",
		"closed": false,
		"active": true,
		"outcomes": "[\"Up\", \"Down\"]",
		"clobTokenIds": "[\"111\", \"222\"]",
		"endDate": "2025-09-01T08:15:00Z"
	}`

	var m Market
	require.NoError(t, json.Unmarshal([]byte(payload), &m))
	require.Equal(t, "516710", m.ID)
	require.Equal(t, "eth-updown-15m-1756713600", m.Slug)
	require.False(t, m.Closed)
	require.Len(t, m.Tokens, 2)
	require.Equal(t, "111", m.Tokens[0].TokenID)
	require.Equal(t, "Up", m.Tokens[0].Outcome)
	require.Equal(t, time.Date(2025, 9, 1, 8, 15, 0, 0, time.UTC), m.EndDate.UTC())
}

func TestMarketUnmarshal_NumericIDAndEpochMillis(t *testing.T) {
	payload := `{
		"id": 516710,
		"slug": "eth-updown-15m-1756713600",
		"outcomes": "[\"Up\", \"Down\"]",
		"clobTokenIds": "111,222",
		"endDateTimestamp": 1756714500000
	}`

	var m Market
	require.NoError(t, json.Unmarshal([]byte(payload), &m))
	require.Equal(t, "516710", m.ID)
	require.Len(t, m.Tokens, 2)
	require.Equal(t, "222", m.Tokens[1].TokenID)
	require.Equal(t, int64(1756714500), m.EndDate.Unix())
}

func TestMarketUnmarshal_NoEndDate(t *testing.T) {
	payload := `{"id": "1", "slug": "x"}`

	var m Market
	require.NoError(t, json.Unmarshal([]byte(payload), &m))
	require.True(t, m.EndDate.IsZero())
	require.Empty(t, m.Tokens)
}

func TestTokenBySide(t *testing.T) {
	m := Market{Tokens: []Token{
		{TokenID: "d", Outcome: "Down"},
		{TokenID: "u", Outcome: "Up"},
	}}

	up, ok := m.TokenBySide(SideUp)
	require.True(t, ok)
	require.Equal(t, "u", up.TokenID)

	down, ok := m.TokenBySide(SideDown)
	require.True(t, ok)
	require.Equal(t, "d", down.TokenID)
}

func TestTokenBySide_PositionalFallback(t *testing.T) {
	m := Market{Tokens: []Token{
		{TokenID: "first"},
		{TokenID: "second"},
	}}

	up, ok := m.TokenBySide(SideUp)
	require.True(t, ok)
	require.Equal(t, "first", up.TokenID)

	down, ok := m.TokenBySide(SideDown)
	require.True(t, ok)
	require.Equal(t, "second", down.TokenID)
}

func TestTokenBySide_SingleUnnamedToken(t *testing.T) {
	m := Market{Tokens: []Token{{TokenID: "only"}}}

	_, ok := m.TokenBySide(SideUp)
	require.False(t, ok)
}

func TestParseSide(t *testing.T) {
	tests := []struct {
		in   string
		want Side
		ok   bool
	}{
		{"UP", SideUp, true},
		{"up", SideUp, true},
		{"Yes", SideUp, true},
		{" down ", SideDown, true},
		{"NO", SideDown, true},
		{"maybe", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseSide(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseSide(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
