package scanner

import "testing"

func TestParseMarketRef(t *testing.T) {
	tests := []struct {
		name string
		in   string
		kind RefKind
		val  string
		ok   bool
	}{
		{"event url", "https://polymarket.com/event/eth-updown-15m-1756713600", RefSlug, "eth-updown-15m-1756713600", true},
		{"event url with query", "https://polymarket.com/event/eth-updown-15m-1756713600?tid=1", RefSlug, "eth-updown-15m-1756713600", true},
		{"markets url slug", "https://polymarket.com/markets/eth-updown-15m-1756713600", RefSlug, "eth-updown-15m-1756713600", true},
		{"markets url id", "https://polymarket.com/markets/516710", RefID, "516710", true},
		{"numeric path", "https://polymarket.com/foo/516710/", RefID, "516710", true},
		{"bare id", "516710", RefID, "516710", true},
		{"bare slug", "eth-updown-15m-1756713600", RefSlug, "eth-updown-15m-1756713600", true},
		{"padded slug", "  some-market  ", RefSlug, "some-market", true},
		{"empty", "", "", "", false},
		{"whitespace only", "   ", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, ok := ParseMarketRef(tt.in)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if ref.Kind != tt.kind || ref.Value != tt.val {
				t.Errorf("got (%s, %q), want (%s, %q)", ref.Kind, ref.Value, tt.kind, tt.val)
			}
		})
	}
}
