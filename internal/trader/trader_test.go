package trader

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-fleet/internal/accounts"
)

// Throwaway key, funds nothing.
const testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

const testSecret = "c2VjcmV0LXNlY3JldC1zZWNyZXQ=" // URL-safe base64

func testAccount() accounts.Account {
	return accounts.Account{
		ID:            7,
		Name:          "test",
		PrivateKey:    testPrivateKey,
		APIKey:        "api-key",
		APISecret:     testSecret,
		APIPassphrase: "pass",
		Status:        accounts.StatusActive,
	}
}

func newTestTrader(t *testing.T, clobURL, dataURL string) *AccountTrader {
	t.Helper()

	tr, err := New(testAccount(), Config{
		CLOBURL:    clobURL,
		DataURL:    dataURL,
		PolygonRPC: "http://localhost:8545",
	}, zap.NewNop())
	require.NoError(t, err)
	return tr
}

func TestNew_InvalidPrivateKey(t *testing.T) {
	a := testAccount()
	a.PrivateKey = "not-a-key"

	_, err := New(a, Config{PolygonRPC: "http://localhost:8545"}, zap.NewNop())
	require.Error(t, err)
}

func TestNew_DerivesAddressAndProxy(t *testing.T) {
	tr := newTestTrader(t, "http://clob", "http://data")

	require.Equal(t, int64(7), tr.AccountID())
	require.NotEmpty(t, tr.address)
	// No proxy configured: funder falls back to the EOA.
	require.Equal(t, tr.address, tr.proxy)
}

func TestPlaceBuyOrder_SubmitsSignedOrder(t *testing.T) {
	var captured map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/tick-size" {
			fmt.Fprint(w, `{"minimum_tick_size": "0.01"}`)
			return
		}
		require.Equal(t, "/order", r.URL.Path)
		require.Equal(t, "api-key", r.Header.Get("POLY_API_KEY"))
		require.NotEmpty(t, r.Header.Get("POLY_SIGNATURE"))
		require.NotEmpty(t, r.Header.Get("POLY_TIMESTAMP"))
		require.Equal(t, "pass", r.Header.Get("POLY_PASSPHRASE"))
		require.NotEmpty(t, r.Header.Get("POLY_ADDRESS"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprint(w, `{"orderID": "0xabc", "status": "matched"}`)
	}))
	defer srv.Close()

	tr := newTestTrader(t, srv.URL, "http://data")

	res, err := tr.PlaceBuyOrder(context.Background(), OrderRequest{
		MarketID: "m1",
		TokenID:  "123456",
		Price:    0.5,
		Size:     4,
	})
	require.NoError(t, err)
	require.Equal(t, "0xabc", res.OrderID)
	require.Equal(t, "matched", res.Status)

	require.Equal(t, "api-key", captured["owner"])
	require.Equal(t, "GTC", captured["orderType"])

	order, ok := captured["order"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "BUY", order["side"])
	require.Equal(t, "123456", order["tokenId"])
	// 2 USD at 6 decimals.
	require.Equal(t, "2000000", order["makerAmount"])
	require.NotEmpty(t, order["signature"])
}

func TestPlaceBuyOrder_RejectsInvalidInput(t *testing.T) {
	tr := newTestTrader(t, "http://clob", "http://data")

	_, err := tr.PlaceBuyOrder(context.Background(), OrderRequest{TokenID: "1", Price: 0, Size: 1})
	require.Error(t, err)

	_, err = tr.PlaceBuyOrder(context.Background(), OrderRequest{TokenID: "1", Price: 0.5, Size: 0})
	require.Error(t, err)
}

func TestPlaceBuyOrder_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": "not enough balance"}`)
	}))
	defer srv.Close()

	tr := newTestTrader(t, srv.URL, "http://data")

	_, err := tr.PlaceBuyOrder(context.Background(), OrderRequest{
		TokenID: "123", Price: 0.5, Size: 4,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not enough balance")
}

func TestSellAllPositions_SkipsRedeemable(t *testing.T) {
	dataSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"asset": "t1", "conditionId": "0x1", "size": 5, "curPrice": 0.4, "slug": "m1", "outcome": "Up", "redeemable": false},
			{"asset": "t2", "conditionId": "0x2", "size": 3, "curPrice": 1.0, "slug": "m2", "outcome": "Down", "redeemable": true}
		]`)
	}))
	defer dataSrv.Close()

	var sells int
	clobSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/tick-size" {
			fmt.Fprint(w, `{"minimum_tick_size": "0.01"}`)
			return
		}
		sells++
		fmt.Fprint(w, `{"orderID": "0x1", "status": "matched"}`)
	}))
	defer clobSrv.Close()

	tr := newTestTrader(t, clobSrv.URL, dataSrv.URL)

	res, err := tr.SellAllPositions(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	require.Equal(t, 1, res.Succeeded)
	require.Zero(t, res.Failed)
	require.Equal(t, 1, sells)
}

func TestSellAllPositions_CountsFailures(t *testing.T) {
	dataSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"asset": "t1", "size": 5, "curPrice": 0.4, "slug": "m1", "outcome": "Up"},
			{"asset": "t2", "size": 3, "curPrice": 0.6, "slug": "m2", "outcome": "Down"}
		]`)
	}))
	defer dataSrv.Close()

	var calls int
	clobSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/tick-size" {
			fmt.Fprint(w, `{"minimum_tick_size": "0.01"}`)
			return
		}
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"orderID": "0x2", "status": "matched"}`)
	}))
	defer clobSrv.Close()

	tr := newTestTrader(t, clobSrv.URL, dataSrv.URL)

	res, err := tr.SellAllPositions(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, res.Total)
	require.Equal(t, 1, res.Succeeded)
	require.Equal(t, 1, res.Failed)
}

func TestOutcomeIndexSet(t *testing.T) {
	require.Equal(t, int64(1), outcomeIndexSet("Up"))
	require.Equal(t, int64(1), outcomeIndexSet("Yes"))
	require.Equal(t, int64(2), outcomeIndexSet("Down"))
	require.Equal(t, int64(2), outcomeIndexSet("No"))
	// Unknown titles claim the UP bit rather than skipping the condition.
	require.Equal(t, int64(1), outcomeIndexSet("weird"))
}

func TestTickSize_FetchesAndCaches(t *testing.T) {
	var lookups int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tick-size", r.URL.Path)
		require.Equal(t, "123", r.URL.Query().Get("token_id"))
		lookups++
		fmt.Fprint(w, `{"minimum_tick_size": 0.001}`)
	}))
	defer srv.Close()

	tr := newTestTrader(t, srv.URL, "http://data")

	require.InDelta(t, 0.001, tr.tickSize(context.Background(), "123"), 1e-9)
	require.InDelta(t, 0.001, tr.tickSize(context.Background(), "123"), 1e-9)
	require.Equal(t, 1, lookups)
}

func TestTickSize_DefaultsOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := newTestTrader(t, srv.URL, "http://data")
	require.InDelta(t, defaultTickSize, tr.tickSize(context.Background(), "123"), 1e-9)
}

func TestRoundToTick(t *testing.T) {
	require.InDelta(t, 0.5, roundToTick(0.5, 0.01), 1e-9)
	require.InDelta(t, 0.85, roundToTick(0.857, 0.01), 1e-9)
	require.InDelta(t, 0.123, roundToTick(0.1234, 0.001), 1e-9)
	// Clamped inside the exchange's open (0, 1) price band.
	require.InDelta(t, 0.01, roundToTick(0.004, 0.01), 1e-9)
	require.InDelta(t, 0.99, roundToTick(0.999, 0.01), 1e-9)
}

func TestUsdToRawAmount(t *testing.T) {
	require.Equal(t, "2000000", usdToRawAmount(2))
	require.Equal(t, "500000", usdToRawAmount(0.5))
	require.Equal(t, "0", usdToRawAmount(0))
}

func TestL2Signature_Deterministic(t *testing.T) {
	tr := newTestTrader(t, "http://clob", "http://data")

	s1, err := tr.l2Signature("1756713700", "POST", "/order", `{"a":1}`)
	require.NoError(t, err)
	s2, err := tr.l2Signature("1756713700", "POST", "/order", `{"a":1}`)
	require.NoError(t, err)
	require.Equal(t, s1, s2)

	s3, err := tr.l2Signature("1756713701", "POST", "/order", `{"a":1}`)
	require.NoError(t, err)
	require.NotEqual(t, s1, s3)
}
