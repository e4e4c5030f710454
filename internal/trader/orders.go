package trader

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	json "github.com/goccy/go-json"
	"github.com/polymarket/go-order-utils/pkg/model"
	"go.uber.org/zap"
)

// signedOrderJSON is the CLOB wire shape of a signed order. Salt and
// signatureType go over as integers, everything else as strings.
type signedOrderJSON struct {
	Salt          int64  `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Side          string `json:"side"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

type orderResponse struct {
	OrderID string `json:"orderID"`
	Status  string `json:"status"`
	Error   string `json:"error"`
}

// PlaceBuyOrder signs and submits one GTC buy for the requested token.
func (t *AccountTrader) PlaceBuyOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	if req.Price <= 0 || req.Size <= 0 {
		return nil, fmt.Errorf("invalid order: price=%f size=%f", req.Price, req.Size)
	}

	price := roundToTick(req.Price, t.tickSize(ctx, req.TokenID))

	// MakerAmount is USDC spent, TakerAmount the outcome tokens bought.
	usd := price * req.Size
	signed, err := t.buildOrder(req.TokenID, model.BUY, usdToRawAmount(usd), usdToRawAmount(req.Size))
	if err != nil {
		return nil, fmt.Errorf("build order: %w", err)
	}

	t.logger.Info("buy-order-submitting",
		zap.String("market", req.MarketID),
		zap.String("side", string(req.Side)),
		zap.Float64("price", price),
		zap.Float64("size", req.Size))

	resp, err := t.submitOrder(ctx, signed)
	if err != nil {
		OrdersTotal.WithLabelValues("buy", "failure").Inc()
		return nil, err
	}

	OrdersTotal.WithLabelValues("buy", "success").Inc()
	t.logger.Info("buy-order-placed",
		zap.String("market", req.MarketID),
		zap.String("order_id", resp.OrderID),
		zap.String("status", resp.Status))

	return &OrderResult{OrderID: resp.OrderID, Status: resp.Status}, nil
}

// placeSellOrder signs and submits one GTC sell of size tokens at price.
func (t *AccountTrader) placeSellOrder(ctx context.Context, tokenID string, size, price float64) (*OrderResult, error) {
	price = roundToTick(price, t.tickSize(ctx, tokenID))
	usd := price * size
	signed, err := t.buildOrder(tokenID, model.SELL, usdToRawAmount(size), usdToRawAmount(usd))
	if err != nil {
		return nil, fmt.Errorf("build order: %w", err)
	}

	resp, err := t.submitOrder(ctx, signed)
	if err != nil {
		OrdersTotal.WithLabelValues("sell", "failure").Inc()
		return nil, err
	}

	OrdersTotal.WithLabelValues("sell", "success").Inc()
	return &OrderResult{OrderID: resp.OrderID, Status: resp.Status}, nil
}

func (t *AccountTrader) buildOrder(tokenID string, side model.Side, makerAmount, takerAmount string) (*model.SignedOrder, error) {
	data := &model.OrderData{
		Maker:         t.proxy,
		Taker:         zeroAddress,
		TokenId:       tokenID,
		MakerAmount:   makerAmount,
		TakerAmount:   takerAmount,
		Side:          side,
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        t.address,
		Expiration:    "0",
		SignatureType: t.signatureType(),
	}

	return t.orderBuilder.BuildSignedOrder(t.privateKey, data, model.CTFExchange)
}

func (t *AccountTrader) submitOrder(ctx context.Context, order *model.SignedOrder) (*orderResponse, error) {
	sideStr := "BUY"
	if order.Side.Uint64() == uint64(model.SELL) {
		sideStr = "SELL"
	}

	jsonOrder := signedOrderJSON{
		Salt:          order.Salt.Int64(),
		Maker:         order.Maker.Hex(),
		Signer:        order.Signer.Hex(),
		Taker:         order.Taker.Hex(),
		TokenID:       order.TokenId.String(),
		MakerAmount:   order.MakerAmount.String(),
		TakerAmount:   order.TakerAmount.String(),
		Side:          sideStr,
		Expiration:    order.Expiration.String(),
		Nonce:         order.Nonce.String(),
		FeeRateBps:    order.FeeRateBps.String(),
		SignatureType: int(order.SignatureType.Int64()),
		Signature:     "0x" + common.Bytes2Hex(order.Signature),
	}

	// "owner" is the API key, not the maker address.
	orderRequest := map[string]interface{}{
		"order":     jsonOrder,
		"owner":     t.apiKey,
		"orderType": "GTC",
	}

	reqBody, err := json.Marshal(orderRequest)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	const requestPath = "/order"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.cfg.CLOBURL+requestPath, strings.NewReader(string(reqBody)))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	signature, err := t.l2Signature(timestamp, http.MethodPost, requestPath, string(reqBody))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("POLY_API_KEY", t.apiKey)
	req.Header.Set("POLY_SIGNATURE", signature)
	req.Header.Set("POLY_TIMESTAMP", timestamp)
	req.Header.Set("POLY_PASSPHRASE", t.passphrase)
	req.Header.Set("POLY_ADDRESS", t.address)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var orderResp orderResponse
	if err := json.Unmarshal(body, &orderResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if orderResp.Error != "" {
		return nil, fmt.Errorf("order rejected: %s", orderResp.Error)
	}

	return &orderResp, nil
}

// l2Signature builds the CLOB's HMAC auth header. The secret is
// URL-safe base64 on both sides of the HMAC.
func (t *AccountTrader) l2Signature(timestamp, method, requestPath, body string) (string, error) {
	secretBytes, err := base64.URLEncoding.DecodeString(t.secret)
	if err != nil {
		return "", fmt.Errorf("decode secret: %w", err)
	}

	h := hmac.New(sha256.New, secretBytes)
	h.Write([]byte(timestamp + method + requestPath + body))

	return base64.URLEncoding.EncodeToString(h.Sum(nil)), nil
}

// Balance returns the account's USDC balance in whole dollars.
func (t *AccountTrader) Balance(ctx context.Context) (float64, error) {
	return t.walletClient.USDCBalance(ctx, common.HexToAddress(t.proxy))
}

// usdToRawAmount converts dollars (or token units) to 6-decimal raw units.
func usdToRawAmount(usd float64) string {
	return fmt.Sprintf("%d", int64(usd*1000000))
}
