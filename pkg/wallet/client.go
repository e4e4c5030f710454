package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

const polygonUSDC = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"

const erc20BalanceOfABI = `[{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}]`

// Client fetches on-chain balances for fleet accounts.
type Client struct {
	rpcURL string
	logger *zap.Logger
}

// NewClient creates a new wallet client.
func NewClient(rpcURL string, logger *zap.Logger) (*Client, error) {
	if rpcURL == "" {
		return nil, errors.New("rpcURL cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &Client{rpcURL: rpcURL, logger: logger}, nil
}

// USDCBalance returns the USDC balance for an address in whole dollars.
// USDC uses 6 decimals on Polygon.
func (c *Client) USDCBalance(ctx context.Context, address common.Address) (float64, error) {
	client, err := ethclient.DialContext(ctx, c.rpcURL)
	if err != nil {
		return 0, fmt.Errorf("dial RPC: %w", err)
	}
	defer client.Close()

	raw, err := c.erc20Balance(ctx, client, address, polygonUSDC)
	if err != nil {
		return 0, fmt.Errorf("get USDC balance: %w", err)
	}

	usdc, _ := new(big.Float).Quo(new(big.Float).SetInt(raw), big.NewFloat(1e6)).Float64()

	c.logger.Debug("usdc-balance-fetched",
		zap.String("address", address.Hex()),
		zap.Float64("usdc", usdc))

	return usdc, nil
}

func (c *Client) erc20Balance(
	ctx context.Context,
	client *ethclient.Client,
	owner common.Address,
	tokenAddr string,
) (*big.Int, error) {
	parsedABI, err := abi.JSON(strings.NewReader(erc20BalanceOfABI))
	if err != nil {
		return nil, fmt.Errorf("parse ABI: %w", err)
	}

	data, err := parsedABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("pack ABI: %w", err)
	}

	token := common.HexToAddress(tokenAddr)
	result, err := client.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("call contract: %w", err)
	}

	var balance *big.Int
	err = parsedABI.UnpackIntoInterface(&balance, "balanceOf", result)
	if err != nil {
		return nil, fmt.Errorf("unpack result: %w", err)
	}

	return balance, nil
}
