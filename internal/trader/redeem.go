package trader

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-fleet/internal/scanner"
)

const (
	polygonUSDC    = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"
	redeemGasLimit = 200000
)

const redeemABI = `[{
	"inputs": [
		{"name": "collateralToken", "type": "address"},
		{"name": "parentCollectionId", "type": "bytes32"},
		{"name": "conditionId", "type": "bytes32"},
		{"name": "indexSets", "type": "uint256[]"}
	],
	"name": "redeemPositions",
	"outputs": [],
	"stateMutability": "nonpayable",
	"type": "function"
}]`

// RedeemPositions claims every settled position against the CTF
// contract, one transaction per condition. Returns the number of
// conditions redeemed.
func (t *AccountTrader) RedeemPositions(ctx context.Context) (int, error) {
	positions, err := t.walletClient.GetPositions(ctx, t.cfg.DataURL, t.proxy)
	if err != nil {
		return 0, fmt.Errorf("get positions: %w", err)
	}

	// One redemption per condition covers every outcome held in it.
	indexSets := make(map[string]map[int64]struct{})
	for _, pos := range positions {
		if !pos.Redeemable || pos.ConditionID == "" {
			continue
		}

		set, ok := indexSets[pos.ConditionID]
		if !ok {
			set = make(map[int64]struct{})
			indexSets[pos.ConditionID] = set
		}
		set[outcomeIndexSet(pos.Outcome)] = struct{}{}
	}

	if len(indexSets) == 0 {
		return 0, nil
	}

	client, err := ethclient.DialContext(ctx, t.cfg.PolygonRPC)
	if err != nil {
		return 0, fmt.Errorf("dial RPC: %w", err)
	}
	defer client.Close()

	parsedABI, err := abi.JSON(strings.NewReader(redeemABI))
	if err != nil {
		return 0, fmt.Errorf("parse ABI: %w", err)
	}

	redeemed := 0
	for conditionID, sets := range indexSets {
		err := t.redeemCondition(ctx, client, parsedABI, conditionID, sets)
		if err != nil {
			t.logger.Warn("condition-redeem-failed",
				zap.String("condition_id", conditionID),
				zap.Error(err))
			continue
		}
		redeemed++
		RedemptionsTotal.Inc()
	}

	t.logger.Info("redeem-sweep-finished",
		zap.Int("conditions", len(indexSets)),
		zap.Int("redeemed", redeemed))

	return redeemed, nil
}

func (t *AccountTrader) redeemCondition(
	ctx context.Context,
	client *ethclient.Client,
	parsedABI abi.ABI,
	conditionID string,
	sets map[int64]struct{},
) error {
	indexSets := make([]*big.Int, 0, len(sets))
	for s := range sets {
		indexSets = append(indexSets, big.NewInt(s))
	}

	data, err := parsedABI.Pack("redeemPositions",
		common.HexToAddress(polygonUSDC),
		common.Hash{}, // parent collection is always null on Polymarket
		common.HexToHash(conditionID),
		indexSets)
	if err != nil {
		return fmt.Errorf("pack call data: %w", err)
	}

	sender := common.HexToAddress(t.address)
	nonce, err := client.PendingNonceAt(ctx, sender)
	if err != nil {
		return fmt.Errorf("get nonce: %w", err)
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("suggest gas price: %w", err)
	}

	tx := types.NewTransaction(
		nonce,
		common.HexToAddress(ctfContractAddress),
		big.NewInt(0),
		uint64(redeemGasLimit),
		gasPrice,
		data)

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(big.NewInt(polygonChainID)), t.privateKey)
	if err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}

	err = client.SendTransaction(ctx, signedTx)
	if err != nil {
		return fmt.Errorf("send transaction: %w", err)
	}

	t.logger.Info("condition-redeemed",
		zap.String("condition_id", conditionID),
		zap.String("tx", signedTx.Hash().Hex()))

	return nil
}

// outcomeIndexSet maps an outcome title to its CTF index set bit.
// UP (YES) is bit 0, DOWN (NO) is bit 1.
func outcomeIndexSet(outcome string) int64 {
	side, ok := scanner.ParseSide(outcome)
	if !ok || side == scanner.SideUp {
		return 1
	}
	return 2
}
