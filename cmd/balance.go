package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mselser95/polymarket-fleet/pkg/config"
	"github.com/mselser95/polymarket-fleet/pkg/wallet"
)

//nolint:gochecknoglobals // Cobra boilerplate
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Check USDC balances for every account",
	Long: `Fetches the on-chain USDC balance of every configured account's
wallet and writes it back to the store.`,
	RunE: runBalance,
}

//nolint:gochecknoglobals // Cobra boilerplate
var balanceRPC string

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVarP(&balanceRPC, "rpc", "r", "", "Polygon RPC endpoint (default from env)")
}

func runBalance(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if balanceRPC != "" {
		cfg.PolygonRPCURL = balanceRPC
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	walletClient, err := wallet.NewClient(cfg.PolygonRPCURL, logger)
	if err != nil {
		return fmt.Errorf("create wallet client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	all, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	for _, a := range all {
		if a.ProxyWallet == "" {
			fmt.Printf("%-20s no wallet address on record\n", a.Name)
			continue
		}

		usdc, err := walletClient.USDCBalance(ctx, common.HexToAddress(a.ProxyWallet))
		if err != nil {
			fmt.Printf("%-20s balance fetch failed: %v\n", a.Name, err)
			continue
		}

		fmt.Printf("%-20s %.2f USDC\n", a.Name, usdc)

		err = store.UpdateBalance(ctx, a.ID, usdc)
		if err != nil {
			fmt.Printf("%-20s balance not saved: %v\n", a.Name, err)
		}
	}

	return nil
}
