package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-fleet/internal/accounts"
	"github.com/mselser95/polymarket-fleet/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List configured trading accounts",
	Long: `Lists every account in the configured store (file or postgres)
with its status and last known USDC balance. Credentials are never
printed.`,
	RunE: runAccounts,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(accountsCmd)
}

func runAccounts(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
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

	all, err := store.List(context.Background())
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	if len(all) == 0 {
		fmt.Println("No accounts configured.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tBALANCE (USDC)\tWALLET")
	for _, a := range all {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%s\n",
			a.ID, a.Name, a.Status, a.BalanceUSDC, a.ProxyWallet)
	}
	return w.Flush()
}

func openStore(cfg *config.Config, logger *zap.Logger) (accounts.Store, error) {
	if cfg.StorageMode == "postgres" {
		return accounts.NewPostgresStore(&accounts.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
	}
	return accounts.NewFileStore(cfg.AccountsFile, logger)
}
