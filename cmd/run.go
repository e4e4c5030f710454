package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mselser95/polymarket-fleet/internal/app"
	"github.com/mselser95/polymarket-fleet/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the fleet scheduler",
	Long: `Starts the fleet scheduler service, which will:
1. Load accounts from the configured store
2. Serve the control API, health probes and metrics over HTTP
3. Run the market monitor loop for armed accounts
4. Periodically redeem settled positions

Use --arm-all to arm every active account at startup instead of
waiting for start calls on the API.`,
	RunE: runFleet,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("arm-all", false, "Arm every active account at startup")
}

func runFleet(cmd *cobra.Command, args []string) error {
	err := godotenv.Load()
	if err != nil {
		fmt.Printf("Warning: .env file not found\n")
	}

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

	armAll, _ := cmd.Flags().GetBool("arm-all")

	application, err := app.New(cfg, logger, &app.Options{
		ArmAllActive: armAll,
	})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
