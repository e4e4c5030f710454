package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "polymarket-fleet",
	Short: "Multi-account Polymarket trading scheduler",
	Long: `Polymarket fleet scheduler that coordinates many trading accounts
against short-cycle markets. A single polling loop scans candidate
markets, fires when one side's ask crosses the configured threshold,
and fans a buy order out to every armed account concurrently with
per-market deduplication.

Accounts, strategy configuration, and manual batch actions (sell-all,
redeem-all, manual orders) are managed through the HTTP control API.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
