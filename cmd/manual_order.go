package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var manualOrderCmd = &cobra.Command{
	Use:   "manual-order <market>",
	Short: "Place a manual order through a running scheduler",
	Long: `Sends a manual order request to a running fleet scheduler's control
API. The market may be a Polymarket URL, a slug, or a numeric id.
Without --account flags the order goes to every armed account.

Example:
  polymarket-fleet manual-order eth-updown-15m-1756713600 --side up
  polymarket-fleet manual-order https://polymarket.com/event/some-market --side down --account 1 --account 3`,
	Args: cobra.ExactArgs(1),
	RunE: runManualOrder,
}

//nolint:gochecknoglobals // Cobra boilerplate
var (
	manualOrderAddr     string
	manualOrderSide     string
	manualOrderAccounts []int64
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(manualOrderCmd)
	manualOrderCmd.Flags().StringVar(&manualOrderAddr, "addr",
		"http://localhost:8080", "Scheduler API address")
	manualOrderCmd.Flags().StringVar(&manualOrderSide, "side", "up",
		"Side to buy: up/down (yes/no)")
	manualOrderCmd.Flags().Int64SliceVar(&manualOrderAccounts, "account", nil,
		"Account id to order for (repeatable; default all armed)")
}

func runManualOrder(cmd *cobra.Command, args []string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"market":      args[0],
		"side":        manualOrderSide,
		"account_ids": manualOrderAccounts,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Post(manualOrderAddr+"/api/tasks/manual_order",
		"application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("call scheduler API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("unexpected response (status %d): %s", resp.StatusCode, string(body))
	}

	if !env.Success {
		return fmt.Errorf("order failed: %s", env.Message)
	}

	fmt.Printf("%s\n", env.Message)
	if len(env.Data) > 0 {
		fmt.Printf("%s\n", string(env.Data))
	}
	return nil
}
