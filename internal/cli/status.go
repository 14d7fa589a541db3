package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devicepulse/devicepulse/internal/cli/client"
	"github.com/devicepulse/devicepulse/internal/cli/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show bridge health and readiness",
	Long:  "Check that the bridge is up and can reach its search engine",
	Example: `  dpctl status
  dpctl status --bridge-url http://bridge.internal:8085`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bridge := client.NewBridgeClient(bridgeURL(cmd))

		health, err := bridge.Health()
		if err != nil {
			return fmt.Errorf("bridge unreachable: %w", err)
		}

		ready, err := bridge.Ready()
		if err != nil {
			return fmt.Errorf("readiness check failed: %w", err)
		}

		if format, _ := cmd.Flags().GetString("output"); format == "json" {
			return output.JSON(map[string]interface{}{
				"health": health,
				"ready":  ready,
			})
		}

		output.Success("Bridge: %s", health.Status)
		if ready.Status == "ready" {
			output.Success("Engine: ready (%s)", ready.Engine)
		} else {
			output.Warn("Engine: %s (%s)", ready.Status, ready.Reason)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
