package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devicepulse/devicepulse/internal/cli/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "dpctl",
	Short: "DevicePulse bridge CLI",
	Long: `dpctl is the command-line interface for the DevicePulse bridge.

Send device-management callbacks by hand, seed generated device fleets
for load testing, inspect bridge health, and manage connection profiles.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.dpctl/config.yaml)")
	rootCmd.PersistentFlags().String("profile", "", "profile to use (default: current profile)")
	rootCmd.PersistentFlags().String("output", "table", "output format: table, json")
	rootCmd.PersistentFlags().String("bridge-url", "", "bridge base URL (overrides profile)")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.Default()
	}
}

// bridgeURL resolves the target bridge for a command: explicit flag
// first, then profile, then the configured default.
func bridgeURL(cmd *cobra.Command) string {
	if url, _ := cmd.Flags().GetString("bridge-url"); url != "" {
		return url
	}

	if cfg == nil {
		cfg = config.Default()
	}

	profileName, _ := cmd.Flags().GetString("profile")
	return cfg.ResolveBridgeURL(profileName)
}
