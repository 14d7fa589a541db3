package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/devicepulse/devicepulse/internal/cli/output"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage bridge connection profiles",
	Long:  "Store named bridge URLs in $HOME/.dpctl/config.yaml and switch between them",
}

var profileSetCmd = &cobra.Command{
	Use:     "set [name]",
	Short:   "Create or update a profile",
	Args:    cobra.ExactArgs(1),
	Example: `  dpctl profile set staging --bridge-url https://bridge.staging.example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("bridge-url")
		if url == "" {
			return fmt.Errorf("--bridge-url is required")
		}

		if err := cfg.SaveProfile(args[0], url); err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}

		output.Success("Profile '%s' saved and selected", args[0])
		return nil
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		if format, _ := cmd.Flags().GetString("output"); format == "json" {
			return output.JSON(map[string]interface{}{
				"current_profile": cfg.CurrentProfile,
				"profiles":        cfg.Profiles,
			})
		}

		names := make([]string, 0, len(cfg.Profiles))
		for name := range cfg.Profiles {
			names = append(names, name)
		}
		sort.Strings(names)

		table := output.NewTable([]string{"NAME", "BRIDGE URL", "CURRENT"})
		for _, name := range names {
			current := ""
			if name == cfg.CurrentProfile {
				current = "*"
			}
			table.AddRow([]string{name, cfg.Profiles[name].BridgeURL, current})
		}
		table.Render()
		return nil
	},
}

var profileUseCmd = &cobra.Command{
	Use:     "use [name]",
	Short:   "Select the current profile",
	Args:    cobra.ExactArgs(1),
	Example: `  dpctl profile use production`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := cfg.GetProfile(args[0]); err != nil {
			return err
		}

		cfg.CurrentProfile = args[0]
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		output.Success("Switched to profile '%s'", args[0])
		return nil
	},
}

var profileRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Remove a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RemoveProfile(args[0]); err != nil {
			return err
		}

		output.Success("Profile '%s' removed", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileUseCmd)
	profileCmd.AddCommand(profileRemoveCmd)
}
