package cli

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devicepulse/devicepulse/internal/cli/client"
	"github.com/devicepulse/devicepulse/internal/cli/output"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send callbacks to the bridge",
	Long:  "Hand-craft device-management callbacks and deliver them to the bridge",
}

var sendNotificationCmd = &cobra.Command{
	Use:   "notification",
	Short: "Send an observation notification",
	Long:  "Send a single resource observation for a device endpoint",
	Example: `  dpctl send notification --ep urn:imei:351358811125171 --path /3303/0/5700 --value 22.5
  dpctl send notification --ep node-1 --path /3/0/1 --payload TWFudWZhY3R1cmVy`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ep, _ := cmd.Flags().GetString("ep")
		path, _ := cmd.Flags().GetString("path")
		value, _ := cmd.Flags().GetString("value")
		payload, _ := cmd.Flags().GetString("payload")

		if ep == "" || path == "" {
			return fmt.Errorf("--ep and --path are required")
		}
		if value == "" && payload == "" {
			return fmt.Errorf("either --value or --payload is required")
		}

		// --value is plaintext convenience, --payload is already encoded
		if payload == "" {
			payload = base64.StdEncoding.EncodeToString([]byte(value))
		}

		body, err := json.Marshal(map[string]interface{}{
			"notifications": []map[string]string{{
				"ep":      ep,
				"path":    path,
				"payload": payload,
			}},
		})
		if err != nil {
			return err
		}

		return deliver(cmd, body)
	},
}

var sendRegistrationCmd = &cobra.Command{
	Use:   "registration",
	Short: "Send a device registration",
	Long:  "Announce a device to the bridge, or refresh it with --update",
	Example: `  dpctl send registration --ep urn:imei:351358811125171 --type thermostat
  dpctl send registration --ep node-1 --update --resources '[{"n":"/3/0"},{"n":"/3303/0"}]'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ep, _ := cmd.Flags().GetString("ep")
		originalEP, _ := cmd.Flags().GetString("original-ep")
		ept, _ := cmd.Flags().GetString("type")
		resources, _ := cmd.Flags().GetString("resources")
		update, _ := cmd.Flags().GetBool("update")

		if ep == "" {
			return fmt.Errorf("--ep is required")
		}
		if originalEP == "" {
			originalEP = ep
		}
		if !json.Valid([]byte(resources)) {
			return fmt.Errorf("--resources must be valid JSON")
		}

		key := "registrations"
		if update {
			key = "reg-updates"
		}

		body, err := json.Marshal(map[string]interface{}{
			key: []map[string]interface{}{{
				"ep":          ep,
				"original-ep": originalEP,
				"ept":         ept,
				"resources":   json.RawMessage(resources),
			}},
		})
		if err != nil {
			return err
		}

		return deliver(cmd, body)
	},
}

var sendExpiredCmd = &cobra.Command{
	Use:   "expired [endpoint...]",
	Short: "Send registration expirations",
	Long:  "Report device endpoints whose registrations lapsed",
	Args:  cobra.MinimumNArgs(1),
	Example: `  dpctl send expired urn:imei:351358811125171
  dpctl send expired node-1 node-2 node-3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := json.Marshal(map[string]interface{}{
			"registrations-expired": args,
		})
		if err != nil {
			return err
		}

		return deliver(cmd, body)
	},
}

var sendRawCmd = &cobra.Command{
	Use:   "raw",
	Short: "Send a raw callback body",
	Long:  "Send an arbitrary JSON body, useful for exercising the unknown-callback path",
	Example: `  dpctl send raw --json '{"notifications":[{"ep":"node-1","path":"/3/0","payload":"MQ=="}]}'
  dpctl send raw --file callback.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonData, _ := cmd.Flags().GetString("json")
		file, _ := cmd.Flags().GetString("file")

		if jsonData == "" && file == "" {
			return fmt.Errorf("either --json or --file is required")
		}

		body := []byte(jsonData)
		if file != "" {
			var err error
			body, err = os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
		}

		return deliver(cmd, body)
	},
}

func deliver(cmd *cobra.Command, body []byte) error {
	bridge := client.NewBridgeClient(bridgeURL(cmd))

	result, err := bridge.SendCallback(body)
	if err != nil {
		return fmt.Errorf("failed to send callback: %w", err)
	}

	if format, _ := cmd.Flags().GetString("output"); format == "json" {
		return output.JSON(result)
	}

	output.Success("Callback accepted: kind=%s records=%d", result.Kind, result.Records)
	return nil
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.AddCommand(sendNotificationCmd)
	sendCmd.AddCommand(sendRegistrationCmd)
	sendCmd.AddCommand(sendExpiredCmd)
	sendCmd.AddCommand(sendRawCmd)

	sendNotificationCmd.Flags().StringP("ep", "e", "", "Device endpoint name")
	sendNotificationCmd.Flags().StringP("path", "p", "", "Resource path")
	sendNotificationCmd.Flags().StringP("value", "v", "", "Plaintext payload (encoded for the wire)")
	sendNotificationCmd.Flags().String("payload", "", "Base64 payload (sent as-is)")

	sendRegistrationCmd.Flags().StringP("ep", "e", "", "Device endpoint name")
	sendRegistrationCmd.Flags().String("original-ep", "", "Original endpoint name (default: same as --ep)")
	sendRegistrationCmd.Flags().StringP("type", "t", "device", "Endpoint type")
	sendRegistrationCmd.Flags().String("resources", `[{"n":"/3/0"}]`, "Resource list as JSON")
	sendRegistrationCmd.Flags().Bool("update", false, "Send as a registration update")

	sendRawCmd.Flags().String("json", "", "JSON callback body")
	sendRawCmd.Flags().StringP("file", "f", "", "Read callback body from file")
}
