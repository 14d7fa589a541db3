package cli

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"

	"github.com/devicepulse/devicepulse/internal/cli/client"
	"github.com/devicepulse/devicepulse/internal/cli/output"
	"github.com/devicepulse/devicepulse/internal/cli/seeder"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the bridge with generated callbacks",
	Long:  "Generate a pool of fake devices and stream realistic callbacks at the bridge",
	Example: `  dpctl seed --count 500 --interval 50ms
  dpctl seed --kinds notifications,registrations --devices 100`,
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		interval, _ := cmd.Flags().GetDuration("interval")
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		devices, _ := cmd.Flags().GetInt("devices")
		kindsFlag, _ := cmd.Flags().GetString("kinds")

		kinds := strings.Split(kindsFlag, ",")
		for _, kind := range kinds {
			if !validKind(kind) {
				return fmt.Errorf("unknown callback kind: %s (supported: %s)", kind, strings.Join(seeder.Kinds, ", "))
			}
		}

		gofakeit.Seed(time.Now().UnixNano())
		gen := seeder.New(devices)
		bridge := client.NewBridgeClient(bridgeURL(cmd))

		output.Info("Seeding %d callbacks to %s (devices: %d, batch: %d)", count, bridgeURL(cmd), devices, batchSize)

		successCount := 0
		failCount := 0
		records := 0

		for i := 0; i < count; i++ {
			kind := kinds[rand.Intn(len(kinds))]
			body, err := gen.Callback(kind, batchSize)
			if err != nil {
				return err
			}

			result, err := bridge.SendCallback(body)
			if err != nil {
				output.Warn("Callback %d failed: %v", i+1, err)
				failCount++
			} else {
				successCount++
				records += result.Records
				if successCount%50 == 0 {
					output.Info("Progress: %d/%d callbacks sent", successCount, count)
				}
			}

			if interval > 0 && i < count-1 {
				time.Sleep(interval)
			}
		}

		output.Success("Seeding complete: %d sent, %d failed, %d records indexed", successCount, failCount, records)
		if failCount > 0 {
			return fmt.Errorf("%d of %d callbacks failed", failCount, count)
		}
		return nil
	},
}

func validKind(kind string) bool {
	for _, k := range seeder.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().IntP("count", "n", 100, "Number of callbacks to send")
	seedCmd.Flags().Duration("interval", 100*time.Millisecond, "Interval between callbacks")
	seedCmd.Flags().Int("batch-size", 5, "Events per callback")
	seedCmd.Flags().Int("devices", 25, "Size of the generated device pool")
	seedCmd.Flags().String("kinds", strings.Join(seeder.Kinds, ","), "Comma-separated callback kinds to generate")
}
