package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashmarin/trailguard/internal/notify"
)

func init() {
	rootCmd.AddCommand(pingCmd)
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Send a test notification to every configured channel",
	RunE:  runPing,
}

func runPing(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	sink, err := buildSink(cfg)
	if err != nil {
		return err
	}

	channels := sink.Channels()
	if len(channels) == 0 {
		return fmt.Errorf("no webhook channels configured")
	}

	n := notify.Alert("connectivity_test", "low", "trailguard ping", "cli")
	failed := 0
	for _, ch := range channels {
		if err := sink.Deliver(cmd.Context(), ch, n); err != nil {
			failed++
			fmt.Printf("%-10s FAIL  %v\n", ch, err)
			continue
		}
		fmt.Printf("%-10s OK\n", ch)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d channels failed", failed, len(channels))
	}
	return nil
}
