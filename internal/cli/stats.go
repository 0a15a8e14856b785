package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashmarin/trailguard/internal/rotate"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print ledger summary statistics",
	Long:  "Reads the summary index, rebuilding it from the day files when it is missing or corrupt.",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, loc, err := loadConfig()
	if err != nil {
		return err
	}

	summary := rotate.New(cfg.ChainDir(), loc, cfg.RetentionDays).Stats()
	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))
	return nil
}
