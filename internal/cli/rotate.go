package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashmarin/trailguard/internal/rotate"
)

func init() {
	rootCmd.AddCommand(rotateCmd)
}

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Archive closed day files and prune expired archives",
	Long:  "Compresses every day file older than today into the archive, deletes archives past the retention window, and rebuilds the summary index. Safe to run repeatedly or concurrently.",
	RunE:  runRotate,
}

func runRotate(cmd *cobra.Command, args []string) error {
	cfg, loc, err := loadConfig()
	if err != nil {
		return err
	}

	stats, err := rotate.New(cfg.ChainDir(), loc, cfg.RetentionDays).Rotate()
	if err != nil {
		return fmt.Errorf("rotate: %w", err)
	}

	out, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(out))
	return nil
}
