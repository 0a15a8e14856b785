package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashmarin/trailguard/internal/daemon"
)

var (
	watchPoll         bool
	watchPollInterval time.Duration
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchPoll, "poll", false, "Verify on a fixed interval instead of filesystem events")
	watchCmd.Flags().DurationVar(&watchPollInterval, "poll-interval", 30*time.Second, "Polling interval when --poll is set")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the background guardian",
	Long:  "Watches the chain directory: any write to a closed day file, an archive, or the summary index triggers re-verification, and a divergence raises a critical alert. Rotation runs on its configured interval.",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, loc, err := loadConfig()
	if err != nil {
		return err
	}
	sink, err := buildSink(cfg)
	if err != nil {
		return err
	}

	d, err := daemon.New(daemon.Config{
		ChainDir:       cfg.ChainDir(),
		Location:       loc,
		RotateInterval: cfg.RotateInterval,
		RetentionDays:  cfg.RetentionDays,
		PollMode:       watchPoll,
		PollInterval:   watchPollInterval,
	}, sink, consoleGate())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return d.Run(ctx)
}
