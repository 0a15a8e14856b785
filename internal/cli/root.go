// Package cli wires the trailguard commands.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ashmarin/trailguard/internal/config"
	"github.com/ashmarin/trailguard/internal/gate"
	"github.com/ashmarin/trailguard/internal/notify"
)

var rootCmd = &cobra.Command{
	Use:   "trailguard",
	Short: "Tamper-evident audit trail for privileged commands",
	Long:  "Records commands before they run, redacts secrets from everything it emits, and chains every record into a hash-linked ledger that rotation archives and verification can prove intact.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the environment and resolves the ledger time zone.
func loadConfig() (*config.Config, *time.Location, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	return cfg, loc, nil
}

// buildSink assembles the webhook sink from env URLs, with the route file
// taking precedence for the channels it names.
func buildSink(cfg *config.Config) (*notify.WebhookSink, error) {
	routes := map[notify.Channel]notify.Route{}
	if cfg.WebhookCommands != "" {
		routes[notify.ChannelCommands] = notify.Route{URL: cfg.WebhookCommands}
	}
	if cfg.WebhookAlerts != "" {
		routes[notify.ChannelAlerts] = notify.Route{URL: cfg.WebhookAlerts}
	}
	if cfg.WebhookChain != "" {
		routes[notify.ChannelChain] = notify.Route{URL: cfg.WebhookChain}
	}

	fileRoutes, err := notify.LoadRoutes(cfg.RoutesFile)
	if err != nil {
		return nil, fmt.Errorf("load webhook routes: %w", err)
	}
	for ch, route := range fileRoutes {
		routes[ch] = route
	}
	return notify.NewWebhookSink(routes), nil
}

// consoleGate is the redaction-gated stderr logger shared by commands.
func consoleGate() *gate.Gate {
	return gate.Wrap(gate.NewConsoleSinkTo(os.Stderr))
}
