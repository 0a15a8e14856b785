package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashmarin/trailguard/internal/audit"
	"github.com/ashmarin/trailguard/internal/chain"
	"github.com/ashmarin/trailguard/internal/config"
)

var (
	execDir      string
	execNoNotify bool
)

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().StringVar(&execDir, "dir", "", "Working directory for the command (default: current)")
	execCmd.Flags().BoolVar(&execNoNotify, "no-notify", false, "Record to the chain only, skip webhook delivery")
}

var execCmd = &cobra.Command{
	Use:   "exec [flags] -- <command> [args...]",
	Short: "Run a command with full audit recording",
	Long:  "Writes a start record before the command runs, so even a crashed or killed command leaves a trace. Completion is recorded after exit. The child's exit code is passed through.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExec,
}

func runExec(cmd *cobra.Command, args []string) error {
	cfg, loc, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	dir := execDir
	if dir == "" {
		dir, _ = os.Getwd()
	}

	res, err := auditedExec(ctx, cfg, loc, args[0], args[1:], dir)
	if err != nil {
		return fmt.Errorf("start %s: %w", args[0], err)
	}

	fmt.Print(res.Stdout)
	if res.Stderr != "" {
		fmt.Fprint(os.Stderr, res.Stderr)
	}

	if res.ExitCode != 0 {
		// auditedExec has already closed the ledger and drained the
		// auditor; exiting here loses nothing.
		os.Exit(res.ExitCode)
	}
	return nil
}

// auditedExec runs the command under full audit recording. The ledger is
// closed and detached submissions drained before it returns, so the
// caller may exit the process immediately afterwards.
func auditedExec(ctx context.Context, cfg *config.Config, loc *time.Location, name string, args []string, dir string) (*audit.ExecResult, error) {
	ledger, err := chain.Open(cfg.ChainDir(), loc)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer ledger.Close()

	auditor := newAuditor(cfg, audit.WithLedger(ledger), audit.WithOutput(consoleGate()))
	defer auditor.Wait()

	return auditor.WrapExecutor(audit.OSExecutor)(ctx, name, args, dir)
}

// newAuditor builds the auditor, with or without webhook delivery.
func newAuditor(cfg *config.Config, opts ...audit.Option) *audit.Auditor {
	if execNoNotify {
		return audit.New(nil, opts...)
	}
	sink, err := buildSink(cfg)
	if err != nil {
		consoleGate().Warn("webhook routes unavailable, recording locally only:", err)
		return audit.New(nil, opts...)
	}
	return audit.New(sink, opts...)
}
