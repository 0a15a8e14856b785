// Package daemon runs the background guardian: a filesystem watcher over
// the chain directory that re-verifies the ledger when closed day files
// are touched, plus a ticker that archives and prunes on schedule.
package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/ashmarin/trailguard/internal/chain"
	"github.com/ashmarin/trailguard/internal/gate"
	"github.com/ashmarin/trailguard/internal/notify"
	"github.com/ashmarin/trailguard/internal/rotate"
)

// rotateDefault is the rotation interval when none is configured.
const rotateDefault = time.Hour

// Config holds full daemon configuration.
type Config struct {
	ChainDir       string
	Location       *time.Location
	RotateInterval time.Duration
	RetentionDays  int
	PollMode       bool
	PollInterval   time.Duration
}

// Daemon watches the chain directory and runs scheduled rotation.
type Daemon struct {
	cfg      Config
	sink     notify.Sink
	archiver *rotate.Archiver
	out      *gate.Gate
}

// New creates a daemon with validated configuration.
func New(cfg Config, sink notify.Sink, out *gate.Gate) (*Daemon, error) {
	if cfg.ChainDir == "" {
		return nil, fmt.Errorf("chain directory is required")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.RotateInterval == 0 {
		cfg.RotateInterval = rotateDefault
	}
	if out == nil {
		out = gate.Wrap(gate.NewConsoleSink())
	}
	return &Daemon{
		cfg:      cfg,
		sink:     sink,
		archiver: rotate.New(cfg.ChainDir, cfg.Location, cfg.RetentionDays),
		out:      out,
	}, nil
}

// Run starts the daemon. Blocks until ctx is cancelled.
// On startup it rotates once and verifies the full chain, so a daemon
// restarted after downtime catches tampering that happened while it was
// not watching.
func (d *Daemon) Run(ctx context.Context) error {
	if _, err := d.archiver.Rotate(); err != nil {
		return fmt.Errorf("initial rotation: %w", err)
	}
	d.verifyChain(ctx)

	go d.runRotationTicker(ctx)

	if d.cfg.PollMode {
		pw := NewPollWatcher(d.cfg.ChainDir, d.cfg.Location, d.cfg.PollInterval, func() {
			d.verifyChain(ctx)
		})
		return pw.Run(ctx)
	}

	w := NewChainWatcher(d.cfg.ChainDir, d.cfg.Location, func() {
		d.verifyChain(ctx)
	})
	return w.Run(ctx)
}

// runRotationTicker archives closed day files and prunes expired archives
// on the configured interval.
func (d *Daemon) runRotationTicker(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.RotateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := d.archiver.Rotate()
			if err != nil {
				d.out.Warn("daemon: rotation failed:", err)
				continue
			}
			if stats.Archived > 0 || stats.Deleted > 0 {
				d.out.Info("daemon: rotated", stats.Archived, "archived,", stats.Deleted, "pruned")
			}
		}
	}
}

// verifyChain re-walks the ledger and raises a critical alert on any
// divergence. Verification failures are reported, never fatal: the daemon
// keeps watching a compromised directory so repeated tampering keeps
// producing evidence.
func (d *Daemon) verifyChain(ctx context.Context) {
	res := chain.Verify(d.cfg.ChainDir, 0)
	if res.Valid {
		d.out.Info("daemon: chain verified,", res.Entries, "entries intact")
		return
	}

	d.out.Error("daemon: chain divergence at sequence", res.DivergedAt, "-", res.Reason)
	if d.sink == nil {
		return
	}
	msg := fmt.Sprintf("ledger divergence at sequence %d: %s", res.DivergedAt, res.Reason)
	n := notify.Alert("chain_tamper", "critical", msg, d.cfg.ChainDir)
	if err := d.sink.Deliver(ctx, notify.ChannelChain, n); err != nil {
		d.out.Warn("daemon: tamper alert delivery failed:", err)
	}
}
