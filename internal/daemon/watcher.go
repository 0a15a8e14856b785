package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ashmarin/trailguard/internal/chain"
)

// debounceDefault is the default debounce interval for file events.
const debounceDefault = 500 * time.Millisecond

// pollDefault is the default polling interval when fsnotify is unavailable.
const pollDefault = 30 * time.Second

// suspiciousEvent reports whether a filesystem event on path warrants
// re-verification. Appends to today's active file are normal traffic;
// anything touching a closed day file, an archive, or the summary index
// is not something the writer does outside rotation.
func suspiciousEvent(path string, today string) bool {
	name := filepath.Base(path)
	if name == chain.IndexFileName {
		return true
	}
	day, ok := chain.DayFromFileName(name)
	if !ok {
		return false
	}
	return day != today
}

// ChainWatcher watches the chain directory for writes to closed day files
// using fsnotify.
type ChainWatcher struct {
	dir      string
	loc      *time.Location
	onAlarm  func()
	debounce time.Duration
}

// NewChainWatcher creates a watcher over the chain directory.
func NewChainWatcher(dir string, loc *time.Location, onAlarm func()) *ChainWatcher {
	return &ChainWatcher{
		dir:      dir,
		loc:      loc,
		onAlarm:  onAlarm,
		debounce: debounceDefault,
	}
}

// Run watches the chain directory and its archive. Blocks until ctx is
// cancelled. Bursts of events collapse into a single verification pass
// through one debounce timer; no per-event goroutines.
func (w *ChainWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.dir); err != nil {
		return err
	}
	archiveDir := filepath.Join(w.dir, chain.ArchiveDirName)
	if _, err := os.Stat(archiveDir); err == nil {
		if err := watcher.Add(archiveDir); err != nil {
			return err
		}
	}

	var mu sync.Mutex
	pending := false

	debounceTimer := time.NewTimer(w.debounce)
	debounceTimer.Stop()
	defer debounceTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-debounceTimer.C:
			mu.Lock()
			fire := pending
			pending = false
			mu.Unlock()
			if fire {
				w.onAlarm()
			}

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Remove) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Chmod) {
				continue
			}
			today := time.Now().In(w.loc).Format("2006-01-02")
			if !suspiciousEvent(event.Name, today) {
				continue
			}

			mu.Lock()
			pending = true
			mu.Unlock()

			if !debounceTimer.Stop() {
				select {
				case <-debounceTimer.C:
				default:
				}
			}
			debounceTimer.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			_ = err
		}
	}
}

// PollWatcher re-verifies on a fixed interval. Fallback for filesystems
// where fsnotify does not deliver events (e.g., NFS).
type PollWatcher struct {
	dir      string
	loc      *time.Location
	onAlarm  func()
	interval time.Duration
}

// NewPollWatcher creates a polling-based watcher.
func NewPollWatcher(dir string, loc *time.Location, interval time.Duration, onAlarm func()) *PollWatcher {
	if interval == 0 {
		interval = pollDefault
	}
	return &PollWatcher{
		dir:      dir,
		loc:      loc,
		onAlarm:  onAlarm,
		interval: interval,
	}
}

// Run verifies on every tick. Blocks until ctx is cancelled.
func (w *PollWatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.onAlarm()
		}
	}
}
