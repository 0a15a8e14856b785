// Package rotate maintains the ledger's on-disk lifecycle: past-day chain
// files move into an archive area (gzip-compressed), archived files beyond
// the retention window are deleted, and a cached index summary avoids full
// directory rescans on stats queries. The summary is a projection, never
// the source of truth; it can always be rebuilt by rescanning.
package rotate

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ashmarin/trailguard/internal/chain"
)

const (
	dayFormat = "2006-01-02"
	dirPerm   = 0700
	filePerm  = 0600

	// DefaultRetentionDays is the archive retention window when
	// LOG_RETENTION_DAYS is unset.
	DefaultRetentionDays = 30
)

// Stats reports the outcome of one rotation pass.
type Stats struct {
	Archived int `json:"archived"`
	Deleted  int `json:"deleted"`
}

// Summary is the cached projection over the chain directory, persisted at
// _index.json.
type Summary struct {
	ActiveEntryCount int    `json:"active_entry_count"`
	ActiveBytes      int64  `json:"active_bytes"`
	ArchiveBytes     int64  `json:"archive_bytes"`
	RetentionDays    int    `json:"retention_days"`
	LastRotatedDate  string `json:"last_rotated_date,omitempty"`
	LastSequence     uint64 `json:"last_sequence"`
}

// Archiver rotates and prunes a ledger directory. Safe to run concurrently
// with ongoing appends: it only ever touches files strictly older than the
// current day, and appends only touch the current day's file. Overlapping
// Rotate calls on the same Archiver serialize on an internal mutex; a file
// already moved by a competing pass is skipped, so repeats are no-ops.
type Archiver struct {
	dir           string
	loc           *time.Location
	retentionDays int
	mu            sync.Mutex
}

// New creates an Archiver over the chain directory dir. retentionDays <= 0
// selects the default window.
func New(dir string, loc *time.Location, retentionDays int) *Archiver {
	if loc == nil {
		loc = time.Local
	}
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &Archiver{dir: dir, loc: loc, retentionDays: retentionDays}
}

// RetentionDays returns the configured retention window.
func (a *Archiver) RetentionDays() int { return a.retentionDays }

func (a *Archiver) archiveDir() string { return filepath.Join(a.dir, chain.ArchiveDirName) }
func (a *Archiver) indexPath() string  { return filepath.Join(a.dir, chain.IndexFileName) }

// Rotate archives every chain file dated strictly before the current
// calendar day, deletes archived files older than the retention window,
// and rewrites the index summary. The current day's file is never touched,
// even at a day boundary. Missing directories are a first-run condition,
// not an error.
func (a *Archiver) Rotate() (Stats, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.ensureDirs(); err != nil {
		return Stats{}, err
	}

	today := time.Now().In(a.loc).Format(dayFormat)
	var stats Stats

	days, err := chain.ActiveDays(a.dir)
	if err != nil {
		return stats, err
	}
	for _, day := range days {
		if day >= today {
			continue
		}
		src := filepath.Join(a.dir, chain.DayFileName(day))
		dst := filepath.Join(a.archiveDir(), chain.DayFileName(day)+".gz")
		moved, err := a.archiveFile(src, dst)
		if err != nil {
			return stats, err
		}
		if moved {
			stats.Archived++
		}
	}

	deleted, err := a.prune(today)
	if err != nil {
		return stats, err
	}
	stats.Deleted = deleted

	summary := a.rescan(today)
	if err := a.writeSummary(summary); err != nil {
		log.Warn().Err(err).Msg("rotate: index summary not persisted")
	}
	return stats, nil
}

// Stats returns the cached summary, falling back to a full rescan when the
// index file is missing or malformed. Never fails on a corrupt index.
func (a *Archiver) Stats() Summary {
	data, err := os.ReadFile(a.indexPath())
	if err == nil {
		var s Summary
		if jerr := json.Unmarshal(data, &s); jerr == nil && s.RetentionDays > 0 {
			// Retention is configuration, not a disk projection: the
			// cached value reflects whoever wrote the index last.
			s.RetentionDays = a.retentionDays
			return s
		}
		log.Warn().Str("path", a.indexPath()).Msg("rotate: malformed index summary, rebuilding from rescan")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	summary := a.rescan("")
	if err := a.writeSummary(summary); err != nil {
		log.Warn().Err(err).Msg("rotate: index summary not persisted")
	}
	return summary
}

// ensureDirs creates the chain and archive directories. Idempotent.
func (a *Archiver) ensureDirs() error {
	for _, dir := range []string{a.dir, a.archiveDir()} {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return fmt.Errorf("rotate: create directory %s: %w", dir, err)
		}
	}
	return nil
}

// archiveFile gzips src into dst and removes src. A missing src means a
// competing rotation already archived it; that is not an error.
func (a *Archiver) archiveFile(src, dst string) (bool, error) {
	in, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("rotate: open %s: %w", src, err)
	}
	defer in.Close()

	tmp := dst + ".tmp"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
	if err != nil {
		return false, fmt.Errorf("rotate: create %s: %w", tmp, err)
	}

	zw := gzip.NewWriter(out)
	if _, err := io.Copy(zw, in); err != nil {
		out.Close()
		_ = os.Remove(tmp)
		return false, fmt.Errorf("rotate: compress %s: %w", src, err)
	}
	if err := zw.Close(); err != nil {
		out.Close()
		_ = os.Remove(tmp)
		return false, fmt.Errorf("rotate: finish %s: %w", tmp, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return false, fmt.Errorf("rotate: close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return false, fmt.Errorf("rotate: place %s: %w", dst, err)
	}
	if err := os.Remove(src); err != nil && !os.IsNotExist(err) {
		return true, fmt.Errorf("rotate: remove %s: %w", src, err)
	}
	return true, nil
}

// prune deletes archived files older than the retention window.
func (a *Archiver) prune(today string) (int, error) {
	cutoffDay, err := time.ParseInLocation(dayFormat, today, a.loc)
	if err != nil {
		return 0, fmt.Errorf("rotate: parse today: %w", err)
	}
	cutoff := cutoffDay.AddDate(0, 0, -a.retentionDays).Format(dayFormat)

	entries, err := os.ReadDir(a.archiveDir())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("rotate: read archive: %w", err)
	}

	deleted := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		day, ok := chain.DayFromFileName(e.Name())
		if !ok || day >= cutoff {
			continue
		}
		path := filepath.Join(a.archiveDir(), e.Name())
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return deleted, fmt.Errorf("rotate: delete %s: %w", path, err)
		}
		deleted++
	}
	return deleted, nil
}

// rescan rebuilds the summary from the directory contents. lastRotated is
// recorded as-is; pass "" to preserve the previous value, if any.
func (a *Archiver) rescan(lastRotated string) Summary {
	s := Summary{RetentionDays: a.retentionDays, LastRotatedDate: lastRotated}
	if lastRotated == "" {
		if prev, ok := a.readSummary(); ok {
			s.LastRotatedDate = prev.LastRotatedDate
		}
	}

	days, err := chain.ActiveDays(a.dir)
	if err != nil {
		return s
	}
	for _, day := range days {
		path := filepath.Join(a.dir, chain.DayFileName(day))
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		s.ActiveBytes += info.Size()
		s.ActiveEntryCount += countLines(path)
	}

	if entries, err := os.ReadDir(a.archiveDir()); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if _, ok := chain.DayFromFileName(e.Name()); !ok {
				continue
			}
			if info, err := e.Info(); err == nil {
				s.ArchiveBytes += info.Size()
			}
		}
	}

	if tail, found, err := chain.Tail(a.dir); err == nil && found {
		s.LastSequence = tail.Sequence
	}
	return s
}

func (a *Archiver) readSummary() (Summary, bool) {
	data, err := os.ReadFile(a.indexPath())
	if err != nil {
		return Summary{}, false
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return Summary{}, false
	}
	return s, true
}

// writeSummary persists the index atomically via temp file + rename.
func (a *Archiver) writeSummary(s Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := a.indexPath() + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), filePerm); err != nil {
		return err
	}
	return os.Rename(tmp, a.indexPath())
}

func countLines(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	n := 0
	for scanner.Scan() {
		if len(strings.TrimSpace(scanner.Text())) > 0 {
			n++
		}
	}
	return n
}
