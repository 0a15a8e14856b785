package rotate

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ashmarin/trailguard/internal/chain"
)

func writeDayFile(t *testing.T, dir, day string, lines int) {
	t.Helper()
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	var data []byte
	for i := 0; i < lines; i++ {
		data = append(data, []byte(`{"seq":1,"ts":"x","prev_hash":"GENESIS","hash":"h","payload":{}}`+"\n")...)
	}
	path := filepath.Join(dir, chain.DayFileName(day))
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func day(offset int) string {
	return time.Now().AddDate(0, 0, offset).Format("2006-01-02")
}

func TestRotateArchivesPastDaysOnly(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chain_logs")
	writeDayFile(t, dir, day(-1), 3)
	writeDayFile(t, dir, day(0), 2)

	a := New(dir, time.Local, 0)
	stats, err := a.Rotate()
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if stats.Archived != 1 {
		t.Fatalf("expected 1 archived, got %d", stats.Archived)
	}
	if stats.Deleted != 0 {
		t.Fatalf("expected 0 deleted, got %d", stats.Deleted)
	}

	// Today's file untouched.
	if _, err := os.Stat(filepath.Join(dir, chain.DayFileName(day(0)))); err != nil {
		t.Fatalf("today's file missing after rotate: %v", err)
	}
	// Yesterday's file moved and compressed.
	if _, err := os.Stat(filepath.Join(dir, chain.DayFileName(day(-1)))); !os.IsNotExist(err) {
		t.Fatalf("yesterday's file still active: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, chain.ArchiveDirName, chain.DayFileName(day(-1))+".gz")); err != nil {
		t.Fatalf("archived file missing: %v", err)
	}
}

func TestRotateIsIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chain_logs")
	writeDayFile(t, dir, day(-2), 1)

	a := New(dir, time.Local, 0)
	first, err := a.Rotate()
	if err != nil {
		t.Fatalf("first rotate: %v", err)
	}
	if first.Archived != 1 {
		t.Fatalf("expected 1 archived, got %d", first.Archived)
	}

	second, err := a.Rotate()
	if err != nil {
		t.Fatalf("second rotate: %v", err)
	}
	if second.Archived != 0 || second.Deleted != 0 {
		t.Fatalf("repeat rotate not a no-op: %+v", second)
	}
}

func TestRotateUnderOverlappingTimers(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chain_logs")
	for i := 1; i <= 4; i++ {
		writeDayFile(t, dir, day(-i), 1)
	}

	a := New(dir, time.Local, 0)
	var wg sync.WaitGroup
	total := make([]Stats, 3)
	for i := range total {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stats, err := a.Rotate()
			if err != nil {
				t.Errorf("rotate %d: %v", i, err)
			}
			total[i] = stats
		}(i)
	}
	wg.Wait()

	archived := 0
	for _, s := range total {
		archived += s.Archived
	}
	if archived != 4 {
		t.Fatalf("expected 4 archived across all passes, got %d", archived)
	}
}

func TestRotatePrunesBeyondRetention(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chain_logs")
	writeDayFile(t, dir, day(-40), 1)
	writeDayFile(t, dir, day(-1), 1)

	a := New(dir, time.Local, 30)
	stats, err := a.Rotate()
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if stats.Archived != 2 {
		t.Fatalf("expected 2 archived, got %d", stats.Archived)
	}
	if stats.Deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", stats.Deleted)
	}
	if _, err := os.Stat(filepath.Join(dir, chain.ArchiveDirName, chain.DayFileName(day(-40))+".gz")); !os.IsNotExist(err) {
		t.Fatal("file beyond retention window survived prune")
	}
	if _, err := os.Stat(filepath.Join(dir, chain.ArchiveDirName, chain.DayFileName(day(-1))+".gz")); err != nil {
		t.Fatalf("file inside retention window pruned: %v", err)
	}
}

func TestRotateOnMissingDirectoriesIsFirstRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never", "created", "chain_logs")
	a := New(dir, time.Local, 0)
	stats, err := a.Rotate()
	if err != nil {
		t.Fatalf("rotate on missing dirs: %v", err)
	}
	if stats.Archived != 0 || stats.Deleted != 0 {
		t.Fatalf("expected empty stats, got %+v", stats)
	}
	if _, err := os.Stat(filepath.Join(dir, chain.ArchiveDirName)); err != nil {
		t.Fatalf("archive dir not created: %v", err)
	}
}

func TestStatsSurvivesCorruptIndex(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chain_logs")
	writeDayFile(t, dir, day(0), 3)
	if err := os.WriteFile(filepath.Join(dir, chain.IndexFileName), []byte("{not json"), 0600); err != nil {
		t.Fatalf("corrupt index: %v", err)
	}

	a := New(dir, time.Local, 7)
	s := a.Stats()
	if s.RetentionDays != 7 {
		t.Fatalf("expected retention 7, got %d", s.RetentionDays)
	}
	if s.ActiveEntryCount != 3 {
		t.Fatalf("expected 3 active entries, got %d", s.ActiveEntryCount)
	}

	// The rescan must also have repaired the index on disk.
	repaired := a.Stats()
	if repaired.ActiveEntryCount != 3 {
		t.Fatalf("index not repaired: %+v", repaired)
	}
}

func TestStatsReportsConfiguredRetentionOverCachedIndex(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chain_logs")
	writeDayFile(t, dir, day(-1), 2)

	// First archiver persists its retention into the index.
	if _, err := New(dir, time.Local, 30).Rotate(); err != nil {
		t.Fatalf("rotate: %v", err)
	}

	// A reconfigured archiver must report its own retention, not the
	// cached one.
	s := New(dir, time.Local, 7).Stats()
	if s.RetentionDays != 7 {
		t.Fatalf("stats report retentionDays == %d, want 7", s.RetentionDays)
	}
	if s.ArchiveBytes == 0 {
		t.Fatalf("cached summary lost: %+v", s)
	}
}

func TestDefaultRetention(t *testing.T) {
	a := New(t.TempDir(), time.Local, 0)
	if a.RetentionDays() != DefaultRetentionDays {
		t.Fatalf("expected default retention %d, got %d", DefaultRetentionDays, a.RetentionDays())
	}
	if s := a.Stats(); s.RetentionDays != DefaultRetentionDays {
		t.Fatalf("stats retention: %+v", s)
	}
}
