// Package chain implements an append-only, hash-linked record ledger.
// Each entry cryptographically commits to the previous entry's hash, so
// altering, deleting, or reordering any stored line is detectable. Storage
// is one JSONL file per calendar day; a day's file is mutable only on that
// day and becomes a rotation candidate once the day ends.
package chain

import (
	"bufio"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// FilePrefix and FileSuffix frame the per-day file names:
	// chain.<YYYY-MM-DD>.log
	FilePrefix = "chain."
	FileSuffix = ".log"

	// ArchiveDirName is the subdirectory rotated files move into.
	ArchiveDirName = "archive"

	// IndexFileName is the cached, rebuildable summary projection.
	IndexFileName = "_index.json"

	dayFormat = "2006-01-02"
	dirPerm   = 0700
	filePerm  = 0600
)

// Ledger is an append-only hash chain over per-day JSONL files.
// Safe for concurrent Append calls.
type Ledger struct {
	dir string
	loc *time.Location

	mu       sync.Mutex
	file     *os.File
	fileDay  string
	prevHash string
	nextSeq  uint64
}

// Open opens (or creates) the ledger rooted at dir. The chain tail (the
// previous hash and next sequence number) is recovered from the newest
// active day file, then from the newest archived file, then from the index
// summary, so sequence numbers are never reused across restarts.
func Open(dir string, loc *time.Location) (*Ledger, error) {
	if loc == nil {
		loc = time.Local
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("chain: create directory: %w", err)
	}

	l := &Ledger{dir: dir, loc: loc, prevHash: GenesisHash, nextSeq: 1}
	if err := l.recoverTail(); err != nil {
		return nil, err
	}
	return l, nil
}

// Dir returns the ledger's storage directory.
func (l *Ledger) Dir() string { return l.dir }

// Location returns the ledger's configured time zone.
func (l *Ledger) Location() *time.Location { return l.loc }

// Append hashes payload against the previous entry, assigns the next
// sequence number, writes the entry to the current day's file, and
// returns it. The write is synced before returning.
func (l *Ledger) Append(payload any) (Entry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Entry{}, fmt.Errorf("chain: marshal payload: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now().In(l.loc)
	if err := l.ensureDayFile(now); err != nil {
		return Entry{}, err
	}

	entry := Entry{
		Sequence:  l.nextSeq,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		PrevHash:  l.prevHash,
		Hash:      EntryHash(l.prevHash, raw),
		Payload:   raw,
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, fmt.Errorf("chain: marshal entry: %w", err)
	}
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return Entry{}, fmt.Errorf("chain: write entry: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return Entry{}, fmt.Errorf("chain: sync: %w", err)
	}

	l.prevHash = entry.Hash
	l.nextSeq++
	return entry, nil
}

// Close flushes and closes the current day file.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// EntryHash computes the hash committing to the previous entry:
// sha256 over prevHash followed by the serialized payload.
func EntryHash(prevHash string, payload []byte) string {
	h := sha256.New()
	h.Write([]byte(prevHash))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// DayFileName returns the active file name for the given day.
func DayFileName(day string) string {
	return FilePrefix + day + FileSuffix
}

// DayFromFileName extracts the YYYY-MM-DD portion from an active or
// archived chain file name. ok is false for foreign files.
func DayFromFileName(name string) (string, bool) {
	name = strings.TrimSuffix(name, ".gz")
	if !strings.HasPrefix(name, FilePrefix) || !strings.HasSuffix(name, FileSuffix) {
		return "", false
	}
	day := strings.TrimSuffix(strings.TrimPrefix(name, FilePrefix), FileSuffix)
	if _, err := time.Parse(dayFormat, day); err != nil {
		return "", false
	}
	return day, true
}

// ensureDayFile opens the file for now's calendar day, switching files
// at day boundaries. Caller holds l.mu.
func (l *Ledger) ensureDayFile(now time.Time) error {
	day := now.Format(dayFormat)
	if l.file != nil && l.fileDay == day {
		return nil
	}
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
	f, err := os.OpenFile(filepath.Join(l.dir, DayFileName(day)), os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("chain: open day file: %w", err)
	}
	l.file = f
	l.fileDay = day
	return nil
}

// recoverTail restores prevHash and nextSeq from existing storage.
func (l *Ledger) recoverTail() error {
	tail, found, err := Tail(l.dir)
	if err != nil {
		return err
	}
	if found {
		l.prevHash = tail.Hash
		l.nextSeq = tail.Sequence + 1
		return nil
	}

	// Every file rotated and pruned: the index summary still carries the
	// last sequence. The hash link is gone with the files, so a new epoch
	// starts at GENESIS, but sequence numbers keep increasing.
	if seq, ok := indexLastSequence(filepath.Join(l.dir, IndexFileName)); ok && seq > 0 {
		l.nextSeq = seq + 1
	}
	return nil
}

// Tail returns the newest entry of the ledger rooted at dir, searching
// active day files first, then the archive. found is false when no entry
// exists anywhere.
func Tail(dir string) (Entry, bool, error) {
	days, err := ActiveDays(dir)
	if err != nil {
		return Entry{}, false, err
	}
	for i := len(days) - 1; i >= 0; i-- {
		last, found, err := lastEntry(filepath.Join(dir, DayFileName(days[i])), false)
		if err != nil {
			return Entry{}, false, err
		}
		if found {
			return last, true, nil
		}
	}

	archived, err := archivedFiles(filepath.Join(dir, ArchiveDirName))
	if err != nil {
		return Entry{}, false, nil
	}
	for i := len(archived) - 1; i >= 0; i-- {
		last, found, err := lastEntry(archived[i], strings.HasSuffix(archived[i], ".gz"))
		if err != nil {
			continue
		}
		if found {
			return last, true, nil
		}
	}
	return Entry{}, false, nil
}

// ActiveDays lists the days with an active chain file in dir, ascending.
func ActiveDays(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("chain: read directory: %w", err)
	}
	var days []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if day, ok := DayFromFileName(e.Name()); ok {
			days = append(days, day)
		}
	}
	sort.Strings(days)
	return days, nil
}

// archivedFiles lists archived chain files, ascending by day.
func archivedFiles(archiveDir string) ([]string, error) {
	entries, err := os.ReadDir(archiveDir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := DayFromFileName(e.Name()); ok {
			paths = append(paths, filepath.Join(archiveDir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// lastEntry reads the final entry of a chain file. found is false for an
// empty file.
func lastEntry(path string, gzipped bool) (Entry, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("chain: open %s: %w", path, err)
	}
	defer f.Close()

	var scanner *bufio.Scanner
	if gzipped {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return Entry{}, false, fmt.Errorf("chain: gunzip %s: %w", path, err)
		}
		defer zr.Close()
		scanner = bufio.NewScanner(zr)
	} else {
		scanner = bufio.NewScanner(f)
	}
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var lastLine []byte
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		lastLine = append(lastLine[:0], scanner.Bytes()...)
	}
	if err := scanner.Err(); err != nil {
		return Entry{}, false, fmt.Errorf("chain: scan %s: %w", path, err)
	}
	if len(lastLine) == 0 {
		return Entry{}, false, nil
	}

	var e Entry
	if err := json.Unmarshal(lastLine, &e); err != nil {
		return Entry{}, false, fmt.Errorf("chain: parse tail of %s: %w", path, err)
	}
	return e, true, nil
}

// indexLastSequence reads last_sequence from the index summary, tolerating
// a missing or malformed file.
func indexLastSequence(path string) (uint64, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	var idx struct {
		LastSequence uint64 `json:"last_sequence"`
	}
	if err := json.Unmarshal(data, &idx); err != nil {
		return 0, false
	}
	return idx.LastSequence, true
}
