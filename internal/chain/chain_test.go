package chain

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type testPayload struct {
	Kind string `json:"kind"`
	Note string `json:"note"`
}

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "chain_logs"), time.UTC)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestAppendBuildsValidChain(t *testing.T) {
	l := newTestLedger(t)

	for i := 0; i < 5; i++ {
		e, err := l.Append(testPayload{Kind: "test", Note: "entry"})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if e.Sequence != uint64(i+1) {
			t.Fatalf("expected sequence %d, got %d", i+1, e.Sequence)
		}
	}

	res := Verify(l.Dir(), 0)
	if !res.Valid {
		t.Fatalf("expected valid chain: %+v", res)
	}
	if res.Entries != 5 {
		t.Fatalf("expected 5 entries, got %d", res.Entries)
	}
}

func TestFirstEntryReferencesGenesis(t *testing.T) {
	l := newTestLedger(t)
	e, err := l.Append(testPayload{Kind: "first"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if e.PrevHash != GenesisHash {
		t.Fatalf("expected GENESIS prev hash, got %q", e.PrevHash)
	}
}

func TestSequenceSurvivesReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chain_logs")
	l, err := Open(dir, time.UTC)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	last, _ := l.Append(testPayload{Kind: "a"})
	l.Append(testPayload{Kind: "b"})
	last, err = l.Append(testPayload{Kind: "c"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	l.Close()

	l2, err := Open(dir, time.UTC)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l2.Close()
	e, err := l2.Append(testPayload{Kind: "d"})
	if err != nil {
		t.Fatalf("append after reopen: %v", err)
	}
	if e.Sequence != last.Sequence+1 {
		t.Fatalf("sequence reused: got %d after %d", e.Sequence, last.Sequence)
	}
	if e.PrevHash != last.Hash {
		t.Fatalf("chain tail lost across reopen")
	}

	if res := Verify(dir, 0); !res.Valid {
		t.Fatalf("chain invalid after reopen: %+v", res)
	}
}

func TestVerifyLocalizesTamperedPayload(t *testing.T) {
	l := newTestLedger(t)
	l.Append(testPayload{Kind: "p1"})
	l.Append(testPayload{Kind: "p2"})
	l.Append(testPayload{Kind: "p3"})
	l.Close()

	tamperLine(t, l.Dir(), 1, func(e *Entry) {
		e.Payload = json.RawMessage(`{"kind":"p2","forged":true}`)
	})

	res := Verify(l.Dir(), 0)
	if res.Valid {
		t.Fatal("expected tampered chain to be invalid")
	}
	if res.DivergedAt != 2 {
		t.Fatalf("expected divergence at seq 2, got %d (%s)", res.DivergedAt, res.Reason)
	}
}

func TestVerifyLocalizesTamperedHash(t *testing.T) {
	l := newTestLedger(t)
	l.Append(testPayload{Kind: "p1"})
	l.Append(testPayload{Kind: "p2"})
	l.Append(testPayload{Kind: "p3"})
	l.Close()

	tamperLine(t, l.Dir(), 1, func(e *Entry) {
		e.Hash = strings.Repeat("0", 64)
	})

	res := Verify(l.Dir(), 0)
	if res.Valid {
		t.Fatal("expected tampered chain to be invalid")
	}
	if res.DivergedAt != 2 {
		t.Fatalf("expected divergence at seq 2, got %d (%s)", res.DivergedAt, res.Reason)
	}
}

func TestVerifyDetectsDeletedEntry(t *testing.T) {
	l := newTestLedger(t)
	l.Append(testPayload{Kind: "p1"})
	l.Append(testPayload{Kind: "p2"})
	l.Append(testPayload{Kind: "p3"})
	l.Close()

	path := dayFilePath(t, l.Dir())
	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	kept := []string{lines[0], lines[2]}
	os.WriteFile(path, []byte(strings.Join(kept, "\n")+"\n"), 0600)

	res := Verify(l.Dir(), 0)
	if res.Valid {
		t.Fatal("expected chain with deleted entry to be invalid")
	}
	if res.DivergedAt != 3 {
		t.Fatalf("expected divergence at seq 3, got %d (%s)", res.DivergedAt, res.Reason)
	}
}

func TestVerifyEmptyLedgerIsValid(t *testing.T) {
	res := Verify(filepath.Join(t.TempDir(), "missing"), 0)
	if !res.Valid {
		t.Fatalf("empty ledger should verify: %+v", res)
	}
	if res.Entries != 0 {
		t.Fatalf("expected 0 entries, got %d", res.Entries)
	}
}

func TestVerifyFromSequenceSkipsEarlierEntries(t *testing.T) {
	l := newTestLedger(t)
	for i := 0; i < 4; i++ {
		l.Append(testPayload{Kind: "p"})
	}
	l.Close()

	res := Verify(l.Dir(), 3)
	if !res.Valid {
		t.Fatalf("expected valid: %+v", res)
	}
	if res.Entries != 2 {
		t.Fatalf("expected 2 verified entries, got %d", res.Entries)
	}
}

func TestDayFromFileName(t *testing.T) {
	cases := []struct {
		name string
		day  string
		ok   bool
	}{
		{"chain.2025-02-03.log", "2025-02-03", true},
		{"chain.2025-02-03.log.gz", "2025-02-03", true},
		{"_index.json", "", false},
		{"chain.notadate.log", "", false},
		{"other.2025-02-03.log", "", false},
	}
	for _, tc := range cases {
		day, ok := DayFromFileName(tc.name)
		if ok != tc.ok || day != tc.day {
			t.Fatalf("%s: got (%q, %v), want (%q, %v)", tc.name, day, ok, tc.day, tc.ok)
		}
	}
}

// dayFilePath returns the single active day file of a test ledger.
func dayFilePath(t *testing.T, dir string) string {
	t.Helper()
	days, err := ActiveDays(dir)
	if err != nil || len(days) != 1 {
		t.Fatalf("expected one day file, got %v (%v)", days, err)
	}
	return filepath.Join(dir, DayFileName(days[0]))
}

// tamperLine rewrites line idx (0-based) of the day file via mutate.
func tamperLine(t *testing.T, dir string, idx int, mutate func(*Entry)) {
	t.Helper()
	path := dayFilePath(t, dir)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read chain file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	var e Entry
	if err := json.Unmarshal([]byte(lines[idx]), &e); err != nil {
		t.Fatalf("parse line %d: %v", idx, err)
	}
	mutate(&e)
	forged, _ := json.Marshal(e)
	lines[idx] = string(forged)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600); err != nil {
		t.Fatalf("rewrite chain file: %v", err)
	}
}
