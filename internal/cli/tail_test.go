package cli

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ashmarin/trailguard/internal/chain"
)

func TestLastLinesNewestAcrossDays(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chain_logs")
	ledger, err := chain.Open(dir, time.UTC)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := ledger.Append(map[string]int{"n": i}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	ledger.Close()

	lines, err := lastLines(dir, 3)
	if err != nil {
		t.Fatalf("lastLines: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	// Oldest first within the returned window.
	if !strings.Contains(lines[0], `"n":2`) || !strings.Contains(lines[2], `"n":4`) {
		t.Fatalf("wrong window: %v", lines)
	}
}

func TestLastLinesMoreThanAvailable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chain_logs")
	ledger, err := chain.Open(dir, time.UTC)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	if _, err := ledger.Append(map[string]int{"n": 0}); err != nil {
		t.Fatalf("append: %v", err)
	}
	ledger.Close()

	lines, err := lastLines(dir, 10)
	if err != nil {
		t.Fatalf("lastLines: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
}

func TestLastLinesEmptyDirectory(t *testing.T) {
	lines, err := lastLines(filepath.Join(t.TempDir(), "missing"), 5)
	if err != nil {
		t.Fatalf("lastLines on missing dir: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected no lines, got %d", len(lines))
	}
}
