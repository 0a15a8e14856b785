package chain

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// VerifyResult reports the outcome of a chain verification pass.
// Tampering is a result, not an error: the caller decides severity.
type VerifyResult struct {
	Valid      bool   `json:"valid"`
	Entries    int    `json:"entries"`
	DivergedAt uint64 `json:"diverged_at,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Verify replays the active day files in sequence order, recomputing every
// hash from its predecessor, and reports the earliest sequence at which the
// stored chain diverges from the recomputed one. fromSeq skips entries with
// a lower sequence number (0 verifies everything). An empty or missing
// ledger is valid.
//
// The first examined entry's PrevHash is only checked against GenesisHash
// when it is genuinely the first entry ever written; after rotation the
// link into the archive is taken on trust and verification starts from the
// entry's own hash commitment.
func Verify(dir string, fromSeq uint64) VerifyResult {
	days, err := ActiveDays(dir)
	if err != nil {
		return VerifyResult{Reason: err.Error()}
	}

	res := VerifyResult{Valid: true}
	var prev *Entry

	for _, day := range days {
		path := filepath.Join(dir, DayFileName(day))
		f, err := os.Open(path)
		if err != nil {
			return VerifyResult{Reason: fmt.Sprintf("open %s: %v", path, err)}
		}

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			if len(scanner.Bytes()) == 0 {
				continue
			}

			var e Entry
			if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
				f.Close()
				return divergence(prev, fmt.Sprintf("%s line %d: malformed entry: %v", DayFileName(day), lineNum, err))
			}

			if e.Sequence < fromSeq {
				prev = &e
				continue
			}

			// Each entry must commit to its recorded predecessor.
			if got := EntryHash(e.PrevHash, e.Payload); got != e.Hash {
				return finish(f, VerifyResult{
					Entries:    res.Entries,
					DivergedAt: e.Sequence,
					Reason:     fmt.Sprintf("entry hash mismatch at seq %d", e.Sequence),
				})
			}

			if prev != nil {
				if e.PrevHash != prev.Hash {
					return finish(f, VerifyResult{
						Entries:    res.Entries,
						DivergedAt: e.Sequence,
						Reason:     fmt.Sprintf("broken link at seq %d: prev_hash does not match seq %d", e.Sequence, prev.Sequence),
					})
				}
				if e.Sequence != prev.Sequence+1 {
					return finish(f, VerifyResult{
						Entries:    res.Entries,
						DivergedAt: e.Sequence,
						Reason:     fmt.Sprintf("sequence gap: %d follows %d", e.Sequence, prev.Sequence),
					})
				}
			} else if e.Sequence == 1 && e.PrevHash != GenesisHash {
				return finish(f, VerifyResult{
					Entries:    res.Entries,
					DivergedAt: e.Sequence,
					Reason:     "first entry does not reference genesis",
				})
			}

			res.Entries++
			cp := e
			prev = &cp
		}
		if err := scanner.Err(); err != nil {
			f.Close()
			return VerifyResult{Entries: res.Entries, Reason: fmt.Sprintf("scan %s: %v", path, err)}
		}
		f.Close()
	}

	return res
}

func finish(f *os.File, res VerifyResult) VerifyResult {
	f.Close()
	return res
}

// divergence reports a malformed line as a divergence at the sequence
// following the last good entry.
func divergence(prev *Entry, reason string) VerifyResult {
	res := VerifyResult{Reason: reason}
	if prev != nil {
		res.DivergedAt = prev.Sequence + 1
	} else {
		res.DivergedAt = 1
	}
	return res
}
