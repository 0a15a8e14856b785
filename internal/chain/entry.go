package chain

import "encoding/json"

// GenesisHash is the prev_hash sentinel for the first entry of a ledger.
const GenesisHash = "GENESIS"

// Entry is one line in the hash-linked JSONL ledger. Field order is fixed
// by the struct (no map payloads at this level) so json.Marshal output is
// deterministic and safe to hash.
type Entry struct {
	Sequence  uint64          `json:"seq"`
	Timestamp string          `json:"ts"`
	PrevHash  string          `json:"prev_hash"`
	Hash      string          `json:"hash"`
	Payload   json.RawMessage `json:"payload"`
}
