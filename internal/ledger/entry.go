// Package ledger implements the partitioned, tamper-evident action ledger.
// Every recorded action becomes an Entry in an append-only partition. Each
// entry carries the SHA-256 hash of its predecessor, so modifying any entry
// breaks the chain from that point forward and is detectable via validation.
package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// GenesisHash is the prev_hash of the first entry in every partition:
// 64 hex zeros, so validators can recognize a chain root unambiguously.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// ActionType classifies a recorded action and selects its partition.
type ActionType string

const (
	ActionTypeModule    ActionType = "module"
	ActionTypeNode      ActionType = "node"
	ActionTypeEquipment ActionType = "equipment"
	ActionTypeDomain    ActionType = "domain"
	ActionTypeUser      ActionType = "user"
	ActionTypeSystem    ActionType = "system"
)

// partitionByType maps each action type to its dedicated partition name.
var partitionByType = map[ActionType]string{
	ActionTypeModule:    "modules",
	ActionTypeNode:      "nodes",
	ActionTypeEquipment: "equipment",
	ActionTypeDomain:    "domains",
	ActionTypeUser:      "users",
	ActionTypeSystem:    "system",
}

// knownPartitions is the fixed set of partition names, in stable order.
var knownPartitions = []string{"modules", "nodes", "domains", "equipment", "users", "system"}

// PartitionFor resolves the partition name for an action type.
func PartitionFor(t ActionType) (string, bool) {
	name, ok := partitionByType[t]
	return name, ok
}

// KnownPartitions returns the closed set of partition names.
func KnownPartitions() []string {
	out := make([]string, len(knownPartitions))
	copy(out, knownPartitions)
	return out
}

// ValidPartition reports whether name belongs to the closed partition set.
func ValidPartition(name string) bool {
	for _, p := range knownPartitions {
		if p == name {
			return true
		}
	}
	return false
}

// Entry is one immutable ledger record. EntryID is a 0-based sequence number
// within its partition; Hash covers every other field including PrevHash.
type Entry struct {
	EntryID    int64          `json:"entry_id"`
	Timestamp  time.Time      `json:"timestamp"`
	ActionType ActionType     `json:"action_type"`
	Action     string         `json:"action"`
	Target     string         `json:"target"`
	Details    string         `json:"details"`
	UserID     string         `json:"user_id"`
	SmartID    string         `json:"smart_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	PrevHash   string         `json:"prev_hash"`
	Hash       string         `json:"hash"`
}

// DecodeMetadata parses metadata bytes with numbers kept as their exact
// literals. A plain Unmarshal would coerce every number to float64, and an
// integer beyond 2^53 would re-marshal to a different string, so a reloaded
// entry would no longer hash to its stored value.
func DecodeMetadata(data []byte) (map[string]any, error) {
	var m map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// normalizeMetadata round-trips the metadata through its JSON form so the
// map holds the same value kinds whether it came from the caller or from a
// reloaded row. Runs once, before the entry is hashed.
func normalizeMetadata(m map[string]any) map[string]any {
	if len(m) == 0 {
		return m
	}
	data, err := json.Marshal(m)
	if err != nil {
		// Unmarshalable metadata fails the append when persisted; leave it
		// for canonicalMetadata to fold the error into the hash input.
		return m
	}
	out, err := DecodeMetadata(data)
	if err != nil {
		return m
	}
	return out
}

// canonicalMetadata returns a deterministic byte representation of the
// metadata map. encoding/json marshals map keys in sorted order, which makes
// the output independent of insertion order at every nesting level.
func canonicalMetadata(m map[string]any) string {
	if len(m) == 0 {
		return "{}"
	}
	data, err := json.Marshal(m)
	if err != nil {
		// Marshal only fails on unsupported value kinds; fold the error into
		// the hash input rather than silently dropping the metadata.
		return fmt.Sprintf("{%q:%q}", "_unhashable", err.Error())
	}
	return string(data)
}

// ComputeHash calculates the SHA-256 hash for an entry, chained to prevHash.
// The input is a fixed-order canonical string, so recomputing the hash from a
// stored entry always reproduces the original value:
//
//	entry_id|timestamp|action_type|action|target|details|user_id|smart_id|metadata|prev_hash
func ComputeHash(e Entry, prevHash string) string {
	data := fmt.Sprintf("%d|%s|%s|%s|%s|%s|%s|%s|%s|%s",
		e.EntryID,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.ActionType,
		e.Action,
		e.Target,
		e.Details,
		e.UserID,
		e.SmartID,
		canonicalMetadata(e.Metadata),
		prevHash)
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether the entry's stored hash matches the hash recomputed
// from its content and the given predecessor hash.
func (e Entry) Verify(prevHash string) bool {
	return e.PrevHash == prevHash && ComputeHash(e, prevHash) == e.Hash
}
