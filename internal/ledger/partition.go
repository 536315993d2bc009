package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Action is the caller-supplied portion of a ledger entry. The ledger itself
// assigns entry_id, timestamp and the hash fields.
type Action struct {
	Type     ActionType     `json:"action_type"`
	Action   string         `json:"action"`
	Target   string         `json:"target"`
	Details  string         `json:"details"`
	UserID   string         `json:"user_id"`
	SmartID  string         `json:"smart_id,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Validate checks the required fields and the action type against the closed
// set. It runs before any durable write is attempted.
func (a Action) Validate() error {
	if _, ok := PartitionFor(a.Type); !ok {
		return fmt.Errorf("%w: unrecognized action_type %q", ErrValidation, a.Type)
	}
	if a.Action == "" {
		return fmt.Errorf("%w: action is required", ErrValidation)
	}
	if a.Target == "" {
		return fmt.Errorf("%w: target is required", ErrValidation)
	}
	if a.Details == "" {
		return fmt.Errorf("%w: details is required", ErrValidation)
	}
	if a.UserID == "" {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	return nil
}

// Partition is one named, independently chained, append-only sequence of
// entries. All instances are owned by the Registry; writes are serialized by
// the partition's own lock, so different partitions never contend.
type Partition struct {
	name  string
	store Store

	mu       sync.RWMutex
	entries  []Entry
	lastHash string

	now func() time.Time // overridable for tests
}

func newPartition(name string, store Store, loaded []Entry) *Partition {
	p := &Partition{
		name:     name,
		store:    store,
		entries:  loaded,
		lastHash: GenesisHash,
		now:      time.Now,
	}
	if n := len(loaded); n > 0 {
		p.lastHash = loaded[n-1].Hash
	}
	return p
}

// Name returns the partition name.
func (p *Partition) Name() string { return p.name }

// Append assigns entry_id, timestamp, prev_hash and hash to the action,
// persists the completed entry, and only then makes it visible to readers.
// If the store rejects the write, nothing changes: no partial entry is ever
// observable.
func (p *Partition) Append(ctx context.Context, a Action) (Entry, error) {
	if err := a.Validate(); err != nil {
		return Entry{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ts := p.now().UTC()
	if n := len(p.entries); n > 0 && ts.Before(p.entries[n-1].Timestamp) {
		// Clock went backwards; clamp so entry_id order stays timestamp order.
		ts = p.entries[n-1].Timestamp
	}

	e := Entry{
		EntryID:    int64(len(p.entries)),
		Timestamp:  ts,
		ActionType: a.Type,
		Action:     a.Action,
		Target:     a.Target,
		Details:    a.Details,
		UserID:     a.UserID,
		SmartID:    a.SmartID,
		Metadata:   normalizeMetadata(a.Metadata),
		PrevHash:   p.lastHash,
	}
	e.Hash = ComputeHash(e, p.lastHash)

	if err := p.store.Append(ctx, p.name, e); err != nil {
		return Entry{}, fmt.Errorf("%w: append to %q: %v", ErrStorage, p.name, err)
	}

	p.entries = append(p.entries, e)
	p.lastHash = e.Hash
	return e, nil
}

// Len returns the number of entries.
func (p *Partition) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// LastHash returns the hash of the most recent entry, or GenesisHash for an
// empty partition.
func (p *Partition) LastHash() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastHash
}

// Snapshot returns a consistent copy of the full history in entry_id order.
// Readers work on the copy, so an in-flight append is observed either fully
// or not at all.
func (p *Partition) Snapshot() []Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

// ReadRange returns up to limit entries starting at offset, in entry_id
// order. Out-of-range values clamp to the available data.
func (p *Partition) ReadRange(offset, limit int) []Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}
	if offset >= len(p.entries) || limit <= 0 {
		return []Entry{}
	}
	end := offset + limit
	if end > len(p.entries) {
		end = len(p.entries)
	}
	out := make([]Entry, end-offset)
	copy(out, p.entries[offset:end])
	return out
}
