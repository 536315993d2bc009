package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

func testAction(action, target string) Action {
	return Action{
		Type:    ActionTypeModule,
		Action:  action,
		Target:  target,
		Details: "test action",
		UserID:  "admin",
	}
}

func TestAppendNormalizesMetadataNumbers(t *testing.T) {
	ctx := context.Background()
	p := newPartition("modules", NewMemoryStore(), nil)

	a := testAction("create", "widget")
	a.Metadata = map[string]any{"big": int64(1 << 55), "nested": map[string]any{"n": 7}}
	e, err := p.Append(ctx, a)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// The stored entry must hold the JSON-native form of the metadata, with
	// full integer precision, so a reloaded row hashes identically.
	num, ok := e.Metadata["big"].(json.Number)
	if !ok {
		t.Fatalf("Expected json.Number metadata value, got %T", e.Metadata["big"])
	}
	if num.String() != "36028797018963968" {
		t.Errorf("Large integer lost precision: %s", num)
	}
	nested, ok := e.Metadata["nested"].(map[string]any)
	if !ok {
		t.Fatalf("Expected nested map, got %T", e.Metadata["nested"])
	}
	if _, ok := nested["n"].(json.Number); !ok {
		t.Errorf("Expected json.Number in nested map, got %T", nested["n"])
	}

	if !e.Verify(GenesisHash) {
		t.Error("Normalized entry must verify against its own hash")
	}
}

func TestPartitionAppendOrdering(t *testing.T) {
	ctx := context.Background()
	p := newPartition("modules", NewMemoryStore(), nil)

	for i := 0; i < 5; i++ {
		e, err := p.Append(ctx, testAction("create", "widget"))
		if err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
		if e.EntryID != int64(i) {
			t.Errorf("Expected entry_id %d, got %d", i, e.EntryID)
		}
	}

	entries := p.Snapshot()
	if len(entries) != 5 {
		t.Fatalf("Expected 5 entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp.Before(entries[i-1].Timestamp) {
			t.Errorf("Timestamp order broken at entry %d", i)
		}
	}
}

func TestPartitionChainLinkage(t *testing.T) {
	ctx := context.Background()
	p := newPartition("modules", NewMemoryStore(), nil)

	for i := 0; i < 4; i++ {
		if _, err := p.Append(ctx, testAction("update", "widget")); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	entries := p.Snapshot()
	if entries[0].PrevHash != GenesisHash {
		t.Error("First entry must chain to the genesis hash")
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].PrevHash != entries[i-1].Hash {
			t.Errorf("Entry %d prev_hash does not match predecessor hash", i)
		}
	}
}

func TestPartitionConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	p := newPartition("modules", NewMemoryStore(), nil)

	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if _, err := p.Append(ctx, testAction("scan", "widget")); err != nil {
					t.Errorf("Concurrent append failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	entries := p.Snapshot()
	if len(entries) != writers*perWriter {
		t.Fatalf("Expected %d entries, got %d", writers*perWriter, len(entries))
	}
	for i, e := range entries {
		if e.EntryID != int64(i) {
			t.Fatalf("Entry %d has id %d; interleaved appends lost ordering", i, e.EntryID)
		}
	}

	res := ValidateEntries(entries)
	if !res.Valid {
		t.Errorf("Chain invalid after concurrent appends, broken at %v", res.BrokenAt)
	}
}

func TestPartitionAppendValidation(t *testing.T) {
	ctx := context.Background()
	p := newPartition("modules", NewMemoryStore(), nil)

	cases := []Action{
		{Type: "bogus", Action: "create", Target: "x", Details: "d", UserID: "u"},
		{Type: ActionTypeModule, Action: "", Target: "x", Details: "d", UserID: "u"},
		{Type: ActionTypeModule, Action: "create", Target: "", Details: "d", UserID: "u"},
		{Type: ActionTypeModule, Action: "create", Target: "x", Details: "", UserID: "u"},
		{Type: ActionTypeModule, Action: "create", Target: "x", Details: "d", UserID: ""},
	}
	for i, a := range cases {
		if _, err := p.Append(ctx, a); !errors.Is(err, ErrValidation) {
			t.Errorf("Case %d: expected ErrValidation, got %v", i, err)
		}
	}
	if p.Len() != 0 {
		t.Errorf("Rejected appends must not change partition length, got %d", p.Len())
	}
}

func TestPartitionAppendAtomicOnStoreFailure(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	p := newPartition("modules", store, nil)

	if _, err := p.Append(ctx, testAction("create", "widget")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	lastHash := p.LastHash()

	store.FailAppends = true
	_, err := p.Append(ctx, testAction("delete", "widget"))
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("Expected ErrStorage, got %v", err)
	}

	if p.Len() != 1 {
		t.Errorf("Failed append leaked into memory, length %d", p.Len())
	}
	if p.LastHash() != lastHash {
		t.Error("Failed append must not advance the chain head")
	}

	// The partition stays usable once the store recovers.
	store.FailAppends = false
	e, err := p.Append(ctx, testAction("delete", "widget"))
	if err != nil {
		t.Fatalf("Append after recovery failed: %v", err)
	}
	if e.EntryID != 1 || e.PrevHash != lastHash {
		t.Error("Recovered append must continue the chain where it left off")
	}
}

func TestPartitionClockRegressionClamped(t *testing.T) {
	ctx := context.Background()
	p := newPartition("modules", NewMemoryStore(), nil)

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(-time.Minute)}
	i := 0
	p.now = func() time.Time {
		t := times[i]
		if i < len(times)-1 {
			i++
		}
		return t
	}

	first, _ := p.Append(ctx, testAction("create", "widget"))
	second, err := p.Append(ctx, testAction("update", "widget"))
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if second.Timestamp.Before(first.Timestamp) {
		t.Error("Timestamp order must survive a clock regression")
	}
}

func TestPartitionReadRangeClamps(t *testing.T) {
	ctx := context.Background()
	p := newPartition("modules", NewMemoryStore(), nil)
	for i := 0; i < 5; i++ {
		if _, err := p.Append(ctx, testAction("create", "widget")); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	if got := p.ReadRange(1000, 10); len(got) != 0 {
		t.Errorf("Offset past end should return empty, got %d entries", len(got))
	}
	if got := p.ReadRange(3, 10); len(got) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(got))
	}
	if got := p.ReadRange(0, 3); len(got) != 3 || got[0].EntryID != 0 {
		t.Errorf("Expected first 3 entries, got %d", len(got))
	}
	if got := p.ReadRange(-5, 2); len(got) != 2 {
		t.Errorf("Negative offset should clamp to 0, got %d entries", len(got))
	}
}

func TestPartitionLoadsExistingHistory(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	p := newPartition("modules", store, nil)
	for i := 0; i < 3; i++ {
		if _, err := p.Append(ctx, testAction("create", "widget")); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	loaded, err := store.Load(ctx, "modules")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	p2 := newPartition("modules", store, loaded)

	if p2.Len() != 3 {
		t.Fatalf("Expected 3 loaded entries, got %d", p2.Len())
	}
	if p2.LastHash() != p.LastHash() {
		t.Error("Reloaded partition must resume from the same chain head")
	}

	e, err := p2.Append(ctx, testAction("update", "widget"))
	if err != nil {
		t.Fatalf("Append after reload failed: %v", err)
	}
	if e.EntryID != 3 {
		t.Errorf("Append after reload should continue the sequence, got id %d", e.EntryID)
	}
}
