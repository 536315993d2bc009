package ledger

import (
	"strings"
	"testing"
	"time"
)

func sampleEntry() Entry {
	return Entry{
		EntryID:    0,
		Timestamp:  time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC),
		ActionType: ActionTypeModule,
		Action:     "create",
		Target:     "widget-7",
		Details:    "Module created",
		UserID:     "admin",
		SmartID:    "MOD-12345",
		Metadata:   map[string]any{"version": "2.0", "replicas": 3},
	}
}

func TestComputeHashDeterministic(t *testing.T) {
	e := sampleEntry()

	h1 := ComputeHash(e, GenesisHash)
	h2 := ComputeHash(e, GenesisHash)
	if h1 != h2 {
		t.Errorf("Hash not deterministic: %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(h1))
	}
}

func TestComputeHashMetadataOrderIndependent(t *testing.T) {
	a := sampleEntry()
	a.Metadata = map[string]any{"alpha": 1, "beta": 2, "gamma": map[string]any{"x": 1, "y": 2}}

	b := sampleEntry()
	b.Metadata = map[string]any{"gamma": map[string]any{"y": 2, "x": 1}, "beta": 2, "alpha": 1}

	if ComputeHash(a, GenesisHash) != ComputeHash(b, GenesisHash) {
		t.Error("Hash should not depend on metadata insertion order")
	}
}

func TestComputeHashCoversEveryField(t *testing.T) {
	base := sampleEntry()
	baseHash := ComputeHash(base, GenesisHash)

	mutations := map[string]func(*Entry){
		"entry_id":    func(e *Entry) { e.EntryID = 99 },
		"timestamp":   func(e *Entry) { e.Timestamp = e.Timestamp.Add(time.Nanosecond) },
		"action_type": func(e *Entry) { e.ActionType = ActionTypeNode },
		"action":      func(e *Entry) { e.Action = "delete" },
		"target":      func(e *Entry) { e.Target = "widget-8" },
		"details":     func(e *Entry) { e.Details = "tampered" },
		"user_id":     func(e *Entry) { e.UserID = "mallory" },
		"smart_id":    func(e *Entry) { e.SmartID = "MOD-99999" },
		"metadata":    func(e *Entry) { e.Metadata = map[string]any{"version": "3.0"} },
	}

	for field, mutate := range mutations {
		e := sampleEntry()
		mutate(&e)
		if ComputeHash(e, GenesisHash) == baseHash {
			t.Errorf("Mutating %s did not change the hash", field)
		}
	}

	if ComputeHash(base, strings.Repeat("a", 64)) == baseHash {
		t.Error("Changing prev_hash did not change the hash")
	}
}

func TestVerify(t *testing.T) {
	e := sampleEntry()
	e.PrevHash = GenesisHash
	e.Hash = ComputeHash(e, GenesisHash)

	if !e.Verify(GenesisHash) {
		t.Error("Entry should verify against its own prev hash")
	}
	if e.Verify(strings.Repeat("f", 64)) {
		t.Error("Entry should not verify against a different prev hash")
	}

	e.Details = "tampered"
	if e.Verify(GenesisHash) {
		t.Error("Tampered entry should not verify")
	}
}

func TestPartitionMapping(t *testing.T) {
	cases := map[ActionType]string{
		ActionTypeModule:    "modules",
		ActionTypeNode:      "nodes",
		ActionTypeEquipment: "equipment",
		ActionTypeDomain:    "domains",
		ActionTypeUser:      "users",
		ActionTypeSystem:    "system",
	}
	for at, want := range cases {
		got, ok := PartitionFor(at)
		if !ok || got != want {
			t.Errorf("PartitionFor(%s) = %q, %v; want %q", at, got, ok, want)
		}
		if !ValidPartition(want) {
			t.Errorf("ValidPartition(%q) should be true", want)
		}
	}

	if _, ok := PartitionFor("bogus"); ok {
		t.Error("Unknown action type should not resolve to a partition")
	}
	if ValidPartition("bogus") {
		t.Error("ValidPartition should reject unknown names")
	}
	if len(KnownPartitions()) != 6 {
		t.Errorf("Expected 6 known partitions, got %d", len(KnownPartitions()))
	}
}

func TestGenesisHashShape(t *testing.T) {
	if GenesisHash != strings.Repeat("0", 64) {
		t.Error("Genesis hash must be 64 hex zeros")
	}
}
