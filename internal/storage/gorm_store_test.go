package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/smartops/custodian/internal/ledger"
	"github.com/smartops/custodian/internal/models"
)

func openTestDB(t *testing.T, path string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&models.LedgerEntry{}); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

func closeDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.Close()
}

func TestLoadEmptyPartition(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "ledger.db"))
	defer closeDB(t, db)

	entries, err := NewGormStore(db).Load(context.Background(), "modules")
	if err != nil {
		t.Fatalf("Load of empty partition must not error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries, got %d", len(entries))
	}
}

func TestAppendLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, filepath.Join(t.TempDir(), "ledger.db"))
	defer closeDB(t, db)

	c := ledger.New(NewGormStore(db))
	if _, err := c.RecordModuleAction(ctx, "create", "widget-7", "Module created", "admin", "MOD-1",
		map[string]any{"version": "2.0", "tags": []any{"a", "b"}}); err != nil {
		t.Fatalf("RecordModuleAction failed: %v", err)
	}
	if _, err := c.RecordModuleAction(ctx, "scan", "widget-7", "Module scanned", "system", "MOD-1", nil); err != nil {
		t.Fatalf("RecordModuleAction failed: %v", err)
	}

	loaded, err := NewGormStore(db).Load(ctx, "modules")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(loaded))
	}

	// Reloaded entries must hash-validate exactly as written.
	res := ledger.ValidateEntries(loaded)
	if !res.Valid {
		t.Errorf("Reloaded chain invalid, broken at %v", res.BrokenAt)
	}
	if loaded[0].Metadata["version"] != "2.0" {
		t.Errorf("Metadata did not round-trip: %+v", loaded[0].Metadata)
	}
}

func TestLargeIntegerMetadataSurvivesReload(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, filepath.Join(t.TempDir(), "ledger.db"))
	defer closeDB(t, db)

	// int64 beyond 2^53 cannot round-trip through float64; the chain must
	// still validate after a reload.
	c := ledger.New(NewGormStore(db))
	if _, err := c.RecordModuleAction(ctx, "create", "widget-7", "Module created", "admin", "MOD-1",
		map[string]any{"big": int64(1 << 55), "small": 3}); err != nil {
		t.Fatalf("RecordModuleAction failed: %v", err)
	}

	loaded, err := NewGormStore(db).Load(ctx, "modules")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(loaded))
	}

	res := ledger.ValidateEntries(loaded)
	if !res.Valid {
		t.Errorf("Chain with large integer metadata invalid after reload, broken at %v", res.BrokenAt)
	}
	if got := fmt.Sprintf("%v", loaded[0].Metadata["big"]); got != "36028797018963968" {
		t.Errorf("Large integer lost precision on reload: %s", got)
	}
}

func TestReloadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	db := openTestDB(t, path)
	c := ledger.New(NewGormStore(db))
	for i := 0; i < 5; i++ {
		if _, err := c.RecordNodeAction(ctx, "heartbeat", "NOD-1", "Node heartbeat", "system", "NOD-1",
			map[string]any{"seq": i}); err != nil {
			t.Fatalf("Record %d failed: %v", i, err)
		}
	}
	before, _, err := c.GetEntries(ctx, "nodes", ledger.Filter{}, 100, 0)
	if err != nil {
		t.Fatalf("GetEntries failed: %v", err)
	}
	beforeRes, _ := c.ValidateChain(ctx, "nodes")
	closeDB(t, db)

	// Simulate a restart: fresh connection, fresh custodian, same file.
	db2 := openTestDB(t, path)
	defer closeDB(t, db2)
	c2 := ledger.New(NewGormStore(db2))

	after, _, err := c2.GetEntries(ctx, "nodes", ledger.Filter{}, 100, 0)
	if err != nil {
		t.Fatalf("GetEntries after reload failed: %v", err)
	}
	if len(after) != len(before) {
		t.Fatalf("Reload changed entry count: %d vs %d", len(after), len(before))
	}
	for i := range after {
		if after[i].Hash != before[i].Hash || after[i].PrevHash != before[i].PrevHash ||
			after[i].EntryID != before[i].EntryID || !after[i].Timestamp.Equal(before[i].Timestamp) {
			t.Fatalf("Entry %d differs after reload", i)
		}
	}

	afterRes, err := c2.ValidateChain(ctx, "nodes")
	if err != nil {
		t.Fatalf("ValidateChain after reload failed: %v", err)
	}
	if afterRes != beforeRes {
		t.Errorf("Validation result changed across restart: %+v vs %+v", afterRes, beforeRes)
	}

	// And the chain keeps growing from where it stopped.
	e, err := c2.RecordNodeAction(ctx, "heartbeat", "NOD-1", "Node heartbeat", "system", "NOD-1", nil)
	if err != nil {
		t.Fatalf("Record after reload failed: %v", err)
	}
	if e.EntryID != 5 {
		t.Errorf("Expected entry_id 5 after reload, got %d", e.EntryID)
	}
	if e.PrevHash != before[len(before)-1].Hash {
		t.Error("Append after reload must chain to the stored head")
	}
}

func TestUniqueIndexRejectsRewrite(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, filepath.Join(t.TempDir(), "ledger.db"))
	defer closeDB(t, db)

	store := NewGormStore(db)
	e := ledger.Entry{
		EntryID:    0,
		ActionType: ledger.ActionTypeSystem,
		Action:     "start",
		Target:     "custodian",
		Details:    "started",
		UserID:     "system",
		PrevHash:   ledger.GenesisHash,
	}
	e.Hash = ledger.ComputeHash(e, ledger.GenesisHash)

	if err := store.Append(ctx, "system", e); err != nil {
		t.Fatalf("First append failed: %v", err)
	}
	if err := store.Append(ctx, "system", e); err == nil {
		t.Error("Rewriting an existing (partition, entry_id) must fail")
	}

	// The same entry_id under another partition is a different chain and fine,
	// as long as the hash differs.
	e2 := e
	e2.Target = "scheduler"
	e2.Hash = ledger.ComputeHash(e2, ledger.GenesisHash)
	if err := store.Append(ctx, "modules", e2); err != nil {
		t.Errorf("Same entry_id in a different partition should succeed: %v", err)
	}
}
