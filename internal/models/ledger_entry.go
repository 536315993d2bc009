package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LedgerEntry is the persisted form of one ledger entry. The row is written
// once and never updated; (partition, entry_id) is the logical key and the
// unique index rejects any attempt to rewrite history at the database level.
// Timestamp is stored as unix nanoseconds so reloaded entries hash-validate
// byte-for-byte identically.
type LedgerEntry struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Partition  string         `gorm:"not null;uniqueIndex:idx_ledger_partition_seq,priority:1;index:idx_ledger_partition_time,priority:1" json:"partition"`
	EntryID    int64          `gorm:"not null;uniqueIndex:idx_ledger_partition_seq,priority:2" json:"entry_id"`
	Timestamp  int64          `gorm:"not null;index:idx_ledger_partition_time,priority:2" json:"timestamp"`
	ActionType string         `gorm:"not null" json:"action_type"`
	Action     string         `gorm:"not null" json:"action"`
	Target     string         `gorm:"not null" json:"target"`
	Details    string         `gorm:"not null" json:"details"`
	UserID     string         `gorm:"not null;index" json:"user_id"`
	SmartID    string         `json:"smart_id"`
	Metadata   datatypes.JSON `json:"metadata"`
	PrevHash   string         `gorm:"not null" json:"prev_hash"`
	Hash       string         `gorm:"not null;uniqueIndex" json:"hash"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (e *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
