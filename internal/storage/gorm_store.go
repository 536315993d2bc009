// Package storage provides the durable ledger.Store implementation backed by
// GORM. Postgres is the production backend; SQLite serves single-file
// deployments and tests. Both give synchronous durability: Create returns
// only after the transaction committed.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/smartops/custodian/internal/ledger"
	"github.com/smartops/custodian/internal/models"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Append(ctx context.Context, partition string, e ledger.Entry) error {
	row, err := toRow(partition, e)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *GormStore) Load(ctx context.Context, partition string) ([]ledger.Entry, error) {
	var rows []models.LedgerEntry
	err := s.db.WithContext(ctx).
		Where("partition = ?", partition).
		Order("entry_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]ledger.Entry, 0, len(rows))
	for _, row := range rows {
		e, err := fromRow(row)
		if err != nil {
			return nil, fmt.Errorf("partition %q entry %d: %w", partition, row.EntryID, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func toRow(partition string, e ledger.Entry) (models.LedgerEntry, error) {
	row := models.LedgerEntry{
		Partition:  partition,
		EntryID:    e.EntryID,
		Timestamp:  e.Timestamp.UnixNano(),
		ActionType: string(e.ActionType),
		Action:     e.Action,
		Target:     e.Target,
		Details:    e.Details,
		UserID:     e.UserID,
		SmartID:    e.SmartID,
		PrevHash:   e.PrevHash,
		Hash:       e.Hash,
	}
	if e.Metadata != nil {
		data, err := json.Marshal(e.Metadata)
		if err != nil {
			return models.LedgerEntry{}, fmt.Errorf("marshal metadata: %w", err)
		}
		row.Metadata = datatypes.JSON(data)
	}
	return row, nil
}

func fromRow(row models.LedgerEntry) (ledger.Entry, error) {
	e := ledger.Entry{
		EntryID:    row.EntryID,
		Timestamp:  time.Unix(0, row.Timestamp).UTC(),
		ActionType: ledger.ActionType(row.ActionType),
		Action:     row.Action,
		Target:     row.Target,
		Details:    row.Details,
		UserID:     row.UserID,
		SmartID:    row.SmartID,
		PrevHash:   row.PrevHash,
		Hash:       row.Hash,
	}
	if len(row.Metadata) > 0 {
		// Number-exact decode: the reloaded entry must hash to its stored value.
		m, err := ledger.DecodeMetadata(row.Metadata)
		if err != nil {
			return ledger.Entry{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
		e.Metadata = m
	}
	return e, nil
}
