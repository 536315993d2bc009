package ledger

import (
	"context"
	"time"
)

const bootstrapEntryCount = 5

// TransferPackage is a portable snapshot of one partition, used when a
// ledger is handed off to long-term archival. The bootstrap entries let the
// receiving side continue the chain without the full history.
type TransferPackage struct {
	CreatedAt        time.Time        `json:"created_at"`
	Partition        string           `json:"partition"`
	TotalEntries     int              `json:"total_entries"`
	FinalHash        string           `json:"final_hash"`
	FirstTimestamp   *time.Time       `json:"first_timestamp,omitempty"`
	LastTimestamp    *time.Time       `json:"last_timestamp,omitempty"`
	BootstrapEntries []Entry          `json:"bootstrap_entries"`
	Validation       ValidationResult `json:"validation"`
}

// ExportTransferPackage builds a transfer package for one partition. The
// chain is validated as part of the export so the receiver can trust the
// final hash.
func (c *Custodian) ExportTransferPackage(ctx context.Context, partition string) (TransferPackage, error) {
	p, err := c.registry.Get(ctx, partition)
	if err != nil {
		return TransferPackage{}, err
	}

	snapshot := p.Snapshot()
	pkg := TransferPackage{
		CreatedAt:        time.Now().UTC(),
		Partition:        partition,
		TotalEntries:     len(snapshot),
		FinalHash:        p.LastHash(),
		BootstrapEntries: []Entry{},
		Validation:       ValidateEntries(snapshot),
	}
	if len(snapshot) == 0 {
		return pkg, nil
	}

	first := snapshot[0].Timestamp
	last := snapshot[len(snapshot)-1].Timestamp
	pkg.FirstTimestamp = &first
	pkg.LastTimestamp = &last

	start := len(snapshot) - bootstrapEntryCount
	if start < 0 {
		start = 0
	}
	pkg.BootstrapEntries = snapshot[start:]
	return pkg, nil
}
