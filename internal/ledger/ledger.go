package ledger

import (
	"context"
	"log/slog"
	"time"
)

// Publisher receives every successfully recorded entry, e.g. to push it to
// live dashboard subscribers. Publish must not block the write path.
type Publisher interface {
	Publish(Activity)
}

// Custodian is the single public entry point to the ledger. It only records
// what callers tell it: subsystems do the work and report here, the
// custodian never decides what to record.
type Custodian struct {
	registry *Registry
	feed     Publisher
}

func New(store Store) *Custodian {
	return &Custodian{registry: NewRegistry(store)}
}

// WithFeed attaches a publisher that is notified after each durable append.
func (c *Custodian) WithFeed(feed Publisher) *Custodian {
	c.feed = feed
	return c
}

// RecordAction validates the action, appends it to the partition owned by
// its type, and returns the completed entry. The entry is durably persisted
// before the call returns; there is no fire-and-forget path.
func (c *Custodian) RecordAction(ctx context.Context, a Action) (Entry, error) {
	if err := a.Validate(); err != nil {
		return Entry{}, err
	}

	p, err := c.registry.ForType(ctx, a.Type)
	if err != nil {
		return Entry{}, err
	}

	e, err := p.Append(ctx, a)
	if err != nil {
		return Entry{}, err
	}

	slog.Info("action recorded",
		"partition", p.Name(),
		"entry_id", e.EntryID,
		"action", e.Action,
		"target", e.Target,
		"user_id", e.UserID,
	)

	if c.feed != nil {
		c.feed.Publish(Activity{Partition: p.Name(), Entry: e})
	}
	return e, nil
}

// GetEntries returns the filtered, paginated history of one partition along
// with its stats. A valid partition that has never been written yields an
// empty result, not an error.
func (c *Custodian) GetEntries(ctx context.Context, partition string, f Filter, limit, offset int) ([]Entry, PartitionStats, error) {
	p, err := c.registry.Get(ctx, partition)
	if err != nil {
		return nil, PartitionStats{}, err
	}
	snapshot := p.Snapshot()
	return Query(snapshot, f, limit, offset), statsOf(snapshot, p.LastHash()), nil
}

// ValidateChain verifies the full hash chain of one partition.
func (c *Custodian) ValidateChain(ctx context.Context, partition string) (ValidationResult, error) {
	p, err := c.registry.Get(ctx, partition)
	if err != nil {
		return ValidationResult{}, err
	}
	return ValidateEntries(p.Snapshot()), nil
}

// ValidateAll verifies every known partition and reports each result.
func (c *Custodian) ValidateAll(ctx context.Context) (map[string]ValidationResult, error) {
	results := make(map[string]ValidationResult, len(c.registry.Names()))
	for _, name := range c.registry.Names() {
		res, err := c.ValidateChain(ctx, name)
		if err != nil {
			return nil, err
		}
		results[name] = res
	}
	return results, nil
}

// RecentActivity merges the most recent entries across all partitions into
// one chronologically ordered feed.
func (c *Custodian) RecentActivity(ctx context.Context, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	snapshots := make(map[string][]Entry, len(c.registry.Names()))
	for _, name := range c.registry.Names() {
		p, err := c.registry.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		snapshots[name] = p.Snapshot()
	}
	return MergeRecent(snapshots, limit), nil
}

// Stats returns the stats of one partition.
func (c *Custodian) Stats(ctx context.Context, partition string) (PartitionStats, error) {
	p, err := c.registry.Get(ctx, partition)
	if err != nil {
		return PartitionStats{}, err
	}
	return statsOf(p.Snapshot(), p.LastHash()), nil
}

// StatsAll returns per-partition stats for every known partition.
func (c *Custodian) StatsAll(ctx context.Context) (map[string]PartitionStats, error) {
	out := make(map[string]PartitionStats, len(c.registry.Names()))
	for _, name := range c.registry.Names() {
		stats, err := c.Stats(ctx, name)
		if err != nil {
			return nil, err
		}
		out[name] = stats
	}
	return out, nil
}

// PartitionStats summarizes one partition: entry count, time span, and
// breakdowns by action type, user and SMART-ID.
type PartitionStats struct {
	TotalEntries   int            `json:"total_entries"`
	FirstTimestamp *time.Time     `json:"first_timestamp,omitempty"`
	LastTimestamp  *time.Time     `json:"last_timestamp,omitempty"`
	LastHash       string         `json:"last_hash"`
	ByActionType   map[string]int `json:"by_action_type"`
	ByUser         map[string]int `json:"by_user"`
	BySmartID      map[string]int `json:"by_smart_id,omitempty"`
}

func statsOf(entries []Entry, lastHash string) PartitionStats {
	stats := PartitionStats{
		TotalEntries: len(entries),
		LastHash:     lastHash,
		ByActionType: make(map[string]int),
		ByUser:       make(map[string]int),
		BySmartID:    make(map[string]int),
	}
	if len(entries) == 0 {
		return stats
	}

	first := entries[0].Timestamp
	last := entries[len(entries)-1].Timestamp
	stats.FirstTimestamp = &first
	stats.LastTimestamp = &last

	for _, e := range entries {
		stats.ByActionType[string(e.ActionType)]++
		stats.ByUser[e.UserID]++
		if e.SmartID != "" {
			stats.BySmartID[e.SmartID]++
		}
	}
	return stats
}
