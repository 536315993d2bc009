package services

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/smartops/custodian/internal/ledger"
)

// ActivityFeed fans newly recorded ledger entries out to live subscribers
// (the dashboard websocket). Publish never blocks the ledger's write path: a
// subscriber whose channel is full misses the message and is expected to
// re-sync from the recent-activity endpoint.
type ActivityFeed struct {
	buffer int

	mu          sync.RWMutex
	subscribers map[uuid.UUID]chan ledger.Activity
}

func NewActivityFeed(buffer int) *ActivityFeed {
	if buffer <= 0 {
		buffer = 64
	}
	return &ActivityFeed{
		buffer:      buffer,
		subscribers: make(map[uuid.UUID]chan ledger.Activity),
	}
}

// Subscribe registers a new listener and returns its id and channel.
func (f *ActivityFeed) Subscribe() (uuid.UUID, <-chan ledger.Activity) {
	id := uuid.New()
	ch := make(chan ledger.Activity, f.buffer)

	f.mu.Lock()
	f.subscribers[id] = ch
	f.mu.Unlock()

	slog.Info("Activity feed subscriber added", "id", id, "total", f.Count())
	return id, ch
}

// Unsubscribe removes a listener and closes its channel.
func (f *ActivityFeed) Unsubscribe(id uuid.UUID) {
	f.mu.Lock()
	if ch, ok := f.subscribers[id]; ok {
		delete(f.subscribers, id)
		close(ch)
	}
	f.mu.Unlock()
}

// Publish delivers an activity to every subscriber that can take it.
func (f *ActivityFeed) Publish(a ledger.Activity) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for id, ch := range f.subscribers {
		select {
		case ch <- a:
		default:
			slog.Warn("Activity feed subscriber lagging, message dropped",
				"id", id, "partition", a.Partition, "entry_id", a.EntryID)
		}
	}
}

// Count returns the number of live subscribers.
func (f *ActivityFeed) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers)
}
