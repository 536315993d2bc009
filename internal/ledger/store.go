package ledger

import (
	"context"
	"sync"
)

// Store is the durability boundary for partitions. A successful Append must
// be recoverable after an immediate crash; Load must yield an empty slice
// (not an error) for a partition that has never been written.
//
// Two implementations exist: MemoryStore below for tests and development,
// and the GORM-backed store in internal/storage for production use.
type Store interface {
	// Append durably persists one entry under the given partition name.
	Append(ctx context.Context, partition string, e Entry) error

	// Load returns the full history of a partition in entry_id order.
	Load(ctx context.Context, partition string) ([]Entry, error)
}

// MemoryStore keeps entries in process memory. It satisfies the Store
// contract except for crash durability and is intended for tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string][]Entry

	// FailAppends makes every Append return ErrStorage, for exercising the
	// atomic-append failure path in tests.
	FailAppends bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]Entry)}
}

func (s *MemoryStore) Append(ctx context.Context, partition string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAppends {
		return ErrStorage
	}
	s.entries[partition] = append(s.entries[partition], e)
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, partition string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.entries[partition]
	out := make([]Entry, len(src))
	copy(out, src)
	return out, nil
}
