package ledger

import (
	"context"
	"fmt"
	"sync"
)

// Registry owns every live Partition. Partitions are created lazily on first
// use and hydrated from the store; no other component constructs or mutates
// a Partition directly.
type Registry struct {
	store Store

	mu         sync.RWMutex
	partitions map[string]*Partition
}

func NewRegistry(store Store) *Registry {
	return &Registry{
		store:      store,
		partitions: make(map[string]*Partition),
	}
}

// Get returns the partition for name, loading its history from the store on
// first access. Only names from the closed partition set are accepted; an
// unknown name fails rather than silently creating an arbitrary partition.
func (r *Registry) Get(ctx context.Context, name string) (*Partition, error) {
	if !ValidPartition(name) {
		return nil, fmt.Errorf("%w: unknown partition %q", ErrNotFound, name)
	}

	r.mu.RLock()
	p, ok := r.partitions[name]
	r.mu.RUnlock()
	if ok {
		return p, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.partitions[name]; ok {
		return p, nil
	}

	loaded, err := r.store.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: load %q: %v", ErrStorage, name, err)
	}
	p = newPartition(name, r.store, loaded)
	r.partitions[name] = p
	return p, nil
}

// ForType resolves the partition that records the given action type.
func (r *Registry) ForType(ctx context.Context, t ActionType) (*Partition, error) {
	name, ok := PartitionFor(t)
	if !ok {
		return nil, fmt.Errorf("%w: unrecognized action_type %q", ErrValidation, t)
	}
	return r.Get(ctx, name)
}

// Names returns the closed set of partition names the registry serves.
func (r *Registry) Names() []string {
	return KnownPartitions()
}
