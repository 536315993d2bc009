package ledger

import "container/heap"

// Activity is one ledger entry tagged with the partition it came from, for
// the cross-partition dashboard feed.
type Activity struct {
	Partition string `json:"partition"`
	Entry
}

// after orders activities globally: by timestamp, with ties broken by
// partition name and then entry_id so the merge is deterministic.
func (a Activity) after(b Activity) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	if a.Partition != b.Partition {
		return a.Partition > b.Partition
	}
	return a.EntryID > b.EntryID
}

// mergeSource walks one partition snapshot from its newest entry backwards.
type mergeSource struct {
	partition string
	entries   []Entry
	idx       int // index of the next (not yet consumed) entry
}

func (s *mergeSource) head() Activity {
	return Activity{Partition: s.partition, Entry: s.entries[s.idx]}
}

// activityHeap is a max-heap of merge sources keyed by their head activity.
type activityHeap []*mergeSource

func (h activityHeap) Len() int           { return len(h) }
func (h activityHeap) Less(i, j int) bool { return h[i].head().after(h[j].head()) }
func (h activityHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *activityHeap) Push(x any)        { *h = append(*h, x.(*mergeSource)) }
func (h *activityHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// MergeRecent produces the globally most recent entries across the given
// partition snapshots, returned in true chronological (ascending) order.
// Each snapshot is already sorted by entry_id, so a k-way merge from the
// tails yields global timestamp order without concatenating everything; a
// per-partition truncate-then-concat would bias toward whichever partition
// happened to be iterated first.
func MergeRecent(snapshots map[string][]Entry, limit int) []Activity {
	if limit <= 0 {
		return []Activity{}
	}

	h := make(activityHeap, 0, len(snapshots))
	for name, entries := range snapshots {
		if len(entries) == 0 {
			continue
		}
		h = append(h, &mergeSource{partition: name, entries: entries, idx: len(entries) - 1})
	}
	heap.Init(&h)

	newest := make([]Activity, 0, limit)
	for len(newest) < limit && h.Len() > 0 {
		src := h[0]
		newest = append(newest, src.head())
		if src.idx--; src.idx >= 0 {
			heap.Fix(&h, 0)
		} else {
			heap.Pop(&h)
		}
	}

	// newest is newest-first; reverse into chronological order.
	out := make([]Activity, len(newest))
	for i, a := range newest {
		out[len(newest)-1-i] = a
	}
	return out
}
