package ledger

// ValidationResult reports the outcome of walking one partition's chain.
// BrokenAt is the entry_id of the first broken link, if any; entries past a
// break are not checked since nothing after it can be trusted.
type ValidationResult struct {
	Valid        bool   `json:"valid"`
	BrokenAt     *int64 `json:"broken_at,omitempty"`
	TotalChecked int    `json:"total_checked"`
}

// ValidateEntries recomputes the hash chain over entries in order. For each
// entry the hash is recomputed from its content plus the actual predecessor
// hash and compared against the stored value. An empty history is valid.
// The walk is read-only and operates on a snapshot, so it never blocks or
// mutates the partition it describes.
func ValidateEntries(entries []Entry) ValidationResult {
	expected := GenesisHash
	for i, e := range entries {
		if e.EntryID != int64(i) || !e.Verify(expected) {
			broken := int64(i)
			return ValidationResult{
				Valid:        false,
				BrokenAt:     &broken,
				TotalChecked: i + 1,
			}
		}
		expected = e.Hash
	}
	return ValidationResult{Valid: true, TotalChecked: len(entries)}
}
