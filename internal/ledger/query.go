package ledger

import "time"

// Filter narrows a partition read. Zero-valued fields are ignored; set
// fields compose with logical AND. Start and End are inclusive.
type Filter struct {
	ActionType ActionType
	UserID     string
	Start      *time.Time
	End        *time.Time

	// NewestFirst reverses the result for "most recent first" display use.
	// The default is ascending entry_id order (chronological).
	NewestFirst bool
}

func (f Filter) matches(e Entry) bool {
	if f.ActionType != "" && e.ActionType != f.ActionType {
		return false
	}
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.Start != nil && e.Timestamp.Before(*f.Start) {
		return false
	}
	if f.End != nil && e.Timestamp.After(*f.End) {
		return false
	}
	return true
}

// Query filters and paginates a partition snapshot. Out-of-range offset or
// limit values clamp to the available data and never produce an error.
func Query(entries []Entry, f Filter, limit, offset int) []Entry {
	matched := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if f.matches(e) {
			matched = append(matched, e)
		}
	}

	if f.NewestFirst {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}

	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) || limit <= 0 {
		return []Entry{}
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end]
}
