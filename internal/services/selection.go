package services

import (
	"sort"
	"strconv"
)

// SelectionDelta is the minimal set of link additions and removals needed
// to make a parent's link set match a submitted selection.
type SelectionDelta struct {
	ToAdd    []int64
	ToRemove []int64
}

// IsEmpty reports whether applying the delta would change nothing.
func (d SelectionDelta) IsEmpty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0
}

// ResolveSelection reconciles a submitted checkbox selection against the
// links currently held by a parent entity.
//
// current holds the related IDs presently linked. submitted holds the
// string-encoded IDs chosen in the form; nil means "none selected", so
// every current link is removed. known is the universe of valid related
// IDs: submitted values that are not numeric or not in the universe are
// silently ignored. A nil known accepts every parseable ID.
//
// The function is pure and idempotent: resubmitting the selection that the
// delta produces yields an empty delta. Duplicate submitted IDs collapse,
// so no duplicate links can result. Outputs are sorted ascending so equal
// inputs always produce identical deltas.
func ResolveSelection(current []int64, submitted []string, known map[int64]bool) SelectionDelta {
	currentSet := make(map[int64]bool, len(current))
	for _, id := range current {
		currentSet[id] = true
	}

	submittedSet := make(map[int64]bool, len(submitted))
	for _, raw := range submitted {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		if known != nil && !known[id] {
			continue
		}
		submittedSet[id] = true
	}

	var delta SelectionDelta
	for id := range submittedSet {
		if !currentSet[id] {
			delta.ToAdd = append(delta.ToAdd, id)
		}
	}
	for id := range currentSet {
		if !submittedSet[id] {
			delta.ToRemove = append(delta.ToRemove, id)
		}
	}

	sort.Slice(delta.ToAdd, func(i, j int) bool { return delta.ToAdd[i] < delta.ToAdd[j] })
	sort.Slice(delta.ToRemove, func(i, j int) bool { return delta.ToRemove[i] < delta.ToRemove[j] })

	return delta
}
