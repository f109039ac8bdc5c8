package services

import "sort"

// Cache keys for selection list universes. Instrument mutations invalidate
// the instrument key; musician mutations the musician key.
const (
	CacheKeyInstrumentOptions = "options:instruments"
	CacheKeyMusicianOptions   = "options:musicians"
)

const dateLayout = "2006-01-02"

// OptionItem is one entry in a selection UI: identifier plus display label.
type OptionItem struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// SelectionLists carries the two lists a relationship editor renders:
// options currently linked and options still available. Both are sorted by
// label.
type SelectionLists struct {
	Selected  []OptionItem `json:"selected"`
	Available []OptionItem `json:"available"`
}

// splitOptions partitions a universe of options by membership in the
// selected set, sorting each list by label.
func splitOptions(universe []OptionItem, selected map[int64]bool) SelectionLists {
	lists := SelectionLists{
		Selected:  []OptionItem{},
		Available: []OptionItem{},
	}
	for _, opt := range universe {
		if selected[opt.ID] {
			lists.Selected = append(lists.Selected, opt)
		} else {
			lists.Available = append(lists.Available, opt)
		}
	}
	sortOptions(lists.Selected)
	sortOptions(lists.Available)
	return lists
}

func sortOptions(opts []OptionItem) {
	sort.Slice(opts, func(i, j int) bool {
		if opts[i].Label != opts[j].Label {
			return opts[i].Label < opts[j].Label
		}
		return opts[i].ID < opts[j].ID
	})
}
