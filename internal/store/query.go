package store

import (
	"slices"
	"sort"
	"strings"
)

// Search returns the notes whose title or content contains query, ignoring
// case. A blank query matches everything.
func Search(notes []Note, query string) []Note {
	if strings.TrimSpace(query) == "" {
		return slices.Clone(notes)
	}
	q := strings.ToLower(query)

	var out []Note
	for _, n := range notes {
		if strings.Contains(strings.ToLower(n.Title), q) || strings.Contains(strings.ToLower(n.Content), q) {
			out = append(out, n)
		}
	}
	return out
}

// SortNewestFirst returns a copy of notes ordered by Date, newest first.
// Notes with an unparseable date go last; ties keep insertion order.
func SortNewestFirst(notes []Note) []Note {
	out := slices.Clone(notes)
	sort.SliceStable(out, func(i, j int) bool {
		ti, oki := out[i].Time()
		tj, okj := out[j].Time()
		switch {
		case oki && okj:
			return ti.After(tj)
		case oki:
			return true
		default:
			return false
		}
	})
	return out
}

// Select keeps the notes whose id is in ids, in stored order.
func Select(notes []Note, ids []int64) []Note {
	var out []Note
	for _, n := range notes {
		if slices.Contains(ids, n.ID) {
			out = append(out, n)
		}
	}
	return out
}
