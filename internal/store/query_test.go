package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleNotes() []Note {
	return []Note{
		{ID: 1, Title: "Belanja", Content: "telur, susu", Date: "2025-05-01T10:00:00.000Z"},
		{ID: 2, Title: "Rapat", Content: "Agenda SUSU perah", Date: "2025-05-03T10:00:00.000Z"},
		{ID: 3, Title: "Tanpa tanggal", Content: "", Date: "kemarin"},
		{ID: 4, Title: "Ide", Content: "aplikasi", Date: "2025-05-02T10:00:00.000Z"},
	}
}

func ids(notes []Note) []int64 {
	out := make([]int64, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.ID)
	}
	return out
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []int64
	}{
		{"blank matches all", "  ", []int64{1, 2, 3, 4}},
		{"title", "rapat", []int64{2}},
		{"content ignoring case", "susu", []int64{1, 2}},
		{"no match", "liburan", []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Search(sampleNotes(), tt.query)))
		})
	}
}

func TestSearch_DoesNotAliasInput(t *testing.T) {
	notes := sampleNotes()
	out := Search(notes, "")
	out[0].Title = "changed"
	assert.Equal(t, "Belanja", notes[0].Title)
}

func TestSortNewestFirst(t *testing.T) {
	notes := sampleNotes()
	sorted := SortNewestFirst(notes)

	assert.Equal(t, []int64{2, 4, 1, 3}, ids(sorted))
	assert.Equal(t, []int64{1, 2, 3, 4}, ids(notes), "input is left in insertion order")
}

func TestSortNewestFirst_StableTies(t *testing.T) {
	notes := []Note{
		{ID: 1, Date: "2025-01-01T00:00:00.000Z"},
		{ID: 2, Date: "2025-01-01T00:00:00.000Z"},
		{ID: 3, Date: ""},
		{ID: 4, Date: ""},
	}
	assert.Equal(t, []int64{1, 2, 3, 4}, ids(SortNewestFirst(notes)))
}

func TestSelect(t *testing.T) {
	assert.Equal(t, []int64{1, 4}, ids(Select(sampleNotes(), []int64{4, 1, 99})))
	assert.Empty(t, Select(sampleNotes(), nil))
}

func TestNoteTime(t *testing.T) {
	n := Note{Date: "2025-05-01T10:00:00.000Z"}
	ts, ok := n.Time()
	assert.True(t, ok)
	assert.Equal(t, 2025, ts.Year())

	_, ok = Note{Date: "not a date"}.Time()
	assert.False(t, ok)
}
