package db

import "time"

// Entry is one row of the kv_entries table.
type Entry struct {
	Key       string
	SizeBytes int64
	UpdatedAt time.Time
}

// Status summarizes the rows held by a SQL substrate.
type Status struct {
	Connected   bool
	Driver      string
	Entries     []Entry
	LastUpdated *time.Time
}

func (s *Status) add(e Entry) {
	s.Entries = append(s.Entries, e)
	if s.LastUpdated == nil || e.UpdatedAt.After(*s.LastUpdated) {
		t := e.UpdatedAt
		s.LastUpdated = &t
	}
}
