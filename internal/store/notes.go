package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/vonshlovens/notestore/internal/kv"
)

// NotesKey is the storage key of the notes collection.
const NotesKey = "notes"

// NoteRepository owns the notes collection.
type NoteRepository struct {
	coll   collection[Note]
	clock  func() time.Time
	logger *slog.Logger
}

// NewNoteRepository creates a repository over s.
func NewNoteRepository(s kv.Store, opts ...Option) *NoteRepository {
	o := buildOptions(NotesKey, opts)
	return &NoteRepository{
		coll:   collection[Note]{kv: s, key: o.key, logger: o.logger},
		clock:  o.clock,
		logger: o.logger,
	}
}

// List returns every note in insertion order.
func (r *NoteRepository) List(ctx context.Context) ([]Note, error) {
	return r.coll.load(ctx)
}

// Get returns the first note with id.
func (r *NoteRepository) Get(ctx context.Context, id int64) (Note, bool, error) {
	notes, err := r.coll.load(ctx)
	if err != nil {
		return Note{}, false, err
	}
	for _, n := range notes {
		if n.ID == id {
			return n, true, nil
		}
	}
	return Note{}, false, nil
}

// Insert appends n to the collection and returns the stored record.
// A zero ID is replaced with the current time in milliseconds and an empty Date
// with the current time. Existing ids are not checked, so an explicit id can
// collide with a stored one.
func (r *NoteRepository) Insert(ctx context.Context, n Note) (Note, error) {
	notes, err := r.coll.load(ctx)
	if err != nil {
		return Note{}, err
	}

	now := r.clock()
	if n.ID == 0 {
		n.ID = now.UnixMilli()
	}
	if n.Date == "" {
		n.Date = now.UTC().Format(DateLayout)
	}

	notes = append(notes, n)
	if err := r.coll.save(ctx, notes); err != nil {
		return Note{}, err
	}

	r.logger.Debug("note inserted", "id", n.ID, "has_image", n.HasImage(), "count", len(notes))
	return n, nil
}

// UpdateByID merges patch into the first note with id. The id itself never
// changes. The collection is written back even when nothing matched; the
// returned bool reports whether a note was updated.
func (r *NoteRepository) UpdateByID(ctx context.Context, id int64, patch NotePatch) (bool, error) {
	notes, err := r.coll.load(ctx)
	if err != nil {
		return false, err
	}

	matched := false
	for i := range notes {
		if notes[i].ID == id {
			notes[i] = notes[i].apply(patch)
			notes[i].ID = id
			matched = true
			break
		}
	}

	if err := r.coll.save(ctx, notes); err != nil {
		return false, err
	}

	if !matched {
		r.logger.Debug("note update matched nothing", "id", id)
	}
	return matched, nil
}

// DeleteByID removes every note with id and writes the collection back. The
// returned bool reports whether anything was removed.
func (r *NoteRepository) DeleteByID(ctx context.Context, id int64) (bool, error) {
	notes, err := r.coll.load(ctx)
	if err != nil {
		return false, err
	}

	kept := notes[:0]
	for _, n := range notes {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	removed := len(notes) - len(kept)

	if err := r.coll.save(ctx, kept); err != nil {
		return false, err
	}

	r.logger.Debug("note delete", "id", id, "removed", removed)
	return removed > 0, nil
}
