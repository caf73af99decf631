package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/vonshlovens/notestore/internal/kv"
)

func newNotes(t *testing.T) (*NoteRepository, *kv.Memory) {
	t.Helper()
	mem := kv.NewMemory()
	return NewNoteRepository(mem, WithClock(stepClock(epoch))), mem
}

func TestNoteRepository_EmptyStore(t *testing.T) {
	repo, _ := newNotes(t)

	notes, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, notes)
	assert.Empty(t, notes)
}

func TestNoteRepository_InsertAssignsIDAndDate(t *testing.T) {
	ctx := context.Background()
	repo, _ := newNotes(t)

	stored, err := repo.Insert(ctx, Note{Title: "t1", Content: "c1"})
	require.NoError(t, err)

	assert.Equal(t, epoch.Add(time.Millisecond).UnixMilli(), stored.ID)
	assert.Equal(t, "2025-06-01T08:30:00.001Z", stored.Date)
	assert.Nil(t, stored.ImageBase64)
	assert.False(t, stored.HasImage())

	notes, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, stored, notes[0])
}

func TestNoteRepository_InsertKeepsCallerFields(t *testing.T) {
	ctx := context.Background()
	repo, _ := newNotes(t)

	in := Note{
		ID:          7,
		Title:       "bukti",
		ImageURI:    String("file:///tmp/a.png"),
		ImageBase64: String("data:image/png;base64,AAAA"),
		Date:        "2024-01-02T03:04:05.000Z",
	}
	stored, err := repo.Insert(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, in, stored)
}

func TestNoteRepository_DuplicateIDsAreKept(t *testing.T) {
	ctx := context.Background()
	repo, _ := newNotes(t)

	_, err := repo.Insert(ctx, Note{ID: 5, Title: "first"})
	require.NoError(t, err)
	_, err = repo.Insert(ctx, Note{ID: 5, Title: "second"})
	require.NoError(t, err)

	notes, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "first", notes[0].Title)
	assert.Equal(t, "second", notes[1].Title)

	// Update only touches the first match; delete removes both.
	matched, err := repo.UpdateByID(ctx, 5, NotePatch{Content: String("x")})
	require.NoError(t, err)
	assert.True(t, matched)
	notes, _ = repo.List(ctx)
	assert.Equal(t, "x", notes[0].Content)
	assert.Equal(t, "", notes[1].Content)

	removed, err := repo.DeleteByID(ctx, 5)
	require.NoError(t, err)
	assert.True(t, removed)
	notes, _ = repo.List(ctx)
	assert.Empty(t, notes)
}

func TestNoteRepository_UpdateRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, _ := newNotes(t)

	n, err := repo.Insert(ctx, Note{Title: "t", Content: "before", ImageURI: String("img.png")})
	require.NoError(t, err)

	matched, err := repo.UpdateByID(ctx, n.ID, NotePatch{Content: String("after")})
	require.NoError(t, err)
	assert.True(t, matched)

	got, ok, err := repo.Get(ctx, n.ID)
	require.NoError(t, err)
	require.True(t, ok)

	want := n
	want.Content = "after"
	assert.Equal(t, want, got)
}

func TestNoteRepository_UpdateNeverChangesID(t *testing.T) {
	ctx := context.Background()
	repo, _ := newNotes(t)

	n, err := repo.Insert(ctx, Note{Title: "t"})
	require.NoError(t, err)

	other := int64(99)
	matched, err := repo.UpdateByID(ctx, n.ID, NotePatch{ID: &other, Title: String("renamed")})
	require.NoError(t, err)
	assert.True(t, matched)

	notes, _ := repo.List(ctx)
	require.Len(t, notes, 1)
	assert.Equal(t, n.ID, notes[0].ID)
	assert.Equal(t, "renamed", notes[0].Title)
}

func TestNoteRepository_UpdateDoesNotTouchDate(t *testing.T) {
	ctx := context.Background()
	repo, _ := newNotes(t)

	n, err := repo.Insert(ctx, Note{Title: "t"})
	require.NoError(t, err)
	_, err = repo.UpdateByID(ctx, n.ID, NotePatch{Title: String("t2")})
	require.NoError(t, err)

	got, _, _ := repo.Get(ctx, n.ID)
	assert.Equal(t, n.Date, got.Date)
}

func TestNoteRepository_PatchClearsImage(t *testing.T) {
	ctx := context.Background()
	repo, _ := newNotes(t)

	n, err := repo.Insert(ctx, Note{
		Title:       "t",
		ImageURI:    String("a.png"),
		ImageBase64: String("data:image/png;base64,AAAA"),
	})
	require.NoError(t, err)

	_, err = repo.UpdateByID(ctx, n.ID, NotePatch{ImageURI: String(""), ImageBase64: String("")})
	require.NoError(t, err)

	got, _, _ := repo.Get(ctx, n.ID)
	assert.Nil(t, got.ImageURI)
	assert.Nil(t, got.ImageBase64)
}

func TestNoteRepository_PatchFromReplacesRecord(t *testing.T) {
	ctx := context.Background()
	repo, _ := newNotes(t)

	n, err := repo.Insert(ctx, Note{Title: "t", ImageURI: String("a.png")})
	require.NoError(t, err)

	replacement := Note{ID: 1, Title: "new", Content: "body", Date: "2020-01-01T00:00:00.000Z"}
	_, err = repo.UpdateByID(ctx, n.ID, PatchFrom(replacement))
	require.NoError(t, err)

	got, _, _ := repo.Get(ctx, n.ID)
	replacement.ID = n.ID
	assert.Equal(t, replacement, got)
}

func TestNoteRepository_UpdateMissIsNoop(t *testing.T) {
	ctx := context.Background()
	repo, mem := newNotes(t)

	_, err := repo.Insert(ctx, Note{Title: "t"})
	require.NoError(t, err)
	before, _, _ := mem.Get(ctx, NotesKey)

	matched, err := repo.UpdateByID(ctx, 12345, NotePatch{Title: String("nope")})
	require.NoError(t, err)
	assert.False(t, matched)

	after, _, _ := mem.Get(ctx, NotesKey)
	assert.Equal(t, before, after)
}

func TestNoteRepository_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo, mem := newNotes(t)

	a, _ := repo.Insert(ctx, Note{Title: "a"})
	_, _ = repo.Insert(ctx, Note{Title: "b"})

	removed, err := repo.DeleteByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	once, _, _ := mem.Get(ctx, NotesKey)

	removed, err = repo.DeleteByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, removed)
	twice, _, _ := mem.Get(ctx, NotesKey)

	assert.Equal(t, once, twice)
}

func TestNoteRepository_DeleteMissStillWrites(t *testing.T) {
	ctx := context.Background()
	fs := &failingStore{Store: kv.NewMemory()}
	repo := NewNoteRepository(fs)

	removed, err := repo.DeleteByID(ctx, 1)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 1, fs.sets)

	v, ok, _ := fs.Store.Get(ctx, NotesKey)
	assert.True(t, ok)
	assert.Equal(t, "[]", v)
}

func TestNoteRepository_CorruptStore(t *testing.T) {
	ctx := context.Background()
	repo, mem := newNotes(t)
	require.NoError(t, mem.Set(ctx, NotesKey, "{not json"))

	_, err := repo.List(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorruptStore)

	var corrupt *CorruptStoreError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, NotesKey, corrupt.Key)

	// Mutations refuse to overwrite what they could not read.
	_, err = repo.Insert(ctx, Note{Title: "t"})
	assert.ErrorIs(t, err, ErrCorruptStore)
	v, _, _ := mem.Get(ctx, NotesKey)
	assert.Equal(t, "{not json", v)
}

func TestNoteRepository_NullAndEmptyBlobs(t *testing.T) {
	ctx := context.Background()

	for _, blob := range []string{"", "null", "[]"} {
		t.Run(blob, func(t *testing.T) {
			repo, mem := newNotes(t)
			require.NoError(t, mem.Set(ctx, NotesKey, blob))

			notes, err := repo.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, notes)
		})
	}
}

func TestNoteRepository_ReadsSourceLayout(t *testing.T) {
	ctx := context.Background()
	repo, mem := newNotes(t)

	blob := `[{"title":"Belanja","content":"telur","imageUri":null,"imageBase64":null,"date":"2025-05-01T10:00:00.000Z","id":1746093600000},` +
		`{"title":"Foto","content":"","imageUri":"file:///data/x.jpg","imageBase64":"data:image/jpeg;base64,/9j/4A==","date":"2025-05-02T10:00:00.000Z","id":1746180000000}]`
	require.NoError(t, mem.Set(ctx, NotesKey, blob))

	notes, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, int64(1746093600000), notes[0].ID)
	assert.Nil(t, notes[0].ImageURI)
	assert.False(t, notes[0].HasImage())
	assert.True(t, notes[1].HasImage())
	assert.Equal(t, "file:///data/x.jpg", *notes[1].ImageURI)
}

func TestNoteRepository_WritesJSONArray(t *testing.T) {
	ctx := context.Background()
	repo := NewNoteRepository(kv.NewMemory(), WithClock(func() time.Time { return epoch }))
	mem := repo.coll.kv.(*kv.Memory)

	_, err := repo.Insert(ctx, Note{Title: "<b>t</b>", Content: "a & b"})
	require.NoError(t, err)

	v, _, _ := mem.Get(ctx, NotesKey)
	assert.Equal(t, `[{"id":1748766600000,"title":"<b>t</b>","content":"a & b","date":"2025-06-01T08:30:00.000Z"}]`, v)
}

func TestNoteRepository_SubstrateFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("read", func(t *testing.T) {
		repo := NewNoteRepository(&failingStore{Store: kv.NewMemory(), getErr: errDisk})
		_, err := repo.List(ctx)
		assert.ErrorIs(t, err, errDisk)
		_, err = repo.Insert(ctx, Note{Title: "t"})
		assert.ErrorIs(t, err, errDisk)
	})

	t.Run("write", func(t *testing.T) {
		repo := NewNoteRepository(&failingStore{Store: kv.NewMemory(), setErr: errDisk})
		_, err := repo.Insert(ctx, Note{Title: "t"})
		assert.ErrorIs(t, err, errDisk)
		_, err = repo.UpdateByID(ctx, 1, NotePatch{})
		assert.ErrorIs(t, err, errDisk)
		_, err = repo.DeleteByID(ctx, 1)
		assert.ErrorIs(t, err, errDisk)
	})
}

func TestNoteRepository_WithKey(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	repo := NewNoteRepository(mem, WithKey("archive"))

	_, err := repo.Insert(ctx, Note{Title: "t"})
	require.NoError(t, err)

	_, ok, _ := mem.Get(ctx, NotesKey)
	assert.False(t, ok)
	_, ok, _ = mem.Get(ctx, "archive")
	assert.True(t, ok)
}

func TestNoteRepository_LostUpdate(t *testing.T) {
	// Two writers that both read before either writes: the later write wins.
	ctx := context.Background()
	mem := kv.NewMemory()
	repo := NewNoteRepository(mem, WithClock(stepClock(epoch)))
	n, _ := repo.Insert(ctx, Note{Title: "t"})

	stale, err := repo.coll.load(ctx)
	require.NoError(t, err)

	_, err = repo.UpdateByID(ctx, n.ID, NotePatch{Content: String("first")})
	require.NoError(t, err)

	stale[0].Title = "second"
	require.NoError(t, repo.coll.save(ctx, stale))

	got, _, _ := repo.Get(ctx, n.ID)
	assert.Equal(t, "second", got.Title)
	assert.Equal(t, "", got.Content, "first writer's update is lost")
}

func TestNoteRepository_InsertionOrderProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		repo := NewNoteRepository(kv.NewMemory(), WithClock(stepClock(epoch)))

		inputs := rapid.SliceOfN(rapid.Custom(func(t *rapid.T) Note {
			return Note{
				ID:      rapid.Int64Range(0, 4).Draw(t, "id"),
				Title:   rapid.StringN(1, 12, -1).Draw(t, "title"),
				Content: rapid.String().Draw(t, "content"),
			}
		}), 0, 15).Draw(t, "notes")

		var want []Note
		for _, in := range inputs {
			stored, err := repo.Insert(ctx, in)
			require.NoError(t, err)
			if in.ID != 0 {
				require.Equal(t, in.ID, stored.ID)
			}
			want = append(want, stored)
		}

		got, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, got, len(want))
		for i := range want {
			require.Equal(t, want[i], got[i])
		}
	})
}

func TestNoteRepository_DeleteIdempotenceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		mem := kv.NewMemory()
		repo := NewNoteRepository(mem, WithClock(stepClock(epoch)))

		n := rapid.IntRange(0, 10).Draw(t, "n")
		for i := 0; i < n; i++ {
			_, err := repo.Insert(ctx, Note{ID: rapid.Int64Range(1, 5).Draw(t, "id"), Title: "t"})
			require.NoError(t, err)
		}
		target := rapid.Int64Range(1, 6).Draw(t, "target")

		_, err := repo.DeleteByID(ctx, target)
		require.NoError(t, err)
		once, _ := repo.List(ctx)

		_, err = repo.DeleteByID(ctx, target)
		require.NoError(t, err)
		twice, _ := repo.List(ctx)

		require.Equal(t, once, twice)
		for _, note := range twice {
			require.NotEqual(t, target, note.ID)
		}
	})
}
