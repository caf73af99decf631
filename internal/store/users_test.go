package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vonshlovens/notestore/internal/kv"
)

func TestCredentialRepository_AppendAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewCredentialRepository(kv.NewMemory())

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	require.NoError(t, repo.Append(ctx, Credential{Username: "budi", Password: "rahasia"}))
	require.NoError(t, repo.Append(ctx, Credential{Username: "sari", Password: "kunci"}))

	users, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Credential{
		{Username: "budi", Password: "rahasia"},
		{Username: "sari", Password: "kunci"},
	}, users)
}

func TestCredentialRepository_Exists(t *testing.T) {
	ctx := context.Background()
	repo := NewCredentialRepository(kv.NewMemory())
	require.NoError(t, repo.Append(ctx, Credential{Username: "budi", Password: "x"}))

	ok, err := repo.Exists(ctx, "budi")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(ctx, "Budi")
	require.NoError(t, err)
	assert.False(t, ok, "usernames are case-sensitive")
}

func TestCredentialRepository_AppendAllowsDuplicates(t *testing.T) {
	ctx := context.Background()
	repo := NewCredentialRepository(kv.NewMemory())

	require.NoError(t, repo.Append(ctx, Credential{Username: "budi", Password: "a"}))
	require.NoError(t, repo.Append(ctx, Credential{Username: "budi", Password: "b"}))

	users, _ := repo.List(ctx)
	assert.Len(t, users, 2)

	removed, err := repo.RemoveByUsername(ctx, "budi")
	require.NoError(t, err)
	assert.True(t, removed)
	users, _ = repo.List(ctx)
	assert.Empty(t, users)

	removed, err = repo.RemoveByUsername(ctx, "budi")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestCredentialRepository_WireFormat(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	require.NoError(t, mem.Set(ctx, UsersKey, `[{"username":"budi","password":"rahasia"}]`))

	repo := NewCredentialRepository(mem)
	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Credential{{Username: "budi", Password: "rahasia"}}, users)

	require.NoError(t, repo.Append(ctx, Credential{Username: "sari", Password: "p&q"}))
	v, _, _ := mem.Get(ctx, UsersKey)
	assert.Equal(t, `[{"username":"budi","password":"rahasia"},{"username":"sari","password":"p&q"}]`, v)
}

func TestCredentialRepository_IndependentOfNotes(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	notes := NewNoteRepository(mem)
	users := NewCredentialRepository(mem)

	_, err := notes.Insert(ctx, Note{Title: "t"})
	require.NoError(t, err)
	require.NoError(t, users.Append(ctx, Credential{Username: "u", Password: "p"}))

	list, _ := notes.List(ctx)
	assert.Len(t, list, 1)
	creds, _ := users.List(ctx)
	assert.Len(t, creds, 1)
}

func TestCredentialRepository_CorruptStore(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	require.NoError(t, mem.Set(ctx, UsersKey, `{"username":"budi"}`))

	repo := NewCredentialRepository(mem)
	_, err := repo.Exists(ctx, "budi")
	assert.ErrorIs(t, err, ErrCorruptStore)
	assert.ErrorIs(t, repo.Append(ctx, Credential{}), ErrCorruptStore)
}

func TestCredentialRepository_SubstrateFailure(t *testing.T) {
	ctx := context.Background()
	repo := NewCredentialRepository(&failingStore{Store: kv.NewMemory(), setErr: errDisk})

	err := repo.Append(ctx, Credential{Username: "u", Password: "p"})
	assert.ErrorIs(t, err, errDisk)
}
