package store

import (
	"context"
	"log/slog"

	"github.com/vonshlovens/notestore/internal/kv"
)

// UsersKey is the storage key of the users collection.
const UsersKey = "users"

// CredentialRepository owns the users collection.
type CredentialRepository struct {
	coll   collection[Credential]
	logger *slog.Logger
}

// NewCredentialRepository creates a repository over s.
func NewCredentialRepository(s kv.Store, opts ...Option) *CredentialRepository {
	o := buildOptions(UsersKey, opts)
	return &CredentialRepository{
		coll:   collection[Credential]{kv: s, key: o.key, logger: o.logger},
		logger: o.logger,
	}
}

// List returns every credential in insertion order.
func (r *CredentialRepository) List(ctx context.Context) ([]Credential, error) {
	return r.coll.load(ctx)
}

// Append adds c without checking for an existing username.
func (r *CredentialRepository) Append(ctx context.Context, c Credential) error {
	users, err := r.coll.load(ctx)
	if err != nil {
		return err
	}
	return r.coll.save(ctx, append(users, c))
}

// Exists reports whether a credential with exactly username is stored.
func (r *CredentialRepository) Exists(ctx context.Context, username string) (bool, error) {
	users, err := r.coll.load(ctx)
	if err != nil {
		return false, err
	}
	for _, u := range users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

// RemoveByUsername drops every credential with username and writes back.
func (r *CredentialRepository) RemoveByUsername(ctx context.Context, username string) (bool, error) {
	users, err := r.coll.load(ctx)
	if err != nil {
		return false, err
	}

	kept := users[:0]
	for _, u := range users {
		if u.Username != username {
			kept = append(kept, u)
		}
	}
	removed := len(users) - len(kept)

	if err := r.coll.save(ctx, kept); err != nil {
		return false, err
	}
	r.logger.Debug("credential remove", "username", username, "removed", removed)
	return removed > 0, nil
}
