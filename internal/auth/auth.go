// Package auth checks and registers credentials against the users collection.
//
// Passwords are compared and stored in cleartext, matching the persisted
// layout of the users collection.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/vonshlovens/notestore/internal/store"
)

var (
	// ErrInvalidCredentials is returned for an unknown user or a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUserExists is returned when registering a username that is taken.
	ErrUserExists = errors.New("username already registered")
	// ErrPasswordMismatch is returned when the confirmation differs from the password.
	ErrPasswordMismatch = errors.New("password confirmation does not match")
)

// Lister yields the stored credentials.
type Lister interface {
	List(ctx context.Context) ([]store.Credential, error)
}

// Registry is what Register needs from the users collection.
type Registry interface {
	Exists(ctx context.Context, username string) (bool, error)
	Append(ctx context.Context, c store.Credential) error
}

// Authenticate returns the credential whose username and password both match
// exactly.
func Authenticate(ctx context.Context, users Lister, username, password string) (store.Credential, error) {
	creds, err := users.List(ctx)
	if err != nil {
		return store.Credential{}, fmt.Errorf("failed to load users: %w", err)
	}
	for _, c := range creds {
		if c.Username == username && c.Password == password {
			return c, nil
		}
	}
	slog.Debug("authentication failed", "username", username)
	return store.Credential{}, ErrInvalidCredentials
}

// Registration is the sign-up form.
type Registration struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
	Confirm  string `validate:"required"`
}

var validate = validator.New()

// Validate checks that every field is filled in and the confirmation matches.
func (r Registration) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s is required", verrs[0].Field())
		}
		return err
	}
	if r.Password != r.Confirm {
		return ErrPasswordMismatch
	}
	return nil
}

// Register validates r and appends the new credential. A username that is
// already stored is rejected with ErrUserExists.
func Register(ctx context.Context, users Registry, r Registration) (store.Credential, error) {
	if err := r.Validate(); err != nil {
		return store.Credential{}, err
	}

	exists, err := users.Exists(ctx, r.Username)
	if err != nil {
		return store.Credential{}, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return store.Credential{}, ErrUserExists
	}

	c := store.Credential{Username: r.Username, Password: r.Password}
	if err := users.Append(ctx, c); err != nil {
		return store.Credential{}, fmt.Errorf("failed to save user: %w", err)
	}
	slog.Info("user registered", "username", r.Username)
	return c, nil
}
