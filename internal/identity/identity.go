// Package identity resolves credentials and e-mail addresses to users.
// The directory is consulted on login and again on every authenticated
// request to resolve the token subject's current role.
package identity

import (
	"context"
	"errors"

	"docregistry/internal/model"
)

var (
	// ErrAuthFailure is returned for any credential mismatch. Unknown users and
	// wrong passwords are indistinguishable.
	ErrAuthFailure = errors.New("invalid credentials")
	// ErrNotFound is returned by Lookup for unknown e-mail addresses.
	ErrNotFound = errors.New("user not found")
)

// Directory is the contract of a user directory.
type Directory interface {
	// Authenticate returns the user whose credentials exactly match. The
	// comparison is case-sensitive.
	Authenticate(ctx context.Context, username, password string) (*model.User, error)

	// Lookup returns the user registered under email.
	Lookup(ctx context.Context, email string) (*model.User, error)
}

// Credential is a directory entry. Exactly one of Password and PasswordHash
// is set; PasswordHash is an argon2id PHC string.
type Credential struct {
	Email        string     `yaml:"email"`
	Password     string     `yaml:"password,omitempty"`
	PasswordHash string     `yaml:"password_hash,omitempty"`
	Role         model.Role `yaml:"role"`
}
