package identity

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"docregistry/internal/model"
)

// An unknown user is checked against one of these, matching the kind of
// secret the directory holds, so the failure paths do the same work.
const (
	dummyHash     = "$argon2id$v=19$m=65536,t=3,p=4$c29tZXNhbHRzb21lc2FsdA$3CVB0MwL7cUrqYJzmf3dIiwrWAfcbP6e6ZZ5lGuGrSw"
	dummyPassword = "not-a-real-password"
)

// Static is an immutable in-memory directory. Every entry holds the same
// kind of secret: when a table mixes plaintext and hashed entries, the
// plaintext ones are hashed at construction.
type Static struct {
	users  map[string]Credential
	hashed bool

	verifyHash   func(password, encodedHash string) (bool, error)
	comparePlain func(password, stored string) bool
}

var _ Directory = (*Static)(nil)

// NewStatic builds a directory from creds. Entries must have an e-mail, a
// valid role, exactly one of Password or PasswordHash, and unique e-mails.
func NewStatic(creds []Credential) (*Static, error) {
	users := make(map[string]Credential, len(creds))
	for i, c := range creds {
		if c.Email == "" {
			return nil, fmt.Errorf("user %d: email is required", i)
		}
		if _, err := model.ParseRole(string(c.Role)); err != nil {
			return nil, fmt.Errorf("user %s: %w", c.Email, err)
		}
		if (c.Password == "") == (c.PasswordHash == "") {
			return nil, fmt.Errorf("user %s: exactly one of password or password_hash is required", c.Email)
		}
		if _, dup := users[c.Email]; dup {
			return nil, fmt.Errorf("user %s: duplicate entry", c.Email)
		}
		users[c.Email] = c
	}

	var hashed int
	for _, c := range users {
		if c.PasswordHash != "" {
			hashed++
		}
	}
	if hashed > 0 && hashed < len(users) {
		for email, c := range users {
			if c.Password == "" {
				continue
			}
			h, err := HashPassword(c.Password)
			if err != nil {
				return nil, fmt.Errorf("user %s: %w", email, err)
			}
			c.Password, c.PasswordHash = "", h
			users[email] = c
		}
	}

	return &Static{
		users:        users,
		hashed:       hashed > 0,
		verifyHash:   VerifyPassword,
		comparePlain: equalPlain,
	}, nil
}

// equalPlain compares digests so the comparison time does not depend on
// either length.
func equalPlain(password, stored string) bool {
	a := sha256.Sum256([]byte(password))
	b := sha256.Sum256([]byte(stored))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// DevUsers are the built-in accounts used when no users file is configured.
func DevUsers() []Credential {
	return []Credential{
		{Email: "admin@example.com", Password: "adminpassword", Role: model.RoleAdmin},
		{Email: "editor@example.com", Password: "editorpassword", Role: model.RoleEditor},
		{Email: "viewer@example.com", Password: "viewerpassword", Role: model.RoleViewer},
	}
}

func (s *Static) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, ok := s.users[username]
	if !ok {
		if s.hashed {
			_, _ = s.verifyHash(password, dummyHash)
		} else {
			_ = s.comparePlain(password, dummyPassword)
		}
		return nil, ErrAuthFailure
	}

	var match bool
	if s.hashed {
		var err error
		match, err = s.verifyHash(password, c.PasswordHash)
		if err != nil {
			return nil, ErrAuthFailure
		}
	} else {
		match = s.comparePlain(password, c.Password)
	}
	if !match {
		return nil, ErrAuthFailure
	}
	return &model.User{Email: c.Email, Role: c.Role}, nil
}

func (s *Static) Lookup(ctx context.Context, email string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, ok := s.users[email]
	if !ok {
		return nil, ErrNotFound
	}
	return &model.User{Email: c.Email, Role: c.Role}, nil
}
