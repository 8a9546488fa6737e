package identity

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// usersFile is the on-disk layout:
//
//	users:
//	  - email: admin@example.com
//	    password_hash: $argon2id$v=19$...
//	    role: admin
type usersFile struct {
	Users []Credential `yaml:"users"`
}

// LoadFile reads a YAML users file into a Static directory.
func LoadFile(path string) (*Static, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	var f usersFile
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse users file: %w", err)
	}
	if len(f.Users) == 0 {
		return nil, fmt.Errorf("users file %s has no users", path)
	}
	return NewStatic(f.Users)
}
