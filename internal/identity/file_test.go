package identity

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docregistry/internal/model"
)

func writeUsersFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeUsersFile(t, `
users:
  - email: admin@example.com
    password: adminpassword
    role: admin
  - email: viewer@example.com
    password: viewerpassword
    role: viewer
`)

	dir, err := LoadFile(path)
	require.NoError(t, err)

	u, err := dir.Authenticate(context.Background(), "admin@example.com", "adminpassword")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)

	u, err = dir.Lookup(context.Background(), "viewer@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleViewer, u.Role)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read users file")

	_, err = LoadFile(writeUsersFile(t, "users: [this is: not valid"))
	assert.ErrorContains(t, err, "parse users file")

	_, err = LoadFile(writeUsersFile(t, "users: []\n"))
	assert.ErrorContains(t, err, "has no users")

	_, err = LoadFile(writeUsersFile(t, ""))
	assert.ErrorContains(t, err, "has no users")

	_, err = LoadFile(writeUsersFile(t, "users:\n  - email: a@example.com\n    pasword: x\n    role: admin\n"))
	assert.ErrorContains(t, err, "parse users file")
	assert.ErrorContains(t, err, "pasword")

	_, err = LoadFile(writeUsersFile(t, "users:\n  - email: a@example.com\n    password: x\n    role: root\n"))
	assert.ErrorContains(t, err, "unknown role")
}
