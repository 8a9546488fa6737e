package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docregistry/internal/identity"
)

func TestRun(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"s3cret"}, strings.NewReader(""), &out))

	hash := strings.TrimSpace(out.String())
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	ok, err := identity.VerifyPassword("s3cret", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunStdin(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(nil, strings.NewReader("fromstdin\n"), &out))

	ok, err := identity.VerifyPassword("fromstdin", strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunEmpty(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run(nil, strings.NewReader(""), &out))
	assert.Empty(t, out.String())
}
