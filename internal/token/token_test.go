package token

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-32-bytes-should-be-long-enough"

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestService(t *testing.T, ttl time.Duration) (*Service, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	s, err := NewService(testSecret, ttl, WithClock(c.now))
	require.NoError(t, err)
	return s, c
}

func TestNewService(t *testing.T) {
	_, err := NewService("", time.Minute)
	assert.ErrorIs(t, err, ErrNoSecret)

	s, err := NewService("x", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, s.TTL())
}

func TestIssueVerify(t *testing.T) {
	s, _ := newTestService(t, 30*time.Minute)

	issued, err := s.Issue("editor@example.com")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 12, 30, 0, 0, time.UTC), issued.ExpiresAt)

	sub, err := s.Verify(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "editor@example.com", sub)
}

func TestIssueRequiresSubject(t *testing.T) {
	s, _ := newTestService(t, time.Minute)
	_, err := s.Issue("")
	assert.ErrorIs(t, err, ErrNoSubject)
}

func TestLifecycle(t *testing.T) {
	s, c := newTestService(t, 30*time.Minute)
	issued, err := s.Issue("admin@example.com")
	require.NoError(t, err)
	start := c.t

	c.t = start.Add(29 * time.Minute)
	_, err = s.Verify(issued.Token)
	assert.NoError(t, err)

	c.t = start.Add(31 * time.Minute)
	_, err = s.Verify(issued.Token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestIssueWithTTLFallsBackToDefault(t *testing.T) {
	s, c := newTestService(t, time.Hour)
	issued, err := s.IssueWithTTL("viewer@example.com", 0)
	require.NoError(t, err)
	assert.Equal(t, c.t.Add(DefaultTTL), issued.ExpiresAt)

	c.t = c.t.Add(16 * time.Minute)
	_, err = s.Verify(issued.Token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyWrongSecret(t *testing.T) {
	s, c := newTestService(t, time.Minute)
	issued, err := s.Issue("u@example.com")
	require.NoError(t, err)

	other, err := NewService("different-secret-xxxxxxxxxxxxxxxx", time.Minute, WithClock(c.now))
	require.NoError(t, err)
	_, err = other.Verify(issued.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyMalformed(t *testing.T) {
	s, _ := newTestService(t, time.Minute)
	for _, raw := range []string{"", "not.a.jwt", "garbage"} {
		_, err := s.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken, raw)
	}
}

func TestVerifyAlgNoneRejected(t *testing.T) {
	s, _ := newTestService(t, time.Minute)
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"admin@example.com","exp":9999999999}`))
	_, err := s.Verify(header + "." + payload + ".")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTamperedPayload(t *testing.T) {
	s, _ := newTestService(t, 5*time.Minute)
	issued, err := s.Issue("viewer@example.com")
	require.NoError(t, err)

	parts := strings.Split(issued.Token, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(strings.Replace(string(payload), "viewer", "admin", 1)))

	_, err = s.Verify(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyMissingExpiry(t *testing.T) {
	s, _ := newTestService(t, time.Minute)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "a@example.com"}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = s.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyEmptySubject(t *testing.T) {
	s, c := newTestService(t, time.Minute)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": c.t.Add(time.Minute).Unix()}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = s.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
