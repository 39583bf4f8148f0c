package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: sub, ExpiresAt: jwt.NewNumericDate(exp)}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestSessionReadsSubject(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	s, err := NewSession("Bearer "+signed(t, "did:privy:abc", exp), "")
	require.NoError(t, err)
	assert.True(t, s.LoggedIn())
	assert.Equal(t, "did:privy:abc", s.UserID())
	assert.True(t, exp.Equal(s.ExpiresAt()))

	require.NoError(t, s.Set(signed(t, "sub", exp), "65f000"))
	assert.Equal(t, "65f000", s.UserID())
}

func TestSessionExpired(t *testing.T) {
	s, err := NewSession(signed(t, "u", time.Now().Add(-time.Minute)), "")
	require.NoError(t, err)
	_, err = s.Token()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.False(t, s.LoggedIn())
}

func TestSessionEmptyAndOpaque(t *testing.T) {
	var nilSession *Session
	_, err := nilSession.Token()
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	s, err := NewSession("", "")
	require.NoError(t, err)
	assert.False(t, s.LoggedIn())

	require.NoError(t, s.Set("opaque-token", "u1"))
	tok, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", tok)

	_, err = NewSession("a.b.c", "")
	assert.Error(t, err)
}

func TestAuthorize(t *testing.T) {
	s, _ := NewSession("", "")
	req := httptest.NewRequest("GET", "/", nil)
	assert.False(t, s.Authorize(req))
	assert.Empty(t, req.Header.Get("Authorization"))

	require.NoError(t, s.Set("tok", ""))
	assert.True(t, s.Authorize(req))
	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))

	s.Clear()
	assert.False(t, s.LoggedIn())
}

func TestRequiredMessage(t *testing.T) {
	err := Required("purchase items")
	assert.Equal(t, "You must be logged in to purchase items.", err.Error())
	assert.True(t, errors.Is(err, ErrNotAuthenticated))
}
