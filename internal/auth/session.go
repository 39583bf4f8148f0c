// Package auth holds the bearer session the client acts with.
//
// Tokens are issued by Supabase or Privy and verified by the backend; the
// client only reads the subject and expiry to pick a user id and to refuse
// actions once the token has lapsed.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotAuthenticated is returned by actions that need a session when none is set.
var ErrNotAuthenticated = errors.New("not authenticated")

// Claims is the subset of the session token the client reads.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Session is the current bearer token and the user it belongs to.
// The zero value is logged out. Safe for concurrent use.
type Session struct {
	mu      sync.RWMutex
	token   string
	userID  string
	subject string
	expires time.Time
	now     func() time.Time
}

func NewSession(token, userID string) (*Session, error) {
	s := &Session{}
	if token == "" {
		return s, nil
	}
	if err := s.Set(token, userID); err != nil {
		return nil, err
	}
	return s, nil
}

// Set installs a token. userID overrides the token subject when the backend
// id differs from the auth provider id.
func (s *Session) Set(token, userID string) error {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		s.Clear()
		return nil
	}
	claims, err := ParseClaims(token)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.subject = claims.Subject
	s.userID = userID
	s.expires = time.Time{}
	if claims.ExpiresAt != nil {
		s.expires = claims.ExpiresAt.Time
	}
	return nil
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.userID, s.subject = "", "", ""
	s.expires = time.Time{}
}

func (s *Session) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Token returns the bearer token, or ErrNotAuthenticated when absent or expired.
func (s *Session) Token() (string, error) {
	if s == nil {
		return "", ErrNotAuthenticated
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrNotAuthenticated
	}
	if !s.expires.IsZero() && !s.clock().Before(s.expires) {
		return "", fmt.Errorf("%w: token expired at %s", ErrNotAuthenticated, s.expires.Format(time.RFC3339))
	}
	return s.token, nil
}

// UserID is the backend user id: the configured id, else the token subject.
func (s *Session) UserID() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.userID != "" {
		return s.userID
	}
	return s.subject
}

func (s *Session) LoggedIn() bool {
	_, err := s.Token()
	return err == nil
}

// ExpiresAt returns the token expiry, zero when the token carries none.
func (s *Session) ExpiresAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expires
}

// Authorize sets the Authorization header when a session exists and reports
// whether it did.
func (s *Session) Authorize(req *http.Request) bool {
	tok, err := s.Token()
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	return true
}

// ParseClaims decodes the token payload without verifying the signature.
// Opaque (non-JWT) tokens are accepted with empty claims.
func ParseClaims(token string) (Claims, error) {
	var claims Claims
	if strings.Count(token, ".") != 2 {
		return claims, nil
	}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return Claims{}, fmt.Errorf("parse session token: %w", err)
	}
	return claims, nil
}

// Required wraps ErrNotAuthenticated into the canned message shown for action.
func Required(action string) error {
	return &RequiredError{Action: action}
}

// RequiredError is the short-circuit error for actions attempted logged out.
type RequiredError struct{ Action string }

func (e *RequiredError) Error() string { return "You must be logged in to " + e.Action + "." }
func (e *RequiredError) Unwrap() error { return ErrNotAuthenticated }
