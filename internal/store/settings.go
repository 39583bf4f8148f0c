package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"eviltwitter/internal/auth"
)

// Languages are the script modes the backend accepts.
var Languages = []string{"CANTONESE", "GOETSUAN", "NONE"}

// SettingsStore holds the account preferences changed through GraphQL: the
// default payment token and the script language.
type SettingsStore struct {
	mu       sync.RWMutex
	session  *auth.Session
	graph    GraphAPI
	rec      recorder
	token    string
	language string
	saving   string
	err      string
}

func newSettingsStore(session *auth.Session, graph GraphAPI, rec recorder) *SettingsStore {
	return &SettingsStore{session: session, graph: graph, rec: rec}
}

// DefaultToken is the last payment token set here. Empty means the backend default.
func (s *SettingsStore) DefaultToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *SettingsStore) Language() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.language
}

// Saving names the setting being written, or "".
func (s *SettingsStore) Saving() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saving
}

func (s *SettingsStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// SetDefaultToken makes tokenMint the account's default payment token. An
// empty mint resets it to the backend default.
func (s *SettingsStore) SetDefaultToken(ctx context.Context, tokenMint string) error {
	tokenMint = strings.TrimSpace(tokenMint)
	return s.save(ctx, "payment_token", "change settings", func() error {
		return s.graph.UpdateDefaultPaymentToken(ctx, tokenMint)
	}, func() { s.token = tokenMint })
}

// SetLanguage changes the script language. Case is ignored.
func (s *SettingsStore) SetLanguage(ctx context.Context, language string) error {
	language = strings.ToUpper(strings.TrimSpace(language))
	if !slices.Contains(Languages, language) {
		err := fmt.Errorf("unknown language %q (want one of %s)", language, strings.Join(Languages, ", "))
		s.mu.Lock()
		s.err = err.Error()
		s.mu.Unlock()
		return err
	}
	return s.save(ctx, "language", "change settings", func() error {
		return s.graph.UpdateLanguage(ctx, language)
	}, func() { s.language = language })
}

func (s *SettingsStore) save(ctx context.Context, kind, action string, call func() error, apply func()) error {
	if !s.session.LoggedIn() {
		err := auth.Required(action)
		s.mu.Lock()
		s.err = err.Error()
		s.mu.Unlock()
		return err
	}
	if s.graph == nil {
		return ErrNoGraph
	}
	s.mu.Lock()
	s.saving = kind
	s.err = ""
	s.mu.Unlock()

	err := call()
	s.rec.record(ctx, kind, "", err)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = ""
	if err != nil {
		s.err = failed("settings", kind, err)
		return err
	}
	apply()
	return nil
}
