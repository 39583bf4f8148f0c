package store

import (
	"context"
	"sync"

	"eviltwitter/internal/apiclient"
	"eviltwitter/internal/auth"
	"eviltwitter/internal/model"
)

// AuthStore tracks the session and the backend user behind it.
type AuthStore struct {
	mu      sync.RWMutex
	session *auth.Session
	users   UserAPI
	user    *model.User
	loading bool
	err     string
	gen     generations
}

func newAuthStore(session *auth.Session, users UserAPI) *AuthStore {
	return &AuthStore{session: session, users: users, gen: generations{}}
}

func (s *AuthStore) Session() *auth.Session { return s.session }

func (s *AuthStore) LoggedIn() bool { return s.session.LoggedIn() }

// User returns the resolved backend user, if any.
func (s *AuthStore) User() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

func (s *AuthStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *AuthStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Login installs token and resolves the backend user. userID may be empty,
// in which case the token subject is looked up as an auth provider id.
func (s *AuthStore) Login(ctx context.Context, token, userID string) error {
	if err := s.session.Set(token, userID); err != nil {
		s.mu.Lock()
		s.err = failed("auth", "login", err)
		s.mu.Unlock()
		return err
	}
	return s.Refresh(ctx)
}

func (s *AuthStore) Logout() {
	s.session.Clear()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.err = ""
	s.gen.next("user")
}

// Refresh re-reads the current user. A configured user id is fetched
// directly; otherwise the token subject is resolved by auth id and the
// session adopts the backend id.
func (s *AuthStore) Refresh(ctx context.Context) error {
	tok, err := s.session.Token()
	if err != nil || s.session.UserID() == "" {
		return nil
	}
	s.mu.Lock()
	gen := s.gen.next("user")
	s.loading = true
	s.err = ""
	s.mu.Unlock()

	var u model.User
	configured := s.session.UserID()
	claims, _ := auth.ParseClaims(tok)
	if configured != "" && configured != claims.Subject {
		u, err = s.users.GetUser(ctx, configured)
	} else {
		u, err = s.users.UserByAuthID(ctx, claims.Subject)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.gen.current("user", gen) {
		stale("auth", "user")
		return nil
	}
	s.loading = false
	if err != nil {
		s.err = failed("auth", "refresh", err)
		return err
	}
	s.user = &u
	if u.ID != "" && u.ID != configured {
		_ = s.session.Set(tok, u.ID)
	}
	return nil
}

// Register creates the backend user for the current session.
func (s *AuthStore) Register(ctx context.Context, nu apiclient.NewUser) (model.User, error) {
	if !s.session.LoggedIn() {
		err := auth.Required("create an account")
		s.mu.Lock()
		s.err = err.Error()
		s.mu.Unlock()
		return model.User{}, err
	}
	u, err := s.users.CreateUser(ctx, nu)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = failed("auth", "register", err)
		return model.User{}, err
	}
	s.user = &u
	s.err = ""
	if tok, terr := s.session.Token(); terr == nil && u.ID != "" {
		_ = s.session.Set(tok, u.ID)
	}
	return u, nil
}
