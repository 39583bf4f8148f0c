package store

import (
	"context"
	"slices"
	"sync"

	"eviltwitter/internal/auth"
	"eviltwitter/internal/graphql"
	"eviltwitter/internal/model"
)

// UserStore caches profiles and follower lists by user id.
type UserStore struct {
	mu        sync.RWMutex
	session   *auth.Session
	api       UserAPI
	graph     GraphAPI
	profiles  map[string]graphql.Profile
	followers map[string][]model.User
	following map[string][]model.User
	loading   map[string]bool
	err       string
	gen       generations
}

func newUserStore(session *auth.Session, api UserAPI, graph GraphAPI) *UserStore {
	return &UserStore{
		session:   session,
		api:       api,
		graph:     graph,
		profiles:  make(map[string]graphql.Profile),
		followers: make(map[string][]model.User),
		following: make(map[string][]model.User),
		loading:   make(map[string]bool),
		gen:       generations{},
	}
}

func (s *UserStore) Profile(id string) (graphql.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	return p, ok
}

func (s *UserStore) Followers(id string) []model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.followers[id])
}

func (s *UserStore) Following(id string) []model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.following[id])
}

// Loading reports whether a fetch keyed by kind ("profile:<id>", "followers:<id>",
// "following:<id>") is in flight.
func (s *UserStore) Loading(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading[key]
}

func (s *UserStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// FetchProfile loads a profile with its first page of tweets through
// GraphQL, falling back to the REST user when no GraphQL client is set.
func (s *UserStore) FetchProfile(ctx context.Context, id string) error {
	key := "profile:" + id
	gen := s.begin(key)

	var p graphql.Profile
	var err error
	if s.graph != nil {
		p, err = s.graph.Profile(ctx, id, s.session.UserID(), 20)
	} else {
		p.User, err = s.api.GetUser(ctx, id)
		p.IsFollowedBy = p.User.IsFollowedByViewer
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.end(key, gen) {
		return nil
	}
	if err != nil {
		s.err = failed("users", "profile", err)
		return err
	}
	s.profiles[id] = p
	return nil
}

func (s *UserStore) FetchFollowers(ctx context.Context, id string) error {
	return s.fetchList(ctx, "followers", id, s.api.Followers, s.followers)
}

func (s *UserStore) FetchFollowing(ctx context.Context, id string) error {
	return s.fetchList(ctx, "following", id, s.api.Following, s.following)
}

func (s *UserStore) fetchList(ctx context.Context, kind, id string,
	call func(context.Context, string) ([]model.User, error), dst map[string][]model.User) error {
	key := kind + ":" + id
	gen := s.begin(key)
	users, err := call(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.end(key, gen) {
		return nil
	}
	if err != nil {
		s.err = failed("users", kind, err)
		return err
	}
	dst[id] = users
	return nil
}

func (s *UserStore) begin(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading[key] = true
	s.err = ""
	return s.gen.next(key)
}

// end clears the loading flag when gen is current and reports whether the
// response may be applied. Callers hold mu.
func (s *UserStore) end(key string, gen uint64) bool {
	if !s.gen.current(key, gen) {
		stale("users", key)
		return false
	}
	delete(s.loading, key)
	return true
}
