package store

import (
	"context"
	"slices"
	"sync"

	"github.com/samber/lo"

	"eviltwitter/internal/auth"
	"eviltwitter/internal/model"
)

// FollowStore tracks the session user's follow state per target, plus
// approval-gated intimate follow requests.
type FollowStore struct {
	mu        sync.RWMutex
	session   *auth.Session
	api       FollowAPI
	rec       recorder
	following map[string]bool
	confirmed map[string]bool // last state the server reported
	pending   map[string]bool
	intimate  map[string]model.IntimateFollowStatus
	requests  []model.IntimateFollowRequest
	loading   bool
	err       string
	gen       generations
}

func newFollowStore(session *auth.Session, api FollowAPI, rec recorder) *FollowStore {
	return &FollowStore{
		session:   session,
		api:       api,
		rec:       rec,
		following: make(map[string]bool),
		confirmed: make(map[string]bool),
		pending:   make(map[string]bool),
		intimate:  make(map[string]model.IntimateFollowStatus),
		gen:       generations{},
	}
}

func (s *FollowStore) IsFollowing(target string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.following[target]
}

// Pending reports whether a follow or unfollow of target is in flight.
func (s *FollowStore) Pending(target string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending[target]
}

func (s *FollowStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *FollowStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *FollowStore) Follow(ctx context.Context, target string) error {
	return s.set(ctx, target, true)
}

func (s *FollowStore) Unfollow(ctx context.Context, target string) error {
	return s.set(ctx, target, false)
}

// Toggle follows when not following and unfollows otherwise.
func (s *FollowStore) Toggle(ctx context.Context, target string) error {
	return s.set(ctx, target, !s.IsFollowing(target))
}

// set flips the flag immediately. A failure reverts it to the last state the
// server confirmed, not to whatever an overlapping call had flipped it to.
func (s *FollowStore) set(ctx context.Context, target string, want bool) error {
	action, kind := "follow users", "follow"
	if !want {
		action, kind = "unfollow users", "unfollow"
	}
	if !s.session.LoggedIn() {
		return s.deny(action)
	}

	key := "follow:" + target
	s.mu.Lock()
	s.following[target] = want
	s.pending[target] = true
	s.err = ""
	gen := s.gen.next(key)
	s.mu.Unlock()

	var state bool
	var err error
	if want {
		state, err = s.api.Follow(ctx, target)
	} else {
		state, err = s.api.Unfollow(ctx, target)
	}
	s.rec.record(ctx, kind, target, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.confirmed[target] = state
	}
	if !s.gen.current(key, gen) {
		stale("follows", kind)
		return err
	}
	delete(s.pending, target)
	if err != nil {
		s.following[target] = s.confirmed[target]
		s.err = failed("follows", kind, err)
		return err
	}
	s.following[target] = state
	return nil
}

// CheckStatus reads whether the session user follows target. The answer is
// dropped while a follow or unfollow of target is in flight.
func (s *FollowStore) CheckStatus(ctx context.Context, target string) (bool, error) {
	me := s.session.UserID()
	if me == "" {
		return false, nil
	}
	key := "status:" + target
	s.mu.Lock()
	gen := s.gen.next(key)
	s.mu.Unlock()

	state, err := s.api.FollowStatus(ctx, target, me)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = failed("follows", "status", err)
		return false, err
	}
	if !s.gen.current(key, gen) || s.pending[target] {
		stale("follows", "status")
		return s.following[target], nil
	}
	s.confirmed[target] = state
	s.following[target] = state
	return state, nil
}

// Seed records known follow states, e.g. from a profile's viewer flag.
func (s *FollowStore) Seed(states map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range states {
		s.confirmed[k] = v
		if !s.pending[k] {
			s.following[k] = v
		}
	}
}

func (s *FollowStore) IntimateStatus(target string) model.IntimateFollowStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.intimate[target]
}

// Requests returns the incoming intimate follow requests.
func (s *FollowStore) Requests() []model.IntimateFollowRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.requests)
}

func (s *FollowStore) RequestIntimate(ctx context.Context, target string) error {
	if !s.session.LoggedIn() {
		return s.deny("request intimate follows")
	}
	req, err := s.api.RequestIntimateFollow(ctx, target)
	s.rec.record(ctx, "intimate_request", target, err)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = failed("follows", "intimate_request", err)
		return err
	}
	s.err = ""
	s.intimate[target] = req.Status
	return nil
}

func (s *FollowStore) FetchIntimateStatus(ctx context.Context, target string) error {
	key := "intimate:" + target
	s.mu.Lock()
	gen := s.gen.next(key)
	s.mu.Unlock()

	st, err := s.api.IntimateStatus(ctx, target)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.gen.current(key, gen) {
		stale("follows", key)
		return nil
	}
	if err != nil {
		s.err = failed("follows", "intimate_status", err)
		return err
	}
	if st == "" {
		delete(s.intimate, target)
	} else {
		s.intimate[target] = st
	}
	return nil
}

func (s *FollowStore) FetchRequests(ctx context.Context) error {
	if !s.session.LoggedIn() {
		return s.deny("view follow requests")
	}
	s.mu.Lock()
	gen := s.gen.next("requests")
	s.loading = true
	s.err = ""
	s.mu.Unlock()

	reqs, err := s.api.IntimateRequests(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.gen.current("requests", gen) {
		stale("follows", "requests")
		return nil
	}
	s.loading = false
	if err != nil {
		s.err = failed("follows", "requests", err)
		return err
	}
	s.requests = reqs
	return nil
}

// Decide approves or rejects an incoming request and drops it from the list.
func (s *FollowStore) Decide(ctx context.Context, requestID string, approve bool) error {
	if !s.session.LoggedIn() {
		return s.deny("answer follow requests")
	}
	err := s.api.DecideIntimateRequest(ctx, requestID, approve)
	kind := "intimate_reject"
	if approve {
		kind = "intimate_approve"
	}
	s.rec.record(ctx, kind, requestID, err)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = failed("follows", kind, err)
		return err
	}
	s.err = ""
	s.requests = lo.Reject(s.requests, func(r model.IntimateFollowRequest, _ int) bool { return r.ID == requestID })
	return nil
}

func (s *FollowStore) deny(action string) error {
	err := auth.Required(action)
	s.mu.Lock()
	s.err = err.Error()
	s.mu.Unlock()
	return err
}
