package store

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"eviltwitter/internal/auth"
	"eviltwitter/internal/graphql"
	"eviltwitter/internal/grouping"
	"eviltwitter/internal/model"
)

// RewardStore holds claimable rewards and tips. Tips are kept as raw
// per-post rows plus the server's per-token totals; both views are
// refetched together after any claim.
type RewardStore struct {
	mu       sync.RWMutex
	session  *auth.Session
	graph    GraphAPI
	reg      grouping.Decimaler
	rec      recorder
	rewards  []model.ClaimableReward
	tips     []model.TipsByPost
	balances []model.TipBalance
	payments []model.ValidPayment
	loading  map[string]bool
	claiming string
	err      string
	gen      generations
}

func newRewardStore(session *auth.Session, graph GraphAPI, reg grouping.Decimaler, rec recorder) *RewardStore {
	return &RewardStore{
		session: session,
		graph:   graph,
		reg:     reg,
		rec:     rec,
		loading: make(map[string]bool),
		gen:     generations{},
	}
}

func (s *RewardStore) Rewards() []model.ClaimableReward {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.rewards)
}

// Groups returns rewards grouped by post with decimal totals.
func (s *RewardStore) Groups() []grouping.RewardGroup {
	return grouping.GroupRewards(s.Rewards(), s.reg)
}

func (s *RewardStore) Tips() []model.TipsByPost {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tips)
}

// TipsByToken sums unclaimed tips per token across posts.
func (s *RewardStore) TipsByToken() []model.TipBalance {
	return grouping.GroupTipsByToken(s.Tips())
}

// TipsByPost groups tip rows per post across tokens.
func (s *RewardStore) TipsByPost() []grouping.PostTips {
	return grouping.GroupTipsByPost(s.Tips())
}

// TipBalances is the server-computed per-token total.
func (s *RewardStore) TipBalances() []model.TipBalance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.balances)
}

func (s *RewardStore) ValidPayments() []model.ValidPayment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.payments)
}

func (s *RewardStore) Loading(kind string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading[kind]
}

// Claiming describes the claim in flight ("all", "all:<mint>" or "post:<id>").
func (s *RewardStore) Claiming() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claiming
}

func (s *RewardStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func guardedFetch[T any](ctx context.Context, s *RewardStore, kind string, call func(context.Context) (T, error), apply func(T)) error {
	if s.graph == nil {
		return ErrNoGraph
	}
	s.mu.Lock()
	gen := s.gen.next(kind)
	s.loading[kind] = true
	s.err = ""
	s.mu.Unlock()

	v, err := call(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.gen.current(kind, gen) {
		stale("rewards", kind)
		return nil
	}
	delete(s.loading, kind)
	if err != nil {
		s.err = failed("rewards", kind, err)
		return err
	}
	apply(v)
	return nil
}

func (s *RewardStore) FetchRewards(ctx context.Context) error {
	if s.graph == nil {
		return ErrNoGraph
	}
	return guardedFetch(ctx, s, "rewards", s.graph.ClaimableRewards, func(v []model.ClaimableReward) { s.rewards = v })
}

// FetchTips refreshes the per-post rows and the per-token totals together.
func (s *RewardStore) FetchTips(ctx context.Context) error {
	if s.graph == nil {
		return ErrNoGraph
	}
	var g errgroup.Group
	g.Go(func() error {
		return guardedFetch(ctx, s, "tips", s.graph.TipsByPost, func(v []model.TipsByPost) { s.tips = v })
	})
	g.Go(func() error {
		return guardedFetch(ctx, s, "tip_balances", s.graph.TipBalances, func(v []model.TipBalance) { s.balances = v })
	})
	return g.Wait()
}

// paymentLearner is a registry that adopts server-reported token decimals.
// *tokens.Registry satisfies it.
type paymentLearner interface {
	Learn(payments []model.ValidPayment)
}

// FetchValidPayments loads the tokens the backend accepts. When the registry
// can learn, it adopts their decimals so later amounts group correctly.
func (s *RewardStore) FetchValidPayments(ctx context.Context) error {
	if s.graph == nil {
		return ErrNoGraph
	}
	return guardedFetch(ctx, s, "payments", s.graph.ValidPayments, func(v []model.ValidPayment) {
		s.payments = v
		if l, ok := s.reg.(paymentLearner); ok {
			l.Learn(v)
		}
	})
}

func (s *RewardStore) beginClaim(action, label string) error {
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
	s.claiming = label
	s.err = ""
	s.mu.Unlock()
	return nil
}

func (s *RewardStore) endClaim(kind string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claiming = ""
	if err != nil {
		s.err = failed("rewards", kind, err)
	}
}

// ClaimTips claims all unclaimed tips in tokenMint, then refetches both tip views.
func (s *RewardStore) ClaimTips(ctx context.Context, tokenMint string) (graphql.ClaimResult, error) {
	label := "all"
	if tokenMint != "" {
		label += ":" + tokenMint
	}
	if err := s.beginClaim("claim tips", label); err != nil {
		return graphql.ClaimResult{}, err
	}
	res, err := s.graph.ClaimTips(ctx, tokenMint)
	s.rec.record(ctx, "claim_tips", tokenMint, err)
	s.endClaim("claim_tips", err)
	if err != nil {
		return graphql.ClaimResult{}, err
	}
	_ = s.FetchTips(ctx)
	return res, nil
}

// ClaimTipsByPost claims one post's tips, then refetches both tip views.
func (s *RewardStore) ClaimTipsByPost(ctx context.Context, postID, tokenMint string) (string, error) {
	if err := s.beginClaim("claim tips", "post:"+postID); err != nil {
		return "", err
	}
	sig, err := s.graph.ClaimTipsByPost(ctx, postID, tokenMint)
	s.rec.record(ctx, "claim_tips_by_post", postID, err)
	s.endClaim("claim_tips_by_post", err)
	if err != nil {
		return "", err
	}
	_ = s.FetchTips(ctx)
	return sig, nil
}
