package store

import (
	"context"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"eviltwitter/internal/apiclient"
	"eviltwitter/internal/auth"
	"eviltwitter/internal/graphql"
	"eviltwitter/internal/model"
	"eviltwitter/internal/thread"
)

const defaultCacheSize = 1024

// ThreadLimit is the page size used when fetching a thread.
const ThreadLimit = 50

type threadData struct {
	anchor  model.Tweet
	parents []model.Tweet
	replies []model.Tweet
}

// TweetStore holds the timeline, cached threads and an id index over both.
type TweetStore struct {
	mu            sync.RWMutex
	session       *auth.Session
	api           TweetAPI
	graph         GraphAPI
	graphThreads  bool
	rec           recorder
	feed          []model.Tweet
	threads       map[string]*threadData
	index         *lru.Cache[string, model.Tweet]
	loading       bool
	threadLoading map[string]bool
	err           string
	gen           generations
}

func newTweetStore(session *auth.Session, api TweetAPI, graph GraphAPI, size int, rec recorder) *TweetStore {
	if size <= 0 {
		size = defaultCacheSize
	}
	index, _ := lru.New[string, model.Tweet](size)
	return &TweetStore{
		session:       session,
		api:           api,
		graph:         graph,
		rec:           rec,
		threads:       make(map[string]*threadData),
		index:         index,
		threadLoading: make(map[string]bool),
		gen:           generations{},
	}
}

// Feed returns a copy of the timeline.
func (s *TweetStore) Feed() []model.Tweet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.feed)
}

func (s *TweetStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *TweetStore) ThreadLoading(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threadLoading[id]
}

func (s *TweetStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Get returns the most recently seen copy of a tweet.
func (s *TweetStore) Get(id string) (model.Tweet, bool) {
	return s.index.Get(id)
}

// Thread assembles the cached thread anchored at id.
func (s *TweetStore) Thread(id string) (thread.Thread, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, ok := s.threads[id]
	if !ok {
		return thread.Thread{}, false
	}
	return thread.Assemble(td.anchor, td.parents, td.replies), true
}

func (s *TweetStore) FetchTweets(ctx context.Context) error {
	s.mu.Lock()
	gen := s.gen.next("feed")
	s.loading = true
	s.err = ""
	s.mu.Unlock()

	tweets, err := s.api.ListTweets(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.gen.current("feed", gen) {
		stale("tweets", "feed")
		return nil
	}
	s.loading = false
	if err != nil {
		s.err = failed("tweets", "fetch", err)
		return err
	}
	s.feed = tweets
	s.indexAll(tweets)
	return nil
}

// FetchThread loads one tweet with its parents and replies. Over REST the
// anchor and replies are fetched concurrently and parents come from the
// anchor's embedded replied-to chain. Over GraphQL the server assembles all
// three in one call.
func (s *TweetStore) FetchThread(ctx context.Context, id string) error {
	kind := "thread:" + id
	s.mu.Lock()
	gen := s.gen.next(kind)
	s.threadLoading[id] = true
	s.err = ""
	s.mu.Unlock()

	var anchor model.Tweet
	var parents, replies []model.Tweet
	var err error
	if s.graphThreads {
		var th graphql.Thread
		th, err = s.graph.TweetThread(ctx, id)
		anchor, parents, replies = th.Tweet, th.Parents, th.Replies
	} else {
		anchor, replies, err = s.restThread(ctx, id)
		parents = parentChain(anchor)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.gen.current(kind, gen) {
		stale("tweets", "thread")
		return nil
	}
	delete(s.threadLoading, id)
	if err != nil {
		s.err = failed("tweets", "thread", err)
		return err
	}
	replies = lo.Filter(replies, func(t model.Tweet, _ int) bool { return t.ID != anchor.ID })
	td := &threadData{anchor: anchor, parents: parents, replies: replies}
	s.threads[id] = td
	s.index.Add(anchor.ID, anchor)
	s.indexAll(replies)
	return nil
}

func (s *TweetStore) restThread(ctx context.Context, id string) (model.Tweet, []model.Tweet, error) {
	var anchor model.Tweet
	var replies []model.Tweet
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		anchor, err = s.api.GetTweet(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		replies, err = s.api.Thread(gctx, id, ThreadLimit, 0)
		return err
	})
	err := g.Wait()
	return anchor, replies, err
}

// parentChain walks embedded replied-to tweets, root first.
func parentChain(t model.Tweet) []model.Tweet {
	var out []model.Tweet
	seen := map[string]bool{t.ID: true}
	for p := t.RepliedToTweet; p != nil && !seen[p.ID]; p = p.RepliedToTweet {
		seen[p.ID] = true
		out = append(out, *p)
	}
	slices.Reverse(out)
	return out
}

func (s *TweetStore) requireSession(action string) error {
	if s.session.LoggedIn() {
		return nil
	}
	err := auth.Required(action)
	s.mu.Lock()
	s.err = err.Error()
	s.mu.Unlock()
	return err
}

func (s *TweetStore) Create(ctx context.Context, content string) (model.Tweet, error) {
	if err := s.requireSession("post tweets"); err != nil {
		return model.Tweet{}, err
	}
	t, err := s.api.CreateTweet(ctx, content)
	s.rec.record(ctx, "tweet", "", err)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = failed("tweets", "create", err)
		return model.Tweet{}, err
	}
	s.err = ""
	s.prepend(t)
	return t, nil
}

// Reply posts a reply, prepends it to the feed, bumps the parent's reply
// counter and adds it to every cached thread containing the parent.
func (s *TweetStore) Reply(ctx context.Context, parentID, content string) (model.Tweet, error) {
	if err := s.requireSession("reply"); err != nil {
		return model.Tweet{}, err
	}
	t, err := s.api.Reply(ctx, parentID, content)
	s.rec.record(ctx, "reply", parentID, err)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = failed("tweets", "reply", err)
		return model.Tweet{}, err
	}
	s.err = ""
	if t.RepliedToTweetID == nil {
		t.RepliedToTweetID = &parentID
	}
	s.prepend(t)
	s.update(parentID, func(p *model.Tweet) { p.Metrics.Replies++ })
	for _, td := range s.threads {
		if td.anchor.ID == parentID || lo.ContainsBy(td.replies, func(r model.Tweet) bool { return r.ID == parentID }) {
			td.replies = append(td.replies, t)
		}
	}
	return t, nil
}

func (s *TweetStore) Quote(ctx context.Context, quotedID, content string) (model.Tweet, error) {
	if err := s.requireSession("quote tweets"); err != nil {
		return model.Tweet{}, err
	}
	t, err := s.api.Quote(ctx, quotedID, content)
	s.rec.record(ctx, "quote", quotedID, err)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = failed("tweets", "quote", err)
		return model.Tweet{}, err
	}
	s.err = ""
	s.prepend(t)
	s.update(quotedID, func(q *model.Tweet) {
		q.Metrics.Quotes++
		q.Viewer.IsQuoted = true
	})
	return t, nil
}

func (s *TweetStore) Retweet(ctx context.Context, id string) (model.Tweet, error) {
	if err := s.requireSession("retweet"); err != nil {
		return model.Tweet{}, err
	}
	t, err := s.api.Retweet(ctx, id)
	s.rec.record(ctx, "retweet", id, err)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = failed("tweets", "retweet", err)
		return model.Tweet{}, err
	}
	s.err = ""
	s.prepend(t)
	s.update(id, func(o *model.Tweet) {
		o.Metrics.Retweets++
		o.Viewer.IsRetweeted = true
	})
	return t, nil
}

// Like likes a tweet through GraphQL and adopts the returned like count.
func (s *TweetStore) Like(ctx context.Context, id string) error {
	if err := s.requireSession("like tweets"); err != nil {
		return err
	}
	if s.graph == nil {
		return ErrNoGraph
	}
	res, err := s.graph.LikeTweet(ctx, id)
	s.rec.record(ctx, "like", id, err)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = failed("tweets", "like", err)
		return err
	}
	s.err = ""
	s.update(id, func(t *model.Tweet) {
		t.Metrics.Likes = res.LikeCount
		t.Metrics.Smacks = res.SmackCount
		t.Viewer.IsLiked = res.LikedByViewer
		t.Energy.Energy = res.Energy
	})
	return nil
}

func (s *TweetStore) Smack(ctx context.Context, id string) (float64, error) {
	if err := s.requireSession("smack tweets"); err != nil {
		return 0, err
	}
	if s.graph == nil {
		return 0, ErrNoGraph
	}
	res, err := s.graph.SmackTweet(ctx, id)
	s.rec.record(ctx, "smack", id, err)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = failed("tweets", "smack", err)
		return 0, err
	}
	s.err = ""
	s.update(id, func(t *model.Tweet) {
		t.Metrics.Smacks++
		t.Energy.Energy = res.Energy
	})
	return res.TokensCharged, nil
}

// Attack spends a weapon against a tweet and stores the returned health.
func (s *TweetStore) Attack(ctx context.Context, id, weaponID string) (float64, error) {
	return s.healthAction(ctx, "attack", "attack tweets", id, weaponID, s.api.Attack)
}

func (s *TweetStore) Heal(ctx context.Context, id, weaponID string) (float64, error) {
	return s.healthAction(ctx, "heal", "heal tweets", id, weaponID, s.api.Heal)
}

func (s *TweetStore) healthAction(ctx context.Context, kind, action, id, weaponID string,
	call func(context.Context, string, string) (apiclient.HealthChange, error)) (float64, error) {
	if err := s.requireSession(action); err != nil {
		return 0, err
	}
	hc, err := call(ctx, id, weaponID)
	s.rec.record(ctx, kind, id, err)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = failed("tweets", kind, err)
		return 0, err
	}
	s.err = ""
	s.update(id, func(t *model.Tweet) {
		if hc.Tweet != nil {
			t.Health = hc.Tweet.Health
		}
		t.Health.Current = hc.HealthAfter
	})
	return hc.HealthAfter, nil
}

// prepend puts t at the head of the feed. Callers hold mu.
func (s *TweetStore) prepend(t model.Tweet) {
	if t.ID == "" {
		return
	}
	s.feed = append([]model.Tweet{t}, lo.Reject(s.feed, func(o model.Tweet, _ int) bool { return o.ID == t.ID })...)
	s.index.Add(t.ID, t)
}

// update applies fn to every cached copy of tweet id. Callers hold mu.
func (s *TweetStore) update(id string, fn func(*model.Tweet)) {
	apply := func(list []model.Tweet) {
		for i := range list {
			if list[i].ID == id {
				fn(&list[i])
			}
		}
	}
	apply(s.feed)
	for _, td := range s.threads {
		if td.anchor.ID == id {
			fn(&td.anchor)
		}
		apply(td.parents)
		apply(td.replies)
	}
	if t, ok := s.index.Get(id); ok {
		fn(&t)
		s.index.Add(id, t)
	}
}

func (s *TweetStore) indexAll(tweets []model.Tweet) {
	for _, t := range tweets {
		if t.ID != "" {
			s.index.Add(t.ID, t)
		}
	}
}
