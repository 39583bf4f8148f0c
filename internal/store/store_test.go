package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eviltwitter/internal/apiclient"
	"eviltwitter/internal/auth"
	"eviltwitter/internal/graphql"
	"eviltwitter/internal/grouping"
	"eviltwitter/internal/journal"
	"eviltwitter/internal/model"
)

// fakeAPI implements every REST interface. Hooks left nil return zero values.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int

	listTweets func(context.Context) ([]model.Tweet, error)
	getTweet   func(string) (model.Tweet, error)
	thread     func(string) ([]model.Tweet, error)
	reply      func(parentID, content string) (model.Tweet, error)
	follow     func(target string) (bool, error)
	unfollow   func(target string) (bool, error)
	status     func(target string) (bool, error)
	getUser    func(id string) (model.User, error)
	purchase   func(itemID string) error
}

func newFakeAPI() *fakeAPI { return &fakeAPI{calls: make(map[string]int)} }

func (f *fakeAPI) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeAPI) ListTweets(ctx context.Context) ([]model.Tweet, error) {
	f.hit("ListTweets")
	if f.listTweets != nil {
		return f.listTweets(ctx)
	}
	return nil, nil
}

func (f *fakeAPI) GetTweet(_ context.Context, id string) (model.Tweet, error) {
	f.hit("GetTweet")
	if f.getTweet != nil {
		return f.getTweet(id)
	}
	return model.Tweet{ID: id}, nil
}

func (f *fakeAPI) Thread(_ context.Context, id string, _, _ int) ([]model.Tweet, error) {
	f.hit("Thread")
	if f.thread != nil {
		return f.thread(id)
	}
	return nil, nil
}

func (f *fakeAPI) CreateTweet(_ context.Context, content string) (model.Tweet, error) {
	f.hit("CreateTweet")
	return model.Tweet{ID: "new", Content: content}, nil
}

func (f *fakeAPI) Reply(_ context.Context, parentID, content string) (model.Tweet, error) {
	f.hit("Reply")
	if f.reply != nil {
		return f.reply(parentID, content)
	}
	return model.Tweet{ID: "r-" + parentID, Content: content, Type: model.TweetReply}, nil
}

func (f *fakeAPI) Quote(_ context.Context, quotedID, content string) (model.Tweet, error) {
	f.hit("Quote")
	return model.Tweet{ID: "q-" + quotedID, Content: content, Type: model.TweetQuote, QuotedTweetID: &quotedID}, nil
}

func (f *fakeAPI) Retweet(_ context.Context, id string) (model.Tweet, error) {
	f.hit("Retweet")
	return model.Tweet{ID: "rt-" + id, Type: model.TweetRetweet}, nil
}

func (f *fakeAPI) Attack(_ context.Context, id, _ string) (apiclient.HealthChange, error) {
	f.hit("Attack")
	return apiclient.HealthChange{TweetID: id, HealthBefore: 100, HealthAfter: 80}, nil
}

func (f *fakeAPI) Heal(_ context.Context, id, _ string) (apiclient.HealthChange, error) {
	f.hit("Heal")
	return apiclient.HealthChange{TweetID: id, HealthBefore: 80, HealthAfter: 90}, nil
}

func (f *fakeAPI) GetUser(_ context.Context, id string) (model.User, error) {
	f.hit("GetUser")
	if f.getUser != nil {
		return f.getUser(id)
	}
	return model.User{ID: id, Username: "user-" + id}, nil
}

func (f *fakeAPI) UserByAuthID(_ context.Context, authID string) (model.User, error) {
	f.hit("UserByAuthID")
	return model.User{ID: "backend-" + authID, AuthID: authID}, nil
}

func (f *fakeAPI) CreateUser(_ context.Context, u apiclient.NewUser) (model.User, error) {
	f.hit("CreateUser")
	return model.User{ID: "created", Username: u.Username}, nil
}

func (f *fakeAPI) Followers(context.Context, string) ([]model.User, error) {
	f.hit("Followers")
	return []model.User{{ID: "a"}}, nil
}

func (f *fakeAPI) Following(context.Context, string) ([]model.User, error) {
	f.hit("Following")
	return []model.User{{ID: "b"}, {ID: "c"}}, nil
}

func (f *fakeAPI) Follow(_ context.Context, target string) (bool, error) {
	f.hit("Follow")
	if f.follow != nil {
		return f.follow(target)
	}
	return true, nil
}

func (f *fakeAPI) Unfollow(_ context.Context, target string) (bool, error) {
	f.hit("Unfollow")
	if f.unfollow != nil {
		return f.unfollow(target)
	}
	return false, nil
}

func (f *fakeAPI) FollowStatus(_ context.Context, target, _ string) (bool, error) {
	f.hit("FollowStatus")
	if f.status != nil {
		return f.status(target)
	}
	return true, nil
}

func (f *fakeAPI) RequestIntimateFollow(_ context.Context, target string) (model.IntimateFollowRequest, error) {
	f.hit("RequestIntimateFollow")
	return model.IntimateFollowRequest{ID: "req1", TargetID: target, Status: model.IntimatePending}, nil
}

func (f *fakeAPI) IntimateRequests(context.Context) ([]model.IntimateFollowRequest, error) {
	f.hit("IntimateRequests")
	return []model.IntimateFollowRequest{{ID: "req1"}, {ID: "req2"}}, nil
}

func (f *fakeAPI) DecideIntimateRequest(context.Context, string, bool) error {
	f.hit("DecideIntimateRequest")
	return nil
}

func (f *fakeAPI) IntimateStatus(context.Context, string) (model.IntimateFollowStatus, error) {
	f.hit("IntimateStatus")
	return model.IntimateApproved, nil
}

func (f *fakeAPI) Balances(context.Context, string) ([]model.TokenBalance, error) {
	f.hit("Balances")
	return []model.TokenBalance{{TokenSymbol: "EVL", Available: 10}}, nil
}

func (f *fakeAPI) Assets(context.Context, string) ([]model.UserAsset, error) {
	f.hit("Assets")
	return []model.UserAsset{
		{ID: "a1", Tradeable: true, Status: model.ListingStatusActive},
		{ID: "a2", Tradeable: true, IsLocked: true, Status: model.ListingStatusActive},
	}, nil
}

func (f *fakeAPI) ShopItems(context.Context) ([]model.ShopItem, error) {
	f.hit("ShopItems")
	return []model.ShopItem{{ID: "item1", IsActive: true}}, nil
}

func (f *fakeAPI) Listings(context.Context) ([]model.MarketplaceListing, error) {
	f.hit("Listings")
	return []model.MarketplaceListing{{ID: "l1", SellerID: "me"}, {ID: "l2", SellerID: "other"}}, nil
}

func (f *fakeAPI) PurchaseItem(_ context.Context, itemID string) error {
	f.hit("PurchaseItem")
	if f.purchase != nil {
		return f.purchase(itemID)
	}
	return nil
}

func (f *fakeAPI) CreateListing(_ context.Context, req grouping.ListingRequest) (model.MarketplaceListing, error) {
	f.hit("CreateListing")
	return model.MarketplaceListing{ID: "l3", AssetID: req.AssetID, PriceToken: req.PriceToken}, nil
}

func (f *fakeAPI) BuyListing(context.Context, string) error {
	f.hit("BuyListing")
	return nil
}

func (f *fakeAPI) CancelListing(context.Context, string) error {
	f.hit("CancelListing")
	return nil
}

func (f *fakeAPI) WeaponCatalog(context.Context) ([]model.CatalogItem, error) {
	f.hit("WeaponCatalog")
	return []model.CatalogItem{{ID: "sword", Damage: 5}}, nil
}

func (f *fakeAPI) UserWeapons(context.Context, string) ([]model.Weapon, error) {
	f.hit("UserWeapons")
	return nil, nil
}

func (f *fakeAPI) BuyWeapon(_ context.Context, catalogID string) (model.Weapon, error) {
	f.hit("BuyWeapon")
	return model.Weapon{ID: "w-" + catalogID, Name: catalogID}, nil
}

// fakeGraph implements GraphAPI. Its REST half is the embedded fakeAPI; the
// GraphQL twins of REST calls count as "graph.<Name>".
type fakeGraph struct {
	fakeAPI
	tips        []model.TipsByPost
	tweetThread func(id string) (graphql.Thread, error)
	userInput   graphql.UserInput
	settingsErr error
	mint        string
	language    string
}

func (g *fakeGraph) TweetThread(_ context.Context, id string) (graphql.Thread, error) {
	g.hit("TweetThread")
	if g.tweetThread != nil {
		return g.tweetThread(id)
	}
	return graphql.Thread{Tweet: model.Tweet{ID: id}}, nil
}

func (g *fakeGraph) CreateTweet(_ context.Context, content string) (model.Tweet, error) {
	g.hit("graph.CreateTweet")
	return model.Tweet{ID: "g-new", Content: content}, nil
}

func (g *fakeGraph) ReplyTweet(_ context.Context, parentID, content string) (model.Tweet, error) {
	g.hit("graph.ReplyTweet")
	return model.Tweet{ID: "g-r-" + parentID, Content: content, Type: model.TweetReply}, nil
}

func (g *fakeGraph) QuoteTweet(_ context.Context, quotedID, content string) (model.Tweet, error) {
	g.hit("graph.QuoteTweet")
	return model.Tweet{ID: "g-q-" + quotedID, Content: content, Type: model.TweetQuote}, nil
}

func (g *fakeGraph) Retweet(_ context.Context, id string) (model.Tweet, error) {
	g.hit("graph.Retweet")
	return model.Tweet{ID: "g-rt-" + id, Type: model.TweetRetweet}, nil
}

func (g *fakeGraph) CreateUser(_ context.Context, in graphql.UserInput) (model.User, error) {
	g.hit("graph.CreateUser")
	g.mu.Lock()
	g.userInput = in
	g.mu.Unlock()
	return model.User{ID: "g-created", Username: in.Username}, nil
}

func (g *fakeGraph) FollowUser(context.Context, string) (bool, error) {
	g.hit("graph.FollowUser")
	return true, nil
}

func (g *fakeGraph) UnfollowUser(context.Context, string) (bool, error) {
	g.hit("graph.UnfollowUser")
	return false, nil
}

func (g *fakeGraph) UpdateDefaultPaymentToken(_ context.Context, mint string) error {
	g.hit("UpdateDefaultPaymentToken")
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.settingsErr != nil {
		return g.settingsErr
	}
	g.mint = mint
	return nil
}

func (g *fakeGraph) UpdateLanguage(_ context.Context, language string) error {
	g.hit("UpdateLanguage")
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.settingsErr != nil {
		return g.settingsErr
	}
	g.language = language
	return nil
}

func (g *fakeGraph) Profile(_ context.Context, userID, _ string, _ int) (graphql.Profile, error) {
	g.hit("Profile")
	return graphql.Profile{User: model.User{ID: userID}, IsFollowedBy: true}, nil
}

func (g *fakeGraph) LikeTweet(context.Context, string) (graphql.LikeResult, error) {
	g.hit("LikeTweet")
	return graphql.LikeResult{LikeCount: 7, LikedByViewer: true}, nil
}

func (g *fakeGraph) SmackTweet(context.Context, string) (graphql.SmackResult, error) {
	g.hit("SmackTweet")
	return graphql.SmackResult{TokensCharged: 1.5}, nil
}

func (g *fakeGraph) ClaimableRewards(context.Context) ([]model.ClaimableReward, error) {
	g.hit("ClaimableRewards")
	return []model.ClaimableReward{
		{TweetID: "t1", PostIDHash: "h1", TokenMint: "m1", Amount: "1500000"},
		{TweetID: "t1", PostIDHash: "h1", TokenMint: "m1", Amount: "500000"},
	}, nil
}

func (g *fakeGraph) TipsByPost(context.Context) ([]model.TipsByPost, error) {
	g.hit("TipsByPost")
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]model.TipsByPost(nil), g.tips...), nil
}

func (g *fakeGraph) TipBalances(context.Context) ([]model.TipBalance, error) {
	g.hit("TipBalances")
	return []model.TipBalance{{TokenMint: "m1", Amount: 3}}, nil
}

func (g *fakeGraph) ValidPayments(context.Context) ([]model.ValidPayment, error) {
	g.hit("ValidPayments")
	return []model.ValidPayment{
		{TokenMint: "m1", Symbol: "EVL", Decimals: 6, Enabled: true},
		{TokenMint: "m2", Symbol: "USD", Decimals: 2, Enabled: true},
	}, nil
}

func (g *fakeGraph) ClaimTips(_ context.Context, mint string) (graphql.ClaimResult, error) {
	g.hit("ClaimTips")
	g.mu.Lock()
	g.tips = nil
	g.mu.Unlock()
	return graphql.ClaimResult{Signature: "sig", AmountClaimed: 3}, nil
}

func (g *fakeGraph) ClaimTipsByPost(_ context.Context, postID, _ string) (string, error) {
	g.hit("ClaimTipsByPost")
	return "sig-" + postID, nil
}

type fakeJournal struct {
	mu      sync.Mutex
	actions []journal.Action
}

func (j *fakeJournal) PutAction(_ context.Context, a journal.Action) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.actions = append(j.actions, a)
	return nil
}

type registry map[string]int

func (r registry) Decimals(mint string) int {
	if d, ok := r[mint]; ok {
		return d
	}
	return 9
}

func (r registry) Learn(payments []model.ValidPayment) {
	for _, p := range payments {
		r[p.TokenMint] = p.Decimals
	}
}

func newApp(t *testing.T, loggedIn bool) (*App, *fakeGraph, *fakeJournal) {
	t.Helper()
	return newAppWith(t, loggedIn, nil)
}

// newAppWith builds an App over one fakeGraph. edit may adjust Deps first.
func newAppWith(t *testing.T, loggedIn bool, edit func(*Deps)) (*App, *fakeGraph, *fakeJournal) {
	t.Helper()
	s := &auth.Session{}
	if loggedIn {
		require.NoError(t, s.Set("opaque-token", "me"))
	}
	g := &fakeGraph{fakeAPI: fakeAPI{calls: make(map[string]int)}}
	j := &fakeJournal{}
	rest := &g.fakeAPI
	d := Deps{
		Session:  s,
		Tweets:   rest,
		Users:    rest,
		Follows:  rest,
		Economy:  rest,
		Weapons:  rest,
		Graph:    g,
		Registry: registry{"m1": 6},
		Journal:  j,
	}
	if edit != nil {
		edit(&d)
	}
	return New(d), g, j
}

func TestLoggedOutActionsMakeNoCalls(t *testing.T) {
	app, g, j := newApp(t, false)
	ctx := context.Background()

	_, err := app.Tweets.Create(ctx, "hi")
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
	assert.Equal(t, "You must be logged in to post tweets.", app.Tweets.Err())

	err = app.Follows.Follow(ctx, "u2")
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
	assert.False(t, app.Follows.IsFollowing("u2"))

	err = app.Economy.Purchase(ctx, "item1")
	assert.Equal(t, "You must be logged in to purchase items.", err.Error())

	_, err = app.Economy.List(ctx, grouping.ListingForm{AssetID: "a1", PriceAmount: "5"})
	assert.Equal(t, "You must be logged in to list assets.", app.Economy.MarketErr())
	assert.Error(t, err)

	_, err = app.Rewards.ClaimTips(ctx, "")
	assert.Equal(t, "You must be logged in to claim tips.", app.Rewards.Err())
	assert.Error(t, err)

	_, err = app.Weapons.Buy(ctx, "sword")
	assert.Error(t, err)

	assert.Zero(t, g.total())
	assert.Empty(t, j.actions)
}

func TestFollowRollsBackOnFailure(t *testing.T) {
	app, g, j := newApp(t, true)
	g.follow = func(target string) (bool, error) {
		assert.True(t, app.Follows.IsFollowing(target), "flag flips before the call returns")
		assert.True(t, app.Follows.Pending(target))
		return false, &apiclient.Error{StatusCode: 500, Message: "boom"}
	}

	err := app.Follows.Follow(context.Background(), "u2")
	require.Error(t, err)
	assert.False(t, app.Follows.IsFollowing("u2"))
	assert.False(t, app.Follows.Pending("u2"))
	assert.Equal(t, "boom", app.Follows.Err())

	require.Len(t, j.actions, 1)
	assert.Equal(t, "follow", j.actions[0].Kind)
	assert.False(t, j.actions[0].OK)
	assert.Equal(t, "boom", j.actions[0].Message)
}

func TestOverlappingFollowFailuresRestoreServerState(t *testing.T) {
	app, g, _ := newApp(t, true)
	ctx := context.Background()
	g.unfollow = func(string) (bool, error) {
		return true, &apiclient.Error{StatusCode: 500, Message: "unfollow failed"}
	}
	g.follow = func(target string) (bool, error) {
		// an unfollow starts and fails while the follow is still in flight
		require.Error(t, app.Follows.Unfollow(ctx, target))
		assert.False(t, app.Follows.IsFollowing(target), "reverted to the confirmed state, not the optimistic follow")
		return false, &apiclient.Error{StatusCode: 500, Message: "follow failed"}
	}

	require.Error(t, app.Follows.Follow(ctx, "u2"))
	assert.False(t, app.Follows.IsFollowing("u2"))
	assert.False(t, app.Follows.Pending("u2"))
	assert.Equal(t, "unfollow failed", app.Follows.Err())

	// a confirmed follow survives a failed unfollow
	app.Follows.Seed(map[string]bool{"u3": true})
	require.Error(t, app.Follows.Unfollow(ctx, "u3"))
	assert.True(t, app.Follows.IsFollowing("u3"))
}

func TestFollowStatusIgnoredWhileFollowPending(t *testing.T) {
	app, g, _ := newApp(t, true)
	ctx := context.Background()
	g.status = func(string) (bool, error) { return false, nil }
	g.follow = func(target string) (bool, error) {
		got, err := app.Follows.CheckStatus(ctx, target)
		require.NoError(t, err)
		assert.True(t, got, "in-flight follow wins over the status read")
		return true, nil
	}

	require.NoError(t, app.Follows.Follow(ctx, "u2"))
	assert.True(t, app.Follows.IsFollowing("u2"))
	assert.Equal(t, 1, g.count("FollowStatus"))

	// nothing in flight, so the server answer is adopted
	got, err := app.Follows.CheckStatus(ctx, "u2")
	require.NoError(t, err)
	assert.False(t, got)
	assert.False(t, app.Follows.IsFollowing("u2"))
}

func TestFollowStatusAppliesAndNeedsUser(t *testing.T) {
	app, g, _ := newApp(t, true)
	got, err := app.Follows.CheckStatus(context.Background(), "u2")
	require.NoError(t, err)
	assert.True(t, got)
	assert.True(t, app.Follows.IsFollowing("u2"))

	g.status = func(string) (bool, error) { return false, &apiclient.Error{StatusCode: 502, Message: "bad gateway"} }
	_, err = app.Follows.CheckStatus(context.Background(), "u2")
	require.Error(t, err)
	assert.True(t, app.Follows.IsFollowing("u2"), "a failed read keeps the known state")
	assert.Equal(t, "bad gateway", app.Follows.Err())

	out, og, _ := newApp(t, false)
	got, err = out.Follows.CheckStatus(context.Background(), "u2")
	require.NoError(t, err)
	assert.False(t, got)
	assert.Zero(t, og.count("FollowStatus"))
}

func TestFollowToggleAdoptsServerState(t *testing.T) {
	app, _, j := newApp(t, true)
	ctx := context.Background()

	require.NoError(t, app.Follows.Toggle(ctx, "u2"))
	assert.True(t, app.Follows.IsFollowing("u2"))
	require.NoError(t, app.Follows.Toggle(ctx, "u2"))
	assert.False(t, app.Follows.IsFollowing("u2"))
	assert.Empty(t, app.Follows.Err())

	require.Len(t, j.actions, 2)
	assert.Equal(t, "unfollow", j.actions[1].Kind)
	assert.True(t, j.actions[1].OK)
}

func TestStaleFeedResponseIsDiscarded(t *testing.T) {
	app, g, _ := newApp(t, true)
	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	n := 0
	g.listTweets = func(context.Context) ([]model.Tweet, error) {
		mu.Lock()
		n++
		first := n == 1
		mu.Unlock()
		if first {
			close(started)
			<-release
			return []model.Tweet{{ID: "old"}}, nil
		}
		return []model.Tweet{{ID: "fresh"}}, nil
	}

	done := make(chan error, 1)
	go func() { done <- app.Tweets.FetchTweets(context.Background()) }()
	<-started
	require.NoError(t, app.Tweets.FetchTweets(context.Background()))
	close(release)
	require.NoError(t, <-done)

	feed := app.Tweets.Feed()
	require.Len(t, feed, 1)
	assert.Equal(t, "fresh", feed[0].ID)
	assert.False(t, app.Tweets.Loading())
}

func TestFetchFailureKeepsPreviousData(t *testing.T) {
	app, g, _ := newApp(t, true)
	g.listTweets = func(context.Context) ([]model.Tweet, error) {
		return []model.Tweet{{ID: "t1"}}, nil
	}
	require.NoError(t, app.Tweets.FetchTweets(context.Background()))

	g.listTweets = func(context.Context) ([]model.Tweet, error) {
		return nil, &apiclient.Error{StatusCode: 503, Message: "Service Unavailable"}
	}
	require.Error(t, app.Tweets.FetchTweets(context.Background()))
	assert.Equal(t, "Service Unavailable", app.Tweets.Err())
	assert.Len(t, app.Tweets.Feed(), 1)
}

func TestReplyBumpsCountersInFeedAndThread(t *testing.T) {
	app, g, _ := newApp(t, true)
	ctx := context.Background()
	g.listTweets = func(context.Context) ([]model.Tweet, error) {
		return []model.Tweet{{ID: "p", Metrics: model.TweetMetrics{Replies: 2, Quotes: 1}}}, nil
	}
	g.getTweet = func(id string) (model.Tweet, error) {
		return model.Tweet{ID: id, Metrics: model.TweetMetrics{Replies: 2, Quotes: 1}}, nil
	}
	require.NoError(t, app.Tweets.FetchTweets(ctx))
	require.NoError(t, app.Tweets.FetchThread(ctx, "p"))

	r, err := app.Tweets.Reply(ctx, "p", "first")
	require.NoError(t, err)
	assert.Equal(t, "p", r.ParentID())

	feed := app.Tweets.Feed()
	require.Len(t, feed, 2)
	assert.Equal(t, r.ID, feed[0].ID)
	assert.Equal(t, 3, feed[1].Metrics.Replies)

	th, ok := app.Tweets.Thread("p")
	require.True(t, ok)
	assert.Equal(t, 3, th.Anchor.Metrics.Replies)
	assert.Equal(t, 1, th.Count())
	assert.NotNil(t, th.Find(r.ID))

	_, err = app.Tweets.Quote(ctx, "p", "look")
	require.NoError(t, err)
	_, err = app.Tweets.Retweet(ctx, "p")
	require.NoError(t, err)

	cached, ok := app.Tweets.Get("p")
	require.True(t, ok)
	assert.Equal(t, 3, cached.Metrics.Replies)
	assert.Equal(t, 2, cached.Metrics.Quotes)
	assert.Equal(t, 1, cached.Metrics.Retweets)
	assert.True(t, cached.Viewer.IsQuoted)
	assert.True(t, cached.Viewer.IsRetweeted)
}

func TestThreadParentsFromEmbeddedChain(t *testing.T) {
	app, g, _ := newApp(t, true)
	root := &model.Tweet{ID: "root"}
	mid := &model.Tweet{ID: "mid", RepliedToTweet: root}
	g.getTweet = func(id string) (model.Tweet, error) {
		return model.Tweet{ID: id, RepliedToTweet: mid}, nil
	}
	g.thread = func(id string) ([]model.Tweet, error) {
		pid := id
		return []model.Tweet{{ID: id}, {ID: "c1", RepliedToTweetID: &pid}}, nil
	}
	require.NoError(t, app.Tweets.FetchThread(context.Background(), "leaf"))

	th, ok := app.Tweets.Thread("leaf")
	require.True(t, ok)
	require.Len(t, th.Parents, 2)
	assert.Equal(t, "root", th.Parents[0].ID)
	assert.Equal(t, "mid", th.Parents[1].ID)
	assert.Equal(t, 1, th.Count())
	assert.False(t, app.Tweets.ThreadLoading("leaf"))
}

func TestLikeAndHealthUpdateCachedTweet(t *testing.T) {
	app, g, _ := newApp(t, true)
	ctx := context.Background()
	g.listTweets = func(context.Context) ([]model.Tweet, error) {
		return []model.Tweet{{ID: "t1", Health: model.Health{Current: 100, Max: 100}}}, nil
	}
	require.NoError(t, app.Tweets.FetchTweets(ctx))

	require.NoError(t, app.Tweets.Like(ctx, "t1"))
	hp, err := app.Tweets.Attack(ctx, "t1", "sword")
	require.NoError(t, err)
	assert.InDelta(t, 80, hp, 0.001)

	got := app.Tweets.Feed()[0]
	assert.Equal(t, 7, got.Metrics.Likes)
	assert.True(t, got.Viewer.IsLiked)
	assert.InDelta(t, 80, got.Health.Current, 0.001)
}

func TestPurchaseRefreshesEconomyViews(t *testing.T) {
	app, g, j := newApp(t, true)
	require.NoError(t, app.Economy.Purchase(context.Background(), "item1"))

	assert.Equal(t, 1, g.count("PurchaseItem"))
	assert.Equal(t, 1, g.count("Balances"))
	assert.Equal(t, 1, g.count("Assets"))
	assert.Equal(t, 1, g.count("ShopItems"))
	assert.Zero(t, g.count("Listings"))
	assert.Len(t, app.Economy.Balances(), 1)
	assert.Empty(t, app.Economy.Action().PurchasingItem)

	require.Len(t, j.actions, 1)
	assert.Equal(t, "purchase", j.actions[0].Kind)
	assert.Equal(t, "item1", j.actions[0].Target)
}

func TestPurchaseFailureSkipsRefresh(t *testing.T) {
	app, g, _ := newApp(t, true)
	g.purchase = func(string) error { return errors.New("Insufficient balance") }

	require.Error(t, app.Economy.Purchase(context.Background(), "item1"))
	assert.Equal(t, "Insufficient balance", app.Economy.Err())
	assert.Zero(t, g.count("Balances"))
}

func TestListValidationLeavesStateUntouched(t *testing.T) {
	app, g, _ := newApp(t, true)
	ctx := context.Background()

	_, err := app.Economy.List(ctx, grouping.ListingForm{AssetID: "a1", PriceAmount: "abc"})
	var fe *grouping.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "PriceAmount", fe.Field)
	assert.Zero(t, g.count("CreateListing"))
	assert.Empty(t, app.Economy.MarketErr())
	assert.False(t, app.Economy.Action().ListingAsset)

	app.Economy.SelectToken(" sol ")
	l, err := app.Economy.List(ctx, grouping.ListingForm{AssetID: "a1", PriceAmount: "2.5"})
	require.NoError(t, err)
	assert.Equal(t, "SOL", l.PriceToken)
	assert.Equal(t, 1, g.count("Listings"))
	assert.Len(t, app.Economy.MyListings(), 1)
	assert.Len(t, app.Economy.ListableAssets(), 1)
}

func TestRefreshAllLoadsEveryView(t *testing.T) {
	app, _, _ := newApp(t, true)
	require.NoError(t, app.Economy.RefreshAll(context.Background()))
	assert.Len(t, app.Economy.Shop(), 1)
	assert.Len(t, app.Economy.Listings(), 2)
	assert.Len(t, app.Economy.Assets(), 2)
	assert.False(t, app.Economy.Loading("listings"))
	assert.Equal(t, DefaultToken, app.Economy.SelectedToken())
}

func TestClaimRefetchesBothTipViews(t *testing.T) {
	app, g, j := newApp(t, true)
	ctx := context.Background()
	g.tips = []model.TipsByPost{
		{PostID: "p1", TokenMint: "m1", TotalAmount: 2},
		{PostID: "p2", TokenMint: "m1", TotalAmount: 1},
	}
	require.NoError(t, app.Rewards.FetchTips(ctx))
	require.Len(t, app.Rewards.TipsByToken(), 1)
	assert.InDelta(t, 3, app.Rewards.TipsByToken()[0].Amount, 0.001)
	assert.Len(t, app.Rewards.TipsByPost(), 2)

	res, err := app.Rewards.ClaimTips(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "sig", res.Signature)
	assert.Equal(t, 2, g.count("TipsByPost"))
	assert.Equal(t, 2, g.count("TipBalances"))
	assert.Empty(t, app.Rewards.Tips())
	assert.Len(t, app.Rewards.TipBalances(), 1)
	assert.Empty(t, app.Rewards.Claiming())

	sig, err := app.Rewards.ClaimTipsByPost(ctx, "p1", "")
	require.NoError(t, err)
	assert.Equal(t, "sig-p1", sig)
	assert.Equal(t, 3, g.count("TipsByPost"))

	require.Len(t, j.actions, 2)
	assert.Equal(t, "claim_tips", j.actions[0].Kind)
	assert.Equal(t, "claim_tips_by_post", j.actions[1].Kind)
}

func TestRewardGroupsUseRegistry(t *testing.T) {
	app, _, _ := newApp(t, true)
	require.NoError(t, app.Rewards.FetchRewards(context.Background()))
	groups := app.Rewards.Groups()
	require.Len(t, groups, 1)
	assert.Equal(t, "2", groups[0].TotalByMint(registry{"m1": 6})["m1"].String())
}

func TestRewardsWithoutGraph(t *testing.T) {
	s := &auth.Session{}
	require.NoError(t, s.Set("tok", "me"))
	app := New(Deps{Session: s, Tweets: newFakeAPI()})
	assert.ErrorIs(t, app.Rewards.FetchTips(context.Background()), ErrNoGraph)
	_, err := app.Rewards.ClaimTips(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoGraph)
	assert.ErrorIs(t, app.Tweets.Like(context.Background(), "t1"), ErrNoGraph)
}

func TestLoginResolvesUser(t *testing.T) {
	app, g, _ := newApp(t, false)
	require.NoError(t, app.Auth.Login(context.Background(), "opaque", "65f0"))
	u, ok := app.Auth.User()
	require.True(t, ok)
	assert.Equal(t, "65f0", u.ID)
	assert.Equal(t, 1, g.count("GetUser"))

	app.Auth.Logout()
	_, ok = app.Auth.User()
	assert.False(t, ok)
	assert.False(t, app.Auth.LoggedIn())

	_, err := app.Auth.Register(context.Background(), apiclient.NewUser{Username: "evil"})
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
	assert.Zero(t, g.count("CreateUser"))
}

func TestRegisterAdoptsBackendID(t *testing.T) {
	app, g, _ := newApp(t, true)
	u, err := app.Auth.Register(context.Background(), apiclient.NewUser{Username: "evil"})
	require.NoError(t, err)
	assert.Equal(t, "created", u.ID)
	assert.Equal(t, "created", app.Auth.Session().UserID())
	assert.Equal(t, 1, g.count("CreateUser"))
}

func TestProfileAndIntimateFollows(t *testing.T) {
	app, _, _ := newApp(t, true)
	ctx := context.Background()

	require.NoError(t, app.Users.FetchProfile(ctx, "u2"))
	p, ok := app.Users.Profile("u2")
	require.True(t, ok)
	assert.True(t, p.IsFollowedBy)
	require.NoError(t, app.Users.FetchFollowing(ctx, "u2"))
	assert.Len(t, app.Users.Following("u2"), 2)

	require.NoError(t, app.Follows.RequestIntimate(ctx, "u2"))
	assert.Equal(t, model.IntimatePending, app.Follows.IntimateStatus("u2"))
	require.NoError(t, app.Follows.FetchIntimateStatus(ctx, "u2"))
	assert.Equal(t, model.IntimateApproved, app.Follows.IntimateStatus("u2"))

	require.NoError(t, app.Follows.FetchRequests(ctx))
	require.NoError(t, app.Follows.Decide(ctx, "req1", true))
	reqs := app.Follows.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "req2", reqs[0].ID)
}

func TestBuyWeaponAppendsOwned(t *testing.T) {
	app, _, _ := newApp(t, true)
	ctx := context.Background()
	require.NoError(t, app.Weapons.FetchCatalog(ctx))
	assert.Len(t, app.Weapons.Catalog(), 1)

	w, err := app.Weapons.Buy(ctx, "sword")
	require.NoError(t, err)
	assert.Equal(t, "w-sword", w.ID)
	assert.Len(t, app.Weapons.Owned(), 1)
	assert.Empty(t, app.Weapons.Buying())
}

func TestValidPaymentsTeachRegistry(t *testing.T) {
	reg := registry{"m1": 9}
	app, g, _ := newAppWith(t, true, func(d *Deps) { d.Registry = reg })
	require.NoError(t, app.Rewards.FetchValidPayments(context.Background()))

	assert.Equal(t, 1, g.count("ValidPayments"))
	assert.Len(t, app.Rewards.ValidPayments(), 2)
	assert.Equal(t, 6, reg.Decimals("m1"))
	assert.Equal(t, 2, reg.Decimals("m2"))
	assert.False(t, app.Rewards.Loading("payments"))

	require.NoError(t, app.Rewards.FetchRewards(context.Background()))
	groups := app.Rewards.Groups()
	require.Len(t, groups, 1)
	assert.Equal(t, "2", groups[0].TotalByMint(reg)["m1"].String())
}

func TestWebVariantSendsMutationsOverGraphQL(t *testing.T) {
	app, g, _ := newAppWith(t, true, func(d *Deps) { d.Web = true })
	ctx := context.Background()

	tw, err := app.Tweets.Create(ctx, "hi")
	require.NoError(t, err)
	assert.Equal(t, "g-new", tw.ID)
	r, err := app.Tweets.Reply(ctx, "p1", "re")
	require.NoError(t, err)
	require.NotNil(t, r.RepliedToTweetID)
	assert.Equal(t, "p1", *r.RepliedToTweetID)
	_, err = app.Tweets.Quote(ctx, "q1", "look")
	require.NoError(t, err)
	_, err = app.Tweets.Retweet(ctx, "t1")
	require.NoError(t, err)
	require.NoError(t, app.Follows.Follow(ctx, "u2"))
	assert.True(t, app.Follows.IsFollowing("u2"))
	require.NoError(t, app.Follows.Unfollow(ctx, "u2"))
	assert.False(t, app.Follows.IsFollowing("u2"))
	u, err := app.Auth.Register(ctx, apiclient.NewUser{AuthID: "did:privy:abc", Username: "evil"})
	require.NoError(t, err)
	assert.Equal(t, "g-created", u.ID)

	for _, name := range []string{"CreateTweet", "Reply", "Quote", "Retweet", "Follow", "Unfollow", "CreateUser"} {
		assert.Zero(t, g.count(name), name)
	}
	for _, name := range []string{"graph.CreateTweet", "graph.ReplyTweet", "graph.QuoteTweet", "graph.Retweet",
		"graph.FollowUser", "graph.UnfollowUser", "graph.CreateUser"} {
		assert.Equal(t, 1, g.count(name), name)
	}
	assert.Equal(t, "did:privy:abc", g.userInput.PrivyID)
	assert.Empty(t, g.userInput.SupabaseID)
	assert.Equal(t, "evil", g.userInput.DisplayName)
	assert.Len(t, app.Tweets.Feed(), 4)
}

func TestWebThreadUsesServerParents(t *testing.T) {
	app, g, _ := newAppWith(t, true, func(d *Deps) { d.Web = true })
	g.tweetThread = func(id string) (graphql.Thread, error) {
		pid := id
		return graphql.Thread{
			Tweet:   model.Tweet{ID: id},
			Parents: []model.Tweet{{ID: "root"}, {ID: "mid"}},
			Replies: []model.Tweet{{ID: id}, {ID: "c1", RepliedToTweetID: &pid}},
		}, nil
	}
	require.NoError(t, app.Tweets.FetchThread(context.Background(), "leaf"))

	th, ok := app.Tweets.Thread("leaf")
	require.True(t, ok)
	require.Len(t, th.Parents, 2)
	assert.Equal(t, "root", th.Parents[0].ID)
	assert.Equal(t, "mid", th.Parents[1].ID)
	assert.Equal(t, 1, th.Count())
	assert.Equal(t, 1, g.count("TweetThread"))
	assert.Zero(t, g.count("GetTweet"))
	assert.Zero(t, g.count("Thread"))

	g.tweetThread = func(string) (graphql.Thread, error) {
		return graphql.Thread{}, &graphql.Error{Message: "Tweet not found"}
	}
	require.Error(t, app.Tweets.FetchThread(context.Background(), "gone"))
	assert.Equal(t, "Tweet not found", app.Tweets.Err())
	assert.False(t, app.Tweets.ThreadLoading("gone"))
}

func TestWebVariantNeedsGraph(t *testing.T) {
	s := &auth.Session{}
	require.NoError(t, s.Set("tok", "me"))
	api := newFakeAPI()
	app := New(Deps{Session: s, Tweets: api, Follows: api, Web: true})
	_, err := app.Tweets.Create(context.Background(), "hi")
	require.NoError(t, err)
	require.NoError(t, app.Tweets.FetchThread(context.Background(), "t1"))
	assert.Equal(t, 1, api.count("CreateTweet"))
	assert.Equal(t, 1, api.count("Thread"))
}

func TestSettingsUpdates(t *testing.T) {
	app, g, j := newApp(t, true)
	ctx := context.Background()

	require.NoError(t, app.Settings.SetDefaultToken(ctx, " m1 "))
	assert.Equal(t, "m1", app.Settings.DefaultToken())
	assert.Equal(t, "m1", g.mint)
	require.NoError(t, app.Settings.SetLanguage(ctx, "goetsuan"))
	assert.Equal(t, "GOETSUAN", app.Settings.Language())
	assert.Equal(t, "GOETSUAN", g.language)

	err := app.Settings.SetLanguage(ctx, "klingon")
	require.Error(t, err)
	assert.Contains(t, app.Settings.Err(), "unknown language")
	assert.Equal(t, "GOETSUAN", app.Settings.Language())
	assert.Equal(t, 1, g.count("UpdateLanguage"))

	g.settingsErr = &graphql.Error{Message: "Unknown token"}
	require.Error(t, app.Settings.SetDefaultToken(ctx, "nope"))
	assert.Equal(t, "m1", app.Settings.DefaultToken())
	assert.Equal(t, "Unknown token", app.Settings.Err())
	assert.Empty(t, app.Settings.Saving())

	require.Len(t, j.actions, 3)
	assert.Equal(t, "payment_token", j.actions[0].Kind)
	assert.Equal(t, "language", j.actions[1].Kind)
	assert.False(t, j.actions[2].OK)
}

func TestSettingsNeedSessionAndGraph(t *testing.T) {
	app, g, _ := newApp(t, false)
	err := app.Settings.SetDefaultToken(context.Background(), "m1")
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
	assert.Equal(t, "You must be logged in to change settings.", app.Settings.Err())
	assert.Zero(t, g.total())

	s := &auth.Session{}
	require.NoError(t, s.Set("tok", "me"))
	bare := New(Deps{Session: s})
	assert.ErrorIs(t, bare.Settings.SetLanguage(context.Background(), "none"), ErrNoGraph)
}
