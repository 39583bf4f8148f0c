// Package store holds the client's application state.
//
// Each store owns its data behind a mutex, performs one network call per
// action, and records failures as a human readable message instead of
// panicking or retrying. App wires the stores together; there are no
// package-level singletons.
package store

import (
	"context"
	"errors"
	"time"

	"eviltwitter/internal/apiclient"
	"eviltwitter/internal/auth"
	"eviltwitter/internal/graphql"
	"eviltwitter/internal/grouping"
	"eviltwitter/internal/journal"
	"eviltwitter/internal/logging"
	"eviltwitter/internal/metrics"
	"eviltwitter/internal/model"
)

// TweetAPI is the REST surface the tweets store needs.
type TweetAPI interface {
	ListTweets(ctx context.Context) ([]model.Tweet, error)
	GetTweet(ctx context.Context, id string) (model.Tweet, error)
	Thread(ctx context.Context, id string, limit, offset int) ([]model.Tweet, error)
	CreateTweet(ctx context.Context, content string) (model.Tweet, error)
	Reply(ctx context.Context, parentID, content string) (model.Tweet, error)
	Quote(ctx context.Context, quotedID, content string) (model.Tweet, error)
	Retweet(ctx context.Context, id string) (model.Tweet, error)
	Attack(ctx context.Context, id, weaponID string) (apiclient.HealthChange, error)
	Heal(ctx context.Context, id, weaponID string) (apiclient.HealthChange, error)
}

type UserAPI interface {
	GetUser(ctx context.Context, id string) (model.User, error)
	UserByAuthID(ctx context.Context, authID string) (model.User, error)
	CreateUser(ctx context.Context, u apiclient.NewUser) (model.User, error)
	Followers(ctx context.Context, id string) ([]model.User, error)
	Following(ctx context.Context, id string) ([]model.User, error)
}

type FollowAPI interface {
	Follow(ctx context.Context, target string) (bool, error)
	Unfollow(ctx context.Context, target string) (bool, error)
	FollowStatus(ctx context.Context, target, follower string) (bool, error)
	RequestIntimateFollow(ctx context.Context, target string) (model.IntimateFollowRequest, error)
	IntimateRequests(ctx context.Context) ([]model.IntimateFollowRequest, error)
	DecideIntimateRequest(ctx context.Context, requestID string, approve bool) error
	IntimateStatus(ctx context.Context, target string) (model.IntimateFollowStatus, error)
}

type EconomyAPI interface {
	Balances(ctx context.Context, userID string) ([]model.TokenBalance, error)
	Assets(ctx context.Context, userID string) ([]model.UserAsset, error)
	ShopItems(ctx context.Context) ([]model.ShopItem, error)
	Listings(ctx context.Context) ([]model.MarketplaceListing, error)
	PurchaseItem(ctx context.Context, itemID string) error
	CreateListing(ctx context.Context, req grouping.ListingRequest) (model.MarketplaceListing, error)
	BuyListing(ctx context.Context, listingID string) error
	CancelListing(ctx context.Context, listingID string) error
}

type WeaponAPI interface {
	WeaponCatalog(ctx context.Context) ([]model.CatalogItem, error)
	UserWeapons(ctx context.Context, userID string) ([]model.Weapon, error)
	BuyWeapon(ctx context.Context, catalogID string) (model.Weapon, error)
}

// GraphAPI is the GraphQL surface used for profiles, likes, rewards and
// settings, and for the web variant's tweet, follow and account mutations.
type GraphAPI interface {
	Profile(ctx context.Context, userID, viewerID string, first int) (graphql.Profile, error)
	TweetThread(ctx context.Context, tweetID string) (graphql.Thread, error)
	CreateTweet(ctx context.Context, content string) (model.Tweet, error)
	ReplyTweet(ctx context.Context, parentID, content string) (model.Tweet, error)
	QuoteTweet(ctx context.Context, quotedID, content string) (model.Tweet, error)
	Retweet(ctx context.Context, id string) (model.Tweet, error)
	CreateUser(ctx context.Context, in graphql.UserInput) (model.User, error)
	FollowUser(ctx context.Context, userID string) (bool, error)
	UnfollowUser(ctx context.Context, userID string) (bool, error)
	UpdateDefaultPaymentToken(ctx context.Context, tokenMint string) error
	UpdateLanguage(ctx context.Context, language string) error
	LikeTweet(ctx context.Context, id string) (graphql.LikeResult, error)
	SmackTweet(ctx context.Context, id string) (graphql.SmackResult, error)
	ClaimableRewards(ctx context.Context) ([]model.ClaimableReward, error)
	TipsByPost(ctx context.Context) ([]model.TipsByPost, error)
	TipBalances(ctx context.Context) ([]model.TipBalance, error)
	ValidPayments(ctx context.Context) ([]model.ValidPayment, error)
	ClaimTips(ctx context.Context, tokenMint string) (graphql.ClaimResult, error)
	ClaimTipsByPost(ctx context.Context, postID, tokenMint string) (string, error)
}

// Journal records user-initiated actions. *journal.DB satisfies it.
type Journal interface {
	PutAction(ctx context.Context, a journal.Action) error
}

// Deps are the collaborators App is built from. Session is required; a nil
// Journal disables action logging.
type Deps struct {
	Session  *auth.Session
	Tweets   TweetAPI
	Users    UserAPI
	Follows  FollowAPI
	Economy  EconomyAPI
	Weapons  WeaponAPI
	Graph    GraphAPI
	Registry grouping.Decimaler
	Journal  Journal
	// Web sends tweet, follow and account mutations and thread reads over
	// GraphQL. It needs Graph.
	Web bool
	// CacheSize bounds the tweet index; 0 means 1024
	CacheSize int
}

// FromClients builds Deps from the REST and GraphQL clients.
func FromClients(api *apiclient.Client, gql *graphql.Client, reg grouping.Decimaler, j *journal.DB, web bool) Deps {
	d := Deps{
		Session:  api.Session(),
		Tweets:   api,
		Users:    api,
		Follows:  api,
		Economy:  api,
		Weapons:  api,
		Registry: reg,
		Web:      web,
	}
	// nil pointers must stay nil interfaces
	if gql != nil {
		d.Graph = gql
	}
	if j != nil {
		d.Journal = j
	}
	return d
}

// App is the application context owning every store.
type App struct {
	Auth     *AuthStore
	Tweets   *TweetStore
	Users    *UserStore
	Follows  *FollowStore
	Economy  *EconomyStore
	Weapons  *WeaponStore
	Rewards  *RewardStore
	Settings *SettingsStore
}

func New(d Deps) *App {
	if d.Session == nil {
		d.Session = &auth.Session{}
	}
	rec := recorder{j: d.Journal}
	web := d.Web && d.Graph != nil
	if web {
		d.Tweets = webTweets{TweetAPI: d.Tweets, gql: d.Graph}
		d.Users = webUsers{UserAPI: d.Users, gql: d.Graph}
		d.Follows = webFollows{FollowAPI: d.Follows, gql: d.Graph}
	}
	tweets := newTweetStore(d.Session, d.Tweets, d.Graph, d.CacheSize, rec)
	tweets.graphThreads = web
	return &App{
		Auth:     newAuthStore(d.Session, d.Users),
		Tweets:   tweets,
		Users:    newUserStore(d.Session, d.Users, d.Graph),
		Follows:  newFollowStore(d.Session, d.Follows, rec),
		Economy:  newEconomyStore(d.Session, d.Economy, rec),
		Weapons:  newWeaponStore(d.Session, d.Weapons, rec),
		Rewards:  newRewardStore(d.Session, d.Graph, d.Registry, rec),
		Settings: newSettingsStore(d.Session, d.Graph, rec),
	}
}

// generations hands out a monotonically increasing number per fetch kind.
// Only a response carrying the latest number may write state.
// Callers hold the owning store's lock.
type generations map[string]uint64

func (g generations) next(kind string) uint64 {
	g[kind]++
	return g[kind]
}

func (g generations) current(kind string, n uint64) bool { return g[kind] == n }

// recorder writes to the journal when one is configured. Journal failures are
// logged and never surface to the caller.
type recorder struct{ j Journal }

func (r recorder) record(ctx context.Context, kind, target string, err error) {
	if r.j == nil {
		return
	}
	a := journal.Action{At: time.Now().UTC(), Kind: kind, Target: target, OK: err == nil}
	if err != nil {
		a.Message = err.Error()
	}
	if jerr := r.j.PutAction(context.WithoutCancel(ctx), a); jerr != nil {
		logging.Warn("journal_write_failed", map[string]any{"kind": kind, "error": jerr.Error()})
	}
}

// ErrNoGraph is returned by actions that need the GraphQL client when none is configured.
var ErrNoGraph = errors.New("graphql client not configured")

// failed logs and counts a store action error and returns its message.
func failed(store, action string, err error) string {
	metrics.IncStoreError(store, action)
	logging.Warn("store_action_failed", map[string]any{"store": store, "action": action, "error": err.Error()})
	return err.Error()
}

func stale(store, kind string) {
	metrics.IncStale(store)
	logging.Debug("stale_response_discarded", map[string]any{"store": store, "kind": kind})
}
