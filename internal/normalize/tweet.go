package normalize

import (
	"errors"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"

	"eviltwitter/internal/model"
)

const (
	defaultHealth           = 100
	defaultHealthMultiplier = 1
)

// DocMetrics is the nested counters object of a tweet document.
type DocMetrics struct {
	Likes       Number `json:"likes"`
	Smacks      Number `json:"smacks"`
	Retweets    Number `json:"retweets"`
	Quotes      Number `json:"quotes"`
	Replies     Number `json:"replies"`
	Impressions Number `json:"impressions"`
}

type DocAuthor struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

type DocViewer struct {
	IsLiked     Flag `json:"is_liked"`
	IsRetweeted Flag `json:"is_retweeted"`
	IsQuoted    Flag `json:"is_quoted"`
}

type DocHealthAction struct {
	Timestamp    MongoDate `json:"timestamp"`
	Amount       Number    `json:"amount"`
	HealthBefore Number    `json:"health_before"`
	HealthAfter  Number    `json:"health_after"`
}

// DocHealth is sent either as a bare number (current health) or as
// {"current", "max", "history": {"heal_history", "attack_history"}}.
type DocHealth struct {
	Current Number
	Max     Number
	Heals   []DocHealthAction
	Attacks []DocHealthAction
}

func (h *DocHealth) UnmarshalJSON(b []byte) error {
	*h = DocHealth{}
	var bare Number
	_ = bare.UnmarshalJSON(b)
	if bare.Valid() {
		h.Current = bare
		return nil
	}
	var obj struct {
		Current Number `json:"current"`
		Max     Number `json:"max"`
		History struct {
			Heal   []DocHealthAction `json:"heal_history"`
			Attack []DocHealthAction `json:"attack_history"`
		} `json:"history"`
	}
	if json.Unmarshal(b, &obj) != nil {
		return nil
	}
	h.Current, h.Max = obj.Current, obj.Max
	h.Heals, h.Attacks = obj.History.Heal, obj.History.Attack
	return nil
}

type DocEnergy struct {
	Energy                  Number `json:"energy"`
	KineticEnergy           Number `json:"kinetic_energy"`
	PotentialEnergy         Number `json:"potential_energy"`
	EnergyGainedFromSupport Number `json:"energy_gained_from_support"`
	EnergyLostFromAttacks   Number `json:"energy_lost_from_attacks"`
	Mass                    Number `json:"mass"`
	VelocityInitial         Number `json:"velocity_initial"`
	HeightInitial           Number `json:"height_initial"`
}

type DocVirality struct {
	Score            Number `json:"score"`
	Momentum         Number `json:"momentum"`
	HealthMultiplier Number `json:"health_multiplier"`
}

// DocTweet is a tweet as stored by the backend: snake_case keys, Mongo
// extended JSON ids and dates, and legacy flat counters.
type DocTweet struct {
	ID               ObjectID     `json:"_id"`
	AltID            ObjectID     `json:"id"`
	OwnerID          ObjectID     `json:"owner_id"`
	Content          string       `json:"content"`
	TweetType        string       `json:"tweet_type"`
	QuotedTweetID    ObjectID     `json:"quoted_tweet_id"`
	RepliedToTweetID ObjectID     `json:"replied_to_tweet_id"`
	RootTweetID      ObjectID     `json:"root_tweet_id"`
	ReplyDepth       Number       `json:"reply_depth"`
	CreatedAt        MongoDate    `json:"created_at"`
	UpdatedAt        MongoDate    `json:"updated_at"`
	Metrics          *DocMetrics  `json:"metrics"`
	LikesCount       Number       `json:"likes_count"`
	RetweetsCount    Number       `json:"retweets_count"`
	QuoteCount       Number       `json:"quote_count"`
	RepliesCount     Number       `json:"replies_count"`
	AuthorSnapshot   *DocAuthor   `json:"author_snapshot"`
	AuthorUsername   string       `json:"author_username"`
	AuthorName       string       `json:"author_display_name"`
	AuthorAvatarURL  string       `json:"author_avatar_url"`
	ViewerContext    *DocViewer   `json:"viewer_context"`
	IsLiked          Flag         `json:"is_liked"`
	IsRetweeted      Flag         `json:"is_retweeted"`
	Health           *DocHealth   `json:"health"`
	MaxHealth        Number       `json:"max_health"`
	EnergyState      *DocEnergy   `json:"energy_state"`
	Virality         *DocVirality `json:"virality"`
	PostIDHash       string       `json:"post_id_hash"`
	QuotedTweet      *DocTweet    `json:"quoted_tweet"`
	RepliedToTweet   *DocTweet    `json:"replied_to_tweet"`
}

// TweetFromDoc maps a backend document into a model.Tweet.
func TweetFromDoc(d DocTweet) model.Tweet {
	var m DocMetrics
	if d.Metrics != nil {
		m = *d.Metrics
	}
	t := model.Tweet{
		ID:               d.ID.Or(d.AltID.String()),
		OwnerID:          d.OwnerID.String(),
		Content:          d.Content,
		Type:             tweetType(d.TweetType),
		QuotedTweetID:    d.QuotedTweetID.Ptr(),
		RepliedToTweetID: d.RepliedToTweetID.Ptr(),
		RootTweetID:      d.RootTweetID.Ptr(),
		ReplyDepth:       d.ReplyDepth.IntOr(0),
		CreatedAt:        d.CreatedAt.Time(),
		UpdatedAt:        d.UpdatedAt.Ptr(),
		Metrics: model.TweetMetrics{
			Likes:       m.Likes.IntOr(d.LikesCount.IntOr(0)),
			Smacks:      m.Smacks.IntOr(0),
			Retweets:    m.Retweets.IntOr(d.RetweetsCount.IntOr(0)),
			Quotes:      m.Quotes.IntOr(d.QuoteCount.IntOr(0)),
			Replies:     m.Replies.IntOr(d.RepliesCount.IntOr(0)),
			Impressions: m.Impressions.IntOr(0),
		},
		PostIDHash: d.PostIDHash,
	}

	var snap DocAuthor
	if d.AuthorSnapshot != nil {
		snap = *d.AuthorSnapshot
	}
	t.Author = model.AuthorSnapshot{
		Username:    firstNonEmpty(snap.Username, d.AuthorUsername),
		DisplayName: firstNonEmpty(snap.DisplayName, d.AuthorName),
		AvatarURL:   firstNonEmpty(snap.AvatarURL, d.AuthorAvatarURL),
	}

	var vc DocViewer
	if d.ViewerContext != nil {
		vc = *d.ViewerContext
	}
	t.Viewer = model.ViewerContext{
		IsLiked:     vc.IsLiked.Or(d.IsLiked.Or(false)),
		IsRetweeted: vc.IsRetweeted.Or(d.IsRetweeted.Or(false)),
		IsQuoted:    vc.IsQuoted.Or(false),
	}

	var h DocHealth
	if d.Health != nil {
		h = *d.Health
	}
	t.Health = model.Health{
		Current:       h.Current.Or(defaultHealth),
		Max:           h.Max.Or(d.MaxHealth.Or(defaultHealth)),
		HealHistory:   healthActions(h.Heals),
		AttackHistory: healthActions(h.Attacks),
	}

	if e := d.EnergyState; e != nil {
		t.Energy = model.EnergyState{
			Energy:                  e.Energy.Or(0),
			KineticEnergy:           e.KineticEnergy.Or(0),
			PotentialEnergy:         e.PotentialEnergy.Or(0),
			EnergyGainedFromSupport: e.EnergyGainedFromSupport.Or(0),
			EnergyLostFromAttacks:   e.EnergyLostFromAttacks.Or(0),
			Mass:                    e.Mass.Or(0),
			VelocityInitial:         e.VelocityInitial.Or(0),
			HeightInitial:           e.HeightInitial.Or(0),
		}
	}

	var v DocVirality
	if d.Virality != nil {
		v = *d.Virality
	}
	t.Virality = model.Virality{
		Score:            v.Score.Or(0),
		Momentum:         v.Momentum.Or(0),
		HealthMultiplier: v.HealthMultiplier.Or(defaultHealthMultiplier),
	}

	if d.QuotedTweet != nil {
		q := TweetFromDoc(*d.QuotedTweet)
		t.QuotedTweet = &q
	}
	if d.RepliedToTweet != nil {
		r := TweetFromDoc(*d.RepliedToTweet)
		t.RepliedToTweet = &r
	}
	return t
}

func healthActions(in []DocHealthAction) []model.HealthAction {
	return lo.Map(in, func(a DocHealthAction, _ int) model.HealthAction {
		return model.HealthAction{
			Timestamp:    a.Timestamp.Time(),
			Amount:       a.Amount.Or(0),
			HealthBefore: a.HealthBefore.Or(0),
			HealthAfter:  a.HealthAfter.Or(0),
		}
	})
}

func tweetType(s string) model.TweetType {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return model.TweetOriginal
	}
	return model.TweetType(s)
}

type GraphMetrics struct {
	Likes       Number `json:"likes"`
	Smacks      Number `json:"smacks"`
	Retweets    Number `json:"retweets"`
	Quotes      Number `json:"quotes"`
	Replies     Number `json:"replies"`
	Impressions Number `json:"impressions"`
}

type GraphAuthor struct {
	ID          ObjectID `json:"id"`
	UserID      ObjectID `json:"userId"`
	Handle      string   `json:"handle"`
	Username    string   `json:"username"`
	DisplayName string   `json:"displayName"`
	AvatarURL   string   `json:"avatarUrl"`
}

type GraphEnergy struct {
	Energy                  Number `json:"energy"`
	KineticEnergy           Number `json:"kineticEnergy"`
	PotentialEnergy         Number `json:"potentialEnergy"`
	EnergyGainedFromSupport Number `json:"energyGainedFromSupport"`
	EnergyLostFromAttacks   Number `json:"energyLostFromAttacks"`
	Mass                    Number `json:"mass"`
	VelocityInitial         Number `json:"velocityInitial"`
	HeightInitial           Number `json:"heightInitial"`
}

type GraphViewer struct {
	IsLiked     Flag `json:"isLiked"`
	IsRetweeted Flag `json:"isRetweeted"`
	IsQuoted    Flag `json:"isQuoted"`
}

// GraphTweet is a tweet node from the GraphQL API. Nested tweets use the same
// shape with fewer fields set.
type GraphTweet struct {
	ID               ObjectID      `json:"id"`
	OwnerID          ObjectID      `json:"ownerId"`
	Content          string        `json:"content"`
	TweetType        string        `json:"tweetType"`
	ReplyDepth       Number        `json:"replyDepth"`
	RootTweetID      ObjectID      `json:"rootTweetId"`
	QuotedTweetID    ObjectID      `json:"quotedTweetId"`
	RepliedToTweetID ObjectID      `json:"repliedToTweetId"`
	CreatedAt        MongoDate     `json:"createdAt"`
	UpdatedAt        MongoDate     `json:"updatedAt"`
	Metrics          *GraphMetrics `json:"metrics"`
	Author           *GraphAuthor  `json:"author"`
	ViewerContext    *GraphViewer  `json:"viewerContext"`
	EnergyState      *GraphEnergy  `json:"energyState"`
	PostIDHash       string        `json:"postIdHash"`
	QuotedTweet      *GraphTweet   `json:"quotedTweet"`
	RepliedToTweet   *GraphTweet   `json:"repliedToTweet"`
}

// TweetFromGraph maps a GraphQL tweet node into a model.Tweet.
func TweetFromGraph(g GraphTweet) model.Tweet {
	var m GraphMetrics
	if g.Metrics != nil {
		m = *g.Metrics
	}
	t := model.Tweet{
		ID:               g.ID.String(),
		OwnerID:          g.OwnerID.String(),
		Content:          g.Content,
		Type:             tweetType(g.TweetType),
		ReplyDepth:       g.ReplyDepth.IntOr(0),
		RootTweetID:      g.RootTweetID.Ptr(),
		QuotedTweetID:    g.QuotedTweetID.Ptr(),
		RepliedToTweetID: g.RepliedToTweetID.Ptr(),
		CreatedAt:        g.CreatedAt.Time(),
		UpdatedAt:        g.UpdatedAt.Ptr(),
		Metrics: model.TweetMetrics{
			Likes:       m.Likes.IntOr(0),
			Smacks:      m.Smacks.IntOr(0),
			Retweets:    m.Retweets.IntOr(0),
			Quotes:      m.Quotes.IntOr(0),
			Replies:     m.Replies.IntOr(0),
			Impressions: m.Impressions.IntOr(0),
		},
		Health:     model.Health{Current: defaultHealth, Max: defaultHealth},
		Virality:   model.Virality{HealthMultiplier: defaultHealthMultiplier},
		PostIDHash: g.PostIDHash,
	}
	if a := g.Author; a != nil {
		t.Author = model.AuthorSnapshot{
			Username:    firstNonEmpty(a.Username, a.Handle),
			DisplayName: a.DisplayName,
			AvatarURL:   a.AvatarURL,
		}
	}
	if vc := g.ViewerContext; vc != nil {
		t.Viewer = model.ViewerContext{
			IsLiked:     vc.IsLiked.Or(false),
			IsRetweeted: vc.IsRetweeted.Or(false),
			IsQuoted:    vc.IsQuoted.Or(false),
		}
	}
	if e := g.EnergyState; e != nil {
		t.Energy = model.EnergyState{
			Energy:                  e.Energy.Or(0),
			KineticEnergy:           e.KineticEnergy.Or(0),
			PotentialEnergy:         e.PotentialEnergy.Or(0),
			EnergyGainedFromSupport: e.EnergyGainedFromSupport.Or(0),
			EnergyLostFromAttacks:   e.EnergyLostFromAttacks.Or(0),
			Mass:                    e.Mass.Or(0),
			VelocityInitial:         e.VelocityInitial.Or(0),
			HeightInitial:           e.HeightInitial.Or(0),
		}
	}
	if g.QuotedTweet != nil {
		q := TweetFromGraph(*g.QuotedTweet)
		t.QuotedTweet = &q
	}
	if g.RepliedToTweet != nil {
		r := TweetFromGraph(*g.RepliedToTweet)
		t.RepliedToTweet = &r
	}
	return t
}

// Source tells which wire family a raw tweet came from.
type Source int

const (
	SourceDocument Source = iota
	SourceGraph
)

// RawTweet is a tweet payload tagged with its source shape.
type RawTweet struct {
	Source Source
	Doc    *DocTweet
	Graph  *GraphTweet
}

// Normalize maps whichever shape is set.
func (r RawTweet) Normalize() model.Tweet {
	switch {
	case r.Source == SourceGraph && r.Graph != nil:
		return TweetFromGraph(*r.Graph)
	case r.Doc != nil:
		return TweetFromDoc(*r.Doc)
	}
	return model.Tweet{Type: model.TweetOriginal, Health: model.Health{Current: defaultHealth, Max: defaultHealth}, Virality: model.Virality{HealthMultiplier: defaultHealthMultiplier}}
}

var docKeys = []string{"_id", "owner_id", "tweet_type", "created_at", "replied_to_tweet_id"}

// ErrEmptyPayload is returned when a tweet payload is null or empty.
var ErrEmptyPayload = errors.New("normalize: empty payload")

// DetectTweet decodes one tweet, picking the document shape when any
// snake_case document key is present.
func DetectTweet(b []byte) (RawTweet, error) {
	var keys map[string]jsoniter.RawMessage
	if err := json.Unmarshal(b, &keys); err != nil {
		return RawTweet{}, err
	}
	if len(keys) == 0 {
		return RawTweet{}, ErrEmptyPayload
	}
	if lo.SomeBy(docKeys, func(k string) bool { _, ok := keys[k]; return ok }) {
		var d DocTweet
		if err := json.Unmarshal(b, &d); err != nil {
			return RawTweet{}, err
		}
		return RawTweet{Source: SourceDocument, Doc: &d}, nil
	}
	var g GraphTweet
	if err := json.Unmarshal(b, &g); err != nil {
		return RawTweet{}, err
	}
	return RawTweet{Source: SourceGraph, Graph: &g}, nil
}

// DecodeTweet decodes and normalizes a single tweet of either shape.
func DecodeTweet(b []byte) (model.Tweet, error) {
	raw, err := DetectTweet(b)
	if err != nil {
		return model.Tweet{}, err
	}
	return raw.Normalize(), nil
}

// DecodeDocTweets accepts either a bare array or {"tweets": [...]}.
func DecodeDocTweets(b []byte) ([]model.Tweet, error) {
	var docs []DocTweet
	if err := decodeList(b, "tweets", &docs); err != nil {
		return nil, err
	}
	return lo.Map(docs, func(d DocTweet, _ int) model.Tweet { return TweetFromDoc(d) }), nil
}

// decodeList decodes b into out, unwrapping {"<key>": [...]} when b is an object.
func decodeList(b []byte, key string, out any) error {
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	if trimmed[0] == '[' {
		return json.Unmarshal(b, out)
	}
	var env map[string]jsoniter.RawMessage
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	raw, ok := env[key]
	if !ok || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, out)
}

type Edge[T any] struct {
	Cursor string `json:"cursor"`
	Node   T      `json:"node"`
}

// Edges is a GraphQL connection with edges { node }.
type Edges[T any] struct {
	Edges    []Edge[T] `json:"edges"`
	PageInfo struct {
		HasNextPage bool   `json:"hasNextPage"`
		EndCursor   string `json:"endCursor"`
	} `json:"pageInfo"`
	TotalCount Number `json:"totalCount"`
}

// Nodes returns the edge nodes in order.
func (e Edges[T]) Nodes() []T {
	return lo.Map(e.Edges, func(ed Edge[T], _ int) T { return ed.Node })
}

// TweetsFromGraph normalizes a list of GraphQL tweet nodes.
func TweetsFromGraph(nodes []GraphTweet) []model.Tweet {
	return lo.Map(nodes, func(g GraphTweet, _ int) model.Tweet { return TweetFromGraph(g) })
}
