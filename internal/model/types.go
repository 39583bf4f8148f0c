package model

import "time"

// TweetType is the kind of a tweet as reported by the backend.
type TweetType string

const (
	TweetOriginal TweetType = "original"
	TweetReply    TweetType = "reply"
	TweetQuote    TweetType = "quote"
	TweetRetweet  TweetType = "retweet"
)

// TweetMetrics holds engagement counters. Missing counters are 0.
type TweetMetrics struct {
	Likes       int
	Smacks      int
	Retweets    int
	Quotes      int
	Replies     int
	Impressions int
}

// AuthorSnapshot is the denormalized author info shipped with a tweet.
type AuthorSnapshot struct {
	Username    string
	DisplayName string
	AvatarURL   string
}

type ViewerContext struct {
	IsLiked     bool
	IsRetweeted bool
	IsQuoted    bool
}

// HealthAction is one attack or heal applied to a tweet.
type HealthAction struct {
	Timestamp    time.Time
	Amount       float64
	HealthBefore float64
	HealthAfter  float64
}

// Health is the mobile game overlay. Display only.
type Health struct {
	Current       float64
	Max           float64
	HealHistory   []HealthAction
	AttackHistory []HealthAction
}

// EnergyState is the web variant of the game overlay. Display only.
type EnergyState struct {
	Energy                  float64
	KineticEnergy           float64
	PotentialEnergy         float64
	EnergyGainedFromSupport float64
	EnergyLostFromAttacks   float64
	Mass                    float64
	VelocityInitial         float64
	HeightInitial           float64
}

type Virality struct {
	Score            float64
	Momentum         float64
	HealthMultiplier float64
}

// Tweet is the canonical client-side tweet. Optional references are nil when absent.
type Tweet struct {
	ID               string
	OwnerID          string
	Content          string
	Type             TweetType
	RepliedToTweetID *string
	QuotedTweetID    *string
	RootTweetID      *string
	ReplyDepth       int
	CreatedAt        time.Time
	UpdatedAt        *time.Time
	Metrics          TweetMetrics
	Author           AuthorSnapshot
	Viewer           ViewerContext
	Health           Health
	Energy           EnergyState
	Virality         Virality
	PostIDHash       string
	QuotedTweet      *Tweet
	RepliedToTweet   *Tweet
}

// ParentID returns the replied-to id or "" for top-level tweets.
func (t Tweet) ParentID() string {
	if t.RepliedToTweetID == nil {
		return ""
	}
	return *t.RepliedToTweetID
}

// User is the canonical client-side user.
type User struct {
	ID                 string
	AuthID             string
	Username           string
	DisplayName        string
	Email              string
	Bio                string
	AvatarURL          string
	CreatedAt          time.Time
	FollowersCount     int
	FollowingCount     int
	TweetsCount        int
	Wallet             string
	Balances           map[string]float64
	WeaponIDs          []string
	IsFollowedByViewer bool
}

// FollowEdge is a directed follow relation.
type FollowEdge struct {
	FollowerID  string
	FollowingID string
	CreatedAt   time.Time
}

type IntimateFollowStatus string

const (
	IntimatePending  IntimateFollowStatus = "pending"
	IntimateApproved IntimateFollowStatus = "approved"
	IntimateRejected IntimateFollowStatus = "rejected"
)

// IntimateFollowRequest is an approval-gated follow request.
type IntimateFollowRequest struct {
	ID          string
	RequesterID string
	TargetID    string
	Status      IntimateFollowStatus
	CreatedAt   time.Time
}

type Weapon struct {
	ID            string
	OwnerID       string
	Name          string
	Description   string
	ImageURL      string
	Damage        float64
	Health        float64
	MaxHealth     float64
	DegradePerUse float64
}

// CatalogItem is a weapon offered for sale.
type CatalogItem struct {
	ID          string
	Name        string
	Description string
	Emoji       string
	Price       float64
	Damage      float64
	Health      float64
}
