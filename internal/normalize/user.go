package normalize

import (
	"github.com/samber/lo"

	"eviltwitter/internal/model"
)

// DocUser is a user document from the REST API.
type DocUser struct {
	ID             ObjectID          `json:"_id"`
	AltID          ObjectID          `json:"id"`
	SupabaseID     string            `json:"supabase_id"`
	PrivyID        string            `json:"privy_id"`
	Username       string            `json:"username"`
	DisplayName    string            `json:"display_name"`
	Email          string            `json:"email"`
	AvatarURL      string            `json:"avatar_url"`
	Bio            string            `json:"bio"`
	CreatedAt      MongoDate         `json:"created_at"`
	FollowersCount Number            `json:"followers_count"`
	FollowingCount Number            `json:"following_count"`
	TweetsCount    Number            `json:"tweets_count"`
	Wallet         string            `json:"wallet"`
	WeaponIDs      []ObjectID        `json:"weapon_ids"`
	Balances       map[string]Number `json:"balances"`
	IsFollowed     Flag              `json:"is_followed_by_viewer"`
}

// UserFromDoc maps a user document.
func UserFromDoc(d DocUser) model.User {
	u := model.User{
		ID:                 d.ID.Or(d.AltID.String()),
		AuthID:             firstNonEmpty(d.SupabaseID, d.PrivyID),
		Username:           d.Username,
		DisplayName:        firstNonEmpty(d.DisplayName, d.Username),
		Email:              d.Email,
		Bio:                d.Bio,
		AvatarURL:          d.AvatarURL,
		CreatedAt:          d.CreatedAt.Time(),
		FollowersCount:     d.FollowersCount.IntOr(0),
		FollowingCount:     d.FollowingCount.IntOr(0),
		TweetsCount:        d.TweetsCount.IntOr(0),
		Wallet:             d.Wallet,
		IsFollowedByViewer: d.IsFollowed.Or(false),
		WeaponIDs: lo.FilterMap(d.WeaponIDs, func(id ObjectID, _ int) (string, bool) {
			return id.String(), id.Valid()
		}),
	}
	if len(d.Balances) > 0 {
		u.Balances = lo.MapValues(d.Balances, func(n Number, _ string) float64 { return n.Or(0) })
	}
	return u
}

// DecodeDocUsers accepts a bare array or {"users": [...]}.
func DecodeDocUsers(b []byte) ([]model.User, error) {
	return DecodeUsersAt(b, "users")
}

// DecodeUsersAt decodes a user list found under key, or a bare array.
func DecodeUsersAt(b []byte, key string) ([]model.User, error) {
	var docs []DocUser
	if err := decodeList(b, key, &docs); err != nil {
		return nil, err
	}
	return lo.Map(docs, func(d DocUser, _ int) model.User { return UserFromDoc(d) }), nil
}

// GraphBalances covers both the mobile "balances" and web "vaultBalances" shapes.
type GraphBalances struct {
	Bling      Number `json:"bling"`
	Dooler     Number `json:"dooler"`
	USDC       Number `json:"usdc"`
	Sol        Number `json:"sol"`
	Stablecoin Number `json:"stablecoin"`
}

type GraphProfile struct {
	ID          ObjectID  `json:"id"`
	UserID      ObjectID  `json:"userId"`
	Handle      string    `json:"handle"`
	DisplayName string    `json:"displayName"`
	AvatarURL   string    `json:"avatarUrl"`
	Bio         string    `json:"bio"`
	Status      string    `json:"status"`
	CreatedAt   MongoDate `json:"createdAt"`
}

// GraphUser is a user node from either GraphQL schema generation: flat
// profile fields (mobile) or a nested profile object (web).
type GraphUser struct {
	ID                 ObjectID           `json:"id"`
	SupabaseID         string             `json:"supabaseId"`
	PrivyID            string             `json:"privyId"`
	Username           string             `json:"username"`
	DisplayName        string             `json:"displayName"`
	Email              string             `json:"email"`
	Bio                string             `json:"bio"`
	AvatarURL          string             `json:"avatarUrl"`
	Wallet             string             `json:"wallet"`
	CreatedAt          MongoDate          `json:"createdAt"`
	FollowersCount     Number             `json:"followersCount"`
	FollowingCount     Number             `json:"followingCount"`
	TweetsCount        Number             `json:"tweetsCount"`
	IsFollowedByViewer Flag               `json:"isFollowedByViewer"`
	IsFollowedBy       Flag               `json:"isFollowedBy"`
	Balances           *GraphBalances     `json:"balances"`
	VaultBalances      *GraphBalances     `json:"vaultBalances"`
	Profile            *GraphProfile      `json:"profile"`
	Tweets             *Edges[GraphTweet] `json:"tweets"`
}

// UserFromGraph maps a GraphQL user node. Tweets on the node are returned by
// TweetsOf.
func UserFromGraph(g GraphUser) model.User {
	u := model.User{
		ID:                 g.ID.String(),
		AuthID:             firstNonEmpty(g.SupabaseID, g.PrivyID),
		Username:           g.Username,
		DisplayName:        g.DisplayName,
		Email:              g.Email,
		Bio:                g.Bio,
		AvatarURL:          g.AvatarURL,
		Wallet:             g.Wallet,
		CreatedAt:          g.CreatedAt.Time(),
		FollowersCount:     g.FollowersCount.IntOr(0),
		FollowingCount:     g.FollowingCount.IntOr(0),
		TweetsCount:        g.TweetsCount.IntOr(0),
		IsFollowedByViewer: g.IsFollowedByViewer.Or(g.IsFollowedBy.Or(false)),
	}
	if p := g.Profile; p != nil {
		u.Username = firstNonEmpty(u.Username, p.Handle)
		u.DisplayName = firstNonEmpty(u.DisplayName, p.DisplayName)
		u.AvatarURL = firstNonEmpty(u.AvatarURL, p.AvatarURL)
		u.Bio = firstNonEmpty(u.Bio, p.Bio)
		if u.CreatedAt.IsZero() {
			u.CreatedAt = p.CreatedAt.Time()
		}
	}
	if u.DisplayName == "" {
		u.DisplayName = u.Username
	}
	switch {
	case g.Balances != nil:
		u.Balances = MapGraphBalances(g.Balances)
	case g.VaultBalances != nil:
		u.Balances = MapGraphBalances(g.VaultBalances)
	}
	if g.Tweets != nil {
		u.TweetsCount = max(u.TweetsCount, g.Tweets.TotalCount.IntOr(0))
	}
	return u
}

// TweetsOf returns the normalized tweets embedded in a user node.
func TweetsOf(g GraphUser) []model.Tweet {
	if g.Tweets == nil {
		return nil
	}
	return TweetsFromGraph(g.Tweets.Nodes())
}

// MapGraphBalances maps a balance summary to symbol keyed amounts. Missing
// entries are 0.
func MapGraphBalances(b *GraphBalances) map[string]float64 {
	if b == nil {
		b = &GraphBalances{}
	}
	out := map[string]float64{
		"Bling":  b.Bling.Or(0),
		"Dooler": b.Dooler.Or(0),
		"Usdc":   b.USDC.Or(0),
		"Sol":    b.Sol.Or(0),
	}
	if b.Stablecoin.Valid() {
		out["Stablecoin"] = b.Stablecoin.Or(0)
	}
	return out
}

// UserDocFromGraph converts a GraphQL user node into the backend document
// shape, re-wrapping ids and dates as extended JSON.
func UserDocFromGraph(g GraphUser) map[string]any {
	u := UserFromGraph(g)
	return map[string]any{
		"_id":             ToObjectIDRef(u.ID),
		"supabase_id":     u.AuthID,
		"username":        u.Username,
		"display_name":    u.DisplayName,
		"email":           u.Email,
		"avatar_url":      u.AvatarURL,
		"bio":             u.Bio,
		"created_at":      ToMongoDate(u.CreatedAt),
		"followers_count": u.FollowersCount,
		"following_count": u.FollowingCount,
		"tweets_count":    u.TweetsCount,
		"weapon_ids":      []string{},
	}
}

// DocFollowStatus is the follow-status response.
type DocFollowStatus struct {
	IsFollowing Flag `json:"is_following"`
}

// DocIntimateRequest is an approval-gated follow request document.
type DocIntimateRequest struct {
	ID          ObjectID  `json:"_id"`
	AltID       ObjectID  `json:"id"`
	RequesterID ObjectID  `json:"requester_user_id"`
	TargetID    ObjectID  `json:"target_user_id"`
	Status      string    `json:"status"`
	CreatedAt   MongoDate `json:"created_at"`
}

// IntimateRequestFromDoc maps a request; unknown status reads as pending.
func IntimateRequestFromDoc(d DocIntimateRequest) model.IntimateFollowRequest {
	status := model.IntimateFollowStatus(d.Status)
	switch status {
	case model.IntimatePending, model.IntimateApproved, model.IntimateRejected:
	default:
		status = model.IntimatePending
	}
	return model.IntimateFollowRequest{
		ID:          d.ID.Or(d.AltID.String()),
		RequesterID: d.RequesterID.String(),
		TargetID:    d.TargetID.String(),
		Status:      status,
		CreatedAt:   d.CreatedAt.Time(),
	}
}
