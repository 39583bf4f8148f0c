package apiclient

import (
	"context"
	"net/http"
	"net/url"

	jsoniter "github.com/json-iterator/go"

	"eviltwitter/internal/model"
	"eviltwitter/internal/normalize"
)

// UserByAuthID looks a user up by the auth provider id. It returns a 404
// *Error when no user matches.
func (c *Client) UserByAuthID(ctx context.Context, authID string) (model.User, error) {
	q := url.Values{}
	q.Set("supabase_id", authID)
	raw, err := c.doRaw(ctx, call{method: http.MethodGet, endpoint: "GET /users", path: "/users", query: q})
	if err != nil {
		return model.User{}, err
	}
	users, err := normalize.DecodeDocUsers(raw)
	if err != nil {
		return model.User{}, err
	}
	if len(users) == 0 {
		return model.User{}, &Error{StatusCode: http.StatusNotFound, Message: "User not found"}
	}
	return users[0], nil
}

func (c *Client) GetUser(ctx context.Context, id string) (model.User, error) {
	var doc normalize.DocUser
	if err := c.do(ctx, call{method: http.MethodGet, endpoint: "GET /users/{id}", path: "/users/" + esc(id)}, &doc); err != nil {
		return model.User{}, err
	}
	return normalize.UserFromDoc(doc), nil
}

// NewUser is the body of a user registration.
type NewUser struct {
	AuthID      string `json:"supabase_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Bio         string `json:"bio,omitempty"`
}

func (c *Client) CreateUser(ctx context.Context, u NewUser) (model.User, error) {
	var doc normalize.DocUser
	if err := c.do(ctx, call{method: http.MethodPost, endpoint: "POST /users", path: "/users", body: u, requireAuth: true}, &doc); err != nil {
		return model.User{}, err
	}
	return normalize.UserFromDoc(doc), nil
}

type followBody struct {
	FollowingID string `json:"following_id"`
}

// Follow makes the session user follow target and returns the new state.
func (c *Client) Follow(ctx context.Context, target string) (bool, error) {
	return c.follow(ctx, http.MethodPost, "POST /users/{id}/follow", target, true)
}

func (c *Client) Unfollow(ctx context.Context, target string) (bool, error) {
	return c.follow(ctx, http.MethodDelete, "DELETE /users/{id}/follow", target, false)
}

func (c *Client) follow(ctx context.Context, method, endpoint, target string, want bool) (bool, error) {
	me := c.session.UserID()
	var st normalize.DocFollowStatus
	err := c.do(ctx, call{
		method:      method,
		endpoint:    endpoint,
		path:        "/users/" + esc(me) + "/follow",
		body:        followBody{FollowingID: target},
		requireAuth: true,
	}, &st)
	if err != nil {
		return !want, err
	}
	return st.IsFollowing.Or(want), nil
}

// FollowStatus reports whether follower follows target.
func (c *Client) FollowStatus(ctx context.Context, target, follower string) (bool, error) {
	q := url.Values{}
	q.Set("follower_id", follower)
	var st normalize.DocFollowStatus
	err := c.do(ctx, call{method: http.MethodGet, endpoint: "GET /users/{id}/follow-status", path: "/users/" + esc(target) + "/follow-status", query: q}, &st)
	if err != nil {
		return false, err
	}
	return st.IsFollowing.Or(false), nil
}

func (c *Client) Followers(ctx context.Context, id string) ([]model.User, error) {
	return c.userList(ctx, "GET /users/{id}/followers", "/users/"+esc(id)+"/followers", "followers")
}

func (c *Client) Following(ctx context.Context, id string) ([]model.User, error) {
	return c.userList(ctx, "GET /users/{id}/following", "/users/"+esc(id)+"/following", "following")
}

func (c *Client) userList(ctx context.Context, endpoint, path, key string) ([]model.User, error) {
	raw, err := c.doRaw(ctx, call{method: http.MethodGet, endpoint: endpoint, path: path})
	if err != nil {
		return nil, err
	}
	return normalize.DecodeUsersAt(raw, key)
}

type intimateRequestBody struct {
	RequesterID string `json:"requester_user_id"`
}

// RequestIntimateFollow asks target for an approval-gated follow.
func (c *Client) RequestIntimateFollow(ctx context.Context, target string) (model.IntimateFollowRequest, error) {
	var doc normalize.DocIntimateRequest
	err := c.do(ctx, call{
		method:      http.MethodPost,
		endpoint:    "POST /users/{id}/intimate-follow/request",
		path:        "/users/" + esc(target) + "/intimate-follow/request",
		body:        intimateRequestBody{RequesterID: c.session.UserID()},
		requireAuth: true,
	}, &doc)
	if err != nil {
		return model.IntimateFollowRequest{}, err
	}
	req := normalize.IntimateRequestFromDoc(doc)
	if req.TargetID == "" {
		req.TargetID = target
	}
	return req, nil
}

// IntimateRequests lists the requests waiting on the session user.
func (c *Client) IntimateRequests(ctx context.Context) ([]model.IntimateFollowRequest, error) {
	me := c.session.UserID()
	raw, err := c.doRaw(ctx, call{
		method:      http.MethodGet,
		endpoint:    "GET /users/{id}/intimate-follow/requests",
		path:        "/users/" + esc(me) + "/intimate-follow/requests",
		requireAuth: true,
	})
	if err != nil {
		return nil, err
	}
	return normalize.DecodeIntimateRequests(raw)
}

// DecideIntimateRequest approves or rejects requestID.
func (c *Client) DecideIntimateRequest(ctx context.Context, requestID string, approve bool) error {
	verb := "reject"
	if approve {
		verb = "approve"
	}
	me := c.session.UserID()
	return c.do(ctx, call{
		method:      http.MethodPost,
		endpoint:    "POST /users/{id}/intimate-follow/requests/{requestId}/" + verb,
		path:        "/users/" + esc(me) + "/intimate-follow/requests/" + esc(requestID) + "/" + verb,
		requireAuth: true,
	}, nil)
}

// IntimateStatus returns the session user's request status toward target, ""
// when there is none.
func (c *Client) IntimateStatus(ctx context.Context, target string) (model.IntimateFollowStatus, error) {
	q := url.Values{}
	q.Set("requester_id", c.session.UserID())
	var resp struct {
		Status string `json:"status"`
	}
	err := c.do(ctx, call{
		method:   http.MethodGet,
		endpoint: "GET /users/{id}/intimate-follow/status",
		path:     "/users/" + esc(target) + "/intimate-follow/status",
		query:    q,
	}, &resp)
	if err != nil {
		return "", err
	}
	switch model.IntimateFollowStatus(resp.Status) {
	case model.IntimatePending, model.IntimateApproved, model.IntimateRejected:
		return model.IntimateFollowStatus(resp.Status), nil
	}
	return "", nil
}

// WeaponCatalog lists the weapons on sale.
func (c *Client) WeaponCatalog(ctx context.Context) ([]model.CatalogItem, error) {
	raw, err := c.doRaw(ctx, call{method: http.MethodGet, endpoint: "GET /weapons/catalog", path: "/weapons/catalog"})
	if err != nil {
		return nil, err
	}
	return normalize.DecodeCatalog(raw)
}

func (c *Client) UserWeapons(ctx context.Context, userID string) ([]model.Weapon, error) {
	raw, err := c.doRaw(ctx, call{method: http.MethodGet, endpoint: "GET /users/{id}/weapons", path: "/users/" + esc(userID) + "/weapons"})
	if err != nil {
		return nil, err
	}
	return normalize.DecodeWeapons(raw)
}

type buyWeaponBody struct {
	CatalogID string `json:"catalog_id"`
}

// BuyWeapon purchases catalogID for the session user.
func (c *Client) BuyWeapon(ctx context.Context, catalogID string) (model.Weapon, error) {
	me := c.session.UserID()
	raw, err := c.doRaw(ctx, call{
		method:      http.MethodPost,
		endpoint:    "POST /weapons/{userId}/buy",
		path:        "/weapons/" + esc(me) + "/buy",
		body:        buyWeaponBody{CatalogID: catalogID},
		requireAuth: true,
	})
	if err != nil {
		return model.Weapon{}, err
	}
	var env struct {
		Weapon jsoniter.RawMessage `json:"weapon"`
	}
	if json.Unmarshal(raw, &env) == nil && len(env.Weapon) > 0 && string(env.Weapon) != "null" {
		raw = env.Weapon
	}
	var doc normalize.DocWeapon
	if err := json.Unmarshal(raw, &doc); err != nil {
		return model.Weapon{}, err
	}
	return normalize.WeaponFromDoc(doc), nil
}
