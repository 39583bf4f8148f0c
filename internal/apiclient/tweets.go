package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"eviltwitter/internal/model"
	"eviltwitter/internal/normalize"
)

// ListTweets returns the public timeline.
func (c *Client) ListTweets(ctx context.Context) ([]model.Tweet, error) {
	raw, err := c.doRaw(ctx, call{method: http.MethodGet, endpoint: "GET /tweets", path: "/tweets"})
	if err != nil {
		return nil, err
	}
	return normalize.DecodeDocTweets(raw)
}

func (c *Client) GetTweet(ctx context.Context, id string) (model.Tweet, error) {
	raw, err := c.doRaw(ctx, call{method: http.MethodGet, endpoint: "GET /tweets/{id}", path: "/tweets/" + esc(id)})
	if err != nil {
		return model.Tweet{}, err
	}
	return decodeTweetEnvelope(raw)
}

// Thread returns the flat reply list under id. The thread package assembles it.
func (c *Client) Thread(ctx context.Context, id string, limit, offset int) ([]model.Tweet, error) {
	if limit <= 0 {
		limit = 50
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	raw, err := c.doRaw(ctx, call{
		method:   http.MethodGet,
		endpoint: "GET /tweets/{id}/thread",
		path:     "/tweets/" + esc(id) + "/thread",
		query:    q,
	})
	if err != nil {
		return nil, err
	}
	return normalize.DecodeDocTweets(raw)
}

type createTweetBody struct {
	Content string `json:"content"`
	OwnerID string `json:"owner_id,omitempty"`
}

func (c *Client) CreateTweet(ctx context.Context, content string) (model.Tweet, error) {
	return c.postTweet(ctx, "POST /tweets", "/tweets", createTweetBody{Content: content, OwnerID: c.session.UserID()})
}

type replyBody struct {
	Content          string `json:"content"`
	RepliedToTweetID string `json:"replied_to_tweet_id"`
	OwnerID          string `json:"owner_id,omitempty"`
}

// Reply posts content as a reply to parentID.
func (c *Client) Reply(ctx context.Context, parentID, content string) (model.Tweet, error) {
	return c.postTweet(ctx, "POST /tweets/reply", "/tweets/reply", replyBody{
		Content: content, RepliedToTweetID: parentID, OwnerID: c.session.UserID(),
	})
}

type quoteBody struct {
	Content         string `json:"content"`
	OriginalTweetID string `json:"original_tweet_id"`
	OwnerID         string `json:"owner_id,omitempty"`
}

func (c *Client) Quote(ctx context.Context, quotedID, content string) (model.Tweet, error) {
	return c.postTweet(ctx, "POST /tweets/quote", "/tweets/quote", quoteBody{
		Content: content, OriginalTweetID: quotedID, OwnerID: c.session.UserID(),
	})
}

type userBody struct {
	UserID string `json:"user_id"`
}

func (c *Client) Retweet(ctx context.Context, id string) (model.Tweet, error) {
	return c.postTweet(ctx, "POST /tweets/{id}/retweet", "/tweets/"+esc(id)+"/retweet", userBody{UserID: c.session.UserID()})
}

// HealthChange is the backend answer to an attack or heal.
type HealthChange struct {
	TweetID      string
	HealthBefore float64
	HealthAfter  float64
	Tweet        *model.Tweet
}

type healthChangeResponse struct {
	TweetID      normalize.ObjectID  `json:"tweet_id"`
	HealthBefore normalize.Number    `json:"health_before"`
	HealthAfter  normalize.Number    `json:"health_after"`
	Tweet        *normalize.DocTweet `json:"tweet"`
}

type weaponBody struct {
	WeaponID string `json:"weapon_id,omitempty"`
}

// Attack spends weaponID against a tweet's health.
func (c *Client) Attack(ctx context.Context, id, weaponID string) (HealthChange, error) {
	return c.healthChange(ctx, "POST /tweets/{id}/attack", "/tweets/"+esc(id)+"/attack", id, weaponID)
}

func (c *Client) Heal(ctx context.Context, id, weaponID string) (HealthChange, error) {
	return c.healthChange(ctx, "POST /tweets/{id}/heal", "/tweets/"+esc(id)+"/heal", id, weaponID)
}

func (c *Client) healthChange(ctx context.Context, endpoint, path, id, weaponID string) (HealthChange, error) {
	var resp healthChangeResponse
	err := c.do(ctx, call{method: http.MethodPost, endpoint: endpoint, path: path, body: weaponBody{WeaponID: weaponID}, requireAuth: true}, &resp)
	if err != nil {
		return HealthChange{}, err
	}
	out := HealthChange{
		TweetID:      resp.TweetID.Or(id),
		HealthBefore: resp.HealthBefore.Or(0),
		HealthAfter:  resp.HealthAfter.Or(0),
	}
	if resp.Tweet != nil {
		t := normalize.TweetFromDoc(*resp.Tweet)
		out.Tweet = &t
		if !resp.HealthAfter.Valid() {
			out.HealthAfter = t.Health.Current
		}
	}
	return out, nil
}

func (c *Client) postTweet(ctx context.Context, endpoint, path string, body any) (model.Tweet, error) {
	raw, err := c.doRaw(ctx, call{method: http.MethodPost, endpoint: endpoint, path: path, body: body, requireAuth: true})
	if err != nil {
		return model.Tweet{}, err
	}
	return decodeTweetEnvelope(raw)
}

// decodeTweetEnvelope accepts a bare tweet or one wrapped as {"tweet": {...}}.
func decodeTweetEnvelope(raw []byte) (model.Tweet, error) {
	var env struct {
		Tweet jsoniter.RawMessage `json:"tweet"`
	}
	if json.Unmarshal(raw, &env) == nil && len(env.Tweet) > 0 && string(env.Tweet) != "null" {
		return normalize.DecodeTweet(env.Tweet)
	}
	return normalize.DecodeTweet(raw)
}
