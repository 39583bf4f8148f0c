package graphql

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"eviltwitter/internal/model"
	"eviltwitter/internal/normalize"
)

// Profile is a user with the first page of their tweets.
type Profile struct {
	User         model.User
	Tweets       []model.Tweet
	TotalTweets  int
	IsFollowedBy bool
}

func (c *Client) Profile(ctx context.Context, userID, viewerID string, first int) (Profile, error) {
	vars := map[string]any{"userId": userID, "first": defaultFirst(first)}
	if viewerID != "" {
		vars["viewerId"] = viewerID
	}
	var data struct {
		User *normalize.GraphUser `json:"user"`
	}
	if err := c.Do(ctx, ProfileQuery, vars, &data); err != nil {
		return Profile{}, err
	}
	if data.User == nil {
		return Profile{}, &Error{Message: "User not found"}
	}
	p := Profile{
		User:         normalize.UserFromGraph(*data.User),
		Tweets:       normalize.TweetsOf(*data.User),
		IsFollowedBy: data.User.IsFollowedBy.Or(false),
	}
	if data.User.Tweets != nil {
		p.TotalTweets = data.User.Tweets.TotalCount.IntOr(len(p.Tweets))
	}
	return p, nil
}

// Thread is the server-assembled view around one tweet.
type Thread struct {
	Tweet   model.Tweet
	Parents []model.Tweet
	Replies []model.Tweet
}

func (c *Client) TweetThread(ctx context.Context, tweetID string) (Thread, error) {
	var data struct {
		TweetThread *struct {
			Tweet   *normalize.GraphTweet  `json:"tweet"`
			Parents []normalize.GraphTweet `json:"parents"`
			Replies []normalize.GraphTweet `json:"replies"`
		} `json:"tweetThread"`
	}
	if err := c.Do(ctx, TweetThreadQuery, map[string]any{"tweetId": tweetID}, &data); err != nil {
		return Thread{}, err
	}
	if data.TweetThread == nil || data.TweetThread.Tweet == nil {
		return Thread{}, &Error{Message: "Tweet not found"}
	}
	return Thread{
		Tweet:   normalize.TweetFromGraph(*data.TweetThread.Tweet),
		Parents: normalize.TweetsFromGraph(data.TweetThread.Parents),
		Replies: normalize.TweetsFromGraph(data.TweetThread.Replies),
	}, nil
}

// Page is one page of a tweet connection.
type Page struct {
	Tweets      []model.Tweet
	TotalCount  int
	HasNextPage bool
	EndCursor   string
}

func (c *Client) Timeline(ctx context.Context, first int, after string) (Page, error) {
	var data struct {
		Timeline normalize.Edges[normalize.GraphTweet] `json:"timeline"`
	}
	if err := c.Do(ctx, TimelineQuery, map[string]any{"first": defaultFirst(first), "after": after}, &data); err != nil {
		return Page{}, err
	}
	tweets := normalize.TweetsFromGraph(data.Timeline.Nodes())
	return Page{
		Tweets:      tweets,
		TotalCount:  data.Timeline.TotalCount.IntOr(len(tweets)),
		HasNextPage: data.Timeline.PageInfo.HasNextPage,
		EndCursor:   data.Timeline.PageInfo.EndCursor,
	}, nil
}

func (c *Client) ValidPayments(ctx context.Context) ([]model.ValidPayment, error) {
	var data struct {
		ValidPayments []normalize.GraphValidPayment `json:"validPayments"`
	}
	if err := c.Do(ctx, ValidPaymentQuery, nil, &data); err != nil {
		return nil, err
	}
	return lo.Map(data.ValidPayments, func(g normalize.GraphValidPayment, _ int) model.ValidPayment {
		return normalize.ValidPaymentFromGraph(g)
	}), nil
}

func (c *Client) ClaimableRewards(ctx context.Context) ([]model.ClaimableReward, error) {
	var data struct {
		ClaimableRewards []normalize.GraphReward `json:"claimableRewards"`
	}
	if err := c.Do(ctx, ClaimableRewardsQuery, nil, &data); err != nil {
		return nil, err
	}
	return lo.Map(data.ClaimableRewards, func(g normalize.GraphReward, _ int) model.ClaimableReward {
		return normalize.RewardFromGraph(g)
	}), nil
}

func (c *Client) TipsByPost(ctx context.Context) ([]model.TipsByPost, error) {
	var data struct {
		TipsByPost []normalize.GraphTipsByPost `json:"tipsByPost"`
	}
	if err := c.Do(ctx, TipsByPostQuery, nil, &data); err != nil {
		return nil, err
	}
	return lo.Map(data.TipsByPost, func(g normalize.GraphTipsByPost, _ int) model.TipsByPost {
		return normalize.TipsByPostFromGraph(g)
	}), nil
}

func (c *Client) TipBalances(ctx context.Context) ([]model.TipBalance, error) {
	var data struct {
		TipBalances []normalize.GraphTipBalance `json:"tipBalances"`
	}
	if err := c.Do(ctx, TipBalancesQuery, nil, &data); err != nil {
		return nil, err
	}
	return lo.Map(data.TipBalances, func(g normalize.GraphTipBalance, _ int) model.TipBalance {
		return normalize.TipBalanceFromGraph(g)
	}), nil
}

type tweetPayload struct {
	Tweet *normalize.GraphTweet `json:"tweet"`
}

func (p tweetPayload) tweet() model.Tweet {
	if p.Tweet == nil {
		return model.Tweet{}
	}
	return normalize.TweetFromGraph(*p.Tweet)
}

func (c *Client) CreateTweet(ctx context.Context, content string) (model.Tweet, error) {
	var data struct {
		TweetCreate tweetPayload `json:"tweetCreate"`
	}
	err := c.Do(ctx, CreateTweetMutation, map[string]any{"input": map[string]any{"content": content}}, &data)
	return data.TweetCreate.tweet(), err
}

func (c *Client) ReplyTweet(ctx context.Context, parentID, content string) (model.Tweet, error) {
	var data struct {
		TweetReply tweetPayload `json:"tweetReply"`
	}
	input := map[string]any{"content": content, "repliedToId": parentID}
	err := c.Do(ctx, ReplyTweetMutation, map[string]any{"input": input}, &data)
	return data.TweetReply.tweet(), err
}

func (c *Client) QuoteTweet(ctx context.Context, quotedID, content string) (model.Tweet, error) {
	var data struct {
		TweetQuote tweetPayload `json:"tweetQuote"`
	}
	input := map[string]any{"content": content, "quotedId": quotedID}
	err := c.Do(ctx, QuoteTweetMutation, map[string]any{"input": input}, &data)
	return data.TweetQuote.tweet(), err
}

func (c *Client) Retweet(ctx context.Context, id string) (model.Tweet, error) {
	var data struct {
		TweetRetweet tweetPayload `json:"tweetRetweet"`
	}
	err := c.Do(ctx, RetweetMutation, map[string]any{"id": id}, &data)
	return data.TweetRetweet.tweet(), err
}

// LikeResult is the tweet state after a like.
type LikeResult struct {
	ID            string
	LikeCount     int
	SmackCount    int
	LikedByViewer bool
	Energy        float64
}

// LikeTweet likes id. Each call carries a fresh idempotency key so the
// backend can drop duplicates of the same click.
func (c *Client) LikeTweet(ctx context.Context, id string) (LikeResult, error) {
	var data struct {
		TweetLike struct {
			ID            normalize.ObjectID `json:"id"`
			LikeCount     normalize.Number   `json:"likeCount"`
			SmackCount    normalize.Number   `json:"smackCount"`
			LikedByViewer normalize.Flag     `json:"likedByViewer"`
			Energy        normalize.Number   `json:"energy"`
		} `json:"tweetLike"`
	}
	vars := map[string]any{"id": id, "idempotencyKey": uuid.NewString()}
	if err := c.Do(ctx, LikeTweetMutation, vars, &data); err != nil {
		return LikeResult{}, err
	}
	l := data.TweetLike
	return LikeResult{
		ID:            l.ID.Or(id),
		LikeCount:     l.LikeCount.IntOr(0),
		SmackCount:    l.SmackCount.IntOr(0),
		LikedByViewer: l.LikedByViewer.Or(true),
		Energy:        l.Energy.Or(0),
	}, nil
}

type SmackResult struct {
	ID                 string
	Energy             float64
	TokensCharged      float64
	TokensPaidToAuthor float64
}

func (c *Client) SmackTweet(ctx context.Context, id string) (SmackResult, error) {
	var data struct {
		TweetSmack struct {
			ID                 normalize.ObjectID `json:"id"`
			Energy             normalize.Number   `json:"energy"`
			TokensCharged      normalize.Number   `json:"tokensCharged"`
			TokensPaidToAuthor normalize.Number   `json:"tokensPaidToAuthor"`
		} `json:"tweetSmack"`
	}
	vars := map[string]any{"id": id, "idempotencyKey": uuid.NewString()}
	if err := c.Do(ctx, SmackTweetMutation, vars, &data); err != nil {
		return SmackResult{}, err
	}
	s := data.TweetSmack
	return SmackResult{
		ID:                 s.ID.Or(id),
		Energy:             s.Energy.Or(0),
		TokensCharged:      s.TokensCharged.Or(0),
		TokensPaidToAuthor: s.TokensPaidToAuthor.Or(0),
	}, nil
}

// UserInput registers a user with the backend.
type UserInput struct {
	SupabaseID  string `json:"supabaseId,omitempty"`
	PrivyID     string `json:"privyId,omitempty"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	Bio         string `json:"bio,omitempty"`
}

func (c *Client) CreateUser(ctx context.Context, in UserInput) (model.User, error) {
	var data struct {
		UserCreate struct {
			User *normalize.GraphUser `json:"user"`
		} `json:"userCreate"`
	}
	if err := c.Do(ctx, CreateUserMutation, map[string]any{"input": in}, &data); err != nil {
		return model.User{}, err
	}
	if data.UserCreate.User == nil {
		return model.User{}, ErrNoData
	}
	return normalize.UserFromGraph(*data.UserCreate.User), nil
}

type followPayload struct {
	Success     normalize.Flag `json:"success"`
	IsFollowing normalize.Flag `json:"isFollowing"`
}

// FollowUser follows userID and returns the resulting state.
func (c *Client) FollowUser(ctx context.Context, userID string) (bool, error) {
	var data struct {
		FollowUser followPayload `json:"followUser"`
	}
	if err := c.Do(ctx, FollowUserMutation, map[string]any{"input": map[string]any{"followingId": userID}}, &data); err != nil {
		return false, err
	}
	if !data.FollowUser.Success.Or(true) {
		return false, &Error{Message: "Failed to follow user"}
	}
	return data.FollowUser.IsFollowing.Or(true), nil
}

func (c *Client) UnfollowUser(ctx context.Context, userID string) (bool, error) {
	var data struct {
		UnfollowUser followPayload `json:"unfollowUser"`
	}
	if err := c.Do(ctx, UnfollowUserMutation, map[string]any{"input": map[string]any{"followingId": userID}}, &data); err != nil {
		return true, err
	}
	if !data.UnfollowUser.Success.Or(true) {
		return true, &Error{Message: "Failed to unfollow user"}
	}
	return data.UnfollowUser.IsFollowing.Or(false), nil
}

func (c *Client) UpdateDefaultPaymentToken(ctx context.Context, tokenMint string) error {
	return c.Do(ctx, UpdateDefaultPaymentTokenMutation, map[string]any{"input": mintInput(tokenMint)}, nil)
}

func (c *Client) UpdateLanguage(ctx context.Context, language string) error {
	return c.Do(ctx, UpdateLanguageMutation, map[string]any{"input": map[string]any{"language": language}}, nil)
}

// ClaimResult is the on-chain outcome of a tip claim.
type ClaimResult struct {
	Signature     string
	AmountClaimed float64
}

// ClaimTips claims every unclaimed tip in tokenMint; an empty mint claims the default token.
func (c *Client) ClaimTips(ctx context.Context, tokenMint string) (ClaimResult, error) {
	var data struct {
		ClaimTips struct {
			Success       normalize.Flag   `json:"success"`
			Signature     string           `json:"signature"`
			AmountClaimed normalize.Number `json:"amountClaimed"`
		} `json:"claimTips"`
	}
	if err := c.Do(ctx, ClaimTipsMutation, map[string]any{"input": mintInput(tokenMint)}, &data); err != nil {
		return ClaimResult{}, err
	}
	if !data.ClaimTips.Success.Or(false) {
		return ClaimResult{}, &Error{Message: "Failed to claim tips"}
	}
	return ClaimResult{Signature: data.ClaimTips.Signature, AmountClaimed: data.ClaimTips.AmountClaimed.Or(0)}, nil
}

// ClaimTipsByPost claims the tips for one post and returns the signature.
func (c *Client) ClaimTipsByPost(ctx context.Context, postID, tokenMint string) (string, error) {
	var data struct {
		ClaimTipsByPost struct {
			Success   normalize.Flag `json:"success"`
			Signature string         `json:"signature"`
		} `json:"claimTipsByPost"`
	}
	input := mintInput(tokenMint)
	input["postId"] = postID
	if err := c.Do(ctx, ClaimTipsByPostMutation, map[string]any{"input": input}, &data); err != nil {
		return "", err
	}
	if !data.ClaimTipsByPost.Success.Or(false) {
		return "", &Error{Message: "Failed to claim tips"}
	}
	return data.ClaimTipsByPost.Signature, nil
}

func mintInput(tokenMint string) map[string]any {
	if tokenMint == "" {
		return map[string]any{"tokenMint": nil}
	}
	return map[string]any{"tokenMint": tokenMint}
}

func defaultFirst(n int) int {
	if n <= 0 {
		return 20
	}
	return n
}
