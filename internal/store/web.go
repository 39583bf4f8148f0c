package store

import (
	"context"
	"strings"

	"eviltwitter/internal/apiclient"
	"eviltwitter/internal/graphql"
	"eviltwitter/internal/model"
)

// The web client sends tweet, follow and account mutations through GraphQL
// and keeps REST for everything else. These adapters swap only those calls.

type webTweets struct {
	TweetAPI
	gql GraphAPI
}

func (w webTweets) CreateTweet(ctx context.Context, content string) (model.Tweet, error) {
	return w.gql.CreateTweet(ctx, content)
}

func (w webTweets) Reply(ctx context.Context, parentID, content string) (model.Tweet, error) {
	return w.gql.ReplyTweet(ctx, parentID, content)
}

func (w webTweets) Quote(ctx context.Context, quotedID, content string) (model.Tweet, error) {
	return w.gql.QuoteTweet(ctx, quotedID, content)
}

func (w webTweets) Retweet(ctx context.Context, id string) (model.Tweet, error) {
	return w.gql.Retweet(ctx, id)
}

type webFollows struct {
	FollowAPI
	gql GraphAPI
}

func (w webFollows) Follow(ctx context.Context, target string) (bool, error) {
	return w.gql.FollowUser(ctx, target)
}

func (w webFollows) Unfollow(ctx context.Context, target string) (bool, error) {
	return w.gql.UnfollowUser(ctx, target)
}

type webUsers struct {
	UserAPI
	gql GraphAPI
}

func (w webUsers) CreateUser(ctx context.Context, u apiclient.NewUser) (model.User, error) {
	return w.gql.CreateUser(ctx, userInput(u))
}

// userInput routes the auth id to the provider field it belongs to.
func userInput(u apiclient.NewUser) graphql.UserInput {
	in := graphql.UserInput{
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		AvatarURL:   u.AvatarURL,
		Bio:         u.Bio,
	}
	if strings.HasPrefix(u.AuthID, "did:privy:") {
		in.PrivyID = u.AuthID
	} else {
		in.SupabaseID = u.AuthID
	}
	if in.DisplayName == "" {
		in.DisplayName = u.Username
	}
	return in
}
