package graphql

// Operation is a named GraphQL document.
type Operation struct {
	Name     string
	Query    string
	Mutation bool
}

const metricsFields = `
      metrics { likes smacks retweets quotes replies impressions }`

const energyFields = `
      energyState {
        energy kineticEnergy potentialEnergy energyGainedFromSupport
        energyLostFromAttacks mass velocityInitial heightInitial
      }`

const authorFields = `
      author { username displayName avatarUrl }`

const nestedTweetFields = `
        id ownerId content tweetType replyDepth createdAt` + metricsFields + authorFields

const tweetFields = `
      id ownerId content tweetType replyDepth rootTweetId quotedTweetId repliedToTweetId
      createdAt updatedAt postIdHash` + metricsFields + energyFields + authorFields

const fullTweetFields = tweetFields + `
      quotedTweet {` + nestedTweetFields + ` }
      repliedToTweet {` + nestedTweetFields + ` }`

const userFields = `
      id supabaseId privyId username displayName email bio avatarUrl wallet
      followersCount followingCount tweetsCount createdAt isFollowedByViewer
      balances { dooler usdc bling sol }
      vaultBalances { bling usdc stablecoin }
      profile { id userId handle displayName avatarUrl bio status createdAt }`

var (
	ProfileQuery = Operation{Name: "Profile", Query: `
  query Profile($userId: ID!, $viewerId: ID, $first: Int) {
    user(id: $userId) {` + userFields + `
      isFollowedBy(viewerId: $viewerId)
      tweets(first: $first) {
        totalCount
        pageInfo { hasNextPage endCursor }
        edges { cursor node {` + fullTweetFields + ` } }
      }
    }
  }`}

	TweetThreadQuery = Operation{Name: "TweetThread", Query: `
  query TweetThread($tweetId: ID!) {
    tweetThread(tweetId: $tweetId) {
      tweet {` + fullTweetFields + ` }
      parents {` + tweetFields + ` }
      replies {` + tweetFields + ` }
    }
  }`}

	TimelineQuery = Operation{Name: "Timeline", Query: `
  query Timeline($first: Int, $after: String = "") {
    timeline(first: $first, after: $after) {
      totalCount
      pageInfo { hasNextPage endCursor }
      edges { cursor node {` + fullTweetFields + ` } }
    }
  }`}

	ValidPaymentQuery = Operation{Name: "ValidPayment", Query: `
  query ValidPayment {
    validPayments { tokenMint symbol decimals enabled }
  }`}

	ClaimableRewardsQuery = Operation{Name: "ClaimableRewards", Query: `
  query ClaimableRewards {
    claimableRewards { tweetId postIdHash tokenMint amount rewardType }
  }`}

	TipsByPostQuery = Operation{Name: "TipsByPost", Query: `
  query TipsByPost {
    tipsByPost { postId postIdHash tokenMint totalAmount claimed }
  }`}

	TipBalancesQuery = Operation{Name: "TipBalances", Query: `
  query TipBalances {
    tipBalances { tokenMint amount }
  }`}

	CreateTweetMutation = Operation{Name: "CreateTweet", Mutation: true, Query: `
  mutation CreateTweet($input: TweetCreateInput!) {
    tweetCreate(input: $input) {
      tweet {` + tweetFields + ` }
    }
  }`}

	LikeTweetMutation = Operation{Name: "LikeTweet", Mutation: true, Query: `
  mutation LikeTweet($id: ID!, $idempotencyKey: String) {
    tweetLike(id: $id, idempotencyKey: $idempotencyKey) {
      id likeCount smackCount likedByViewer energy
    }
  }`}

	SmackTweetMutation = Operation{Name: "SmackTweet", Mutation: true, Query: `
  mutation SmackTweet($id: ID!, $idempotencyKey: String) {
    tweetSmack(id: $id, idempotencyKey: $idempotencyKey) {
      id energy tokensCharged tokensPaidToAuthor
    }
  }`}

	ReplyTweetMutation = Operation{Name: "ReplyTweet", Mutation: true, Query: `
  mutation ReplyTweet($input: TweetReplyInput!) {
    tweetReply(input: $input) {
      tweet {` + tweetFields + ` }
    }
  }`}

	QuoteTweetMutation = Operation{Name: "QuoteTweet", Mutation: true, Query: `
  mutation QuoteTweet($input: TweetQuoteInput!) {
    tweetQuote(input: $input) {
      tweet {` + tweetFields + ` }
    }
  }`}

	RetweetMutation = Operation{Name: "Retweet", Mutation: true, Query: `
  mutation Retweet($id: ID!) {
    tweetRetweet(id: $id) {
      tweet {` + tweetFields + ` }
    }
  }`}

	CreateUserMutation = Operation{Name: "CreateUser", Mutation: true, Query: `
  mutation CreateUser($input: UserCreateInput!) {
    userCreate(input: $input) {
      user {` + userFields + ` }
    }
  }`}

	FollowUserMutation = Operation{Name: "FollowUser", Mutation: true, Query: `
  mutation FollowUser($input: FollowUserInput!) {
    followUser(input: $input) { success isFollowing }
  }`}

	UnfollowUserMutation = Operation{Name: "UnfollowUser", Mutation: true, Query: `
  mutation UnfollowUser($input: UnfollowUserInput!) {
    unfollowUser(input: $input) { success isFollowing }
  }`}

	UpdateDefaultPaymentTokenMutation = Operation{Name: "UpdateDefaultPaymentToken", Mutation: true, Query: `
  mutation UpdateDefaultPaymentToken($input: UpdateDefaultPaymentTokenInput!) {
    updateDefaultPaymentToken(input: $input) { id privyId wallet defaultPaymentToken }
  }`}

	UpdateLanguageMutation = Operation{Name: "UpdateLanguage", Mutation: true, Query: `
  mutation UpdateLanguage($input: UpdateLanguageInput!) {
    updateLanguage(input: $input) { id language }
  }`}

	ClaimTipsMutation = Operation{Name: "ClaimTips", Mutation: true, Query: `
  mutation ClaimTips($input: ClaimTipsInput!) {
    claimTips(input: $input) { success signature amountClaimed }
  }`}

	ClaimTipsByPostMutation = Operation{Name: "ClaimTipsByPost", Mutation: true, Query: `
  mutation ClaimTipsByPost($input: ClaimTipsByPostInput!) {
    claimTipsByPost(input: $input) { success signature }
  }`}
)
