package grouping

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eviltwitter/internal/config"
	"eviltwitter/internal/model"
	"eviltwitter/internal/tokens"
)

func TestGroupRewardsTotals(t *testing.T) {
	rewards := []model.ClaimableReward{
		{PostIDHash: "h1", TweetID: "t1", TokenMint: "unknown", Amount: "1000000000"},
		{PostIDHash: "h2", TweetID: "t2", TokenMint: "unknown", Amount: "5"},
		{PostIDHash: "h1", TweetID: "t1", TokenMint: "unknown", Amount: "2000000000"},
	}
	groups := GroupRewards(rewards, nil)
	require.Len(t, groups, 2)
	assert.Equal(t, "h1", groups[0].PostIDHash)
	assert.Len(t, groups[0].Rewards, 2)
	assert.True(t, groups[0].Total.Equal(decimal.NewFromInt(3)), groups[0].Total.String())
	assert.Equal(t, "h2", groups[1].PostIDHash)
}

func TestGroupRewardsUsesRegistryDecimals(t *testing.T) {
	reg := tokens.NewRegistry(config.TokensConfig{BlingMint: "bling", USDCMint: "usdc"})
	rewards := []model.ClaimableReward{
		{PostIDHash: "h", TweetID: "t", TokenMint: "usdc", Amount: "2500000"},
		{PostIDHash: "h", TweetID: "t", TokenMint: "bling", Amount: "500000000"},
		{PostIDHash: "h", TweetID: "t", TokenMint: "bling", Amount: "garbage"},
	}
	groups := GroupRewards(rewards, reg)
	require.Len(t, groups, 1)
	assert.Equal(t, "3", groups[0].Total.String())
	by := groups[0].TotalByMint(reg)
	assert.Equal(t, "2.5", by["usdc"].String())
	assert.Equal(t, "0.5", by["bling"].String())
	assert.ElementsMatch(t, []string{"usdc", "bling"}, groups[0].Mints())
}

func TestGroupRewardsSamePostDifferentTweet(t *testing.T) {
	groups := GroupRewards([]model.ClaimableReward{
		{PostIDHash: "h", TweetID: "a", Amount: "1"},
		{PostIDHash: "h", TweetID: "b", Amount: "1"},
	}, nil)
	assert.Len(t, groups, 2)
	assert.Empty(t, GroupRewards(nil, nil))
}

func TestTipViews(t *testing.T) {
	tips := []model.TipsByPost{
		{PostID: "p1", TokenMint: "bling", TotalAmount: 2},
		{PostID: "p1", TokenMint: "usdc", TotalAmount: 1},
		{PostID: "p2", TokenMint: "bling", TotalAmount: 3},
		{PostID: "p3", TokenMint: "bling", TotalAmount: 10, Claimed: true},
		{PostIDHash: "hh", TokenMint: "usdc", TotalAmount: 4},
	}
	byToken := GroupTipsByToken(tips)
	assert.Equal(t, []model.TipBalance{{TokenMint: "bling", Amount: 5}, {TokenMint: "usdc", Amount: 5}}, byToken)

	byPost := GroupTipsByPost(tips)
	require.Len(t, byPost, 4)
	assert.Equal(t, "p1", byPost[0].PostID)
	assert.Len(t, byPost[0].Tips, 2)
	assert.True(t, byPost[0].Claimable())
	assert.False(t, byPost[2].Claimable())
	assert.Empty(t, byPost[2].Unclaimed())
	assert.Equal(t, "hh", byPost[3].PostIDHash)
}

func TestFilters(t *testing.T) {
	items := []model.ShopItem{{ID: "a", IsActive: true}, {ID: "b"}}
	assert.Len(t, ActiveShopItems(items), 1)

	assets := []model.UserAsset{
		{ID: "ok", Tradeable: true, Status: "active"},
		{ID: "locked", Tradeable: true, IsLocked: true, Status: "active"},
		{ID: "listed", Tradeable: true, Status: "listed"},
	}
	listable := ListableAssets(assets)
	require.Len(t, listable, 1)
	assert.Equal(t, "ok", listable[0].ID)

	listings := []model.MarketplaceListing{
		{ID: "1", SellerID: "me", Status: "active"},
		{ID: "2", SellerID: "me", Status: "filled"},
		{ID: "3", SellerID: "you", Status: "active"},
	}
	assert.Len(t, ActiveListings(listings), 2)
	assert.Len(t, ListingsBySeller(listings, "me"), 2)
}

func TestListingFormValidate(t *testing.T) {
	fee := 300
	req, err := ListingForm{UserID: "u", AssetID: "a", PriceToken: " evl ", PriceAmount: "12.50", FeeBps: &fee}.Validate()
	require.NoError(t, err)
	assert.Equal(t, "EVL", req.PriceToken)
	assert.Equal(t, "12.5", req.PriceAmount.String())

	cases := map[string]ListingForm{
		"AssetID":     {UserID: "u", PriceToken: "EVL", PriceAmount: "1"},
		"PriceAmount": {UserID: "u", AssetID: "a", PriceToken: "EVL", PriceAmount: "abc"},
		"PriceToken":  {UserID: "u", AssetID: "a", PriceToken: "E-V", PriceAmount: "1"},
	}
	for field, form := range cases {
		_, err := form.Validate()
		var fe *FieldError
		require.ErrorAs(t, err, &fe, field)
		assert.Equal(t, field, fe.Field)
	}

	_, err = ListingForm{UserID: "u", AssetID: "a", PriceToken: "EVL", PriceAmount: "0"}.Validate()
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "gt", fe.Rule)

	bad := 20000
	_, err = ListingForm{UserID: "u", AssetID: "a", PriceToken: "EVL", PriceAmount: "1", FeeBps: &bad}.Validate()
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "FeeBps", fe.Field)
}
