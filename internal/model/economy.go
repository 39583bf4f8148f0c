package model

import "time"

// ListingStatusActive is the only status a listing or asset can be traded in.
const ListingStatusActive = "active"

// TokenBalance is a user's holding of one token as recorded by the backend.
type TokenBalance struct {
	ID          string
	TokenSymbol string
	Available   float64
	Locked      float64
	UpdatedAt   *time.Time
}

type ShopItem struct {
	ID              string
	Name            string
	Description     string
	MediaURL        string
	AssetBlueprint  string
	PriceToken      string
	PriceAmount     float64
	TotalSupply     *int
	RemainingSupply *int
	IsActive        bool
}

// UserAsset is an item owned by a user, possibly tradeable on the marketplace.
type UserAsset struct {
	ID          string
	OwnerID     string
	AssetType   string
	Name        string
	Description string
	MediaURL    string
	Attributes  map[string]any
	Tradeable   bool
	IsLocked    bool
	Status      string
	CreatedAt   *time.Time
	UpdatedAt   *time.Time
}

// MarketplaceListing is an offer to sell an asset for PriceAmount plus FeeBps basis points.
type MarketplaceListing struct {
	ID          string
	AssetID     string
	SellerID    string
	PriceToken  string
	PriceAmount float64
	FeeBps      int
	Status      string
	BuyerID     string
	CreatedAt   *time.Time
	UpdatedAt   *time.Time
	FilledAt    *time.Time
}

// ClaimableReward is a settled payout for one post and token. Amount is in base units.
type ClaimableReward struct {
	TweetID    string
	PostIDHash string
	TokenMint  string
	Amount     string
	RewardType string
}

// TipsByPost is one row of the per-post tip ledger.
type TipsByPost struct {
	PostID      string
	PostIDHash  string
	TokenMint   string
	TotalAmount float64
	Claimed     bool
}

// TipBalance is the aggregate unclaimed tip amount for one token.
type TipBalance struct {
	TokenMint string
	Amount    float64
}

// ValidPayment is an on-chain payment token accepted by the program.
type ValidPayment struct {
	TokenMint string
	Symbol    string
	Decimals  int
	Enabled   bool
}

// CanListAsset reports whether an asset may be put on the marketplace.
func CanListAsset(a UserAsset) bool {
	return a.Tradeable && !a.IsLocked && a.Status == ListingStatusActive
}

// IsListingActive reports whether a listing can still be bought or cancelled.
func IsListingActive(l MarketplaceListing) bool {
	return l.Status == ListingStatusActive
}
