package normalize

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"

	"eviltwitter/internal/model"
)

const (
	defaultPriceToken = "EVL"
	defaultFeeBps     = 250
)

type DocBalance struct {
	ID          ObjectID  `json:"_id"`
	AltID       ObjectID  `json:"id"`
	TokenSymbol string    `json:"token_symbol"`
	Available   Number    `json:"available"`
	Locked      Number    `json:"locked"`
	UpdatedAt   MongoDate `json:"updated_at"`
}

func BalanceFromDoc(d DocBalance) model.TokenBalance {
	return model.TokenBalance{
		ID:          d.ID.Or(d.AltID.String()),
		TokenSymbol: firstNonEmpty(d.TokenSymbol, defaultPriceToken),
		Available:   d.Available.Or(0),
		Locked:      d.Locked.Or(0),
		UpdatedAt:   d.UpdatedAt.Ptr(),
	}
}

type DocShopItem struct {
	ID              ObjectID `json:"_id"`
	AltID           ObjectID `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	MediaURL        string   `json:"media_url"`
	AssetBlueprint  string   `json:"asset_blueprint"`
	PriceToken      string   `json:"price_token"`
	PriceAmount     Number   `json:"price_amount"`
	TotalSupply     Number   `json:"total_supply"`
	RemainingSupply Number   `json:"remaining_supply"`
	IsActive        Flag     `json:"is_active"`
}

func ShopItemFromDoc(d DocShopItem) model.ShopItem {
	return model.ShopItem{
		ID:              d.ID.Or(d.AltID.String()),
		Name:            firstNonEmpty(d.Name, "Mystery Pack"),
		Description:     d.Description,
		MediaURL:        d.MediaURL,
		AssetBlueprint:  firstNonEmpty(d.AssetBlueprint, "collectible"),
		PriceToken:      firstNonEmpty(d.PriceToken, defaultPriceToken),
		PriceAmount:     d.PriceAmount.Or(0),
		TotalSupply:     d.TotalSupply.IntPtr(),
		RemainingSupply: d.RemainingSupply.IntPtr(),
		IsActive:        d.IsActive.Or(false),
	}
}

type DocAsset struct {
	ID          ObjectID       `json:"_id"`
	AltID       ObjectID       `json:"id"`
	OwnerID     ObjectID       `json:"owner_id"`
	AssetType   string         `json:"asset_type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	MediaURL    string         `json:"media_url"`
	Attributes  map[string]any `json:"attributes"`
	Tradeable   Flag           `json:"tradeable"`
	IsLocked    Flag           `json:"is_locked"`
	Status      string         `json:"status"`
	CreatedAt   MongoDate      `json:"created_at"`
	UpdatedAt   MongoDate      `json:"updated_at"`
}

func AssetFromDoc(d DocAsset) model.UserAsset {
	return model.UserAsset{
		ID:          d.ID.Or(d.AltID.String()),
		OwnerID:     d.OwnerID.String(),
		AssetType:   firstNonEmpty(d.AssetType, "collectible"),
		Name:        firstNonEmpty(d.Name, "Unknown Asset"),
		Description: d.Description,
		MediaURL:    d.MediaURL,
		Attributes:  d.Attributes,
		Tradeable:   d.Tradeable.Or(false),
		IsLocked:    d.IsLocked.Or(false),
		Status:      firstNonEmpty(d.Status, model.ListingStatusActive),
		CreatedAt:   d.CreatedAt.Ptr(),
		UpdatedAt:   d.UpdatedAt.Ptr(),
	}
}

type DocListing struct {
	ID          ObjectID  `json:"_id"`
	AltID       ObjectID  `json:"id"`
	AssetID     ObjectID  `json:"asset_id"`
	SellerID    ObjectID  `json:"seller_id"`
	PriceToken  string    `json:"price_token"`
	PriceAmount Number    `json:"price_amount"`
	FeeBps      Number    `json:"fee_bps"`
	Status      string    `json:"status"`
	BuyerID     ObjectID  `json:"buyer_id"`
	CreatedAt   MongoDate `json:"created_at"`
	UpdatedAt   MongoDate `json:"updated_at"`
	FilledAt    MongoDate `json:"filled_at"`
}

func ListingFromDoc(d DocListing) model.MarketplaceListing {
	return model.MarketplaceListing{
		ID:          d.ID.Or(d.AltID.String()),
		AssetID:     d.AssetID.String(),
		SellerID:    d.SellerID.String(),
		PriceToken:  firstNonEmpty(d.PriceToken, defaultPriceToken),
		PriceAmount: d.PriceAmount.Or(0),
		FeeBps:      d.FeeBps.IntOr(defaultFeeBps),
		Status:      firstNonEmpty(d.Status, model.ListingStatusActive),
		BuyerID:     d.BuyerID.String(),
		CreatedAt:   d.CreatedAt.Ptr(),
		UpdatedAt:   d.UpdatedAt.Ptr(),
		FilledAt:    d.FilledAt.Ptr(),
	}
}

type DocWeapon struct {
	ID            ObjectID `json:"_id"`
	AltID         ObjectID `json:"id"`
	OwnerID       ObjectID `json:"owner_id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	ImageURL      string   `json:"image_url"`
	Damage        Number   `json:"damage"`
	Health        Number   `json:"health"`
	MaxHealth     Number   `json:"max_health"`
	DegradePerUse Number   `json:"degrade_per_use"`
}

func WeaponFromDoc(d DocWeapon) model.Weapon {
	return model.Weapon{
		ID:            d.ID.Or(d.AltID.String()),
		OwnerID:       d.OwnerID.String(),
		Name:          d.Name,
		Description:   d.Description,
		ImageURL:      d.ImageURL,
		Damage:        d.Damage.Or(0),
		Health:        d.Health.Or(0),
		MaxHealth:     d.MaxHealth.Or(d.Health.Or(0)),
		DegradePerUse: d.DegradePerUse.Or(0),
	}
}

type DocCatalogItem struct {
	ID          ObjectID `json:"id"`
	OID         ObjectID `json:"_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Emoji       string   `json:"emoji"`
	ImageURL    string   `json:"image_url"`
	Price       Number   `json:"price"`
	Damage      Number   `json:"damage"`
	Health      Number   `json:"health"`
}

func CatalogItemFromDoc(d DocCatalogItem) model.CatalogItem {
	return model.CatalogItem{
		ID:          d.ID.Or(d.OID.String()),
		Name:        d.Name,
		Description: d.Description,
		Emoji:       firstNonEmpty(d.Emoji, d.ImageURL),
		Price:       d.Price.Or(0),
		Damage:      d.Damage.Or(0),
		Health:      d.Health.Or(0),
	}
}

// DecodeBalances accepts a bare array or {"balances": [...]}.
func DecodeBalances(b []byte) ([]model.TokenBalance, error) {
	var docs []DocBalance
	if err := decodeList(b, "balances", &docs); err != nil {
		return nil, err
	}
	return lo.Map(docs, func(d DocBalance, _ int) model.TokenBalance { return BalanceFromDoc(d) }), nil
}

func DecodeShopItems(b []byte) ([]model.ShopItem, error) {
	var docs []DocShopItem
	if err := decodeList(b, "items", &docs); err != nil {
		return nil, err
	}
	return lo.Map(docs, func(d DocShopItem, _ int) model.ShopItem { return ShopItemFromDoc(d) }), nil
}

func DecodeAssets(b []byte) ([]model.UserAsset, error) {
	var docs []DocAsset
	if err := decodeList(b, "assets", &docs); err != nil {
		return nil, err
	}
	return lo.Map(docs, func(d DocAsset, _ int) model.UserAsset { return AssetFromDoc(d) }), nil
}

func DecodeListings(b []byte) ([]model.MarketplaceListing, error) {
	var docs []DocListing
	if err := decodeList(b, "listings", &docs); err != nil {
		return nil, err
	}
	return lo.Map(docs, func(d DocListing, _ int) model.MarketplaceListing { return ListingFromDoc(d) }), nil
}

func DecodeWeapons(b []byte) ([]model.Weapon, error) {
	var docs []DocWeapon
	if err := decodeList(b, "weapons", &docs); err != nil {
		return nil, err
	}
	return lo.Map(docs, func(d DocWeapon, _ int) model.Weapon { return WeaponFromDoc(d) }), nil
}

func DecodeCatalog(b []byte) ([]model.CatalogItem, error) {
	var docs []DocCatalogItem
	if err := decodeList(b, "catalog", &docs); err != nil {
		return nil, err
	}
	return lo.Map(docs, func(d DocCatalogItem, _ int) model.CatalogItem { return CatalogItemFromDoc(d) }), nil
}

func DecodeIntimateRequests(b []byte) ([]model.IntimateFollowRequest, error) {
	var docs []DocIntimateRequest
	if err := decodeList(b, "requests", &docs); err != nil {
		return nil, err
	}
	return lo.Map(docs, func(d DocIntimateRequest, _ int) model.IntimateFollowRequest { return IntimateRequestFromDoc(d) }), nil
}

// GraphReward is a claimableRewards node.
type GraphReward struct {
	TweetID    ObjectID `json:"tweetId"`
	PostIDHash string   `json:"postIdHash"`
	TokenMint  string   `json:"tokenMint"`
	Amount     Number   `json:"amount"`
	AmountRaw  string   `json:"-"`
	RewardType string   `json:"rewardType"`
}

// UnmarshalJSON keeps the amount's original text so base-unit integers are
// not rounded through float64.
func (r *GraphReward) UnmarshalJSON(b []byte) error {
	type plain GraphReward
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	var raw struct {
		Amount jsoniter.RawMessage `json:"amount"`
	}
	_ = json.Unmarshal(b, &raw)
	*r = GraphReward(p)
	r.AmountRaw = trimQuotes(string(raw.Amount))
	return nil
}

func RewardFromGraph(g GraphReward) model.ClaimableReward {
	amount := g.AmountRaw
	if amount == "" || amount == "null" {
		amount = "0"
	}
	return model.ClaimableReward{
		TweetID:    g.TweetID.String(),
		PostIDHash: g.PostIDHash,
		TokenMint:  g.TokenMint,
		Amount:     amount,
		RewardType: g.RewardType,
	}
}

type GraphTipsByPost struct {
	PostID      ObjectID `json:"postId"`
	PostIDHash  string   `json:"postIdHash"`
	TokenMint   string   `json:"tokenMint"`
	TotalAmount Number   `json:"totalAmount"`
	Claimed     Flag     `json:"claimed"`
}

func TipsByPostFromGraph(g GraphTipsByPost) model.TipsByPost {
	return model.TipsByPost{
		PostID:      g.PostID.String(),
		PostIDHash:  g.PostIDHash,
		TokenMint:   g.TokenMint,
		TotalAmount: g.TotalAmount.Or(0),
		Claimed:     g.Claimed.Or(false),
	}
}

type GraphTipBalance struct {
	TokenMint string `json:"tokenMint"`
	Amount    Number `json:"amount"`
}

func TipBalanceFromGraph(g GraphTipBalance) model.TipBalance {
	return model.TipBalance{TokenMint: g.TokenMint, Amount: g.Amount.Or(0)}
}

type GraphValidPayment struct {
	TokenMint string `json:"tokenMint"`
	Symbol    string `json:"symbol"`
	Decimals  Number `json:"decimals"`
	Enabled   Flag   `json:"enabled"`
}

func ValidPaymentFromGraph(g GraphValidPayment) model.ValidPayment {
	return model.ValidPayment{
		TokenMint: g.TokenMint,
		Symbol:    g.Symbol,
		Decimals:  g.Decimals.IntOr(0),
		Enabled:   g.Enabled.Or(false),
	}
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
