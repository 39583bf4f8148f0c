package apiclient

import (
	"context"
	"net/http"

	"eviltwitter/internal/grouping"
	"eviltwitter/internal/model"
	"eviltwitter/internal/normalize"
)

func (c *Client) Balances(ctx context.Context, userID string) ([]model.TokenBalance, error) {
	raw, err := c.doRaw(ctx, call{method: http.MethodGet, endpoint: "GET /economy/users/{id}/balances", path: "/economy/users/" + esc(userID) + "/balances"})
	if err != nil {
		return nil, err
	}
	return normalize.DecodeBalances(raw)
}

func (c *Client) Assets(ctx context.Context, userID string) ([]model.UserAsset, error) {
	raw, err := c.doRaw(ctx, call{method: http.MethodGet, endpoint: "GET /economy/users/{id}/assets", path: "/economy/users/" + esc(userID) + "/assets"})
	if err != nil {
		return nil, err
	}
	return normalize.DecodeAssets(raw)
}

func (c *Client) ShopItems(ctx context.Context) ([]model.ShopItem, error) {
	raw, err := c.doRaw(ctx, call{method: http.MethodGet, endpoint: "GET /economy/shop/items", path: "/economy/shop/items"})
	if err != nil {
		return nil, err
	}
	return normalize.DecodeShopItems(raw)
}

func (c *Client) Listings(ctx context.Context) ([]model.MarketplaceListing, error) {
	raw, err := c.doRaw(ctx, call{method: http.MethodGet, endpoint: "GET /economy/marketplace/listings", path: "/economy/marketplace/listings"})
	if err != nil {
		return nil, err
	}
	return normalize.DecodeListings(raw)
}

// PurchaseItem buys one unit of a shop item for the session user.
func (c *Client) PurchaseItem(ctx context.Context, itemID string) error {
	return c.do(ctx, call{
		method:      http.MethodPost,
		endpoint:    "POST /economy/shop/items/{id}/purchase",
		path:        "/economy/shop/items/" + esc(itemID) + "/purchase",
		body:        struct{}{},
		requireAuth: true,
	}, nil)
}

type listingBody struct {
	AssetID     string  `json:"asset_id"`
	PriceToken  string  `json:"price_token"`
	PriceAmount float64 `json:"price_amount"`
	FeeBps      int     `json:"fee_bps"`
}

// CreateListing puts a validated listing on the marketplace. FeeBps defaults to 250.
func (c *Client) CreateListing(ctx context.Context, req grouping.ListingRequest) (model.MarketplaceListing, error) {
	fee := 250
	if req.FeeBps != nil {
		fee = *req.FeeBps
	}
	var doc normalize.DocListing
	err := c.do(ctx, call{
		method:   http.MethodPost,
		endpoint: "POST /economy/marketplace/listings",
		path:     "/economy/marketplace/listings",
		body: listingBody{
			AssetID:     req.AssetID,
			PriceToken:  req.PriceToken,
			PriceAmount: req.PriceAmount.InexactFloat64(),
			FeeBps:      fee,
		},
		requireAuth: true,
	}, &doc)
	if err != nil {
		return model.MarketplaceListing{}, err
	}
	return normalize.ListingFromDoc(doc), nil
}

func (c *Client) BuyListing(ctx context.Context, listingID string) error {
	return c.do(ctx, call{
		method:      http.MethodPost,
		endpoint:    "POST /economy/marketplace/listings/{id}/buy",
		path:        "/economy/marketplace/listings/" + esc(listingID) + "/buy",
		body:        struct{}{},
		requireAuth: true,
	}, nil)
}

func (c *Client) CancelListing(ctx context.Context, listingID string) error {
	return c.do(ctx, call{
		method:      http.MethodDelete,
		endpoint:    "DELETE /economy/marketplace/listings/{id}",
		path:        "/economy/marketplace/listings/" + esc(listingID),
		requireAuth: true,
	}, nil)
}
