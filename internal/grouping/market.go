package grouping

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"eviltwitter/internal/model"
)

func ActiveShopItems(items []model.ShopItem) []model.ShopItem {
	return lo.Filter(items, func(it model.ShopItem, _ int) bool { return it.IsActive })
}

// ListableAssets keeps the assets that may be put on the marketplace.
func ListableAssets(assets []model.UserAsset) []model.UserAsset {
	return lo.Filter(assets, func(a model.UserAsset, _ int) bool { return model.CanListAsset(a) })
}

func ActiveListings(listings []model.MarketplaceListing) []model.MarketplaceListing {
	return lo.Filter(listings, func(l model.MarketplaceListing, _ int) bool { return model.IsListingActive(l) })
}

// ListingsBySeller returns the listings posted by seller, in any status.
func ListingsBySeller(listings []model.MarketplaceListing, seller string) []model.MarketplaceListing {
	return lo.Filter(listings, func(l model.MarketplaceListing, _ int) bool { return l.SellerID == seller })
}

// ListingForm is the raw user input for a new marketplace listing.
type ListingForm struct {
	UserID      string `validate:"required"`
	AssetID     string `validate:"required"`
	PriceToken  string `validate:"required,alphanum,max=16"`
	PriceAmount string `validate:"required,numeric"`
	FeeBps      *int   `validate:"omitempty,gte=0,lte=10000"`
}

// ListingRequest is a validated listing ready to send.
type ListingRequest struct {
	UserID      string
	AssetID     string
	PriceToken  string
	PriceAmount decimal.Decimal
	FeeBps      *int
}

var validate = validator.New()

// FieldError is a validation failure on one form field.
type FieldError struct {
	Field string
	Rule  string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", strings.ToLower(e.Field), e.Rule)
}

// Validate checks the form and converts it into a request. Errors are
// *FieldError values.
func (f ListingForm) Validate() (ListingRequest, error) {
	f.PriceToken = strings.ToUpper(strings.TrimSpace(f.PriceToken))
	f.PriceAmount = strings.TrimSpace(f.PriceAmount)
	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return ListingRequest{}, &FieldError{Field: verrs[0].Field(), Rule: verrs[0].Tag()}
		}
		return ListingRequest{}, err
	}
	price, err := decimal.NewFromString(f.PriceAmount)
	if err != nil {
		return ListingRequest{}, &FieldError{Field: "PriceAmount", Rule: "numeric"}
	}
	if !price.IsPositive() {
		return ListingRequest{}, &FieldError{Field: "PriceAmount", Rule: "gt"}
	}
	return ListingRequest{
		UserID:      f.UserID,
		AssetID:     f.AssetID,
		PriceToken:  f.PriceToken,
		PriceAmount: price,
		FeeBps:      f.FeeBps,
	}, nil
}
