package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"eviltwitter/internal/auth"
	"eviltwitter/internal/grouping"
	"eviltwitter/internal/model"
)

// DefaultToken is the price token selected until the user picks another.
const DefaultToken = "EVL"

// ActionState is the set of economy mutations in flight. Empty strings mean idle.
type ActionState struct {
	PurchasingItem    string
	ListingAsset      bool
	PurchasingListing string
	CancellingListing string
}

// EconomyStore holds balances, owned assets, the shop and the marketplace.
// Marketplace failures are kept apart from the rest in MarketErr.
type EconomyStore struct {
	mu            sync.RWMutex
	session       *auth.Session
	api           EconomyAPI
	rec           recorder
	balances      []model.TokenBalance
	assets        []model.UserAsset
	shop          []model.ShopItem
	listings      []model.MarketplaceListing
	loading       map[string]bool
	action        ActionState
	selectedToken string
	err           string
	marketErr     string
	gen           generations
}

func newEconomyStore(session *auth.Session, api EconomyAPI, rec recorder) *EconomyStore {
	return &EconomyStore{
		session:       session,
		api:           api,
		rec:           rec,
		loading:       make(map[string]bool),
		selectedToken: DefaultToken,
		gen:           generations{},
	}
}

func (s *EconomyStore) Balances() []model.TokenBalance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.balances)
}

func (s *EconomyStore) Assets() []model.UserAsset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.assets)
}

func (s *EconomyStore) Shop() []model.ShopItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.shop)
}

func (s *EconomyStore) Listings() []model.MarketplaceListing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.listings)
}

// ListableAssets are the owned assets that may be put up for sale.
func (s *EconomyStore) ListableAssets() []model.UserAsset {
	return grouping.ListableAssets(s.Assets())
}

// MyListings are the session user's listings in any status.
func (s *EconomyStore) MyListings() []model.MarketplaceListing {
	return grouping.ListingsBySeller(s.Listings(), s.session.UserID())
}

// Loading reports whether kind ("balances", "assets", "shop", "listings") is being fetched.
func (s *EconomyStore) Loading(kind string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading[kind]
}

func (s *EconomyStore) Action() ActionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.action
}

func (s *EconomyStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *EconomyStore) MarketErr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.marketErr
}

func (s *EconomyStore) SelectedToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedToken
}

func (s *EconomyStore) SelectToken(symbol string) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		symbol = DefaultToken
	}
	s.mu.Lock()
	s.selectedToken = symbol
	s.mu.Unlock()
}

// fetch runs one read under the generation guard for kind and applies the
// result with apply. Failures land in err, or marketErr for listings.
func fetch[T any](ctx context.Context, s *EconomyStore, kind string, call func(context.Context) (T, error), apply func(T)) error {
	s.mu.Lock()
	gen := s.gen.next(kind)
	s.loading[kind] = true
	if kind == "listings" {
		s.marketErr = ""
	} else {
		s.err = ""
	}
	s.mu.Unlock()

	v, err := call(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.gen.current(kind, gen) {
		stale("economy", kind)
		return nil
	}
	delete(s.loading, kind)
	if err != nil {
		msg := failed("economy", kind, err)
		if kind == "listings" {
			s.marketErr = msg
		} else {
			s.err = msg
		}
		return err
	}
	apply(v)
	return nil
}

// FetchBalances loads the session user's balances. It is a no-op without a user id.
func (s *EconomyStore) FetchBalances(ctx context.Context) error {
	uid := s.session.UserID()
	if uid == "" {
		return nil
	}
	return fetch(ctx, s, "balances",
		func(ctx context.Context) ([]model.TokenBalance, error) { return s.api.Balances(ctx, uid) },
		func(v []model.TokenBalance) { s.balances = v })
}

func (s *EconomyStore) FetchAssets(ctx context.Context) error {
	uid := s.session.UserID()
	if uid == "" {
		return nil
	}
	return fetch(ctx, s, "assets",
		func(ctx context.Context) ([]model.UserAsset, error) { return s.api.Assets(ctx, uid) },
		func(v []model.UserAsset) { s.assets = v })
}

func (s *EconomyStore) FetchShop(ctx context.Context) error {
	return fetch(ctx, s, "shop", s.api.ShopItems, func(v []model.ShopItem) { s.shop = v })
}

func (s *EconomyStore) FetchListings(ctx context.Context) error {
	return fetch(ctx, s, "listings", s.api.Listings, func(v []model.MarketplaceListing) { s.listings = v })
}

// RefreshAll fetches every economy view concurrently and returns the first error.
func (s *EconomyStore) RefreshAll(ctx context.Context) error {
	return s.refresh(ctx, s.FetchBalances, s.FetchAssets, s.FetchShop, s.FetchListings)
}

// refresh runs fetches concurrently. Each fetch records its own failure, so
// one failing view does not cancel the others.
func (s *EconomyStore) refresh(ctx context.Context, fetches ...func(context.Context) error) error {
	var g errgroup.Group
	for _, f := range fetches {
		f := f
		g.Go(func() error { return f(ctx) })
	}
	return g.Wait()
}

func (s *EconomyStore) deny(action string, market bool) error {
	err := auth.Required(action)
	s.mu.Lock()
	if market {
		s.marketErr = err.Error()
	} else {
		s.err = err.Error()
	}
	s.mu.Unlock()
	return err
}

// Purchase buys a shop item, then refreshes balances, assets and the shop.
func (s *EconomyStore) Purchase(ctx context.Context, itemID string) error {
	if !s.session.LoggedIn() {
		return s.deny("purchase items", false)
	}
	s.mu.Lock()
	s.action.PurchasingItem = itemID
	s.err = ""
	s.mu.Unlock()

	err := s.api.PurchaseItem(ctx, itemID)
	s.rec.record(ctx, "purchase", itemID, err)
	if err == nil {
		_ = s.refresh(ctx, s.FetchBalances, s.FetchAssets, s.FetchShop)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.action.PurchasingItem = ""
	if err != nil {
		s.err = failed("economy", "purchase", err)
		return err
	}
	return nil
}

// List validates form and puts the asset on the marketplace. Validation
// errors are returned as *grouping.FieldError and leave state untouched.
func (s *EconomyStore) List(ctx context.Context, form grouping.ListingForm) (model.MarketplaceListing, error) {
	if !s.session.LoggedIn() {
		return model.MarketplaceListing{}, s.deny("list assets", true)
	}
	if form.UserID == "" {
		form.UserID = s.session.UserID()
	}
	if form.PriceToken == "" {
		form.PriceToken = s.SelectedToken()
	}
	req, err := form.Validate()
	if err != nil {
		return model.MarketplaceListing{}, err
	}

	s.mu.Lock()
	s.action.ListingAsset = true
	s.marketErr = ""
	s.mu.Unlock()

	l, err := s.api.CreateListing(ctx, req)
	s.rec.record(ctx, "list", req.AssetID, err)
	if err == nil {
		_ = s.refresh(ctx, s.FetchAssets, s.FetchListings)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.action.ListingAsset = false
	if err != nil {
		s.marketErr = failed("economy", "list", err)
		return model.MarketplaceListing{}, err
	}
	return l, nil
}

// BuyListing buys a listing, then refreshes assets, balances and listings.
func (s *EconomyStore) BuyListing(ctx context.Context, listingID string) error {
	if !s.session.LoggedIn() {
		return s.deny("purchase listings", true)
	}
	s.mu.Lock()
	s.action.PurchasingListing = listingID
	s.marketErr = ""
	s.mu.Unlock()

	err := s.api.BuyListing(ctx, listingID)
	s.rec.record(ctx, "buy_listing", listingID, err)
	if err == nil {
		_ = s.refresh(ctx, s.FetchAssets, s.FetchBalances, s.FetchListings)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.action.PurchasingListing = ""
	if err != nil {
		s.marketErr = failed("economy", "buy_listing", err)
		return err
	}
	return nil
}

// CancelListing withdraws a listing, then refreshes assets and listings.
func (s *EconomyStore) CancelListing(ctx context.Context, listingID string) error {
	if !s.session.LoggedIn() {
		return s.deny("cancel listings", true)
	}
	s.mu.Lock()
	s.action.CancellingListing = listingID
	s.marketErr = ""
	s.mu.Unlock()

	err := s.api.CancelListing(ctx, listingID)
	s.rec.record(ctx, "cancel_listing", listingID, err)
	if err == nil {
		_ = s.refresh(ctx, s.FetchAssets, s.FetchListings)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.action.CancellingListing = ""
	if err != nil {
		s.marketErr = failed("economy", "cancel_listing", err)
		return err
	}
	return nil
}
