package store

import (
	"context"
	"slices"
	"sync"

	"eviltwitter/internal/auth"
	"eviltwitter/internal/model"
)

type WeaponStore struct {
	mu      sync.RWMutex
	session *auth.Session
	api     WeaponAPI
	rec     recorder
	catalog []model.CatalogItem
	owned   []model.Weapon
	loading bool
	buying  string
	err     string
	gen     generations
}

func newWeaponStore(session *auth.Session, api WeaponAPI, rec recorder) *WeaponStore {
	return &WeaponStore{session: session, api: api, rec: rec, gen: generations{}}
}

func (s *WeaponStore) Catalog() []model.CatalogItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.catalog)
}

func (s *WeaponStore) Owned() []model.Weapon {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.owned)
}

func (s *WeaponStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Buying returns the catalog id being purchased, "" when idle.
func (s *WeaponStore) Buying() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buying
}

func (s *WeaponStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *WeaponStore) FetchCatalog(ctx context.Context) error {
	s.mu.Lock()
	gen := s.gen.next("catalog")
	s.loading = true
	s.err = ""
	s.mu.Unlock()

	items, err := s.api.WeaponCatalog(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.gen.current("catalog", gen) {
		stale("weapons", "catalog")
		return nil
	}
	s.loading = false
	if err != nil {
		s.err = failed("weapons", "catalog", err)
		return err
	}
	s.catalog = items
	return nil
}

// FetchOwned loads the session user's weapons.
func (s *WeaponStore) FetchOwned(ctx context.Context) error {
	uid := s.session.UserID()
	if uid == "" {
		return nil
	}
	s.mu.Lock()
	gen := s.gen.next("owned")
	s.err = ""
	s.mu.Unlock()

	weapons, err := s.api.UserWeapons(ctx, uid)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.gen.current("owned", gen) {
		stale("weapons", "owned")
		return nil
	}
	if err != nil {
		s.err = failed("weapons", "owned", err)
		return err
	}
	s.owned = weapons
	return nil
}

// Buy purchases a catalog weapon and adds it to the owned list.
func (s *WeaponStore) Buy(ctx context.Context, catalogID string) (model.Weapon, error) {
	if !s.session.LoggedIn() {
		err := auth.Required("buy weapons")
		s.mu.Lock()
		s.err = err.Error()
		s.mu.Unlock()
		return model.Weapon{}, err
	}
	s.mu.Lock()
	s.buying = catalogID
	s.err = ""
	s.mu.Unlock()

	w, err := s.api.BuyWeapon(ctx, catalogID)
	s.rec.record(ctx, "buy_weapon", catalogID, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.buying = ""
	if err != nil {
		s.err = failed("weapons", "buy", err)
		return model.Weapon{}, err
	}
	s.owned = append(s.owned, w)
	// a concurrent FetchOwned started earlier would drop the new weapon
	s.gen.next("owned")
	return w, nil
}
