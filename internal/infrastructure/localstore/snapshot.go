package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bookstore/storefront/internal/domain/cart"
	"github.com/bookstore/storefront/internal/domain/shared/valueobject"
)

const snapshotVersion = 1

// snapshotRecord is the stored form of the cart
type snapshotRecord struct {
	Version int        `json:"version"`
	SavedAt time.Time  `json:"saved_at"`
	Cart    cart.State `json:"cart"`
}

// CartSnapshotStore stores the whole cart under one fixed key
type CartSnapshotStore struct {
	store    Store
	key      string
	currency valueobject.Currency
}

// NewCartSnapshotStore creates a snapshot store writing to key
func NewCartSnapshotStore(store Store, key string, currency valueobject.Currency) *CartSnapshotStore {
	return &CartSnapshotStore{store: store, key: key, currency: currency}
}

// Load returns the stored cart. A missing snapshot yields an empty cart and
// found=false.
func (s *CartSnapshotStore) Load(ctx context.Context) (cart.State, bool, error) {
	data, err := s.store.Get(ctx, s.key)
	if errors.Is(err, ErrNotFound) {
		return cart.Empty(s.currency), false, nil
	}
	if err != nil {
		return cart.Empty(s.currency), false, err
	}

	var rec snapshotRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return cart.Empty(s.currency), false, fmt.Errorf("corrupt cart snapshot: %w", err)
	}
	if rec.Version > snapshotVersion {
		return cart.Empty(s.currency), false, fmt.Errorf("cart snapshot version %d is newer than supported %d", rec.Version, snapshotVersion)
	}
	return rec.Cart, true, nil
}

// Save overwrites the stored cart
func (s *CartSnapshotStore) Save(ctx context.Context, state cart.State) error {
	data, err := json.Marshal(snapshotRecord{
		Version: snapshotVersion,
		SavedAt: time.Now().UTC(),
		Cart:    state,
	})
	if err != nil {
		return fmt.Errorf("failed to encode cart snapshot: %w", err)
	}
	return s.store.Set(ctx, s.key, data)
}

// Purge deletes the stored cart
func (s *CartSnapshotStore) Purge(ctx context.Context) error {
	return s.store.Delete(ctx, s.key)
}

var _ cart.LocalStore = (*CartSnapshotStore)(nil)
