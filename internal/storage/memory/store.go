package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/keymint/keymint/internal/domain"
)

// Store is an in-memory implementation of the storage interface for testing.
// It mirrors the SQL store's semantics, including all-or-nothing batches and
// the single-winner redemption guarantee.
type Store struct {
	mu sync.RWMutex

	products map[string]*domain.Product              // key: name
	keys     map[string]*domain.Key                  // key: key_hash
	links    map[string]*domain.ExternalDeliveryLink // key: product_id
	ledger   []*domain.Redemption
	targets  map[string]*string // key: tenant_id
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		products: make(map[string]*domain.Product),
		keys:     make(map[string]*domain.Key),
		links:    make(map[string]*domain.ExternalDeliveryLink),
		targets:  make(map[string]*string),
	}
}

func (s *Store) Close() error { return nil }

// ============================================
// Keys
// ============================================

func (s *Store) InsertKeys(ctx context.Context, keys []*domain.Key) error {
	if len(keys) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before touching the map.
	batch := make(map[string]bool, len(keys))
	for _, key := range keys {
		if _, ok := s.products[key.ProductID]; !ok {
			return domain.ErrUnknownProduct
		}
		if _, ok := s.keys[key.KeyHash]; ok {
			return domain.ErrHashConflict
		}
		if batch[key.KeyHash] {
			return domain.ErrHashConflict
		}
		batch[key.KeyHash] = true
	}

	for _, key := range keys {
		k := *key
		s.keys[k.KeyHash] = &k
	}
	return nil
}

func (s *Store) GetKeyByHash(ctx context.Context, keyHash string) (*domain.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[keyHash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	k := *key
	return &k, nil
}

func (s *Store) RedeemKey(ctx context.Context, redemption *domain.Redemption) (*domain.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys[redemption.KeyHash]
	if !ok {
		return nil, domain.ErrInvalidKey
	}
	if key.Used {
		return nil, domain.ErrAlreadyRedeemed
	}
	key.Used = true

	redemption.ProductID = key.ProductID
	redemption.RedeemedAt = time.Now().UTC()
	entry := *redemption
	s.ledger = append(s.ledger, &entry)

	k := *key
	return &k, nil
}

func (s *Store) KeyStatsByProduct(ctx context.Context) ([]*domain.ProductKeyStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byProduct := make(map[string]*domain.ProductKeyStats)
	for _, key := range s.keys {
		stats, ok := byProduct[key.ProductID]
		if !ok {
			stats = &domain.ProductKeyStats{ProductID: key.ProductID}
			byProduct[key.ProductID] = stats
		}
		stats.Total++
		if key.Used {
			stats.Used++
		} else {
			stats.Unused++
		}
	}

	out := make([]*domain.ProductKeyStats, 0, len(byProduct))
	for _, stats := range byProduct {
		out = append(out, stats)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

// ============================================
// Products
// ============================================

func (s *Store) UpsertProduct(ctx context.Context, product *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	p := *product
	if existing, ok := s.products[p.Name]; ok {
		p.CreatedAt = existing.CreatedAt
	} else if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.products[p.Name] = &p

	product.CreatedAt = p.CreatedAt
	product.UpdatedAt = p.UpdatedAt
	return nil
}

func (s *Store) GetProduct(ctx context.Context, name string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p := *product
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Product, 0, len(s.products))
	for _, product := range s.products {
		p := *product
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) DeleteProduct(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[name]; !ok {
		return domain.ErrNotFound
	}
	delete(s.products, name)
	delete(s.links, name)
	return nil
}

// ============================================
// External delivery links
// ============================================

func (s *Store) LinkExternalDelivery(ctx context.Context, link *domain.ExternalDeliveryLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[link.ProductID]; !ok {
		return domain.ErrUnknownProduct
	}
	l := *link
	s.links[l.ProductID] = &l
	return nil
}

func (s *Store) GetExternalDelivery(ctx context.Context, productID string) (*domain.ExternalDeliveryLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.links[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	l := *link
	return &l, nil
}

// ============================================
// Redemption ledger
// ============================================

func (s *Store) RecentRedemptions(ctx context.Context, limit int) ([]*domain.Redemption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 0 {
		limit = 0
	}

	out := make([]*domain.Redemption, 0, len(s.ledger))
	for _, entry := range s.ledger {
		e := *entry
		out = append(out, &e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RedeemedAt.After(out[j].RedeemedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) LatestRedemptionForHash(ctx context.Context, keyHash string) (*domain.Redemption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.Redemption
	for _, entry := range s.ledger {
		if entry.KeyHash != keyHash {
			continue
		}
		if latest == nil || entry.RedeemedAt.After(latest.RedeemedAt) {
			latest = entry
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	e := *latest
	return &e, nil
}

// ============================================
// Tenant settings
// ============================================

func (s *Store) SetNotificationTarget(ctx context.Context, tenantID string, target *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if target == nil {
		s.targets[tenantID] = nil
		return nil
	}
	t := *target
	s.targets[tenantID] = &t
	return nil
}

func (s *Store) GetNotificationTarget(ctx context.Context, tenantID string) (*string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	target, ok := s.targets[tenantID]
	if !ok || target == nil {
		return nil, nil
	}
	t := *target
	return &t, nil
}
