package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/keymint/keymint/internal/delivery"
	"github.com/keymint/keymint/internal/domain"
	"github.com/keymint/keymint/internal/keygen"
	"github.com/keymint/keymint/internal/metrics"
	"github.com/keymint/keymint/internal/notify"
	"github.com/keymint/keymint/internal/storage"
	"github.com/keymint/keymint/internal/validation"
)

// maxGenerateAttempts bounds batch regeneration when a fresh key collides
// with a stored digest. A collision is a 2^-256 event; the bound only keeps
// a corrupted store from looping forever.
const maxGenerateAttempts = 3

// Bounds for the recent-redemptions listing.
const (
	minRecentLimit = 1
	maxRecentLimit = 20
)

// notifyTimeout bounds the background notification send.
const notifyTimeout = 10 * time.Second

// LicenseService implements key generation, redemption and catalog
// management on top of a storage backend.
type LicenseService struct {
	store    storage.Storage
	notifier notify.Notifier
	delivery delivery.Client

	// newKey is swapped in tests to force digest collisions.
	newKey func() (string, string, error)
}

// New creates a LicenseService. The notifier may be nil to disable
// notifications; deliveryClient may be nil when no storefront is configured.
func New(store storage.Storage, notifier notify.Notifier, deliveryClient delivery.Client) *LicenseService {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &LicenseService{
		store:    store,
		notifier: notifier,
		delivery: deliveryClient,
		newKey:   keygen.New,
	}
}

// ============================================
// Key lifecycle
// ============================================

// Generate mints amount fresh keys for the product and stores their
// digests. The plaintext keys are returned exactly once and never persisted;
// a digest collision is retried with a new batch and never surfaces as such.
func (s *LicenseService) Generate(ctx context.Context, productName string, amount int) (*domain.GenerateKeysResponse, error) {
	if amount < 1 || amount > 50 {
		return nil, domain.ErrAmountOutOfRange
	}
	name := domain.NormalizeProductName(productName)
	if err := validation.ValidateProductName(name); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
	}

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		plain := make([]string, 0, amount)
		keys := make([]*domain.Key, 0, amount)
		now := time.Now().UTC()
		for i := 0; i < amount; i++ {
			key, hash, err := s.newKey()
			if err != nil {
				return nil, fmt.Errorf("generating key: %w", err)
			}
			plain = append(plain, key)
			keys = append(keys, &domain.Key{
				ID:        uuid.New().String(),
				KeyHash:   hash,
				ProductID: name,
				CreatedAt: now,
			})
		}

		err := s.store.InsertKeys(ctx, keys)
		if err == nil {
			metrics.KeysGenerated.WithLabelValues(name).Add(float64(amount))
			return &domain.GenerateKeysResponse{Product: name, Amount: amount, Keys: plain}, nil
		}
		if errors.Is(err, domain.ErrHashConflict) {
			// Throw the batch away and mint a new one.
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("generating keys for %s: %w", name, domain.ErrHashConflict)
}

// Redeem canonicalizes and hashes the submitted key, atomically marks it
// used and returns what it unlocks. Notification delivery happens after the
// redemption is committed and never affects the result.
func (s *LicenseService) Redeem(ctx context.Context, req *domain.RedeemRequest) (*domain.RedemptionResult, error) {
	canonical := keygen.Canonicalize(req.Key)
	if canonical == "" {
		metrics.Redemptions.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, domain.ErrInvalidKey
	}
	hash := keygen.Digest(canonical)

	redemption := &domain.Redemption{
		ID:         uuid.New().String(),
		KeyHash:    hash,
		RedeemerID: req.RedeemerID,
		TenantID:   req.TenantID,
	}
	key, err := s.store.RedeemKey(ctx, redemption)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidKey):
			metrics.Redemptions.WithLabelValues(metrics.OutcomeInvalid).Inc()
		case errors.Is(err, domain.ErrAlreadyRedeemed):
			metrics.Redemptions.WithLabelValues(metrics.OutcomeAlreadyUsed).Inc()
		}
		return nil, err
	}
	metrics.Redemptions.WithLabelValues(metrics.OutcomeRedeemed).Inc()

	result := &domain.RedemptionResult{
		ProductID:  key.ProductID,
		RedeemedAt: redemption.RedeemedAt,
	}
	// The product may have been deleted after the key was issued; the
	// redemption still succeeds, just without an entitlement.
	product, err := s.store.GetProduct(ctx, key.ProductID)
	if err == nil {
		result.EntitlementRef = product.EntitlementRef
	} else if !errors.Is(err, domain.ErrNotFound) {
		slog.Warn("Failed to load product for redeemed key", "product", key.ProductID, "error", err)
	}

	s.dispatchNotification(redemption, canonical)

	return result, nil
}

// dispatchNotification sends the redemption event in the background. A
// disabled target or a failed send is logged and dropped.
func (s *LicenseService) dispatchNotification(redemption *domain.Redemption, canonical string) {
	event := notify.RedemptionEvent{
		TenantID:   redemption.TenantID,
		RedeemerID: redemption.RedeemerID,
		ProductID:  redemption.ProductID,
		MaskedKey:  keygen.Mask(canonical),
		KeyHash:    redemption.KeyHash,
		RedeemedAt: redemption.RedeemedAt,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		target, err := s.store.GetNotificationTarget(ctx, event.TenantID)
		if err != nil {
			slog.Warn("Failed to load notification target", "tenant", event.TenantID, "error", err)
			metrics.NotificationFailures.Inc()
			return
		}
		if target == nil {
			return
		}
		if err := s.notifier.Notify(ctx, *target, event); err != nil {
			slog.Warn("Failed to send redemption notification", "tenant", event.TenantID, "error", err)
			metrics.NotificationFailures.Inc()
		}
	}()
}

// Lookup returns the administrative status of a submitted key, including
// the ledger entry when it has been redeemed.
func (s *LicenseService) Lookup(ctx context.Context, plaintext string) (*domain.KeyStatus, error) {
	canonical := keygen.Canonicalize(plaintext)
	if canonical == "" {
		return &domain.KeyStatus{}, nil
	}
	hash := keygen.Digest(canonical)

	key, err := s.store.GetKeyByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.KeyStatus{}, nil
		}
		return nil, err
	}

	status := &domain.KeyStatus{Found: true, Used: key.Used, Key: key}
	if key.Used {
		redemption, err := s.store.LatestRedemptionForHash(ctx, hash)
		if err == nil {
			status.Redemption = redemption
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return status, nil
}

// KeyStats aggregates used/unused counts per product.
func (s *LicenseService) KeyStats(ctx context.Context) ([]*domain.ProductKeyStats, error) {
	return s.store.KeyStatsByProduct(ctx)
}

// PushToExternalDelivery generates fresh keys and uploads them to the
// storefront variant linked to the product. The keys are committed locally
// before the upload; on a failed push the result is still returned along
// with the error so the operator can retry the upload by hand.
func (s *LicenseService) PushToExternalDelivery(ctx context.Context, productName string, amount int) (*domain.DeliveryPushResult, error) {
	if s.delivery == nil {
		return nil, fmt.Errorf("%w: external delivery is not configured", domain.ErrInvalidInput)
	}

	name := domain.NormalizeProductName(productName)
	link, err := s.store.GetExternalDelivery(ctx, name)
	if err != nil {
		return nil, err
	}

	resp, err := s.Generate(ctx, name, amount)
	if err != nil {
		return nil, err
	}
	result := &domain.DeliveryPushResult{
		Product: resp.Product,
		Amount:  resp.Amount,
		Keys:    resp.Keys,
	}

	if err := s.delivery.PushKeys(ctx, link.ExternalProductID, link.ExternalVariantID, resp.Keys); err != nil {
		metrics.DeliveryPushes.WithLabelValues("failed").Inc()
		return result, err
	}
	result.Pushed = true
	metrics.DeliveryPushes.WithLabelValues("success").Inc()
	return result, nil
}

// ============================================
// Products
// ============================================

// UpsertProduct creates or updates a product under its normalized name and
// returns the stored record.
func (s *LicenseService) UpsertProduct(ctx context.Context, rawName string, entitlementRef *string) (*domain.Product, error) {
	name := domain.NormalizeProductName(rawName)
	if err := validation.ValidateProductName(name); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
	}

	product := &domain.Product{Name: name, EntitlementRef: entitlementRef}
	if err := s.store.UpsertProduct(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// GetProduct looks a product up by any spelling of its name.
func (s *LicenseService) GetProduct(ctx context.Context, rawName string) (*domain.Product, error) {
	return s.store.GetProduct(ctx, domain.NormalizeProductName(rawName))
}

// ListProducts returns the catalog sorted by name.
func (s *LicenseService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.store.ListProducts(ctx)
}

// DeleteProduct removes a product and its delivery link. Issued keys and
// ledger entries survive.
func (s *LicenseService) DeleteProduct(ctx context.Context, rawName string) error {
	return s.store.DeleteProduct(ctx, domain.NormalizeProductName(rawName))
}

// LinkExternalDelivery ties a product to a storefront product/variant pair.
func (s *LicenseService) LinkExternalDelivery(ctx context.Context, rawName string, req *domain.LinkExternalDeliveryRequest) (*domain.ExternalDeliveryLink, error) {
	if req.ExternalProductID == "" || req.ExternalVariantID == "" {
		return nil, fmt.Errorf("%w: external product and variant ids are required", domain.ErrInvalidInput)
	}

	link := &domain.ExternalDeliveryLink{
		ProductID:         domain.NormalizeProductName(rawName),
		ExternalProductID: req.ExternalProductID,
		ExternalVariantID: req.ExternalVariantID,
	}
	if err := s.store.LinkExternalDelivery(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

// GetExternalDelivery returns the storefront link for a product.
func (s *LicenseService) GetExternalDelivery(ctx context.Context, rawName string) (*domain.ExternalDeliveryLink, error) {
	return s.store.GetExternalDelivery(ctx, domain.NormalizeProductName(rawName))
}

// ============================================
// Ledger and tenants
// ============================================

// RecentRedemptions lists the newest ledger entries. The limit is clamped
// to [1, 20].
func (s *LicenseService) RecentRedemptions(ctx context.Context, limit int) ([]*domain.Redemption, error) {
	if limit < minRecentLimit {
		limit = minRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	return s.store.RecentRedemptions(ctx, limit)
}

// SetNotificationTarget configures where a tenant's redemption
// notifications go; nil disables them.
func (s *LicenseService) SetNotificationTarget(ctx context.Context, tenantID string, target *string) error {
	if err := validation.ValidateActorID("tenant_id", tenantID); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
	}
	return s.store.SetNotificationTarget(ctx, tenantID, target)
}

// GetNotificationTarget returns the tenant's configured target, nil when
// notifications are disabled.
func (s *LicenseService) GetNotificationTarget(ctx context.Context, tenantID string) (*string, error) {
	return s.store.GetNotificationTarget(ctx, tenantID)
}
