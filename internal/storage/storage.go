package storage

import (
	"context"

	"github.com/keymint/keymint/internal/domain"
)

// Storage defines the interface for the storage layer.
// Implementations must be safe for concurrent use.
//
// Operations that touch more than one row (InsertKeys, RedeemKey,
// DeleteProduct) are atomic: they either fully apply or leave the store
// unchanged.
type Storage interface {
	// Close closes the storage connection.
	Close() error

	// Keys
	//
	// InsertKeys inserts a batch of pre-hashed keys for an existing
	// product. The batch is all-or-nothing: a hash collision returns
	// domain.ErrHashConflict and inserts none of the keys, a missing
	// product returns domain.ErrUnknownProduct.
	InsertKeys(ctx context.Context, keys []*domain.Key) error
	GetKeyByHash(ctx context.Context, keyHash string) (*domain.Key, error)
	// RedeemKey atomically marks the key used and appends the ledger
	// entry. Exactly one concurrent caller per hash observes success;
	// the rest get domain.ErrAlreadyRedeemed. An unknown hash returns
	// domain.ErrInvalidKey.
	RedeemKey(ctx context.Context, redemption *domain.Redemption) (*domain.Key, error)
	KeyStatsByProduct(ctx context.Context) ([]*domain.ProductKeyStats, error)

	// Products
	UpsertProduct(ctx context.Context, product *domain.Product) error
	GetProduct(ctx context.Context, name string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	// DeleteProduct removes the product and its external delivery link.
	// Keys issued for the product are kept.
	DeleteProduct(ctx context.Context, name string) error

	// External delivery links
	LinkExternalDelivery(ctx context.Context, link *domain.ExternalDeliveryLink) error
	GetExternalDelivery(ctx context.Context, productID string) (*domain.ExternalDeliveryLink, error)

	// Redemption ledger
	RecentRedemptions(ctx context.Context, limit int) ([]*domain.Redemption, error)
	LatestRedemptionForHash(ctx context.Context, keyHash string) (*domain.Redemption, error)

	// Tenant settings
	SetNotificationTarget(ctx context.Context, tenantID string, target *string) error
	GetNotificationTarget(ctx context.Context, tenantID string) (*string, error)
}
