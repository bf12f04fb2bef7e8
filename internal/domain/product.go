package domain

import (
	"time"

	"github.com/gosimple/slug"
)

// Product maps a normalized product name to an optional entitlement
// reference (e.g. a role id on the chat platform) and, optionally, to an
// external storefront deliverable.
type Product struct {
	Name           string    `json:"name" db:"name"`
	EntitlementRef *string   `json:"entitlement_ref,omitempty" db:"entitlement_ref"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// ExternalDeliveryLink ties a product to a storefront product/variant pair.
type ExternalDeliveryLink struct {
	ProductID         string `json:"product" db:"product_id"`
	ExternalProductID string `json:"external_product_id" db:"external_product_id"`
	ExternalVariantID string `json:"external_variant_id" db:"external_variant_id"`
}

// UpsertProductRequest is the request body for creating or updating a product.
type UpsertProductRequest struct {
	EntitlementRef *string `json:"entitlement_ref,omitempty"`
}

// LinkExternalDeliveryRequest is the request body for linking a product to
// a storefront deliverable.
type LinkExternalDeliveryRequest struct {
	ExternalProductID string `json:"external_product_id"`
	ExternalVariantID string `json:"external_variant_id"`
}

// PushKeysRequest is the request body for generating keys and uploading
// them to the linked storefront variant.
type PushKeysRequest struct {
	Amount int `json:"amount"`
}

// DeliveryPushResult reports a storefront push of freshly generated keys.
// The keys are committed locally before the upload, so on a failed push
// (Pushed false) they are still listed here for a manual retry.
type DeliveryPushResult struct {
	Product string   `json:"product"`
	Amount  int      `json:"amount"`
	Keys    []string `json:"keys"`
	Pushed  bool     `json:"pushed"`
	Error   string   `json:"error,omitempty"`
}

// NormalizeProductName canonicalizes a user-entered product name: lowercase,
// whitespace runs collapsed to a single separator, anything outside
// [a-z0-9-_] dropped. Every code path that touches a product name goes
// through this function so "VIP Gold" and "vip-gold" are the same product.
func NormalizeProductName(name string) string {
	return slug.Make(name)
}
