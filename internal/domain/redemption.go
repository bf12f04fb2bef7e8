package domain

import "time"

// Redemption is an append-only audit record of a successful key redemption.
// Exactly one exists per used key; none for unused keys.
type Redemption struct {
	ID         string    `json:"id" db:"id"`
	KeyHash    string    `json:"key_hash" db:"key_hash"`
	ProductID  string    `json:"product" db:"product_id"`
	RedeemerID string    `json:"redeemer_id" db:"redeemer_id"`
	TenantID   string    `json:"tenant_id" db:"tenant_id"`
	RedeemedAt time.Time `json:"redeemed_at" db:"redeemed_at"`
}

// RedeemRequest is the request body for redeeming a key.
type RedeemRequest struct {
	Key        string `json:"key"`
	RedeemerID string `json:"redeemer_id"`
	TenantID   string `json:"tenant_id"`
}

// RedemptionResult is returned to the caller on a successful redemption.
// The caller performs the platform-specific grant using EntitlementRef.
type RedemptionResult struct {
	ProductID      string    `json:"product"`
	EntitlementRef *string   `json:"entitlement_ref,omitempty"`
	RedeemedAt     time.Time `json:"redeemed_at"`
}
