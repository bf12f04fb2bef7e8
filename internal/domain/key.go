package domain

import "time"

// Key is a single-use license key record. Only the SHA-256 digest of the
// canonical plaintext is stored; the plaintext itself is returned exactly
// once at generation and cannot be recovered afterward.
type Key struct {
	ID        string    `json:"id" db:"id"`
	KeyHash   string    `json:"key_hash" db:"key_hash"`
	ProductID string    `json:"product" db:"product_id"`
	Used      bool      `json:"used" db:"used"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// GenerateKeysRequest is the request body for generating keys.
type GenerateKeysRequest struct {
	Product string `json:"product"`
	Amount  int    `json:"amount"`
}

// GenerateKeysResponse is returned when generating keys.
// The plaintext keys are only shown once.
type GenerateKeysResponse struct {
	Product string   `json:"product"`
	Amount  int      `json:"amount"`
	Keys    []string `json:"keys"`
}

// LookupKeyRequest is the request body for the administrative key lookup.
// The key travels in the body so plaintext never appears in URLs or logs.
type LookupKeyRequest struct {
	Key string `json:"key"`
}

// KeyStatus is the administrative view of a single key.
type KeyStatus struct {
	Found      bool        `json:"found"`
	Used       bool        `json:"used"`
	Key        *Key        `json:"key,omitempty"`
	Redemption *Redemption `json:"redemption,omitempty"`
}

// ProductKeyStats aggregates key usage counts for one product.
type ProductKeyStats struct {
	ProductID string `json:"product" db:"product_id"`
	Used      int    `json:"used" db:"used_count"`
	Unused    int    `json:"unused" db:"unused_count"`
	Total     int    `json:"total" db:"total"`
}
