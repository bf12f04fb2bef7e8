// Package notify delivers redemption notifications to tenant operators.
package notify

import (
	"context"
	"time"
)

// RedemptionEvent describes a successful redemption for operator visibility.
// MaskedKey carries the canonical plaintext with the middle elided; the full
// key never leaves the redemption path. KeyHash is the stored digest.
type RedemptionEvent struct {
	TenantID   string
	RedeemerID string
	ProductID  string
	MaskedKey  string
	KeyHash    string
	RedeemedAt time.Time
}

// Notifier sends a redemption event to a tenant's configured target. By the
// time Notify runs the redemption is already committed, so implementations
// report failures but must not expect them to roll anything back.
type Notifier interface {
	Notify(ctx context.Context, target string, event RedemptionEvent) error
}

// Noop discards all events. Used when no notification transport is
// configured.
type Noop struct{}

var _ Notifier = Noop{}

func (Noop) Notify(ctx context.Context, target string, event RedemptionEvent) error {
	return nil
}
