// Package delivery pushes generated license keys to an external storefront
// so buyers receive a key automatically at checkout.
package delivery

import (
	"context"
	"fmt"
)

// Client defines the interface for uploading keys to the storefront.
type Client interface {
	PushKeys(ctx context.Context, externalProductID, externalVariantID string, keys []string) error
}

// Error is a non-2xx storefront response. By the time it surfaces the keys
// are already stored locally, so callers report it without rolling back.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("storefront returned status %d: %s", e.Status, e.Body)
}
