// Package metrics exposes Prometheus counters for the key lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// KeysGenerated counts issued license keys by product.
	KeysGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keymint",
		Name:      "keys_generated_total",
		Help:      "Number of license keys generated, by product.",
	}, []string{"product"})

	// Redemptions counts redemption attempts by outcome: redeemed,
	// already_used or invalid.
	Redemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keymint",
		Name:      "redemptions_total",
		Help:      "Redemption attempts, by outcome.",
	}, []string{"outcome"})

	// DeliveryPushes counts key uploads to the external storefront.
	DeliveryPushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keymint",
		Name:      "delivery_pushes_total",
		Help:      "Key uploads to the external storefront, by status.",
	}, []string{"status"})

	// NotificationFailures counts redemption notifications that were
	// dropped after a send failure.
	NotificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "keymint",
		Name:      "notification_failures_total",
		Help:      "Redemption notifications that could not be delivered.",
	})
)

// Outcome labels for Redemptions.
const (
	OutcomeRedeemed    = "redeemed"
	OutcomeAlreadyUsed = "already_used"
	OutcomeInvalid     = "invalid"
)
