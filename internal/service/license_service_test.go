package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/keymint/keymint/internal/domain"
	"github.com/keymint/keymint/internal/keygen"
	"github.com/keymint/keymint/internal/notify"
	"github.com/keymint/keymint/internal/storage/memory"
)

type fakeNotifier struct {
	events chan notify.RedemptionEvent
	err    error
}

func (f *fakeNotifier) Notify(ctx context.Context, target string, event notify.RedemptionEvent) error {
	f.events <- event
	return f.err
}

type fakeDelivery struct {
	mu     sync.Mutex
	pushes []pushRecord
	err    error
}

type pushRecord struct {
	productID string
	variantID string
	keys      []string
}

func (f *fakeDelivery) PushKeys(ctx context.Context, externalProductID, externalVariantID string, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, pushRecord{productID: externalProductID, variantID: externalVariantID, keys: keys})
	return f.err
}

func newTestService(t *testing.T) (*LicenseService, *memory.Store, *fakeNotifier, *fakeDelivery) {
	t.Helper()
	store := memory.New()
	notifier := &fakeNotifier{events: make(chan notify.RedemptionEvent, 8)}
	deliveryClient := &fakeDelivery{}
	return New(store, notifier, deliveryClient), store, notifier, deliveryClient
}

func mustUpsertProduct(t *testing.T, svc *LicenseService, name string, ref *string) {
	t.Helper()
	if _, err := svc.UpsertProduct(context.Background(), name, ref); err != nil {
		t.Fatalf("Failed to upsert product %q: %v", name, err)
	}
}

func waitForEvent(t *testing.T, ch <-chan notify.RedemptionEvent) notify.RedemptionEvent {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for notification")
		return notify.RedemptionEvent{}
	}
}

func TestGenerateAmountBounds(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	mustUpsertProduct(t, svc, "vip", nil)

	for _, amount := range []int{0, -1, 51, 1000} {
		if _, err := svc.Generate(ctx, "vip", amount); !errors.Is(err, domain.ErrAmountOutOfRange) {
			t.Errorf("Generate(vip, %d) error = %v, want ErrAmountOutOfRange", amount, err)
		}
	}
}

func TestGenerateFiftyDistinctKeys(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	mustUpsertProduct(t, svc, "vip", nil)

	resp, err := svc.Generate(ctx, "vip", 50)
	if err != nil {
		t.Fatalf("Failed to generate keys: %v", err)
	}
	if resp.Amount != 50 || len(resp.Keys) != 50 {
		t.Fatalf("Expected 50 keys, got %d", len(resp.Keys))
	}

	seen := make(map[string]bool, 50)
	for _, key := range resp.Keys {
		if seen[key] {
			t.Fatalf("Duplicate key in batch: %q", key)
		}
		seen[key] = true
		if key != keygen.Canonicalize(key) {
			t.Errorf("Key %q is not in canonical form", key)
		}
		if _, err := store.GetKeyByHash(ctx, keygen.Digest(key)); err != nil {
			t.Errorf("Digest for key %q was not stored: %v", key, err)
		}
	}
}

func TestGenerateUnknownProduct(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	if _, err := svc.Generate(context.Background(), "ghost", 1); !errors.Is(err, domain.ErrUnknownProduct) {
		t.Errorf("Expected ErrUnknownProduct, got %v", err)
	}
}

func TestGenerateNormalizesProductName(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	mustUpsertProduct(t, svc, "VIP Gold", nil)

	resp, err := svc.Generate(ctx, "  VIP   Gold  ", 1)
	if err != nil {
		t.Fatalf("Failed to generate keys: %v", err)
	}
	if resp.Product != "vip-gold" {
		t.Errorf("Expected product vip-gold, got %q", resp.Product)
	}
}

func TestGenerateRetriesOnDigestCollision(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	mustUpsertProduct(t, svc, "vip", nil)

	first, err := svc.Generate(ctx, "vip", 1)
	if err != nil {
		t.Fatalf("Failed to generate initial key: %v", err)
	}
	existing := first.Keys[0]

	var calls int
	svc.newKey = func() (string, string, error) {
		calls++
		if calls == 1 {
			return existing, keygen.Digest(existing), nil
		}
		return keygen.New()
	}

	resp, err := svc.Generate(ctx, "vip", 1)
	if err != nil {
		t.Fatalf("Expected collision to be retried, got %v", err)
	}
	if resp.Keys[0] == existing {
		t.Error("Expected a fresh key after the collision")
	}
	if calls < 2 {
		t.Errorf("Expected the batch to be regenerated, newKey called %d times", calls)
	}
}

func TestGenerateGivesUpAfterRepeatedCollisions(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	mustUpsertProduct(t, svc, "vip", nil)

	first, err := svc.Generate(ctx, "vip", 1)
	if err != nil {
		t.Fatalf("Failed to generate initial key: %v", err)
	}
	existing := first.Keys[0]

	var calls int
	svc.newKey = func() (string, string, error) {
		calls++
		return existing, keygen.Digest(existing), nil
	}

	if _, err := svc.Generate(ctx, "vip", 1); !errors.Is(err, domain.ErrHashConflict) {
		t.Fatalf("Expected ErrHashConflict after exhausted retries, got %v", err)
	}
	if calls != maxGenerateAttempts {
		t.Errorf("Expected %d attempts, got %d", maxGenerateAttempts, calls)
	}
}

func TestRedeemLifecycle(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	ref := "role-42"
	mustUpsertProduct(t, svc, "vip", &ref)

	resp, err := svc.Generate(ctx, "vip", 1)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	plain := resp.Keys[0]

	result, err := svc.Redeem(ctx, &domain.RedeemRequest{Key: plain, RedeemerID: "user-1", TenantID: "tenant-1"})
	if err != nil {
		t.Fatalf("Failed to redeem key: %v", err)
	}
	if result.ProductID != "vip" {
		t.Errorf("Expected product vip, got %q", result.ProductID)
	}
	if result.EntitlementRef == nil || *result.EntitlementRef != "role-42" {
		t.Errorf("Expected entitlement ref role-42, got %v", result.EntitlementRef)
	}
	if result.RedeemedAt.IsZero() {
		t.Error("Expected redeemed_at to be set")
	}

	// A second redemption fails differently from a bogus key.
	_, err = svc.Redeem(ctx, &domain.RedeemRequest{Key: plain, RedeemerID: "user-2", TenantID: "tenant-1"})
	if !errors.Is(err, domain.ErrAlreadyRedeemed) {
		t.Errorf("Expected ErrAlreadyRedeemed, got %v", err)
	}

	_, err = svc.Redeem(ctx, &domain.RedeemRequest{Key: "NOT-A-REAL-KEY", RedeemerID: "user-3", TenantID: "tenant-1"})
	if !errors.Is(err, domain.ErrInvalidKey) {
		t.Errorf("Expected ErrInvalidKey, got %v", err)
	}
}

func TestRedeemAcceptsUncanonicalInput(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	mustUpsertProduct(t, svc, "vip", nil)

	resp, err := svc.Generate(ctx, "vip", 1)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	sloppy := "  " + strings.ToLower(resp.Keys[0]) + "\t\n"

	if _, err := svc.Redeem(ctx, &domain.RedeemRequest{Key: sloppy, RedeemerID: "user-1", TenantID: "tenant-1"}); err != nil {
		t.Errorf("Expected sloppy input to redeem, got %v", err)
	}
}

func TestRedeemEmptyKey(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Redeem(context.Background(), &domain.RedeemRequest{Key: "   ", RedeemerID: "user-1", TenantID: "tenant-1"})
	if !errors.Is(err, domain.ErrInvalidKey) {
		t.Errorf("Expected ErrInvalidKey for blank input, got %v", err)
	}
}

func TestRedeemSendsMaskedNotification(t *testing.T) {
	svc, _, notifier, _ := newTestService(t)
	ctx := context.Background()
	mustUpsertProduct(t, svc, "vip", nil)

	target := "987654321"
	if err := svc.SetNotificationTarget(ctx, "tenant-1", &target); err != nil {
		t.Fatalf("Failed to set notification target: %v", err)
	}

	resp, err := svc.Generate(ctx, "vip", 1)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	plain := resp.Keys[0]

	if _, err := svc.Redeem(ctx, &domain.RedeemRequest{Key: plain, RedeemerID: "user-1", TenantID: "tenant-1"}); err != nil {
		t.Fatalf("Failed to redeem key: %v", err)
	}

	event := waitForEvent(t, notifier.events)
	if event.ProductID != "vip" || event.RedeemerID != "user-1" || event.TenantID != "tenant-1" {
		t.Errorf("Unexpected event: %+v", event)
	}
	if event.MaskedKey != keygen.Mask(plain) {
		t.Errorf("Expected masked key %q, got %q", keygen.Mask(plain), event.MaskedKey)
	}
	if event.MaskedKey == plain || !strings.Contains(event.MaskedKey, "...") {
		t.Errorf("Notification leaked the full key: %q", event.MaskedKey)
	}
}

func TestRedeemNotificationDisabled(t *testing.T) {
	svc, _, notifier, _ := newTestService(t)
	ctx := context.Background()
	mustUpsertProduct(t, svc, "vip", nil)

	resp, err := svc.Generate(ctx, "vip", 1)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	if _, err := svc.Redeem(ctx, &domain.RedeemRequest{Key: resp.Keys[0], RedeemerID: "user-1", TenantID: "tenant-9"}); err != nil {
		t.Fatalf("Failed to redeem key: %v", err)
	}

	select {
	case event := <-notifier.events:
		t.Errorf("Expected no notification for unconfigured tenant, got %+v", event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRedeemSurvivesNotifierFailure(t *testing.T) {
	svc, _, notifier, _ := newTestService(t)
	ctx := context.Background()
	mustUpsertProduct(t, svc, "vip", nil)
	notifier.err = errors.New("telegram is down")

	target := "5"
	if err := svc.SetNotificationTarget(ctx, "tenant-1", &target); err != nil {
		t.Fatalf("Failed to set notification target: %v", err)
	}

	resp, err := svc.Generate(ctx, "vip", 1)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	if _, err := svc.Redeem(ctx, &domain.RedeemRequest{Key: resp.Keys[0], RedeemerID: "user-1", TenantID: "tenant-1"}); err != nil {
		t.Fatalf("Expected redemption to succeed despite notifier failure, got %v", err)
	}
	waitForEvent(t, notifier.events)
}

func TestLookup(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	mustUpsertProduct(t, svc, "vip", nil)

	resp, err := svc.Generate(ctx, "vip", 1)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	plain := resp.Keys[0]

	status, err := svc.Lookup(ctx, plain)
	if err != nil {
		t.Fatalf("Failed to look up key: %v", err)
	}
	if !status.Found || status.Used {
		t.Errorf("Expected found unused key, got %+v", status)
	}

	if _, err := svc.Redeem(ctx, &domain.RedeemRequest{Key: plain, RedeemerID: "user-1", TenantID: "tenant-1"}); err != nil {
		t.Fatalf("Failed to redeem key: %v", err)
	}

	status, err = svc.Lookup(ctx, plain)
	if err != nil {
		t.Fatalf("Failed to look up redeemed key: %v", err)
	}
	if !status.Found || !status.Used {
		t.Errorf("Expected found used key, got %+v", status)
	}
	if status.Redemption == nil || status.Redemption.RedeemerID != "user-1" {
		t.Errorf("Expected ledger entry on lookup, got %+v", status.Redemption)
	}

	status, err = svc.Lookup(ctx, "BOGUS")
	if err != nil {
		t.Fatalf("Failed to look up bogus key: %v", err)
	}
	if status.Found {
		t.Errorf("Expected bogus key to be absent, got %+v", status)
	}
}

func TestRecentRedemptionsClampsLimit(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	mustUpsertProduct(t, svc, "vip", nil)

	resp, err := svc.Generate(ctx, "vip", 3)
	if err != nil {
		t.Fatalf("Failed to generate keys: %v", err)
	}
	for i, key := range resp.Keys {
		if _, err := svc.Redeem(ctx, &domain.RedeemRequest{Key: key, RedeemerID: "user-1", TenantID: "tenant-1"}); err != nil {
			t.Fatalf("Failed to redeem key %d: %v", i, err)
		}
	}

	entries, err := svc.RecentRedemptions(ctx, 0)
	if err != nil {
		t.Fatalf("Failed to list redemptions: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected limit 0 to clamp to 1 entry, got %d", len(entries))
	}

	entries, err = svc.RecentRedemptions(ctx, 100)
	if err != nil {
		t.Fatalf("Failed to list redemptions: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("Expected all 3 entries under the clamped limit, got %d", len(entries))
	}
}

func TestPushToExternalDelivery(t *testing.T) {
	svc, _, _, deliveryClient := newTestService(t)
	ctx := context.Background()
	mustUpsertProduct(t, svc, "vip", nil)

	// Unlinked product cannot push.
	if _, err := svc.PushToExternalDelivery(ctx, "vip", 5); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unlinked product, got %v", err)
	}

	link := &domain.LinkExternalDeliveryRequest{ExternalProductID: "prod-9", ExternalVariantID: "var-3"}
	if _, err := svc.LinkExternalDelivery(ctx, "vip", link); err != nil {
		t.Fatalf("Failed to link delivery: %v", err)
	}

	resp, err := svc.PushToExternalDelivery(ctx, "vip", 5)
	if err != nil {
		t.Fatalf("Failed to push keys: %v", err)
	}
	if !resp.Pushed {
		t.Error("Expected result to be marked pushed")
	}
	if len(resp.Keys) != 5 {
		t.Fatalf("Expected 5 keys, got %d", len(resp.Keys))
	}
	if len(deliveryClient.pushes) != 1 {
		t.Fatalf("Expected 1 push, got %d", len(deliveryClient.pushes))
	}
	push := deliveryClient.pushes[0]
	if push.productID != "prod-9" || push.variantID != "var-3" || len(push.keys) != 5 {
		t.Errorf("Unexpected push: %+v", push)
	}
}

func TestPushToExternalDeliveryKeepsKeysOnFailure(t *testing.T) {
	svc, store, _, deliveryClient := newTestService(t)
	ctx := context.Background()
	mustUpsertProduct(t, svc, "vip", nil)

	link := &domain.LinkExternalDeliveryRequest{ExternalProductID: "prod-9", ExternalVariantID: "var-3"}
	if _, err := svc.LinkExternalDelivery(ctx, "vip", link); err != nil {
		t.Fatalf("Failed to link delivery: %v", err)
	}
	deliveryClient.err = errors.New("storefront down")

	resp, err := svc.PushToExternalDelivery(ctx, "vip", 2)
	if err == nil {
		t.Fatal("Expected push error to surface")
	}
	if resp == nil || len(resp.Keys) != 2 {
		t.Fatalf("Expected generated keys alongside the error, got %+v", resp)
	}
	if resp.Pushed {
		t.Error("Expected result to be marked not pushed")
	}
	// The keys stay committed even though the upload failed.
	for _, key := range resp.Keys {
		if _, err := store.GetKeyByHash(ctx, keygen.Digest(key)); err != nil {
			t.Errorf("Expected key %q to stay stored, got %v", keygen.Mask(key), err)
		}
	}
}

func TestUpsertProductRejectsUnusableName(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	if _, err := svc.UpsertProduct(context.Background(), "!!!", nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestSetNotificationTargetValidatesTenant(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	target := "1"
	if err := svc.SetNotificationTarget(context.Background(), "", &target); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty tenant, got %v", err)
	}
}
