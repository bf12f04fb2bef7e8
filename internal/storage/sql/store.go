package sql

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/keymint/keymint/internal/domain"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// isUniqueViolation checks if an error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	// PostgreSQL
	if strings.Contains(errStr, "duplicate key value violates unique constraint") {
		return true
	}
	return false
}

// Store implements the storage.Storage interface using SQL.
type Store struct {
	db     *sqlx.DB
	driver string
}

// New creates a new SQL store.
func New(driver, dsn string) (*Store, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Run migrations
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(driver); err != nil {
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// helper to get the correct database interface
type dbInterface interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ============================================
// Keys
// ============================================

func insertKey(ctx context.Context, db dbInterface, key *domain.Key) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO keys (id, key_hash, product_id, used, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		key.ID, key.KeyHash, key.ProductID, key.Used, key.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrHashConflict
	}
	return err
}

// InsertKeys inserts a batch of keys inside a single transaction. Every
// referenced product must exist and every hash must be new; otherwise the
// whole batch is rolled back.
func (s *Store) InsertKeys(ctx context.Context, keys []*domain.Key) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	checked := make(map[string]bool, 1)
	for _, key := range keys {
		if checked[key.ProductID] {
			continue
		}
		if _, err := getProduct(ctx, tx, key.ProductID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrUnknownProduct
			}
			return err
		}
		checked[key.ProductID] = true
	}

	for _, key := range keys {
		if err := insertKey(ctx, tx, key); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func getKeyByHash(ctx context.Context, db dbInterface, keyHash string) (*domain.Key, error) {
	var key domain.Key
	err := db.GetContext(ctx, &key,
		`SELECT id, key_hash, product_id, used, created_at FROM keys WHERE key_hash = $1`, keyHash)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return &key, err
}

func (s *Store) GetKeyByHash(ctx context.Context, keyHash string) (*domain.Key, error) {
	return getKeyByHash(ctx, s.db, keyHash)
}

// RedeemKey flips the key to used and appends the ledger entry in one
// transaction. The conditional UPDATE is the first statement so the write
// lock is taken before anything else; under concurrency exactly one
// transaction per hash sees an affected row, every other caller gets
// domain.ErrAlreadyRedeemed.
func (s *Store) RedeemKey(ctx context.Context, redemption *domain.Redemption) (*domain.Key, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx,
		`UPDATE keys SET used = TRUE WHERE key_hash = $1 AND used = FALSE`, redemption.KeyHash)
	if err != nil {
		return nil, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		// Either the key never existed or somebody else got here first.
		if _, err := getKeyByHash(ctx, tx, redemption.KeyHash); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrInvalidKey
			}
			return nil, err
		}
		return nil, domain.ErrAlreadyRedeemed
	}

	key, err := getKeyByHash(ctx, tx, redemption.KeyHash)
	if err != nil {
		return nil, err
	}

	redemption.ProductID = key.ProductID
	redemption.RedeemedAt = time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO redemptions (id, key_hash, product_id, redeemer_id, tenant_id, redeemed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		redemption.ID, redemption.KeyHash, redemption.ProductID,
		redemption.RedeemerID, redemption.TenantID, redemption.RedeemedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return key, nil
}

func keyStatsByProduct(ctx context.Context, db dbInterface) ([]*domain.ProductKeyStats, error) {
	var stats []*domain.ProductKeyStats
	err := db.SelectContext(ctx, &stats,
		`SELECT product_id,
		        SUM(CASE WHEN used THEN 1 ELSE 0 END) AS used_count,
		        SUM(CASE WHEN used THEN 0 ELSE 1 END) AS unused_count,
		        COUNT(*) AS total
		 FROM keys GROUP BY product_id ORDER BY product_id`)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) KeyStatsByProduct(ctx context.Context) ([]*domain.ProductKeyStats, error) {
	return keyStatsByProduct(ctx, s.db)
}

// ============================================
// Products
// ============================================

func (s *Store) UpsertProduct(ctx context.Context, product *domain.Product) error {
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (name, entitlement_ref, created_at, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (name) DO UPDATE SET
		   entitlement_ref = excluded.entitlement_ref,
		   updated_at = excluded.updated_at`,
		product.Name, product.EntitlementRef, product.CreatedAt, product.UpdatedAt)
	return err
}

func getProduct(ctx context.Context, db dbInterface, name string) (*domain.Product, error) {
	var product domain.Product
	err := db.GetContext(ctx, &product,
		`SELECT name, entitlement_ref, created_at, updated_at FROM products WHERE name = $1`, name)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return &product, err
}

func (s *Store) GetProduct(ctx context.Context, name string) (*domain.Product, error) {
	return getProduct(ctx, s.db, name)
}

func listProducts(ctx context.Context, db dbInterface) ([]*domain.Product, error) {
	var products []*domain.Product
	err := db.SelectContext(ctx, &products,
		`SELECT name, entitlement_ref, created_at, updated_at FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	return listProducts(ctx, s.db)
}

// DeleteProduct removes the product row and its delivery link in one
// transaction. Issued keys are left in place so redemption history and
// outstanding keys survive a catalog cleanup.
func (s *Store) DeleteProduct(ctx context.Context, name string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx, `DELETE FROM products WHERE name = $1`, name)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM external_delivery_map WHERE product_id = $1`, name); err != nil {
		return err
	}
	return tx.Commit()
}

// ============================================
// External delivery links
// ============================================

// LinkExternalDelivery upserts the storefront mapping for an existing
// product. The existence check and the upsert share a transaction so the
// link cannot be written for a product deleted in between.
func (s *Store) LinkExternalDelivery(ctx context.Context, link *domain.ExternalDeliveryLink) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := getProduct(ctx, tx, link.ProductID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUnknownProduct
		}
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO external_delivery_map (product_id, external_product_id, external_variant_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (product_id) DO UPDATE SET
		   external_product_id = excluded.external_product_id,
		   external_variant_id = excluded.external_variant_id`,
		link.ProductID, link.ExternalProductID, link.ExternalVariantID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func getExternalDelivery(ctx context.Context, db dbInterface, productID string) (*domain.ExternalDeliveryLink, error) {
	var link domain.ExternalDeliveryLink
	err := db.GetContext(ctx, &link,
		`SELECT product_id, external_product_id, external_variant_id
		 FROM external_delivery_map WHERE product_id = $1`, productID)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return &link, err
}

func (s *Store) GetExternalDelivery(ctx context.Context, productID string) (*domain.ExternalDeliveryLink, error) {
	return getExternalDelivery(ctx, s.db, productID)
}

// ============================================
// Redemption ledger
// ============================================

func recentRedemptions(ctx context.Context, db dbInterface, limit int) ([]*domain.Redemption, error) {
	var redemptions []*domain.Redemption
	err := db.SelectContext(ctx, &redemptions,
		`SELECT id, key_hash, product_id, redeemer_id, tenant_id, redeemed_at
		 FROM redemptions ORDER BY redeemed_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return redemptions, nil
}

func (s *Store) RecentRedemptions(ctx context.Context, limit int) ([]*domain.Redemption, error) {
	return recentRedemptions(ctx, s.db, limit)
}

func latestRedemptionForHash(ctx context.Context, db dbInterface, keyHash string) (*domain.Redemption, error) {
	var redemption domain.Redemption
	err := db.GetContext(ctx, &redemption,
		`SELECT id, key_hash, product_id, redeemer_id, tenant_id, redeemed_at
		 FROM redemptions WHERE key_hash = $1 ORDER BY redeemed_at DESC LIMIT 1`, keyHash)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return &redemption, err
}

func (s *Store) LatestRedemptionForHash(ctx context.Context, keyHash string) (*domain.Redemption, error) {
	return latestRedemptionForHash(ctx, s.db, keyHash)
}

// ============================================
// Tenant settings
// ============================================

func (s *Store) SetNotificationTarget(ctx context.Context, tenantID string, target *string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tenant_settings (tenant_id, notification_target)
		 VALUES ($1, $2)
		 ON CONFLICT (tenant_id) DO UPDATE SET
		   notification_target = excluded.notification_target`,
		tenantID, target)
	return err
}

// GetNotificationTarget returns nil for tenants that never configured a
// target or cleared it; both mean notifications are off.
func (s *Store) GetNotificationTarget(ctx context.Context, tenantID string) (*string, error) {
	var settings domain.TenantSettings
	err := s.db.GetContext(ctx, &settings,
		`SELECT tenant_id, notification_target FROM tenant_settings WHERE tenant_id = $1`, tenantID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return settings.NotificationTarget, nil
}
