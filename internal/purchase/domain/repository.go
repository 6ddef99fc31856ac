package domain

import (
	"context"

	"gorm.io/gorm"
)

// PurchaseRepository is the persistence port for the purchase aggregate.
type PurchaseRepository interface {
	// Create inserts the purchase with its lines. Returns ErrDuplicateRemito
	// when (supplier_id, remito_number) already exists.
	Create(ctx context.Context, p *Purchase) error

	// FindByID loads the purchase with lines (id order). ErrPurchaseNotFound
	// when absent.
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Purchase, error)

	// UpdateGuarded applies updates to the purchase row only if its version
	// is unchanged, bumping the version. ErrConcurrentUpdate when the guard
	// fails; this is what serializes concurrent transitions on one purchase.
	UpdateGuarded(ctx context.Context, tx *gorm.DB, p *Purchase, updates map[string]interface{}) error

	// SaveLine persists a line's mutable fields (status, product link).
	SaveLine(ctx context.Context, tx *gorm.DB, l *PurchaseLine) error

	// ReplaceLines swaps the full line set of a draft purchase.
	ReplaceLines(ctx context.Context, tx *gorm.DB, purchaseID int64, lines []PurchaseLine) error
}

// CatalogResolver is the catalog collaborator consumed during confirmation
// (best-effort auto-linking) and explicit line linking. Both reads accept the
// caller's transaction so resolution inside a transition sees the same
// snapshot the transition commits against; a nil db falls back to the
// adapter's own handle.
type CatalogResolver interface {
	// ResolveBySupplierSKU returns the product id for a supplier's SKU, or
	// nil when the catalog has no match. A miss is not an error.
	ResolveBySupplierSKU(ctx context.Context, db *gorm.DB, supplierID int64, sku string) (*int64, error)

	Exists(ctx context.Context, db *gorm.DB, productID int64) (bool, error)
}

// AuditSink records one structured event per lifecycle transition, on the
// same transaction as the transition itself.
type AuditSink interface {
	Record(ctx context.Context, tx *gorm.DB, eventType string, purchaseID int64, payload map[string]interface{}) error
}
