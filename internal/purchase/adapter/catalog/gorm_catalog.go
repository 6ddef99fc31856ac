package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Product is the minimal catalog row this service needs: identity plus the
// supplier SKU used for auto-linking at confirm time. The full catalog lives
// in the back-office CRUD service.
type Product struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"size:128;not null"`
	SupplierID  int64  `gorm:"index:idx_products_supplier_sku,priority:1"`
	SupplierSKU string `gorm:"size:64;index:idx_products_supplier_sku,priority:2"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Product) TableName() string { return "products" }

// GormCatalog implements the resolver and existence ports over the products
// table.
type GormCatalog struct {
	db *gorm.DB
}

func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{db: db}
}

// ResolveBySupplierSKU returns (nil, nil) on a miss; auto-linking is
// best-effort and a miss is not an error. Runs on the caller's transaction
// when one is given, so resolution during a transition stays inside it.
func (c *GormCatalog) ResolveBySupplierSKU(ctx context.Context, db *gorm.DB, supplierID int64, sku string) (*int64, error) {
	if sku == "" {
		return nil, nil
	}
	if db == nil {
		db = c.db
	}
	var p Product
	err := db.WithContext(ctx).
		Where("supplier_id = ? AND supplier_sku = ?", supplierID, sku).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve sku %q for supplier %d: %w", sku, supplierID, err)
	}
	return &p.ID, nil
}

func (c *GormCatalog) Exists(ctx context.Context, db *gorm.DB, productID int64) (bool, error) {
	if db == nil {
		db = c.db
	}
	var count int64
	err := db.WithContext(ctx).Model(&Product{}).Where("id = ?", productID).Count(&count).Error
	return count > 0, err
}
