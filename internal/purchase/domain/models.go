package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase is one supplier delivery document (remito) tracked through its
// lifecycle. Content freezes at confirmation; only the state may change after
// that. The (supplier_id, remito_number) pair is unique when the remito number
// is present, which blocks duplicate ingestion of the same delivery.
type Purchase struct {
	ID           int64      `gorm:"primaryKey;autoIncrement"`
	SupplierID   int64      `gorm:"index;not null;uniqueIndex:uq_purchases_supplier_remito"`
	RemitoNumber *string    `gorm:"size:64;uniqueIndex:uq_purchases_supplier_remito"`
	RemitoDate   *time.Time
	Currency     string          `gorm:"size:3;not null;default:'ARS'"`
	VATRate      decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	// Global discount: percent or absolute, mutually exclusive. When both are
	// set the absolute amount wins.
	DiscountPct   decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	DiscountAbs   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	DeclaredTotal decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	State         State           `gorm:"size:16;not null;default:'BORRADOR';index"`
	CancelReason  *string         `gorm:"size:255"`

	// Reconciliation summary persisted at confirm time for later display.
	ReconPurchaseTotal *decimal.Decimal `gorm:"type:decimal(14,2)"`
	ReconAppliedTotal  *decimal.Decimal `gorm:"type:decimal(14,2)"`
	ReconDiff          *decimal.Decimal `gorm:"type:decimal(14,2)"`
	ReconMismatch      *bool

	// LastResendStockAt backs the resend cooldown. Explicit column rather
	// than a meta bag so the check-and-set is type safe.
	LastResendStockAt *time.Time

	// Version guards every state transition (compare-and-swap).
	Version   int64 `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Lines []PurchaseLine `gorm:"foreignKey:PurchaseID"`
}

func (Purchase) TableName() string { return "purchases" }

// PurchaseLine is one item on a purchase. A line contributes to stock only
// once resolved (linked to a product with a positive quantity); unresolved
// lines stay on the document and are surfaced to callers instead.
type PurchaseLine struct {
	ID          int64           `gorm:"primaryKey;autoIncrement"`
	PurchaseID  int64           `gorm:"index;not null"`
	Description string          `gorm:"size:255"`
	SupplierSKU string          `gorm:"size:64"`
	Qty         decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	DiscountPct decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	Status      LineStatus      `gorm:"size:16;not null;default:'SIN_VINCULAR'"`
	ProductID   *int64          `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (PurchaseLine) TableName() string { return "purchase_lines" }

// Resolved reports whether the line carries stock effect.
func (l *PurchaseLine) Resolved() bool {
	return l.ProductID != nil && l.Qty.IsPositive()
}
