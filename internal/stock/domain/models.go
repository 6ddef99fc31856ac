package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockLedgerEntry is one immutable stock movement. Rows are append-only:
// corrections are made with compensating entries of inverse sign, never by
// updating or deleting existing rows. Replaying all entries of a product in
// creation order must reproduce the current StockLevel exactly.
type StockLedgerEntry struct {
	ID           string          `gorm:"size:36;primaryKey"`
	ProductID    int64           `gorm:"index:idx_stock_ledger_product_created,priority:1;not null"`
	SourceType   SourceType      `gorm:"size:24;index:idx_stock_ledger_source,priority:1;not null"`
	SourceID     int64           `gorm:"index:idx_stock_ledger_source,priority:2;not null"`
	LineID       int64           `gorm:"index"`
	Delta        decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	BalanceAfter decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Note         string          `gorm:"size:255"`
	CreatedAt    time.Time       `gorm:"index:idx_stock_ledger_product_created,priority:2;autoCreateTime"`
}

func (StockLedgerEntry) TableName() string { return "stock_ledger" }

// StockLevel is the materialized on-hand quantity per product. It is a cache
// over the ledger, always written as a relative delta in the same transaction
// as the entry that produced the change.
type StockLevel struct {
	ProductID int64           `gorm:"primaryKey"`
	QtyOnHand decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	UpdatedAt time.Time
}

func (StockLevel) TableName() string { return "stock_levels" }
