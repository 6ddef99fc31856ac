package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nmoreyra/acopio/backend/internal/stock/domain"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// GormLedger implements domain.Ledger over gorm.
type GormLedger struct {
	db *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

// Append inserts the entry and folds its delta into the stock level on the
// same transaction. The level update is a relative expression, never an
// absolute write, so concurrent writers from other aggregates cannot clobber
// each other.
func (r *GormLedger) Append(ctx context.Context, tx *gorm.DB, e *domain.StockLedgerEntry) (decimal.Decimal, error) {
	if !e.SourceType.IsValid() {
		return decimal.Zero, fmt.Errorf("append: invalid source type %q", e.SourceType)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	var level domain.StockLevel
	err := tx.WithContext(ctx).Where("product_id = ?", e.ProductID).First(&level).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		level = domain.StockLevel{ProductID: e.ProductID, QtyOnHand: decimal.Zero}
		if err := tx.WithContext(ctx).Create(&level).Error; err != nil {
			return decimal.Zero, fmt.Errorf("append: create stock level: %w", err)
		}
	case err != nil:
		return decimal.Zero, fmt.Errorf("append: read stock level: %w", err)
	}

	after := level.QtyOnHand.Add(e.Delta)
	e.BalanceAfter = after
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		return decimal.Zero, fmt.Errorf("append: create ledger entry: %w", err)
	}

	res := tx.WithContext(ctx).Model(&domain.StockLevel{}).
		Where("product_id = ?", e.ProductID).
		Update("qty_on_hand", gorm.Expr("qty_on_hand + ?", e.Delta))
	if res.Error != nil {
		return decimal.Zero, fmt.Errorf("append: fold stock level: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, fmt.Errorf("append: stock level row missing for product %d", e.ProductID)
	}
	return after, nil
}

func (r *GormLedger) EntriesForSource(ctx context.Context, db *gorm.DB, sourceID int64, types ...domain.SourceType) ([]domain.StockLedgerEntry, error) {
	if db == nil {
		db = r.db
	}
	q := db.WithContext(ctx).Where("source_id = ?", sourceID)
	if len(types) > 0 {
		q = q.Where("source_type IN ?", types)
	}
	var entries []domain.StockLedgerEntry
	if err := q.Order("created_at ASC, id ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *GormLedger) History(ctx context.Context, productID int64, hq domain.HistoryQuery) ([]domain.StockLedgerEntry, error) {
	limit := hq.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	order := "created_at ASC, id ASC"
	if hq.Desc {
		order = "created_at DESC, id DESC"
	}

	q := r.db.WithContext(ctx).Where("product_id = ?", productID)
	if hq.Since != nil {
		q = q.Where("created_at >= ?", *hq.Since)
	}

	var entries []domain.StockLedgerEntry
	if err := q.Order(order).Limit(limit).Offset(hq.Offset).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *GormLedger) ProjectionOf(ctx context.Context, db *gorm.DB, productID int64) (decimal.Decimal, error) {
	if db == nil {
		db = r.db
	}
	var level domain.StockLevel
	err := db.WithContext(ctx).Where("product_id = ?", productID).First(&level).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return level.QtyOnHand, nil
}

func (r *GormLedger) ReplayedBalance(ctx context.Context, productID int64) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&domain.StockLedgerEntry{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(delta), 0) AS total").
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}
