package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/nmoreyra/acopio/backend/internal/purchase/domain"
)

// GormPurchaseRepo implements domain.PurchaseRepository.
type GormPurchaseRepo struct {
	db *gorm.DB
}

func NewGormPurchaseRepo(db *gorm.DB) *GormPurchaseRepo {
	return &GormPurchaseRepo{db: db}
}

func (r *GormPurchaseRepo) Create(ctx context.Context, p *domain.Purchase) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicateRemito
		}
		return fmt.Errorf("create purchase: %w", err)
	}
	return nil
}

func (r *GormPurchaseRepo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Purchase, error) {
	if db == nil {
		db = r.db
	}
	var p domain.Purchase
	err := db.WithContext(ctx).
		Preload("Lines", func(q *gorm.DB) *gorm.DB { return q.Order("id ASC") }).
		First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPurchaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find purchase %d: %w", id, err)
	}
	return &p, nil
}

// UpdateGuarded is the per-purchase serialization point: a plain optimistic
// CAS on (id, version). Losing the race means another transition committed
// first, and the caller must re-read before retrying.
func (r *GormPurchaseRepo) UpdateGuarded(ctx context.Context, tx *gorm.DB, p *domain.Purchase, updates map[string]interface{}) error {
	updates["version"] = gorm.Expr("version + 1")
	res := tx.WithContext(ctx).Model(&domain.Purchase{}).
		Where("id = ? AND version = ?", p.ID, p.Version).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("guarded update purchase %d: %w", p.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrConcurrentUpdate
	}
	p.Version++
	return nil
}

func (r *GormPurchaseRepo) SaveLine(ctx context.Context, tx *gorm.DB, l *domain.PurchaseLine) error {
	res := tx.WithContext(ctx).Model(&domain.PurchaseLine{}).
		Where("id = ?", l.ID).
		Updates(map[string]interface{}{
			"status":     l.Status,
			"product_id": l.ProductID,
		})
	if res.Error != nil {
		return fmt.Errorf("save line %d: %w", l.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrLineNotFound
	}
	return nil
}

func (r *GormPurchaseRepo) ReplaceLines(ctx context.Context, tx *gorm.DB, purchaseID int64, lines []domain.PurchaseLine) error {
	if err := tx.WithContext(ctx).
		Where("purchase_id = ?", purchaseID).
		Delete(&domain.PurchaseLine{}).Error; err != nil {
		return fmt.Errorf("replace lines: delete old: %w", err)
	}
	for i := range lines {
		lines[i].ID = 0
		lines[i].PurchaseID = purchaseID
	}
	if len(lines) == 0 {
		return nil
	}
	if err := tx.WithContext(ctx).Create(&lines).Error; err != nil {
		return fmt.Errorf("replace lines: insert new: %w", err)
	}
	return nil
}
