package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nmoreyra/acopio/backend/internal/purchase/domain"
)

// LineInput is one line of a draft purchase.
type LineInput struct {
	Description string
	SupplierSKU string
	Qty         decimal.Decimal
	UnitCost    decimal.Decimal
	DiscountPct decimal.Decimal
	ProductID   *int64
}

// CreateInput is the header plus lines of a new draft.
type CreateInput struct {
	SupplierID    int64
	RemitoNumber  *string
	RemitoDate    *time.Time
	Currency      string
	VATRate       decimal.Decimal
	DiscountPct   decimal.Decimal
	DiscountAbs   decimal.Decimal
	DeclaredTotal decimal.Decimal
	Lines         []LineInput
}

// Create inserts a new purchase in BORRADOR. Duplicate (supplier, remito)
// pairs are rejected here, before the document ever reaches a transition.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Purchase, error) {
	if in.SupplierID <= 0 {
		return nil, errors.New("supplier id is required")
	}
	lines, err := buildLines(ctx, s.catalog, in.Lines)
	if err != nil {
		return nil, err
	}

	p := &domain.Purchase{
		SupplierID:    in.SupplierID,
		RemitoNumber:  normalizeRemito(in.RemitoNumber),
		RemitoDate:    in.RemitoDate,
		Currency:      in.Currency,
		VATRate:       in.VATRate,
		DiscountPct:   in.DiscountPct,
		DiscountAbs:   in.DiscountAbs,
		DeclaredTotal: in.DeclaredTotal,
		State:         domain.StateBorrador,
		Lines:         lines,
	}
	if p.Currency == "" {
		p.Currency = "ARS"
	}
	if err := s.purchases.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get loads a purchase with its lines.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Purchase, error) {
	return s.purchases.FindByID(ctx, nil, id)
}

// ReplaceLines swaps the full line set of a draft. Rejected once the
// purchase has left BORRADOR.
func (s *Service) ReplaceLines(ctx context.Context, id int64, in []LineInput) (*domain.Purchase, error) {
	lines, err := buildLines(ctx, s.catalog, in)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		p, err := s.purchases.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if !p.State.Editable() {
			return domain.ErrNotEditable
		}
		if err := s.purchases.ReplaceLines(ctx, tx, p.ID, lines); err != nil {
			return err
		}
		// Version bump so a concurrent transition sees the edit.
		return s.purchases.UpdateGuarded(ctx, tx, p, map[string]interface{}{})
	})
	if err != nil {
		return nil, err
	}
	return s.purchases.FindByID(ctx, nil, id)
}

// LinkLine attaches a catalog product to a line. This is the one content
// mutation allowed after confirmation: late resolution is a recovery
// mechanism, picked up by the next stock resend. Blocked on ANULADA.
func (s *Service) LinkLine(ctx context.Context, purchaseID, lineID, productID int64) (*domain.PurchaseLine, error) {
	var linked *domain.PurchaseLine
	err := s.db.Transaction(func(tx *gorm.DB) error {
		p, err := s.purchases.FindByID(ctx, tx, purchaseID)
		if err != nil {
			return err
		}
		if p.State.Terminal() {
			return &domain.InvalidTransitionError{Op: "link lines on", From: p.State}
		}

		var line *domain.PurchaseLine
		for i := range p.Lines {
			if p.Lines[i].ID == lineID {
				line = &p.Lines[i]
				break
			}
		}
		if line == nil {
			return domain.ErrLineNotFound
		}

		exists, err := s.catalog.Exists(ctx, tx, productID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrProductNotFound
		}

		line.ProductID = &productID
		line.Status = domain.LineOK
		if err := s.purchases.SaveLine(ctx, tx, line); err != nil {
			return err
		}
		// Version bump so a transition racing with the link must re-read.
		if err := s.purchases.UpdateGuarded(ctx, tx, p, map[string]interface{}{}); err != nil {
			return err
		}

		if err := s.audit.Record(ctx, tx, "purchase.line_linked", p.ID, map[string]interface{}{
			"line_id":    lineID,
			"product_id": productID,
		}); err != nil {
			return err
		}
		linked = line
		return nil
	})
	if err != nil {
		return nil, err
	}
	return linked, nil
}

func buildLines(ctx context.Context, catalog domain.CatalogResolver, in []LineInput) ([]domain.PurchaseLine, error) {
	lines := make([]domain.PurchaseLine, 0, len(in))
	for i, li := range in {
		if li.Qty.IsNegative() {
			return nil, fmt.Errorf("line %d: qty cannot be negative", i+1)
		}
		if li.UnitCost.IsNegative() {
			return nil, fmt.Errorf("line %d: unit cost cannot be negative", i+1)
		}
		if li.DiscountPct.IsNegative() || li.DiscountPct.GreaterThan(decimal.NewFromInt(100)) {
			return nil, fmt.Errorf("line %d: discount must be between 0 and 100", i+1)
		}

		l := domain.PurchaseLine{
			Description: li.Description,
			SupplierSKU: li.SupplierSKU,
			Qty:         li.Qty,
			UnitCost:    li.UnitCost,
			DiscountPct: li.DiscountPct,
			Status:      domain.LineSinVincular,
		}
		if li.ProductID != nil {
			exists, err := catalog.Exists(ctx, nil, *li.ProductID)
			if err != nil {
				return nil, err
			}
			if !exists {
				return nil, fmt.Errorf("line %d: %w", i+1, domain.ErrProductNotFound)
			}
			l.ProductID = li.ProductID
			l.Status = domain.LineOK
		}
		lines = append(lines, l)
	}
	return lines, nil
}

func normalizeRemito(n *string) *string {
	if n == nil || *n == "" {
		return nil
	}
	return n
}
