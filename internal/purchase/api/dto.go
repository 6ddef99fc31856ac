package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nmoreyra/acopio/backend/internal/purchase/domain"
	"github.com/nmoreyra/acopio/backend/internal/purchase/service"
)

type LineReq struct {
	Description string          `json:"description"`
	SupplierSKU string          `json:"supplier_sku"`
	Qty         decimal.Decimal `json:"qty"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
	ProductID   *int64          `json:"product_id"`
}

type CreatePurchaseReq struct {
	SupplierID    int64           `json:"supplier_id" binding:"required"`
	RemitoNumber  *string         `json:"remito_number"`
	RemitoDate    *time.Time      `json:"remito_date"`
	Currency      string          `json:"currency"`
	VATRate       decimal.Decimal `json:"vat_rate"`
	DiscountPct   decimal.Decimal `json:"discount_pct"`
	DiscountAbs   decimal.Decimal `json:"discount_abs"`
	DeclaredTotal decimal.Decimal `json:"declared_total"`
	Lines         []LineReq       `json:"lines"`
}

type ReplaceLinesReq struct {
	Lines []LineReq `json:"lines" binding:"required"`
}

type CancelReq struct {
	Reason string `json:"reason" binding:"required"`
}

type LinkLineReq struct {
	ProductID int64 `json:"product_id" binding:"required"`
}

type LineResp struct {
	ID          int64           `json:"id"`
	Description string          `json:"description"`
	SupplierSKU string          `json:"supplier_sku,omitempty"`
	Qty         decimal.Decimal `json:"qty"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
	Status      string          `json:"status"`
	ProductID   *int64          `json:"product_id,omitempty"`
}

type PurchaseResp struct {
	ID                int64                   `json:"id"`
	SupplierID        int64                   `json:"supplier_id"`
	RemitoNumber      *string                 `json:"remito_number,omitempty"`
	RemitoDate        *time.Time              `json:"remito_date,omitempty"`
	Currency          string                  `json:"currency"`
	VATRate           decimal.Decimal         `json:"vat_rate"`
	DiscountPct       decimal.Decimal         `json:"discount_pct"`
	DiscountAbs       decimal.Decimal         `json:"discount_abs"`
	DeclaredTotal     decimal.Decimal         `json:"declared_total"`
	State             string                  `json:"state"`
	CancelReason      *string                 `json:"cancel_reason,omitempty"`
	Reconciliation    *service.Reconciliation `json:"reconciliation,omitempty"`
	LastResendStockAt *time.Time              `json:"last_resend_stock_at,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
	Lines             []LineResp              `json:"lines"`
}

func toLineInputs(in []LineReq) []service.LineInput {
	out := make([]service.LineInput, len(in))
	for i, l := range in {
		out[i] = service.LineInput{
			Description: l.Description,
			SupplierSKU: l.SupplierSKU,
			Qty:         l.Qty,
			UnitCost:    l.UnitCost,
			DiscountPct: l.DiscountPct,
			ProductID:   l.ProductID,
		}
	}
	return out
}

func toPurchaseResp(p *domain.Purchase) PurchaseResp {
	resp := PurchaseResp{
		ID:                p.ID,
		SupplierID:        p.SupplierID,
		RemitoNumber:      p.RemitoNumber,
		RemitoDate:        p.RemitoDate,
		Currency:          p.Currency,
		VATRate:           p.VATRate,
		DiscountPct:       p.DiscountPct,
		DiscountAbs:       p.DiscountAbs,
		DeclaredTotal:     p.DeclaredTotal,
		State:             string(p.State),
		CancelReason:      p.CancelReason,
		LastResendStockAt: p.LastResendStockAt,
		CreatedAt:         p.CreatedAt,
		Lines:             make([]LineResp, len(p.Lines)),
	}
	if p.ReconPurchaseTotal != nil && p.ReconAppliedTotal != nil && p.ReconDiff != nil && p.ReconMismatch != nil {
		resp.Reconciliation = &service.Reconciliation{
			PurchaseTotal: *p.ReconPurchaseTotal,
			AppliedTotal:  *p.ReconAppliedTotal,
			Diff:          *p.ReconDiff,
			Mismatch:      *p.ReconMismatch,
		}
	}
	for i := range p.Lines {
		l := &p.Lines[i]
		resp.Lines[i] = LineResp{
			ID:          l.ID,
			Description: l.Description,
			SupplierSKU: l.SupplierSKU,
			Qty:         l.Qty,
			UnitCost:    l.UnitCost,
			DiscountPct: l.DiscountPct,
			Status:      string(l.Status),
			ProductID:   l.ProductID,
		}
	}
	return resp
}
