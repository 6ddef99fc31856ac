package service_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/nmoreyra/acopio/backend/internal/purchase/domain"
	"github.com/nmoreyra/acopio/backend/internal/purchase/service"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func resolvedLine(qty, cost, disc string, productID int64) domain.PurchaseLine {
	return domain.PurchaseLine{
		Qty:         dec(qty),
		UnitCost:    dec(cost),
		DiscountPct: dec(disc),
		Status:      domain.LineOK,
		ProductID:   &productID,
	}
}

func unresolvedLine(qty, cost, disc string) domain.PurchaseLine {
	return domain.PurchaseLine{
		Qty:         dec(qty),
		UnitCost:    dec(cost),
		DiscountPct: dec(disc),
		Status:      domain.LineSinVincular,
	}
}

func TestReconcile_ToleranceBoundary(t *testing.T) {
	// diff of exactly tolerance_pct * purchase_total is NOT a mismatch.
	p := &domain.Purchase{
		DeclaredTotal: dec("1000"),
		Lines:         []domain.PurchaseLine{resolvedLine("1", "995", "0", 1)},
	}
	r := service.Reconcile(p, decimal.Zero, dec("0.005"))
	assert.Equal(t, "1000", r.PurchaseTotal.String())
	assert.Equal(t, "995", r.AppliedTotal.String())
	assert.Equal(t, "5", r.Diff.String())
	assert.False(t, r.Mismatch, "diff exactly at the boundary must not trip")

	p.Lines[0].UnitCost = dec("994")
	r = service.Reconcile(p, decimal.Zero, dec("0.005"))
	assert.Equal(t, "6", r.Diff.String())
	assert.True(t, r.Mismatch, "diff past the boundary must trip")
}

func TestReconcile_AbsoluteToleranceWins(t *testing.T) {
	p := &domain.Purchase{
		DeclaredTotal: dec("100"),
		Lines:         []domain.PurchaseLine{resolvedLine("1", "93", "0", 1)},
	}
	// pct threshold would be 0.5 but abs 10 covers the gap of 7.
	r := service.Reconcile(p, dec("10"), dec("0.005"))
	assert.False(t, r.Mismatch)
}

func TestReconcile_UnresolvedLinesExcludedFromApplied(t *testing.T) {
	p := &domain.Purchase{
		Lines: []domain.PurchaseLine{
			resolvedLine("10", "5", "0", 1),
			resolvedLine("5", "10", "0", 2),
			unresolvedLine("3", "7", "0"),
		},
	}
	r := service.Reconcile(p, decimal.Zero, dec("0.005"))
	// Declared total absent: purchase_total recomputed from the FULL line
	// set, the unresolved line included.
	assert.Equal(t, "121", r.PurchaseTotal.String())
	assert.Equal(t, "100", r.AppliedTotal.String())
	assert.Equal(t, "21", r.Diff.String())
	assert.True(t, r.Mismatch)
}

func TestReconcile_HeaderTotalWithDiscountAndVAT(t *testing.T) {
	p := &domain.Purchase{
		DiscountPct: dec("10"),
		VATRate:     dec("21"),
		Lines: []domain.PurchaseLine{
			resolvedLine("10", "10", "0", 1),
			resolvedLine("5", "20", "50", 2), // line discount halves it
		},
	}
	// gross = 100 + 50 = 150; -10% = 135; +21% VAT = 163.35
	r := service.Reconcile(p, decimal.Zero, dec("0.005"))
	assert.Equal(t, "163.35", r.PurchaseTotal.String())
	assert.Equal(t, "150", r.AppliedTotal.String())
}

func TestReconcile_AbsoluteDiscountWinsOverPercent(t *testing.T) {
	p := &domain.Purchase{
		DiscountPct: dec("10"),
		DiscountAbs: dec("20"),
		Lines:       []domain.PurchaseLine{resolvedLine("10", "15", "0", 1)},
	}
	// gross 150, absolute discount wins: 130. No VAT.
	r := service.Reconcile(p, decimal.Zero, dec("0.005"))
	assert.Equal(t, "130", r.PurchaseTotal.String())
}

func TestReconcile_DeclaredTotalWinsOverComputed(t *testing.T) {
	p := &domain.Purchase{
		DeclaredTotal: dec("500"),
		VATRate:       dec("21"),
		Lines:         []domain.PurchaseLine{resolvedLine("10", "50", "0", 1)},
	}
	r := service.Reconcile(p, decimal.Zero, dec("0.005"))
	assert.Equal(t, "500", r.PurchaseTotal.String())
	assert.Equal(t, "500", r.AppliedTotal.String())
	assert.False(t, r.Mismatch)
}

func TestLineNet_AppliesLineDiscount(t *testing.T) {
	l := resolvedLine("4", "25", "25", 1)
	assert.Equal(t, "75", service.LineNet(&l).String())
}
