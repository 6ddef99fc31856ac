package service

import (
	"github.com/shopspring/decimal"

	"github.com/nmoreyra/acopio/backend/internal/purchase/domain"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Reconciliation compares what the supplier declared with what confirmation
// actually applies to stock. Unresolved lines create an expected,
// non-error gap; Mismatch only trips once the gap exceeds the tolerance.
type Reconciliation struct {
	PurchaseTotal decimal.Decimal `json:"purchase_total"`
	AppliedTotal  decimal.Decimal `json:"applied_total"`
	Diff          decimal.Decimal `json:"diff"`
	ToleranceAbs  decimal.Decimal `json:"tolerance_abs"`
	TolerancePct  decimal.Decimal `json:"tolerance_pct"`
	Mismatch      bool            `json:"mismatch"`
}

// LineNet is the effective cost of one line: qty * unit_cost * (1 - disc/100).
func LineNet(l *domain.PurchaseLine) decimal.Decimal {
	factor := one.Sub(l.DiscountPct.Div(hundred))
	return l.Qty.Mul(l.UnitCost).Mul(factor)
}

// Reconcile is a pure function over the purchase header and its lines.
//
// applied_total sums resolved lines only. purchase_total is the declared
// document total when present; otherwise it is recomputed from the full line
// set (unresolved included, since that is what the supplier declared) with
// the global discount and VAT applied. The mismatch threshold is
// max(tolerance_abs, tolerance_pct * purchase_total).
func Reconcile(p *domain.Purchase, tolAbs, tolPct decimal.Decimal) Reconciliation {
	var gross, applied decimal.Decimal
	for i := range p.Lines {
		l := &p.Lines[i]
		net := LineNet(l)
		gross = gross.Add(net)
		if l.Resolved() {
			applied = applied.Add(net)
		}
	}

	purchaseTotal := p.DeclaredTotal
	if purchaseTotal.IsZero() {
		purchaseTotal = headerTotal(gross, p)
	}

	diff := purchaseTotal.Sub(applied)
	threshold := decimal.Max(tolAbs, tolPct.Mul(purchaseTotal.Abs()))

	return Reconciliation{
		PurchaseTotal: purchaseTotal,
		AppliedTotal:  applied,
		Diff:          diff,
		ToleranceAbs:  tolAbs,
		TolerancePct:  tolPct,
		Mismatch:      diff.Abs().GreaterThan(threshold),
	}
}

// headerTotal applies the global discount (absolute wins over percent) and
// VAT to the gross line total.
func headerTotal(gross decimal.Decimal, p *domain.Purchase) decimal.Decimal {
	net := gross
	switch {
	case p.DiscountAbs.IsPositive():
		net = net.Sub(p.DiscountAbs)
	case p.DiscountPct.IsPositive():
		net = net.Mul(one.Sub(p.DiscountPct.Div(hundred)))
	}
	if p.VATRate.IsPositive() {
		net = net.Mul(one.Add(p.VATRate.Div(hundred)))
	}
	return net
}
