package service

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nmoreyra/acopio/backend/internal/purchase/domain"
	stock "github.com/nmoreyra/acopio/backend/internal/stock/domain"
)

// Validate re-evaluates every line's resolution status against the current
// catalog and moves the purchase to VALIDADA. No stock or ledger effect;
// callable repeatedly while the purchase has not been confirmed.
func (s *Service) Validate(ctx context.Context, id int64) (*ValidateResult, error) {
	var result *ValidateResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		p, err := s.purchases.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if p.State != domain.StateBorrador && p.State != domain.StateValidada {
			return &domain.InvalidTransitionError{Op: "validate", From: p.State}
		}

		ok, unresolved, err := s.refreshLines(ctx, tx, p, lineRefresh{verifyLinks: true})
		if err != nil {
			return err
		}

		if err := s.purchases.UpdateGuarded(ctx, tx, p, map[string]interface{}{
			"state": domain.StateValidada,
		}); err != nil {
			return err
		}

		if err := s.audit.Record(ctx, tx, "purchase.validated", p.ID, map[string]interface{}{
			"lines_ok":         ok,
			"lines_unresolved": unresolved,
		}); err != nil {
			return err
		}

		result = &ValidateResult{State: domain.StateValidada, LinesOK: ok, LinesUnresolved: unresolved}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Confirm moves the purchase to CONFIRMADA and applies its stock effect:
// one ledger entry per resolved line, projection folded in the same
// transaction. A reconciliation mismatch does not block confirmation; the
// result flags it and the caller decides whether to roll back.
func (s *Service) Confirm(ctx context.Context, id int64) (*ConfirmResult, error) {
	start := s.now()
	var result *ConfirmResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		p, err := s.purchases.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if p.State != domain.StateBorrador && p.State != domain.StateValidada {
			return &domain.InvalidTransitionError{Op: "confirm", From: p.State}
		}

		// Best-effort auto-link by supplier SKU before computing anything.
		_, unresolved, err := s.refreshLines(ctx, tx, p, lineRefresh{autoLink: true, verifyLinks: true})
		if err != nil {
			return err
		}

		recon := Reconcile(p, s.cfg.ToleranceAbs, s.cfg.TolerancePct)

		applied, err := s.applyStock(ctx, tx, p, stock.SourcePurchase, "")
		if err != nil {
			return err
		}

		if err := s.purchases.UpdateGuarded(ctx, tx, p, map[string]interface{}{
			"state":                domain.StateConfirmada,
			"recon_purchase_total": recon.PurchaseTotal,
			"recon_applied_total":  recon.AppliedTotal,
			"recon_diff":           recon.Diff,
			"recon_mismatch":       recon.Mismatch,
		}); err != nil {
			return err
		}

		if err := s.audit.Record(ctx, tx, "purchase.confirmed", p.ID, map[string]interface{}{
			"applied":          applied,
			"reconciliation":   recon,
			"unresolved_lines": unresolved,
			"no_stock_effect":  len(applied) == 0,
			"elapsed_ms":       s.now().Sub(start).Milliseconds(),
		}); err != nil {
			return err
		}

		result = &ConfirmResult{
			State:             domain.StateConfirmada,
			Reconciliation:    recon,
			Applied:           applied,
			UnresolvedLineIDs: unresolved,
			CanRollback:       recon.Mismatch,
			NoStockEffect:     len(applied) == 0,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase confirmed",
		zap.Int64("purchase_id", id),
		zap.Int("applied_entries", len(result.Applied)),
		zap.Bool("mismatch", result.Reconciliation.Mismatch),
	)
	return result, nil
}

// Rollback undoes a confirmed purchase exactly: every ledger entry the
// purchase ever applied (confirm and resends) gets a compensating entry of
// inverse sign. The originals stay; the purchase ends ANULADA.
func (s *Service) Rollback(ctx context.Context, id int64) (*RollbackResult, error) {
	var result *RollbackResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		p, err := s.purchases.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if p.State != domain.StateConfirmada {
			return &domain.InvalidTransitionError{Op: "rollback", From: p.State}
		}

		reverted, err := s.revertApplied(ctx, tx, p)
		if err != nil {
			return err
		}

		if err := s.purchases.UpdateGuarded(ctx, tx, p, map[string]interface{}{
			"state": domain.StateAnulada,
		}); err != nil {
			return err
		}

		if err := s.audit.Record(ctx, tx, "purchase.rolled_back", p.ID, map[string]interface{}{
			"reverted": reverted,
		}); err != nil {
			return err
		}

		result = &RollbackResult{State: domain.StateAnulada, Reverted: reverted}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase rolled back",
		zap.Int64("purchase_id", id),
		zap.Int("reverted_entries", len(result.Reverted)),
	)
	return result, nil
}

// Cancel marks the purchase ANULADA with a mandatory reason. A confirmed
// purchase is reverted like Rollback; a draft is simply closed with no
// ledger effect.
func (s *Service) Cancel(ctx context.Context, id int64, reason string) (*CancelResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.ErrReasonRequired
	}

	var result *CancelResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		p, err := s.purchases.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if p.State.Terminal() {
			return &domain.InvalidTransitionError{Op: "cancel", From: p.State}
		}

		var reverted []AppliedDelta
		if p.State == domain.StateConfirmada {
			if reverted, err = s.revertApplied(ctx, tx, p); err != nil {
				return err
			}
		}

		if err := s.purchases.UpdateGuarded(ctx, tx, p, map[string]interface{}{
			"state":         domain.StateAnulada,
			"cancel_reason": reason,
		}); err != nil {
			return err
		}

		if err := s.audit.Record(ctx, tx, "purchase.cancelled", p.ID, map[string]interface{}{
			"reason":   reason,
			"reverted": reverted,
		}); err != nil {
			return err
		}

		result = &CancelResult{State: domain.StateAnulada, Reverted: reverted}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ResendStock recomputes the deltas Confirm would produce from the *current*
// line resolution (picking up lines linked after the fact) and either
// previews them or re-applies them as purchase_resend entries. Apply mode is
// cooldown-protected per purchase; the check-and-set rides on the version
// guard, so two concurrent applies cannot both pass.
func (s *Service) ResendStock(ctx context.Context, id int64, apply, debug bool) (*ResendResult, error) {
	var result *ResendResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		p, err := s.purchases.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if p.State != domain.StateConfirmada {
			return &domain.InvalidTransitionError{Op: "resend stock for", From: p.State}
		}

		var unresolved []int64
		var detail []ResendLineDetail
		for i := range p.Lines {
			l := &p.Lines[i]
			if !l.Resolved() {
				unresolved = append(unresolved, l.ID)
			}
			if debug {
				detail = append(detail, ResendLineDetail{
					LineID:    l.ID,
					Status:    l.Status,
					ProductID: l.ProductID,
					Qty:       l.Qty,
				})
			}
		}

		if !apply {
			preview, err := s.previewStock(ctx, tx, p)
			if err != nil {
				return err
			}
			result = &ResendResult{
				Mode:              ResendPreview,
				Applied:           preview,
				UnresolvedLineIDs: unresolved,
				Detail:            detail,
			}
			return nil
		}

		now := s.now()
		if p.LastResendStockAt != nil {
			elapsed := now.Sub(*p.LastResendStockAt)
			if elapsed < s.cfg.ResendCooldown {
				return &domain.CooldownError{RetryAfter: s.cfg.ResendCooldown - elapsed}
			}
		}
		if err := s.purchases.UpdateGuarded(ctx, tx, p, map[string]interface{}{
			"last_resend_stock_at": now,
		}); err != nil {
			return err
		}

		applied, err := s.applyStock(ctx, tx, p, stock.SourcePurchaseResend, "resend")
		if err != nil {
			return err
		}

		if err := s.audit.Record(ctx, tx, "purchase.stock_resent", p.ID, map[string]interface{}{
			"applied":          applied,
			"unresolved_lines": unresolved,
		}); err != nil {
			return err
		}

		result = &ResendResult{
			Mode:              ResendApply,
			Applied:           applied,
			UnresolvedLineIDs: unresolved,
			Detail:            detail,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase stock resend",
		zap.Int64("purchase_id", id),
		zap.String("mode", string(result.Mode)),
		zap.Int("deltas", len(result.Applied)),
	)
	return result, nil
}

// lineRefresh controls what refreshLines is allowed to change.
type lineRefresh struct {
	autoLink    bool // try catalog lookup by supplier SKU for unresolved lines
	verifyLinks bool // drop links whose product no longer exists
}

// refreshLines recomputes every line's resolution status, persisting lines
// that changed. Returns the ids of resolved and unresolved lines.
func (s *Service) refreshLines(ctx context.Context, tx *gorm.DB, p *domain.Purchase, opts lineRefresh) (ok, unresolved []int64, err error) {
	for i := range p.Lines {
		l := &p.Lines[i]
		prevStatus := l.Status
		prevProduct := l.ProductID

		if opts.verifyLinks && l.ProductID != nil {
			exists, err := s.catalog.Exists(ctx, tx, *l.ProductID)
			if err != nil {
				return nil, nil, err
			}
			if !exists {
				l.ProductID = nil
			}
		}

		if opts.autoLink && l.ProductID == nil && l.SupplierSKU != "" && l.Qty.IsPositive() {
			pid, err := s.catalog.ResolveBySupplierSKU(ctx, tx, p.SupplierID, l.SupplierSKU)
			if err != nil {
				return nil, nil, err
			}
			l.ProductID = pid
		}

		if l.Resolved() {
			l.Status = domain.LineOK
			ok = append(ok, l.ID)
		} else {
			l.Status = domain.LineSinVincular
			unresolved = append(unresolved, l.ID)
		}

		changed := l.Status != prevStatus ||
			(l.ProductID == nil) != (prevProduct == nil) ||
			(l.ProductID != nil && prevProduct != nil && *l.ProductID != *prevProduct)
		if changed {
			if err := s.purchases.SaveLine(ctx, tx, l); err != nil {
				return nil, nil, err
			}
		}
	}
	return ok, unresolved, nil
}

// applyStock appends one ledger entry per resolved line on the caller's
// transaction and folds the deltas into the projection.
func (s *Service) applyStock(ctx context.Context, tx *gorm.DB, p *domain.Purchase, source stock.SourceType, note string) ([]AppliedDelta, error) {
	applied := []AppliedDelta{}
	for i := range p.Lines {
		l := &p.Lines[i]
		if !l.Resolved() {
			continue
		}
		entry := &stock.StockLedgerEntry{
			ProductID:  *l.ProductID,
			SourceType: source,
			SourceID:   p.ID,
			LineID:     l.ID,
			Delta:      l.Qty,
			Note:       note,
		}
		after, err := s.ledger.Append(ctx, tx, entry)
		if err != nil {
			return nil, err
		}
		applied = append(applied, AppliedDelta{
			ProductID:     entry.ProductID,
			LineID:        l.ID,
			Delta:         entry.Delta,
			BalanceBefore: after.Sub(entry.Delta),
			BalanceAfter:  after,
		})
	}
	return applied, nil
}

// previewStock computes the deltas applyStock would produce, without writing.
// Reads ride the caller's transaction so the preview matches its snapshot.
func (s *Service) previewStock(ctx context.Context, tx *gorm.DB, p *domain.Purchase) ([]AppliedDelta, error) {
	preview := []AppliedDelta{}
	for i := range p.Lines {
		l := &p.Lines[i]
		if !l.Resolved() {
			continue
		}
		before, err := s.ledger.ProjectionOf(ctx, tx, *l.ProductID)
		if err != nil {
			return nil, err
		}
		preview = append(preview, AppliedDelta{
			ProductID:     *l.ProductID,
			LineID:        l.ID,
			Delta:         l.Qty,
			BalanceBefore: before,
			BalanceAfter:  before.Add(l.Qty),
		})
	}
	return preview, nil
}

// revertApplied appends a compensating entry for everything the purchase has
// applied so far, confirm and resends alike. Originals are never touched.
func (s *Service) revertApplied(ctx context.Context, tx *gorm.DB, p *domain.Purchase) ([]AppliedDelta, error) {
	entries, err := s.ledger.EntriesForSource(ctx, tx, p.ID, stock.SourcePurchase, stock.SourcePurchaseResend)
	if err != nil {
		return nil, err
	}

	reverted := []AppliedDelta{}
	for _, orig := range entries {
		entry := &stock.StockLedgerEntry{
			ProductID:  orig.ProductID,
			SourceType: stock.SourcePurchaseRollback,
			SourceID:   p.ID,
			LineID:     orig.LineID,
			Delta:      orig.Delta.Neg(),
			Note:       "REV: " + string(orig.SourceType),
		}
		after, err := s.ledger.Append(ctx, tx, entry)
		if err != nil {
			return nil, err
		}
		reverted = append(reverted, AppliedDelta{
			ProductID:     entry.ProductID,
			LineID:        entry.LineID,
			Delta:         entry.Delta,
			BalanceBefore: after.Sub(entry.Delta),
			BalanceAfter:  after,
		})
	}
	return reverted, nil
}
