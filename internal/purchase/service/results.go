package service

import (
	"github.com/shopspring/decimal"

	"github.com/nmoreyra/acopio/backend/internal/purchase/domain"
)

// AppliedDelta describes one stock mutation a transition performed (or, in
// resend preview mode, would perform).
type AppliedDelta struct {
	ProductID     int64           `json:"product_id"`
	LineID        int64           `json:"line_id"`
	Delta         decimal.Decimal `json:"delta"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
}

type ValidateResult struct {
	State           domain.State `json:"state"`
	LinesOK         []int64      `json:"lines_ok"`
	LinesUnresolved []int64      `json:"lines_unresolved"`
}

type ConfirmResult struct {
	State             domain.State   `json:"state"`
	Reconciliation    Reconciliation `json:"reconciliation"`
	Applied           []AppliedDelta `json:"applied_deltas"`
	UnresolvedLineIDs []int64        `json:"unresolved_lines"`
	// CanRollback signals the caller may want to undo a mismatched confirm.
	CanRollback bool `json:"can_rollback"`
	// NoStockEffect flags a confirm where no line was resolved.
	NoStockEffect bool `json:"no_stock_effect"`
}

type RollbackResult struct {
	State    domain.State   `json:"state"`
	Reverted []AppliedDelta `json:"reverted_deltas"`
}

type CancelResult struct {
	State    domain.State   `json:"state"`
	Reverted []AppliedDelta `json:"reverted_deltas"`
}

type ResendMode string

const (
	ResendPreview ResendMode = "preview"
	ResendApply   ResendMode = "apply"
)

// ResendLineDetail is per-line diagnostics returned in debug mode.
type ResendLineDetail struct {
	LineID    int64             `json:"line_id"`
	Status    domain.LineStatus `json:"status"`
	ProductID *int64            `json:"product_id,omitempty"`
	Qty       decimal.Decimal   `json:"qty"`
}

type ResendResult struct {
	Mode              ResendMode         `json:"mode"`
	Applied           []AppliedDelta     `json:"applied_deltas"`
	UnresolvedLineIDs []int64            `json:"unresolved_lines"`
	Detail            []ResendLineDetail `json:"detail,omitempty"`
}
