package domain

// SourceType identifies the lifecycle operation that produced a ledger entry.
type SourceType string

const (
	SourcePurchase         SourceType = "purchase"
	SourcePurchaseRollback SourceType = "purchase_rollback"
	SourcePurchaseResend   SourceType = "purchase_resend"
	SourceAdjustment       SourceType = "adjustment"
)

// IsValid reports whether the source type is one the ledger accepts.
func (s SourceType) IsValid() bool {
	switch s {
	case SourcePurchase, SourcePurchaseRollback, SourcePurchaseResend, SourceAdjustment:
		return true
	}
	return false
}
