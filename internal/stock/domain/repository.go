package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// HistoryQuery narrows and pages a product's movement history.
type HistoryQuery struct {
	Since  *time.Time
	Limit  int
	Offset int
	Desc   bool
}

// Ledger is the append-only stock movement store plus its derived projection.
type Ledger interface {
	// Append writes one entry and folds its delta into the product's
	// StockLevel. Both writes happen on the caller's transaction; the entry's
	// ID and BalanceAfter are filled in. Returns the balance after the fold.
	Append(ctx context.Context, tx *gorm.DB, e *StockLedgerEntry) (decimal.Decimal, error)

	// EntriesForSource returns every entry a source document produced,
	// optionally filtered by source type, in creation order. A nil db falls
	// back to the repository's own handle.
	EntriesForSource(ctx context.Context, db *gorm.DB, sourceID int64, types ...SourceType) ([]StockLedgerEntry, error)

	// History returns a product's entries per the query, creation order
	// ascending unless Desc is set.
	History(ctx context.Context, productID int64, q HistoryQuery) ([]StockLedgerEntry, error)

	// ProjectionOf returns the cached on-hand quantity (zero if the product
	// has no movements yet). A nil db falls back to the repository's own
	// handle; pass the transaction when reading mid-transition.
	ProjectionOf(ctx context.Context, db *gorm.DB, productID int64) (decimal.Decimal, error)

	// ReplayedBalance recomputes the on-hand quantity by summing every ledger
	// delta for the product. Diagnostics only; must always equal ProjectionOf.
	ReplayedBalance(ctx context.Context, productID int64) (decimal.Decimal, error)
}

// ProductChecker is the catalog collaborator the stock module needs: just
// enough to tell a missing product from one with an empty history. A nil db
// falls back to the adapter's own handle.
type ProductChecker interface {
	Exists(ctx context.Context, db *gorm.DB, productID int64) (bool, error)
}
