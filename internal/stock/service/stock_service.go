package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nmoreyra/acopio/backend/internal/stock/domain"
)

// StockService exposes read-side stock operations: movement history and the
// projected on-hand quantity, with a replay cross-check for diagnostics.
type StockService struct {
	ledger   domain.Ledger
	products domain.ProductChecker
	logger   *zap.Logger
}

func NewStockService(ledger domain.Ledger, products domain.ProductChecker, logger *zap.Logger) *StockService {
	return &StockService{ledger: ledger, products: products, logger: logger}
}

// Level pairs the cached projection with the value replayed from the ledger.
type Level struct {
	ProductID  int64
	QtyOnHand  decimal.Decimal
	Replayed   decimal.Decimal
	Consistent bool
}

func (s *StockService) History(ctx context.Context, productID int64, q domain.HistoryQuery) ([]domain.StockLedgerEntry, error) {
	ok, err := s.products.Exists(ctx, nil, productID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return s.ledger.History(ctx, productID, q)
}

func (s *StockService) Level(ctx context.Context, productID int64) (*Level, error) {
	ok, err := s.products.Exists(ctx, nil, productID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrProductNotFound
	}

	onHand, err := s.ledger.ProjectionOf(ctx, nil, productID)
	if err != nil {
		return nil, err
	}
	replayed, err := s.ledger.ReplayedBalance(ctx, productID)
	if err != nil {
		return nil, err
	}

	lvl := &Level{
		ProductID:  productID,
		QtyOnHand:  onHand,
		Replayed:   replayed,
		Consistent: onHand.Equal(replayed),
	}
	if !lvl.Consistent {
		// Should be impossible: entry and fold share a transaction.
		s.logger.Error("stock projection diverged from ledger replay",
			zap.Int64("product_id", productID),
			zap.String("projection", onHand.String()),
			zap.String("replayed", replayed.String()),
		)
	}
	return lvl, nil
}
