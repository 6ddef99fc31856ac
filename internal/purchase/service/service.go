package service

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nmoreyra/acopio/backend/internal/purchase/domain"
	stock "github.com/nmoreyra/acopio/backend/internal/stock/domain"
)

// Config carries the tunables of the lifecycle engine. Acceptable
// reconciliation slack depends on how many lines a data source typically
// leaves unresolved, so the tolerance is configuration, not a constant.
type Config struct {
	ToleranceAbs   decimal.Decimal
	TolerancePct   decimal.Decimal
	ResendCooldown time.Duration
}

// Service owns the purchase lifecycle: draft editing, validation,
// confirmation, rollback, cancellation and stock resend. It is the only
// component that writes to the stock ledger; every transition runs inside a
// single database transaction guarded by the purchase's version.
type Service struct {
	db        *gorm.DB
	purchases domain.PurchaseRepository
	ledger    stock.Ledger
	catalog   domain.CatalogResolver
	audit     domain.AuditSink
	logger    *zap.Logger
	cfg       Config
	now       func() time.Time
}

func NewService(
	db *gorm.DB,
	purchases domain.PurchaseRepository,
	ledger stock.Ledger,
	catalog domain.CatalogResolver,
	audit domain.AuditSink,
	logger *zap.Logger,
	cfg Config,
) *Service {
	return &Service{
		db:        db,
		purchases: purchases,
		ledger:    ledger,
		catalog:   catalog,
		audit:     audit,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithClock swaps the time source. Used by tests to drive the resend
// cooldown.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
