package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nmoreyra/acopio/backend/internal/stock/domain"
)

type LedgerEntryResp struct {
	ID           string          `json:"id"`
	ProductID    int64           `json:"product_id"`
	SourceType   string          `json:"source_type"`
	SourceID     int64           `json:"source_id"`
	LineID       int64           `json:"line_id,omitempty"`
	Delta        decimal.Decimal `json:"delta"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Note         string          `json:"note,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func toEntryResp(e domain.StockLedgerEntry) LedgerEntryResp {
	return LedgerEntryResp{
		ID:           e.ID,
		ProductID:    e.ProductID,
		SourceType:   string(e.SourceType),
		SourceID:     e.SourceID,
		LineID:       e.LineID,
		Delta:        e.Delta,
		BalanceAfter: e.BalanceAfter,
		Note:         e.Note,
		CreatedAt:    e.CreatedAt,
	}
}

type LevelResp struct {
	ProductID  int64           `json:"product_id"`
	QtyOnHand  decimal.Decimal `json:"qty_on_hand"`
	Replayed   decimal.Decimal `json:"replayed"`
	Consistent bool            `json:"consistent"`
}
