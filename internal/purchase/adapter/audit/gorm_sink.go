package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Event is one audit row. Rows are written on the same transaction as the
// lifecycle transition they describe and are never updated afterwards.
type Event struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	EventType  string `gorm:"size:64;index;not null"`
	PurchaseID int64  `gorm:"index;not null"`
	Payload    string `gorm:"type:text"`
	CreatedAt  time.Time
}

func (Event) TableName() string { return "audit_events" }

// GormSink persists audit events and mirrors them to the structured log.
type GormSink struct {
	logger *zap.Logger
}

func NewGormSink(logger *zap.Logger) *GormSink {
	return &GormSink{logger: logger}
}

func (s *GormSink) Record(ctx context.Context, tx *gorm.DB, eventType string, purchaseID int64, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("audit: marshal payload: %w", err)
	}
	row := Event{EventType: eventType, PurchaseID: purchaseID, Payload: string(body)}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("audit: write event: %w", err)
	}
	s.logger.Info("audit event",
		zap.String("event", eventType),
		zap.Int64("purchase_id", purchaseID),
	)
	return nil
}
