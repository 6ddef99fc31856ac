package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nmoreyra/acopio/backend/internal/stock/adapter/repo"
	"github.com/nmoreyra/acopio/backend/internal/stock/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestLedger(t *testing.T) (*repo.GormLedger, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&domain.StockLedgerEntry{}, &domain.StockLevel{}))
	return repo.NewGormLedger(db), db
}

func entryAt(productID, sourceID int64, delta string, at time.Time) *domain.StockLedgerEntry {
	return &domain.StockLedgerEntry{
		ProductID:  productID,
		SourceType: domain.SourcePurchase,
		SourceID:   sourceID,
		Delta:      dec(delta),
		CreatedAt:  at,
	}
}

func TestAppend_FillsIDAndBalanceAndFoldsLevel(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()
	now := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)

	e1 := entryAt(1, 100, "10", now)
	after, err := ledger.Append(ctx, db, e1)
	require.NoError(t, err)
	assert.NotEmpty(t, e1.ID)
	assert.Equal(t, "10", after.String())
	assert.Equal(t, "10", e1.BalanceAfter.String())

	e2 := entryAt(1, 100, "-4", now.Add(time.Second))
	after, err = ledger.Append(ctx, db, e2)
	require.NoError(t, err)
	assert.Equal(t, "6", after.String())

	onHand, err := ledger.ProjectionOf(ctx, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, "6", onHand.String())
}

func TestAppend_RejectsUnknownSourceType(t *testing.T) {
	ledger, db := newTestLedger(t)

	e := &domain.StockLedgerEntry{ProductID: 1, SourceType: "typo", Delta: dec("1")}
	_, err := ledger.Append(context.Background(), db, e)
	assert.Error(t, err)
}

func TestHistory_OrderSinceAndPaging(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()
	base := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := ledger.Append(ctx, db, entryAt(1, int64(100+i), "1", base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}
	// Another product's entries must not leak in.
	_, err := ledger.Append(ctx, db, entryAt(2, 200, "99", base))
	require.NoError(t, err)

	asc, err := ledger.History(ctx, 1, domain.HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, asc, 5)
	assert.Equal(t, int64(100), asc[0].SourceID)
	assert.Equal(t, int64(104), asc[4].SourceID)

	desc, err := ledger.History(ctx, 1, domain.HistoryQuery{Desc: true})
	require.NoError(t, err)
	assert.Equal(t, int64(104), desc[0].SourceID)

	since := base.Add(2 * time.Minute)
	filtered, err := ledger.History(ctx, 1, domain.HistoryQuery{Since: &since})
	require.NoError(t, err)
	assert.Len(t, filtered, 3)

	page, err := ledger.History(ctx, 1, domain.HistoryQuery{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(102), page[0].SourceID)
}

func TestEntriesForSource_FiltersByType(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()
	base := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)

	_, err := ledger.Append(ctx, db, entryAt(1, 100, "10", base))
	require.NoError(t, err)
	rollback := entryAt(1, 100, "-10", base.Add(time.Second))
	rollback.SourceType = domain.SourcePurchaseRollback
	_, err = ledger.Append(ctx, db, rollback)
	require.NoError(t, err)

	all, err := ledger.EntriesForSource(ctx, nil, 100)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyPurchase, err := ledger.EntriesForSource(ctx, nil, 100, domain.SourcePurchase)
	require.NoError(t, err)
	require.Len(t, onlyPurchase, 1)
	assert.Equal(t, domain.SourcePurchase, onlyPurchase[0].SourceType)
}

func TestReplayedBalance_EqualsProjection(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()
	base := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)

	deltas := []string{"10", "-3", "7.5", "-0.5"}
	for i, d := range deltas {
		_, err := ledger.Append(ctx, db, entryAt(1, int64(i), d, base.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
	}

	projected, err := ledger.ProjectionOf(ctx, nil, 1)
	require.NoError(t, err)
	replayed, err := ledger.ReplayedBalance(ctx, 1)
	require.NoError(t, err)

	assert.True(t, projected.Equal(replayed))
	assert.Equal(t, "14", projected.String())
}

func TestProjectionOf_UnknownProductIsZero(t *testing.T) {
	ledger, _ := newTestLedger(t)
	qty, err := ledger.ProjectionOf(context.Background(), nil, 777)
	require.NoError(t, err)
	assert.True(t, qty.IsZero())
}
