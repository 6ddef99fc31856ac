package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nmoreyra/acopio/backend/internal/purchase/adapter/audit"
	"github.com/nmoreyra/acopio/backend/internal/purchase/adapter/catalog"
	purchaserepo "github.com/nmoreyra/acopio/backend/internal/purchase/adapter/repo"
	"github.com/nmoreyra/acopio/backend/internal/purchase/api"
	"github.com/nmoreyra/acopio/backend/internal/purchase/domain"
	"github.com/nmoreyra/acopio/backend/internal/purchase/service"
	stockrepo "github.com/nmoreyra/acopio/backend/internal/stock/adapter/repo"
	stockdomain "github.com/nmoreyra/acopio/backend/internal/stock/domain"
)

type apiFixture struct {
	db     *gorm.DB
	svc    *service.Service
	router *gin.Engine
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&domain.Purchase{},
		&domain.PurchaseLine{},
		&stockdomain.StockLedgerEntry{},
		&stockdomain.StockLevel{},
		&catalog.Product{},
		&audit.Event{},
	))

	ledger := stockrepo.NewGormLedger(db)
	cat := catalog.NewGormCatalog(db)
	svc := service.NewService(db, purchaserepo.NewGormPurchaseRepo(db), ledger, cat,
		audit.NewGormSink(zap.NewNop()), zap.NewNop(), service.Config{
			ToleranceAbs:   decimal.Zero,
			TolerancePct:   decimal.RequireFromString("0.005"),
			ResendCooldown: 300 * time.Second,
		})

	router := gin.New()
	v1 := router.Group("/api/v1")
	api.NewPurchaseHandler(svc).RegisterRoutes(v1)

	return &apiFixture{db: db, svc: svc, router: router}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) confirmedPurchase(t *testing.T) int64 {
	t.Helper()
	p := catalog.Product{Name: "yerba", SupplierID: 1, SupplierSKU: "Y-1"}
	require.NoError(t, f.db.Create(&p).Error)

	created, err := f.svc.Create(context.Background(), service.CreateInput{
		SupplierID:    1,
		DeclaredTotal: decimal.RequireFromString("50"),
		Lines: []service.LineInput{{
			Qty:       decimal.RequireFromString("10"),
			UnitCost:  decimal.RequireFromString("5"),
			ProductID: &p.ID,
		}},
	})
	require.NoError(t, err)
	_, err = f.svc.Confirm(context.Background(), created.ID)
	require.NoError(t, err)
	return created.ID
}

func TestHandler_ConfirmUnknownPurchaseIs404(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodPost, "/api/v1/purchases/9999/confirm", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_CreateThenConfirm(t *testing.T) {
	f := newAPIFixture(t)
	p := catalog.Product{Name: "yerba", SupplierID: 1, SupplierSKU: "Y-1"}
	require.NoError(t, f.db.Create(&p).Error)

	w := f.do(t, http.MethodPost, "/api/v1/purchases", gin.H{
		"supplier_id":    1,
		"declared_total": "100",
		"lines": []gin.H{
			{"qty": "10", "unit_cost": "5", "product_id": p.ID},
			{"qty": "5", "unit_cost": "10", "product_id": p.ID},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID    int64  `json:"id"`
		State string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "BORRADOR", created.State)

	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/purchases/%d/confirm", created.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res struct {
		State          string `json:"state"`
		Reconciliation struct {
			AppliedTotal decimal.Decimal `json:"applied_total"`
			Mismatch     bool            `json:"mismatch"`
		} `json:"reconciliation"`
		CanRollback bool `json:"can_rollback"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "CONFIRMADA", res.State)
	assert.Equal(t, "100", res.Reconciliation.AppliedTotal.String())
	assert.False(t, res.Reconciliation.Mismatch)
	assert.False(t, res.CanRollback)

	// Second confirm is a conflict, not a double-apply.
	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/purchases/%d/confirm", created.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandler_CancelWithoutReasonIs400(t *testing.T) {
	f := newAPIFixture(t)
	id := f.confirmedPurchase(t)

	w := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/purchases/%d/cancel", id), gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_ResendCooldownIs429WithRetryAfter(t *testing.T) {
	f := newAPIFixture(t)
	id := f.confirmedPurchase(t)

	w := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/purchases/%d/resend-stock?apply=true", id), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/purchases/%d/resend-stock?apply=true", id), nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var res struct {
		RetryAfterSeconds int64 `json:"retry_after_seconds"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Greater(t, res.RetryAfterSeconds, int64(0))
	assert.LessOrEqual(t, res.RetryAfterSeconds, int64(300))
}

func TestHandler_RollbackAfterMismatch(t *testing.T) {
	f := newAPIFixture(t)
	p := catalog.Product{Name: "yerba", SupplierID: 1, SupplierSKU: "Y-1"}
	require.NoError(t, f.db.Create(&p).Error)

	created, err := f.svc.Create(context.Background(), service.CreateInput{
		SupplierID:    1,
		DeclaredTotal: decimal.RequireFromString("1200"),
		Lines: []service.LineInput{{
			Qty:       decimal.RequireFromString("10"),
			UnitCost:  decimal.RequireFromString("100"),
			ProductID: &p.ID,
		}},
	})
	require.NoError(t, err)

	w := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/purchases/%d/confirm", created.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var confirmRes struct {
		CanRollback bool `json:"can_rollback"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &confirmRes))
	assert.True(t, confirmRes.CanRollback)

	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/purchases/%d/rollback", created.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rbRes struct {
		State string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rbRes))
	assert.Equal(t, "ANULADA", rbRes.State)
}
