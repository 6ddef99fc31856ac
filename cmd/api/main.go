package main

import (
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nmoreyra/acopio/backend/internal/platform/database"
	"github.com/nmoreyra/acopio/backend/internal/platform/logger"
	"github.com/nmoreyra/acopio/backend/internal/platform/server"
	"github.com/nmoreyra/acopio/backend/internal/purchase/adapter/audit"
	"github.com/nmoreyra/acopio/backend/internal/purchase/adapter/catalog"
	purchaserepo "github.com/nmoreyra/acopio/backend/internal/purchase/adapter/repo"
	purchaseapi "github.com/nmoreyra/acopio/backend/internal/purchase/api"
	purchasedomain "github.com/nmoreyra/acopio/backend/internal/purchase/domain"
	purchaseservice "github.com/nmoreyra/acopio/backend/internal/purchase/service"
	stockrepo "github.com/nmoreyra/acopio/backend/internal/stock/adapter/repo"
	stockapi "github.com/nmoreyra/acopio/backend/internal/stock/api"
	stockdomain "github.com/nmoreyra/acopio/backend/internal/stock/domain"
	stockservice "github.com/nmoreyra/acopio/backend/internal/stock/service"
)

func main() {
	viper.SetConfigFile("../../configs/config.yaml")
	viper.SetDefault("purchases.mismatch_tolerance_abs", 0)
	viper.SetDefault("purchases.mismatch_tolerance_pct", 0.005)
	viper.SetDefault("purchases.resend_cooldown_seconds", 300)
	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("error reading config file: %s", err)
	}

	appLogger := logger.NewLogger(viper.GetString("server.mode"))

	db := database.NewPostgresDB(
		viper.GetString("database.dsn"),
		viper.GetInt("database.max_idle_conns"),
		viper.GetInt("database.max_open_conns"),
	)
	if err := db.AutoMigrate(
		&purchasedomain.Purchase{},
		&purchasedomain.PurchaseLine{},
		&stockdomain.StockLedgerEntry{},
		&stockdomain.StockLevel{},
		&catalog.Product{},
		&audit.Event{},
	); err != nil {
		appLogger.Fatal("automigration failed", zap.Error(err))
	}

	// -- Stock module --
	ledger := stockrepo.NewGormLedger(db)
	cat := catalog.NewGormCatalog(db)
	stockSvc := stockservice.NewStockService(ledger, cat, appLogger)
	stockHandler := stockapi.NewStockHandler(stockSvc)

	// -- Purchase module --
	purchaseRepo := purchaserepo.NewGormPurchaseRepo(db)
	auditSink := audit.NewGormSink(appLogger)
	purchaseSvc := purchaseservice.NewService(db, purchaseRepo, ledger, cat, auditSink, appLogger, purchaseservice.Config{
		ToleranceAbs:   decimal.NewFromFloat(viper.GetFloat64("purchases.mismatch_tolerance_abs")),
		TolerancePct:   decimal.NewFromFloat(viper.GetFloat64("purchases.mismatch_tolerance_pct")),
		ResendCooldown: time.Duration(viper.GetInt("purchases.resend_cooldown_seconds")) * time.Second,
	})
	purchaseHandler := purchaseapi.NewPurchaseHandler(purchaseSvc)

	srv := server.NewServer(
		appLogger,
		viper.GetString("server.port"),
		viper.GetString("server.mode"),
		purchaseHandler,
		stockHandler,
	)

	if err := srv.Run(); err != nil {
		appLogger.Fatal("server startup failed", zap.Error(err))
	}
}
