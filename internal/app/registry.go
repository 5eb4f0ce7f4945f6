package app

import (
	"database/sql"

	"go-fleet/internal/audit"
	"go-fleet/internal/config"
	"go-fleet/internal/driver"
	"go-fleet/internal/leave"
	"go-fleet/internal/messaging/kafka"
	"go-fleet/internal/notification"
	"go-fleet/internal/shared/metrics"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	cfg *config.Config,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
	recorder audit.Recorder,
	leaveMetrics *metrics.Leave,
	logger *zap.Logger,
) {
	// --- Repositories ---
	driverRepo := driver.NewRepository(gormDB)
	leaveRepo := leave.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- Services ---
	ledger := driver.NewLedger(driverRepo, rdb, cfg.Leave.BalanceCacheTTL, logger)
	policy := driver.NewAllowancePolicy(cfg.Allowance)
	notifier := notification.NewOutboxNotifier(outboxRepo, logger)

	driverService := driver.NewService(driverRepo, ledger, policy, logger)
	leaveService := leave.NewService(db, leaveRepo, ledger, notifier, recorder, leaveMetrics, cfg.Leave, logger)

	// --- Handlers ---
	driverHandler := driver.NewHandler(driverService, logger)
	leaveHandler := leave.NewHandler(leaveService, logger)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	{
		driver.RegisterRoutes(api, driverHandler, cfg.Auth.JWTSecret)
		leave.RegisterRoutes(api, leaveHandler, cfg.Auth.JWTSecret, rdb, logger)
	}
}
