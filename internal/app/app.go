package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"go-fleet/internal/audit"
	"go-fleet/internal/config"
	"go-fleet/internal/middleware"
	"go-fleet/internal/shared/connection"
	"go-fleet/internal/shared/database"
	"go-fleet/internal/shared/metrics"
	"go-fleet/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// App holds the long-lived resources of the API process.
type App struct {
	Recorder audit.Recorder

	sqlDB    *sql.DB
	rdb      *redis.Client
	recorder *audit.QueuedRecorder
	cancel   context.CancelFunc
}

func BuildApp(router *gin.Engine, cfg *config.Config, logger *zap.Logger) (*App, error) {
	log := logger.Named("app")

	// 1. Infrastructure
	gormDB, err := connection.ConnectGORMWithRetry(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	log.Info("database ready")

	rdb, err := connection.ConnectRedisWithRetry(cfg.Redis, cfg.Database.MaxRetries, logger)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	log.Info("redis ready")

	// 2. Ambient services
	ctx, cancel := context.WithCancel(context.Background())
	recorder := audit.NewQueuedRecorder(audit.NewZapWriter(logger), cfg.Audit.QueueSize, cfg.Audit.MaxRetries, logger)
	recorder.Start(ctx)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	leaveMetrics := metrics.NewLeave(reg)

	// 3. Global middleware and infra routes
	router.Use(
		middleware.RequestID(),
		middleware.ContextLogger(logger),
		middleware.RateLimitByIP(rate.Limit(cfg.RateLimit.PerSecond), cfg.RateLimit.Burst),
	)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	router.GET("/healthz", healthHandler(sqlDB, rdb))

	// 4. Modules
	registerModules(router, cfg, sqlDB, gormDB, rdb, recorder, leaveMetrics, logger)

	return &App{
		Recorder: recorder,
		sqlDB:    sqlDB,
		rdb:      rdb,
		recorder: recorder,
		cancel:   cancel,
	}, nil
}

// Close flushes the audit queue and releases connections.
func (a *App) Close() {
	a.recorder.Close()
	a.cancel()
	_ = a.rdb.Close()
	_ = a.sqlDB.Close()
}

func healthHandler(db *sql.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			response.Error(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "database unavailable", nil)
			return
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			response.Error(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "redis unavailable", nil)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok"}, nil)
	}
}
