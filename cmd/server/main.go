package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"settlement-core.backend/internal/app"
	"settlement-core.backend/internal/config"
	"settlement-core.backend/internal/infrastructure/datasources/postgres"
	"settlement-core.backend/internal/infrastructure/jobs"
	"settlement-core.backend/internal/interfaces/http/handlers"
	"settlement-core.backend/internal/interfaces/http/middleware"
	"settlement-core.backend/pkg/jwt"
	"settlement-core.backend/pkg/logger"
	"settlement-core.backend/pkg/redis"
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openDB     = postgres.NewConnection
	migrateDB  = postgres.Migrate
	runServer  = func(r *gin.Engine, port string) error { return r.Run(":" + port) }
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()

	initLog(cfg.Server.Env, logger.FileConfig{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	ctx := context.Background()
	logger.Info(ctx, "Logger initialized", zap.String("env", cfg.Server.Env))

	redisEnabled := cfg.Redis.URL != ""
	if redisEnabled {
		if err := initRedis(cfg.Redis.URL, cfg.Redis.PASSWORD); err != nil {
			logger.Error(ctx, "Failed to initialize Redis", zap.Error(err))
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		defer redis.Close()
		logger.Info(ctx, "Redis initialized")
	} else {
		logger.Warn(ctx, "REDIS_URL not set, idempotency keys disabled")
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer closeDB(db)
	logger.Info(ctx, "Connected to PostgreSQL via GORM")

	if cfg.Database.AutoMigrate {
		if err := migrateDB(db); err != nil {
			return err
		}
		logger.Info(ctx, "Owned tables migrated")
	}

	locker, err := app.NewLocker(cfg.Ledger, redis.GetClient())
	if err != nil {
		return err
	}
	services := app.NewServices(db, cfg, locker)

	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessExpiry)

	deps := routeDeps{
		commissionHandler: handlers.NewCommissionHandler(services.Commission),
		trustScoreHandler: handlers.NewTrustScoreHandler(services.TrustScore),
		payoutHandler:     handlers.NewPayoutHandler(services.Payout),
		ledgerHandler:     handlers.NewLedgerHandler(services.Ledger),
		settlementHandler: handlers.NewSettlementHandler(services.Settlement),
		authMiddleware:    middleware.AuthMiddleware(jwtService),
	}
	if redisEnabled {
		deps.idempotency = middleware.IdempotencyMiddleware()
	}

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sweepJob *jobs.HoldReleaseSweepJob
	var cycleJob *jobs.SettlementCycleJob
	if cfg.Jobs.Enabled {
		sweepJob = jobs.NewHoldReleaseSweepJob(services.Ledger, cfg.Jobs.HoldSweepInterval, cfg.Jobs.BatchSize)
		cycleJob = jobs.NewSettlementCycleJob(services.Settlement, cfg.Jobs.SettlementInterval, cfg.Jobs.Concurrency)
		go sweepJob.Start(jobCtx)
		go cycleJob.Start(jobCtx)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())

	registerHealthRoute(r)
	registerMetricsRoute(r)
	registerAPIV1Routes(r, deps)

	for _, route := range r.Routes() {
		logger.Debug(ctx, "Route registered", zap.String("method", route.Method), zap.String("path", route.Path))
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info(ctx, "Shutting down server")
		if sweepJob != nil {
			sweepJob.Stop()
			cycleJob.Stop()
		}
		cancel()
	}()

	logger.Info(ctx, "Settlement core starting", zap.String("port", cfg.Server.Port))
	if err := runServer(r, cfg.Server.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
