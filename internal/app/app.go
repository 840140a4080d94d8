package app

import (
	"database/sql"
	"fmt"
	"log"

	"go-pointage/internal/audit"
	"go-pointage/internal/bootstrap"
	"go-pointage/internal/config"
	"go-pointage/internal/middleware"
	"go-pointage/internal/shared/connection"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds the infrastructure shared by the api process.
type App struct {
	DB     *sql.DB
	GormDB *gorm.DB
	Redis  *redis.Client
	Audit  audit.Logger

	closers []func()
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func BuildApp(router *gin.Engine, cfg *config.Config) (*App, error) {
	logger := zap.L().Named("app")

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	// 1. Setup Infrastructure
	gormDB, err := connection.ConnectGORMWithRetry(cfg.Database)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	log.Println("✅ Database connection established")

	a := &App{DB: sqlDB, GormDB: gormDB}
	a.closers = append(a.closers, func() { _ = sqlDB.Close() })

	if err := Migrate(gormDB); err != nil {
		a.Close()
		return nil, err
	}

	// Redis opsional: tanpa redis, cache overview dan idempotency dimatikan
	if cfg.Redis.Addr != "" {
		redisClient, err := connection.ConnectRedisWithRetry(cfg.Redis.Addr, cfg.Database.MaxRetries)
		if err != nil {
			a.Close()
			return nil, err
		}
		log.Println("✅ Redis connection established")
		a.Redis = redisClient
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
	} else {
		logger.Warn("REDIS_ADDR not set, overview cache and idempotency disabled")
	}

	auditLogger, closeAudit, err := buildAuditLogger(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Audit = auditLogger
	a.closers = append(a.closers, closeAudit)

	middleware.IdempotencyTTL = cfg.Server.IdempotencyTTL

	// Register Modules & Routes
	if err := registerModules(router, a, cfg, zap.L()); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func buildAuditLogger(cfg *config.Config, logger *zap.Logger) (audit.Logger, func(), error) {
	stdout := bootstrap.NewStdoutAuditLogger(logger)
	if cfg.Kafka.Broker == "" {
		return stdout, func() {}, nil
	}

	// audit writer is async; the outbox worker keeps its own synchronous writer
	writer, err := connection.ConnectAsyncKafkaWithRetry(cfg.Kafka.Broker, cfg.Database.MaxRetries,
		audit.CompletionLogger(logger.Named("audit.kafka")))
	if err != nil {
		return nil, nil, err
	}
	sink := audit.NewKafkaLogger(writer, cfg.Kafka.AuditTopic, logger)
	closeWriter := func() {
		sink.Close()
		_ = writer.Close()
	}

	return audit.Multi(stdout, sink), closeWriter, nil
}
