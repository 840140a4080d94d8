package app

import (
	"net/http"

	"go-pointage/internal/calendar"
	"go-pointage/internal/closing"
	"go-pointage/internal/config"
	"go-pointage/internal/employee"
	"go-pointage/internal/hourbank"
	"go-pointage/internal/messaging/kafka"
	"go-pointage/internal/middleware"
	"go-pointage/internal/rbac"
	"go-pointage/internal/rbac/infra"
	"go-pointage/internal/shared/counter"
	"go-pointage/internal/shared/keylock"
	"go-pointage/internal/shared/response"
	"go-pointage/internal/timesheet"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func registerModules(
	router *gin.Engine,
	a *App,
	cfg *config.Config,
	logger *zap.Logger,
) error {
	db, gormDB, rdb := a.DB, a.GormDB, a.Redis

	// --- Repositories ---
	rbacRepo := rbac.NewRepository(gormDB)
	employeeRepo := employee.NewRepository(gormDB)
	timesheetRepo := timesheet.NewRepository(gormDB)
	hourBankRepo := hourbank.NewRepository(gormDB)
	counterRepo := counter.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- RBAC Core ---
	enforcer, err := infra.NewEnforcer("")
	if err != nil {
		return err
	}
	rbacService := rbac.NewService(rbacRepo, enforcer, logger)
	if err := rbacService.LoadPolicy(); err != nil {
		return err
	}

	// --- Pointage core ---
	calc := calendar.NewCalculator(calendar.Config{WorkingDays: cfg.Pointage.WorkingDays})
	locks := keylock.New()
	loader := timesheet.NewLoader(timesheetRepo, hourbank.NewBalanceReader(hourBankRepo), calc)
	ledger := hourbank.NewLedger(hourBankRepo)

	// --- Services ---
	employeeService := employee.NewService(db, employeeRepo, counterRepo, outboxRepo, a.Audit, rdb, logger)
	timesheetService := timesheet.NewService(db, timesheetRepo, loader, locks, timesheet.Options{
		MaxDailyHours: cfg.Pointage.MaxDailyHours,
		OverviewTTL:   cfg.Redis.OverviewTTL,
		Audit:         a.Audit,
		Redis:         rdb,
	}, logger)
	hourBankService := hourbank.NewService(db, hourBankRepo, timesheetRepo, loader, locks, a.Audit, rdb, logger)
	closingService := closing.NewService(db, timesheetRepo, loader, ledger, outboxRepo, locks, a.Audit, rdb, logger)

	// --- Handlers ---
	employeeHandler := employee.NewHandler(employeeService, logger)
	timesheetHandler := timesheet.NewHandler(timesheetService, logger)
	hourBankHandler := hourbank.NewHandler(hourBankService, logger)
	closingHandler := closing.NewHandler(closingService, logger)
	rbacHandler := rbac.NewHandler(rbacService)

	// --- Routes Registration ---
	router.Use(middleware.RequestID())
	router.GET("/healthz", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "up"}, nil)
	})

	api := router.Group("/api/v1")
	api.Use(
		middleware.AuthMiddleware(cfg.Auth.JWTSecret),
		middleware.ContextLogger(logger),
		middleware.RateLimitByUser(rate.Limit(cfg.Server.RateLimitRPS), cfg.Server.RateLimitBurst),
	)
	{
		employee.RegisterRoutes(api, employeeHandler, rbacService)
		timesheet.RegisterRoutes(api, timesheetHandler, rbacService, rdb)
		hourbank.RegisterRoutes(api, hourBankHandler, rbacService, rdb)
		closing.RegisterRoutes(api, closingHandler, rbacService, rdb)
		rbac.RegisterRoutes(api, rbacHandler)
	}

	return nil
}
