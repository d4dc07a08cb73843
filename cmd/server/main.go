package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/dealerdesk/backend/api/handler"
	"github.com/dealerdesk/backend/internal/config"
	"github.com/dealerdesk/backend/internal/infrastructure/buffer"
	"github.com/dealerdesk/backend/internal/infrastructure/monitor"
	pgInfra "github.com/dealerdesk/backend/internal/infrastructure/postgres"
	redisInfra "github.com/dealerdesk/backend/internal/infrastructure/redis"
	"github.com/dealerdesk/backend/internal/middleware"
	"github.com/dealerdesk/backend/internal/router"
	"github.com/dealerdesk/backend/internal/services"
	"github.com/dealerdesk/backend/internal/services/lifecycle"
	"github.com/dealerdesk/backend/pkg/httpcontext"
	"github.com/dealerdesk/backend/pkg/logger"
	"github.com/dealerdesk/backend/repository/postgres"
	redisRepo "github.com/dealerdesk/backend/repository/redis"
	creditsUC "github.com/dealerdesk/backend/usecase/credits"
	dealershipUC "github.com/dealerdesk/backend/usecase/dealership"
	"github.com/dealerdesk/backend/usecase/identity"
	leadsUC "github.com/dealerdesk/backend/usecase/leads"
	"github.com/dealerdesk/backend/usecase/listsync"
	tasksUC "github.com/dealerdesk/backend/usecase/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	spool, err := buffer.Open(cfg.Buffer.Path, "audit")
	if err != nil {
		zapLogger.Fatal("failed to open audit spool", zap.Error(err))
	}
	manager.Register("audit_spool", func(ctx context.Context) error {
		return spool.Close()
	})

	mon := monitor.New(pool, redisClient, spool, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	profileRepo := postgres.NewProfileRepository(pool)
	leadRepo := postgres.NewLeadRepository(pool)
	taskRepo := postgres.NewTaskRepository(pool)
	creditRepo := postgres.NewCreditRepository(pool)
	vehicleRepo := postgres.NewVehicleRepository(pool)
	dealershipRepo := postgres.NewDealershipRepository(pool)
	eventRepo := postgres.NewEventRepository(pool)
	sessionRepo := redisRepo.NewSessionRepository(redisClient, 24*time.Hour)

	auditLogger := services.NewAuditLogger(eventRepo, spool, mon, zapLogger, services.AuditConfig{
		Interval:   cfg.Buffer.SyncInterval,
		BatchSize:  50,
		MaxRetries: cfg.Buffer.MaxRetry,
		Retention:  time.Duration(cfg.Buffer.RetentionHours) * time.Hour,
	})
	auditLogger.Start()
	manager.Register("audit_logger", func(ctx context.Context) error {
		auditLogger.Stop(ctx)
		return nil
	})

	resolver := identity.NewResolver(appCtx, identity.Config{
		TTL:    cfg.CRM.IdentityCacheTTL,
		Logger: zapLogger,
	}, profileRepo, sessionRepo)

	alerts := services.NewAlertAggregator(leadRepo, taskRepo, creditRepo, vehicleRepo, resolver, zapLogger, services.AlertsConfig{
		Interval:           cfg.Alerts.Interval,
		Coalesce:           cfg.Alerts.Coalesce,
		StaleLeadDays:      cfg.CRM.StaleLeadDays,
		ReservedStaleDays:  cfg.CRM.ReservedStaleDays,
		EndingWindowMonths: cfg.CRM.CreditEndingWindowMonths,
		CreditScanLimit:    cfg.CRM.CreditScanLimit,
		DueDay:             cfg.CRM.DueDay,
	})
	alerts.Start(appCtx)
	manager.Register("alerts", func(ctx context.Context) error {
		alerts.Stop(ctx)
		return nil
	})

	leadsService := leadsUC.NewService(appCtx, listsync.Config{
		TTL:      cfg.CRM.LeadsCacheTTL,
		PageSize: cfg.CRM.PageSize,
		Debounce: cfg.CRM.SearchDebounce,
		Logger:   zapLogger,
	}, leadRepo, resolver, auditLogger, alerts)

	tasksService := tasksUC.NewService(appCtx, listsync.Config{
		TTL:      cfg.CRM.TasksCacheTTL,
		PageSize: cfg.CRM.PageSize,
		Debounce: cfg.CRM.SearchDebounce,
		Logger:   zapLogger,
	}, taskRepo, resolver, auditLogger, alerts)

	creditsService := creditsUC.NewService(appCtx, listsync.Config{
		TTL:      cfg.CRM.CreditsCacheTTL,
		PageSize: cfg.CRM.PageSize,
		Debounce: cfg.CRM.SearchDebounce,
		Logger:   zapLogger,
	}, cfg.CRM.DueDay, creditRepo, resolver, auditLogger, alerts)

	dealershipService := dealershipUC.NewService(dealershipRepo, resolver, cfg.CRM.IdentityCacheTTL, auditLogger, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:       apiHandler.NewAuthHandler(resolver, cfg.JWT.Secret, cfg.JWT.Issuer, ctxAdapter, zapLogger),
		Lead:       apiHandler.NewLeadHandler(leadsService, resolver, ctxAdapter, zapLogger),
		Task:       apiHandler.NewTaskHandler(tasksService, resolver, ctxAdapter, zapLogger),
		Credit:     apiHandler.NewCreditHandler(creditsService, resolver, ctxAdapter, zapLogger),
		Alerts:     apiHandler.NewAlertsHandler(alerts, resolver, ctxAdapter, zapLogger),
		Dealership: apiHandler.NewDealershipHandler(dealershipService, resolver, ctxAdapter, zapLogger),
		Timeline:   apiHandler.NewTimelineHandler(eventRepo, resolver, ctxAdapter, zapLogger),
		Health:     apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
