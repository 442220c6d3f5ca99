package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcontract "github.com/erp/backoffice/internal/application/contract"
	appfo "github.com/erp/backoffice/internal/application/financeobject"
	appledger "github.com/erp/backoffice/internal/application/ledger"
	apppayroll "github.com/erp/backoffice/internal/application/payroll"
	appreport "github.com/erp/backoffice/internal/application/report"
	"github.com/erp/backoffice/internal/domain/contract"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/erp/backoffice/internal/infrastructure/auth"
	"github.com/erp/backoffice/internal/infrastructure/cache"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/erp/backoffice/internal/infrastructure/event"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/persistence"
	"github.com/erp/backoffice/internal/infrastructure/scheduler"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/erp/backoffice/internal/interfaces/http/handler"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/erp/backoffice/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const version = "1.0.0"

//	@title			Backoffice Finance API
//	@version		1.0
//	@description	Cash boxes, ledger, contract settlement, payroll and cashflow reports

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// Telemetry comes first so the log bridge can join the logger
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	if loggerProvider.IsEnabled() {
		if log, err = logger.New(logCfg, loggerProvider.Core(logger.ParseLevel(cfg.Log.Level))); err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
	}
	defer func() { _ = logger.Sync(log) }()

	profiler, err := telemetry.NewProfiler(cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	log.Info("Starting backoffice",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Bool("tracing", tracerProvider.IsEnabled()),
		zap.Bool("metrics", meterProvider.IsEnabled()),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithParameterizedQueries(!cfg.Telemetry.DBLogFullSQL),
	)
	db, err := persistence.Open(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected")

	if cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.NewDBTracingPlugin(cfg.Telemetry, log).Register(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}
	var dbMetrics *telemetry.DBMetrics
	if meterProvider.IsEnabled() {
		sqlDB, err := db.DB.DB()
		if err != nil {
			log.Fatal("Failed to get sql.DB", zap.Error(err))
		}
		if dbMetrics, err = telemetry.NewDBMetrics(meterProvider.Meter("backoffice.db"), sqlDB); err != nil {
			log.Fatal("Failed to create database metrics", zap.Error(err))
		}
		if err := dbMetrics.Register(db.DB); err != nil {
			log.Fatal("Failed to register database metrics", zap.Error(err))
		}
	}

	if err := persistence.SeedTransactionTypes(ctx, db.DB); err != nil {
		log.Fatal("Failed to seed transaction types", zap.Error(err))
	}

	// Events are recorded into the outbox inside each ledger transaction
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	txScope := persistence.NewGormTransactionScope(db.DB, serializer)

	currency := valueobject.Currency(cfg.Ledger.Currency)
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}

	settlementService := appcontract.NewSettlementService(txScope, log)
	financeService := appledger.NewFinanceService(txScope, appledger.Config{
		DirectorFundID:         cfg.Ledger.DirectorFundID,
		DirectorSpendingItemID: cfg.Ledger.DirectorSpendingItemID,
	}, log)
	financeService.SetSettler(settlementService)
	if meterProvider.IsEnabled() {
		ledgerMetrics, err := telemetry.NewLedgerMetrics(meterProvider.Meter("backoffice.ledger"))
		if err != nil {
			log.Fatal("Failed to create ledger metrics", zap.Error(err))
		}
		financeService.SetMetrics(ledgerMetrics)
	}
	allocationService := appfo.NewAllocationService(txScope, cfg.Ledger.AllocationEpsilon, log)
	allocationService.SetSettler(settlementService)
	accrualService := apppayroll.NewAccrualService(txScope, log)
	payoutService := apppayroll.NewPayoutService(txScope, financeService, log)
	cashflowBuilder := appreport.NewCashflowBuilder(txScope, currency, log)

	idempotencyStore, err := cache.NewIdempotencyStore(ctx, cfg.Event, cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.App.IsProduction()),
	)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	eventBus := event.NewInMemoryEventBus(log)
	statusHandler := event.NewIdempotentHandler("payroll.contract_status",
		apppayroll.NewContractStatusChangedHandler(accrualService, log), idempotencyStore, log,
		event.WithIdempotencyTTL(cfg.Event.IdempotencyTTL))
	eventBus.Subscribe(statusHandler, contract.EventContractStatusChanged)
	cashflowHandler := event.NewIdempotentHandler("report.cashflow_day",
		appreport.NewLedgerEventHandler(cashflowBuilder, log), idempotencyStore, log,
		event.WithIdempotencyTTL(cfg.Event.IdempotencyTTL))
	eventBus.Subscribe(cashflowHandler, cashflowHandler.EventTypes()...)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	var outboxProcessor *event.OutboxProcessor
	if cfg.Event.ProcessorEnabled {
		outboxCfg := event.DefaultOutboxProcessorConfig()
		if cfg.Event.BatchSize > 0 {
			outboxCfg.BatchSize = cfg.Event.BatchSize
		}
		if cfg.Event.PollInterval > 0 {
			outboxCfg.PollInterval = cfg.Event.PollInterval
		}
		if cfg.Event.MaxRetries > 0 {
			outboxCfg.MaxRetries = cfg.Event.MaxRetries
		}
		outboxCfg.CleanupEnabled = cfg.Event.CleanupEnabled
		if cfg.Event.CleanupRetention > 0 {
			outboxCfg.CleanupRetention = cfg.Event.CleanupRetention
		}
		outboxProcessor = event.NewOutboxProcessor(event.NewGormOutboxRepository(db.DB), eventBus, serializer, outboxCfg, log)
		if err := outboxProcessor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		log.Info("Outbox processor started",
			zap.Int("batch_size", outboxCfg.BatchSize),
			zap.Duration("poll_interval", outboxCfg.PollInterval),
		)
	}

	cronScheduler := scheduler.NewCashflowCronScheduler(scheduler.CashflowCronConfig{
		Enabled:           cfg.Scheduler.Enabled,
		DailyCronSchedule: cfg.Scheduler.DailyCronSchedule,
		JobTimeout:        cfg.Scheduler.JobTimeout,
		MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
		RetryAttempts:     cfg.Scheduler.RetryAttempts,
		RetryDelay:        cfg.Scheduler.RetryDelay,
	}, cashflowBuilder, persistence.NewGormBooksRepository(db.DB), scheduler.NewJobRecordRepository(db.DB), log)
	if err := cronScheduler.Start(ctx); err != nil {
		log.Fatal("Failed to start cashflow scheduler", zap.Error(err))
	}

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}
	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}
	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		middleware.Tracing(serviceName, tracerProvider.IsEnabled()),
		middleware.SpanStatus(),
		middleware.HTTPMetrics(meterProvider.Meter("http.server")),
		logger.GinMiddleware(log),
		middleware.Secure(),
		middleware.CORS(cfg.HTTP),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	apiMiddleware := []gin.HandlerFunc{
		middleware.JWTAuthMiddleware(auth.NewJWTService(cfg.JWT)),
		middleware.SpanScope(),
	}
	var rateLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitRPS > 0 {
		rateLimiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)
		apiMiddleware = append(apiMiddleware, middleware.RateLimit(rateLimiter))
	}

	r := router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithMiddleware(apiMiddleware...),
		router.WithHealth(handler.NewHealthHandler(db, version).Check),
	)
	router.RegisterAPI(r, router.Handlers{
		CashBoxes:   handler.NewCashBoxHandler(financeService),
		Ledger:      handler.NewLedgerHandler(financeService),
		Assignments: handler.NewAssignmentHandler(allocationService),
		Contracts:   handler.NewContractHandler(settlementService),
		Payroll:     handler.NewPayrollHandler(accrualService, payoutService),
		Reports:     handler.NewReportHandler(cashflowBuilder),
	}).Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Stop producers before the bus they publish to
	if err := cronScheduler.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping cashflow scheduler", zap.Error(err))
	}
	if outboxProcessor != nil {
		if err := outboxProcessor.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping outbox processor", zap.Error(err))
		}
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	for _, h := range []*event.IdempotentHandler{statusHandler, cashflowHandler} {
		log.Info("Subscriber totals", zap.String("subscriber", h.Name()), zap.Any("stats", h.Stats()))
	}
	if rateLimiter != nil {
		rateLimiter.Close()
	}
	if dbMetrics != nil {
		if err := dbMetrics.Close(); err != nil {
			log.Error("Error closing database metrics", zap.Error(err))
		}
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
