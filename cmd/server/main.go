package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"transferledger/internal/app"
	"transferledger/internal/config"
	"transferledger/internal/events"
	"transferledger/internal/handler"
	internalRedis "transferledger/internal/redis"
	"transferledger/internal/repository"
	"transferledger/internal/service"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize New Relic")
		} else {
			logger.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled")
		}
	}

	// Initialize the ledger store.
	store, db, err := app.NewStore(ctx, cfg, nrApp)
	if err != nil {
		logger.WithError(err).Fatal("failed to open ledger store")
	}
	if db != nil {
		defer db.Close()
		logger.Info("Connected to PostgreSQL")
	} else {
		logger.Warn("using in-memory ledger store, data is lost on restart")
	}

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Initialize event publishing.
	publisher, closePublisher, err := app.NewPublisher(cfg.RabbitMQ, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to rabbitmq")
	}
	defer func() {
		if err := closePublisher(); err != nil {
			logger.WithError(err).Warn("failed to close event publisher")
		}
	}()

	ids, err := snowflake.NewNode(cfg.Settlement.NodeID)
	if err != nil {
		logger.WithError(err).Fatal("failed to create id generator")
	}

	// Wire dependencies.
	server := wireServer(store, redisClient, publisher, ids, nrApp, cfg, logger)

	// Start server in goroutine.
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
	if nrApp != nil {
		nrApp.Shutdown(cfg.Server.ShutdownTimeout)
	}

	logger.Info("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	store repository.Store,
	redisClient *redis.Client,
	publisher events.Publisher,
	ids *snowflake.Node,
	nrApp *newrelic.Application,
	cfg *config.Config,
	logger *logrus.Logger,
) *http.Server {
	// Initialize Redis stores. Both are optional.
	var locks internalRedis.LockStoreInterface
	var cache internalRedis.BalanceCacheInterface
	if redisClient != nil {
		locks = internalRedis.NewLockStore(redisClient)
		cache = internalRedis.NewCacheStore(redisClient)
	}

	completionCfg := service.CompletionConfig{
		PersistenceTimeout: cfg.Settlement.PersistenceTimeout,
		LockTTL:            cfg.Settlement.LockTTL,
	}

	// Initialize services.
	ledger := service.NewDriverLedger(store, ids, cache, cfg.Settlement.DefaultRegion, logger)
	company := service.NewCompanyLedger(store, logger)
	gateway := service.NewCompletionGateway(store, ledger, company, locks, publisher, logger, completionCfg)
	tripService := service.NewTripService(store, ledger, cfg.Settlement.Currency, logger)
	payoutService := service.NewPayoutService(store, ledger, company, locks, publisher, logger, completionCfg)
	statementService := service.NewStatementService(ledger)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		TripHandler:    handler.NewTripHandler(tripService, gateway),
		DriverHandler:  handler.NewDriverHandler(ledger, payoutService, statementService),
		LedgerHandler:  handler.NewLedgerHandler(company),
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
