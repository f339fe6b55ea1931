package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/honeypot-card-monitor/internal/alerts"
	"github.com/honeypot-card-monitor/internal/config"
	"github.com/honeypot-card-monitor/internal/data/mongo"
	"github.com/honeypot-card-monitor/internal/data/postgres"
	redisdata "github.com/honeypot-card-monitor/internal/data/redis"
	"github.com/honeypot-card-monitor/internal/gateway"
	"github.com/honeypot-card-monitor/internal/gateway/ws"
	"github.com/honeypot-card-monitor/internal/ingestion/poller"
	"github.com/honeypot-card-monitor/internal/ingestion/resolver"
	"github.com/honeypot-card-monitor/internal/ingestion/service"
	"github.com/honeypot-card-monitor/internal/logger"
	"github.com/honeypot-card-monitor/internal/platform/messaging/producers"
	"github.com/honeypot-card-monitor/internal/platform/persistence"
	"github.com/honeypot-card-monitor/internal/platform/upstream"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("monitor_service")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Card Monitor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	redisClient, err := persistence.NewRedisClient(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	merchantRepo := postgres.NewMerchantRepository(log, postgresDB)
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())
	dlqRepo := redisdata.NewDeadLetterRepository(redisClient, log)

	// Initialize the optional alert firehose producer. The broadcaster is
	// nil-safe, so an unconfigured topic simply disables the mirror.
	var firehose alerts.FirehosePublisher
	var firehoseProducer *producers.AlertFirehoseProducer
	if cfg.Kafka.AlertTopic != "" {
		firehoseProducer, err = producers.NewAlertFirehoseProducer(appCtx, log, &cfg.Kafka)
		if err != nil {
			log.Error("Failed to initialize alert firehose producer", "error", err)
			os.Exit(1)
		}
		firehose = firehoseProducer
	} else {
		log.Info("Alert firehose disabled, no topic configured")
	}

	// Initialize alert fan-out
	alertPool, err := ants.NewPool(cfg.AlertPool.Size)
	if err != nil {
		log.Error("Failed to create alert worker pool", "error", err)
		os.Exit(1)
	}

	registry := alerts.NewRegistry(log)
	broadcaster := alerts.NewBroadcaster(registry, alertPool, firehose, log)

	// Initialize WebSocket gateway and HTTP server
	wsGateway := ws.NewGateway(registry, log)
	httpServer := gateway.NewServer(log, cfg, registry, wsGateway)

	// Initialize the ingestion pipeline
	upstreamClient := upstream.NewHTTPClient(log, &cfg.Upstream)
	merchantResolver := resolver.NewResolver(merchantRepo, log)
	ingestionService := service.NewIngestionService(
		transactionRepo,
		merchantResolver,
		broadcaster,
		auditRepo,
		dlqRepo,
		log,
	)
	transactionPoller := poller.NewPoller(
		&cfg.Poller,
		upstreamClient,
		transactionRepo,
		ingestionService,
		log,
	)

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start the transaction poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		transactionPoller.Start(appCtx)
	}()

	// Start the HTTP server in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := httpServer.Start(); err != nil {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context to stop the poller
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop accepting HTTP requests, then drop the live sockets
	if err := httpServer.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping HTTP server", "error", err)
	}
	wsGateway.Shutdown()

	// Drain in-flight alert deliveries
	log.Info("Shutting down alert worker pool", "running_workers", alertPool.Running())
	alertPool.Release()

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close the firehose producer
	if firehoseProducer != nil {
		if err = firehoseProducer.Close(); err != nil {
			log.Error("Error closing alert firehose producer", "error", err)
		}
	}

	// Close Redis connection
	if err = redisClient.Close(); err != nil {
		log.Error("Error closing Redis connection", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Card Monitor shutdown with errors", "error", serviceErr)
	} else {
		log.Info("Card Monitor shutdown completed successfully")
	}
}
