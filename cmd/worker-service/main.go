package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/advault/keyword-inventory/internal/config"
	"github.com/advault/keyword-inventory/internal/database"
	"github.com/advault/keyword-inventory/internal/imports"
	"github.com/advault/keyword-inventory/internal/jobqueue"
	"github.com/advault/keyword-inventory/internal/keyword"
	"github.com/advault/keyword-inventory/internal/metrics"
	"github.com/advault/keyword-inventory/internal/worker"
	"github.com/advault/keyword-inventory/shared/logger"
	"github.com/advault/keyword-inventory/shared/postgresql"
	"github.com/advault/keyword-inventory/shared/rabbitmq"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize PostgreSQL client
	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := database.RunMigrations(dbClient.GetDB().DB); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	appLogger.Info("Database connection established")

	// Initialize RabbitMQ client
	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	appLogger.Info("RabbitMQ connection established")

	// Metrics registry with its own scrape endpoint
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry)

	if cfg.Worker.MetricsPort > 0 {
		go serveMetrics(cfg.Worker.MetricsPort, registry, appLogger.Logger)
	}

	// Wire storage, processors and per-lane runners
	workerID := fmt.Sprintf("worker-%s", uuid.New().String()[:8])

	keywordStorage := keyword.NewStorage(dbClient.GetDB())
	importStorage := imports.NewStorage(dbClient.GetDB())
	jobStore := jobqueue.NewPostgresStore(dbClient.GetDB(), appLogger.Logger)
	broker := jobqueue.NewRabbitBroker(rabbitClient, map[jobqueue.Lane]string{
		jobqueue.LaneImport: cfg.RabbitMQ.Import.RoutingKey,
		jobqueue.LaneExport: cfg.RabbitMQ.Export.RoutingKey,
	})

	importProcessor := worker.NewImportProcessor(keywordStorage, importStorage, m, appLogger.Logger)
	exportProcessor := worker.NewExportProcessor(keywordStorage, cfg.Exports.Dir, cfg.Exports.BaseURL, m, appLogger.Logger)

	runners := map[jobqueue.Lane]*jobqueue.Runner{
		jobqueue.LaneImport: jobqueue.NewRunner(jobqueue.LaneImport, jobStore, broker, importProcessor.Handle, workerID, appLogger.Logger),
		jobqueue.LaneExport: jobqueue.NewRunner(jobqueue.LaneExport, jobStore, broker, exportProcessor.Handle, workerID, appLogger.Logger),
	}

	// Create worker instance
	workerInstance := worker.NewWorker(&worker.Config{
		Logger:       appLogger.Logger,
		RabbitClient: rabbitClient,
		Runners:      runners,
		Queues: map[jobqueue.Lane]string{
			jobqueue.LaneImport: cfg.RabbitMQ.Import.Queue,
			jobqueue.LaneExport: cfg.RabbitMQ.Export.Queue,
		},
		Metrics:          m,
		Concurrency:      cfg.Worker.Concurrency,
		PrefetchCount:    cfg.Worker.PrefetchCount,
		SweepInterval:    cfg.Worker.SweepInterval,
		SweepBatchSize:   cfg.Worker.SweepBatchSize,
		StaleActiveAfter: cfg.Worker.StaleActiveAfter,
	})

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start worker in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := workerInstance.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	appLogger.Info("Worker service started successfully",
		slog.String("worker_id", workerID),
	)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		appLogger.Error("Worker error",
			slog.Any("error", err),
		)
		return err
	}

	// Cancel context to stop worker
	cancel()

	// Give worker time to shutdown gracefully
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	// Stop worker
	done := make(chan struct{})
	go func() {
		workerInstance.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Worker stopped gracefully")
	case <-shutdownCtx.Done():
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	// Cleanup function to close all resources
	cleanup := func() {
		if dbClient != nil {
			dbClient.Close()
		}
		if rabbitClient != nil {
			rabbitClient.Close()
		}
	}
	cleanup()

	appLogger.Info("Worker service shutdown complete")
	return nil
}

// serveMetrics exposes the Prometheus registry over HTTP
func serveMetrics(port int, registry *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	addr := fmt.Sprintf(":%d", port)
	logger.Info("Serving metrics", slog.String("address", addr))

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Metrics server failed", slog.Any("error", err))
	}
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ client with both lane bindings
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:         cfg.Host,
		Port:         cfg.Port,
		User:         cfg.User,
		Password:     cfg.Password,
		VHost:        cfg.VHost,
		ExchangeName: cfg.Exchange.Name,
		ExchangeType: cfg.Exchange.Type,
		Bindings: []rabbitmq.QueueBinding{
			{Queue: cfg.Import.Queue, RoutingKey: cfg.Import.RoutingKey},
			{Queue: cfg.Export.Queue, RoutingKey: cfg.Export.RoutingKey},
		},
		RetryAttempts:     cfg.Connection.RetryAttempts,
		RetryInterval:     cfg.Connection.RetryInterval,
		Heartbeat:         cfg.Connection.Heartbeat,
		PublishRetries:    cfg.Publish.RetryAttempts,
		PublishRetryDelay: cfg.Publish.RetryInterval,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}
