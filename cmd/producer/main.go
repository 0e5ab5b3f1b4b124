package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ugc_producer/internal/config"
	"ugc_producer/internal/pipeline/sora"
	"ugc_producer/internal/publisher"
	"ugc_producer/internal/scheduler"
	"ugc_producer/internal/service"
	"ugc_producer/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	runOnce := flag.Bool("once", false, "run a single tick and exit")
	produceID := flag.String("produce", "", "produce one video for the given channel id and exit")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Initialize RabbitMQ publisher
	rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
		URL:        cfg.RabbitMQ.URL,
		Exchange:   cfg.RabbitMQ.Exchange,
		RoutingKey: cfg.RabbitMQ.RoutingKey,
		QueueName:  cfg.RabbitMQ.QueueName,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rabbitMQ.Close()

	// Initialize stores
	channelStore := postgres.NewChannelStore(db)
	ledgerStore := postgres.NewLedgerStore(db)
	leaseStore := postgres.NewLeaseStore(db)
	txManager := postgres.NewTransactionManager(db)

	// Initialize pipeline client
	pipeline := sora.New(sora.Config{
		BaseURL:           cfg.Pipeline.BaseURL,
		APIKey:            cfg.Pipeline.APIKey,
		Timeout:           cfg.Pipeline.Timeout,
		PollInterval:      cfg.Pipeline.PollInterval,
		RequestsPerMinute: cfg.Pipeline.RequestsPerMinute,
		EstimateCents:     cfg.Pipeline.EstimateCents,
		MaxAttempts:       cfg.Pipeline.Retry.MaxAttempts,
		InitialBackoff:    cfg.Pipeline.Retry.InitialBackoff,
		MaxBackoff:        cfg.Pipeline.Retry.MaxBackoff,
	}, logger)

	producer := service.NewProducer(
		channelStore,
		ledgerStore,
		leaseStore,
		pipeline,
		txManager,
		rabbitMQ,
		logger,
		cfg.Producer,
		leaseHolder(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if *produceID != "" {
		outcome, err := producer.ProduceNow(ctx, *produceID)
		if err != nil {
			logger.Error("manual production failed", "channel_id", *produceID, "error", err)
			os.Exit(1)
		}
		logger.Info("manual production finished", "channel_id", *produceID, "outcome", outcome)
		return
	}

	if *runOnce {
		tickCtx, tickCancel := context.WithTimeout(ctx, cfg.Producer.TickTimeout)
		defer tickCancel()
		if _, err := producer.RunTick(tickCtx); err != nil {
			logger.Error("tick failed", "error", err)
			os.Exit(1)
		}
		return
	}

	go serveMetrics(cfg.Metrics.Addr, logger)

	sched := scheduler.NewScheduler(producer, cfg.Producer.TickInterval, cfg.Producer.TickTimeout, logger)

	logger.Info("starting ugc producer",
		"pipeline", sora.ProviderID,
		"tick_interval", cfg.Producer.TickInterval,
		"max_concurrent", cfg.Producer.MaxConcurrent,
	)

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

// leaseHolder identifies this process in the lease table so a restarted
// instance can be told apart from a stale one.
func leaseHolder() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%s", hostname, uuid.NewString()[:8])
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	logger.Info("metrics listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "error", err)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
