// Package main wires together the transaction API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/roberasa/legalario-transactional-api/internal/api"
	"github.com/roberasa/legalario-transactional-api/internal/clock/system"
	"github.com/roberasa/legalario-transactional-api/internal/config"
	"github.com/roberasa/legalario-transactional-api/internal/database"
	"github.com/roberasa/legalario-transactional-api/internal/hash/sha256"
	"github.com/roberasa/legalario-transactional-api/internal/id/uuid"
	"github.com/roberasa/legalario-transactional-api/internal/idempotency"
	idemMemory "github.com/roberasa/legalario-transactional-api/internal/idempotency/memory"
	idemPostgres "github.com/roberasa/legalario-transactional-api/internal/idempotency/postgres"
	"github.com/roberasa/legalario-transactional-api/internal/logging"
	"github.com/roberasa/legalario-transactional-api/internal/metrics"
	queueMemory "github.com/roberasa/legalario-transactional-api/internal/queue/memory"
	"github.com/roberasa/legalario-transactional-api/internal/service"
	"github.com/roberasa/legalario-transactional-api/internal/storage"
	storageMemory "github.com/roberasa/legalario-transactional-api/internal/storage/memory"
	storagePostgres "github.com/roberasa/legalario-transactional-api/internal/storage/postgres"
	"github.com/roberasa/legalario-transactional-api/internal/stream"
	"github.com/roberasa/legalario-transactional-api/internal/summarize"
	"github.com/roberasa/legalario-transactional-api/internal/worker"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	txnStore, summaryStore, keyStore, closeStores, err := buildStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}
	defer closeStores()

	queue := queueMemory.NewQueue(cfg.Worker.QueueDepth)
	hub := stream.NewHub(stream.Config{
		BufferSize: cfg.Stream.BufferSize,
		Logger:     logger.Named("stream"),
	})

	var summarizer summarize.Summarizer
	if cfg.OpenAI.APIKey != "" {
		client, err := summarize.NewOpenAIClient(summarize.Config{
			APIKey:      cfg.OpenAI.APIKey,
			BaseURL:     cfg.OpenAI.BaseURL,
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.OpenAI.Temperature,
			Timeout:     time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			logger.Fatal("summarizer init failed", zap.Error(err))
		}
		summarizer = client
	} else {
		logger.Warn("openai.api_key not set, summarization disabled")
	}

	svc := service.New(
		txnStore,
		summaryStore,
		keyStore,
		queue,
		hub,
		summarizer,
		nil,
		uuid.New(),
		system.New(),
		sha256.New(),
		logger.Named("service"),
	)

	pool := worker.New(queue, svc, worker.Config{
		Count:        cfg.Worker.Count,
		Delay:        cfg.WorkerDelay(),
		MaxAttempts:  cfg.Worker.MaxAttempts,
		RetryBackoff: cfg.RetryBackoff(),
	}, logger.Named("worker"))
	pool.Start(ctx)

	apiServer := api.NewServer(svc, hub, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	hub.Close()
	pool.Wait()
	queue.Close()
	logger.Info("shutdown complete")
}

// buildStores selects the persistence backend: Postgres when a DSN is
// configured, in-memory otherwise.
func buildStores(
	ctx context.Context,
	cfg config.Config,
	logger *zap.Logger,
) (storage.TransactionStore, storage.SummaryStore, idempotency.Store, func(), error) {
	if cfg.DB.DSN == "" {
		logger.Info("db.dsn not set, using in-memory stores")
		return storageMemory.NewTransactionStore(),
			storageMemory.NewSummaryStore(),
			idemMemory.NewStore(),
			func() {},
			nil
	}

	pool, err := database.Connect(ctx, cfg.DB.DSN, cfg.DB.MaxOpenConns)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	txnStore, err := storagePostgres.NewTransactionStoreWithPool(pool)
	if err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("transaction store: %w", err)
	}
	summaryStore, err := storagePostgres.NewSummaryStoreWithPool(pool)
	if err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("summary store: %w", err)
	}
	keyStore, err := idemPostgres.NewStoreWithPool(pool)
	if err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("idempotency store: %w", err)
	}
	return txnStore, summaryStore, keyStore, pool.Close, nil
}
