package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"payment-intake-service/config"
	redisMsg "payment-intake-service/internal/adapter/messaging/redis"
	pgStorage "payment-intake-service/internal/adapter/storage/postgres"
	redisStorage "payment-intake-service/internal/adapter/storage/redis"
	"payment-intake-service/internal/service"
	"payment-intake-service/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("worker", cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("stream", cfg.Events.Stream).
		Str("group", cfg.Events.Group).
		Msg("Starting payment event worker")

	// Root context is cancelled on SIGINT/SIGTERM; the consumer and the
	// sweeper both drain off it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	paymentRepo := pgStorage.NewPaymentRepo(pool)
	idempotencyRepo := pgStorage.NewIdempotencyRepo(pool)
	receiptRepo := pgStorage.NewReceiptRepo(pool)

	// Initialize services
	receiptSvc := service.NewReceiptService(receiptRepo, log)
	processor := service.NewEventProcessor(paymentRepo, receiptSvc, log)

	// Sweeper re-enqueues stale PENDING payments and expires old ledger
	// rows; it shares the publisher with the API side.
	publisher := redisMsg.NewPublisher(rdb, cfg.Events)
	sweeper := service.NewSweeper(
		paymentRepo,
		idempotencyRepo,
		publisher,
		cfg.Worker.SweepInterval,
		cfg.Worker.StaleAfter,
		cfg.Payments.IdempotencyTTL,
		log,
	)
	go func() {
		if err := sweeper.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Sweeper stopped")
		}
	}()

	// Run the queue consumer until the context is cancelled
	consumer := redisMsg.NewConsumer(rdb, cfg.Events, cfg.Worker, processor, log)
	runErr := make(chan error, 1)
	go func() {
		runErr <- consumer.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down worker...")
		if err := <-runErr; err != nil {
			log.Error().Err(err).Msg("Queue consumer exited with error")
		}
	case err := <-runErr:
		if err != nil {
			log.Fatal().Err(err).Msg("Queue consumer failed")
		}
	}

	log.Info().Msg("Worker exited")
}
