package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/VaibhavVermaa16/AtomicSeats/config"
	"github.com/VaibhavVermaa16/AtomicSeats/internal/delivery/kafka/consumer"
	"github.com/VaibhavVermaa16/AtomicSeats/internal/delivery/kafka/producer"
	infraPg "github.com/VaibhavVermaa16/AtomicSeats/internal/infra/postgres"
	infraRedis "github.com/VaibhavVermaa16/AtomicSeats/internal/infra/redis"
	pgRepo "github.com/VaibhavVermaa16/AtomicSeats/internal/repository/postgres"
	redisRepo "github.com/VaibhavVermaa16/AtomicSeats/internal/repository/redis"
	"github.com/VaibhavVermaa16/AtomicSeats/internal/service"
	pkgKafka "github.com/VaibhavVermaa16/AtomicSeats/pkg/kafka"
	pkgLog "github.com/VaibhavVermaa16/AtomicSeats/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	l := pkgLog.InitializeZapLogger(pkgLog.ZapConfig{
		Level:    cfg.Log.Level,
		Mode:     cfg.Log.Mode,
		Encoding: cfg.Log.Encoding,
	})

	pgPool, err := infraPg.Connect(ctx, cfg.Postgres)
	if err != nil {
		l.Fatalf(ctx, "Failed to connect to Postgres: %v", err)
	}
	defer infraPg.Disconnect(pgPool)

	redisCli, err := infraRedis.Connect(ctx, cfg.Redis)
	if err != nil {
		l.Fatalf(ctx, "Failed to connect to Redis: %v", err)
	}
	defer infraRedis.Disconnect(redisCli)

	// Initialize Kafka producer for triggers and notifications
	kafkaSyncProd, err := pkgKafka.NewProducer(pkgKafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		RetryMax:     cfg.Kafka.ProducerRetryMax,
		RequiredAcks: cfg.Kafka.ProducerRequiredAcks,
	})
	if err != nil {
		l.Fatalf(ctx, "Failed to initialize Kafka producer: %v", err)
	}

	prod := producer.NewProducer(kafkaSyncProd, l)
	defer prod.Close()

	// Initialize Kafka consumer
	kafkaConsGr, err := pkgKafka.NewConsumer(pkgKafka.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.ConsumerGroupID,
	})
	if err != nil {
		l.Fatalf(ctx, "Failed to initialize Kafka consumer: %v", err)
	}

	// Repositories
	txManager := pgRepo.NewTxManager(pgPool, l)
	eventRepo := pgRepo.NewEventRepository(pgPool, l)
	bookingRepo := pgRepo.NewBookingRepository(pgPool, l)
	waitlistRepo := pgRepo.NewWaitlistRepository(pgPool, l)
	userRepo := pgRepo.NewUserRepository(pgPool, l)
	cacheRepo := redisRepo.NewCacheRepository(redisCli, l)
	idemRepo := redisRepo.NewIdempotencyRepository(redisCli, l)

	// Reconciler: scheduled full rebuilds plus on-demand triggers from
	// failed mirror writes.
	reconciler := service.NewReconciler(l, eventRepo, bookingRepo, waitlistRepo, userRepo, cacheRepo, cfg.Reservation.ReconcileInterval)
	reconciler.Start(ctx)
	defer reconciler.Stop()

	rsvSvc := service.NewReservationService(l, txManager, eventRepo, bookingRepo, waitlistRepo, userRepo, cacheRepo, idemRepo, prod, reconciler, cfg.Reservation.IdempotencyTTL)

	// Reservation worker
	cons := consumer.NewConsumer(kafkaConsGr, rsvSvc, l)
	if err := cons.Start(ctx); err != nil {
		l.Fatalf(ctx, "Failed to start consumer: %v", err)
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: metricsMux,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l.Infof(ctx, "Metrics server is listening on port: %d", cfg.Server.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
		case <-gCtx.Done():
		}

		l.Info(ctx, "Worker shutting down...")

		cancel()
		if err := cons.Close(); err != nil {
			l.Errorf(ctx, "Failed to close consumer: %v", err)
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		l.Fatalf(ctx, "Worker error: %v", err)
	}

	l.Info(ctx, "Worker exited")
}
