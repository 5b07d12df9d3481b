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
	httpDelivery "github.com/VaibhavVermaa16/AtomicSeats/internal/delivery/http"
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

	// Initialize Kafka producer
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

	// Repositories
	txManager := pgRepo.NewTxManager(pgPool, l)
	eventRepo := pgRepo.NewEventRepository(pgPool, l)
	bookingRepo := pgRepo.NewBookingRepository(pgPool, l)
	waitlistRepo := pgRepo.NewWaitlistRepository(pgPool, l)
	userRepo := pgRepo.NewUserRepository(pgPool, l)
	cacheRepo := redisRepo.NewCacheRepository(redisCli, l)
	idemRepo := redisRepo.NewIdempotencyRepository(redisCli, l)

	// Reconciler runs in-process so failed mirror writes on the API's own
	// synchronous paths repair themselves without waiting for the worker.
	reconciler := service.NewReconciler(l, eventRepo, bookingRepo, waitlistRepo, userRepo, cacheRepo, cfg.Reservation.ReconcileInterval)
	reconciler.Start(ctx)
	defer reconciler.Stop()

	// Services
	admSvc := service.NewAdmissionService(l, prod, cacheRepo, cfg.Reservation.MaxSeatsPerRequest)
	rsvSvc := service.NewReservationService(l, txManager, eventRepo, bookingRepo, waitlistRepo, userRepo, cacheRepo, idemRepo, prod, reconciler, cfg.Reservation.IdempotencyTTL)
	evtSvc := service.NewEventService(l, eventRepo, bookingRepo, waitlistRepo, cacheRepo, reconciler)

	handler := httpDelivery.NewHTTPHandler(admSvc, rsvSvc, evtSvc, reconciler, l)
	router := httpDelivery.NewRouter(handler, cfg.JWT.Secret, l)

	apiSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: metricsMux,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l.Infof(ctx, "API server is listening on port: %d", cfg.Server.HTTPPort)
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
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

		l.Info(ctx, "Server shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = apiSrv.Shutdown(shutdownCtx)
		_ = metricsSrv.Shutdown(shutdownCtx)
		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		l.Fatalf(ctx, "Server error: %v", err)
	}

	l.Info(ctx, "Server exited")
}
