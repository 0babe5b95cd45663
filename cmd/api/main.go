package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/srgjo27/scalable_rsvp/internal/adapter/cache"
	"github.com/srgjo27/scalable_rsvp/internal/adapter/gateway"
	"github.com/srgjo27/scalable_rsvp/internal/adapter/handler"
	"github.com/srgjo27/scalable_rsvp/internal/adapter/messaging"
	"github.com/srgjo27/scalable_rsvp/internal/adapter/repository/memory"
	"github.com/srgjo27/scalable_rsvp/internal/adapter/repository/postgres"
	"github.com/srgjo27/scalable_rsvp/internal/core/domain"
	"github.com/srgjo27/scalable_rsvp/internal/core/ports"
	"github.com/srgjo27/scalable_rsvp/internal/core/services"
	"github.com/srgjo27/scalable_rsvp/internal/platform/config"
	"github.com/srgjo27/scalable_rsvp/internal/platform/database"
	"github.com/srgjo27/scalable_rsvp/internal/platform/logger"
	"github.com/srgjo27/scalable_rsvp/internal/platform/retry"
	"github.com/srgjo27/scalable_rsvp/internal/platform/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Development: !cfg.App.IsProduction(),
		Debug:       cfg.App.Debug,
		ServiceName: cfg.App.Name,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}

	log.Info("Server exiting")
}

type storage struct {
	events       ports.EventRepository
	reservations ports.ReservationRepository
	close        func()
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:       cfg.OTel.Enabled,
		ServiceName:   cfg.OTel.ServiceName,
		CollectorAddr: cfg.OTel.CollectorAddr,
		SampleRatio:   cfg.OTel.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.close()

	var dedup ports.WebhookDeduplicator = cache.NoopDeduplicator{}
	events := store.events
	if cfg.Redis.Enabled {
		log.Info("Connecting to Redis", zap.String("addr", cfg.Redis.Addr()))

		redisClient, err := cache.NewRedisClient(ctx, cache.Config{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer closeRedis(redisClient, log)

		events = cache.NewCachedEventRepository(store.events, redisClient, cfg.Redis.EventTTL, log)
		dedup = cache.NewWebhookDeduplicator(redisClient, cfg.Redis.WebhookTTL)
	}

	paymentGateway, err := newGateway(cfg)
	if err != nil {
		return err
	}
	log.Info("payment gateway ready", zap.String("gateway", paymentGateway.Name()))

	var publisher ports.CompensationPublisher = messaging.NewLogPublisher(log)
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := messaging.NewKafkaCompensationPublisher(ctx, messaging.KafkaConfig{
			Brokers:  cfg.Kafka.Brokers,
			ClientID: cfg.Kafka.ClientID,
			Topic:    cfg.Kafka.CompensationTopic,
		}, log)
		if err != nil {
			return err
		}
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.Gateway.MaxRetries
	retryCfg.AttemptTimeout = cfg.Gateway.Timeout
	retryCfg.InitialInterval = cfg.Gateway.InitialInterval
	retryCfg.MaxInterval = cfg.Gateway.MaxInterval

	gate := services.NewCapacityGate(events, store.reservations, log)
	compensation := services.NewCompensationService(store.reservations, paymentGateway, publisher, retryCfg, log)
	reconciler := services.NewReconciler(store.reservations, compensation, log)
	ledger := services.NewReservationService(events, store.reservations, gate, paymentGateway, compensation, retryCfg, log)
	payments := services.NewPaymentService(events, store.reservations, paymentGateway, reconciler, retryCfg, log)

	if cfg.Sweeper.Enabled {
		sweeper := services.NewPaymentSweeper(store.reservations, payments, cfg.Sweeper.Interval, cfg.Sweeper.MinAge, cfg.Sweeper.BatchSize, log)
		go sweeper.Run(ctx)
	}

	router := handler.NewRouter(handler.Handlers{
		Reservations: handler.NewReservationHandler(ledger, compensation, log),
		Payments:     handler.NewPaymentHandler(payments, log),
		Webhooks:     handler.NewWebhookHandler(gateway.NewStripeWebhookVerifier(cfg.Stripe.WebhookSecret), reconciler, dedup, log),
		Auth:         handler.NewAuthenticator(cfg.JWT.Secret, cfg.JWT.Issuer),
	}, log)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server startup failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (*storage, error) {
	if cfg.Storage.Driver == "memory" {
		events := memory.NewEventRepository()
		if err := seedDemoEvents(ctx, events, cfg.Stripe.Currency, log); err != nil {
			return nil, err
		}

		return &storage{
			events:       events,
			reservations: memory.NewReservationRepository(),
			close:        func() {},
		}, nil
	}

	db, err := database.NewPostgresDB(ctx, database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectRetries:  cfg.Database.ConnectRetries,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db after retries: %w", err)
	}

	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &storage{
		events:       postgres.NewEventRepository(db),
		reservations: postgres.NewReservationRepository(db),
		close:        func() { closeDB(db, log) },
	}, nil
}

// seedDemoEvents gives the in-memory store something to reserve against.
func seedDemoEvents(ctx context.Context, events *memory.EventRepository, currency string, log *zap.Logger) error {
	demo := []*domain.Event{
		{ID: uuid.New(), Title: "Free community meetup", MaxAttendees: 50, Currency: currency},
		{ID: uuid.New(), Title: "Paid workshop", MaxAttendees: 20, Price: 5000, Currency: currency, IsPaid: true},
	}

	for _, event := range demo {
		if err := events.Create(ctx, event); err != nil {
			return err
		}
		log.Info("seeded demo event",
			zap.String("event_id", event.ID.String()),
			zap.String("title", event.Title),
			zap.Int64("price", event.Price))
	}

	return nil
}

func newGateway(cfg *config.Config) (ports.PaymentGateway, error) {
	if cfg.Gateway.Driver == "fake" {
		return gateway.NewFakeGateway(), nil
	}

	return gateway.NewStripeGateway(gateway.StripeGatewayConfig{SecretKey: cfg.Stripe.SecretKey})
}

func closeDB(db *sql.DB, log *zap.Logger) {
	if err := db.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}

func closeRedis(client *redis.Client, log *zap.Logger) {
	if err := client.Close(); err != nil {
		log.Warn("failed to close redis", zap.Error(err))
	}
}
