package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/Leganyst/booking-core/internal/availability"
	"github.com/Leganyst/booking-core/internal/config"
	"github.com/Leganyst/booking-core/internal/db"
	"github.com/Leganyst/booking-core/internal/feedback"
	"github.com/Leganyst/booking-core/internal/model"
	"github.com/Leganyst/booking-core/internal/notify"
	"github.com/Leganyst/booking-core/internal/repository"
	"github.com/Leganyst/booking-core/internal/reservation"
	"github.com/Leganyst/booking-core/internal/service"
	"github.com/Leganyst/booking-core/internal/session"
	"github.com/Leganyst/booking-core/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("booking-core stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Конфиг из env (+ .env).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Трейсинг.
	otelShutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		logger.Error("otel setup failed", "err", err)
		otelShutdown = func(context.Context) error { return nil }
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelShutdown(shutdownCtx)
	}()

	// 3. БД и миграции.
	gormDB, err := db.NewGormDB(cfg.DB)
	if err != nil {
		return err
	}
	if err := model.AutoMigrate(gormDB); err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	// 4. Репозитории.
	timeout := cfg.DB.QueryTimeout
	bookingRepo := repository.NewGormBookingRepository(gormDB, timeout)
	blockedRepo := repository.NewGormBlockedDateRepository(gormDB, timeout)
	weekdayRepo := repository.NewGormWeekdayRepository(gormDB, timeout)
	reviewRepo := repository.NewGormReviewRepository(gormDB, timeout)
	eventRepo := repository.NewGormEventRepository(gormDB, timeout)

	// 5. Уведомления: Kafka, если заданы брокеры; журнал пишется всегда.
	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if len(cfg.Kafka.Brokers) > 0 {
		kn := notify.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kn.Close()
		notifier = notify.Multi{notifier, kn}
		logger.Info("kafka notifications enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	// 6. Сессии админов и пользователей.
	sessions, closeSessions, err := newSessionStore(ctx, cfg.Session, logger)
	if err != nil {
		return err
	}
	defer closeSessions()

	// 7. Ядро.
	engine := availability.NewEngine(blockedRepo, weekdayRepo, bookingRepo, availability.Options{
		Slots:               cfg.SlotTimes,
		Location:            cfg.Location,
		HorizonDaysPerMonth: cfg.HorizonDaysPerMonth,
	})
	coordinator := reservation.NewCoordinator(engine, bookingRepo, blockedRepo, weekdayRepo, reservation.Options{
		Admins:                    cfg.AdminIDs,
		RescheduleIgnoresCapacity: cfg.RescheduleIgnoresCapacity,
		Notifier:                  notifier,
		NotifyTimeout:             cfg.NotifyTimeout,
		Events:                    eventRepo,
		Logger:                    logger,
	})
	reviews := feedback.NewService(reviewRepo, notifier, cfg.AdminIDs, logger)
	schedulingSvc := service.NewSchedulingService(engine, coordinator, reviews, sessions, cfg, logger)

	// 8. gRPC-сервер.
	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			service.UnaryRequestIDInterceptor(),
			service.UnaryLoggingInterceptor(logger),
		),
	)
	service.RegisterSchedulingServer(grpcServer, schedulingSvc)

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus(service.ServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("core gRPC server listening", "addr", cfg.GRPCAddr, "db_driver", cfg.DB.Driver, "admins", len(cfg.AdminIDs))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down gRPC server")
		healthSrv.Shutdown()

		done := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			grpcServer.Stop()
		}
		return nil
	})
	return g.Wait()
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	_ = level.UnmarshalText([]byte(cfg.LogLevel))
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With("service", cfg.Telemetry.ServiceName)
}

func newSessionStore(ctx context.Context, cfg config.SessionConfig, logger *slog.Logger) (session.Store, func(), error) {
	if cfg.Backend != config.SessionBackendRedis {
		return session.NewMemoryStore(cfg.MaxEntries, cfg.TTL), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	logger.Info("redis session store enabled", "addr", cfg.RedisAddr)
	return session.NewRedisStore(rdb, cfg.TTL, "booking:session"), func() { _ = rdb.Close() }, nil
}
