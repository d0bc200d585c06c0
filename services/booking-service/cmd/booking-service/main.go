package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/md-rashed-zaman/dojobook/libs/auth"
	"github.com/md-rashed-zaman/dojobook/libs/config"
	"github.com/md-rashed-zaman/dojobook/libs/db"
	"github.com/md-rashed-zaman/dojobook/libs/httpx"
	"github.com/md-rashed-zaman/dojobook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/dojobook/libs/otel"
	"github.com/md-rashed-zaman/dojobook/libs/runtime"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/web"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/migrations"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	logger := runtime.NewLogger(cfg.ServiceName, cfg.LogLevel)

	ctx, stop := runtime.SignalContext()
	defer stop()

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrations(ctx, cfg); err != nil {
			logger.Error("migrate failed", "err", err)
			os.Exit(1)
		}
		logger.Info("migrations applied")
		return
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("booking service failed", "err", err)
		os.Exit(1)
	}
}

func openPool(ctx context.Context, cfg Config) (*db.Pool, error) {
	return db.Open(ctx, cfg.DatabaseURL, cfg.DB)
}

func runMigrations(ctx context.Context, cfg Config) error {
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	sqlDB := pool.SQLX()
	defer sqlDB.Close()
	return db.Migrate(ctx, sqlDB.DB, migrations.FS)
}

func run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, cfg.ServiceName, cfg.OTel)
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("db connection: %w", err)
	}
	defer pool.Close()
	sqlDB := pool.SQLX()
	defer sqlDB.Close()

	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, sqlDB.DB, migrations.FS); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	outboxRepo := outbox.NewRepository()
	coaches := storage.NewCoachRepository(sqlDB)
	catalog := storage.NewCatalogRepository(sqlDB)
	schedules := storage.NewAvailabilityRepository(sqlDB)
	bookings := storage.NewBookingRepository(sqlDB, outboxRepo)
	admins := storage.NewAdminRepository(sqlDB)

	engine := booking.NewEngine(coaches, catalog, schedules)
	writer := booking.NewWriter(catalog, bookings, logger, booking.WithMetrics(booking.NewMetrics(reg)))

	signer, err := newSigner(cfg, logger)
	if err != nil {
		return err
	}
	if err := bootstrapAdmin(ctx, cfg, admins, logger); err != nil {
		return err
	}

	var kafkaCheck runtime.ReadyCheck
	if cfg.KafkaBrokers != "" {
		kw := kafkax.NewWriter(cfg.KafkaBrokers)
		defer kw.Close()
		publisher := outbox.NewPublisher(sqlDB, outboxRepo, kw, logger, outbox.PublisherConfig{
			PollEvery: cfg.OutboxPollEvery,
			BatchSize: cfg.OutboxBatchSize,
		})
		go publisher.Run(ctx)
		kafkaCheck = runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)}
	} else {
		logger.Warn("KAFKA_BROKERS not set; booking events stay in the outbox")
	}

	limiter, closeLimiter := newLimiter(cfg, logger)
	defer closeLimiter()

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		kafkaCheck,
	)
	mux.Handle("GET /metrics", httpx.MetricsHandler(reg))

	api := &handlers.API{
		Coaches:   coaches,
		Schedules: schedules,
		Catalog:   catalog,
		Bookings:  bookings,
		Slots:     engine,
		Booker:    writer,
		Admins:    admins,
		Signer:    signer,
		Logger:    logger,
	}
	api.Register(mux)

	page, err := web.NewHandler(coaches, catalog, logger, cfg.StudioName)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	page.Register(mux)

	if err := startGrpcServer(ctx, logger, cfg.GRPCPort, engine); err != nil {
		return fmt.Errorf("grpc server: %w", err)
	}

	// Metrics sits closest to the mux so r.Pattern is visible after routing.
	httpMetrics := httpx.NewMetrics(reg, "dojobook")
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithCORS(httpx.DefaultCORSPolicy(config.List(cfg.CORSOrigins))),
		httpx.RateLimit(limiter, logger, cfg.RateFailOpen),
		httpx.WithBodyLimit(cfg.MaxBodyBytes),
		httpx.WithTimeout(cfg.RequestTimeout),
		httpMetrics.Middleware(),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
	return nil
}

func newSigner(cfg Config, logger *slog.Logger) (*auth.Signer, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		random, err := auth.RandomSecret()
		if err != nil {
			return nil, err
		}
		secret = random
		logger.Warn("JWT_SECRET not set; admin tokens will not survive a restart")
	}
	return auth.NewSigner(secret, cfg.JWTIssuer, cfg.JWTTTL)
}

func bootstrapAdmin(ctx context.Context, cfg Config, admins *storage.AdminRepository, logger *slog.Logger) error {
	if cfg.AdminUsername == "" {
		return nil
	}
	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	created, err := admins.Ensure(ctx, cfg.AdminUsername, cfg.AdminEmail, hash)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		logger.Info("admin user created", "username", cfg.AdminUsername)
	}
	return nil
}

func newLimiter(cfg Config, logger *slog.Logger) (httpx.Limiter, func()) {
	if cfg.RedisAddr == "" {
		return httpx.NewMemoryRateLimiter(cfg.RateLimit, cfg.RateWindow), func() {}
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	logger.Info("rate limiting via redis", "addr", cfg.RedisAddr)
	return httpx.NewRedisRateLimiter(rdb, cfg.RateLimit, cfg.RateWindow, "dojobook:rl:"), func() { _ = rdb.Close() }
}
