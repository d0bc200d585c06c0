package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/md-rashed-zaman/dojobook/libs/config"
	"github.com/md-rashed-zaman/dojobook/libs/db"
	"github.com/md-rashed-zaman/dojobook/libs/events"
	"github.com/md-rashed-zaman/dojobook/libs/httpx"
	"github.com/md-rashed-zaman/dojobook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/dojobook/libs/otel"
	"github.com/md-rashed-zaman/dojobook/libs/runtime"
	"github.com/md-rashed-zaman/dojobook/services/notification-service/internal/consumer"
	"github.com/md-rashed-zaman/dojobook/services/notification-service/internal/email"
	"github.com/md-rashed-zaman/dojobook/services/notification-service/internal/inbox"
	"github.com/md-rashed-zaman/dojobook/services/notification-service/internal/notify"
	"github.com/md-rashed-zaman/dojobook/services/notification-service/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"notification-service"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Port        string `envconfig:"PORT" default:"8085"`
	StudioName  string `envconfig:"STUDIO_NAME" default:"Fight Club"`

	DatabaseURL  string        `envconfig:"DATABASE_URL" required:"true"`
	KafkaBrokers string        `envconfig:"KAFKA_BROKERS" required:"true"`
	GroupID      string        `envconfig:"KAFKA_GROUP_ID" default:"notification-service"`
	Attempts     int           `envconfig:"HANDLER_ATTEMPTS" default:"3"`
	Backoff      time.Duration `envconfig:"HANDLER_BACKOFF" default:"1s"`

	SMTPHost     string `envconfig:"SMTP_HOST" default:"mailpit"`
	SMTPPort     string `envconfig:"SMTP_PORT" default:"1025"`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"no-reply@dojobook.local"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`

	OTel otelx.Config `envconfig:"OTEL"`
}

func main() {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	port, err := config.Port("PORT", cfg.Port)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	cfg.Port = port
	logger := runtime.NewLogger(cfg.ServiceName, cfg.LogLevel)

	ctx, stop := runtime.SignalContext()
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("notification service failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, logger *slog.Logger) error {
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

	pool, err := db.Open(ctx, cfg.DatabaseURL, db.PoolConfig{MaxConns: 5})
	if err != nil {
		return fmt.Errorf("db connection: %w", err)
	}
	defer pool.Close()
	sqlDB := pool.SQLX()
	defer sqlDB.Close()

	sender := email.NewSMTPSender(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		From:     cfg.SMTPFrom,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	})
	handler := notify.NewHandler(sender, storage.NewRepository(sqlDB), logger, cfg.StudioName)

	reader := kafkax.NewReader(cfg.KafkaBrokers, cfg.GroupID, events.BookingTopics)
	eventConsumer := consumer.New(logger, reader, inbox.NewRepository(sqlDB, cfg.ServiceName), consumer.Config{
		Attempts: cfg.Attempts,
		Backoff:  cfg.Backoff,
	}, handler.Handle)
	go eventConsumer.Run(ctx)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)},
	)
	mux.Handle("GET /metrics", httpx.MetricsHandler(reg))
	metrics := httpx.NewMetrics(reg, "notification")
	handlerChain := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		metrics.Middleware(),
	)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(handlerChain, "notification"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
	return nil
}
