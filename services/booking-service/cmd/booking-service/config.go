package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/dojobook/libs/config"
	"github.com/md-rashed-zaman/dojobook/libs/db"
	otelx "github.com/md-rashed-zaman/dojobook/libs/otel"
)

type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"booking-service"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Port        string `envconfig:"PORT" default:"8080"`
	GRPCPort    string `envconfig:"GRPC_PORT" default:"9090"`
	StudioName  string `envconfig:"STUDIO_NAME" default:"Fight Club"`

	DatabaseURL     string        `envconfig:"DATABASE_URL" required:"true"`
	DB              db.PoolConfig `envconfig:"DB"`
	MigrateOnStart  bool          `envconfig:"MIGRATE_ON_START" default:"true"`
	KafkaBrokers    string        `envconfig:"KAFKA_BROKERS"`
	OutboxPollEvery time.Duration `envconfig:"OUTBOX_POLL_EVERY" default:"2s"`
	OutboxBatchSize int           `envconfig:"OUTBOX_BATCH_SIZE" default:"50"`

	RedisAddr       string        `envconfig:"REDIS_ADDR"`
	RedisPassword   string        `envconfig:"REDIS_PASSWORD"`
	RateLimit       int           `envconfig:"RATE_LIMIT" default:"120"`
	RateWindow      time.Duration `envconfig:"RATE_WINDOW" default:"1m"`
	RateFailOpen    bool          `envconfig:"RATE_FAIL_OPEN" default:"true"`
	CORSOrigins     string        `envconfig:"CORS_ALLOWED_ORIGINS"`
	MaxBodyBytes    int64         `envconfig:"MAX_BODY_BYTES" default:"65536"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	JWTSecret     string        `envconfig:"JWT_SECRET"`
	JWTIssuer     string        `envconfig:"JWT_ISSUER" default:"dojobook"`
	JWTTTL        time.Duration `envconfig:"JWT_TTL" default:"12h"`
	AdminUsername string        `envconfig:"ADMIN_USERNAME"`
	AdminEmail    string        `envconfig:"ADMIN_EMAIL"`
	AdminPassword string        `envconfig:"ADMIN_PASSWORD"`

	OTel otelx.Config `envconfig:"OTEL"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	var errs []error
	if strings.TrimSpace(c.DatabaseURL) == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	port, err := config.Port("PORT", c.Port)
	if err != nil {
		errs = append(errs, err)
	}
	c.Port = port
	grpcPort, err := config.Port("GRPC_PORT", c.GRPCPort)
	if err != nil {
		errs = append(errs, err)
	}
	c.GRPCPort = grpcPort
	if (c.AdminUsername == "") != (c.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_USERNAME and ADMIN_PASSWORD must be set together"))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT must not be negative (got %d)", c.RateLimit))
	}
	return errors.Join(errs...)
}
