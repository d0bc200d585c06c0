package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// PoolConfig sizes the pgx pool. Services embed it under the DB_ prefix; zero values
// fall back to the defaults below.
type PoolConfig struct {
	MaxConns        int32         `envconfig:"MAX_CONNS" default:"10"`
	MinConns        int32         `envconfig:"MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `envconfig:"CONN_LIFETIME" default:"30m"`
	MaxConnIdleTime time.Duration `envconfig:"CONN_IDLE_TIME" default:"5m"`
}

func (pc PoolConfig) apply(cfg *pgxpool.Config) {
	set := func(dst *int32, v, def int32) {
		if v <= 0 {
			v = def
		}
		*dst = v
	}
	setDur := func(dst *time.Duration, v, def time.Duration) {
		if v <= 0 {
			v = def
		}
		*dst = v
	}
	set(&cfg.MaxConns, pc.MaxConns, 10)
	set(&cfg.MinConns, pc.MinConns, 1)
	if cfg.MinConns > cfg.MaxConns {
		cfg.MinConns = cfg.MaxConns
	}
	setDur(&cfg.MaxConnLifetime, pc.MaxConnLifetime, 30*time.Minute)
	setDur(&cfg.MaxConnIdleTime, pc.MaxConnIdleTime, 5*time.Minute)
}

// Pool is the process-wide pgx pool.
type Pool struct {
	*pgxpool.Pool
}

// Open connects and pings, so a bad DATABASE_URL fails at startup rather than on
// the first request.
func Open(ctx context.Context, databaseURL string, pc PoolConfig) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pc.apply(cfg)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Pool{Pool: pool}, nil
}

func (p *Pool) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}

// SQLX exposes the pool through database/sql so repositories can use sqlx.
// Closing the returned handle does not close the pool.
func (p *Pool) SQLX() *sqlx.DB {
	return sqlx.NewDb(stdlib.OpenDBFromPool(p.Pool), "pgx")
}

func ReadyCheck(pool *Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		if pool == nil || pool.Pool == nil {
			return errors.New("db not configured")
		}
		return pool.Ping(ctx)
	}
}
