package main

import (
	"context"
	"fmt"

	"github.com/whisper2/server/internal/config"
	"github.com/whisper2/server/internal/store"
	"github.com/whisper2/server/internal/store/postgres"
	"github.com/whisper2/server/internal/store/redis"
)

// connectDurable dials the postgres-backed identity/ban/backup store
// directly, the way the teacher's cmd/sage-did subcommands talk straight
// to the chain client rather than through a running server process.
func connectDurable(ctx context.Context) (store.Durable, func(), error) {
	cfg, err := config.Load(config.LoaderOptions{ConfigDir: configDir})
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	durable, err := postgres.New(ctx, postgres.Config{DSN: cfg.Durable.DSN, MaxConnections: int32(cfg.Durable.MaxConnections)})
	if err != nil {
		return nil, nil, fmt.Errorf("connect durable store: %w", err)
	}
	return durable, func() { durable.Close() }, nil
}

// connectVolatile dials the redis-backed session/presence/call store.
func connectVolatile(ctx context.Context) (store.Volatile, func(), error) {
	cfg, err := config.Load(config.LoaderOptions{ConfigDir: configDir})
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	volatile, err := redis.New(ctx, redis.Config{Addr: cfg.Volatile.Addr, Password: cfg.Volatile.Password, DB: cfg.Volatile.DB})
	if err != nil {
		return nil, nil, fmt.Errorf("connect volatile store: %w", err)
	}
	return volatile, func() { volatile.Close() }, nil
}
