package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/dental-scheduler/internal/config"
	"github.com/jwalitptl/dental-scheduler/internal/handler/health"
	"github.com/jwalitptl/dental-scheduler/internal/repository"
	"github.com/jwalitptl/dental-scheduler/internal/repository/memory"
	"github.com/jwalitptl/dental-scheduler/internal/repository/postgres"
	"github.com/jwalitptl/dental-scheduler/pkg/logger"
	"github.com/jwalitptl/dental-scheduler/pkg/messaging"
	"github.com/jwalitptl/dental-scheduler/pkg/messaging/redis"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Infra holds the external connections shared by the server and the worker.
type Infra struct {
	Repos  repository.Repositories
	DB     *sqlx.DB
	Broker messaging.Broker
	// Checks feeds /health/ready
	Checks map[string]health.Pinger
}

func NewLogger(cfg config.LogConfig) *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Level),
		TimeFormat: time.RFC3339,
		Pretty:     cfg.Pretty,
	})
}

// Open connects the selected store and, when a redis url is configured, the
// notification broker.
func Open(ctx context.Context, cfg *config.Config, store string, log *logger.Logger) (*Infra, error) {
	infra := &Infra{Checks: map[string]health.Pinger{}}

	switch store {
	case StoreMemory:
		infra.Repos = memory.New().Repositories()
	case StorePostgres, "":
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		infra.DB = db
		infra.Repos = postgres.NewRepositories(db)
		infra.Checks["database"] = db
	default:
		return nil, fmt.Errorf("unknown store %q", store)
	}

	if cfg.Redis.URL == "" {
		infra.Broker = messaging.NoopBroker{}
		return infra, nil
	}
	broker, err := redis.NewRedisBroker(ctx, redis.Config{URL: cfg.Redis.URL}, log.ZL)
	if err != nil {
		infra.Close()
		return nil, err
	}
	infra.Broker = broker
	infra.Checks["redis"] = health.PingFunc(broker.Ping)
	return infra, nil
}

func (i *Infra) Close() {
	if i.Broker != nil {
		_ = i.Broker.Close()
	}
	if i.DB != nil {
		_ = i.DB.Close()
	}
}
