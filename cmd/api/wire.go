package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"voice-agent-dashboard/internal/agents"
	"voice-agent-dashboard/internal/analytics"
	"voice-agent-dashboard/internal/audit"
	"voice-agent-dashboard/internal/config"
	"voice-agent-dashboard/internal/httpapi"
	"voice-agent-dashboard/internal/platform"
	"voice-agent-dashboard/pkg/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"
)

// deps owns every long-lived handle. Close releases them in reverse order.
type deps struct {
	Handlers httpapi.Handlers

	db  *sql.DB
	rdb *redis.Client
}

func (d *deps) Close() {
	if d.rdb != nil {
		_ = d.rdb.Close()
	}
	if d.db != nil {
		_ = d.db.Close()
	}
}

type schemaRepo interface {
	agents.Repository
	EnsureSchema(ctx context.Context) error
}

func wire(ctx context.Context, cfg config.Config, log *slog.Logger) (*deps, error) {
	d := &deps{}

	var repo schemaRepo
	switch cfg.DB.Driver {
	case config.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.DB.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite dir: %w", err)
		}
		db, err := utils.OpenDB(ctx, "sqlite", cfg.SQLiteDSN(), utils.PoolConfig{})
		if err != nil {
			return nil, fmt.Errorf("sqlite init: %w", err)
		}
		d.db = db
		repo = agents.NewSQLiteRepo(db)
	default:
		db, err := utils.OpenDB(ctx, "pgx", cfg.PostgresDSN(), utils.PoolConfig{})
		if err != nil {
			return nil, fmt.Errorf("postgres init: %w", err)
		}
		d.db = db
		repo = agents.NewPostgresRepo(db)
	}
	if cfg.DB.AutoMigrate {
		if err := repo.EnsureSchema(ctx); err != nil {
			d.Close()
			return nil, err
		}
		log.Info("agent schema ensured", "driver", cfg.DB.Driver)
	}

	client, err := platform.NewClient(platform.Config{
		BaseURL: cfg.Platform.BaseURL,
		APIKey:  cfg.Platform.APIKey,
		Timeout: cfg.Platform.Timeout,
	})
	if err != nil {
		d.Close()
		return nil, err
	}

	opts := agents.Options{Audit: audit.NewService(audit.NewLogRepo(log))}
	if cfg.RedisEnabled() {
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("redis init: %w", err)
		}
		d.rdb = rdb
		opts.Idempotency = agents.NewRedisIdempotency(rdb, cfg.Agents.IdempotencyTTL)
		opts.Throttle = agents.NewRedisThrottle(rdb, cfg.Agents.TestCallCooldown)
	} else {
		log.Warn("redis disabled: create idempotency and test call throttling are off")
	}

	agentSvc := agents.NewService(repo, client, opts)
	d.Handlers = httpapi.Handlers{
		Agents: agentSvc,
		Analytics: analytics.NewService(agentSvc, client, analytics.Config{
			PageSize: cfg.Analytics.PageSize,
			MaxPages: cfg.Analytics.MaxPages,
		}),
		Ping: func(ctx context.Context) error {
			return utils.HealthCheck(ctx, d.db, 2*time.Second)
		},
	}
	return d, nil
}
