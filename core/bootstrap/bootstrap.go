package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	coreconfig "github.com/m3rciful/exchangebot/core/config"
	coredatabase "github.com/m3rciful/exchangebot/core/database"
	"github.com/m3rciful/exchangebot/core/logger"
)

// Options control the generic bootstrap pipeline. Nil Postgres or Redis
// settings skip that connection.
type Options struct {
	Config *coreconfig.Config

	Postgres       *coredatabase.Config
	MigrationsPath string
	Redis          *coredatabase.RedisConfig

	LoggerInit   func(*coreconfig.Config) error
	Connect      func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate      func(context.Context, coredatabase.Config, string) error
	ConnectRedis func(context.Context, coredatabase.RedisConfig) (*redis.Client, error)
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	DB    *sqlx.DB
	Redis *redis.Client
}

// Close releases every opened connection.
func (r *Result) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.DB != nil {
		errs = append(errs, r.DB.Close())
	}
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
	}
	return errors.Join(errs...)
}

// Run initializes the logger and then the requested storage connections.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	res := &Result{}

	if opts.Postgres != nil {
		connect := opts.Connect
		if connect == nil {
			connect = coredatabase.Connect
		}
		migrate := opts.Migrate
		if migrate == nil {
			migrate = coredatabase.RunMigrations
		}
		if err := migrate(ctx, *opts.Postgres, opts.MigrationsPath); err != nil {
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
		db, err := connect(ctx, *opts.Postgres)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
		}
		res.DB = db
	}

	if opts.Redis != nil {
		connectRedis := opts.ConnectRedis
		if connectRedis == nil {
			connectRedis = coredatabase.ConnectRedis
		}
		client, err := connectRedis(ctx, *opts.Redis)
		if err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("bootstrap: redis initialization failed: %w", err)
		}
		res.Redis = client
	}

	return res, nil
}
