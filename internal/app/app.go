// Package app assembles the exchange bot: session store, API client,
// conversations and Telegram routes.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/exchangebot/core/bootstrap"
	corecmd "github.com/m3rciful/exchangebot/core/cmd"
	"github.com/m3rciful/exchangebot/core/logger"
	tg "github.com/m3rciful/exchangebot/core/telegram"
	"github.com/m3rciful/exchangebot/core/telegram/serial"
	"github.com/m3rciful/exchangebot/core/telegram/state"
	"github.com/m3rciful/exchangebot/internal/config"
	"github.com/m3rciful/exchangebot/internal/conversation"
	"github.com/m3rciful/exchangebot/internal/flows"
	"github.com/m3rciful/exchangebot/internal/gateway"
)

// App owns the long-lived components of the bot.
type App struct {
	cfg   *config.Config
	infra *bootstrap.Result

	store      conversation.Store
	lanes      *serial.Lanes
	dispatcher *conversation.Dispatcher
	flows      *flows.Flows
	registry   *tg.Registry
}

// LoadConfig adapts config.Load to the runner.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Bootstrap initialises logging and the storage required by the session
// backend, then builds the App.
func Bootstrap(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}

	opts := bootstrap.Options{Config: &cfg.Core}
	switch cfg.Session.Backend {
	case config.BackendPostgres:
		pg := cfg.Session.Postgres
		opts.Postgres = &pg
		opts.MigrationsPath = cfg.Session.MigrationsPath
	case config.BackendRedis:
		rd := cfg.Session.Redis
		opts.Redis = &rd
	}
	infra, err := bootstrap.Run(ctx, opts)
	if err != nil {
		return nil, err
	}

	api := gateway.New(cfg.API.URL, gateway.WithTimeout(cfg.API.Timeout))
	a, err := New(cfg, infra, api)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	logger.Info(ctx, "app", "bootstrap",
		slog.String("status", "ok"),
		slog.String("backend", cfg.Session.Backend),
	)
	return a, nil
}

// New wires the App around already opened infrastructure.
func New(cfg *config.Config, infra *bootstrap.Result, api flows.API) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	if infra == nil {
		infra = &bootstrap.Result{}
	}
	store, err := newStore(cfg.Session, infra)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:   cfg,
		infra: infra,
		store: store,
		lanes: serial.New(serial.Options{}),
	}
	a.dispatcher = conversation.New(store, flows.Hooks())
	a.flows = flows.New(api, a.dispatcher)
	if err := a.flows.Register(); err != nil {
		return nil, err
	}
	if err := a.buildRegistry(); err != nil {
		return nil, err
	}
	return a, nil
}

func newStore(cfg config.SessionConfig, infra *bootstrap.Result) (conversation.Store, error) {
	opts := state.Options{IdleTimeout: cfg.IdleTimeout}
	switch cfg.Backend {
	case config.BackendRedis:
		if infra.Redis == nil {
			return nil, errors.New("app: redis backend selected without a redis client")
		}
		return state.NewRedisStore[conversation.Scratch](infra.Redis, opts, ""), nil
	case config.BackendPostgres:
		if infra.DB == nil {
			return nil, errors.New("app: postgres backend selected without a database")
		}
		return state.NewPostgresStore[conversation.Scratch](infra.DB, opts), nil
	case config.BackendMemory, "":
		return state.NewMemoryStore[conversation.Scratch](opts), nil
	default:
		return nil, fmt.Errorf("app: unknown session backend %q", cfg.Backend)
	}
}

// TelegramRunOptions describes how the bot runs. Updates are taken in
// arrival order and handed to per-user lanes.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	return tg.RunOptions{
		Config:      &a.cfg.Core,
		Registry:    a.registry,
		Middlewares: tg.DefaultMiddlewares(a.lanes.Middleware),
		Routes:      a.routes(),
		Synchronous: true,
		OnStart: func(ctx context.Context, _ tg.Runtime) error {
			if sw, ok := a.store.(state.Sweeper); ok {
				go state.RunJanitor(ctx, sw, a.cfg.Session.SweepInterval)
			}
			return nil
		},
		OnStop: func(context.Context, tg.Runtime) error {
			a.lanes.Close()
			return nil
		},
	}, nil
}

// Close releases the session store and the storage connections.
func (a *App) Close() error {
	return errors.Join(a.store.Close(), a.infra.Close())
}
