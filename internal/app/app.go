// Package app loads configuration and wires the assistant together. Both
// the HTTP server and the CLI build their runtime through it.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"

	"github.com/otrade-bot/server/internal/bot/model"
	"github.com/otrade-bot/server/internal/bot/orchestrator"
	"github.com/otrade-bot/server/internal/bot/repo"
	"github.com/otrade-bot/server/internal/catalog"
	"github.com/otrade-bot/server/internal/core"
	"github.com/otrade-bot/server/internal/gateway"
	"github.com/otrade-bot/server/internal/invoice"
	"github.com/otrade-bot/server/internal/notify"
	logx "github.com/otrade-bot/server/pkg/logger"
	pkgredis "github.com/otrade-bot/server/pkg/redis"
)

// Config defines all configurable parameters of the service, sourced from
// environment variables (loaded from .env for local runs).
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"development"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8000"`

	// Infrastructure
	Redis pkgredis.Config

	// Integrations
	Gemini  gateway.Config
	Catalog catalog.Config
	Twilio  notify.Config
	Invoice invoice.Config

	Conversation model.ConversationConfig
}

// Load reads .env when present and resolves the full configuration from the
// environment.
func Load() (Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		logx.Debug().Err(err).Msg("no .env file loaded")
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("processing environment config: %w", err)
	}
	return cfg, nil
}

// Env returns the parsed deployment environment.
func (c Config) Env() core.Environment {
	return core.ParseEnvironment(c.Environment)
}

// App holds the wired runtime.
type App struct {
	Bot      *orchestrator.Orchestrator
	Notifier model.Notifier

	rdb   *redis.Client
	store *invoice.Store
}

// Build connects all backing services and assembles the orchestrator.
func Build(ctx context.Context, cfg Config) (*App, error) {
	ttl, err := time.ParseDuration(cfg.Conversation.TTL)
	if err != nil {
		return nil, fmt.Errorf("invalid CONVERSATION_TTL %q: %w", cfg.Conversation.TTL, err)
	}

	rdb, err := cfg.Redis.New()
	if err != nil {
		return nil, fmt.Errorf("initialising redis client: %w", err)
	}
	sessions := repo.NewRedisStore(rdb, ttl)

	gw, err := gateway.New(ctx, cfg.Gemini)
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("initialising model gateway: %w", err)
	}

	store, err := invoice.OpenStore(cfg.Invoice.DBPath)
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("opening invoice store: %w", err)
	}
	renderer, err := invoice.NewService(store, cfg.Invoice)
	if err != nil {
		store.Close()
		rdb.Close()
		return nil, err
	}

	notifier := notify.New(cfg.Twilio)

	bot := orchestrator.New(orchestrator.Deps{
		Sessions: sessions,
		Log:      sessions,
		Catalog:  catalog.New(cfg.Catalog),
		Gateway:  gw,
		Renderer: renderer,
		Notifier: notifier,
	}, cfg.Conversation)

	logx.Info().
		Str("environment", cfg.Environment).
		Str("invoice_db", cfg.Invoice.DBPath).
		Msg("application wired")

	return &App{Bot: bot, Notifier: notifier, rdb: rdb, store: store}, nil
}

// Close releases backing connections.
func (a *App) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logx.Warn().Err(err).Msg("closing invoice store")
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			logx.Warn().Err(err).Msg("closing redis client")
		}
	}
}
