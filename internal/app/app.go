// Package app wires the storage backend, notification pipeline and
// repositories that every front end shares.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hpungsan/shelf/internal/cards"
	"github.com/hpungsan/shelf/internal/config"
	"github.com/hpungsan/shelf/internal/files"
	"github.com/hpungsan/shelf/internal/logger"
	"github.com/hpungsan/shelf/internal/lookup"
	"github.com/hpungsan/shelf/internal/notify"
	"github.com/hpungsan/shelf/internal/settings"
	"github.com/hpungsan/shelf/internal/storage"
)

const redisPingTimeout = 3 * time.Second

// App is a fully initialized shelf: cards loaded, settings defaulted.
type App struct {
	DataDir string
	Config  *config.Config
	Log     logger.Logger

	Store    storage.Store
	Bus      *notify.Bus
	Toasts   *notify.Dispatcher
	Reporter *notify.Reporter
	Files    files.Policy

	Cards    *cards.Repository
	Settings *settings.Repository
	Lookup   *lookup.Client
}

// Open builds an App rooted at dataDir using cfg. The store is opened per
// cfg.Storage.Backend.
func Open(ctx context.Context, dataDir string, cfg *config.Config, log logger.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logger.Nop()
	}
	store, err := openStore(ctx, dataDir, cfg, log)
	if err != nil {
		return nil, err
	}
	a, err := New(ctx, dataDir, cfg, store, log)
	if err != nil {
		store.Close()
		return nil, err
	}
	return a, nil
}

// New wires an App around an already opened store.
func New(ctx context.Context, dataDir string, cfg *config.Config, store storage.Store, log logger.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logger.Nop()
	}

	if err := storage.Available(ctx, store); err != nil {
		log.Warn("storage not available, changes may not persist", logger.Error(err))
	}

	bus := notify.NewBus()
	toasts := notify.NewDispatcher(notify.Options{
		DefaultDuration: cfg.Notify.ToastDuration,
		MaxToasts:       cfg.Notify.MaxToasts,
		Log:             log.With(logger.String("component", "toasts")),
	})
	reporter := notify.NewReporter(bus, toasts, notify.ReporterOptions{
		Window: cfg.Notify.RateLimitWindow,
		Log:    log.With(logger.String("component", "reporter")),
	})

	policy := files.NewPolicy(dataDir, cfg.Files)

	a := &App{
		DataDir:  dataDir,
		Config:   cfg,
		Log:      log,
		Store:    store,
		Bus:      bus,
		Toasts:   toasts,
		Reporter: reporter,
		Files:    policy,
		Cards: cards.New(cards.Options{
			Store: store,
			Bus:   bus,
			Log:   log.With(logger.String("component", "cards")),
			Files: policy,
		}),
		Settings: settings.New(settings.Options{
			Store: store,
			Bus:   bus,
			Log:   log.With(logger.String("component", "settings")),
			Files: policy,
		}),
		Lookup: lookup.New(lookup.Options{
			Endpoint:  cfg.Lookup.WikipediaEndpoint,
			UserAgent: cfg.Lookup.UserAgent,
			Timeout:   cfg.Lookup.Timeout,
			Log:       log.With(logger.String("component", "lookup")),
		}),
	}

	if err := a.Settings.Init(ctx); err != nil {
		reporter.Close()
		return nil, fmt.Errorf("init settings: %w", err)
	}
	if err := a.Cards.Load(ctx); err != nil {
		reporter.Close()
		return nil, fmt.Errorf("load cards: %w", err)
	}
	return a, nil
}

// Close detaches the reporter, drops pending toasts and closes the store.
func (a *App) Close() error {
	a.Reporter.Close()
	a.Toasts.ClearAll()
	_ = a.Log.Sync()
	return a.Store.Close()
}

func openStore(ctx context.Context, dataDir string, cfg *config.Config, log logger.Logger) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendRedis:
		// Exports still land on local disk
		if err := os.MkdirAll(filepath.Join(dataDir, "exports"), 0700); err != nil {
			return nil, fmt.Errorf("failed to create exports directory: %w", err)
		}
		r, err := storage.OpenRedis(ctx, storage.RedisOptions{
			Addr:        cfg.Storage.RedisAddr,
			Password:    cfg.Storage.RedisPassword,
			DB:          cfg.Storage.RedisDB,
			Prefix:      cfg.Storage.RedisPrefix,
			PingTimeout: redisPingTimeout,
		}, log)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		s, err := storage.OpenSQLite(dataDir)
		if err != nil {
			return nil, err
		}
		s.ConfigurePool(cfg)
		return s, nil
	}
}
