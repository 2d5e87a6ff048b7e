package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/hailam/repertoire/internal/api"
	"github.com/hailam/repertoire/internal/config"
	"github.com/hailam/repertoire/internal/eco"
	"github.com/hailam/repertoire/internal/explorer"
	"github.com/hailam/repertoire/internal/logger"
	"github.com/hailam/repertoire/internal/repertoire"
	"github.com/hailam/repertoire/internal/session"
	"github.com/hailam/repertoire/internal/storage"
)

// app holds the components a command runs against.
type app struct {
	cfg   config.Config
	log   *logger.Logger
	store *storage.Storage
	svc   *repertoire.Service

	closers []func() error
}

// openApp wires storage, the session cache, the opening table and, when
// enabled, the explorer client from cfg.
func openApp(cfg config.Config, log *logger.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	store, err := storage.Open(storage.Config{
		Dir:      cfg.Storage.Dir,
		InMemory: cfg.Storage.InMemory,
		Defaults: &storage.UserPreferences{
			Settings: repertoire.Settings{RecommendInterval: cfg.Recommend.DefaultInterval},
		},
		Log: log,
	})
	if err != nil {
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	cache, err := openSessionCache(cfg.Session, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	if c, ok := cache.(interface{ Close() error }); ok {
		a.closers = append(a.closers, c.Close)
	}

	var table *eco.Table
	if cfg.Eco.File != "" {
		table, err = eco.Load(cfg.Eco.File)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("load opening table: %w", err)
		}
		log.Info("loaded opening table", "file", cfg.Eco.File, "openings", table.Size())
	}

	var responses explorer.Source
	if cfg.Explorer.Enabled {
		client := explorer.NewLichessClient(cfg.Explorer.BaseURL, cfg.Explorer.Timeout)
		responses = explorer.NewCachedSource(client, cfg.Explorer.CacheSize)
	}

	deps := repertoire.Deps{
		Edges:            store,
		Settings:         store,
		Cache:            cache,
		Responses:        responses,
		MinResponseShare: cfg.Explorer.MinShare,
		Log:              log,
	}
	if table != nil {
		deps.Eco = table
	}
	a.svc, err = repertoire.NewService(deps)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func openSessionCache(cfg config.SessionConfig, log *logger.Logger) (repertoire.SessionCache, error) {
	switch cfg.Backend {
	case config.SessionBackendRedis:
		cache, err := session.NewRedisCache(cfg.RedisAddr, cfg.TTL, log)
		if err != nil {
			return nil, fmt.Errorf("open redis session cache: %w", err)
		}
		return cache, nil
	default:
		return session.NewMemoryCache(cfg.TTL), nil
	}
}

// Close releases everything openApp acquired, last opened first.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Serve opens the app described by cfg and serves the HTTP API on addr
// until ctx is cancelled. An empty addr means cfg.Server.Addr.
func Serve(ctx context.Context, cfg config.Config, log *logger.Logger, addr string) error {
	if addr == "" {
		addr = cfg.Server.Addr
	}
	a, err := openApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	server := api.NewServer(api.RouterConfig{
		Log:               log,
		RepertoireHandler: api.NewRepertoireHandler(log, a.svc, a.store, a.store),
		HealthHandler:     api.NewHealthHandler(),
	})
	return server.Run(ctx, addr)
}
