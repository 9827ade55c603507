package root

import (
	"context"
	"fmt"

	"github.com/sweeney/habit-tracker/internal/config"
	"github.com/sweeney/habit-tracker/internal/dispatch"
	"github.com/sweeney/habit-tracker/internal/logger"
	"github.com/sweeney/habit-tracker/internal/stats"
	"github.com/sweeney/habit-tracker/internal/store"
)

type service struct {
	cfg   config.Config
	disp  *dispatch.Dispatcher
	store *store.Store
}

func loadConfig(o *options) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.store != "" {
		cfg.Daemon.Store = o.store
	}
	if o.dbPath != "" {
		cfg.Daemon.SQLitePath = o.dbPath
	}
	if o.logMode != "" {
		cfg.Daemon.LogMode = o.logMode
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func openService(ctx context.Context, o *options) (*service, func(), error) {
	cfg, err := loadConfig(o)
	if err != nil {
		return nil, nil, err
	}
	lg, err := logger.New(cfg.Daemon.LogMode)
	if err != nil {
		return nil, nil, err
	}
	backend, err := store.OpenBackend(ctx, cfg.Daemon)
	if err != nil {
		return nil, nil, err
	}
	st := store.New(backend, cfg.Daemon.StorageKey, cfg.Engine)
	cleanup := func() {
		_ = st.Close()
		lg.Sync()
	}

	engine, err := stats.NewEngine(cfg.Engine)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	disp, err := dispatch.New(ctx, engine, st, lg, o.now())
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return &service{cfg: cfg, disp: disp, store: st}, cleanup, nil
}
