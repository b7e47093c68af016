package main

import (
	"fmt"

	"go.uber.org/zap"

	"injtracker/internal/adapter/jsonfile"
	"injtracker/internal/adapter/memory"
	"injtracker/internal/adapter/postgres"
	"injtracker/internal/adapter/sqlite"
	"injtracker/internal/app"
	"injtracker/internal/config"
	"injtracker/internal/domain"
	"injtracker/internal/logging"
	"injtracker/internal/metrics"
)

// runtime is everything a command needs, built from the configuration.
type runtime struct {
	cfg        *config.Config
	log        *zap.Logger
	metrics    *metrics.Metrics
	injections *app.InjectionService
	recommend  *app.RecommendationService
	closeStore func() error
}

func openRuntime(flags *rootFlags, withMetrics bool) (*runtime, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	store, closeStore, err := openStore(cfg.Storage, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}

	rt := &runtime{cfg: cfg, log: log, closeStore: closeStore}
	if withMetrics {
		rt.metrics = metrics.New()
	}
	engine := cfg.Tracker.Engine()
	opts := []app.Option{app.WithLogger(log), app.WithMetrics(rt.metrics)}
	rt.injections = app.NewInjectionService(store, engine, opts...)
	rt.recommend = app.NewRecommendationService(store, engine, cfg.Tracker.HeatmapResolution, opts...)
	return rt, nil
}

func (rt *runtime) Close() error {
	err := rt.closeStore()
	_ = rt.log.Sync()
	return err
}

func openStore(cfg config.StorageConfig, log *zap.Logger) (domain.InjectionRepository, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.New(), noop, nil
	case config.DriverJSON:
		return jsonfile.Open(cfg.Path, log.Named("jsonfile")), noop, nil
	case config.DriverSQLite:
		s, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return s, s.Close, nil
	case config.DriverPostgres:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return db, db.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
