package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-pqc/internal/domain/scan"
	"github.com/khanhnv2901/seca-pqc/internal/infrastructure/cancel"
	jsonstore "github.com/khanhnv2901/seca-pqc/internal/infrastructure/persistence/json"
	"github.com/khanhnv2901/seca-pqc/internal/infrastructure/persistence/postgres"
	"github.com/khanhnv2901/seca-pqc/internal/orchestrator"
	"github.com/khanhnv2901/seca-pqc/internal/pqc"
	"github.com/khanhnv2901/seca-pqc/internal/probe"
)

// openStore builds the configured result store. A nil store with a nil
// error means persistence is disabled.
func openStore(ctx context.Context, appCtx *AppContext) (scan.Store, error) {
	cfg := appCtx.Config.Store
	switch strings.ToLower(cfg.Driver) {
	case storeDriverJSON, "":
		return jsonstore.NewBatchRepository(appCtx.ResultsDir)
	case storeDriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("--dsn is required for the postgres store")
		}
		return postgres.Connect(ctx, postgres.Config{
			DSN:      cfg.DSN,
			MaxConns: int32(cfg.MaxConns),
			Logger:   appCtx.zapLogger(),
		})
	case storeDriverNone:
		return nil, nil
	}
	return nil, &UnsupportedOptionError{
		Option:  "store",
		Value:   cfg.Driver,
		Allowed: []string{storeDriverJSON, storeDriverPostgres, storeDriverNone},
	}
}

// openRegistry builds the cancellation registry and a function releasing it.
func openRegistry(ctx context.Context, appCtx *AppContext) (orchestrator.Registry, func(), error) {
	cfg := appCtx.Config.Cancel
	switch strings.ToLower(cfg.Backend) {
	case cancelBackendMemory, "":
		return orchestrator.NewMemoryRegistry(orchestrator.DefaultRegistryLimit), func() {}, nil
	case cancelBackendRedis:
		registry := cancel.NewRedisRegistry(cancel.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := registry.Ping(ctx); err != nil {
			_ = registry.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		release := func() {
			if err := registry.Close(); err != nil {
				appCtx.zapLogger().Warn("failed to close redis registry", zap.Error(err))
			}
		}
		return registry, release, nil
	}
	return nil, nil, &UnsupportedOptionError{
		Option:  "cancel backend",
		Value:   cfg.Backend,
		Allowed: []string{cancelBackendMemory, cancelBackendRedis},
	}
}

// newOrchestrator wires the probe, precheck, store and registry.
func newOrchestrator(appCtx *AppContext, store scan.Store, registry orchestrator.Registry) *orchestrator.Orchestrator {
	scanCfg := appCtx.Config.Scan
	logger := appCtx.zapLogger()

	cfg := orchestrator.Config{
		Tool:          probe.NewSSLLabs(probe.Config{Command: scanCfg.Tool, Logger: logger}),
		Precheck:      probe.NewPrecheck(scanCfg.PrecheckTimeout),
		Registry:      registry,
		Policy:        scanCfg.Policy(),
		Builder:       pqc.Builder{Renormalize: scanCfg.RenormalizeWeights},
		SingleTimeout: scanCfg.SingleTimeout,
		Logger:        logger,
	}
	if store != nil {
		cfg.Recorder = store
	}
	return orchestrator.New(cfg)
}
