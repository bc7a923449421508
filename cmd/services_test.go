package cmd

import (
	"context"
	"errors"
	"testing"

	jsonstore "github.com/khanhnv2901/seca-pqc/internal/infrastructure/persistence/json"
)

func TestOpenStore(t *testing.T) {
	appCtx, cleanup := setupTestAppContext(t)
	defer cleanup()
	ctx := context.Background()

	store, err := openStore(ctx, appCtx)
	if err != nil {
		t.Fatalf("json store: %v", err)
	}
	if _, ok := store.(*jsonstore.BatchRepository); !ok {
		t.Fatalf("expected json repository, got %T", store)
	}

	appCtx.Config.Store.Driver = storeDriverNone
	store, err = openStore(ctx, appCtx)
	if err != nil || store != nil {
		t.Fatalf("none driver returned %v, %v", store, err)
	}

	appCtx.Config.Store.Driver = storeDriverPostgres
	appCtx.Config.Store.DSN = ""
	if _, err := openStore(ctx, appCtx); err == nil {
		t.Fatal("expected postgres without DSN to fail")
	}

	appCtx.Config.Store.Driver = "sqlite"
	var optErr *UnsupportedOptionError
	if _, err := openStore(ctx, appCtx); !errors.As(err, &optErr) {
		t.Fatalf("expected UnsupportedOptionError, got %v", err)
	}
	if optErr.Value != "sqlite" {
		t.Errorf("unexpected option value %q", optErr.Value)
	}
}

func TestOpenRegistry(t *testing.T) {
	appCtx, cleanup := setupTestAppContext(t)
	defer cleanup()
	ctx := context.Background()

	registry, release, err := openRegistry(ctx, appCtx)
	if err != nil {
		t.Fatalf("memory registry: %v", err)
	}
	defer release()
	if registry == nil {
		t.Fatal("expected registry")
	}

	appCtx.Config.Cancel.Backend = "etcd"
	var optErr *UnsupportedOptionError
	if _, _, err := openRegistry(ctx, appCtx); !errors.As(err, &optErr) {
		t.Fatalf("expected UnsupportedOptionError, got %v", err)
	}
}

func TestNewOrchestrator(t *testing.T) {
	appCtx, cleanup := setupTestAppContext(t)
	defer cleanup()

	registry, release, err := openRegistry(context.Background(), appCtx)
	if err != nil {
		t.Fatalf("openRegistry: %v", err)
	}
	defer release()

	if orch := newOrchestrator(appCtx, nil, registry); orch == nil {
		t.Fatal("expected orchestrator without a store")
	}
}
