//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteStoreSimulationRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "equilibria.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	first := sampleRecord("sim-1", "2026-01-01T00:00:00Z")
	second := sampleRecord("sim-2", "2026-01-02T00:00:00Z")
	if err := store.SaveSimulation(ctx, first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := store.SaveSimulation(ctx, second); err != nil {
		t.Fatalf("save second: %v", err)
	}
	first.Status = "CANCELED"
	if err := store.SaveSimulation(ctx, first); err != nil {
		t.Fatalf("upsert first: %v", err)
	}

	loaded, ok, err := store.GetSimulation(ctx, "sim-1")
	if err != nil {
		t.Fatalf("get simulation: %v", err)
	}
	if !ok || loaded.Status != "CANCELED" {
		t.Fatalf("unexpected simulation: ok=%t %+v", ok, loaded)
	}

	list, err := store.ListSimulations(ctx, 0)
	if err != nil {
		t.Fatalf("list simulations: %v", err)
	}
	if len(list) != 2 || list[0].ID != "sim-2" {
		t.Fatalf("unexpected list: %+v", list)
	}

	if _, ok, err := store.GetSimulation(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing simulation, got ok=%t err=%v", ok, err)
	}
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "x.db"))
	if err := store.SaveSimulation(context.Background(), sampleRecord("x", "")); err == nil {
		t.Fatal("expected uninitialized store error")
	}
}
