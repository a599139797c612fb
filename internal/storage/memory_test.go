package storage

import (
	"context"
	"testing"

	"equilibria/internal/model"
)

func sampleRecord(id, created string) model.SimulationRecord {
	return Stamp(model.SimulationRecord{
		ID:           id,
		Name:         "study",
		Status:       "FINISHED",
		CreatedAtUTC: created,
		Iterations:   4,
		Finished:     4,
		Configurations: []model.ConfigurationSummary{{
			Label:          "study",
			Iterations:     4,
			MeanEfficiency: 0.5,
			FinalPortions:  map[string]float64{"tit_for_tat": 1},
		}},
	})
}

func TestMemoryStoreSimulationRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	record := sampleRecord("sim-1", "2026-01-01T00:00:00Z")
	if err := store.SaveSimulation(ctx, record); err != nil {
		t.Fatalf("save simulation: %v", err)
	}
	record.Configurations[0].FinalPortions["tit_for_tat"] = 0

	loaded, ok, err := store.GetSimulation(ctx, "sim-1")
	if err != nil {
		t.Fatalf("get simulation: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted simulation")
	}
	if loaded.Configurations[0].FinalPortions["tit_for_tat"] != 1 {
		t.Fatalf("store must keep its own copy: %+v", loaded.Configurations[0])
	}

	if _, ok, err := store.GetSimulation(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing simulation, got ok=%t err=%v", ok, err)
	}
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	for _, record := range []model.SimulationRecord{
		sampleRecord("a", "2026-01-01T00:00:00Z"),
		sampleRecord("b", "2026-01-03T00:00:00Z"),
		sampleRecord("c", "2026-01-02T00:00:00Z"),
	} {
		if err := store.SaveSimulation(ctx, record); err != nil {
			t.Fatalf("save simulation: %v", err)
		}
	}

	all, err := store.ListSimulations(ctx, 0)
	if err != nil {
		t.Fatalf("list simulations: %v", err)
	}
	if len(all) != 3 || all[0].ID != "b" || all[1].ID != "c" || all[2].ID != "a" {
		t.Fatalf("unexpected order: %+v", all)
	}
	limited, err := store.ListSimulations(ctx, 1)
	if err != nil {
		t.Fatalf("list simulations: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "b" {
		t.Fatalf("unexpected limited list: %+v", limited)
	}
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	if err := store.SaveSimulation(context.Background(), sampleRecord("x", "")); err == nil {
		t.Fatal("expected uninitialized store error")
	}
}
