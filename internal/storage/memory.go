package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"equilibria/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	simulations map[string]model.SimulationRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.simulations = make(map[string]model.SimulationRecord)
	return nil
}

func (s *MemoryStore) SaveSimulation(_ context.Context, record model.SimulationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.simulations[record.ID] = copyRecord(record)
	return nil
}

func (s *MemoryStore) GetSimulation(_ context.Context, id string) (model.SimulationRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.simulations[id]
	if !ok {
		return model.SimulationRecord{}, false, nil
	}
	return copyRecord(record), true, nil
}

func (s *MemoryStore) ListSimulations(_ context.Context, limit int) ([]model.SimulationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.SimulationRecord, 0, len(s.simulations))
	for _, record := range s.simulations {
		out = append(out, copyRecord(record))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAtUTC != out[j].CreatedAtUTC {
			return out[i].CreatedAtUTC > out[j].CreatedAtUTC
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func copyRecord(record model.SimulationRecord) model.SimulationRecord {
	record.Errors = append([]string(nil), record.Errors...)
	configs := make([]model.ConfigurationSummary, len(record.Configurations))
	for i, summary := range record.Configurations {
		if summary.FinalPortions != nil {
			portions := make(map[string]float64, len(summary.FinalPortions))
			for name, share := range summary.FinalPortions {
				portions[name] = share
			}
			summary.FinalPortions = portions
		}
		configs[i] = summary
	}
	record.Configurations = configs
	return record
}
