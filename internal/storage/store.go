package storage

import (
	"context"

	"equilibria/internal/model"
)

// Store persists finished simulation summaries.
type Store interface {
	Init(ctx context.Context) error
	SaveSimulation(ctx context.Context, record model.SimulationRecord) error
	GetSimulation(ctx context.Context, id string) (model.SimulationRecord, bool, error)
	// ListSimulations returns the newest records first; limit <= 0 means all.
	ListSimulations(ctx context.Context, limit int) ([]model.SimulationRecord, error)
}
