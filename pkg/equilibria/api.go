// Package equilibria is the embeddable entry point for running iterated-game
// simulations and reading back their persisted summaries.
package equilibria

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"equilibria/internal/engine"
	"equilibria/internal/logging"
	"equilibria/internal/model"
	"equilibria/internal/platform"
	"equilibria/internal/registry"
	"equilibria/internal/stats"
	"equilibria/internal/storage"
	"equilibria/internal/sweep"
)

const defaultDBPath = "equilibria.db"

var ErrNotFound = errors.New("simulation not found")

type (
	// UserConfiguration describes a simulation request.
	UserConfiguration = sweep.UserConfiguration
	SimulationRecord  = model.SimulationRecord
)

type Options struct {
	StoreKind string
	DBPath    string
	Workers   int
	// Seed is used for requests without a seed.
	Seed uint64
	// ArtifactsDir, when set, receives JSON and CSV artifacts of every run.
	ArtifactsDir string
	Logger       *slog.Logger
	Registry     *registry.Registry
}

// Progress is reported after every finished iteration.
type Progress struct {
	Simulation    string
	Configuration int
	Finished      int
	Total         int
	Efficiency    float64
}

type Client struct {
	store        storage.Store
	simulator    *platform.Simulator
	registry     *registry.Registry
	artifactsDir string
	logger       *slog.Logger
}

func New(ctx context.Context, opts Options) (*Client, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	store, err := storage.NewStore(opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, fmt.Errorf("init store: %w", err)
	}

	reg := opts.Registry
	if reg == nil {
		reg = registry.Default()
	}
	logger := logging.OrDiscard(opts.Logger)
	simulator := platform.NewSimulator(platform.Config{
		Workers: opts.Workers,
		Seed:    opts.Seed,
		Creator: sweep.NewCreator(reg),
		Store:   store,
		Logger:  logger,
	})
	return &Client{
		store:        store,
		simulator:    simulator,
		registry:     reg,
		artifactsDir: opts.ArtifactsDir,
		logger:       logger,
	}, nil
}

func (c *Client) Close() error {
	simErr := c.simulator.Close()
	storeErr := storage.CloseIfSupported(c.store)
	return errors.Join(simErr, storeErr)
}

// Run starts a simulation and blocks until it finishes. When ctx ends first
// the simulation is canceled and its partial summary returned with ctx's
// error.
func (c *Client) Run(ctx context.Context, user UserConfiguration, progress func(Progress)) (SimulationRecord, error) {
	finished := make(chan struct{})
	result, err := c.simulator.Start(user, func(*platform.SimulationResult) { close(finished) })
	if err != nil {
		return SimulationRecord{}, err
	}
	if progress != nil {
		result.RegisterIterationFinished(func(r *platform.SimulationResult, config int, it engine.IterationResult) {
			progress(Progress{
				Simulation:    r.ID(),
				Configuration: config,
				Finished:      r.FinishedIterations(),
				Total:         r.TotalIterations(),
				Efficiency:    it.Efficiency,
			})
		})
	}

	select {
	case <-result.Done():
		if result.Status() == platform.StatusFinished {
			<-finished
		}
	case <-ctx.Done():
		c.simulator.Stop(result.ID())
		return result.Record(), ctx.Err()
	}

	record := storage.Stamp(result.Record())
	if c.artifactsDir != "" {
		if err := c.writeArtifacts(result, record); err != nil {
			return record, fmt.Errorf("write artifacts: %w", err)
		}
	}
	return record, nil
}

func (c *Client) writeArtifacts(result *platform.SimulationResult, record SimulationRecord) error {
	dir, err := stats.WriteSimulationArtifacts(c.artifactsDir, record)
	if err != nil {
		return err
	}
	for i := 0; i < result.Configurations(); i++ {
		names, rows := stats.PortionTrajectory(result.IterationResults(i))
		if len(rows) == 0 {
			continue
		}
		if err := stats.WriteTrajectory(dir, i, names, rows); err != nil {
			return err
		}
	}
	c.logger.Info("artifacts written", "simulation", record.ID, "dir", dir)
	return nil
}

// Runs lists persisted simulations, newest first.
func (c *Client) Runs(ctx context.Context, limit int) ([]SimulationRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return c.store.ListSimulations(ctx, limit)
}

func (c *Client) Show(ctx context.Context, id string) (SimulationRecord, error) {
	record, ok, err := c.store.GetSimulation(ctx, id)
	if err != nil {
		return SimulationRecord{}, err
	}
	if !ok {
		return SimulationRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return record, nil
}

// Plugins lists the registered plugin names per family.
func (c *Client) Plugins() map[string][]string {
	return c.registry.Catalog()
}

// SweepableParameters lists the parameter names a request may sweep.
func SweepableParameters() []string {
	return sweep.SweepableParameters()
}

// LoadConfiguration reads a YAML or JSON run request.
func LoadConfiguration(path string) (UserConfiguration, error) {
	return sweep.Load(path)
}

// ParseConfiguration decodes a YAML or JSON run request.
func ParseConfiguration(data []byte) (UserConfiguration, error) {
	return sweep.Parse(data)
}
