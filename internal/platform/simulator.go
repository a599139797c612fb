package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"equilibria/internal/engine"
	"equilibria/internal/logging"
	"equilibria/internal/storage"
	"equilibria/internal/sweep"
)

var ErrSimulatorClosed = errors.New("simulator is closed")

// Executor runs one iteration of an elementary configuration.
type Executor interface {
	ExecuteIteration(ctx context.Context, cfg engine.Configuration, seed uint64) (engine.IterationResult, error)
}

type Config struct {
	// Workers bounds the number of iterations executing at once.
	Workers int
	// Seed is used for simulations whose configuration carries no seed.
	Seed     uint64
	Executor Executor
	Creator  *sweep.Creator
	// Store receives a summary of every simulation that finishes or is
	// canceled. Optional.
	Store  storage.Store
	Logger *slog.Logger
}

const DefaultWorkers = 4

type job struct {
	task      *task
	id        uint64
	config    int
	iteration int
	seed      uint64
	instance  engine.Configuration
	ctx       context.Context
}

type completion struct {
	job job
	err error
}

type command struct {
	start *task
	stop  string
	reply chan bool
}

// Simulator runs simulations on a bounded worker pool. A single dispatcher
// goroutine owns the task queue, the configuration buffers and the
// in-flight bookkeeping.
type Simulator struct {
	workers  int
	seed     uint64
	executor Executor
	creator  *sweep.Creator
	store    storage.Store
	logger   *slog.Logger

	ctx         context.Context
	cancel      context.CancelFunc
	group       *errgroup.Group
	jobs        chan job
	completions chan completion
	commands    chan command
	dispatched  chan struct{}
	notifiers   sync.WaitGroup
	closeOnce   sync.Once

	mu          sync.RWMutex
	closed      bool
	simulations map[string]*SimulationResult

	// dispatcher state
	queue  []*task
	tasks  map[string]*task
	idle   int
	nextID uint64
}

func NewSimulator(cfg Config) *Simulator {
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	executor := cfg.Executor
	if executor == nil {
		executor = engine.New(cfg.Logger)
	}
	creator := cfg.Creator
	if creator == nil {
		creator = sweep.NewCreator(nil)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(ctx)
	s := &Simulator{
		workers:     workers,
		seed:        seed,
		executor:    executor,
		creator:     creator,
		store:       cfg.Store,
		logger:      logging.OrDiscard(cfg.Logger),
		ctx:         ctx,
		cancel:      cancel,
		group:       group,
		jobs:        make(chan job, workers),
		completions: make(chan completion, workers),
		commands:    make(chan command),
		dispatched:  make(chan struct{}),
		simulations: make(map[string]*SimulationResult),
		tasks:       make(map[string]*task),
		idle:        workers,
	}
	for i := 0; i < workers; i++ {
		group.Go(func() error {
			s.work(groupCtx)
			return nil
		})
	}
	go s.dispatch()
	return s
}

// Start expands user into elementary configurations and queues the
// simulation. Expansion errors wrap sweep.ErrConfiguration and queue
// nothing. onFinished runs once when every iteration has completed; it is
// not called for canceled simulations.
func (s *Simulator) Start(user sweep.UserConfiguration, onFinished func(*SimulationResult)) (*SimulationResult, error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, ErrSimulatorClosed
	}

	values, err := s.creator.Values(user)
	if err != nil {
		return nil, err
	}
	labels := make([]string, len(values))
	buffers := make([][]engine.Configuration, len(values))
	for k := range values {
		row, err := s.buildRow(user, k)
		if err != nil {
			return nil, err
		}
		buffers[k] = row
		labels[k] = row[0].Label
	}

	parameter := ""
	if user.Multi != nil {
		parameter = user.Multi.Name
	}
	seed := user.Seed
	if seed == 0 {
		seed = s.seed
	}
	result := newSimulationResult(uuid.NewString(), user.Name, parameter, labels, values, user.Iterations)
	t := newTask(result, user, buffers, seed, onFinished)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSimulatorClosed
	}
	s.simulations[result.ID()] = result
	s.mu.Unlock()

	select {
	case s.commands <- command{start: t}:
	case <-s.dispatched:
		return nil, ErrSimulatorClosed
	}
	s.logger.Info("simulation queued",
		"simulation", result.ID(),
		"name", result.Name(),
		"configurations", len(values),
		"iterations", result.TotalIterations(),
	)
	return result, nil
}

// buildRow creates one buffer row of fresh instances, one per worker.
func (s *Simulator) buildRow(user sweep.UserConfiguration, k int) ([]engine.Configuration, error) {
	row := make([]engine.Configuration, 0, s.workers)
	for i := 0; i < s.workers; i++ {
		instance, err := s.creator.Build(user, k)
		if err != nil {
			return nil, err
		}
		row = append(row, instance)
	}
	return row, nil
}

// Stop cancels a queued or running simulation. Finished results are kept.
// It reports whether the simulation was stopped by this call. A simulation
// the dispatcher has already retired finishes normally.
func (s *Simulator) Stop(id string) bool {
	result, ok := s.Simulation(id)
	if !ok || result.Status().Terminal() {
		return false
	}
	reply := make(chan bool, 1)
	select {
	case s.commands <- command{stop: id, reply: reply}:
		ok = <-reply
	case <-s.dispatched:
	}
	if !ok || !result.setStatus(StatusCanceled) {
		return false
	}
	s.logger.Info("simulation canceled",
		"simulation", id,
		"finished", result.FinishedIterations(),
		"total", result.TotalIterations(),
	)
	s.persist(result)
	return true
}

func (s *Simulator) StopAll() {
	for _, result := range s.Simulations() {
		if !result.Status().Terminal() {
			s.Stop(result.ID())
		}
	}
}

func (s *Simulator) Simulation(id string) (*SimulationResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.simulations[id]
	return result, ok
}

// Simulations returns every started simulation, oldest first.
func (s *Simulator) Simulations() []*SimulationResult {
	s.mu.RLock()
	out := make([]*SimulationResult, 0, len(s.simulations))
	for _, result := range s.simulations {
		out = append(out, result)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt().Equal(out[j].CreatedAt()) {
			return out[i].CreatedAt().Before(out[j].CreatedAt())
		}
		return out[i].ID() < out[j].ID()
	})
	return out
}

// Close cancels every unfinished simulation and stops the worker pool.
func (s *Simulator) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.StopAll()
		s.cancel()
		<-s.dispatched
		err = s.group.Wait()
		s.notifiers.Wait()
	})
	return err
}

func (s *Simulator) work(ctx context.Context) {
	for j := range s.jobs {
		err := s.execute(j)
		select {
		case s.completions <- completion{job: j, err: err}:
		case <-ctx.Done():
		}
	}
}

// execute runs one iteration and reports it on the owning result. Panics in
// plugin code are turned into engine errors.
func (s *Simulator) execute(j job) (err error) {
	result := j.task.result
	if j.ctx.Err() != nil {
		return j.ctx.Err()
	}
	result.setStatus(StatusRunning)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("iteration panicked: %v", r)
		}
		if err == nil {
			return
		}
		if j.ctx.Err() != nil && errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Warn("iteration failed",
			"simulation", result.ID(),
			"configuration", j.config,
			"iteration", j.iteration,
			"error", err,
		)
		result.addError(&SimulationEngineError{ConfigIndex: j.config, Iteration: j.iteration, Err: err})
	}()

	out, err := s.executor.ExecuteIteration(j.ctx, j.instance, j.seed)
	if err != nil {
		return err
	}
	result.addIterationResult(j.config, out)
	return nil
}

func (s *Simulator) dispatch() {
	defer close(s.dispatched)
	defer close(s.jobs)
	for {
		s.retire()
		s.submit()
		select {
		case c := <-s.completions:
			s.complete(c)
		case cmd := <-s.commands:
			s.handle(cmd)
		case <-s.ctx.Done():
			for _, t := range s.tasks {
				t.cancelAll()
			}
			return
		}
	}
}

func (s *Simulator) handle(cmd command) {
	switch {
	case cmd.start != nil:
		t := cmd.start
		if t.result.Status().Terminal() {
			return
		}
		s.tasks[t.result.ID()] = t
		s.queue = append(s.queue, t)
	case cmd.stop != "":
		t, ok := s.tasks[cmd.stop]
		if ok {
			t.dropped = true
			t.cancelAll()
			s.drop(t)
		}
		cmd.reply <- ok
	}
}

func (s *Simulator) complete(c completion) {
	s.idle++
	t := c.job.task
	if cancel, ok := t.inflight[c.job.id]; ok {
		cancel()
		delete(t.inflight, c.job.id)
	}
	if t.dropped {
		return
	}
	// A failed instance may hold broken plugin state; its slot is abandoned
	// and the row is rebuilt when it runs dry.
	if c.err == nil {
		t.push(c.job.config, c.job.instance)
	}
}

// submit hands units to idle workers, rotating across tasks.
func (s *Simulator) submit() {
	for s.idle > 0 {
		t := s.nextTask()
		if t == nil {
			return
		}
		config, regenerate, ok := nextUnit(t.left, t.ready())
		if !ok {
			return
		}
		if regenerate {
			row, err := s.buildRow(t.user, config)
			if err != nil {
				s.logger.Error("rebuild configuration buffer",
					"simulation", t.result.ID(),
					"configuration", config,
					"error", err,
				)
				t.result.addError(&SimulationEngineError{ConfigIndex: config, Iteration: t.issued[config], Err: err})
				t.left[config] = 0
				continue
			}
			t.buffers[config] = row
		}

		s.nextID++
		ctx, cancel := context.WithCancel(s.ctx)
		j := job{
			task:      t,
			id:        s.nextID,
			config:    config,
			iteration: t.issued[config],
			seed:      iterationSeed(t.seed, config, t.issued[config]),
			instance:  t.pop(config),
			ctx:       ctx,
		}
		t.inflight[j.id] = cancel
		t.left[config]--
		t.issued[config]++
		s.idle--
		s.jobs <- j
		s.rotate(t)
	}
}

// nextTask returns the first queued task with iterations left.
func (s *Simulator) nextTask() *task {
	for _, t := range s.queue {
		if t.remaining() > 0 {
			return t
		}
	}
	return nil
}

func (s *Simulator) rotate(t *task) {
	for i, queued := range s.queue {
		if queued == t {
			s.queue = append(append(s.queue[:i:i], s.queue[i+1:]...), t)
			return
		}
	}
}

func (s *Simulator) drop(t *task) {
	delete(s.tasks, t.result.ID())
	for i, queued := range s.queue {
		if queued == t {
			s.queue = append(s.queue[:i:i], s.queue[i+1:]...)
			return
		}
	}
}

// retire finishes tasks with nothing left to run or wait for. Notification
// happens off the dispatcher so that listeners may call back into the
// simulator.
func (s *Simulator) retire() {
	for _, t := range append([]*task(nil), s.queue...) {
		if !t.retirable() {
			continue
		}
		s.drop(t)
		s.notifiers.Add(1)
		go func(t *task) {
			defer s.notifiers.Done()
			if !t.result.setStatus(StatusFinished) {
				return
			}
			s.logger.Info("simulation finished",
				"simulation", t.result.ID(),
				"finished", t.result.FinishedIterations(),
				"errors", len(t.result.Errors()),
			)
			s.persist(t.result)
			if t.onFinished != nil {
				t.onFinished(t.result)
			}
		}(t)
	}
}

func (s *Simulator) persist(result *SimulationResult) {
	if s.store == nil {
		return
	}
	record := storage.Stamp(result.Record())
	if err := s.store.SaveSimulation(context.Background(), record); err != nil {
		s.logger.Error("persist simulation", "simulation", result.ID(), "error", err)
	}
}
