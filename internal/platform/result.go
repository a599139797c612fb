package platform

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"equilibria/internal/engine"
	"equilibria/internal/model"
	"equilibria/internal/stats"
)

type Status int

const (
	StatusQueued Status = iota
	StatusRunning
	StatusFinished
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "QUEUED"
	case StatusRunning:
		return "RUNNING"
	case StatusFinished:
		return "FINISHED"
	case StatusCanceled:
		return "CANCELED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusCanceled
}

// SimulationEngineError reports an iteration that failed or panicked. The
// iteration contributes no result and is not retried.
type SimulationEngineError struct {
	ConfigIndex int
	Iteration   int
	Err         error
}

func (e *SimulationEngineError) Error() string {
	return fmt.Sprintf("configuration %d iteration %d: %v", e.ConfigIndex, e.Iteration, e.Err)
}

func (e *SimulationEngineError) Unwrap() error {
	return e.Err
}

type (
	IterationFinishedFunc func(r *SimulationResult, config int, result engine.IterationResult)
	ExceptionFunc         func(r *SimulationResult, err *SimulationEngineError)
	StatusChangedFunc     func(r *SimulationResult, from, to Status)
)

// SimulationResult aggregates the iterations of one started simulation. It
// is safe for concurrent use. Listeners run on the goroutine that caused the
// event, outside the result's lock, and are dropped once the simulation
// reaches a terminal status.
type SimulationResult struct {
	id        string
	name      string
	parameter string
	labels    []string
	values    []float64
	perConfig int
	createdAt time.Time
	done      chan struct{}

	mu          sync.Mutex
	status      Status
	finishedAt  time.Time
	results     [][]engine.IterationResult
	finished    int
	errors      []*SimulationEngineError
	onIteration []IterationFinishedFunc
	onException []ExceptionFunc
	onStatus    []StatusChangedFunc
}

func newSimulationResult(id, name, parameter string, labels []string, values []float64, perConfig int) *SimulationResult {
	return &SimulationResult{
		id:        id,
		name:      name,
		parameter: parameter,
		labels:    labels,
		values:    values,
		perConfig: perConfig,
		createdAt: time.Now().UTC(),
		done:      make(chan struct{}),
		status:    StatusQueued,
		results:   make([][]engine.IterationResult, len(labels)),
	}
}

func (r *SimulationResult) ID() string           { return r.id }
func (r *SimulationResult) Name() string         { return r.name }
func (r *SimulationResult) Parameter() string    { return r.parameter }
func (r *SimulationResult) CreatedAt() time.Time { return r.createdAt }

// Configurations is the number of elementary configurations.
func (r *SimulationResult) Configurations() int { return len(r.labels) }

func (r *SimulationResult) Label(i int) string { return r.labels[i] }

// Value is the swept parameter value of configuration i.
func (r *SimulationResult) Value(i int) float64 { return r.values[i] }

// Done is closed when the simulation finishes or is canceled.
func (r *SimulationResult) Done() <-chan struct{} { return r.done }

func (r *SimulationResult) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *SimulationResult) FinishedIterations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished
}

func (r *SimulationResult) TotalIterations() int {
	return r.perConfig * len(r.labels)
}

// IterationResults returns the finished iterations of configuration i ordered
// by ascending efficiency.
func (r *SimulationResult) IterationResults(i int) []engine.IterationResult {
	r.mu.Lock()
	out := append([]engine.IterationResult(nil), r.results[i]...)
	r.mu.Unlock()

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Efficiency < out[b].Efficiency
	})
	return out
}

func (r *SimulationResult) Errors() []*SimulationEngineError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*SimulationEngineError(nil), r.errors...)
}

func (r *SimulationResult) RegisterIterationFinished(fn IterationFinishedFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn != nil && !r.status.Terminal() {
		r.onIteration = append(r.onIteration, fn)
	}
}

func (r *SimulationResult) RegisterExceptionHandler(fn ExceptionFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn != nil && !r.status.Terminal() {
		r.onException = append(r.onException, fn)
	}
}

func (r *SimulationResult) RegisterStatusChangedHandler(fn StatusChangedFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn != nil && !r.status.Terminal() {
		r.onStatus = append(r.onStatus, fn)
	}
}

// addIterationResult records a finished iteration. Results arriving after a
// terminal status are dropped, and delivery stops at the first listener that
// would run after one. A listener already running when the simulation is
// stopped may return after Stop does.
func (r *SimulationResult) addIterationResult(config int, result engine.IterationResult) bool {
	r.mu.Lock()
	if r.status.Terminal() {
		r.mu.Unlock()
		return false
	}
	r.results[config] = append(r.results[config], result)
	r.finished++
	listeners := append([]IterationFinishedFunc(nil), r.onIteration...)
	r.mu.Unlock()

	for _, fn := range listeners {
		if r.Status().Terminal() {
			break
		}
		fn(r, config, result)
	}
	return true
}

func (r *SimulationResult) addError(err *SimulationEngineError) bool {
	r.mu.Lock()
	if r.status.Terminal() {
		r.mu.Unlock()
		return false
	}
	r.errors = append(r.errors, err)
	listeners := append([]ExceptionFunc(nil), r.onException...)
	r.mu.Unlock()

	for _, fn := range listeners {
		if r.Status().Terminal() {
			break
		}
		fn(r, err)
	}
	return true
}

// setStatus moves the simulation forward. Terminal statuses are final and
// running only follows queued.
func (r *SimulationResult) setStatus(to Status) bool {
	r.mu.Lock()
	from := r.status
	if from.Terminal() || to <= from {
		r.mu.Unlock()
		return false
	}
	r.status = to
	listeners := append([]StatusChangedFunc(nil), r.onStatus...)
	if to.Terminal() {
		r.finishedAt = time.Now().UTC()
		r.onIteration = nil
		r.onException = nil
		r.onStatus = nil
	}
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(r, from, to)
	}
	if to.Terminal() {
		close(r.done)
	}
	return true
}

// Record summarizes the simulation for persistence.
func (r *SimulationResult) Record() model.SimulationRecord {
	record := model.SimulationRecord{
		ID:           r.id,
		Name:         r.name,
		Parameter:    r.parameter,
		CreatedAtUTC: r.createdAt.Format(model.TimeLayout),
		Iterations:   r.TotalIterations(),
	}

	r.mu.Lock()
	record.Status = r.status.String()
	record.Finished = r.finished
	if !r.finishedAt.IsZero() {
		record.FinishedAtUTC = r.finishedAt.Format(model.TimeLayout)
	}
	for _, err := range r.errors {
		record.Errors = append(record.Errors, err.Error())
	}
	results := make([][]engine.IterationResult, len(r.results))
	for i := range r.results {
		results[i] = append([]engine.IterationResult(nil), r.results[i]...)
	}
	r.mu.Unlock()

	record.Configurations = make([]model.ConfigurationSummary, len(results))
	for i := range results {
		record.Configurations[i] = stats.Summarize(r.labels[i], r.values[i], results[i])
	}
	return record
}
