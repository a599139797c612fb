package platform

import (
	"context"

	"equilibria/internal/engine"
	"equilibria/internal/sweep"
)

// nextUnit picks the elementary configuration to run next. It prefers the
// earliest configuration with iterations left and a ready instance, and
// otherwise the earliest with iterations left, whose row must then be
// regenerated. ok is false when no iterations are left.
func nextUnit(left, ready []int) (index int, regenerate bool, ok bool) {
	fallback := -1
	for i := range left {
		if left[i] <= 0 {
			continue
		}
		if i < len(ready) && ready[i] > 0 {
			return i, false, true
		}
		if fallback < 0 {
			fallback = i
		}
	}
	if fallback < 0 {
		return 0, false, false
	}
	return fallback, true, true
}

// task is the dispatcher's view of a started simulation. Only the dispatcher
// goroutine touches it after submission.
type task struct {
	result     *SimulationResult
	user       sweep.UserConfiguration
	onFinished func(*SimulationResult)
	seed       uint64
	buffers    [][]engine.Configuration
	left       []int
	issued     []int
	inflight   map[uint64]context.CancelFunc
	dropped    bool
}

func newTask(result *SimulationResult, user sweep.UserConfiguration, buffers [][]engine.Configuration, seed uint64, onFinished func(*SimulationResult)) *task {
	left := make([]int, len(buffers))
	for i := range left {
		left[i] = user.Iterations
	}
	return &task{
		result:     result,
		user:       user,
		onFinished: onFinished,
		seed:       seed,
		buffers:    buffers,
		left:       left,
		issued:     make([]int, len(buffers)),
		inflight:   make(map[uint64]context.CancelFunc),
	}
}

func (t *task) remaining() int {
	total := 0
	for _, n := range t.left {
		total += n
	}
	return total
}

func (t *task) ready() []int {
	out := make([]int, len(t.buffers))
	for i, row := range t.buffers {
		out[i] = len(row)
	}
	return out
}

// retirable reports a task with no iterations left and nothing in flight.
func (t *task) retirable() bool {
	return t.remaining() == 0 && len(t.inflight) == 0
}

func (t *task) pop(config int) engine.Configuration {
	row := t.buffers[config]
	instance := row[len(row)-1]
	t.buffers[config] = row[:len(row)-1]
	return instance
}

func (t *task) push(config int, instance engine.Configuration) {
	t.buffers[config] = append(t.buffers[config], instance)
}

func (t *task) cancelAll() {
	for id, cancel := range t.inflight {
		cancel()
		delete(t.inflight, id)
	}
}

// iterationSeed derives the seed of one iteration from the simulation seed.
// It does not depend on the dispatch order.
func iterationSeed(base uint64, config, iteration int) uint64 {
	return splitmix64(splitmix64(base^(uint64(config)<<32)) + uint64(iteration))
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
