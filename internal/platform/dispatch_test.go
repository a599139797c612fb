package platform

import (
	"context"
	"testing"

	"equilibria/internal/engine"
	"equilibria/internal/logging"
	"equilibria/internal/sweep"
)

func TestNextUnit(t *testing.T) {
	cases := []struct {
		name       string
		left       []int
		ready      []int
		index      int
		regenerate bool
		ok         bool
	}{
		{name: "earliest ready", left: []int{3, 3}, ready: []int{2, 2}, index: 0, ok: true},
		{name: "skip exhausted", left: []int{0, 3}, ready: []int{2, 2}, index: 1, ok: true},
		{name: "skip empty buffer", left: []int{3, 3}, ready: []int{0, 1}, index: 1, ok: true},
		{name: "regenerate earliest", left: []int{0, 2, 1}, ready: []int{4, 0, 0}, index: 1, regenerate: true, ok: true},
		{name: "nothing left", left: []int{0, 0}, ready: []int{1, 1}, ok: false},
	}
	for _, tc := range cases {
		index, regenerate, ok := nextUnit(tc.left, tc.ready)
		if ok != tc.ok || (ok && (index != tc.index || regenerate != tc.regenerate)) {
			t.Fatalf("%s: got (%d,%t,%t), want (%d,%t,%t)", tc.name, index, regenerate, ok, tc.index, tc.regenerate, tc.ok)
		}
	}
}

func TestIterationSeedsAreDistinct(t *testing.T) {
	seen := map[uint64]bool{}
	for config := 0; config < 4; config++ {
		for iteration := 0; iteration < 64; iteration++ {
			seed := iterationSeed(42, config, iteration)
			if seen[seed] {
				t.Fatalf("duplicate seed for configuration %d iteration %d", config, iteration)
			}
			seen[seed] = true
		}
	}
	if iterationSeed(42, 1, 3) != iterationSeed(42, 1, 3) {
		t.Fatal("seed derivation must be deterministic")
	}
}

func bufferedTask(id string, configs, instances, iterations int) *task {
	buffers := make([][]engine.Configuration, configs)
	for i := range buffers {
		for j := 0; j < instances; j++ {
			buffers[i] = append(buffers[i], engine.Configuration{Label: id})
		}
	}
	labels := make([]string, configs)
	values := make([]float64, configs)
	result := newSimulationResult(id, id, "", labels, values, iterations)
	return newTask(result, sweep.UserConfiguration{Iterations: iterations}, buffers, 1, nil)
}

func TestSubmitRotatesAcrossTasks(t *testing.T) {
	s := &Simulator{
		ctx:   context.Background(),
		jobs:  make(chan job, 4),
		tasks: map[string]*task{},
		idle:  4,
	}
	first := bufferedTask("a", 1, 4, 10)
	second := bufferedTask("b", 1, 4, 10)
	s.handle(command{start: first})
	s.handle(command{start: second})

	s.submit()
	close(s.jobs)
	var order []string
	for j := range s.jobs {
		order = append(order, j.task.result.ID())
	}
	want := []string{"a", "b", "a", "b"}
	if len(order) != len(want) {
		t.Fatalf("expected %d jobs, got %v", len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected round robin %v, got %v", want, order)
		}
	}
	if first.left[0] != 8 || len(first.inflight) != 2 || s.idle != 0 {
		t.Fatalf("unexpected bookkeeping left=%d inflight=%d idle=%d", first.left[0], len(first.inflight), s.idle)
	}
}

func TestCompleteReturnsInstanceToBuffer(t *testing.T) {
	s := &Simulator{
		ctx:   context.Background(),
		jobs:  make(chan job, 1),
		tasks: map[string]*task{},
		idle:  1,
	}
	tk := bufferedTask("a", 2, 1, 1)
	s.handle(command{start: tk})
	s.submit()
	j := <-s.jobs
	if tk.ready()[j.config] != 0 {
		t.Fatal("instance must leave the buffer while in flight")
	}
	s.complete(completion{job: j})
	if tk.ready()[j.config] != 1 || s.idle != 1 || len(tk.inflight) != 0 {
		t.Fatalf("unexpected state after completion ready=%v idle=%d", tk.ready(), s.idle)
	}

	s.submit()
	failed := <-s.jobs
	s.complete(completion{job: failed, err: context.DeadlineExceeded})
	if tk.ready()[failed.config] != 0 {
		t.Fatal("failed instance must be abandoned")
	}
	if !tk.retirable() {
		t.Fatal("task with no work left must be retirable")
	}
}

func TestStopLeavesRetiredTaskToFinish(t *testing.T) {
	s := &Simulator{
		ctx:         context.Background(),
		jobs:        make(chan job, 1),
		commands:    make(chan command),
		dispatched:  make(chan struct{}),
		tasks:       map[string]*task{},
		simulations: map[string]*SimulationResult{},
		logger:      logging.Discard(),
		idle:        1,
	}
	tk := bufferedTask("a", 1, 1, 1)
	s.simulations["a"] = tk.result
	s.handle(command{start: tk})
	s.submit()
	j := <-s.jobs
	tk.result.addIterationResult(j.config, engine.IterationResult{})
	s.complete(completion{job: j})
	if !tk.retirable() {
		t.Fatal("expected a retirable task")
	}
	// Retired but not yet notified.
	s.drop(tk)

	go func() {
		s.handle(<-s.commands)
	}()
	if s.Stop("a") {
		t.Fatal("stop must not cancel a retired simulation")
	}
	if tk.result.Status().Terminal() {
		t.Fatalf("expected the notifier to own the terminal status, got %s", tk.result.Status())
	}
	if !tk.result.setStatus(StatusFinished) {
		t.Fatal("expected FINISHED transition after the refused stop")
	}
}
