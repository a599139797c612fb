package registry

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

var (
	ErrExists        = errors.New("plugin already registered")
	ErrNotFound      = errors.New("plugin not found")
	ErrInvalidParams = errors.New("invalid plugin parameters")
)

// Params are the numeric settings of one plugin instance.
type Params map[string]float64

func (p Params) Float(name string, fallback float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return fallback
}

// Int reads an integral parameter. Non-integral values are rejected.
func (p Params) Int(name string, fallback int) (int, error) {
	v, ok := p[name]
	if !ok {
		return fallback, nil
	}
	if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: %s must be an integer, got %g", ErrInvalidParams, name, v)
	}
	return int(v), nil
}

// Require reads a mandatory parameter.
func (p Params) Require(name string) (float64, error) {
	v, ok := p[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidParams, name)
	}
	return v, nil
}

// Check rejects parameters outside allowed.
func (p Params) Check(allowed ...string) error {
	known := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		known[name] = struct{}{}
	}
	var unknown []string
	for name := range p {
		if _, ok := known[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: unknown %v", ErrInvalidParams, unknown)
	}
	return nil
}

func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Factory builds a fresh plugin instance.
type Factory[T any] func(params Params) (T, error)

// Family is a named set of factories for one plugin kind.
type Family[T any] struct {
	kind string

	mu sync.RWMutex
	m  map[string]Factory[T]
}

func NewFamily[T any](kind string) *Family[T] {
	return &Family[T]{kind: kind, m: make(map[string]Factory[T])}
}

func (f *Family[T]) Kind() string {
	return f.kind
}

func (f *Family[T]) Register(name string, factory Factory[T]) error {
	if name == "" {
		return fmt.Errorf("%s name is required", f.kind)
	}
	if factory == nil {
		return fmt.Errorf("%s factory is required", f.kind)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.m[name]; exists {
		return fmt.Errorf("%w: %s %s", ErrExists, f.kind, name)
	}
	f.m[name] = factory
	return nil
}

// Resolve builds a new instance of the named plugin.
func (f *Family[T]) Resolve(name string, params Params) (T, error) {
	f.mu.RLock()
	factory, ok := f.m[name]
	f.mu.RUnlock()

	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s %q", ErrNotFound, f.kind, name)
	}
	out, err := factory(params)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s %s: %w", f.kind, name, err)
	}
	return out, nil
}

func (f *Family[T]) Has(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.m[name]
	return ok
}

func (f *Family[T]) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.m))
	for name := range f.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
