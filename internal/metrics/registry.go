package metrics

import (
	"fmt"
	"sync"
)

// Registry maps metric names to metric instances and keeps registration
// order. Reads are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	metrics map[string]Metric
}

func NewRegistry() *Registry {
	return &Registry{metrics: make(map[string]Metric)}
}

// Register adds m under its name. Registering a name again replaces the
// instance but keeps its existing position.
func (r *Registry) Register(m Metric) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := m.Name()
	if _, ok := r.metrics[name]; !ok {
		r.order = append(r.order, name)
	}
	r.metrics[name] = m
}

func (r *Registry) Get(name string) (Metric, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMetricNotFound, name)
	}
	return m, nil
}

// All returns every metric in registration order.
func (r *Registry) All() []Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Metric, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.metrics[name])
	}
	return out
}

// Enabled resolves names in the given order, dropping unknown ones.
func (r *Registry) Enabled(names []string) []Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Metric, 0, len(names))
	for _, name := range names {
		if m, ok := r.metrics[name]; ok {
			out = append(out, m)
		}
	}
	return out
}

func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.metrics[name]
	return ok
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// DefaultSet builds the six built-in metrics over store.
func DefaultSet(store EntryStore, opts ...Option) []Metric {
	return []Metric{
		NewMoodMetric(store, opts...),
		NewScaleMetric(store, opts...),
		NewExerciseMetric(store, opts...),
		NewAloneTimeMetric(store, opts...),
		NewGroceriesMetric(store, opts...),
		NewNotesMetric(store, opts...),
	}
}

// NewRegistryFor registers the built-in metrics named in names, in that
// order. Unknown names are reported as ErrMetricNotFound.
func NewRegistryFor(store EntryStore, names []string, opts ...Option) (*Registry, error) {
	builtin := make(map[string]Metric)
	for _, m := range DefaultSet(store, opts...) {
		builtin[m.Name()] = m
	}

	r := NewRegistry()
	for _, name := range names {
		m, ok := builtin[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMetricNotFound, name)
		}
		r.Register(m)
	}
	return r, nil
}
