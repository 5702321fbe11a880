package store

import (
	"fmt"

	"github.com/roach88/vuo/internal/state"
)

// Derived computes a value from the store's internal state.
type Derived func(v View, args ...any) (any, error)

// View is the read-only state handed to derived getters. It includes
// protected cells.
type View struct {
	namespace string
	values    map[string]any
}

// Namespace returns the owning store's name.
func (v View) Namespace() string { return v.namespace }

// Get returns the current value of a cell, or nil if undeclared.
func (v View) Get(name string) any { return v.values[name] }

// State returns every cell value.
func (v View) State() map[string]any { return v.values }

// Declare publishes a derived getter under name, replacing any previous one.
func (s *Store) Declare(name string, fn Derived) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getters[name] = fn
}

// Derive invokes the getter published under name and returns a deep copy of
// its result.
func (s *Store) Derive(name string, args ...any) (any, error) {
	s.mu.Lock()
	fn, ok := s.getters[name]
	values := make(map[string]any, len(s.cells))
	for n, c := range s.cells {
		values[n] = c.Peek()
	}
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("derive %s.%s: %w", s.name, name, ErrUnknownGetter)
	}

	out, err := fn(View{namespace: s.name, values: values}, args...)
	if err != nil {
		return nil, fmt.Errorf("derive %s.%s: %w", s.name, name, err)
	}
	return state.Clone(out), nil
}
