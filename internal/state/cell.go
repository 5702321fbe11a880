package state

import (
	"fmt"
	"log/slog"
	"sync"
)

// DefaultNamespace scopes cells defined without a namespace.
const DefaultNamespace = "Global"

// KV is the persistence collaborator. Implementations degrade silently when
// no backing medium is available: Get returns def and Set is a no-op.
type KV interface {
	Get(key string, def any) any
	Set(key string, value any)
}

// Cell is a single named, validated value.
//
// Thread-safety: Cell is safe for concurrent use. Stores additionally
// serialise multi-cell updates.
type Cell struct {
	mu         sync.RWMutex
	name       string
	namespace  string
	value      any
	hasValue   bool
	validators []Validator
	public     bool
	kv         KV
}

// Option configures a cell at definition time.
type Option func(*definition)

// Initializer is a configuration step run against the cell, in order,
// before the initial value is applied.
type Initializer func(c *Cell) error

type definition struct {
	namespace    string
	typeSpec     string
	initial      any
	initializers []Initializer
}

// Namespace sets the persistence scope. Defaults to DefaultNamespace.
func Namespace(ns string) Option {
	return func(d *definition) {
		d.namespace = ns
	}
}

// Type prepends a type check built from a comma-separated spec such as
// "undefined, string".
func Type(spec string) Option {
	return func(d *definition) {
		d.typeSpec = spec
	}
}

// Initial sets the value applied through Set after initializers run, when
// no initializer supplied one.
func Initial(v any) Option {
	return func(d *definition) {
		d.initial = v
	}
}

// With appends raw initializers.
func With(inits ...Initializer) Option {
	return func(d *definition) {
		d.initializers = append(d.initializers, inits...)
	}
}

// Min clamps values below min (or rejects them when strict).
func Min(min float64, strict bool) Option {
	return With(func(c *Cell) error {
		c.validators = append(c.validators, Range(&min, nil, strict))
		return nil
	})
}

// Max clamps values above max (or rejects them when strict).
func Max(max float64, strict bool) Option {
	return With(func(c *Cell) error {
		c.validators = append(c.validators, Range(nil, &max, strict))
		return nil
	})
}

// Bound clamps values into [min, max] in a single step (or rejects them
// when strict).
func Bound(min, max float64, strict bool) Option {
	return With(func(c *Cell) error {
		if min > max {
			return fmt.Errorf("bound %g - %g: min exceeds max", min, max)
		}
		c.validators = append(c.validators, Range(&min, &max, strict))
		return nil
	})
}

// Protect hides the cell from outside readers.
func Protect() Option {
	return With(func(c *Cell) error {
		c.public = false
		c.validators = append(c.validators, Validator{Kind: KindProtect})
		return nil
	})
}

// Persist loads a previously stored value from kv (if any) and writes every
// accepted value through under "namespace:name".
func Persist(kv KV) Option {
	return With(func(c *Cell) error {
		c.loadPersisted(kv)
		c.kv = kv
		c.validators = append(c.validators, Validator{Kind: KindPersist})
		return nil
	})
}

// Define constructs a cell.
func Define(name string, opts ...Option) (*Cell, error) {
	d := &definition{namespace: DefaultNamespace}
	for _, opt := range opts {
		opt(d)
	}

	c := &Cell{
		name:      name,
		namespace: d.namespace,
		public:    true,
	}

	if d.typeSpec != "" {
		tv, err := TypeCheck(d.typeSpec)
		if err != nil {
			return nil, fmt.Errorf("define %s: %w", c.Key(), err)
		}
		c.validators = append(c.validators, tv)
	}

	for _, init := range d.initializers {
		if err := init(c); err != nil {
			return nil, fmt.Errorf("define %s: %w", c.Key(), err)
		}
	}

	if !c.hasValue {
		if _, err := c.Set(d.initial); err != nil {
			return nil, fmt.Errorf("define %s: initial value: %w", c.Key(), err)
		}
	}

	return c, nil
}

// Name returns the cell name.
func (c *Cell) Name() string { return c.name }

// Namespace returns the cell namespace.
func (c *Cell) Namespace() string { return c.namespace }

// Key returns the persistence key "namespace:name".
func (c *Cell) Key() string {
	return c.namespace + ":" + c.name
}

// IsPublic reports whether Get is allowed.
func (c *Cell) IsPublic() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.public
}

// IsPersisted reports whether the cell writes through to a KV backend.
func (c *Cell) IsPersisted() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.kv != nil
}

// Validators returns a copy of the pipeline.
func (c *Cell) Validators() []Validator {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Validator, len(c.validators))
	copy(out, c.validators)
	return out
}

// Set runs value through the pipeline and stores the result.
// Returns whether the stored value changed. On error the previous value is
// kept.
func (c *Cell) Set(value any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	accepted, err := c.validate(value)
	if err != nil {
		return false, err
	}

	changed := !c.hasValue || !Equal(c.value, accepted)
	c.value = Clone(accepted)
	c.hasValue = true

	if c.kv != nil {
		c.kv.Set(c.Key(), c.value)
	}

	return changed, nil
}

// Get returns a deep copy of the value, or *ProtectedAccessError.
func (c *Cell) Get() (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.public {
		return nil, &ProtectedAccessError{Namespace: c.namespace, Name: c.name}
	}
	return Clone(c.value), nil
}

// Peek returns a deep copy of the value regardless of protection.
// Intended for the owning store only.
func (c *Cell) Peek() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Clone(c.value)
}

func (c *Cell) validate(value any) (any, error) {
	for _, v := range c.validators {
		out, err := v.Apply(value)
		if err != nil {
			if ve, ok := err.(*ValidationError); ok {
				ve.Cell = c.Key()
			}
			return nil, err
		}
		value = out
	}
	return value, nil
}

// loadPersisted reads a stored value through the validators installed so
// far. Rejected values are logged and ignored.
func (c *Cell) loadPersisted(kv KV) {
	missing := &struct{}{}
	stored := kv.Get(c.Key(), missing)
	if p, ok := stored.(*struct{}); ok && p == missing {
		return
	}

	value, err := c.validate(stored)
	if err != nil {
		slog.Warn("ignoring persisted value",
			"cell", c.Key(),
			"error", err,
		)
		return
	}
	c.value = Clone(value)
	c.hasValue = true
}
