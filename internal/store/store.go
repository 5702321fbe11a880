package store

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/vuo/internal/dispatch"
	"github.com/roach88/vuo/internal/state"
)

// Bus is the subscription half of the dispatch bus.
type Bus interface {
	Register(cb dispatch.Callback) dispatch.Token
	Unregister(token dispatch.Token) error
}

// Status is the lifecycle state of a Store.
type Status int

const (
	StatusActive Status = iota + 1
	StatusUnregistered
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusUnregistered:
		return "unregistered"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Listener handles a dispatched payload whose type matches its action.
// A returned error is logged; it never stops other listeners.
type Listener func(s *Store, p dispatch.Payload) error

// ListenerID identifies a registration for removal.
type ListenerID uint64

type actionListener struct {
	id     ListenerID
	action string
	fn     Listener
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for listener failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// Store is a named aggregate of state cells.
//
// Thread-safety: Store is safe for concurrent use, but the intended model is
// a single writer driven by the dispatch bus.
type Store struct {
	mu        sync.Mutex
	name      string
	bus       Bus
	token     dispatch.Token
	status    Status
	logger    *slog.Logger
	cells     map[string]*state.Cell
	listeners []actionListener
	events    map[string][]eventListener
	getters   map[string]Derived
	lastID    ListenerID
}

// New creates a store and subscribes it to bus.
func New(bus Bus, name string, opts ...Option) *Store {
	s := &Store{
		name:    name,
		bus:     bus,
		logger:  slog.Default(),
		cells:   make(map[string]*state.Cell),
		events:  make(map[string][]eventListener),
		getters: make(map[string]Derived),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.token = bus.Register(s.handle)
	s.status = StatusActive
	return s
}

// Name returns the store name.
func (s *Store) Name() string { return s.name }

// Status returns the lifecycle state.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// AddState defines a cell owned by this store. The cell namespace defaults
// to the store name.
func (s *Store) AddState(name string, opts ...state.Option) error {
	opts = append([]state.Option{state.Namespace(s.name)}, opts...)
	c, err := state.Define(name, opts...)
	if err != nil {
		return fmt.Errorf("store %s: %w", s.name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.cells[name]; exists {
		return fmt.Errorf("store %s: state %q already declared", s.name, name)
	}
	s.cells[name] = c
	return nil
}

// Names returns the declared cell names, sorted.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.cells))
	for n := range s.cells {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Get returns a copy of one cell's value.
func (s *Store) Get(name string) (any, error) {
	s.mu.Lock()
	c, ok := s.cells[name]
	s.mu.Unlock()

	if !ok {
		return nil, &UndeclaredStateError{Store: s.name, Name: name}
	}
	return c.Get()
}

// GetState returns a copy of every public cell. Protected cells are omitted.
func (s *Store) GetState() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]any, len(s.cells))
	for name, c := range s.cells {
		v, err := c.Get()
		if err != nil {
			continue
		}
		out[name] = v
	}
	return out
}

// SetState applies patch to the named cells in key order and emits one
// change event carrying the public cells that changed. Protected cells are
// updated but never announced; nothing is emitted when no public value
// changed.
//
// Unknown keys fail with *UndeclaredStateError before any cell is touched.
// A validation failure stops the patch; cells already updated by it are
// still announced.
func (s *Store) SetState(patch map[string]any) error {
	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s.mu.Lock()
	for _, k := range keys {
		if _, ok := s.cells[k]; !ok {
			s.mu.Unlock()
			return &UndeclaredStateError{Store: s.name, Name: k}
		}
	}

	changes := make(map[string]any)
	var setErr error
	for _, k := range keys {
		c := s.cells[k]
		changed, err := c.Set(patch[k])
		if err != nil {
			setErr = err
			break
		}
		if !changed {
			continue
		}
		v, err := c.Get()
		if err != nil {
			// Protected cells change silently
			continue
		}
		changes[k] = v
	}
	s.mu.Unlock()

	if len(changes) > 0 {
		s.Emit(EventChange, changes)
	}
	return setErr
}

// On registers fn for payloads whose type equals action's string form.
// Listeners for the same action run in registration order.
func (s *Store) On(action fmt.Stringer, fn Listener) ListenerID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID()
	s.listeners = append(s.listeners, actionListener{id: id, action: action.String(), fn: fn})
	return id
}

// Bind maps the "value" field of matching payloads into the named cell.
func (s *Store) Bind(action fmt.Stringer, cell string) ListenerID {
	return s.On(action, func(s *Store, p dispatch.Payload) error {
		return s.SetState(map[string]any{cell: p.Value()})
	})
}

// RemoveListener removes an action listener.
func (s *Store) RemoveListener(id ListenerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, l := range s.listeners {
		if l.id == id {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("store %s: remove listener %d: %w", s.name, id, ErrListenerNotFound)
}

// Unregister removes the store's bus subscription. Listeners stop firing.
func (s *Store) Unregister() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusUnregistered {
		return fmt.Errorf("store %s: %w", s.name, ErrUnregistered)
	}
	if err := s.bus.Unregister(s.token); err != nil {
		return fmt.Errorf("store %s: %w", s.name, err)
	}
	s.status = StatusUnregistered
	return nil
}

// handle is the bus callback.
func (s *Store) handle(p dispatch.Payload) {
	action := p.Type()

	s.mu.Lock()
	var matched []actionListener
	for _, l := range s.listeners {
		if l.action == action {
			matched = append(matched, l)
		}
	}
	s.mu.Unlock()

	for _, l := range matched {
		s.runListener(l, p)
	}
}

func (s *Store) runListener(l actionListener, p dispatch.Payload) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("store listener panicked",
				slog.String("store", s.name),
				slog.String("action", l.action),
				slog.Any("panic", r),
			)
		}
	}()

	if err := l.fn(s, p); err != nil {
		s.logger.Error("store listener failed",
			slog.String("store", s.name),
			slog.String("action", l.action),
			slog.Any("error", err),
		)
	}
}

// nextID must be called with s.mu held.
func (s *Store) nextID() ListenerID {
	s.lastID++
	return s.lastID
}
