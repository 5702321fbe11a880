package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Sentinel errors returned by the bus.
var (
	ErrUnknownToken = errors.New("unknown registration token")
	ErrMissingType  = errors.New("payload has no type")
)

// Callback receives every payload dispatched on the bus.
type Callback func(Payload)

// Token identifies a registration and is used to unregister it.
type Token string

// PanicHandler is called when a callback panics during delivery.
type PanicHandler func(p Payload, token Token, panicValue any)

// Option configures a Bus.
type Option func(*Bus)

// WithTokenGenerator overrides the registration token generator.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(b *Bus) {
		b.tokens = g
	}
}

// WithPanicHandler installs a handler for panicking callbacks.
// Without one, panics are logged and swallowed.
func WithPanicHandler(h PanicHandler) Option {
	return func(b *Bus) {
		b.panicHandler = h
	}
}

type registration struct {
	token    Token
	callback Callback
}

// Bus is a synchronous, ordered broadcast bus.
type Bus struct {
	mu           sync.RWMutex
	entries      []registration
	tokens       TokenGenerator
	panicHandler PanicHandler
	hooks        []Callback
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{tokens: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Register adds a callback and returns its token.
func (b *Bus) Register(cb Callback) Token {
	token := Token(b.tokens.Generate())

	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, registration{token: token, callback: cb})
	return token
}

// Unregister removes the registration identified by token.
func (b *Bus) Unregister(token Token) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, e := range b.entries {
		if e.token == token {
			b.entries = append(b.entries[:i:i], b.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("unregister %s: %w", token, ErrUnknownToken)
}

// Observe installs a hook that sees every payload before the registered
// callbacks. Hooks cannot be removed; they are meant for metrics and tracing.
func (b *Bus) Observe(hook Callback) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hooks = append(b.hooks, hook)
}

// Dispatch delivers p to every registered callback in registration order.
func (b *Bus) Dispatch(p Payload) error {
	if p.Type() == "" {
		return ErrMissingType
	}

	// Copy to avoid holding the lock while callbacks run
	b.mu.RLock()
	hooks := make([]Callback, len(b.hooks))
	copy(hooks, b.hooks)
	entries := make([]registration, len(b.entries))
	copy(entries, b.entries)
	b.mu.RUnlock()

	for _, h := range hooks {
		b.deliver(registration{callback: h}, p)
	}

	slog.Debug("dispatch", "type", p.Type(), "listeners", len(entries))
	for _, e := range entries {
		b.deliver(e, p)
	}
	return nil
}

// Len returns the number of registered callbacks.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

func (b *Bus) deliver(e registration, p Payload) {
	defer func() {
		if r := recover(); r != nil {
			if b.panicHandler != nil {
				b.panicHandler(p, e.token, r)
				return
			}
			slog.Error("dispatch callback panicked",
				"type", p.Type(),
				"token", e.token,
				"panic", r,
			)
		}
	}()
	e.callback(p)
}
