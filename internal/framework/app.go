package framework

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/vuo/internal/actions"
	"github.com/roach88/vuo/internal/dispatch"
	"github.com/roach88/vuo/internal/ident"
	"github.com/roach88/vuo/internal/persist"
	"github.com/roach88/vuo/internal/request"
	"github.com/roach88/vuo/internal/store"
)

// AppConfig wires an App. Zero values select in-memory defaults.
type AppConfig struct {
	// BaseURL prefixes relative request paths.
	BaseURL string

	// AuthToken seeds the Session store.
	AuthToken string

	// Timeout bounds each transport call.
	Timeout time.Duration

	// Backend stores persisted cells. Defaults to memory.
	Backend persist.Backend

	// Transport overrides the HTTP transport.
	Transport request.Transport

	// Sequence overrides the correlation sequence. Defaults to ident.Default.
	Sequence *ident.Sequence

	// Tokens overrides bus registration tokens.
	Tokens dispatch.TokenGenerator

	// Observe is installed as a bus hook when non-nil.
	Observe dispatch.Callback

	Logger *slog.Logger
}

// App is a fully wired runtime: one bus, one task loop, the built-in group
// and stores, and a request issuer whose completions run on the loop.
type App struct {
	Bus       *dispatch.Bus
	Loop      *dispatch.Loop
	KV        *persist.KV
	Issuer    *request.Issuer
	Sequence  *ident.Sequence
	Lifecycle *Lifecycle
	Session   *Session
	Pending   *Pending

	logger *slog.Logger
}

// NewApp wires an App from cfg.
func NewApp(cfg AppConfig) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	seq := cfg.Sequence
	if seq == nil {
		seq = ident.Default
	}
	backend := cfg.Backend
	if backend == nil {
		backend = persist.NewMemory()
	}
	transport := cfg.Transport
	if transport == nil {
		transport = request.NewHTTPTransport(cfg.BaseURL)
	}

	var busOpts []dispatch.Option
	if cfg.Tokens != nil {
		busOpts = append(busOpts, dispatch.WithTokenGenerator(cfg.Tokens))
	}

	a := &App{
		Bus:      dispatch.New(busOpts...),
		Loop:     dispatch.NewLoop(),
		KV:       persist.NewKV(backend, persist.WithLogger(logger)),
		Sequence: seq,
		logger:   logger,
	}
	if cfg.Observe != nil {
		a.Bus.Observe(cfg.Observe)
	}

	var err error
	a.Session, err = NewSession(a.Bus, a.KV, store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	a.Pending, err = NewPending(a.Bus, store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("pending store: %w", err)
	}

	issuerOpts := []request.IssuerOption{
		request.WithScheduler(a.Loop),
		request.WithAuthorizer(a.Session),
		request.WithLogger(logger),
	}
	if cfg.Timeout > 0 {
		issuerOpts = append(issuerOpts, request.WithTimeout(cfg.Timeout))
	}
	a.Issuer = request.NewIssuer(a.Bus, transport, issuerOpts...)

	a.Lifecycle = NewLifecycle(actions.WithBus(a.Bus), actions.WithSequence(seq), actions.WithRequester(a.Issuer))

	if cfg.AuthToken != "" {
		if err := a.Lifecycle.SetAuthToken.Call(cfg.AuthToken); err != nil {
			return nil, fmt.Errorf("seed auth token: %w", err)
		}
	}
	return a, nil
}

// Group creates an action group wired to the app.
func (a *App) Group(name string) *actions.Group {
	return actions.NewGroup(name,
		actions.WithBus(a.Bus),
		actions.WithSequence(a.Sequence),
		actions.WithRequester(a.Issuer),
	)
}

// Store creates a store subscribed to the app bus.
func (a *App) Store(name string) *store.Store {
	return store.New(a.Bus, name, store.WithLogger(a.logger))
}

// Run executes loop tasks until ctx is cancelled or Stop is called.
func (a *App) Run(ctx context.Context) error {
	err := a.Loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Settle waits for in-flight requests and runs their completions on the
// calling goroutine. Intended for tools and tests that do not call Run.
func (a *App) Settle() int {
	n := 0
	for {
		a.Issuer.Wait()
		ran := a.Loop.Drain()
		n += ran
		if ran == 0 && a.Loop.Len() == 0 {
			return n
		}
	}
}

// Stop stops the loop.
func (a *App) Stop() {
	a.Loop.Stop()
}

// Close stops the loop and closes persistence.
func (a *App) Close() error {
	a.Loop.Stop()
	return a.KV.Close()
}
