package request

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/vuo/internal/dispatch"
	"github.com/roach88/vuo/internal/state"
)

// DefaultTimeout bounds a single transport call.
const DefaultTimeout = 30 * time.Second

// Dispatcher broadcasts payloads.
type Dispatcher interface {
	Dispatch(p dispatch.Payload) error
}

// Scheduler runs completion tasks. dispatch.Loop implements it.
type Scheduler interface {
	Post(t dispatch.Task) bool
}

// Authorizer supplies the current auth token.
type Authorizer interface {
	AuthToken() (string, bool)
}

// Inline runs tasks immediately on the posting goroutine.
type Inline struct{}

// Post runs t and reports success.
func (Inline) Post(t dispatch.Task) bool {
	t()
	return true
}

// Call is what the Transport performs.
type Call struct {
	ID      string
	Method  string
	Path    string
	Args    map[string]any
	Data    any
	Headers map[string]string

	// Progress, when non-nil, receives bytes received and the expected total
	// (-1 if unknown).
	Progress func(done, total int64)
}

// Transport performs calls. Do is called on its own goroutine.
type Transport interface {
	Do(ctx context.Context, call *Call) (any, error)
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithScheduler sets where completions run. Defaults to Inline.
func WithScheduler(s Scheduler) IssuerOption {
	return func(i *Issuer) {
		i.scheduler = s
	}
}

// WithAuthorizer sets the token source for Def.Authorize.
func WithAuthorizer(a Authorizer) IssuerOption {
	return func(i *Issuer) {
		i.auth = a
	}
}

// WithTimeout bounds each transport call.
func WithTimeout(d time.Duration) IssuerOption {
	return func(i *Issuer) {
		i.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) IssuerOption {
	return func(i *Issuer) {
		i.logger = l
	}
}

// Issuer drives the request lifecycle.
//
// Thread-safety: Issuer is safe for concurrent use.
type Issuer struct {
	bus       Dispatcher
	transport Transport
	scheduler Scheduler
	auth      Authorizer
	timeout   time.Duration
	logger    *slog.Logger

	mu      sync.RWMutex
	headers map[string]string

	wg sync.WaitGroup
}

// NewIssuer creates an Issuer broadcasting on bus.
func NewIssuer(bus Dispatcher, transport Transport, opts ...IssuerOption) *Issuer {
	i := &Issuer{
		bus:       bus,
		transport: transport,
		scheduler: Inline{},
		timeout:   DefaultTimeout,
		logger:    slog.Default(),
		headers:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// SetHeaders merges h into the headers sent with every request.
func (i *Issuer) SetHeaders(h map[string]string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for k, v := range h {
		i.headers[k] = v
	}
}

// ResetHeaders clears the global headers.
func (i *Issuer) ResetHeaders() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.headers = make(map[string]string)
}

// Issue validates def, broadcasts requestBegin and starts the call.
// It returns once the call is in flight; the outcome is broadcast later.
func (i *Issuer) Issue(ctx context.Context, def Def) error {
	if def.ID == "" {
		return ErrMissingID
	}
	method, path, err := def.Route()
	if err != nil {
		return err
	}

	call := &Call{
		ID:      def.ID,
		Method:  method,
		Path:    path,
		Args:    def.Args,
		Data:    def.Data,
		Headers: i.callHeaders(&def),
	}
	call.Progress = func(done, total int64) {
		i.schedule(def.ID, func() { i.progress(&def, done, total) })
	}

	i.broadcast(dispatch.Payload{dispatch.KeyType: BeginID.String(), KeyID: def.ID})

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()

		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), i.timeout)
		defer cancel()

		start := time.Now()
		body, err := i.transport.Do(callCtx, call)
		i.logger.Debug("request finished",
			"id", def.ID,
			"method", method,
			"path", path,
			"duration", time.Since(start),
			"error", err,
		)

		if err != nil && !IsRequestError(err) {
			err = &RequestError{Method: method, URL: path, Err: err}
		}
		i.schedule(def.ID, func() { i.complete(&def, body, err) })
	}()

	return nil
}

// Wait blocks until every in-flight transport call has returned and posted
// its completion. With a non-inline Scheduler the completions may still be
// queued.
func (i *Issuer) Wait() {
	i.wg.Wait()
}

func (i *Issuer) callHeaders(def *Def) map[string]string {
	i.mu.RLock()
	h := make(map[string]string, len(i.headers)+len(def.Headers)+1)
	for k, v := range i.headers {
		h[k] = v
	}
	i.mu.RUnlock()

	for k, v := range def.Headers {
		h[k] = v
	}

	if def.Authorize && i.auth != nil {
		if token, ok := i.auth.AuthToken(); ok && token != "" {
			h["Authorization"] = "Bearer " + token
		}
	}
	return h
}

func (i *Issuer) schedule(id string, t dispatch.Task) {
	if !i.scheduler.Post(t) {
		i.logger.Warn("request completion dropped: scheduler stopped", "id", id)
	}
}

func (i *Issuer) progress(def *Def, done, total int64) {
	i.broadcast(dispatch.Payload{
		dispatch.KeyType:  ProgressID.String(),
		KeyID:             def.ID,
		dispatch.KeyValue: done,
		KeyTotal:          total,
	})
	if def.OnProgress != nil {
		def.OnProgress(done, total)
	}
}

func (i *Issuer) complete(def *Def, body any, err error) {
	i.broadcast(dispatch.Payload{dispatch.KeyType: EndID.String(), KeyID: def.ID})

	if err != nil {
		i.broadcast(dispatch.Payload{dispatch.KeyType: ErrorID.String(), KeyID: def.ID, KeyError: err})
		if def.ActionID != "" {
			i.broadcast(dispatch.Payload{
				dispatch.KeyType: def.ActionID.ErrorID().String(),
				KeyID:            def.ID,
				KeyError:         err,
			})
		}
		if def.OnError != nil {
			def.OnError(err)
		}
		return
	}

	if def.OnComplete != nil {
		def.OnComplete(state.Clone(body))
	}
	if def.Dispatch != "" {
		i.broadcast(resultPayload(def.Dispatch.String(), body))
	}
}

// resultPayload merges a map body into the payload or carries any other
// body as "value".
func resultPayload(typ string, body any) dispatch.Payload {
	p := dispatch.Payload{}
	switch b := body.(type) {
	case nil:
	case map[string]any:
		for k, v := range b {
			p[k] = v
		}
	default:
		p[dispatch.KeyValue] = b
	}
	p[dispatch.KeyType] = typ
	return p
}

func (i *Issuer) broadcast(p dispatch.Payload) {
	if err := i.bus.Dispatch(p); err != nil {
		i.logger.Error("lifecycle broadcast failed", "type", p.Type(), "error", fmt.Sprint(err))
	}
}
