package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/vuo/internal/dispatch"
	"github.com/roach88/vuo/internal/framework"
	"github.com/roach88/vuo/internal/ident"
	"github.com/roach88/vuo/internal/persist"
	"github.com/roach88/vuo/internal/request"
	"github.com/roach88/vuo/internal/state"
	"github.com/roach88/vuo/internal/store"
	"github.com/roach88/vuo/internal/testutil"
)

// Harness executes one scenario against a private App.
type Harness struct {
	app    *framework.App
	seq    *ident.Sequence
	stores map[string]*store.Store
	order  []string
	logger *slog.Logger

	// changes collects change events of the running step, per store.
	changes map[string]map[string]any
}

// Option configures a run.
type Option func(*config)

type config struct {
	logger  *slog.Logger
	backend persist.Backend
}

// WithLogger routes runtime logs to l. Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithBackend persists cells to b instead of a fresh in-memory backend.
// The backend is not closed by Run.
func WithBackend(b persist.Backend) Option {
	return func(c *config) {
		c.backend = b
	}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Build a fresh App with deterministic tokens and sequence
//  2. Seed persisted values and create the declared stores
//  3. Execute steps, settling requests after each one
//  4. Evaluate assertions against the trace and final state
//
// An error is returned only when the scenario cannot be set up; failed
// expectations are reported through Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := config{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}
	backend := cfg.backend
	if backend == nil {
		backend = persist.NewMemory()
	}

	transport := testutil.NewStubTransport()
	for _, r := range scenario.Responses {
		transport.On(r.method(), r.Path, testutil.Response{Status: r.Status, Body: r.Body})
	}

	result := NewResult()
	seq := ident.NewSequence()
	app, err := framework.NewApp(framework.AppConfig{
		AuthToken: scenario.AuthToken,
		Backend:   backend,
		Transport: transport,
		Sequence:  seq,
		Tokens:    testutil.NewSequentialTokenGenerator("token"),
		Observe:   result.AddDispatchTrace,
		Logger:    cfg.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build runtime: %w", err)
	}
	defer app.Stop()

	h := &Harness{
		app:    app,
		seq:    seq,
		stores: make(map[string]*store.Store),
		logger: cfg.logger,
	}
	h.stores[framework.SessionStore] = app.Session.Store
	h.stores[framework.PendingStore] = app.Pending.Store

	for key, value := range scenario.Persisted {
		app.KV.Set(key, value)
	}

	for _, def := range scenario.Stores {
		if err := h.addStore(def, result); err != nil {
			return nil, err
		}
	}

	h.executeSteps(scenario.Steps, result)

	for name, st := range h.stores {
		result.State[name] = st.GetState()
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) addStore(def StoreDef, result *Result) error {
	st := h.app.Store(def.Name)
	for _, c := range def.Cells {
		if err := st.AddState(c.Name, h.cellOptions(c)...); err != nil {
			return fmt.Errorf("failed to declare cell: %w", err)
		}
	}
	for _, b := range def.Bindings {
		st.Bind(ident.ActionID(b.Action), b.Cell)
	}

	name := def.Name
	st.OnChange(func(changes map[string]any) {
		result.AddChangeTrace(name, changes)
		if h.changes == nil {
			return
		}
		merged := h.changes[name]
		if merged == nil {
			merged = make(map[string]any)
			h.changes[name] = merged
		}
		for k, v := range changes {
			merged[k] = v
		}
	})

	h.stores[name] = st
	h.order = append(h.order, name)
	return nil
}

func (h *Harness) cellOptions(c CellDef) []state.Option {
	var opts []state.Option
	if c.Type != "" {
		opts = append(opts, state.Type(c.Type))
	}
	if c.Initial != nil {
		opts = append(opts, state.Initial(c.Initial))
	}
	switch {
	case c.Min != nil && c.Max != nil:
		opts = append(opts, state.Bound(*c.Min, *c.Max, c.Strict))
	case c.Min != nil:
		opts = append(opts, state.Min(*c.Min, c.Strict))
	case c.Max != nil:
		opts = append(opts, state.Max(*c.Max, c.Strict))
	}
	if c.Protect {
		opts = append(opts, state.Protect())
	}
	if c.Persist {
		opts = append(opts, state.Persist(h.app.KV))
	}
	return opts
}

// executeSteps runs all steps and checks their expectations.
func (h *Harness) executeSteps(steps []Step, result *Result) {
	for i, step := range steps {
		h.changes = make(map[string]map[string]any)

		err := h.executeStep(step)
		h.app.Settle()

		if err != nil {
			result.AddErrorTrace(i, err)
		}
		h.checkError(i, step, err, result)
		h.checkChanges(i, step, result)

		h.logger.Info("step completed",
			"step", i,
			"error", err,
			"changed_stores", len(h.changes),
		)
	}
	h.changes = nil
}

func (h *Harness) executeStep(step Step) error {
	switch {
	case step.Dispatch != nil:
		return h.app.Bus.Dispatch(dispatch.Payload(step.Dispatch).Clone())
	case step.SetState != nil:
		st, ok := h.stores[step.SetState.Store]
		if !ok {
			return fmt.Errorf("unknown store %q", step.SetState.Store)
		}
		return st.SetState(step.SetState.Values)
	case step.Request != nil:
		return h.app.Issuer.Issue(context.Background(), h.requestDef(step.Request))
	default:
		return fmt.Errorf("empty step")
	}
}

func (h *Harness) requestDef(r *RequestStep) request.Def {
	action := ident.ActionID(r.Action)
	def := request.Def{
		Get:       r.Get,
		Post:      r.Post,
		Put:       r.Put,
		Del:       r.Del,
		Data:      r.Data,
		Args:      r.Args,
		Authorize: r.Authorize,
		ID:        ident.RequestID(h.seq, r.Action),
		ActionID:  action,
		Dispatch:  action,
	}
	if r.Dispatch != "" {
		def.Dispatch = ident.ActionID(r.Dispatch)
	}
	return def
}

func (h *Harness) checkError(i int, step Step, err error, result *Result) {
	switch {
	case step.ExpectError == "" && err != nil:
		result.AddError(fmt.Sprintf("steps[%d]: unexpected error: %v", i, err))
	case step.ExpectError != "" && err == nil:
		result.AddError(fmt.Sprintf("steps[%d]: expected error containing %q, got none", i, step.ExpectError))
	case step.ExpectError != "" && !strings.Contains(err.Error(), step.ExpectError):
		result.AddError(fmt.Sprintf("steps[%d]: expected error containing %q, got %q", i, step.ExpectError, err))
	}
}

func (h *Harness) checkChanges(i int, step Step, result *Result) {
	if step.ExpectChange == nil {
		return
	}
	for _, name := range h.order {
		want, expected := step.ExpectChange[name]
		got, changed := h.changes[name]
		switch {
		case !expected && changed:
			result.AddError(fmt.Sprintf("steps[%d]: store %s changed unexpectedly: %v", i, name, got))
		case expected && !changed:
			result.AddError(fmt.Sprintf("steps[%d]: store %s did not change, want %v", i, name, want))
		case expected && !state.Equal(want, got):
			result.AddError(fmt.Sprintf("steps[%d]: store %s changed %v, want %v", i, name, got, want))
		}
	}
	for name := range step.ExpectChange {
		if !slices.Contains(h.order, name) {
			result.AddError(fmt.Sprintf("steps[%d]: expect_change references undeclared store %q", i, name))
		}
	}
}
