package harness

import (
	"sync"

	"github.com/roach88/vuo/internal/dispatch"
)

// Trace event kinds.
const (
	KindDispatch = "dispatch"
	KindChange   = "change"
	KindError    = "error"
)

// TraceEvent is one entry of a run trace.
type TraceEvent struct {
	Seq  int64  `json:"seq"`
	Kind string `json:"kind"`

	// Type is the payload type (dispatch events only).
	Type string `json:"type,omitempty"`

	// Store is the emitting store (change events only).
	Store string `json:"store,omitempty"`

	// Step is the 0-based step index (error events only).
	Step *int `json:"step,omitempty"`

	// Data holds payload fields without "type", the changed cells, or the
	// error message.
	Data any `json:"data,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains dispatches, changes and step errors in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State holds the final public state of every store, keyed by store name.
	State map[string]map[string]any `json:"state,omitempty"`

	mu  sync.Mutex
	seq int64
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]map[string]any),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// AddDispatchTrace records a dispatched payload.
func (r *Result) AddDispatchTrace(p dispatch.Payload) {
	fields := make(map[string]any, len(p))
	for k, v := range p {
		if k != dispatch.KeyType {
			fields[k] = traceValue(v)
		}
	}
	r.add(TraceEvent{Kind: KindDispatch, Type: p.Type(), Data: nonEmpty(fields)})
}

// AddChangeTrace records a store change event.
func (r *Result) AddChangeTrace(store string, changes map[string]any) {
	r.add(TraceEvent{Kind: KindChange, Store: store, Data: traceValue(changes)})
}

// AddErrorTrace records an error returned by a step.
func (r *Result) AddErrorTrace(step int, err error) {
	r.add(TraceEvent{Kind: KindError, Step: &step, Data: err.Error()})
}

// Dispatches returns the dispatch events of the trace.
func (r *Result) Dispatches() []TraceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []TraceEvent
	for _, e := range r.Trace {
		if e.Kind == KindDispatch {
			out = append(out, e)
		}
	}
	return out
}

func (r *Result) add(e TraceEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	e.Seq = r.seq
	r.Trace = append(r.Trace, e)
}

// traceValue converts v into plain JSON-friendly data. Errors become their
// message.
func traceValue(v any) any {
	switch t := v.(type) {
	case error:
		return t.Error()
	case dispatch.Payload:
		return traceValue(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = traceValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = traceValue(e)
		}
		return out
	default:
		return v
	}
}

func nonEmpty(m map[string]any) any {
	if len(m) == 0 {
		return nil
	}
	return m
}
