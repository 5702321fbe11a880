package testutil

import (
	"sync"

	"github.com/roach88/vuo/internal/dispatch"
)

// Recorder captures every payload delivered to it.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Recorder struct {
	mu       sync.Mutex
	payloads []dispatch.Payload
}

// NewRecorder registers a recorder on bus.
func NewRecorder(bus *dispatch.Bus) *Recorder {
	r := &Recorder{}
	bus.Register(r.Record)
	return r
}

// Record stores a copy of p. Usable directly as a dispatch.Callback.
func (r *Recorder) Record(p dispatch.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, p.Clone())
}

// Dispatch records p. Lets a Recorder stand in for a bus.
func (r *Recorder) Dispatch(p dispatch.Payload) error {
	r.Record(p)
	return nil
}

// Payloads returns the recorded payloads.
func (r *Recorder) Payloads() []dispatch.Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]dispatch.Payload, len(r.payloads))
	copy(out, r.payloads)
	return out
}

// Types returns the type of every recorded payload, in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.payloads))
	for i, p := range r.payloads {
		out[i] = p.Type()
	}
	return out
}

// OfType returns the recorded payloads with the given type.
func (r *Recorder) OfType(typ string) []dispatch.Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []dispatch.Payload
	for _, p := range r.payloads {
		if p.Type() == typ {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of recorded payloads.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

// Reset discards recorded payloads.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = nil
}
