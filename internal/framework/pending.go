package framework

import (
	"fmt"

	"github.com/roach88/vuo/internal/dispatch"
	"github.com/roach88/vuo/internal/request"
	"github.com/roach88/vuo/internal/state"
	"github.com/roach88/vuo/internal/store"
)

// PendingStore is the name of the Pending store.
const PendingStore = "Pending"

// Pending tracks requests between requestBegin and requestEnd.
type Pending struct {
	*store.Store
}

// NewPending creates the Pending store.
func NewPending(bus store.Bus, opts ...store.Option) (*Pending, error) {
	s := store.New(bus, PendingStore, opts...)

	if err := s.AddState("inFlight", state.Type("integer"), state.Min(0, false), state.Initial(0)); err != nil {
		return nil, err
	}
	if err := s.AddState("lastError", state.Type("undefined, string")); err != nil {
		return nil, err
	}

	s.On(request.BeginID, func(s *store.Store, _ dispatch.Payload) error {
		return s.SetState(map[string]any{"inFlight": inFlight(s) + 1})
	})
	s.On(request.EndID, func(s *store.Store, _ dispatch.Payload) error {
		return s.SetState(map[string]any{"inFlight": inFlight(s) - 1})
	})
	s.On(request.ErrorID, func(s *store.Store, p dispatch.Payload) error {
		return s.SetState(map[string]any{"lastError": fmt.Sprint(p[request.KeyError])})
	})

	return &Pending{Store: s}, nil
}

// InFlight returns the number of outstanding requests.
func (p *Pending) InFlight() int {
	return inFlight(p.Store)
}

// LastError returns the message of the most recent request failure.
func (p *Pending) LastError() string {
	v, _ := p.Get("lastError")
	s, _ := v.(string)
	return s
}

func inFlight(s *store.Store) int {
	v, _ := s.Get("inFlight")
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
