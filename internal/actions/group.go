package actions

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/vuo/internal/dispatch"
	"github.com/roach88/vuo/internal/ident"
	"github.com/roach88/vuo/internal/request"
)

// Bus broadcasts payloads.
type Bus interface {
	Dispatch(p dispatch.Payload) error
}

// Requester issues requests. request.Issuer implements it.
type Requester interface {
	Issue(ctx context.Context, def request.Def) error
}

// GroupOption configures a Group.
type GroupOption func(*Group)

// WithBus sets the bus actions broadcast on.
func WithBus(b Bus) GroupOption {
	return func(g *Group) {
		g.bus = b
	}
}

// WithSequence sets the correlation sequence. Defaults to ident.Default.
func WithSequence(s *ident.Sequence) GroupOption {
	return func(g *Group) {
		g.seq = s
	}
}

// WithRequester sets the request issuer.
func WithRequester(r Requester) GroupOption {
	return func(g *Group) {
		g.requester = r
	}
}

// Group is a named collection of actions and resources.
//
// Thread-safety: registration and calls are safe for concurrent use.
type Group struct {
	name      string
	bus       Bus
	seq       *ident.Sequence
	requester Requester

	mu        sync.RWMutex
	actions   map[string]*Action
	resources map[string]*Resource
}

// NewGroup creates an empty group.
func NewGroup(name string, opts ...GroupOption) *Group {
	g := &Group{
		name:      name,
		seq:       ident.Default,
		actions:   make(map[string]*Action),
		resources: make(map[string]*Resource),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns the group name.
func (g *Group) Name() string { return g.name }

// Sequence returns the correlation sequence.
func (g *Group) Sequence() *ident.Sequence { return g.seq }

// Action publishes a trivial dispatcher. Panics if name is already taken.
func (g *Group) Action(name string) *Action {
	return g.Handle(name, nil)
}

// Handle publishes an action implemented by h. A nil h publishes a trivial
// dispatcher. Panics if name is already taken.
func (g *Group) Handle(name string, h Handler) *Action {
	a := &Action{
		group:   g,
		name:    name,
		id:      ident.ID(g.name, name),
		handler: h,
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.claim(name)
	g.actions[name] = a
	return a
}

// Lookup returns the published action called name.
func (g *Group) Lookup(name string) (*Action, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	a, ok := g.actions[name]
	return a, ok
}

// Exports returns constant name to identifier for every published
// operation, including the "_ERROR" failure channels.
func (g *Group) Exports() map[string]ident.ActionID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[string]ident.ActionID)
	for _, a := range g.actions {
		out[a.Const()] = a.ID()
		out[a.ErrorConst()] = a.ErrorID()
	}
	for _, r := range g.resources {
		for _, op := range r.Ops() {
			out[op.Const()] = op.ID()
			out[op.ErrorConst()] = op.ErrorID()
		}
	}
	return out
}

// ExportNames returns the sorted constant names of Exports.
func (g *Group) ExportNames() []string {
	exports := g.Exports()
	names := make([]string, 0, len(exports))
	for n := range exports {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// claim must be called with g.mu held.
func (g *Group) claim(name string) {
	if _, ok := g.actions[name]; ok {
		panic(fmt.Sprintf("actions: %s.%s already published", g.name, name))
	}
	if _, ok := g.resources[name]; ok {
		panic(fmt.Sprintf("actions: %s.%s already published", g.name, name))
	}
}

func (g *Group) dispatch(p dispatch.Payload) error {
	if g.bus == nil {
		return fmt.Errorf("group %s: no bus configured", g.name)
	}
	return g.bus.Dispatch(p)
}

func (g *Group) issue(ctx context.Context, def request.Def) error {
	if g.requester == nil {
		return fmt.Errorf("group %s: %w", g.name, ErrNoRequester)
	}
	return g.requester.Issue(ctx, def)
}
