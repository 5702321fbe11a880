package actions

import (
	"context"

	"github.com/roach88/vuo/internal/dispatch"
	"github.com/roach88/vuo/internal/ident"
	"github.com/roach88/vuo/internal/request"
)

// Handler implements an action. Capabilities are reached through c.
type Handler func(c *Context, args ...any) error

// Action is a published operation.
type Action struct {
	group   *Group
	name    string
	id      ident.ActionID
	handler Handler
}

// Name returns the operation name.
func (a *Action) Name() string { return a.name }

// ID returns the action identifier.
func (a *Action) ID() ident.ActionID { return a.id }

// String returns the action identifier, so an Action can be passed
// wherever a listener expects one.
func (a *Action) String() string { return string(a.id) }

// ErrorID returns the failure channel identifier.
func (a *Action) ErrorID() ident.ActionID { return a.id.ErrorID() }

// Const returns the constant name, e.g. "SET_NAME".
func (a *Action) Const() string { return ident.ConstName(a.name) }

// ErrorConst returns the failure channel constant name.
func (a *Action) ErrorConst() string { return ident.ConstName(a.name, ident.ErrorSuffix) }

// Call invokes the action with a background context.
func (a *Action) Call(args ...any) error {
	return a.CallContext(context.Background(), args...)
}

// CallContext invokes the action. A trivial dispatcher broadcasts
// {type, value: args[0]}; a handler receives every argument.
func (a *Action) CallContext(ctx context.Context, args ...any) error {
	if a.handler == nil {
		var v any
		if len(args) > 0 {
			v = args[0]
		}
		return a.group.dispatch(dispatch.Payload{
			dispatch.KeyType:  a.String(),
			dispatch.KeyValue: v,
		})
	}
	return a.handler(&Context{ctx: ctx, action: a}, args...)
}

// Context is handed to a Handler.
type Context struct {
	ctx    context.Context
	action *Action
}

// Context returns the call context.
func (c *Context) Context() context.Context { return c.ctx }

// Action returns the action being handled.
func (c *Context) Action() *Action { return c.action }

// Dispatch broadcasts v under the action identifier. Maps are merged into
// the payload and must not carry their own "type"; any other value is
// carried as "value".
func (c *Context) Dispatch(v any) error {
	p, err := payloadFor(c.action.String(), v)
	if err != nil {
		return err
	}
	return c.action.group.dispatch(p)
}

// Request stamps def with the action and a fresh correlation id and issues
// it. Dispatch defaults to the action identifier.
func (c *Context) Request(def request.Def) error {
	a := c.action
	def.ActionID = a.id
	def.ID = ident.RequestID(a.group.seq, a.group.name, a.name)
	if def.Dispatch == "" {
		def.Dispatch = a.id
	}
	return a.group.issue(c.ctx, def)
}

func payloadFor(action string, v any) (dispatch.Payload, error) {
	var fields map[string]any
	switch m := v.(type) {
	case dispatch.Payload:
		fields = m
	case map[string]any:
		fields = m
	default:
		return dispatch.Payload{dispatch.KeyType: action, dispatch.KeyValue: v}, nil
	}

	if _, ok := fields[dispatch.KeyType]; ok {
		return nil, &ReservedFieldError{Action: action, Field: dispatch.KeyType}
	}
	p := make(dispatch.Payload, len(fields)+1)
	for k, e := range fields {
		p[k] = e
	}
	p[dispatch.KeyType] = action
	return p, nil
}
