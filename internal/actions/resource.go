package actions

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"regexp"

	"github.com/roach88/vuo/internal/dispatch"
	"github.com/roach88/vuo/internal/ident"
	"github.com/roach88/vuo/internal/request"
)

// Resource operation names.
const (
	OpQuery  = "query"
	OpGet    = "get"
	OpSet    = "set"
	OpRemove = "remove"
)

// placeholder matches the first "/:name" segment of a URL template.
var placeholder = regexp.MustCompile(`/:\w+`)

// Resource maps a REST endpoint to four operations.
type Resource struct {
	group    *Group
	name     string
	url      string
	defaults request.Def
	ops      []*Operation
}

// Operation is one resource verb.
type Operation struct {
	resource *Resource
	name     string
	method   string
	sendID   bool
	id       ident.ActionID
}

// Resource publishes name with urlTemplate, e.g. "/users/:id".
// defaults are merged beneath per-call overrides. Panics if name is already
// taken.
func (g *Group) Resource(name, urlTemplate string, defaults request.Def) *Resource {
	r := &Resource{group: g, name: name, url: urlTemplate, defaults: defaults}
	for _, op := range []struct {
		name   string
		method string
		sendID bool
	}{
		{OpQuery, http.MethodGet, false},
		{OpGet, http.MethodGet, true},
		{OpSet, http.MethodPost, true},
		{OpRemove, http.MethodDelete, true},
	} {
		r.ops = append(r.ops, &Operation{
			resource: r,
			name:     op.name,
			method:   op.method,
			sendID:   op.sendID,
			id:       ident.ID(g.name, name, op.name),
		})
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.claim(name)
	g.resources[name] = r
	return r
}

// Name returns the resource name.
func (r *Resource) Name() string { return r.name }

// Ops returns the operations in query, get, set, remove order.
func (r *Resource) Ops() []*Operation {
	out := make([]*Operation, len(r.ops))
	copy(out, r.ops)
	return out
}

// Op returns the operation called name, or nil.
func (r *Resource) Op(name string) *Operation {
	for _, op := range r.ops {
		if op.name == name {
			return op
		}
	}
	return nil
}

// Query fetches the collection.
func (r *Resource) Query(value any, overrides request.Def) error {
	return r.Op(OpQuery).issue(context.Background(), nil, value, overrides)
}

// Get fetches one item.
func (r *Resource) Get(id, value any, overrides request.Def) error {
	return r.Op(OpGet).issue(context.Background(), id, value, overrides)
}

// Set creates or updates one item.
func (r *Resource) Set(id, value any, overrides request.Def) error {
	return r.Op(OpSet).issue(context.Background(), id, value, overrides)
}

// Remove deletes one item.
func (r *Resource) Remove(id any, overrides request.Def) error {
	return r.Op(OpRemove).issue(context.Background(), id, nil, overrides)
}

// Name returns the operation name.
func (o *Operation) Name() string { return o.name }

// Method returns the HTTP method.
func (o *Operation) Method() string { return o.method }

// ID returns the operation identifier, e.g. "Test.users.get".
func (o *Operation) ID() ident.ActionID { return o.id }

// String returns the operation identifier.
func (o *Operation) String() string { return string(o.id) }

// ErrorID returns the failure channel identifier.
func (o *Operation) ErrorID() ident.ActionID { return o.id.ErrorID() }

// Const returns the constant name, e.g. "USERS_GET".
func (o *Operation) Const() string { return ident.ConstName(o.resource.name, o.name) }

// ErrorConst returns the failure channel constant name.
func (o *Operation) ErrorConst() string {
	return ident.ConstName(o.resource.name, o.name, ident.ErrorSuffix)
}

// URL returns the request URL for id.
func (o *Operation) URL(id any) string {
	tmpl := o.resource.url
	loc := placeholder.FindStringIndex(tmpl)
	if loc == nil {
		return tmpl
	}
	repl := ""
	if o.sendID {
		repl = "/" + url.PathEscape(fmt.Sprint(id))
	}
	return tmpl[:loc[0]] + repl + tmpl[loc[1]:]
}

func (o *Operation) issue(ctx context.Context, id, value any, overrides request.Def) error {
	r := o.resource
	def := request.Merge(r.defaults, overrides)
	def.SetRoute(o.method, o.URL(id))
	def.ActionID = o.id
	def.ID = ident.RequestID(r.group.seq, r.group.name, r.name, o.name)
	if def.Dispatch == "" {
		def.Dispatch = o.id
	}
	if data, ok := requestData(value); ok {
		def.Data = data
	}
	return r.group.issue(ctx, def)
}

// requestData sends maps, slices and structs as-is, wraps other non-zero
// values as {value}, and skips zero scalars.
func requestData(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer:
		return v, true
	}
	if reflect.ValueOf(v).IsZero() {
		return nil, false
	}
	return map[string]any{dispatch.KeyValue: v}, true
}
