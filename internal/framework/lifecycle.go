package framework

import (
	"github.com/roach88/vuo/internal/actions"
	"github.com/roach88/vuo/internal/ident"
	"github.com/roach88/vuo/internal/request"
)

// SetAuthTokenID is broadcast by Lifecycle.SetAuthToken.
var SetAuthTokenID = ident.ID(request.LifecycleGroup, "setAuthToken")

// Lifecycle is the built-in "Vuo" action group.
//
// The request identifiers are listen-only: request.Issuer is the sole
// broadcaster of those payloads, so stores subscribe to them with On but
// nothing calls them.
type Lifecycle struct {
	Group *actions.Group

	RequestBegin    ident.ActionID
	RequestEnd      ident.ActionID
	RequestProgress ident.ActionID
	RequestError    ident.ActionID

	SetAuthToken *actions.Action
}

// NewLifecycle publishes the built-in actions.
func NewLifecycle(opts ...actions.GroupOption) *Lifecycle {
	g := actions.NewGroup(request.LifecycleGroup, opts...)

	return &Lifecycle{
		Group: g,

		RequestBegin:    request.BeginID,
		RequestEnd:      request.EndID,
		RequestProgress: request.ProgressID,
		RequestError:    request.ErrorID,

		SetAuthToken: g.Action("setAuthToken"),
	}
}
