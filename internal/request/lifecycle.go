package request

import "github.com/roach88/vuo/internal/ident"

// LifecycleGroup is the action group of the request pseudo-actions.
const LifecycleGroup = "Vuo"

// Lifecycle pseudo-action identifiers.
var (
	BeginID    = ident.ID(LifecycleGroup, "requestBegin")
	EndID      = ident.ID(LifecycleGroup, "requestEnd")
	ProgressID = ident.ID(LifecycleGroup, "requestProgress")
	ErrorID    = ident.ID(LifecycleGroup, "requestError")
)

// Payload keys used by lifecycle pseudo-actions.
const (
	KeyID    = "id"
	KeyError = "error"
	KeyTotal = "total"
)
