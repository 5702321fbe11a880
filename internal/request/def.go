package request

import (
	"fmt"
	"net/http"

	"github.com/roach88/vuo/internal/ident"
)

// Def describes one request. Exactly one of Get, Post, Put and Del must be
// set to the URL (or URL template with ":name" placeholders).
type Def struct {
	Get  string
	Post string
	Put  string
	Del  string

	// Data is the request body (query parameters for GET and DELETE).
	Data any

	// Args substitutes ":name" placeholders in the URL.
	Args map[string]any

	// Authorize attaches the current auth token at call time.
	Authorize bool

	// Headers are added to the Issuer's global headers.
	Headers map[string]string

	OnComplete func(body any)
	OnError    func(err error)
	OnProgress func(done, total int64)

	// ID is the correlation identifier. Required.
	ID string

	// ActionID is the originating action; failures are broadcast on its
	// error identifier.
	ActionID ident.ActionID

	// Dispatch is broadcast with the response body on success. Empty
	// disables the broadcast.
	Dispatch ident.ActionID
}

// Route returns the HTTP method and URL template.
func (d *Def) Route() (method, url string, err error) {
	n := 0
	for _, v := range []struct {
		method string
		url    string
	}{
		{http.MethodGet, d.Get},
		{http.MethodPost, d.Post},
		{http.MethodPut, d.Put},
		{http.MethodDelete, d.Del},
	} {
		if v.url != "" {
			method, url = v.method, v.url
			n++
		}
	}
	if n != 1 {
		return "", "", fmt.Errorf("request %s: %w", d.ID, ErrVerb)
	}
	return method, url, nil
}

// SetRoute clears every verb and sets the one for method.
func (d *Def) SetRoute(method, url string) {
	d.Get, d.Post, d.Put, d.Del = "", "", "", ""
	switch method {
	case http.MethodGet:
		d.Get = url
	case http.MethodPost:
		d.Post = url
	case http.MethodPut:
		d.Put = url
	case http.MethodDelete:
		d.Del = url
	}
}

// Merge returns base with every non-zero field of override applied.
// Args and Headers are merged key by key. A verb in override replaces all
// verbs of base.
func Merge(base, override Def) Def {
	out := base

	if override.Get != "" || override.Post != "" || override.Put != "" || override.Del != "" {
		out.Get, out.Post, out.Put, out.Del = override.Get, override.Post, override.Put, override.Del
	}
	if override.Data != nil {
		out.Data = override.Data
	}
	out.Args = mergeMap(base.Args, override.Args)
	out.Headers = mergeMap(base.Headers, override.Headers)
	if override.Authorize {
		out.Authorize = true
	}
	if override.OnComplete != nil {
		out.OnComplete = override.OnComplete
	}
	if override.OnError != nil {
		out.OnError = override.OnError
	}
	if override.OnProgress != nil {
		out.OnProgress = override.OnProgress
	}
	if override.ID != "" {
		out.ID = override.ID
	}
	if override.ActionID != "" {
		out.ActionID = override.ActionID
	}
	if override.Dispatch != "" {
		out.Dispatch = override.Dispatch
	}
	return out
}

func mergeMap[V any](base, override map[string]V) map[string]V {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]V, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
