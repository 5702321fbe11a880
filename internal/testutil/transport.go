package testutil

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/roach88/vuo/internal/request"
)

// Response is a scripted transport outcome.
type Response struct {
	// Status, when >= 400, fails the call with a *request.RequestError.
	Status int

	// Body is returned on success or attached to the error.
	Body any
}

// StubTransport answers calls from a table keyed by "METHOD path", where
// path has its placeholders already substituted.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StubTransport struct {
	mu        sync.Mutex
	responses map[string]Response
	calls     []request.Call
}

// NewStubTransport creates an empty stub. Unscripted calls fail with 404.
func NewStubTransport() *StubTransport {
	return &StubTransport{responses: make(map[string]Response)}
}

// On scripts the response for method and path.
func (s *StubTransport) On(method, path string, resp Response) *StubTransport {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[method+" "+path] = resp
	return s
}

// Do implements request.Transport.
func (s *StubTransport) Do(_ context.Context, call *request.Call) (any, error) {
	path := request.BuildPath(call.Path, call.Args)

	s.mu.Lock()
	s.calls = append(s.calls, *call)
	resp, ok := s.responses[call.Method+" "+path]
	s.mu.Unlock()

	if !ok {
		return nil, &request.RequestError{
			Method:     call.Method,
			URL:        path,
			StatusCode: http.StatusNotFound,
			Body:       fmt.Sprintf("no stub for %s %s", call.Method, path),
		}
	}
	if resp.Status >= 400 {
		return nil, &request.RequestError{Method: call.Method, URL: path, StatusCode: resp.Status, Body: resp.Body}
	}
	return resp.Body, nil
}

// Calls returns the calls received so far.
func (s *StubTransport) Calls() []request.Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]request.Call, len(s.calls))
	copy(out, s.calls)
	return out
}
