package framework

import (
	"github.com/roach88/vuo/internal/request"
	"github.com/roach88/vuo/internal/state"
	"github.com/roach88/vuo/internal/store"
)

// SessionStore is the name (and persistence namespace) of the Session store.
const SessionStore = "Session"

// Session holds the auth token set through Lifecycle.SetAuthToken.
type Session struct {
	*store.Store
}

var _ request.Authorizer = (*Session)(nil)

// NewSession creates the Session store. When kv is non-nil the token
// survives restarts.
func NewSession(bus store.Bus, kv state.KV, opts ...store.Option) (*Session, error) {
	s := store.New(bus, SessionStore, opts...)

	cellOpts := []state.Option{state.Type("undefined, string")}
	if kv != nil {
		cellOpts = append(cellOpts, state.Persist(kv))
	}
	if err := s.AddState("authToken", cellOpts...); err != nil {
		return nil, err
	}
	s.Bind(SetAuthTokenID, "authToken")

	return &Session{Store: s}, nil
}

// AuthToken returns the current token.
func (s *Session) AuthToken() (string, bool) {
	v, err := s.Get("authToken")
	if err != nil {
		return "", false
	}
	token, ok := v.(string)
	return token, ok && token != ""
}
