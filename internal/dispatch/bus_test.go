package dispatch

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTokens is a test-only generator that returns fixed tokens.
type stubTokens struct {
	n int
}

func (g *stubTokens) Generate() string {
	g.n++
	return fmt.Sprintf("token-%d", g.n)
}

func TestBus_RegisterReturnsDistinctTokens(t *testing.T) {
	bus := New(WithTokenGenerator(&stubTokens{}))

	t1 := bus.Register(func(Payload) {})
	t2 := bus.Register(func(Payload) {})

	assert.Equal(t, Token("token-1"), t1)
	assert.Equal(t, Token("token-2"), t2)
	assert.Equal(t, 2, bus.Len())
}

func TestBus_DefaultTokensAreUUIDv7(t *testing.T) {
	bus := New()
	token := bus.Register(func(Payload) {})

	parsed, err := uuid.Parse(string(token))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestBus_DispatchInRegistrationOrder(t *testing.T) {
	bus := New()
	var order []string

	bus.Register(func(p Payload) { order = append(order, "first:"+p.Type()) })
	bus.Register(func(p Payload) { order = append(order, "second:"+p.Type()) })
	bus.Register(func(p Payload) { order = append(order, "third:"+p.Type()) })

	require.NoError(t, bus.Dispatch(Payload{"type": "Test.ping"}))

	assert.Equal(t, []string{"first:Test.ping", "second:Test.ping", "third:Test.ping"}, order)
}

func TestBus_DispatchIsSynchronous(t *testing.T) {
	bus := New()
	delivered := false
	bus.Register(func(Payload) { delivered = true })

	require.NoError(t, bus.Dispatch(Payload{"type": "Test.ping"}))
	assert.True(t, delivered, "callback must run before Dispatch returns")
}

func TestBus_DispatchRequiresType(t *testing.T) {
	bus := New()
	called := false
	bus.Register(func(Payload) { called = true })

	err := bus.Dispatch(Payload{"value": 1})
	assert.ErrorIs(t, err, ErrMissingType)

	err = bus.Dispatch(Payload{"type": 42})
	assert.ErrorIs(t, err, ErrMissingType)
	assert.False(t, called)
}

func TestBus_Unregister(t *testing.T) {
	bus := New()
	count := 0
	token := bus.Register(func(Payload) { count++ })

	require.NoError(t, bus.Dispatch(Payload{"type": "a"}))
	require.NoError(t, bus.Unregister(token))
	require.NoError(t, bus.Dispatch(Payload{"type": "a"}))

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, bus.Len())
}

func TestBus_UnregisterUnknownToken(t *testing.T) {
	bus := New()
	err := bus.Unregister("nope")
	assert.True(t, errors.Is(err, ErrUnknownToken))
}

func TestBus_PanickingCallbackDoesNotStopOthers(t *testing.T) {
	var recovered []any
	bus := New(WithPanicHandler(func(p Payload, token Token, v any) {
		recovered = append(recovered, v)
	}))

	var reached []int
	bus.Register(func(Payload) { reached = append(reached, 1) })
	bus.Register(func(Payload) { panic("boom") })
	bus.Register(func(Payload) { reached = append(reached, 3) })

	require.NoError(t, bus.Dispatch(Payload{"type": "a"}))

	assert.Equal(t, []int{1, 3}, reached)
	assert.Equal(t, []any{"boom"}, recovered)
}

func TestBus_ReentrantDispatch(t *testing.T) {
	bus := New()
	var seen []string

	bus.Register(func(p Payload) {
		seen = append(seen, p.Type())
		if p.Type() == "outer" {
			require.NoError(t, bus.Dispatch(Payload{"type": "inner"}))
		}
	})

	require.NoError(t, bus.Dispatch(Payload{"type": "outer"}))
	assert.Equal(t, []string{"outer", "inner"}, seen)
}

func TestBus_RegisterDuringDispatchTakesEffectNextTime(t *testing.T) {
	bus := New()
	late := 0

	bus.Register(func(p Payload) {
		if p.Type() == "install" {
			bus.Register(func(Payload) { late++ })
		}
	})

	require.NoError(t, bus.Dispatch(Payload{"type": "install"}))
	assert.Equal(t, 0, late)

	require.NoError(t, bus.Dispatch(Payload{"type": "after"}))
	assert.Equal(t, 1, late)
}

func TestBus_ObserveSeesPayloadFirst(t *testing.T) {
	bus := New()
	var order []string

	bus.Register(func(Payload) { order = append(order, "callback") })
	bus.Observe(func(Payload) { order = append(order, "hook") })

	require.NoError(t, bus.Dispatch(Payload{"type": "a"}))
	assert.Equal(t, []string{"hook", "callback"}, order)
}

func TestPayload_Accessors(t *testing.T) {
	p := Payload{"type": "Test.setName", "value": "Dolan"}
	assert.Equal(t, "Test.setName", p.Type())
	assert.Equal(t, "Dolan", p.Value())

	c := p.Clone()
	c["value"] = "Goofy"
	assert.Equal(t, "Dolan", p.Value(), "clone must not alias the original map")
}
