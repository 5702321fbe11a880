package store

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vuo/internal/dispatch"
	"github.com/roach88/vuo/internal/ident"
	"github.com/roach88/vuo/internal/state"
)

var setName = ident.ActionID("setName")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func newNameStore(t *testing.T, bus *dispatch.Bus) *Store {
	t.Helper()
	s := New(bus, "Profile", WithLogger(quietLogger()))
	require.NoError(t, s.AddState("name", state.Type("undefined, string"), state.Initial("Dolan")))
	s.On(setName, func(s *Store, p dispatch.Payload) error {
		return s.SetState(map[string]any{"name": p.Value()})
	})
	return s
}

func TestStore_EndToEnd(t *testing.T) {
	bus := dispatch.New()
	s := newNameStore(t, bus)

	var events []map[string]any
	s.OnChange(func(changes map[string]any) {
		events = append(events, changes)
	})

	require.NoError(t, bus.Dispatch(dispatch.Payload{"type": "setName", "value": "Dolan"}))
	assert.Empty(t, events, "dispatching the current value must not emit change")

	require.NoError(t, bus.Dispatch(dispatch.Payload{"type": "setName", "value": "Goofy"}))
	require.Len(t, events, 1)
	assert.Equal(t, map[string]any{"name": "Goofy"}, events[0])
	assert.Equal(t, "Goofy", s.GetState()["name"])
}

func TestSetState_Idempotent(t *testing.T) {
	s := New(dispatch.New(), "Counter")
	require.NoError(t, s.AddState("n", state.Type("integer"), state.Initial(0)))

	count := 0
	s.OnChange(func(map[string]any) { count++ })

	require.NoError(t, s.SetState(map[string]any{"n": 5}))
	require.NoError(t, s.SetState(map[string]any{"n": 5}))
	assert.Equal(t, 1, count)

	require.NoError(t, s.SetState(map[string]any{"n": 6}))
	assert.Equal(t, 2, count, "distinct patches emit independent events")
}

func TestSetState_LargeIntegerChangeEmits(t *testing.T) {
	s := New(dispatch.New(), "Counter")
	require.NoError(t, s.AddState("n", state.Type("integer"), state.Initial(int64(1)<<53)))

	var events []map[string]any
	s.OnChange(func(changes map[string]any) { events = append(events, changes) })

	require.NoError(t, s.SetState(map[string]any{"n": int64(1)<<53 + 1}))
	require.Len(t, events, 1)
	assert.Equal(t, map[string]any{"n": int64(1)<<53 + 1}, events[0])
}

func TestSetState_OnlyChangedCells(t *testing.T) {
	s := New(dispatch.New(), "Pair")
	require.NoError(t, s.AddState("a", state.Initial(2)))
	require.NoError(t, s.AddState("b", state.Initial(3)))

	var got map[string]any
	s.OnChange(func(changes map[string]any) { got = changes })

	require.NoError(t, s.SetState(map[string]any{"a": 2, "b": 4}))
	assert.Equal(t, map[string]any{"b": 4}, got)
}

func TestSetState_ChangePayloadIsCopy(t *testing.T) {
	s := New(dispatch.New(), "Doc")
	require.NoError(t, s.AddState("obj", state.Initial(map[string]any{})))

	s.OnChange(func(changes map[string]any) {
		changes["obj"].(map[string]any)["x"] = "mutated"
	})
	require.NoError(t, s.SetState(map[string]any{"obj": map[string]any{"x": "orig"}}))

	v, err := s.Get("obj")
	require.NoError(t, err)
	assert.Equal(t, "orig", v.(map[string]any)["x"])
}

func TestSetState_Undeclared(t *testing.T) {
	s := New(dispatch.New(), "Profile")
	require.NoError(t, s.AddState("name", state.Initial("Dolan")))

	fired := false
	s.OnChange(func(map[string]any) { fired = true })

	err := s.SetState(map[string]any{"name": "Goofy", "nope": 1})
	require.Error(t, err)
	assert.True(t, IsUndeclaredState(err))

	var ue *UndeclaredStateError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "nope", ue.Name)

	assert.False(t, fired)
	v, _ := s.Get("name")
	assert.Equal(t, "Dolan", v, "undeclared keys reject the whole patch")
}

func TestSetState_ValidationStopsPatch(t *testing.T) {
	s := New(dispatch.New(), "Form")
	require.NoError(t, s.AddState("a", state.Type("string"), state.Initial("x")))
	require.NoError(t, s.AddState("b", state.Type("string"), state.Initial("y")))
	require.NoError(t, s.AddState("c", state.Type("string"), state.Initial("z")))

	var got map[string]any
	s.OnChange(func(changes map[string]any) { got = changes })

	err := s.SetState(map[string]any{"a": "new", "b": 1, "c": "new"})
	require.Error(t, err)
	assert.True(t, state.IsValidationError(err))

	assert.Equal(t, map[string]any{"a": "new"}, got)
	v, _ := s.Get("c")
	assert.Equal(t, "z", v)
}

func TestAddState_NamespaceDefaultsToStoreName(t *testing.T) {
	s := New(dispatch.New(), "Vault")
	require.NoError(t, s.AddState("secret", state.Protect()))

	_, err := s.Get("secret")
	var pe *state.ProtectedAccessError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Vault", pe.Namespace)
}

func TestAddState_Duplicate(t *testing.T) {
	s := New(dispatch.New(), "S")
	require.NoError(t, s.AddState("a"))
	assert.Error(t, s.AddState("a"))
}

func TestAddState_InvalidDefinition(t *testing.T) {
	s := New(dispatch.New(), "S")
	assert.Error(t, s.AddState("a", state.Type("string")))
	assert.Empty(t, s.Names())
}

func TestGet_Undeclared(t *testing.T) {
	s := New(dispatch.New(), "S")
	_, err := s.Get("missing")
	assert.True(t, IsUndeclaredState(err))
}

// GetState omits protected cells instead of failing; whole-state snapshots
// never throw.
func TestGetState_OmitsProtectedCells(t *testing.T) {
	s := New(dispatch.New(), "Session")
	require.NoError(t, s.AddState("user", state.Initial("wilco")))
	require.NoError(t, s.AddState("token", state.Protect(), state.Initial("s3cr3t")))

	var snapshot map[string]any
	require.NotPanics(t, func() { snapshot = s.GetState() })
	assert.Equal(t, map[string]any{"user": "wilco"}, snapshot)
}

func TestSetState_ChangeOmitsProtectedCells(t *testing.T) {
	s := New(dispatch.New(), "Auth")
	require.NoError(t, s.AddState("user", state.Type("undefined, string")))
	require.NoError(t, s.AddState("password", state.Type("undefined, string"), state.Protect()))
	s.Declare("password", func(v View, _ ...any) (any, error) { return v.Get("password"), nil })

	var events []map[string]any
	s.OnChange(func(changes map[string]any) { events = append(events, changes) })

	require.NoError(t, s.SetState(map[string]any{"password": "hunter2"}))
	assert.Empty(t, events, "a protected-only patch emits nothing")

	stored, err := s.Derive("password")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", stored)

	require.NoError(t, s.SetState(map[string]any{"user": "wilco", "password": "swordfish"}))
	require.Len(t, events, 1)
	assert.Equal(t, map[string]any{"user": "wilco"}, events[0])
}

func TestGetState_ReturnsCopies(t *testing.T) {
	s := New(dispatch.New(), "S")
	require.NoError(t, s.AddState("list", state.Initial([]any{0})))

	snap := s.GetState()
	snap["list"].([]any)[0] = 1

	assert.Equal(t, []any{0}, s.GetState()["list"])
}

func TestOn_RegistrationOrder(t *testing.T) {
	bus := dispatch.New()
	s := New(bus, "S")

	var order []int
	for i := 1; i <= 3; i++ {
		s.On(setName, func(*Store, dispatch.Payload) error {
			order = append(order, i)
			return nil
		})
	}

	require.NoError(t, bus.Dispatch(dispatch.Payload{"type": "setName"}))
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestOn_FailingListenerDoesNotStopOthers(t *testing.T) {
	var logs bytes.Buffer
	bus := dispatch.New()
	s := New(bus, "S", WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	ran := 0
	s.On(setName, func(*Store, dispatch.Payload) error { return errors.New("boom") })
	s.On(setName, func(*Store, dispatch.Payload) error { panic("kaboom") })
	s.On(setName, func(*Store, dispatch.Payload) error { ran++; return nil })

	require.NoError(t, bus.Dispatch(dispatch.Payload{"type": "setName"}))
	assert.Equal(t, 1, ran)
	assert.Contains(t, logs.String(), "boom")
	assert.Contains(t, logs.String(), "kaboom")
}

func TestOn_IgnoresOtherActions(t *testing.T) {
	bus := dispatch.New()
	s := newNameStore(t, bus)

	require.NoError(t, bus.Dispatch(dispatch.Payload{"type": "setAge", "value": "Goofy"}))
	v, _ := s.Get("name")
	assert.Equal(t, "Dolan", v)
}

func TestBind(t *testing.T) {
	bus := dispatch.New()
	s := New(bus, "Session")
	require.NoError(t, s.AddState("authToken", state.Type("undefined, string")))
	s.Bind(ident.ActionID("Vuo.setAuthToken"), "authToken")

	require.NoError(t, bus.Dispatch(dispatch.Payload{"type": "Vuo.setAuthToken", "value": "abc"}))
	v, err := s.Get("authToken")
	require.NoError(t, err)
	assert.Equal(t, "abc", v)
}

func TestRemoveListener(t *testing.T) {
	bus := dispatch.New()
	s := New(bus, "S")

	calls := 0
	id := s.On(setName, func(*Store, dispatch.Payload) error { calls++; return nil })

	require.NoError(t, s.RemoveListener(id))
	require.NoError(t, bus.Dispatch(dispatch.Payload{"type": "setName"}))
	assert.Zero(t, calls)

	err := s.RemoveListener(id)
	assert.ErrorIs(t, err, ErrListenerNotFound)

	assert.ErrorIs(t, s.RemoveListener(ListenerID(999)), ErrListenerNotFound)
}

func TestEvents(t *testing.T) {
	s := New(dispatch.New(), "S")

	var got []any
	id := s.OnEvent("customEvent", func(data any) { got = append(got, data) })

	assert.True(t, s.Emit("customEvent", 1))
	assert.False(t, s.Emit("other", 2))
	assert.Equal(t, []any{1}, got)

	require.NoError(t, s.RemoveEventListener("customEvent", id))
	assert.False(t, s.Emit("customEvent", 3))
	assert.ErrorIs(t, s.RemoveEventListener("customEvent", id), ErrListenerNotFound)
}

func TestRemoveChangeListener(t *testing.T) {
	s := New(dispatch.New(), "S")
	require.NoError(t, s.AddState("n", state.Initial(0)))

	count := 0
	id := s.OnChange(func(map[string]any) { count++ })
	require.NoError(t, s.RemoveChangeListener(id))

	require.NoError(t, s.SetState(map[string]any{"n": 1}))
	assert.Zero(t, count)
}

func TestChangeListener_CanRemoveItself(t *testing.T) {
	s := New(dispatch.New(), "S")
	require.NoError(t, s.AddState("n", state.Initial(0)))

	count := 0
	var id ListenerID
	id = s.OnChange(func(map[string]any) {
		count++
		require.NoError(t, s.RemoveChangeListener(id))
	})

	require.NoError(t, s.SetState(map[string]any{"n": 1}))
	require.NoError(t, s.SetState(map[string]any{"n": 2}))
	assert.Equal(t, 1, count)
}

func TestDeclare(t *testing.T) {
	s := New(dispatch.New(), "Math")
	require.NoError(t, s.AddState("a", state.Type("number"), state.Initial(2)))
	require.NoError(t, s.AddState("b", state.Type("number"), state.Initial(3)))
	require.NoError(t, s.AddState("hidden", state.Protect(), state.Initial(10)))

	s.Declare("sum", func(v View, _ ...any) (any, error) {
		return v.Get("a").(int) + v.Get("b").(int) + v.Get("hidden").(int), nil
	})
	s.Declare("both", func(v View, args ...any) (any, error) {
		return []any{v.Namespace(), v.Get("a"), args}, nil
	})

	sum, err := s.Derive("sum")
	require.NoError(t, err)
	assert.Equal(t, 15, sum, "derived getters see protected cells")

	both, err := s.Derive("both", "x")
	require.NoError(t, err)
	assert.Equal(t, []any{"Math", 2, []any{"x"}}, both)

	_, err = s.Derive("missing")
	assert.ErrorIs(t, err, ErrUnknownGetter)
}

func TestDerive_ReturnsCopy(t *testing.T) {
	s := New(dispatch.New(), "S")
	require.NoError(t, s.AddState("obj", state.Initial(map[string]any{"v": 0})))
	s.Declare("raw", func(v View, _ ...any) (any, error) {
		return v.State(), nil
	})

	out, err := s.Derive("raw")
	require.NoError(t, err)
	out.(map[string]any)["obj"].(map[string]any)["v"] = 1

	got, _ := s.Get("obj")
	assert.Equal(t, 0, got.(map[string]any)["v"])
}

func TestDerive_PropagatesError(t *testing.T) {
	s := New(dispatch.New(), "S")
	s.Declare("bad", func(View, ...any) (any, error) { return nil, errors.New("nope") })

	_, err := s.Derive("bad")
	assert.ErrorContains(t, err, "nope")
}

func TestUnregister(t *testing.T) {
	bus := dispatch.New()
	s := newNameStore(t, bus)
	assert.Equal(t, StatusActive, s.Status())
	assert.Equal(t, 1, bus.Len())

	require.NoError(t, s.Unregister())
	assert.Equal(t, StatusUnregistered, s.Status())
	assert.Zero(t, bus.Len())

	require.NoError(t, bus.Dispatch(dispatch.Payload{"type": "setName", "value": "Goofy"}))
	v, _ := s.Get("name")
	assert.Equal(t, "Dolan", v)

	assert.ErrorIs(t, s.Unregister(), ErrUnregistered)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "active", StatusActive.String())
	assert.Equal(t, "unregistered", StatusUnregistered.String())
}
