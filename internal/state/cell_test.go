package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapKV is a minimal in-memory KV for tests.
type mapKV struct {
	data map[string]any
	sets int
}

func newMapKV() *mapKV {
	return &mapKV{data: make(map[string]any)}
}

func (m *mapKV) Get(key string, def any) any {
	if v, ok := m.data[key]; ok {
		return v
	}
	return def
}

func (m *mapKV) Set(key string, value any) {
	m.sets++
	m.data[key] = value
}

func TestDefine_Defaults(t *testing.T) {
	c, err := Define("name")
	require.NoError(t, err)

	assert.Equal(t, "name", c.Name())
	assert.Equal(t, DefaultNamespace, c.Namespace())
	assert.Equal(t, "Global:name", c.Key())
	assert.True(t, c.IsPublic())
	assert.False(t, c.IsPersisted())

	v, err := c.Get()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestDefine_TypeIsFirstInPipeline(t *testing.T) {
	c, err := Define("n", Min(0, false), Type("number"), Initial(1))
	require.NoError(t, err)

	vs := c.Validators()
	require.Len(t, vs, 2)
	assert.Equal(t, KindTypeCheck, vs[0].Kind)
	assert.Equal(t, KindRange, vs[1].Kind)
}

func TestDefine_InitialMustSatisfyType(t *testing.T) {
	_, err := Define("name", Type("string"))
	require.Error(t, err)
	assert.True(t, IsValidationError(err), "unset initial value is checked like any other")

	c, err := Define("name", Type("undefined, string"))
	require.NoError(t, err)
	v, _ := c.Get()
	assert.Nil(t, v)
}

func TestDefine_UnknownType(t *testing.T) {
	_, err := Define("x", Type("strin"))
	assert.Error(t, err)
}

func TestSet_TypeValidator(t *testing.T) {
	c, err := Define("name", Type("string"), Initial("Wilco"))
	require.NoError(t, err)

	changed, err := c.Set("Mickey")
	require.NoError(t, err)
	assert.True(t, changed)

	v, err := c.Get()
	require.NoError(t, err)
	assert.Equal(t, "Mickey", v)

	_, err = c.Set(303)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	v, _ = c.Get()
	assert.Equal(t, "Mickey", v, "rejected set must keep the previous value")
}

func TestSet_ValidationErrorNamesCell(t *testing.T) {
	c, err := Define("age", Namespace("Profile"), Type("integer"), Initial(1))
	require.NoError(t, err)

	_, err = c.Set("old")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Profile:age", ve.Cell)
	assert.Equal(t, "old", ve.Value)
}

func TestSet_ReportsChange(t *testing.T) {
	c, err := Define("name", Type("string"), Initial("Dolan"))
	require.NoError(t, err)

	changed, err := c.Set("Dolan")
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = c.Set("Goofy")
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestSet_NumericKindsCompareByValue(t *testing.T) {
	c, err := Define("n", Type("number"), Initial(2))
	require.NoError(t, err)

	changed, err := c.Set(int64(2))
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = c.Set(2.0)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestSet_LargeIntegersCompareExactly(t *testing.T) {
	c, err := Define("n", Type("integer"), Initial(int64(1)<<53))
	require.NoError(t, err)

	changed, err := c.Set(int64(1)<<53 + 1)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = c.Set(float64(1 << 53))
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = c.Set(uint64(1) << 53)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestRange_NonStrictClamps(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
		in   any
		want any
	}{
		{"min below", Min(0, false), -5, 0},
		{"min inside", Min(0, false), 3, 3},
		{"max above", Max(10, false), 11.5, 10.0},
		{"max inside", Max(10, false), 7, 7},
		{"bound below", Bound(1, 5, false), int64(-1), int64(1)},
		{"bound above", Bound(1, 5, false), 9, 5},
		{"bound inside", Bound(1, 5, false), 2.5, 2.5},
		{"bound edge", Bound(1, 5, false), 5, 5},
		{"min rounds up for integers", Min(0.5, false), 0, 1},
		{"max rounds down for integers", Max(2.5, false), 3, 2},
		{"min beyond int64", Min(1e19, false), int64(5), 1e19},
		{"max below uint", Max(-1, false), uint(5), -1.0},
		{"min beyond int8", Min(300, false), int8(1), 300.0},
		{"no integer inside bound", Bound(0.2, 0.8, false), 0, 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Define("n", tt.opt)
			require.NoError(t, err)

			_, err = c.Set(tt.in)
			require.NoError(t, err)

			v, err := c.Get()
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestRange_StrictRejects(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
		in   any
	}{
		{"min", Min(0, true), -1},
		{"max", Max(10, true), 10.5},
		{"bound low", Bound(1, 5, true), 0},
		{"bound high", Bound(1, 5, true), 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Define("n", tt.opt, Initial(3))
			require.NoError(t, err)

			_, err = c.Set(tt.in)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))

			v, _ := c.Get()
			assert.Equal(t, 3, v, "stored value must be unchanged")
		})
	}
}

func TestRange_RejectsNonNumbers(t *testing.T) {
	c, err := Define("n", Bound(0, 1, false), Initial(0))
	require.NoError(t, err)

	_, err = c.Set("one")
	assert.True(t, IsValidationError(err))
}

func TestRange_NilPassesThrough(t *testing.T) {
	c, err := Define("n", Min(0, true))
	require.NoError(t, err)
	v, _ := c.Get()
	assert.Nil(t, v)
}

func TestBound_MinExceedsMax(t *testing.T) {
	_, err := Define("n", Bound(5, 1, false))
	assert.Error(t, err)
}

func TestPipeline_AppliesLeftToRight(t *testing.T) {
	// Max then Min: 20 -> 10 -> 10; -3 -> -3 -> 0
	c, err := Define("n", Type("integer"), Max(10, false), Min(0, false), Initial(5))
	require.NoError(t, err)

	_, err = c.Set(20)
	require.NoError(t, err)
	v, _ := c.Get()
	assert.Equal(t, 10, v)

	_, err = c.Set(-3)
	require.NoError(t, err)
	v, _ = c.Get()
	assert.Equal(t, 0, v)
}

func TestGet_Protected(t *testing.T) {
	c, err := Define("secret", Namespace("Vault"), Protect(), Initial("s3cr3t"))
	require.NoError(t, err)
	assert.False(t, c.IsPublic())

	_, err = c.Get()
	require.Error(t, err)
	assert.True(t, IsProtected(err))
	assert.Contains(t, err.Error(), "Vault:secret")

	_, err = c.Set("other")
	require.NoError(t, err, "protected cells are still writable")

	_, err = c.Get()
	assert.True(t, IsProtected(err), "reads fail regardless of prior sets")

	assert.Equal(t, "other", c.Peek())
}

func TestGet_ReturnsIndependentCopies(t *testing.T) {
	c, err := Define("object", Initial(map[string]any{"value": 0}))
	require.NoError(t, err)

	v1, _ := c.Get()
	v2, _ := c.Get()
	v1.(map[string]any)["value"] = 1

	assert.Equal(t, 0, v2.(map[string]any)["value"])
	v3, _ := c.Get()
	assert.Equal(t, 0, v3.(map[string]any)["value"])

	arr, err := Define("array", Initial([]any{0}))
	require.NoError(t, err)
	a1, _ := arr.Get()
	a2, _ := arr.Get()
	a1.([]any)[0] = 1
	assert.Equal(t, 0, a2.([]any)[0])
}

func TestSet_DoesNotAliasInput(t *testing.T) {
	input := map[string]any{"name": "Wilco"}
	c, err := Define("obj", Type("object"), Initial(input))
	require.NoError(t, err)

	input["name"] = "Mutated"
	v, _ := c.Get()
	assert.Equal(t, "Wilco", v.(map[string]any)["name"])
}

func TestPersist_WritesThrough(t *testing.T) {
	kv := newMapKV()
	c, err := Define("obj", Namespace("MyNamespace"), Type("object"), Persist(kv), Initial(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, c.IsPersisted())

	_, err = c.Set(map[string]any{"name": "Wilco"})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"name": "Wilco"}, kv.data["MyNamespace:obj"])
}

func TestPersist_LoadsPriorValue(t *testing.T) {
	kv := newMapKV()
	first, err := Define("a", Namespace("TestStore"), Persist(kv), Initial(2))
	require.NoError(t, err)
	_, err = first.Set(7)
	require.NoError(t, err)

	second, err := Define("a", Namespace("TestStore"), Persist(kv), Initial(9999))
	require.NoError(t, err)

	v, err := second.Get()
	require.NoError(t, err)
	assert.Equal(t, 7, v, "persisted value wins over the initial value")
}

func TestPersist_WritesClampedValue(t *testing.T) {
	kv := newMapKV()
	c, err := Define("n", Persist(kv), Max(10, false), Initial(0))
	require.NoError(t, err)

	_, err = c.Set(50)
	require.NoError(t, err)
	assert.Equal(t, 10, kv.data["Global:n"])
}

func TestPersist_IgnoresInvalidStoredValue(t *testing.T) {
	kv := newMapKV()
	kv.data["Global:name"] = 42

	c, err := Define("name", Type("string"), Persist(kv), Initial("fallback"))
	require.NoError(t, err)

	v, _ := c.Get()
	assert.Equal(t, "fallback", v)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "type", KindTypeCheck.String())
	assert.Equal(t, "range", KindRange.String())
	assert.Equal(t, "protect", KindProtect.String())
	assert.Equal(t, "persist", KindPersist.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}
