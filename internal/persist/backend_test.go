package persist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseBackend runs the shared Backend contract against b.
func exerciseBackend(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	_, err := b.Load(ctx, "Test:missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Save(ctx, "Test:a", []byte(`1`)))
	require.NoError(t, b.Save(ctx, "Test:b", []byte(`"two"`)))
	require.NoError(t, b.Save(ctx, "Other:c", []byte(`true`)))

	data, err := b.Load(ctx, "Test:a")
	require.NoError(t, err)
	assert.Equal(t, `1`, string(data))

	require.NoError(t, b.Save(ctx, "Test:a", []byte(`10`)))
	data, err = b.Load(ctx, "Test:a")
	require.NoError(t, err)
	assert.Equal(t, `10`, string(data), "save overwrites")

	keys, err := b.Keys(ctx, "Test:")
	require.NoError(t, err)
	assert.Equal(t, []string{"Test:a", "Test:b"}, keys)

	require.NoError(t, b.Delete(ctx, "Test:a"))
	_, err = b.Load(ctx, "Test:a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_Contract(t *testing.T) {
	exerciseBackend(t, NewMemory())
}

func TestMemory_CopiesBuffers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	buf := []byte(`"abc"`)
	require.NoError(t, m.Save(ctx, "k", buf))
	buf[1] = 'z'

	data, err := m.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `"abc"`, string(data))
}

func TestNull(t *testing.T) {
	ctx := context.Background()
	var n Null

	require.NoError(t, n.Save(ctx, "k", []byte(`1`)))
	_, err := n.Load(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	keys, err := n.Keys(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
