package topicstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "a", 1))
	require.NoError(t, s.Append(ctx, "a", 2))
	require.NoError(t, s.Append(ctx, "b", "x"))

	vals, err := s.Read(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, []any{1, 2}, vals, "append order preserved")

	vals, err = s.Read(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, []any{"x"}, vals)

	vals, err = s.Read(ctx, "missing")
	require.NoError(t, err)
	require.Empty(t, vals)

	require.NoError(t, s.Close())
}
