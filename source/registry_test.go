package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/scenepart/content"
	"github.com/arloliu/scenepart/types"
)

func item(name string, cost float64) types.Content {
	return &content.Func{Name: name, Cost: cost}
}

func TestRegistry_ListContent(t *testing.T) {
	t.Run("returns content in registration order", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register(item("a", 1), item("b", 2)))
		require.NoError(t, reg.Register(item("c", 3)))

		result, err := reg.ListContent(context.Background())

		require.NoError(t, err)
		require.Len(t, result, 3)
		require.Equal(t, "a", result[0].Describe())
		require.Equal(t, "b", result[1].Describe())
		require.Equal(t, "c", result[2].Describe())
		require.Equal(t, 3, reg.Len())
		require.Equal(t, 6.0, reg.TotalCost())
	})

	t.Run("returns empty list when nothing registered", func(t *testing.T) {
		result, err := NewRegistry().ListContent(context.Background())

		require.NoError(t, err)
		require.Empty(t, result)
	})

	t.Run("does not expose internal slice", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register(item("a", 1)))

		result, err := reg.ListContent(context.Background())
		require.NoError(t, err)
		result[0] = item("mutated", 9)

		again, _ := reg.ListContent(context.Background())
		require.Equal(t, "a", again[0].Describe())
	})

	t.Run("rejects nil content atomically", func(t *testing.T) {
		reg := NewRegistry()
		err := reg.Register(item("a", 1), nil)

		require.ErrorIs(t, err, ErrNilContent)
		require.Equal(t, 0, reg.Len())
	})
}

func TestStatic_ListContent(t *testing.T) {
	src := Static{item("x", 1), item("y", 2)}

	result, err := src.ListContent(context.Background())

	require.NoError(t, err)
	require.Len(t, result, 2)
	require.Equal(t, "y", result[1].Describe())
}
