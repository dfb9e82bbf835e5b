package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/scenepart/internal/logging"
	"github.com/arloliu/scenepart/scene"
	"github.com/arloliu/scenepart/types"
)

func TestNewNop(t *testing.T) {
	h := NewNop()
	ctx := context.Background()

	require.NoError(t, h.OnGroupLoaded(ctx, 0, scene.EmptyBounds()))
	require.NoError(t, h.OnCommand(ctx, types.CommandRenderFrame))
	require.NoError(t, h.OnStateChanged(ctx, types.StateInit, types.StateLoading))
}

func TestRunner_NilHooks(t *testing.T) {
	r := NewRunner(nil, nil)

	require.NotPanics(t, func() {
		r.GroupLoaded(context.Background(), 1, scene.EmptyBounds())
		r.Command(context.Background(), types.CommandResize)
		r.StateChanged(context.Background(), types.StateInit, types.StateLoading)
	})
}

func TestRunner_PartialHooks(t *testing.T) {
	var kinds []types.CommandKind
	r := NewRunner(&types.Hooks{
		OnCommand: func(_ context.Context, kind types.CommandKind) error {
			kinds = append(kinds, kind)
			return errors.New("ignored")
		},
	}, logging.NewTest(t))

	r.Command(context.Background(), types.CommandResize)
	r.Command(context.Background(), types.CommandTerminate)
	r.GroupLoaded(context.Background(), 0, scene.EmptyBounds())

	require.Equal(t, []types.CommandKind{types.CommandResize, types.CommandTerminate}, kinds)
}
