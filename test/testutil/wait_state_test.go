package testutil

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/scenepart/types"
)

// mockNode implements NodeWaiter for testing.
type mockNode struct {
	currentState atomic.Int32
}

func newMockNode(initialState types.State) *mockNode {
	m := &mockNode{}
	m.currentState.Store(int32(initialState))

	return m
}

func (m *mockNode) State() types.State {
	return types.State(m.currentState.Load())
}

func (m *mockNode) transitionAfter(delay time.Duration, state types.State) {
	go func() {
		time.Sleep(delay)
		m.currentState.Store(int32(state))
	}()
}

func (m *mockNode) WaitState(expectedState types.State, timeout time.Duration) <-chan error {
	ch := make(chan error, 1)
	go func() {
		defer close(ch)

		deadline := time.Now().Add(timeout)
		for time.Now().Before(deadline) {
			if m.State() == expectedState {
				ch <- nil
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		ch <- context.DeadlineExceeded
	}()

	return ch
}

func TestWaitAllNodesState(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		require.NoError(t, WaitAllNodesState(t.Context(), nil, types.StateServing, time.Second))
	})

	t.Run("all reach state", func(t *testing.T) {
		a := newMockNode(types.StateLoading)
		b := newMockNode(types.StateServing)
		a.transitionAfter(30*time.Millisecond, types.StateServing)

		err := WaitAllNodesState(t.Context(), []NodeWaiter{a, b}, types.StateServing, time.Second)
		require.NoError(t, err)
	})

	t.Run("one times out", func(t *testing.T) {
		a := newMockNode(types.StateServing)
		b := newMockNode(types.StateLoading)

		err := WaitAllNodesState(t.Context(), []NodeWaiter{a, b}, types.StateServing, 50*time.Millisecond)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Contains(t, err.Error(), "node[1]")
	})

	t.Run("context cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		a := newMockNode(types.StateInit)
		err := WaitAllNodesState(ctx, []NodeWaiter{a}, types.StateServing, time.Second)
		require.ErrorIs(t, err, context.Canceled)
	})
}
