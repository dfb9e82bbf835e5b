package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arloliu/scenepart/types"
)

// NodeWaiter defines the subset of Node methods needed for waiting.
// This allows the helper to work with both real nodes and test doubles.
type NodeWaiter interface {
	// WaitState waits for the node to reach the expected state within the timeout.
	WaitState(expectedState types.State, timeout time.Duration) <-chan error
}

// WaitAllNodesState waits for all nodes to reach the expected state.
//
// If any node fails to reach the state within the timeout, the function returns
// immediately with the first error encountered. If the context is cancelled,
// all waiting is abandoned and the context error is returned.
//
// Parameters:
//   - ctx: Context for cancellation
//   - nodes: Nodes to wait on
//   - expectedState: Target state for all nodes
//   - timeout: Maximum time to wait for each individual node
//
// Returns:
//   - error: nil if all nodes reached the state, first error encountered otherwise
//
// Example:
//
//	err := testutil.WaitAllNodesState(ctx, waiters, types.StateServing, 10*time.Second)
//	require.NoError(t, err, "all ranks should finish loading")
func WaitAllNodesState(
	ctx context.Context,
	nodes []NodeWaiter,
	expectedState types.State,
	timeout time.Duration,
) error {
	if len(nodes) == 0 {
		return nil
	}

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for i, n := range nodes {
		wg.Go(func() {
			select {
			case err := <-n.WaitState(expectedState, timeout):
				if err != nil {
					errOnce.Do(func() {
						firstErr = fmt.Errorf("node[%d] failed to reach state %s: %w", i, expectedState, err)
						cancel()
					})
				}
			case <-waitCtx.Done():
			}
		})
	}

	wg.Wait()

	if firstErr != nil {
		return firstErr
	}

	return ctx.Err()
}
