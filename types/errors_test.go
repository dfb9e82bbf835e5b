package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinelErrors(t *testing.T) {
	t.Run("errors.Is works correctly", func(t *testing.T) {
		require.True(t, errors.Is(ErrProtocolDesync, ErrProtocolDesync))
		require.False(t, errors.Is(ErrProtocolDesync, ErrCollectiveFailed))

		wrapped := fmt.Errorf("camera handler: %w", ErrProtocolDesync)
		require.True(t, errors.Is(wrapped, ErrProtocolDesync))
	})

	t.Run("all errors are distinct", func(t *testing.T) {
		allErrors := []error{
			ErrInvalidConfig,
			ErrInvalidGroupCount,
			ErrUnsupportedMapping,
			ErrNoWorkersAvailable,
			ErrContentSourceRequired,
			ErrProcessGroupRequired,
			ErrAssignmentStrategyRequired,
			ErrAssignmentDiverged,
			ErrProtocolDesync,
			ErrTerminated,
			ErrNotMaster,
			ErrCollectiveFailed,
			ErrInvalidRank,
			ErrGroupClosed,
			ErrMaterializeFailed,
			ErrAlreadyStarted,
			ErrNotLoaded,
		}

		for i, a := range allErrors {
			for j, b := range allErrors {
				if i == j {
					continue
				}
				require.False(t, errors.Is(a, b), "%v should not match %v", a, b)
			}
		}
	})
}
