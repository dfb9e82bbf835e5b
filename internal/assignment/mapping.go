package assignment

import (
	"fmt"

	"github.com/arloliu/scenepart/types"
)

// GroupsPerRank returns ceil(groups/workers).
func GroupsPerRank(groups, workers int) int {
	if workers <= 0 {
		return 0
	}

	return (groups + workers - 1) / workers
}

// CheckMapping validates a group count against a worker count.
//
// Parameters:
//   - groups: Total data groups
//   - workers: Active worker count
//   - allowPartial: Accept group counts that are not a multiple of workers
//
// Returns:
//   - error: ErrInvalidGroupCount, ErrNoWorkersAvailable or ErrUnsupportedMapping
func CheckMapping(groups, workers int, allowPartial bool) error {
	if groups <= 0 {
		return fmt.Errorf("%w: got %d", types.ErrInvalidGroupCount, groups)
	}
	if workers <= 0 {
		return fmt.Errorf("%w: got %d workers", types.ErrNoWorkersAvailable, workers)
	}
	if groups%workers != 0 && !allowPartial {
		return fmt.Errorf("%w: %d groups over %d workers", types.ErrUnsupportedMapping, groups, workers)
	}

	return nil
}

// OwnedGroups returns the data group IDs owned by a worker.
//
// The worker at index rank owns {(rank*D + i) mod groups : i in [0, D)} with
// D = ceil(groups/workers). For exact multiples the result is a contiguous,
// disjoint range. Otherwise the call fails unless allowPartial is set, in
// which case a warning is logged and the wrapped IDs are returned.
//
// Parameters:
//   - rank: Worker index in [0, workers)
//   - workers: Active worker count
//   - groups: Total data groups
//   - allowPartial: Accept non-multiple group counts
//   - logger: Receives the partial mapping warning (may be nil)
//
// Returns:
//   - []int: Owned group IDs in load order
//   - error: Mapping or rank validation error
//
// Example:
//
//	owned, err := assignment.OwnedGroups(1, 4, 8, false, logger)
//	// owned == []int{2, 3}
func OwnedGroups(rank, workers, groups int, allowPartial bool, logger types.Logger) ([]int, error) {
	if err := CheckMapping(groups, workers, allowPartial); err != nil {
		return nil, err
	}
	if rank < 0 || rank >= workers {
		return nil, fmt.Errorf("%w: worker index %d outside [0, %d)", types.ErrInvalidRank, rank, workers)
	}

	perRank := GroupsPerRank(groups, workers)
	if groups%workers != 0 && logger != nil {
		logger.Warn("group count is not a multiple of the worker count, wrapping group ids",
			"groups", groups,
			"workers", workers,
			"groups_per_rank", perRank,
			"effective_groups", perRank*workers,
		)
	}

	owned := make([]int, perRank)
	for i := range owned {
		owned[i] = (rank*perRank + i) % groups
	}

	return owned, nil
}
