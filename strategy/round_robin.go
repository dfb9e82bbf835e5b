package strategy

import (
	"github.com/arloliu/scenepart/types"
)

// RoundRobin places content i in group i mod numGroups, ignoring cost.
type RoundRobin struct{}

var _ types.AssignmentStrategy = (*RoundRobin)(nil)

// NewRoundRobin creates a round-robin strategy.
//
// Useful when content items are known to have similar cost, or to reproduce
// a fixed placement independent of cost estimates.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// Name implements Named.
func (rr *RoundRobin) Name() string { return NameRoundRobin }

// Assign distributes contents in registration order across numGroups groups.
func (rr *RoundRobin) Assign(contents []types.Content, numGroups int) ([][]types.Content, error) {
	if numGroups <= 0 {
		return nil, types.ErrInvalidGroupCount
	}

	groups := emptyGroups(numGroups)
	for i, c := range contents {
		g := i % numGroups
		groups[g] = append(groups[g], c)
	}

	return groups, nil
}
