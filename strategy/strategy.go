package strategy

import (
	"fmt"

	"github.com/arloliu/scenepart/types"
)

// Strategy names accepted by New.
const (
	NameLPT            = "lpt"
	NameRoundRobin     = "round_robin"
	NameConsistentHash = "consistent_hash"
)

// Named is implemented by strategies that report a name for metrics and logs.
type Named interface {
	Name() string
}

// New returns the built-in strategy registered under name.
//
// Parameters:
//   - name: One of NameLPT, NameRoundRobin, NameConsistentHash
//
// Returns:
//   - types.AssignmentStrategy: The strategy with default options
//   - error: ErrUnknownStrategy for any other name
func New(name string) (types.AssignmentStrategy, error) {
	switch name {
	case NameLPT, "":
		return NewLPT(), nil
	case NameRoundRobin:
		return NewRoundRobin(), nil
	case NameConsistentHash:
		return NewConsistentHash(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// NameOf returns the strategy name, or its Go type for strategies that do not implement Named.
func NameOf(s types.AssignmentStrategy) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}

	return fmt.Sprintf("%T", s)
}

// GroupCosts returns the summed projected cost of each group.
func GroupCosts(groups [][]types.Content) []float64 {
	costs := make([]float64, len(groups))
	for i, g := range groups {
		for _, c := range g {
			costs[i] += c.ProjectedCost()
		}
	}

	return costs
}

func emptyGroups(numGroups int) [][]types.Content {
	groups := make([][]types.Content, numGroups)
	for i := range groups {
		groups[i] = []types.Content{}
	}

	return groups
}
