package strategy

import (
	"fmt"

	"github.com/arloliu/scenepart/internal/hash"
	"github.com/arloliu/scenepart/types"
)

// ConsistentHash places content on a hash ring of group indices.
//
// Placement depends on the content name, not its position in the registry, so
// adding content elsewhere does not move existing items. With a load cap, an
// item whose ring owner would exceed capFactor times the average group cost is
// diverted to the next group clockwise that has room, or to the least loaded
// group if none does.
type ConsistentHash struct {
	virtualNodes int
	hashSeed     uint64
	loadCap      float64
}

var _ types.AssignmentStrategy = (*ConsistentHash)(nil)

// ConsistentHashOption configures a ConsistentHash strategy.
type ConsistentHashOption func(*ConsistentHash)

// NewConsistentHash creates a consistent hash strategy.
//
// Example:
//
//	s := strategy.NewConsistentHash(
//	    strategy.WithVirtualNodes(300),
//	    strategy.WithLoadCap(1.25),
//	)
func NewConsistentHash(opts ...ConsistentHashOption) *ConsistentHash {
	ch := &ConsistentHash{
		virtualNodes: 150,
	}

	for _, opt := range opts {
		opt(ch)
	}

	return ch
}

// WithVirtualNodes sets the number of virtual nodes per group.
//
// Higher values give a smoother distribution. Recommended range: 100-300 (default: 150).
func WithVirtualNodes(nodes int) ConsistentHashOption {
	return func(ch *ConsistentHash) {
		ch.virtualNodes = nodes
	}
}

// WithHashSeed sets the ring hash seed.
func WithHashSeed(seed uint64) ConsistentHashOption {
	return func(ch *ConsistentHash) {
		ch.hashSeed = seed
	}
}

// WithLoadCap enables the load cap. Factors <= 1 disable it.
func WithLoadCap(factor float64) ConsistentHashOption {
	return func(ch *ConsistentHash) {
		ch.loadCap = factor
	}
}

// Name implements Named.
func (ch *ConsistentHash) Name() string { return NameConsistentHash }

// Assign hashes each content's Describe() onto a ring of numGroups nodes.
func (ch *ConsistentHash) Assign(contents []types.Content, numGroups int) ([][]types.Content, error) {
	if numGroups <= 0 {
		return nil, types.ErrInvalidGroupCount
	}

	groups := emptyGroups(numGroups)
	if len(contents) == 0 {
		return groups, nil
	}

	names := make([]string, numGroups)
	for i := range names {
		names[i] = fmt.Sprintf("group-%d", i)
	}
	ring := hash.NewRing(names, ch.virtualNodes, ch.hashSeed)

	limit := 0.0
	if ch.loadCap > 1 {
		total := 0.0
		for _, c := range contents {
			total += max(c.ProjectedCost(), 0)
		}
		limit = total / float64(numGroups) * ch.loadCap
	}

	loads := make([]float64, numGroups)
	for _, c := range contents {
		cost := c.ProjectedCost()
		g := ring.NodeIndex(c.Describe())
		if limit > 0 && loads[g]+cost > limit {
			g = divert(ring.Successors(c.Describe()), loads, cost, limit)
		}
		groups[g] = append(groups[g], c)
		loads[g] += cost
	}

	return groups, nil
}

// divert returns the first successor with room under limit, or the least loaded group.
func divert(successors []int, loads []float64, cost, limit float64) int {
	for _, g := range successors {
		if loads[g]+cost <= limit {
			return g
		}
	}

	lightest := 0
	for g := 1; g < len(loads); g++ {
		if loads[g] < loads[lightest] {
			lightest = g
		}
	}

	return lightest
}
