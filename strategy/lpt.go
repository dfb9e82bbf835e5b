package strategy

import (
	"container/heap"
	"slices"

	"github.com/arloliu/scenepart/types"
)

// LPT implements greedy longest-processing-time bin packing.
//
// Content is sorted by projected cost (stable, so equal costs keep
// registration order) and each item is appended to the currently cheapest
// group. Ties between equally loaded groups go to the group that has waited
// longest: lower indexes first on the empty seed, then first-in first-out, so
// zero-cost items rotate through the least-loaded groups.
// The peak group cost is within a factor of two of optimal and the spread
// between the most and least loaded group never exceeds the largest item cost.
type LPT struct {
	ascending bool
}

var _ types.AssignmentStrategy = (*LPT)(nil)

// LPTOption configures an LPT strategy.
type LPTOption func(*LPT)

// NewLPT creates a greedy bin packing strategy.
//
// Example:
//
//	groups, err := strategy.NewLPT().Assign(contents, 8)
func NewLPT(opts ...LPTOption) *LPT {
	l := &LPT{}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// WithSmallestFirst feeds items in ascending cost order instead of descending.
//
// This reproduces the placement of older loaders that sorted ascending before
// running the same greedy pass. The spread bound still holds, but the peak
// group cost is typically worse than with the default order.
func WithSmallestFirst() LPTOption {
	return func(l *LPT) {
		l.ascending = true
	}
}

// Name implements Named.
func (l *LPT) Name() string {
	if l.ascending {
		return NameLPT + "_ascending"
	}

	return NameLPT
}

// Assign distributes contents across numGroups groups.
//
// Parameters:
//   - contents: Content in registration order
//   - numGroups: Number of data groups
//
// Returns:
//   - [][]types.Content: Content per group, in the order items were placed
//   - error: types.ErrInvalidGroupCount if numGroups <= 0
func (l *LPT) Assign(contents []types.Content, numGroups int) ([][]types.Content, error) {
	if numGroups <= 0 {
		return nil, types.ErrInvalidGroupCount
	}

	groups := emptyGroups(numGroups)
	if len(contents) == 0 {
		return groups, nil
	}

	order := make([]int, len(contents))
	costs := make([]float64, len(contents))
	for i, c := range contents {
		order[i] = i
		costs[i] = c.ProjectedCost()
	}
	slices.SortStableFunc(order, func(a, b int) int {
		ca, cb := costs[a], costs[b]
		if l.ascending {
			ca, cb = cb, ca
		}
		switch {
		case ca > cb:
			return -1
		case ca < cb:
			return 1
		default:
			return 0
		}
	})

	h := make(loadHeap, numGroups)
	for i := range h {
		h[i] = groupLoad{index: i, seq: uint64(i)}
	}
	heap.Init(&h)

	seq := uint64(numGroups)
	for _, idx := range order {
		least := heap.Pop(&h).(groupLoad) //nolint:forcetypeassert
		groups[least.index] = append(groups[least.index], contents[idx])
		least.cost += costs[idx]
		least.seq = seq
		seq++
		heap.Push(&h, least)
	}

	return groups, nil
}

type groupLoad struct {
	cost  float64
	index int
	seq   uint64 // push order, breaks cost ties
}

// loadHeap is a min-heap of group loads ordered by (cost, seq).
type loadHeap []groupLoad

func (h loadHeap) Len() int { return len(h) }

func (h loadHeap) Less(i, j int) bool {
	if h[i].cost != h[j].cost {
		return h[i].cost < h[j].cost
	}

	return h[i].seq < h[j].seq
}

func (h loadHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *loadHeap) Push(x any) { *h = append(*h, x.(groupLoad)) } //nolint:forcetypeassert

func (h *loadHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]

	return item
}
