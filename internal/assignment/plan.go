package assignment

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/arloliu/scenepart/internal/metrics"
	"github.com/arloliu/scenepart/strategy"
	"github.com/arloliu/scenepart/types"
)

// Plan is the full content-to-group assignment.
type Plan struct {
	strategy string
	groups   [][]types.Content
	costs    []float64
}

// GroupSummary describes one planned group.
type GroupSummary struct {
	ID    int      `json:"id"    yaml:"id"`
	Cost  float64  `json:"cost"  yaml:"cost"`
	Items []string `json:"items" yaml:"items"`
}

// NewPlan runs s over contents and validates the result.
//
// Parameters:
//   - contents: Content in registration order
//   - numGroups: Number of data groups
//   - s: Assignment strategy
//   - m: Metrics collector (may be nil)
//
// Returns:
//   - *Plan: Validated assignment
//   - error: ErrAssignmentStrategyRequired, the strategy error, or
//     ErrInvalidConfig if the strategy result is not a partition of contents
func NewPlan(contents []types.Content, numGroups int, s types.AssignmentStrategy, m types.MetricsCollector) (*Plan, error) {
	if s == nil {
		return nil, types.ErrAssignmentStrategyRequired
	}
	m = metrics.OrNop(m)

	start := time.Now()
	groups, err := s.Assign(contents, numGroups)
	if err != nil {
		return nil, fmt.Errorf("assign %d items to %d groups: %w", len(contents), numGroups, err)
	}
	elapsed := time.Since(start).Seconds()

	if len(groups) != numGroups {
		return nil, fmt.Errorf("%w: strategy returned %d groups, want %d", types.ErrInvalidConfig, len(groups), numGroups)
	}
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	if total != len(contents) {
		return nil, fmt.Errorf("%w: strategy placed %d items, want %d", types.ErrInvalidConfig, total, len(contents))
	}

	p := &Plan{
		strategy: strategy.NameOf(s),
		groups:   groups,
		costs:    strategy.GroupCosts(groups),
	}
	lo, hi := p.Spread()
	m.RecordAssignment(p.strategy, elapsed, lo, hi)

	return p, nil
}

// Strategy returns the name of the strategy that produced the plan.
func (p *Plan) Strategy() string { return p.strategy }

// NumGroups returns the number of data groups.
func (p *Plan) NumGroups() int { return len(p.groups) }

// Group returns the content assigned to group id, or nil for an unknown id.
func (p *Plan) Group(id int) []types.Content {
	if id < 0 || id >= len(p.groups) {
		return nil
	}

	return p.groups[id]
}

// Costs returns a copy of the per-group accumulated cost.
func (p *Plan) Costs() []float64 {
	return slices.Clone(p.costs)
}

// Spread returns the lowest and highest group cost.
func (p *Plan) Spread() (float64, float64) {
	if len(p.costs) == 0 {
		return 0, 0
	}

	return slices.Min(p.costs), slices.Max(p.costs)
}

// Summary lists every group with its cost and content names.
func (p *Plan) Summary() []GroupSummary {
	out := make([]GroupSummary, len(p.groups))
	for i, g := range p.groups {
		names := make([]string, len(g))
		for j, c := range g {
			names[j] = c.Describe()
		}
		out[i] = GroupSummary{ID: i, Cost: p.costs[i], Items: names}
	}

	return out
}

// Fingerprint hashes group membership, order and costs.
//
// Two ranks that computed the same plan produce the same fingerprint. The
// value is not stable across releases and must not be persisted.
func (p *Plan) Fingerprint() uint64 {
	h := xxh3.New()
	var buf [8]byte

	writeUint := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}

	writeUint(uint64(len(p.groups)))
	for _, g := range p.groups {
		writeUint(uint64(len(g)))
		for _, c := range g {
			name := c.Describe()
			writeUint(uint64(len(name)))
			_, _ = h.WriteString(name)
			writeUint(math.Float64bits(c.ProjectedCost()))
		}
	}

	return h.Sum64()
}
