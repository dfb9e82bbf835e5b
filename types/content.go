package types

import (
	"context"

	"github.com/arloliu/scenepart/scene"
)

// Content is an independently loadable piece of a scene.
//
// A single source file may register several Content values, one per logical
// shard. Content is immutable after construction and is materialized exactly
// once, into the data group the assignment strategy placed it in.
type Content interface {
	// ProjectedCost estimates the load and memory weight of this content.
	// Values are only comparable within one registry and are used for
	// balancing, never for correctness. Zero and negative costs are allowed.
	ProjectedCost() float64

	// Materialize loads the content into the given data group.
	Materialize(group *scene.DataGroup) error

	// Describe returns a stable, human-readable name for the content.
	Describe() string
}

// ContentSource lists the registered content in registration order.
//
// Every process must observe the same list in the same order; the assignment
// is recomputed independently on each rank rather than transmitted.
type ContentSource interface {
	// ListContent returns all registered content.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//
	// Returns:
	//   - []Content: Content in registration order
	//   - error: Discovery error (nil on success)
	ListContent(ctx context.Context) ([]Content, error)
}

// AssignmentStrategy maps content onto a fixed number of data groups.
//
// Strategy implementations must:
//   - Be deterministic (same input order and group count → identical output)
//   - Return exactly numGroups lists, each item appearing exactly once
//   - Return ErrInvalidGroupCount for numGroups <= 0
//   - Return numGroups empty lists for empty input
type AssignmentStrategy interface {
	// Assign distributes contents across numGroups data groups.
	//
	// Parameters:
	//   - contents: Content in registration order
	//   - numGroups: Number of data groups
	//
	// Returns:
	//   - [][]Content: Content per group index
	//   - error: ErrInvalidGroupCount for a non-positive group count
	Assign(contents []Content, numGroups int) ([][]Content, error)
}
