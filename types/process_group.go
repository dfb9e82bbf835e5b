package types

import "context"

// ProcessGroup is a set of cooperating processes with stable ranks in [0, Size).
//
// Every method is a collective: all members must call it, in the same order,
// with compatible arguments. Each call blocks until local completion. Any
// error is fatal to the whole group; there is no partial-failure recovery.
type ProcessGroup interface {
	// Rank returns this process's rank within the group.
	Rank() int

	// Size returns the number of members. Always >= 1.
	Size() int

	// Broadcast copies buf from root to every other member.
	//
	// On non-root members buf is overwritten with exactly len(buf) bytes from
	// the root's stream. Callers agree on lengths out of band (fixed-size
	// fields or a previously broadcast length prefix).
	Broadcast(ctx context.Context, root int, buf []byte) error

	// AllReduceMin replaces each element of values with its group-wide minimum.
	AllReduceMin(ctx context.Context, values []float64) error

	// AllReduceMax replaces each element of values with its group-wide maximum.
	AllReduceMax(ctx context.Context, values []float64) error

	// Barrier returns only after every member has called Barrier.
	Barrier(ctx context.Context) error

	// Gather collects equally sized buffers at root, ordered by rank.
	// Non-root members receive a nil result.
	Gather(ctx context.Context, root int, buf []byte) ([][]byte, error)

	// Split partitions the group by key, preserving relative rank order within
	// each partition, and returns the partition this member belongs to.
	Split(ctx context.Context, key bool) (ProcessGroup, error)
}
