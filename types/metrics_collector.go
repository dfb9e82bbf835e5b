package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
//
// This interface composes smaller, domain-focused interfaces for better modularity.
type MetricsCollector interface {
	NodeMetrics
	BalancerMetrics
	CollectiveMetrics
	ProtocolMetrics
}

// NodeMetrics defines metrics for node-level operations.
type NodeMetrics interface {
	// RecordStateTransition records a node state transition event.
	RecordStateTransition(from, to State, duration float64)

	// RecordMaterialize records loading one content item.
	//
	// Parameters:
	//   - duration: Time taken in seconds
	//   - success: true if the content loaded
	RecordMaterialize(duration float64, success bool)

	// RecordLocalGroups sets the number of data groups owned by this rank (gauge metric).
	RecordLocalGroups(count int)
}

// BalancerMetrics defines metrics for content assignment.
type BalancerMetrics interface {
	// RecordAssignment records one assignment computation.
	//
	// Parameters:
	//   - strategy: Strategy name ("lpt", "round_robin", "consistent_hash")
	//   - duration: Time taken in seconds
	//   - minCost: Lowest accumulated group cost
	//   - maxCost: Highest accumulated group cost
	RecordAssignment(strategy string, duration, minCost, maxCost float64)
}

// CollectiveMetrics defines metrics for process group collectives.
type CollectiveMetrics interface {
	// RecordCollective records a collective call.
	//
	// Parameters:
	//   - op: Operation ("broadcast", "allreduce_min", "allreduce_max", "barrier", "gather", "split")
	//   - duration: Time taken in seconds, including time spent stalled on peers
	//   - success: false if the call failed
	RecordCollective(op string, duration float64, success bool)
}

// ProtocolMetrics defines metrics for the command protocol.
type ProtocolMetrics interface {
	// RecordCommandSent records a command issued by the master.
	RecordCommandSent(kind CommandKind)

	// RecordCommandReceived records a command applied by a worker.
	RecordCommandReceived(kind CommandKind)

	// RecordDesync records a sentinel mismatch or unknown tag.
	RecordDesync()
}
