// Package metrics provides types.MetricsCollector implementations.
package metrics

import "github.com/arloliu/scenepart/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Useful for testing or when external
// metrics collection is used.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
//
// Example:
//
//	node, err := scenepart.NewNode(&cfg, pg, reg, scenepart.WithMetrics(metrics.NewNop()))
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// OrNop returns m, or a NopMetrics when m is nil.
func OrNop(m types.MetricsCollector) types.MetricsCollector {
	if m == nil {
		return NewNop()
	}

	return m
}

// NodeMetrics implementation

// RecordStateTransition discards the state transition metric.
func (n *NopMetrics) RecordStateTransition(_ /* from */, _ /* to */ types.State, _ /* duration */ float64) {
}

// RecordMaterialize discards the materialize metric.
func (n *NopMetrics) RecordMaterialize(_ /* duration */ float64, _ /* success */ bool) {}

// RecordLocalGroups discards the local group gauge.
func (n *NopMetrics) RecordLocalGroups(_ /* count */ int) {}

// BalancerMetrics implementation

// RecordAssignment discards the assignment metric.
func (n *NopMetrics) RecordAssignment(_ /* strategy */ string, _ /* duration */, _ /* minCost */, _ /* maxCost */ float64) {
}

// CollectiveMetrics implementation

// RecordCollective discards the collective metric.
func (n *NopMetrics) RecordCollective(_ /* op */ string, _ /* duration */ float64, _ /* success */ bool) {}

// ProtocolMetrics implementation

// RecordCommandSent discards the command metric.
func (n *NopMetrics) RecordCommandSent(_ /* kind */ types.CommandKind) {}

// RecordCommandReceived discards the command metric.
func (n *NopMetrics) RecordCommandReceived(_ /* kind */ types.CommandKind) {}

// RecordDesync discards the desync metric.
func (n *NopMetrics) RecordDesync() {}
