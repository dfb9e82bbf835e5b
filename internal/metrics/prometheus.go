package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/scenepart/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Collectors are created and registered lazily on first use, so constructing
// a PrometheusCollector that is never exercised registers nothing.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	// Node metrics
	stateTransitions    *prometheus.CounterVec
	stateDuration       *prometheus.HistogramVec
	materializeTotal    *prometheus.CounterVec
	materializeDuration prometheus.Histogram
	localGroups         prometheus.Gauge

	// Balancer metrics
	assignDuration *prometheus.HistogramVec
	groupCostMin   *prometheus.GaugeVec
	groupCostMax   *prometheus.GaugeVec

	// Collective metrics
	collectiveTotal    *prometheus.CounterVec
	collectiveDuration *prometheus.HistogramVec

	// Protocol metrics
	commandsSent     *prometheus.CounterVec
	commandsReceived *prometheus.CounterVec
	desyncs          prometheus.Counter
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "scenepart" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "scenepart"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.stateTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "node",
			Name:      "state_transitions_total",
			Help:      "Total node state transitions by source and target state.",
		}, []string{"from", "to"})
		p.stateDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "node",
			Name:      "state_duration_seconds",
			Help:      "Time spent in a state before leaving it.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"state"})
		p.materializeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "node",
			Name:      "materialize_total",
			Help:      "Total content materializations by result (success,failure).",
		}, []string{"result"})
		p.materializeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "node",
			Name:      "materialize_duration_seconds",
			Help:      "Time taken to materialize one content item.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		})
		p.localGroups = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "node",
			Name:      "local_groups",
			Help:      "Number of data groups owned by this rank.",
		})

		p.assignDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "balancer",
			Name:      "assign_duration_seconds",
			Help:      "Time taken to compute a content assignment.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"strategy"})
		p.groupCostMin = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "balancer",
			Name:      "group_cost_min",
			Help:      "Lowest accumulated group cost of the last assignment.",
		}, []string{"strategy"})
		p.groupCostMax = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "balancer",
			Name:      "group_cost_max",
			Help:      "Highest accumulated group cost of the last assignment.",
		}, []string{"strategy"})

		p.collectiveTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "collective",
			Name:      "calls_total",
			Help:      "Total collective calls by operation and result.",
		}, []string{"op", "result"})
		p.collectiveDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "collective",
			Name:      "duration_seconds",
			Help:      "Collective call latency including time stalled on peers.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 12),
		}, []string{"op"})

		p.commandsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "protocol",
			Name:      "commands_sent_total",
			Help:      "Total commands issued by the master by kind.",
		}, []string{"kind"})
		p.commandsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "protocol",
			Name:      "commands_received_total",
			Help:      "Total commands applied by a worker by kind.",
		}, []string{"kind"})
		p.desyncs = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "protocol",
			Name:      "desync_total",
			Help:      "Total sentinel mismatches and unknown command tags.",
		})

		p.stateTransitions = register(p.reg, p.stateTransitions)
		p.stateDuration = register(p.reg, p.stateDuration)
		p.materializeTotal = register(p.reg, p.materializeTotal)
		p.materializeDuration = register(p.reg, p.materializeDuration)
		p.localGroups = register(p.reg, p.localGroups)
		p.assignDuration = register(p.reg, p.assignDuration)
		p.groupCostMin = register(p.reg, p.groupCostMin)
		p.groupCostMax = register(p.reg, p.groupCostMax)
		p.collectiveTotal = register(p.reg, p.collectiveTotal)
		p.collectiveDuration = register(p.reg, p.collectiveDuration)
		p.commandsSent = register(p.reg, p.commandsSent)
		p.commandsReceived = register(p.reg, p.commandsReceived)
		p.desyncs = register(p.reg, p.desyncs)
	})
}

// RecordStateTransition increments the transition counter and observes time spent in from.
func (p *PrometheusCollector) RecordStateTransition(from, to types.State, duration float64) {
	p.ensureRegistered()
	p.stateTransitions.WithLabelValues(from.String(), to.String()).Inc()
	p.stateDuration.WithLabelValues(from.String()).Observe(duration)
}

// RecordMaterialize records one content load.
func (p *PrometheusCollector) RecordMaterialize(duration float64, success bool) {
	p.ensureRegistered()
	p.materializeTotal.WithLabelValues(result(success)).Inc()
	p.materializeDuration.Observe(duration)
}

// RecordLocalGroups sets the local group gauge.
func (p *PrometheusCollector) RecordLocalGroups(count int) {
	p.ensureRegistered()
	p.localGroups.Set(float64(count))
}

// RecordAssignment records assignment latency and the resulting cost spread.
func (p *PrometheusCollector) RecordAssignment(strategy string, duration, minCost, maxCost float64) {
	p.ensureRegistered()
	p.assignDuration.WithLabelValues(strategy).Observe(duration)
	p.groupCostMin.WithLabelValues(strategy).Set(minCost)
	p.groupCostMax.WithLabelValues(strategy).Set(maxCost)
}

// RecordCollective records one collective call.
func (p *PrometheusCollector) RecordCollective(op string, duration float64, success bool) {
	p.ensureRegistered()
	p.collectiveTotal.WithLabelValues(op, result(success)).Inc()
	p.collectiveDuration.WithLabelValues(op).Observe(duration)
}

// RecordCommandSent increments the sent counter for kind.
func (p *PrometheusCollector) RecordCommandSent(kind types.CommandKind) {
	p.ensureRegistered()
	p.commandsSent.WithLabelValues(kind.String()).Inc()
}

// RecordCommandReceived increments the received counter for kind.
func (p *PrometheusCollector) RecordCommandReceived(kind types.CommandKind) {
	p.ensureRegistered()
	p.commandsReceived.WithLabelValues(kind.String()).Inc()
}

// RecordDesync increments the desync counter.
func (p *PrometheusCollector) RecordDesync() {
	p.ensureRegistered()
	p.desyncs.Inc()
}

// register registers c, or returns the collector already registered under the
// same descriptor so several nodes in one process share series.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}

	return c
}

func result(success bool) string {
	if success {
		return "success"
	}

	return "failure"
}
