package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/scenepart/types"
)

func TestPrometheusCollector_LazyRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = NewPrometheus(reg, "test")

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Empty(t, families)
}

func TestPrometheusCollector_Protocol(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "test")

	p.RecordCommandSent(types.CommandResize)
	p.RecordCommandSent(types.CommandResize)
	p.RecordCommandSent(types.CommandRenderFrame)
	p.RecordCommandReceived(types.CommandTerminate)
	p.RecordDesync()

	require.InDelta(t, 2.0, testutil.ToFloat64(p.commandsSent.WithLabelValues("resize")), 0)
	require.InDelta(t, 1.0, testutil.ToFloat64(p.commandsSent.WithLabelValues("render_frame")), 0)
	require.InDelta(t, 1.0, testutil.ToFloat64(p.commandsReceived.WithLabelValues("terminate")), 0)
	require.InDelta(t, 1.0, testutil.ToFloat64(p.desyncs), 0)
}

func TestPrometheusCollector_NodeAndBalancer(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "test")

	p.RecordStateTransition(types.StateInit, types.StateLoading, 0.1)
	p.RecordMaterialize(0.01, true)
	p.RecordMaterialize(0.02, false)
	p.RecordLocalGroups(4)
	p.RecordAssignment("lpt", 0.001, 50, 85)
	p.RecordCollective("barrier", 0.002, true)

	require.InDelta(t, 1.0, testutil.ToFloat64(p.stateTransitions.WithLabelValues("Init", "Loading")), 0)
	require.InDelta(t, 1.0, testutil.ToFloat64(p.materializeTotal.WithLabelValues("failure")), 0)
	require.InDelta(t, 4.0, testutil.ToFloat64(p.localGroups), 0)
	require.InDelta(t, 85.0, testutil.ToFloat64(p.groupCostMax.WithLabelValues("lpt")), 0)
	require.InDelta(t, 50.0, testutil.ToFloat64(p.groupCostMin.WithLabelValues("lpt")), 0)
	require.InDelta(t, 1.0, testutil.ToFloat64(p.collectiveTotal.WithLabelValues("barrier", "success")), 0)

	count, err := testutil.GatherAndCount(reg, "test_collective_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestPrometheusCollector_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := NewPrometheus(reg, "shared")
	b := NewPrometheus(reg, "shared")

	a.RecordDesync()
	b.RecordDesync()

	require.InDelta(t, 2.0, testutil.ToFloat64(a.desyncs), 0)
	require.Same(t, a.desyncs, b.desyncs)
}
