package cli

import (
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/scenepart/internal/logging"
	"github.com/arloliu/scenepart/internal/metrics"
	"github.com/arloliu/scenepart/types"
)

func TestMetricsServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewPrometheus(reg, "sptest")
	collector.RecordCommandSent(types.CommandRenderFrame)

	srv, err := startMetricsServer("127.0.0.1:0", reg, logging.NewTest(t))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, srv.Shutdown()) })

	get := func(path string) string {
		resp, err := http.Get("http://" + srv.Addr() + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		return string(body)
	}

	require.Equal(t, "OK\n", get("/health"))

	body := get("/metrics")
	require.Contains(t, body, "go_goroutines")
	require.Contains(t, body, "sptest_")
}
