package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arloliu/scenepart/types"
)

// metricsServer serves a Prometheus registry over HTTP.
type metricsServer struct {
	server   *http.Server
	listener net.Listener
	logger   types.Logger
}

// startMetricsServer listens on addr and serves /metrics and /health until
// Shutdown. Go runtime and process collectors are registered on reg.
//
// Parameters:
//   - addr: Address to listen on (e.g., ":9090")
//   - reg: Registry holding the scenepart collectors
//   - logger: Logger for server errors
//
// Returns:
//   - *metricsServer: Running server
//   - error: Listen error
func startMetricsServer(addr string, reg *prometheus.Registry, logger types.Logger) (*metricsServer, error) {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, "OK\n")
	})

	s := &metricsServer{
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		listener: ln,
		logger:   logger,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	logger.Info("metrics server started", "address", ln.Addr().String())

	return s, nil
}

// Addr returns the bound listen address.
func (s *metricsServer) Addr() string {
	return s.listener.Addr().String()
}

// Shutdown gracefully stops the server.
func (s *metricsServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}
