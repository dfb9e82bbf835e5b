package natsutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// ErrServerNotReady is returned when an embedded server does not accept
// connections in time.
var ErrServerNotReady = errors.New("embedded NATS server not ready")

// StartEmbedded starts an in-process NATS server with JetStream on a random
// loopback port and connects to it.
//
// Parameters:
//   - storeDir: JetStream store directory; empty uses a temporary directory
//
// Returns:
//   - *server.Server: Running server; the caller shuts it down
//   - *nats.Conn: Client connection; the caller closes it
//   - error: Startup or connection error
func StartEmbedded(storeDir string) (*server.Server, *nats.Conn, error) {
	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  storeDir,
		NoLog:     true,
		NoSigs:    true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		return nil, nil, ErrServerNotReady
	}

	nc, err := nats.Connect(ns.ClientURL(), nats.Name("scenepart-embedded"))
	if err != nil {
		ns.Shutdown()
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return ns, nc, nil
}
