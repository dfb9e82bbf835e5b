// Package natsutil classifies NATS client errors.
package natsutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/scenepart/types"
)

// IsConnectivityError reports whether err was caused by losing the NATS connection.
//
// Includes client timeouts, disconnections, closed connections and the
// equivalent socket-level failures.
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrDisconnected) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrConnectionDraining) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "i/o timeout")
}

// WrapTransportError marks connectivity failures as types.ErrGroupClosed so
// callers can tell a dead link from a malformed request.
func WrapTransportError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsConnectivityError(err) {
		return fmt.Errorf("%s: %w: %w", op, types.ErrGroupClosed, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
