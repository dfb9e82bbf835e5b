package protocol

import (
	"fmt"

	"github.com/arloliu/scenepart/types"
)

// DesyncError reports a sentinel mismatch observed by a worker.
type DesyncError struct {
	// Command is the command whose sentinel did not match.
	Command types.CommandKind

	// Expected is the worker's own counter value.
	Expected int32

	// Got is the value read from the stream.
	Got int32
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("%s: after %s expected sentinel %#08x, got %#08x",
		types.ErrProtocolDesync, e.Command, uint32(e.Expected), uint32(e.Got))
}

// Unwrap makes errors.Is(err, types.ErrProtocolDesync) hold.
func (e *DesyncError) Unwrap() error {
	return types.ErrProtocolDesync
}
