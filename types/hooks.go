package types

import (
	"context"

	"github.com/arloliu/scenepart/scene"
)

// Hooks defines callbacks for node lifecycle events.
//
// All hooks are optional. They run synchronously on the calling rank, between
// collective calls, so a slow hook stalls the whole group at the next
// collective. Hook errors are logged and never fail the node.
//
// Example:
//
//	hooks := &scenepart.Hooks{
//	    OnGroupLoaded: func(ctx context.Context, groupID int, bounds scene.Bounds) error {
//	        log.Printf("group %d bounds %v", groupID, bounds.Box)
//	        return nil
//	    },
//	}
type Hooks struct {
	// OnGroupLoaded is called after a data group has been fully materialized.
	OnGroupLoaded func(ctx context.Context, groupID int, bounds scene.Bounds) error

	// OnCommand is called after a command has been applied on this rank.
	OnCommand func(ctx context.Context, kind CommandKind) error

	// OnStateChanged is called when the node transitions between states.
	OnStateChanged func(ctx context.Context, from, to State) error
}
