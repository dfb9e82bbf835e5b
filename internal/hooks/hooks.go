// Package hooks dispatches optional lifecycle callbacks.
package hooks

import (
	"context"

	"github.com/arloliu/scenepart/internal/logging"
	"github.com/arloliu/scenepart/scene"
	"github.com/arloliu/scenepart/types"
)

// NewNop returns hooks whose callbacks all succeed without doing anything.
func NewNop() *types.Hooks {
	return &types.Hooks{
		OnGroupLoaded:  func(context.Context, int, scene.Bounds) error { return nil },
		OnCommand:      func(context.Context, types.CommandKind) error { return nil },
		OnStateChanged: func(context.Context, types.State, types.State) error { return nil },
	}
}

// Runner invokes hooks, skipping unset callbacks and logging failures.
//
// Hook errors never propagate: a failing hook on one rank must not make that
// rank leave the lock-step sequence its peers are still following.
type Runner struct {
	hooks  *types.Hooks
	logger types.Logger
}

// NewRunner creates a runner. A nil hooks value behaves like NewNop().
func NewRunner(h *types.Hooks, logger types.Logger) *Runner {
	if h == nil {
		h = NewNop()
	}

	return &Runner{hooks: h, logger: logging.OrNop(logger)}
}

// GroupLoaded invokes OnGroupLoaded.
func (r *Runner) GroupLoaded(ctx context.Context, groupID int, bounds scene.Bounds) {
	if r.hooks.OnGroupLoaded == nil {
		return
	}
	if err := r.hooks.OnGroupLoaded(ctx, groupID, bounds); err != nil {
		r.logger.Warn("OnGroupLoaded hook failed", "group", groupID, "error", err)
	}
}

// Command invokes OnCommand.
func (r *Runner) Command(ctx context.Context, kind types.CommandKind) {
	if r.hooks.OnCommand == nil {
		return
	}
	if err := r.hooks.OnCommand(ctx, kind); err != nil {
		r.logger.Warn("OnCommand hook failed", "command", kind.String(), "error", err)
	}
}

// StateChanged invokes OnStateChanged.
func (r *Runner) StateChanged(ctx context.Context, from, to types.State) {
	if r.hooks.OnStateChanged == nil {
		return
	}
	if err := r.hooks.OnStateChanged(ctx, from, to); err != nil {
		r.logger.Warn("OnStateChanged hook failed", "from", from.String(), "to", to.String(), "error", err)
	}
}
