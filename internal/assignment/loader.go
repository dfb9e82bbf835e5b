package assignment

import (
	"context"
	"fmt"
	"time"

	"github.com/arloliu/scenepart/internal/hooks"
	"github.com/arloliu/scenepart/internal/logging"
	"github.com/arloliu/scenepart/internal/metrics"
	"github.com/arloliu/scenepart/scene"
	"github.com/arloliu/scenepart/types"
)

// LoaderConfig holds loader dependencies. All fields are optional.
type LoaderConfig struct {
	Logger  types.Logger
	Metrics types.MetricsCollector
	Hooks   *types.Hooks
}

// Loader materializes planned groups into a local model.
type Loader struct {
	logger  types.Logger
	metrics types.MetricsCollector
	hooks   *hooks.Runner
}

// NewLoader creates a loader.
func NewLoader(cfg LoaderConfig) *Loader {
	logger := logging.OrNop(cfg.Logger)

	return &Loader{
		logger:  logger,
		metrics: metrics.OrNop(cfg.Metrics),
		hooks:   hooks.NewRunner(cfg.Hooks, logger),
	}
}

// Load materializes the owned groups in order.
//
// Loading is sequential and stops at the first failure. A partially loaded
// group is never added to the model.
//
// Parameters:
//   - ctx: Checked between content items
//   - plan: Full assignment
//   - owned: Group IDs to load, from OwnedGroups
//
// Returns:
//   - *scene.LocalModel: One DataGroup per owned ID (empty for a passive rank)
//   - error: ErrMaterializeFailed wrapping the content error, or ctx.Err()
func (l *Loader) Load(ctx context.Context, plan *Plan, owned []int) (*scene.LocalModel, error) {
	model := scene.NewLocalModel()

	for _, id := range owned {
		if id < 0 || id >= plan.NumGroups() {
			return nil, fmt.Errorf("%w: group %d outside plan of %d groups", types.ErrInvalidConfig, id, plan.NumGroups())
		}

		group := scene.NewDataGroup(id)
		for _, c := range plan.Group(id) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			start := time.Now()
			err := c.Materialize(group)
			l.metrics.RecordMaterialize(time.Since(start).Seconds(), err == nil)
			if err != nil {
				l.logger.Error("content materialization failed",
					"group", id,
					"content", c.Describe(),
					"error", err,
				)

				return nil, fmt.Errorf("group %d: %s: %w: %w", id, c.Describe(), types.ErrMaterializeFailed, err)
			}
		}

		model.Add(group)
		bounds := group.Bounds()
		l.logger.Debug("data group loaded",
			"group", id,
			"items", len(plan.Group(id)),
			"empty", bounds.IsEmpty(),
		)

		l.hooks.GroupLoaded(ctx, id, bounds)
	}

	l.metrics.RecordLocalGroups(model.Size())

	return model, nil
}
