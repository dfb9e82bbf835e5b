package scenepart

import "github.com/arloliu/scenepart/engine"

// Option configures a Node with optional dependencies.
type Option func(*nodeOptions)

type nodeOptions struct {
	strategy AssignmentStrategy
	engine   engine.Engine
	hooks    *Hooks
	metrics  MetricsCollector
	logger   Logger
}

// WithStrategy overrides the strategy named by Config.Strategy.
//
// Parameters:
//   - s: AssignmentStrategy implementation; must be deterministic
//
// Returns:
//   - Option: Functional option for NewNode
//
// Example:
//
//	node, err := scenepart.NewNode(&cfg, world, registry,
//	    scenepart.WithStrategy(strategy.NewLPT(strategy.WithSmallestFirst())),
//	)
func WithStrategy(s AssignmentStrategy) Option {
	return func(o *nodeOptions) {
		o.strategy = s
	}
}

// WithEngine sets the local render engine. Without one the node still loads
// its data groups and follows the command stream, but renders nothing.
//
// Parameters:
//   - e: Engine implementation
//
// Returns:
//   - Option: Functional option for NewNode
func WithEngine(e engine.Engine) Option {
	return func(o *nodeOptions) {
		o.engine = e
	}
}

// WithHooks sets lifecycle event hooks.
//
// Parameters:
//   - hooks: Hooks structure with callback functions
//
// Returns:
//   - Option: Functional option for NewNode
//
// Example:
//
//	hooks := &scenepart.Hooks{
//	    OnStateChanged: func(ctx context.Context, from, to scenepart.State) error {
//	        log.Printf("%s -> %s", from, to)
//	        return nil
//	    },
//	}
//	node, err := scenepart.NewNode(&cfg, world, registry, scenepart.WithHooks(hooks))
func WithHooks(hooks *Hooks) Option {
	return func(o *nodeOptions) {
		o.hooks = hooks
	}
}

// WithMetrics sets a metrics collector.
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *nodeOptions) {
		o.metrics = metrics
	}
}

// WithLogger sets a logger.
func WithLogger(logger Logger) Option {
	return func(o *nodeOptions) {
		o.logger = logger
	}
}
