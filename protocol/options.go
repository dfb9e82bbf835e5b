package protocol

import (
	"github.com/arloliu/scenepart/engine"
	"github.com/arloliu/scenepart/types"
)

// Option configures a Master or Worker.
type Option func(*options)

type options struct {
	root    int
	engine  engine.Engine
	logger  types.Logger
	metrics types.MetricsCollector
	hooks   *types.Hooks
}

// WithRoot sets the master rank within the process group (default: 0).
func WithRoot(rank int) Option {
	return func(o *options) {
		o.root = rank
	}
}

// WithEngine sets the local render engine. A master without an engine only
// broadcasts; a worker without one follows the stream and discards payloads.
func WithEngine(e engine.Engine) Option {
	return func(o *options) {
		o.engine = e
	}
}

// WithLogger sets the logger.
func WithLogger(logger types.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m types.MetricsCollector) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithHooks sets lifecycle hooks. OnCommand fires after each applied command.
func WithHooks(h *types.Hooks) Option {
	return func(o *options) {
		o.hooks = h
	}
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return o
}
