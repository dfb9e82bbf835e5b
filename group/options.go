package group

import "github.com/arloliu/scenepart/types"

// Option configures a Comm.
type Option func(*options)

type options struct {
	id      string
	logger  types.Logger
	metrics types.MetricsCollector
}

// WithID sets the root communicator name. Defaults to "world".
//
// Every member of one world must use the same name.
func WithID(id string) Option {
	return func(o *options) {
		o.id = id
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
