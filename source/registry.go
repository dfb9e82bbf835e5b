package source

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/arloliu/scenepart/internal/logging"
	"github.com/arloliu/scenepart/types"
)

// ErrNilContent is returned when nil content is registered.
var ErrNilContent = errors.New("nil content")

// Registry holds content descriptors in registration order.
type Registry struct {
	mu       sync.RWMutex
	contents []types.Content
	logger   types.Logger
}

var _ types.ContentSource = (*Registry)(nil)

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger types.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty registry.
//
// Example:
//
//	reg := source.NewRegistry()
//	_ = reg.Register(content.SplitSpheres(atoms, 8)...)
//	_ = reg.Register(content.NewVolume(density))
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{logger: logging.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.logger == nil {
		r.logger = logging.NewNop()
	}

	return r
}

// Register appends content in order. Nothing is registered if any item is nil.
//
// Returns:
//   - error: ErrNilContent if any item is nil
func (r *Registry) Register(contents ...types.Content) error {
	for i, c := range contents {
		if c == nil {
			return fmt.Errorf("item %d: %w", i, ErrNilContent)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range contents {
		r.logger.Debug("content registered",
			"index", len(r.contents),
			"content", c.Describe(),
			"projected_cost", c.ProjectedCost(),
		)
		r.contents = append(r.contents, c)
	}

	return nil
}

// ListContent returns a copy of the registered content in registration order.
//
// Returns:
//   - []types.Content: Registered content
//   - error: Always nil (never fails)
func (r *Registry) ListContent(_ context.Context) ([]types.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]types.Content, len(r.contents))
	copy(result, r.contents)

	return result, nil
}

// Len returns the number of registered items.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.contents)
}

// TotalCost returns the sum of projected costs.
func (r *Registry) TotalCost() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0.0
	for _, c := range r.contents {
		total += c.ProjectedCost()
	}

	return total
}

// Static is a fixed content list implementing types.ContentSource.
type Static []types.Content

var _ types.ContentSource = Static(nil)

// ListContent returns a copy of the list.
func (s Static) ListContent(_ context.Context) ([]types.Content, error) {
	out := make([]types.Content, len(s))
	copy(out, s)

	return out, nil
}
