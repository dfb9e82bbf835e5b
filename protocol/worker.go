package protocol

import (
	"context"
	"errors"
	"fmt"

	"github.com/arloliu/scenepart/engine"
	"github.com/arloliu/scenepart/internal/hooks"
	"github.com/arloliu/scenepart/internal/logging"
	"github.com/arloliu/scenepart/internal/metrics"
	"github.com/arloliu/scenepart/types"
)

// Worker follows the master's command stream on a non-root rank.
type Worker struct {
	pg       types.ProcessGroup
	root     int
	stream   *stream
	sentinel *Sentinel
	engine   engine.Engine

	logger  types.Logger
	metrics types.MetricsCollector
	hooks   *hooks.Runner

	size       types.Size
	terminated bool
}

// NewWorker creates a worker endpoint. It must not be called on the root rank.
//
// Returns:
//   - *Worker: Worker endpoint
//   - error: ErrProcessGroupRequired, or ErrInvalidRank when the root is out
//     of range or is this rank
func NewWorker(pg types.ProcessGroup, opts ...Option) (*Worker, error) {
	if pg == nil {
		return nil, types.ErrProcessGroupRequired
	}

	o := buildOptions(opts)
	if o.root < 0 || o.root >= pg.Size() {
		return nil, fmt.Errorf("%w: master rank %d outside [0, %d)", types.ErrInvalidRank, o.root, pg.Size())
	}
	if pg.Rank() == o.root {
		return nil, fmt.Errorf("%w: rank %d is the master", types.ErrInvalidRank, o.root)
	}

	logger := logging.OrNop(o.logger)

	return &Worker{
		pg:       pg,
		root:     o.root,
		stream:   newStream(pg, o.root),
		sentinel: NewSentinel(),
		engine:   o.engine,
		logger:   logger,
		metrics:  metrics.OrNop(o.metrics),
		hooks:    hooks.NewRunner(o.hooks, logger),
	}, nil
}

// Run processes commands until terminate.
//
// Returns:
//   - error: nil after terminate; a *DesyncError (ErrProtocolDesync),
//     ErrCollectiveFailed or engine error otherwise. Every error is fatal.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker loop started", "rank", w.pg.Rank(), "master", w.root)

	for {
		kind, err := w.Step(ctx)
		if err != nil {
			return err
		}
		if kind == types.CommandTerminate {
			w.logger.Info("worker loop terminated", "rank", w.pg.Rank(), "sentinel", w.sentinel.Current())
			return nil
		}
	}
}

// Step receives and applies exactly one command.
func (w *Worker) Step(ctx context.Context) (types.CommandKind, error) {
	if w.terminated {
		return types.CommandTerminate, types.ErrTerminated
	}

	var tag int32
	if err := w.stream.int32(ctx, &tag); err != nil {
		return 0, fmt.Errorf("receive tag: %w", err)
	}
	kind := types.CommandKind(tag)

	var err error
	switch kind {
	case types.CommandSetCamera:
		var camera types.Camera
		err = w.handle(ctx, kind,
			func(ctx context.Context) error { return transferCamera(ctx, w.stream, &camera) },
			func(e engine.Engine) error { return e.SetCamera(camera) },
		)
	case types.CommandSetLights:
		var lights types.Lights
		err = w.handle(ctx, kind,
			func(ctx context.Context) error { return transferLights(ctx, w.stream, &lights) },
			func(e engine.Engine) error { return e.SetLights(lights) },
		)
	case types.CommandSetTransferFunction:
		var tf types.TransferFunction
		err = w.handle(ctx, kind,
			func(ctx context.Context) error { return transferTransferFunction(ctx, w.stream, &tf) },
			func(e engine.Engine) error { return e.SetTransferFunction(tf) },
		)
	case types.CommandResize:
		var size types.Size
		err = w.handle(ctx, kind,
			func(ctx context.Context) error { return transferSize(ctx, w.stream, &size) },
			func(e engine.Engine) error { return e.Resize(size, nil) },
		)
		if err == nil {
			w.size = size
		}
	case types.CommandRenderFrame:
		err = w.handle(ctx, kind, nil, func(e engine.Engine) error { return e.RenderFrame() })
	case types.CommandResetAccumulation:
		err = w.handle(ctx, kind, nil, func(e engine.Engine) error { return e.ResetAccumulation() })
	case types.CommandScreenshot:
		// The display lives on the master.
		err = w.handle(ctx, kind, nil, nil)
	case types.CommandTerminate:
		err = w.handle(ctx, kind, nil, func(e engine.Engine) error { return e.Terminate() })
		if err == nil {
			w.terminated = true
		}
	default:
		w.metrics.RecordDesync()
		w.logger.Error("unknown command tag", "tag", tag, "rank", w.pg.Rank(), "sentinel", w.sentinel.Current())
		err = fmt.Errorf("%w: unknown command tag %#08x after sentinel %#08x",
			types.ErrProtocolDesync, uint32(tag), uint32(w.sentinel.Current()))
	}

	return kind, err
}

// Size returns the last frame buffer size received.
func (w *Worker) Size() types.Size {
	return w.size
}

// Terminated reports whether a terminate command was applied.
func (w *Worker) Terminated() bool {
	return w.terminated
}

func (w *Worker) handle(
	ctx context.Context,
	kind types.CommandKind,
	payload func(context.Context) error,
	local func(engine.Engine) error,
) error {
	if payload != nil {
		if err := payload(ctx); err != nil {
			if errors.Is(err, types.ErrProtocolDesync) {
				w.metrics.RecordDesync()
			}

			return fmt.Errorf("%s: receive payload: %w", kind, err)
		}
	}
	if err := w.checkSentinel(ctx, kind); err != nil {
		return err
	}
	w.metrics.RecordCommandReceived(kind)

	var localErr error
	if w.engine != nil && local != nil {
		if err := local(w.engine); err != nil {
			localErr = fmt.Errorf("%s: local engine: %w", kind, err)
		}
	}

	// Peers are already inside the resize barrier; skipping it would leave
	// their streams mid-collective.
	if kind == types.CommandResize {
		if err := w.pg.Barrier(ctx); err != nil {
			return errors.Join(localErr, fmt.Errorf("%s: barrier: %w", kind, err))
		}
	}
	if localErr != nil {
		return localErr
	}

	w.hooks.Command(ctx, kind)

	return nil
}

// checkSentinel reads the end-of-message value and compares it with the
// worker's own counter.
func (w *Worker) checkSentinel(ctx context.Context, kind types.CommandKind) error {
	var got int32
	if err := w.stream.int32(ctx, &got); err != nil {
		return fmt.Errorf("%s: receive sentinel: %w", kind, err)
	}

	expected := w.sentinel.Next()
	if got != expected {
		w.metrics.RecordDesync()
		w.logger.Error("protocol desync",
			"command", kind.String(),
			"expected", expected,
			"got", got,
			"rank", w.pg.Rank(),
		)

		return &DesyncError{Command: kind, Expected: expected, Got: got}
	}

	return nil
}
