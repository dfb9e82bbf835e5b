package protocol

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/arloliu/scenepart/engine"
	"github.com/arloliu/scenepart/internal/hooks"
	"github.com/arloliu/scenepart/internal/logging"
	"github.com/arloliu/scenepart/internal/metrics"
	"github.com/arloliu/scenepart/types"
)

// Master issues commands to every worker of a process group.
//
// A Master is not safe for concurrent use; commands are issued one at a time
// from a single goroutine.
type Master struct {
	pg       types.ProcessGroup
	root     int
	stream   *stream
	sentinel *Sentinel
	engine   engine.Engine

	logger  types.Logger
	metrics types.MetricsCollector
	hooks   *hooks.Runner

	size       types.Size
	host       []uint32
	terminated bool
}

// NewMaster creates the master endpoint. It must be called on the root rank.
//
// Parameters:
//   - pg: Process group spanning the master and every worker
//   - opts: WithRoot, WithEngine, WithLogger, WithMetrics, WithHooks
//
// Returns:
//   - *Master: Master endpoint
//   - error: ErrProcessGroupRequired, ErrInvalidRank, or ErrNotMaster when
//     this process is not the root rank
func NewMaster(pg types.ProcessGroup, opts ...Option) (*Master, error) {
	if pg == nil {
		return nil, types.ErrProcessGroupRequired
	}

	o := buildOptions(opts)
	if o.root < 0 || o.root >= pg.Size() {
		return nil, fmt.Errorf("%w: master rank %d outside [0, %d)", types.ErrInvalidRank, o.root, pg.Size())
	}
	if pg.Rank() != o.root {
		return nil, fmt.Errorf("%w: rank %d, master is %d", types.ErrNotMaster, pg.Rank(), o.root)
	}

	logger := logging.OrNop(o.logger)

	return &Master{
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

// SetCamera broadcasts a camera update.
func (m *Master) SetCamera(ctx context.Context, camera types.Camera) error {
	return m.issue(ctx, types.CommandSetCamera,
		func(ctx context.Context) error { return transferCamera(ctx, m.stream, &camera) },
		func(e engine.Engine) error { return e.SetCamera(camera) },
	)
}

// SetLights broadcasts a replacement light set.
func (m *Master) SetLights(ctx context.Context, lights types.Lights) error {
	if err := checkLen(len(lights.Points), len(lights.Directional)); err != nil {
		return err
	}

	return m.issue(ctx, types.CommandSetLights,
		func(ctx context.Context) error { return transferLights(ctx, m.stream, &lights) },
		func(e engine.Engine) error { return e.SetLights(lights) },
	)
}

// SetTransferFunction broadcasts a volume transfer function.
func (m *Master) SetTransferFunction(ctx context.Context, tf types.TransferFunction) error {
	if err := checkLen(len(tf.ColorMap)); err != nil {
		return err
	}

	return m.issue(ctx, types.CommandSetTransferFunction,
		func(ctx context.Context) error { return transferTransferFunction(ctx, m.stream, &tf) },
		func(e engine.Engine) error { return e.SetTransferFunction(tf) },
	)
}

// Resize broadcasts a frame buffer size, resizes locally, then waits at a
// barrier until every rank has resized.
//
// The master allocates the host frame buffer that Screenshot encodes.
func (m *Master) Resize(ctx context.Context, size types.Size) error {
	if size.Pixels() == 0 {
		return fmt.Errorf("%w: frame size %dx%d", types.ErrInvalidConfig, size.Width, size.Height)
	}

	host := make([]uint32, size.Pixels())
	err := m.issue(ctx, types.CommandResize,
		func(ctx context.Context) error { return transferSize(ctx, m.stream, &size) },
		func(e engine.Engine) error { return e.Resize(size, host) },
	)
	if err != nil {
		return err
	}
	m.size = size
	m.host = host

	return nil
}

// RenderFrame asks every rank to render one frame.
func (m *Master) RenderFrame(ctx context.Context) error {
	return m.issue(ctx, types.CommandRenderFrame, nil, func(e engine.Engine) error { return e.RenderFrame() })
}

// ResetAccumulation clears progressive accumulation on every rank.
func (m *Master) ResetAccumulation(ctx context.Context) error {
	return m.issue(ctx, types.CommandResetAccumulation, nil, func(e engine.Engine) error { return e.ResetAccumulation() })
}

// Screenshot announces a capture and writes the master's host frame buffer
// to w as PNG. Workers only consume the tag and sentinel.
//
// Returns:
//   - error: ErrNotLoaded before the first Resize, or a write error
func (m *Master) Screenshot(ctx context.Context, w io.Writer) error {
	if m.terminated {
		return fmt.Errorf("%s: %w", types.CommandScreenshot, types.ErrTerminated)
	}
	if m.host == nil {
		return fmt.Errorf("%w: screenshot before resize", types.ErrNotLoaded)
	}
	if err := m.issue(ctx, types.CommandScreenshot, nil, nil); err != nil {
		return err
	}

	if err := png.Encode(w, frameImage(m.size, m.host)); err != nil {
		return fmt.Errorf("encode screenshot: %w", err)
	}

	return nil
}

// Terminate ends every worker loop and the local engine. Later commands
// return ErrTerminated.
func (m *Master) Terminate(ctx context.Context) error {
	err := m.issue(ctx, types.CommandTerminate, nil, func(e engine.Engine) error { return e.Terminate() })
	if err == nil {
		m.terminated = true
	}

	return err
}

// Terminated reports whether Terminate completed.
func (m *Master) Terminated() bool {
	return m.terminated
}

// Sentinel returns the sentinel value of the last command sent.
func (m *Master) Sentinel() int32 {
	return m.sentinel.Current()
}

// issue sends tag, payload and sentinel, applies the command locally and,
// for resize, meets the workers at a barrier.
func (m *Master) issue(
	ctx context.Context,
	kind types.CommandKind,
	payload func(context.Context) error,
	local func(engine.Engine) error,
) error {
	if m.terminated {
		return fmt.Errorf("%s: %w", kind, types.ErrTerminated)
	}

	tag := int32(kind)
	if err := m.stream.int32(ctx, &tag); err != nil {
		return fmt.Errorf("%s: send tag: %w", kind, err)
	}
	if payload != nil {
		if err := payload(ctx); err != nil {
			return fmt.Errorf("%s: send payload: %w", kind, err)
		}
	}
	sentinel := m.sentinel.Next()
	if err := m.stream.int32(ctx, &sentinel); err != nil {
		return fmt.Errorf("%s: send sentinel: %w", kind, err)
	}
	m.metrics.RecordCommandSent(kind)

	var localErr error
	if m.engine != nil && local != nil {
		if err := local(m.engine); err != nil {
			localErr = fmt.Errorf("%s: local engine: %w", kind, err)
		}
	}

	// Peers are already inside the resize barrier; skipping it would leave
	// their streams mid-collective.
	if kind == types.CommandResize {
		if err := m.pg.Barrier(ctx); err != nil {
			return errors.Join(localErr, fmt.Errorf("%s: barrier: %w", kind, err))
		}
	}
	if localErr != nil {
		return localErr
	}

	m.logger.Debug("command sent", "command", kind.String(), "sentinel", sentinel)
	m.hooks.Command(ctx, kind)

	return nil
}

func checkLen(lengths ...int) error {
	for _, n := range lengths {
		if n > MaxArrayLen {
			return fmt.Errorf("%w: array of %d entries exceeds %d", types.ErrInvalidConfig, n, MaxArrayLen)
		}
	}

	return nil
}

// frameImage views RGBA8 pixels, red in the low byte, as an image.
func frameImage(size types.Size, host []uint32) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, int(size.Width), int(size.Height)))
	for i, px := range host {
		binary.LittleEndian.PutUint32(img.Pix[i*4:], px)
	}

	return img
}
