package protocol

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"cogentcore.org/core/math32"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/scenepart/engine"
	"github.com/arloliu/scenepart/group"
	"github.com/arloliu/scenepart/internal/metrics"
	sptest "github.com/arloliu/scenepart/testing"
	"github.com/arloliu/scenepart/types"
)

func testCamera() types.Camera {
	return types.Camera{
		Position:  math32.Vec3(0, 0, 5),
		Direction: math32.Vec3(0, 0, -1),
		Up:        math32.Vec3(0, 1, 0),
		FovY:      45,
	}
}

func testLights() types.Lights {
	return types.Lights{
		Ambient: 0.25,
		Points: []types.PointLight{
			{Position: math32.Vec3(1, 2, 3), Power: math32.Vec3(10, 10, 10)},
			{Position: math32.Vec3(-4, 0, 1), Power: math32.Vec3(1, 0.5, 0.25)},
		},
		Directional: []types.DirectionalLight{
			{Direction: math32.Vec3(0, -1, 0), Radiance: math32.Vec3(3, 3, 3)},
		},
	}
}

func testTransferFunction() types.TransferFunction {
	return types.TransferFunction{
		Domain: types.Interval{Lo: -1, Hi: 2.5},
		ColorMap: []math32.Vector4{
			math32.Vec4(0, 0, 1, 0),
			math32.Vec4(0, 1, 0, 0.5),
			math32.Vec4(1, 0, 0, 1),
		},
		BaseDensity: 0.75,
	}
}

// runMasterWorkers runs drive on rank 0 and a worker loop on every other rank.
func runMasterWorkers(
	t *testing.T,
	size int,
	engines []engine.Engine,
	drive func(ctx context.Context, m *Master) error,
) []error {
	t.Helper()

	comms := group.NewLocal(size)

	return sptest.RunRanks(t, comms, func(ctx context.Context, c *group.Comm) error {
		var eng engine.Engine
		if engines != nil {
			eng = engines[c.Rank()]
		}

		if c.Rank() == 0 {
			m, err := NewMaster(c, WithEngine(eng), WithLogger(sptest.NewRankLogger(t, 0)))
			if err != nil {
				return err
			}

			return drive(ctx, m)
		}

		w, err := NewWorker(c, WithEngine(eng), WithLogger(sptest.NewRankLogger(t, c.Rank())))
		if err != nil {
			return err
		}

		return w.Run(ctx)
	})
}

func TestNewMaster_Validation(t *testing.T) {
	comms := group.NewLocal(2)

	_, err := NewMaster(nil)
	require.ErrorIs(t, err, types.ErrProcessGroupRequired)

	_, err = NewMaster(comms[1])
	require.ErrorIs(t, err, types.ErrNotMaster)

	_, err = NewMaster(comms[0], WithRoot(2))
	require.ErrorIs(t, err, types.ErrInvalidRank)

	m, err := NewMaster(comms[1], WithRoot(1))
	require.NoError(t, err)
	require.Equal(t, SentinelBase, m.Sentinel())
}

func TestNewWorker_Validation(t *testing.T) {
	comms := group.NewLocal(2)

	_, err := NewWorker(nil)
	require.ErrorIs(t, err, types.ErrProcessGroupRequired)

	_, err = NewWorker(comms[0])
	require.ErrorIs(t, err, types.ErrInvalidRank)

	_, err = NewWorker(comms[1], WithRoot(-1))
	require.ErrorIs(t, err, types.ErrInvalidRank)

	_, err = NewWorker(comms[1])
	require.NoError(t, err)
}

func TestProtocol_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		drive func(ctx context.Context, m *Master) error
		check func(t *testing.T, rec *engine.Recorder)
	}{
		{
			name:  "set_camera",
			drive: func(ctx context.Context, m *Master) error { return m.SetCamera(ctx, testCamera()) },
			check: func(t *testing.T, rec *engine.Recorder) {
				require.Equal(t, testCamera(), rec.Camera())
			},
		},
		{
			name:  "set_lights",
			drive: func(ctx context.Context, m *Master) error { return m.SetLights(ctx, testLights()) },
			check: func(t *testing.T, rec *engine.Recorder) {
				require.Equal(t, testLights(), rec.Lights())
			},
		},
		{
			name: "set_lights_empty",
			drive: func(ctx context.Context, m *Master) error {
				return m.SetLights(ctx, types.Lights{Ambient: 1})
			},
			check: func(t *testing.T, rec *engine.Recorder) {
				require.Equal(t, types.Lights{Ambient: 1}, rec.Lights())
			},
		},
		{
			name: "set_transfer_function_without_color_map",
			drive: func(ctx context.Context, m *Master) error {
				return m.SetTransferFunction(ctx, types.TransferFunction{BaseDensity: 0.5})
			},
			check: func(t *testing.T, rec *engine.Recorder) {
				require.Equal(t, types.TransferFunction{BaseDensity: 0.5}, rec.TransferFunction())
			},
		},
		{
			name: "set_transfer_function",
			drive: func(ctx context.Context, m *Master) error {
				return m.SetTransferFunction(ctx, testTransferFunction())
			},
			check: func(t *testing.T, rec *engine.Recorder) {
				require.Equal(t, testTransferFunction(), rec.TransferFunction())
			},
		},
		{
			name: "resize",
			drive: func(ctx context.Context, m *Master) error {
				return m.Resize(ctx, types.Size{Width: 800, Height: 600})
			},
			check: func(t *testing.T, rec *engine.Recorder) {
				require.Equal(t, types.Size{Width: 800, Height: 600}, rec.Size())
			},
		},
		{
			name: "render_and_reset",
			drive: func(ctx context.Context, m *Master) error {
				if err := m.RenderFrame(ctx); err != nil {
					return err
				}
				if err := m.RenderFrame(ctx); err != nil {
					return err
				}

				return m.ResetAccumulation(ctx)
			},
			check: func(t *testing.T, rec *engine.Recorder) {
				require.Equal(t, 2, rec.Frames())
				require.Equal(t, 1, rec.Count("ResetAccumulation"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := []*engine.Recorder{engine.NewRecorder(), engine.NewRecorder(), engine.NewRecorder()}
			engines := []engine.Engine{recs[0], recs[1], recs[2]}

			errs := runMasterWorkers(t, 3, engines, func(ctx context.Context, m *Master) error {
				if err := tt.drive(ctx, m); err != nil {
					return err
				}

				return m.Terminate(ctx)
			})
			sptest.RequireNoRankErrors(t, errs)

			for rank, rec := range recs {
				t.Logf("rank %d calls: %v", rank, rec.Methods())
				tt.check(t, rec)
				require.True(t, rec.Terminated())
			}
		})
	}
}

func TestProtocol_ResizeBarrierPrecedesRender(t *testing.T) {
	log := &eventLog{}
	engines := []engine.Engine{
		&loggingEngine{Recorder: engine.NewRecorder(), rank: 0, log: log},
		&loggingEngine{Recorder: engine.NewRecorder(), rank: 1, log: log},
		&loggingEngine{Recorder: engine.NewRecorder(), rank: 2, log: log},
	}

	errs := runMasterWorkers(t, 3, engines, func(ctx context.Context, m *Master) error {
		if err := m.Resize(ctx, types.Size{Width: 800, Height: 600}); err != nil {
			return err
		}
		if err := m.RenderFrame(ctx); err != nil {
			return err
		}

		return m.Terminate(ctx)
	})
	sptest.RequireNoRankErrors(t, errs)

	events := log.snapshot()
	firstRender := -1
	resized := 0
	for i, e := range events {
		switch e {
		case "resize":
			resized++
			require.Equal(t, -1, firstRender, "resize after a render: %v", events)
		case "render":
			if firstRender < 0 {
				firstRender = i
			}
		}
	}
	require.Equal(t, 3, resized)
	require.GreaterOrEqual(t, firstRender, 3)
}

var errDeviceMemory = errors.New("out of device memory")

// brokenResizeEngine fails every Resize.
type brokenResizeEngine struct {
	*engine.Recorder
}

func (e *brokenResizeEngine) Resize(types.Size, []uint32) error {
	return errDeviceMemory
}

func TestProtocol_ResizeFailureKeepsStreamsAligned(t *testing.T) {
	resizeThenTerminate := func(ctx context.Context, m *Master) error {
		resizeErr := m.Resize(ctx, types.Size{Width: 64, Height: 48})

		return errors.Join(resizeErr, m.Terminate(ctx))
	}

	t.Run("master engine fails", func(t *testing.T) {
		recs := []*engine.Recorder{engine.NewRecorder(), engine.NewRecorder(), engine.NewRecorder()}
		engines := []engine.Engine{&brokenResizeEngine{Recorder: recs[0]}, recs[1], recs[2]}

		errs := runMasterWorkers(t, 3, engines, resizeThenTerminate)

		require.ErrorIs(t, errs[0], errDeviceMemory)
		require.NotErrorIs(t, errs[0], types.ErrCollectiveFailed)
		for rank := 1; rank < 3; rank++ {
			require.NoError(t, errs[rank], "rank %d", rank)
			require.True(t, recs[rank].Terminated())
			require.Equal(t, types.Size{Width: 64, Height: 48}, recs[rank].Size())
		}
	})

	t.Run("worker engine fails", func(t *testing.T) {
		recs := []*engine.Recorder{engine.NewRecorder(), engine.NewRecorder(), engine.NewRecorder()}
		engines := []engine.Engine{recs[0], &brokenResizeEngine{Recorder: recs[1]}, recs[2]}

		errs := runMasterWorkers(t, 3, engines, resizeThenTerminate)

		require.NoError(t, errs[0])
		require.ErrorIs(t, errs[1], errDeviceMemory)
		require.NotErrorIs(t, errs[1], types.ErrProtocolDesync)
		require.NoError(t, errs[2])
		require.True(t, recs[2].Terminated())
	})
}

func TestProtocol_DetectsSkippedField(t *testing.T) {
	comms := group.NewLocal(2)

	errs := sptest.RunRanks(t, comms, func(ctx context.Context, c *group.Comm) error {
		if c.Rank() == 0 {
			m, err := NewMaster(c)
			if err != nil {
				return err
			}

			return m.SetCamera(ctx, testCamera())
		}

		w, err := NewWorker(c)
		if err != nil {
			return err
		}

		var tag int32
		if err := w.stream.int32(ctx, &tag); err != nil {
			return err
		}
		// Read everything but FovY.
		var cam types.Camera
		for _, v := range []*math32.Vector3{&cam.Position, &cam.Direction, &cam.Up} {
			if err := w.stream.vec3(ctx, v); err != nil {
				return err
			}
		}

		return w.checkSentinel(ctx, types.CommandKind(tag))
	})

	require.NoError(t, errs[0])
	require.ErrorIs(t, errs[1], types.ErrProtocolDesync)

	var desync *DesyncError
	require.True(t, errors.As(errs[1], &desync))
	require.Equal(t, types.CommandSetCamera, desync.Command)
	require.Equal(t, SentinelBase+1, desync.Expected)
	require.NotEqual(t, desync.Expected, desync.Got)
}

func TestProtocol_DetectsDuplicatedField(t *testing.T) {
	comms := group.NewLocal(2)

	errs := sptest.RunRanks(t, comms, func(ctx context.Context, c *group.Comm) error {
		if c.Rank() == 0 {
			m, err := NewMaster(c)
			if err != nil {
				return err
			}
			if err := m.SetCamera(ctx, testCamera()); err != nil {
				return err
			}
			// Enough trailing bytes for the misaligned read to complete.
			if err := m.RenderFrame(ctx); err != nil {
				return err
			}

			return m.RenderFrame(ctx)
		}

		w, err := NewWorker(c)
		if err != nil {
			return err
		}

		var tag int32
		if err := w.stream.int32(ctx, &tag); err != nil {
			return err
		}
		var cam types.Camera
		for _, v := range []*math32.Vector3{&cam.Position, &cam.Position, &cam.Direction, &cam.Up} {
			if err := w.stream.vec3(ctx, v); err != nil {
				return err
			}
		}
		if err := w.stream.float32(ctx, &cam.FovY); err != nil {
			return err
		}

		return w.checkSentinel(ctx, types.CommandKind(tag))
	})

	require.NoError(t, errs[0])
	require.ErrorIs(t, errs[1], types.ErrProtocolDesync)
}

func TestWorker_UnknownTag(t *testing.T) {
	comms := group.NewLocal(2)

	errs := sptest.RunRanks(t, comms, func(ctx context.Context, c *group.Comm) error {
		if c.Rank() == 0 {
			return c.Broadcast(ctx, 0, []byte{0x2a, 0, 0, 0})
		}

		w, err := NewWorker(c)
		if err != nil {
			return err
		}

		return w.Run(ctx)
	})

	require.NoError(t, errs[0])
	require.ErrorIs(t, errs[1], types.ErrProtocolDesync)
	require.Contains(t, errs[1].Error(), "unknown command tag")
}

func TestWorker_RejectsOversizedLengthPrefix(t *testing.T) {
	comms := group.NewLocal(2)

	errs := sptest.RunRanks(t, comms, func(ctx context.Context, c *group.Comm) error {
		if c.Rank() == 0 {
			// set_lights tag, ambient, then a length far beyond MaxArrayLen.
			stream := []byte{
				0x02, 0, 0, 0,
				0, 0, 0x80, 0x3f,
				0xff, 0xff, 0xff, 0x7f,
			}
			for i := 0; i < len(stream); i += 4 {
				if err := c.Broadcast(ctx, 0, stream[i:i+4]); err != nil {
					return err
				}
			}

			return nil
		}

		w, err := NewWorker(c)
		if err != nil {
			return err
		}
		_, err = w.Step(ctx)

		return err
	})

	require.NoError(t, errs[0])
	require.ErrorIs(t, errs[1], types.ErrProtocolDesync)
}

func TestMaster_TerminateEndsWorkers(t *testing.T) {
	var master *Master
	errs := runMasterWorkers(t, 3, nil, func(ctx context.Context, m *Master) error {
		master = m
		return m.Terminate(ctx)
	})
	sptest.RequireNoRankErrors(t, errs)

	require.True(t, master.Terminated())
	require.Equal(t, SentinelBase+1, master.Sentinel())
	require.ErrorIs(t, master.RenderFrame(t.Context()), types.ErrTerminated)
	require.ErrorIs(t, master.Screenshot(t.Context(), &bytes.Buffer{}), types.ErrTerminated)
}

func TestMaster_ResizeRejectsEmptySize(t *testing.T) {
	comms := group.NewLocal(1)
	m, err := NewMaster(comms[0])
	require.NoError(t, err)

	require.ErrorIs(t, m.Resize(t.Context(), types.Size{Width: 0, Height: 600}), types.ErrInvalidConfig)
	require.Equal(t, SentinelBase, m.Sentinel(), "nothing was sent")
}

func TestMaster_Screenshot(t *testing.T) {
	rec := engine.NewRecorder()
	rec.Fill = 0xff0000ff // opaque red

	var shot bytes.Buffer
	errs := runMasterWorkers(t, 2, []engine.Engine{rec, engine.NewRecorder()}, func(ctx context.Context, m *Master) error {
		if err := m.Screenshot(ctx, &shot); !errors.Is(err, types.ErrNotLoaded) {
			return fmt.Errorf("screenshot before resize: got %v", err)
		}

		if err := m.Resize(ctx, types.Size{Width: 4, Height: 2}); err != nil {
			return err
		}
		if err := m.RenderFrame(ctx); err != nil {
			return err
		}
		if err := m.Screenshot(ctx, &shot); err != nil {
			return err
		}

		return m.Terminate(ctx)
	})
	sptest.RequireNoRankErrors(t, errs)

	img, err := png.Decode(&shot)
	require.NoError(t, err)
	require.Equal(t, 4, img.Bounds().Dx())
	require.Equal(t, 2, img.Bounds().Dy())
	r, g, b, a := img.At(3, 1).RGBA()
	require.Equal(t, []uint32{0xffff, 0, 0, 0xffff}, []uint32{r, g, b, a})
}

func TestMaster_HooksAndMetrics(t *testing.T) {
	var mu sync.Mutex
	var seen []types.CommandKind
	h := &types.Hooks{
		OnCommand: func(_ context.Context, kind types.CommandKind) error {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, kind)

			return nil
		},
	}
	counter := &commandCounter{NopMetrics: metrics.NewNop()}

	comms := group.NewLocal(2)
	errs := sptest.RunRanks(t, comms, func(ctx context.Context, c *group.Comm) error {
		if c.Rank() == 0 {
			m, err := NewMaster(c, WithMetrics(counter))
			if err != nil {
				return err
			}
			if err := m.RenderFrame(ctx); err != nil {
				return err
			}

			return m.Terminate(ctx)
		}

		w, err := NewWorker(c, WithHooks(h), WithMetrics(counter))
		if err != nil {
			return err
		}

		return w.Run(ctx)
	})
	sptest.RequireNoRankErrors(t, errs)

	require.Equal(t, []types.CommandKind{types.CommandRenderFrame, types.CommandTerminate}, seen)
	require.Equal(t, 2, counter.sent())
	require.Equal(t, 2, counter.received())
}

func TestCommandStream_Golden(t *testing.T) {
	cg := &captureGroup{size: 2}
	m, err := NewMaster(cg)
	require.NoError(t, err)

	ctx := t.Context()
	require.NoError(t, m.Resize(ctx, types.Size{Width: 800, Height: 600}))
	require.NoError(t, m.SetCamera(ctx, testCamera()))
	require.NoError(t, m.SetLights(ctx, types.Lights{
		Ambient: 0.25,
		Points:  []types.PointLight{{Position: math32.Vec3(1, 2, 3), Power: math32.Vec3(10, 10, 10)}},
	}))
	require.NoError(t, m.Terminate(ctx))
	require.Equal(t, 1, cg.barriers)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "command_stream", []byte(cg.dump()))
}

func TestSentinel(t *testing.T) {
	s := NewSentinel()
	require.Equal(t, SentinelBase, s.Current())
	require.Equal(t, SentinelBase+1, s.Next())
	require.Equal(t, SentinelBase+2, s.Next())
	require.Equal(t, SentinelBase+2, s.Current())

	other := NewSentinel()
	require.Equal(t, SentinelBase+1, other.Next(), "counters are independent")
}

func TestDesyncError(t *testing.T) {
	err := &DesyncError{Command: types.CommandResize, Expected: SentinelBase + 3, Got: 42}
	require.ErrorIs(t, err, types.ErrProtocolDesync)
	require.Contains(t, err.Error(), "resize")
	require.Contains(t, err.Error(), "0x5ca1ab21")
}

// captureGroup is a two-member root view that records every broadcast.
type captureGroup struct {
	size     int
	sent     [][]byte
	barriers int
}

func (g *captureGroup) Rank() int { return 0 }
func (g *captureGroup) Size() int { return g.size }

func (g *captureGroup) Broadcast(_ context.Context, _ int, buf []byte) error {
	if len(buf) > 0 {
		g.sent = append(g.sent, bytes.Clone(buf))
	}

	return nil
}

func (g *captureGroup) AllReduceMin(context.Context, []float64) error { return nil }
func (g *captureGroup) AllReduceMax(context.Context, []float64) error { return nil }

func (g *captureGroup) Barrier(context.Context) error {
	g.barriers++
	return nil
}

func (g *captureGroup) Gather(context.Context, int, []byte) ([][]byte, error) { return nil, nil }

func (g *captureGroup) Split(context.Context, bool) (types.ProcessGroup, error) { return g, nil }

func (g *captureGroup) dump() string {
	var sb strings.Builder
	for _, b := range g.sent {
		sb.WriteString(hex.EncodeToString(b))
		sb.WriteByte('\n')
	}

	return sb.String()
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.events...)
}

// loggingEngine appends resize and render events to a log shared by all ranks.
type loggingEngine struct {
	*engine.Recorder
	rank int
	log  *eventLog
}

func (e *loggingEngine) Resize(size types.Size, host []uint32) error {
	e.log.add("resize")
	// Give a racing render on another rank time to show up.
	time.Sleep(time.Duration(e.rank) * 10 * time.Millisecond)

	return e.Recorder.Resize(size, host)
}

func (e *loggingEngine) RenderFrame() error {
	e.log.add("render")
	return e.Recorder.RenderFrame()
}

type commandCounter struct {
	*metrics.NopMetrics

	mu        sync.Mutex
	nSent     int
	nReceived int
}

func (c *commandCounter) RecordCommandSent(types.CommandKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nSent++
}

func (c *commandCounter) RecordCommandReceived(types.CommandKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nReceived++
}

func (c *commandCounter) sent() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.nSent
}

func (c *commandCounter) received() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.nReceived
}
