package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"cogentcore.org/core/math32"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	scenepart "github.com/arloliu/scenepart"
	"github.com/arloliu/scenepart/engine"
	"github.com/arloliu/scenepart/group"
	"github.com/arloliu/scenepart/internal/metrics"
	"github.com/arloliu/scenepart/internal/natsutil"
	"github.com/arloliu/scenepart/natsgroup"
	"github.com/arloliu/scenepart/protocol"
	"github.com/arloliu/scenepart/types"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	Local    int
	Embedded bool

	Frames     int
	Width      int
	Height     int
	Screenshot string

	Scene SceneOptions
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load the demo scene and drive a render session",
		Long: `Run one or more ranks of a job over the synthetic demo scene.

With --local N every rank runs in this process over in-memory links. With
--embedded every rank runs in this process over a private NATS server. Without
either, this process is one rank of a job spread over a NATS cluster; start
every rank with the same --session and --size.

Example:
  scenepart run --local 4 --groups 8 --frames 16
  scenepart run --embedded --size 3 --groups 6 --screenshot frame.png
  scenepart run --nats nats://10.0.0.5:4222 --session $(scenepart session) --size 8 --groups 16`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runJob(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.Local, "local", 0, "run N ranks in this process over in-memory links")
	f.BoolVar(&opts.Embedded, "embedded", false, "run every rank in this process over an embedded NATS server")

	f.Int("groups", 0, "number of data groups (overrides config)")
	f.String("strategy", "", "assignment strategy: lpt|round_robin|consistent_hash (overrides config)")
	f.Bool("passive-head", false, "keep the master rank out of data ownership")
	f.Bool("allow-partial-mapping", false, "accept group counts that are not a multiple of the worker count")
	f.String("nats", "", "NATS server URL (overrides config)")
	f.String("session", "", "job session id shared by every rank (overrides config)")
	f.Int("size", 0, "world size (overrides config)")
	f.Int("rank", -1, "this process's rank, -1 claims the lowest free rank")
	f.Bool("metrics", false, "serve Prometheus metrics")
	f.String("metrics-addr", "", "metrics listen address (overrides config)")

	f.IntVar(&opts.Frames, "frames", 8, "frames to render on an orbit around the scene")
	f.IntVar(&opts.Width, "width", 320, "frame width")
	f.IntVar(&opts.Height, "height", 240, "frame height")
	f.StringVar(&opts.Screenshot, "screenshot", "", "write the final frame as PNG to this path")

	f.IntVar(&opts.Scene.Spheres, "spheres", 4096, "spheres in the demo scene")
	f.IntVar(&opts.Scene.SphereShards, "sphere-shards", 16, "content items the sphere set is split into")
	f.IntVar(&opts.Scene.VolumeDim, "volume-dim", 32, "voxels per axis of the demo volume, 0 disables it")
	f.IntVar(&opts.Scene.VolumeShards, "volume-shards", 8, "content items the volume is split into")

	return cmd
}

// applyOverrides copies explicitly set flags onto cfg.
func applyOverrides(cmd *cobra.Command, cfg *scenepart.Config) {
	f := cmd.Flags()

	if f.Changed("groups") {
		cfg.Groups, _ = f.GetInt("groups")
	}
	if f.Changed("strategy") {
		cfg.Strategy, _ = f.GetString("strategy")
	}
	if f.Changed("passive-head") {
		cfg.PassiveHead, _ = f.GetBool("passive-head")
	}
	if f.Changed("allow-partial-mapping") {
		cfg.AllowPartialMapping, _ = f.GetBool("allow-partial-mapping")
	}
	if f.Changed("nats") {
		cfg.NATS.URL, _ = f.GetString("nats")
	}
	if f.Changed("session") {
		cfg.NATS.Session, _ = f.GetString("session")
	}
	if f.Changed("size") {
		cfg.NATS.Size, _ = f.GetInt("size")
	}
	if f.Changed("rank") {
		cfg.NATS.Rank, _ = f.GetInt("rank")
	}
	if f.Changed("metrics") {
		cfg.Metrics.Enabled, _ = f.GetBool("metrics")
	}
	if f.Changed("metrics-addr") {
		cfg.Metrics.Address, _ = f.GetString("metrics-addr")
	}
}

// rankEnv carries what every rank of this process shares.
type rankEnv struct {
	cfg     *scenepart.Config
	opts    *RunOptions
	logger  types.Logger
	metrics types.MetricsCollector
}

func runJob(cmd *cobra.Command, opts *RunOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	applyOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if opts.Local < 0 {
		return NewExitError(ExitCommandError, "--local must not be negative")
	}
	if opts.Local > 0 && opts.Embedded {
		return NewExitError(ExitCommandError, "--local and --embedded are mutually exclusive")
	}

	logger, err := opts.newLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := &rankEnv{cfg: cfg, opts: opts, logger: logger, metrics: metrics.NewNop()}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		env.metrics = metrics.NewPrometheus(reg, cfg.Metrics.Namespace)

		srv, err := startMetricsServer(cfg.Metrics.Address, reg, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start metrics server", err)
		}
		defer func() {
			if err := srv.Shutdown(); err != nil {
				logger.Warn("metrics server shutdown failed", "error", err)
			}
		}()
	}

	var report *jobReport
	switch {
	case opts.Local > 0:
		report, err = runLocal(ctx, env)
	case opts.Embedded:
		report, err = runEmbedded(ctx, env)
	default:
		report, err = runRemote(ctx, env)
	}
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return err
		}

		return WrapExitError(ExitFailure, "job failed", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if report == nil {
		return out.Text("rank finished\n")
	}

	return out.Report(report)
}

func runLocal(ctx context.Context, env *rankEnv) (*jobReport, error) {
	comms := group.NewLocal(env.opts.Local,
		group.WithLogger(env.logger),
		group.WithMetrics(env.metrics),
	)
	worlds := make([]types.ProcessGroup, len(comms))
	for i, c := range comms {
		worlds[i] = c
	}

	return runRanks(ctx, env, "local", worlds)
}

func runEmbedded(ctx context.Context, env *rankEnv) (*jobReport, error) {
	cfg := env.cfg
	if cfg.NATS.Size < 1 {
		cfg.NATS.Size = 2
	}
	if cfg.NATS.Session == "" {
		cfg.NATS.Session = uuid.NewString()
	}

	storeDir, err := os.MkdirTemp("", "scenepart-nats-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(storeDir)

	ns, nc, err := natsutil.StartEmbedded(storeDir)
	if err != nil {
		return nil, err
	}
	defer func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	}()
	env.logger.Info("embedded NATS server started", "url", ns.ClientURL(), "session", cfg.NATS.Session)

	// One connection per rank, as separate processes would have.
	conns := make([]*nats.Conn, cfg.NATS.Size)
	defer func() {
		for _, c := range conns {
			if c != nil {
				c.Close()
			}
		}
	}()
	for i := range conns {
		if conns[i], err = nats.Connect(ns.ClientURL(), nats.Name(fmt.Sprintf("scenepart-rank-%d", i))); err != nil {
			return nil, err
		}
	}

	worlds := make([]types.ProcessGroup, len(conns))
	errs := make([]error, len(conns))
	var wg sync.WaitGroup
	for i, c := range conns {
		rank := i
		if cfg.NATS.Rank == -1 {
			rank = -1
		}
		wg.Go(func() {
			worlds[i], errs[i] = connectWorld(ctx, env, c, rank)
		})
	}
	wg.Wait()
	defer closeWorlds(worlds, env.logger)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return runRanks(ctx, env, cfg.NATS.Session, worlds)
}

// runRemote runs this process's single rank against an external NATS server.
func runRemote(ctx context.Context, env *rankEnv) (*jobReport, error) {
	cfg := env.cfg
	if cfg.NATS.Session == "" {
		return nil, NewExitError(ExitCommandError, "a session id is required; mint one with 'scenepart session'")
	}
	if cfg.NATS.Size < 1 {
		return nil, NewExitError(ExitCommandError, "--size is required")
	}

	url := cfg.NATS.URL
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url, nats.Name("scenepart"))
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", url, err)
	}
	defer nc.Close()

	world, err := connectWorld(ctx, env, nc, cfg.NATS.Rank)
	if err != nil {
		return nil, err
	}
	defer closeWorlds([]types.ProcessGroup{world}, env.logger)

	return runRanks(ctx, env, cfg.NATS.Session, []types.ProcessGroup{world})
}

func connectWorld(ctx context.Context, env *rankEnv, nc *nats.Conn, rank int) (types.ProcessGroup, error) {
	cfg := env.cfg

	opCtx, cancel := context.WithTimeout(ctx, cfg.OperationTimeout+cfg.NATS.ReadyTimeout)
	defer cancel()

	t, err := natsgroup.Connect(opCtx, nc, natsgroup.Config{
		Prefix:       cfg.NATS.SubjectPrefix,
		Session:      cfg.NATS.Session,
		Size:         cfg.NATS.Size,
		Rank:         rank,
		RankBucket:   cfg.NATS.RankBucket,
		ClaimTTL:     cfg.NATS.ClaimTTL,
		ReadyTimeout: cfg.NATS.ReadyTimeout,
		Logger:       env.logger,
	})
	if err != nil {
		return nil, err
	}

	world, err := group.New(t, group.WithLogger(env.logger), group.WithMetrics(env.metrics))
	if err != nil {
		_ = t.Close()
		return nil, err
	}

	return world, nil
}

func closeWorlds(worlds []types.ProcessGroup, logger types.Logger) {
	for _, w := range worlds {
		c, ok := w.(*group.Comm)
		if !ok || c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			logger.Warn("failed to close process group", "rank", c.Rank(), "error", err)
		}
	}
}

// runRanks loads and serves one node per world concurrently. The report is
// filled in by the master rank, if it runs in this process.
func runRanks(ctx context.Context, env *rankEnv, session string, worlds []types.ProcessGroup) (*jobReport, error) {
	var (
		mu     sync.Mutex
		report *jobReport
	)

	errs := make([]error, len(worlds))
	var wg sync.WaitGroup
	for i, world := range worlds {
		wg.Go(func() {
			r, err := runRank(ctx, env, world)
			errs[i] = err
			if r != nil {
				mu.Lock()
				report = r
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if report != nil {
		report.Session = session
	}

	return report, nil
}

func runRank(ctx context.Context, env *rankEnv, world types.ProcessGroup) (*jobReport, error) {
	registry, err := syntheticScene(env.opts.Scene)
	if err != nil {
		return nil, err
	}

	cfg := *env.cfg
	rec := engine.NewRecorder()
	rec.Fill = 0xff336699

	node, err := scenepart.NewNode(&cfg, world, registry,
		scenepart.WithEngine(rec),
		scenepart.WithLogger(env.logger),
		scenepart.WithMetrics(env.metrics),
	)
	if err != nil {
		return nil, err
	}

	if err := node.Load(ctx); err != nil {
		return nil, fmt.Errorf("rank %d: load: %w", world.Rank(), err)
	}

	var report *jobReport
	if node.IsMaster() {
		report = newJobReport(node, &cfg)
	}
	if err := node.Serve(ctx, orbitDrive(node, env.opts, report)); err != nil {
		return nil, fmt.Errorf("rank %d: serve: %w", world.Rank(), err)
	}

	return report, nil
}

// orbitDrive sets up lights and a transfer function from the global bounds,
// then renders Frames frames with the camera circling the scene.
func orbitDrive(node *scenepart.Node, opts *RunOptions, report *jobReport) scenepart.DriveFunc {
	return func(ctx context.Context, m *protocol.Master) error {
		if err := m.Resize(ctx, scenepart.Size{Width: int32(opts.Width), Height: int32(opts.Height)}); err != nil {
			return err
		}

		bounds := node.Bounds()
		center, radius := math32.Vec3(0, 0, 0), float32(sceneRadius)
		if !bounds.IsEmpty() {
			center = bounds.Box.Center()
			radius = max(bounds.Box.Size().Length()/2, 1)
		}

		lights := scenepart.Lights{
			Ambient: 0.15,
			Points: []scenepart.PointLight{{
				Position: center.Add(math32.Vec3(0, 2*radius, 0)),
				Power:    math32.Vec3(50, 50, 50),
			}},
			Directional: []scenepart.DirectionalLight{{
				Direction: math32.Vec3(-1, -1, -1).Normal(),
				Radiance:  math32.Vec3(1, 1, 1),
			}},
		}
		if err := m.SetLights(ctx, lights); err != nil {
			return err
		}

		if bounds.HasScalars() {
			tf := scenepart.TransferFunction{
				Domain: scenepart.Interval{Lo: float32(bounds.Scalars.Min), Hi: float32(bounds.Scalars.Max)},
				ColorMap: []math32.Vector4{
					math32.Vec4(0.23, 0.30, 0.75, 0),
					math32.Vec4(0.87, 0.87, 0.87, 0.5),
					math32.Vec4(0.71, 0.02, 0.15, 1),
				},
				BaseDensity: 1,
			}
			if err := m.SetTransferFunction(ctx, tf); err != nil {
				return err
			}
		}

		for i := range opts.Frames {
			angle := 2 * math32.Pi * float32(i) / float32(max(opts.Frames, 1))
			eye := center.Add(math32.Vec3(math32.Cos(angle), 0.3, math32.Sin(angle)).MulScalar(2.5 * radius))
			camera := scenepart.Camera{
				Position:  eye,
				Direction: center.Sub(eye).Normal(),
				Up:        math32.Vec3(0, 1, 0),
				FovY:      40,
			}
			if err := m.SetCamera(ctx, camera); err != nil {
				return err
			}
			if err := m.ResetAccumulation(ctx); err != nil {
				return err
			}
			if err := m.RenderFrame(ctx); err != nil {
				return err
			}
		}

		if opts.Screenshot != "" {
			if err := writeScreenshot(ctx, m, opts.Screenshot); err != nil {
				return err
			}
		}

		if report != nil {
			report.Frames = opts.Frames
			report.Screenshot = opts.Screenshot
			report.Sentinel = uint32(m.Sentinel())
		}

		return nil
	}
}

func writeScreenshot(ctx context.Context, m *protocol.Master, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create screenshot: %w", err)
	}
	if err := m.Screenshot(ctx, f); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}
