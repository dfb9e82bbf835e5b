package scenepart

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/scenepart/engine"
	"github.com/arloliu/scenepart/internal/assignment"
	"github.com/arloliu/scenepart/internal/hooks"
	"github.com/arloliu/scenepart/internal/logging"
	"github.com/arloliu/scenepart/internal/metrics"
	"github.com/arloliu/scenepart/protocol"
	"github.com/arloliu/scenepart/scene"
	"github.com/arloliu/scenepart/strategy"
)

// GroupSummary describes one planned data group.
type GroupSummary = assignment.GroupSummary

// DriveFunc issues commands on the master rank. It runs once, inside Serve.
// Serve terminates the workers when DriveFunc returns without doing so.
type DriveFunc func(ctx context.Context, m *protocol.Master) error

// Node is one rank of a parallel rendering job.
//
// A Node runs two phases, each a sequence of collective calls that every rank
// must make in the same order:
//   - Load: plan the content assignment, load owned data groups, commit them
//     to the engine and reduce global bounds
//   - Serve: the master rank drives the command protocol while every other
//     rank follows it until terminate
//
// Thread Safety:
//   - Load and Serve must be called from one goroutine
//   - Accessors (State, Bounds, Model, ...) are safe for concurrent use
//
// Lifecycle:
//
//	Init → Loading → Serving → Terminated, or Failed from any of them
type Node struct {
	cfg    Config
	world  ProcessGroup
	source ContentSource

	strategy AssignmentStrategy
	engine   engine.Engine
	hooks    *hooks.Runner
	rawHooks *Hooks
	metrics  MetricsCollector
	logger   Logger

	state      atomic.Int32 // State
	stateSince atomic.Int64 // unix nanos of the last transition
	serving    atomic.Bool

	mu      sync.RWMutex
	plan    *assignment.Plan
	owned   []int
	model   *scene.LocalModel
	workers ProcessGroup
	bounds  scene.Bounds
}

// NewNode creates a node for this process's rank of world.
//
// Returns a concrete *Node following the "accept interfaces, return structs"
// principle.
//
// Parameters:
//   - cfg: Job configuration, identical on every rank
//   - world: Process group spanning every rank of the job
//   - source: Content source listing the same content in the same order on every rank
//   - opts: Optional strategy, engine, hooks, metrics and logger
//
// Returns:
//   - *Node: Node in StateInit
//   - error: Nil-argument or configuration error
//
// Example:
//
//	cfg := scenepart.DefaultConfig()
//	cfg.Groups = 4
//	node, err := scenepart.NewNode(&cfg, world, registry, scenepart.WithEngine(eng))
//	if err != nil {
//	    return err
//	}
//	if err := node.Load(ctx); err != nil {
//	    return err
//	}
//	return node.Serve(ctx, func(ctx context.Context, m *protocol.Master) error {
//	    _ = m.Resize(ctx, scenepart.Size{Width: 800, Height: 600})
//	    return m.RenderFrame(ctx)
//	})
func NewNode(cfg *Config, world ProcessGroup, source ContentSource, opts ...Option) (*Node, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if world == nil {
		return nil, ErrProcessGroupRequired
	}
	if source == nil {
		return nil, ErrContentSourceRequired
	}

	SetDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.MasterRank >= world.Size() {
		return nil, fmt.Errorf("%w: masterRank %d outside world of %d", ErrInvalidConfig, cfg.MasterRank, world.Size())
	}

	options := &nodeOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	logger := logging.OrNop(options.logger)
	cfg.ValidateWithWarnings(logger)

	s := options.strategy
	if s == nil {
		var err error
		if s, err = strategy.New(cfg.Strategy); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	n := &Node{
		cfg:      *cfg,
		world:    world,
		source:   source,
		strategy: s,
		engine:   options.engine,
		hooks:    hooks.NewRunner(options.hooks, logger),
		rawHooks: options.hooks,
		metrics:  metrics.OrNop(options.metrics),
		logger:   logger,
	}
	n.state.Store(int32(StateInit))
	n.stateSince.Store(time.Now().UnixNano())

	return n, nil
}

// Rank returns this process's world rank.
func (n *Node) Rank() int { return n.world.Rank() }

// Size returns the world size.
func (n *Node) Size() int { return n.world.Size() }

// IsMaster reports whether this rank drives the command protocol.
func (n *Node) IsMaster() bool { return n.world.Rank() == n.cfg.MasterRank }

// IsActive reports whether this rank owns data groups.
func (n *Node) IsActive() bool {
	return !n.passiveHead() || !n.IsMaster()
}

// State returns the current node state.
func (n *Node) State() State {
	return State(n.state.Load())
}

// Load runs the load phase.
//
// Steps, in order:
//  1. list content and compute the assignment plan (local, no communication)
//  2. validate the group-to-worker mapping (local)
//  3. split the world into active workers and the passive head, if configured
//  4. compare every rank's plan fingerprint with the master's
//  5. materialize owned groups and commit them to the engine
//  6. agree on success, then reduce global bounds
//
// Configuration errors in steps 1 and 2 are returned before any collective
// call. Since every rank sees the same inputs, every rank fails the same way.
//
// Returns:
//   - error: ErrAlreadyStarted, configuration errors, ErrAssignmentDiverged,
//     ErrMaterializeFailed (on every rank when any rank failed), or
//     ErrCollectiveFailed
func (n *Node) Load(ctx context.Context) error {
	if !n.transitionState(StateInit, StateLoading) {
		return ErrAlreadyStarted
	}

	if n.cfg.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.cfg.LoadTimeout)
		defer cancel()
	}

	if err := n.load(ctx); err != nil {
		n.fail(err)
		return err
	}

	n.transitionState(StateLoading, StateServing)

	return nil
}

func (n *Node) load(ctx context.Context) error {
	start := time.Now()

	contents, err := n.source.ListContent(ctx)
	if err != nil {
		return fmt.Errorf("list content: %w", err)
	}

	plan, err := assignment.NewPlan(contents, n.cfg.Groups, n.strategy, n.metrics)
	if err != nil {
		return err
	}

	workers, index := n.workerLayout()
	var owned []int
	if n.IsActive() {
		owned, err = assignment.OwnedGroups(index, workers, n.cfg.Groups, n.cfg.AllowPartialMapping, n.logger)
	} else {
		err = assignment.CheckMapping(n.cfg.Groups, workers, n.cfg.AllowPartialMapping)
	}
	if err != nil {
		return err
	}

	lo, hi := plan.Spread()
	n.logger.Info("assignment planned",
		"rank", n.Rank(),
		"strategy", plan.Strategy(),
		"items", len(contents),
		"groups", plan.NumGroups(),
		"workers", workers,
		"owned", owned,
		"min_cost", lo,
		"max_cost", hi,
	)

	// Collective phase.
	workerGroup, err := n.splitWorkers(ctx)
	if err != nil {
		return err
	}
	if err := n.checkFingerprint(ctx, plan.Fingerprint()); err != nil {
		return err
	}

	model := scene.NewLocalModel()
	var localErr error
	if n.IsActive() {
		loader := assignment.NewLoader(assignment.LoaderConfig{
			Logger:  n.logger,
			Metrics: n.metrics,
			Hooks:   n.rawHooks,
		})
		model, localErr = loader.Load(ctx, plan, owned)
		if localErr == nil && n.engine != nil {
			if err := engine.Commit(n.engine, model); err != nil {
				localErr = fmt.Errorf("commit to engine: %w", err)
			}
		}
	}
	if err := n.agreeLoaded(ctx, localErr); err != nil {
		return err
	}

	bounds := model.Bounds()
	mins, maxs := bounds.MinComponents(), bounds.MaxComponents()
	if err := n.world.AllReduceMin(ctx, mins); err != nil {
		return fmt.Errorf("reduce bounds: %w", err)
	}
	if err := n.world.AllReduceMax(ctx, maxs); err != nil {
		return fmt.Errorf("reduce bounds: %w", err)
	}

	n.mu.Lock()
	n.plan = plan
	n.owned = owned
	n.model = model
	n.workers = workerGroup
	n.bounds = scene.BoundsFromComponents(mins, maxs)
	n.mu.Unlock()

	n.logger.Info("load complete",
		"rank", n.Rank(),
		"local_groups", model.Size(),
		"empty_bounds", n.Bounds().IsEmpty(),
		"duration", time.Since(start),
	)

	return nil
}

// workerLayout returns the active worker count and this rank's index among
// active workers (-1 for the passive head).
func (n *Node) workerLayout() (int, int) {
	size, rank := n.world.Size(), n.world.Rank()
	if !n.passiveHead() {
		return size, rank
	}

	switch {
	case rank == n.cfg.MasterRank:
		return size - 1, -1
	case rank > n.cfg.MasterRank:
		return size - 1, rank - 1
	default:
		return size - 1, rank
	}
}

func (n *Node) passiveHead() bool {
	return n.cfg.PassiveHead && n.world.Size() > 1
}

// splitWorkers returns the active worker sub-group, or nil on the passive head.
func (n *Node) splitWorkers(ctx context.Context) (ProcessGroup, error) {
	if !n.passiveHead() {
		return n.world, nil
	}

	sub, err := n.world.Split(ctx, n.IsActive())
	if err != nil {
		return nil, fmt.Errorf("split workers: %w", err)
	}
	if !n.IsActive() {
		return nil, nil
	}

	if _, index := n.workerLayout(); sub.Rank() != index {
		return nil, fmt.Errorf("%w: worker sub-group rank %d, expected %d", ErrInvalidRank, sub.Rank(), index)
	}

	return sub, nil
}

// checkFingerprint compares the local plan with the master's.
func (n *Node) checkFingerprint(ctx context.Context, local uint64) error {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, local)
	if err := n.world.Broadcast(ctx, n.cfg.MasterRank, buf); err != nil {
		return fmt.Errorf("broadcast plan fingerprint: %w", err)
	}
	master := binary.LittleEndian.Uint64(buf)

	mismatch := []float64{0}
	if master != local {
		mismatch[0] = 1
	}
	if err := n.world.AllReduceMax(ctx, mismatch); err != nil {
		return fmt.Errorf("reduce plan fingerprint: %w", err)
	}

	if mismatch[0] != 0 {
		n.logger.Error("assignment diverged",
			"rank", n.Rank(),
			"local_fingerprint", local,
			"master_fingerprint", master,
		)

		return fmt.Errorf("%w: local %#016x, master %#016x", ErrAssignmentDiverged, local, master)
	}

	return nil
}

// agreeLoaded makes a local load failure fail every rank.
func (n *Node) agreeLoaded(ctx context.Context, localErr error) error {
	failed := []float64{0}
	if localErr != nil {
		failed[0] = 1
	}
	if err := n.world.AllReduceMax(ctx, failed); err != nil {
		return errors.Join(localErr, fmt.Errorf("reduce load status: %w", err))
	}

	switch {
	case localErr != nil:
		return localErr
	case failed[0] != 0:
		return fmt.Errorf("%w: on another rank", ErrMaterializeFailed)
	default:
		return nil
	}
}

// Serve runs the command phase.
//
// On the master rank drive is called with the protocol master; when it
// returns, workers are terminated if drive did not do so. Every other rank
// follows the command stream until terminate and ignores drive. All ranks
// then meet at a final barrier.
//
// Parameters:
//   - ctx: Context for the whole phase
//   - drive: Command sequence for the master; may be nil on worker ranks
//
// Returns:
//   - error: ErrNotLoaded, ErrAlreadyStarted, the drive error, a protocol
//     desync or a collective failure
func (n *Node) Serve(ctx context.Context, drive DriveFunc) error {
	if n.State() != StateServing {
		return fmt.Errorf("%w: state %s", ErrNotLoaded, n.State())
	}
	if !n.serving.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	var (
		err        error
		terminated bool
	)
	if n.IsMaster() {
		terminated, err = n.serveMaster(ctx, drive)
	} else {
		err = n.serveWorker(ctx)
		terminated = err == nil
	}

	// Workers that saw terminate wait at the final barrier, so the master
	// meets them there even when drive failed.
	if terminated {
		if berr := n.world.Barrier(ctx); berr != nil {
			err = errors.Join(err, fmt.Errorf("final barrier: %w", berr))
		}
	}
	if err != nil {
		n.fail(err)
		return err
	}

	n.transitionState(StateServing, StateTerminated)

	return nil
}

func (n *Node) protocolOptions() []protocol.Option {
	return []protocol.Option{
		protocol.WithRoot(n.cfg.MasterRank),
		protocol.WithEngine(n.engine),
		protocol.WithLogger(n.logger),
		protocol.WithMetrics(n.metrics),
		protocol.WithHooks(n.rawHooks),
	}
}

// serveMaster runs drive and reports whether the workers were terminated.
func (n *Node) serveMaster(ctx context.Context, drive DriveFunc) (bool, error) {
	m, err := protocol.NewMaster(n.world, n.protocolOptions()...)
	if err != nil {
		return false, err
	}

	var driveErr error
	if drive != nil {
		driveErr = drive(ctx, m)
	}
	if m.Terminated() {
		return true, driveErr
	}

	if err := m.Terminate(ctx); err != nil {
		return false, errors.Join(driveErr, fmt.Errorf("terminate workers: %w", err))
	}

	return true, driveErr
}

func (n *Node) serveWorker(ctx context.Context) error {
	w, err := protocol.NewWorker(n.world, n.protocolOptions()...)
	if err != nil {
		return err
	}

	return w.Run(ctx)
}

// Bounds returns the global bounds reduced over every rank. Empty before Load.
func (n *Node) Bounds() scene.Bounds {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.model == nil {
		return scene.EmptyBounds()
	}

	return n.bounds
}

// Model returns the local data groups, or nil before Load.
func (n *Node) Model() *scene.LocalModel {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.model
}

// OwnedGroups returns the data group IDs this rank loaded.
func (n *Node) OwnedGroups() []int {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return append([]int(nil), n.owned...)
}

// Workers returns the active worker sub-group, the world itself without a
// passive head, or nil on the passive head and before Load.
func (n *Node) Workers() ProcessGroup {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.workers
}

// Assignment summarizes the plan computed by Load, or returns nil before it.
func (n *Node) Assignment() []GroupSummary {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.plan == nil {
		return nil
	}

	return n.plan.Summary()
}

// WaitState waits for the node to reach the expected state within the
// timeout period.
//
// The returned channel receives exactly one value, nil on success or
// context.DeadlineExceeded, and is then closed.
//
// Parameters:
//   - expectedState: The state to wait for
//   - timeout: Maximum duration to wait for the state
//
// Returns:
//   - <-chan error: A channel that receives the result
func (n *Node) WaitState(expectedState State, timeout time.Duration) <-chan error {
	ch := make(chan error, 1)

	go func() {
		defer close(ch)

		if n.State() == expectedState {
			ch <- nil
			return
		}

		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()

		timeoutTimer := time.NewTimer(timeout)
		defer timeoutTimer.Stop()

		for {
			select {
			case <-ticker.C:
				if n.State() == expectedState {
					ch <- nil
					return
				}
			case <-timeoutTimer.C:
				ch <- context.DeadlineExceeded
				return
			}
		}
	}()

	return ch
}

// transitionState moves from one state to another if the node is in from
// and the transition is valid. It reports whether the transition happened.
func (n *Node) transitionState(from, to State) bool {
	if !isValidTransition(from, to) {
		n.logger.Error("invalid state transition attempted",
			"from", from.String(),
			"to", to.String(),
		)

		return false
	}
	if !n.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}

	now := time.Now()
	since := time.Unix(0, n.stateSince.Swap(now.UnixNano()))

	n.logger.Info("state transition",
		"from", from.String(),
		"to", to.String(),
		"rank", n.Rank(),
	)
	n.metrics.RecordStateTransition(from, to, now.Sub(since).Seconds())
	n.hooks.StateChanged(context.Background(), from, to)

	return true
}

// fail moves the node to StateFailed from whatever non-terminal state it is in.
func (n *Node) fail(err error) {
	for {
		from := n.State()
		if from == StateFailed || from == StateTerminated {
			return
		}
		if n.transitionState(from, StateFailed) {
			n.logger.Error("node failed", "rank", n.Rank(), "state", from.String(), "error", err)
			return
		}
	}
}

func isValidTransition(from, to State) bool {
	validTransitions := map[State][]State{
		StateInit:       {StateLoading, StateFailed},
		StateLoading:    {StateServing, StateFailed},
		StateServing:    {StateTerminated, StateFailed},
		StateTerminated: {},
		StateFailed:     {},
	}

	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}

	return false
}
