package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"cogentcore.org/core/math32"
	"github.com/google/uuid"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/require"

	scenepart "github.com/arloliu/scenepart"
	"github.com/arloliu/scenepart/content"
	"github.com/arloliu/scenepart/group"
	"github.com/arloliu/scenepart/natsgroup"
	"github.com/arloliu/scenepart/scene"
	"github.com/arloliu/scenepart/source"
	sptest "github.com/arloliu/scenepart/testing"
	"github.com/arloliu/scenepart/types"
)

// IntegrationTestConfig provides the node configuration for integration tests.
func IntegrationTestConfig(groups int) scenepart.Config {
	cfg := scenepart.TestConfig()
	cfg.Groups = groups
	cfg.LogLevel = "warn"

	return cfg
}

// CreateSphereContents creates n content items, each a unit sphere at
// (i, 0, 0) with cost i+1 so that balancing has something to do.
func CreateSphereContents(n int) []types.Content {
	contents := make([]types.Content, n)
	for i := range contents {
		set := &scene.SphereSet{
			Name:    fmt.Sprintf("sphere-%d", i),
			Centers: []math32.Vector3{math32.Vec3(float32(i), 0, 0)},
			Radius:  1,
		}
		contents[i] = &content.Func{
			Name: set.Name,
			Cost: float64(i + 1),
			Load: func(g *scene.DataGroup) error {
				g.AddSpheres(set)
				return nil
			},
		}
	}

	return contents
}

// NewSphereRegistry registers CreateSphereContents(n) in a fresh registry.
func NewSphereRegistry(t testing.TB, n int) *source.Registry {
	t.Helper()

	reg := source.NewRegistry()
	require.NoError(t, reg.Register(CreateSphereContents(n)...))

	return reg
}

// StateTracker records the state transitions of one rank.
type StateTracker struct {
	Rank int
	T    testing.TB

	mu     sync.Mutex
	states []types.State
}

// CreateStateTracker creates a new state tracker.
func CreateStateTracker(t testing.TB, rank int) *StateTracker {
	return &StateTracker{Rank: rank, T: t}
}

// Hooks returns node hooks that record state changes.
func (st *StateTracker) Hooks() *scenepart.Hooks {
	return &scenepart.Hooks{
		OnStateChanged: func(_ context.Context, from, to types.State) error {
			st.T.Logf("rank %d: %s -> %s", st.Rank, from.String(), to.String())

			st.mu.Lock()
			defer st.mu.Unlock()
			st.states = append(st.states, to)

			return nil
		},
	}
}

// States returns the states entered so far, in order.
func (st *StateTracker) States() []types.State {
	st.mu.Lock()
	defer st.mu.Unlock()

	return slices.Clone(st.states)
}

// HasState checks if the rank went through a specific state.
func (st *StateTracker) HasState(state types.State) bool {
	return slices.Contains(st.States(), state)
}

// JobCluster is a world of ranks joined over one embedded NATS server, each
// rank with its own client connection.
type JobCluster struct {
	Server     *server.Server
	Session    string
	Worlds     []*group.Comm
	Transports []*natsgroup.Transport
	T          testing.TB
}

// StartJobCluster starts an embedded server and joins size ranks to a fresh
// session. Ranks claim their numbers concurrently; Worlds is sorted by rank.
// Every transport is closed on test cleanup.
func StartJobCluster(t testing.TB, size int) *JobCluster {
	t.Helper()

	ns, _ := sptest.StartEmbeddedNATS(t)

	return JoinJobCluster(t, ns, uuid.NewString(), size)
}

// JoinJobCluster joins size ranks to session on an existing server.
func JoinJobCluster(t testing.TB, ns *server.Server, session string, size int) *JobCluster {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	transports := make([]*natsgroup.Transport, size)
	errs := make([]error, size)
	var wg sync.WaitGroup
	for i := range size {
		nc := sptest.Connect(t, ns)
		wg.Go(func() {
			transports[i], errs[i] = natsgroup.Connect(ctx, nc, natsgroup.Config{
				Session:      session,
				Size:         size,
				Rank:         -1,
				ClaimTTL:     5 * time.Second,
				ReadyTimeout: 10 * time.Second,
				Logger:       sptest.NewTestLogger(t),
			})
		})
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "rank slot %d failed to join", i)
	}
	for _, tr := range transports {
		t.Cleanup(func() { _ = tr.Close() })
	}

	slices.SortFunc(transports, func(a, b *natsgroup.Transport) int { return a.Rank() - b.Rank() })

	c := &JobCluster{Server: ns, Session: session, Transports: transports, T: t}
	for i, tr := range transports {
		require.Equal(t, i, tr.Rank(), "ranks must be dense")

		world, err := group.New(tr, group.WithLogger(sptest.NewRankLogger(t, i)))
		require.NoError(t, err)
		c.Worlds = append(c.Worlds, world)
	}

	return c
}

// Close closes every rank's transport.
func (c *JobCluster) Close() {
	for _, tr := range c.Transports {
		_ = tr.Close()
	}
}
