package group

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/scenepart/types"
)

// runAll drives fn on every member concurrently and returns per-rank errors.
func runAll(t *testing.T, comms []*Comm, fn func(ctx context.Context, c *Comm) error) []error {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errs := make([]error, len(comms))
	var wg sync.WaitGroup
	for i, c := range comms {
		wg.Go(func() {
			errs[i] = fn(ctx, c)
		})
	}
	wg.Wait()

	return errs
}

func requireNoErrors(t *testing.T, errs []error) {
	t.Helper()
	for r, err := range errs {
		require.NoError(t, err, "rank %d", r)
	}
}

func TestNewLocal(t *testing.T) {
	comms := NewLocal(4)

	require.Len(t, comms, 4)
	for i, c := range comms {
		require.Equal(t, i, c.Rank())
		require.Equal(t, 4, c.Size())
		require.Equal(t, DefaultID, c.ID())
		require.Equal(t, i, c.WorldRank(i))
	}
	require.Equal(t, -1, comms[0].WorldRank(4))
}

func TestNew_RejectsNilTransport(t *testing.T) {
	_, err := New(nil)
	require.ErrorIs(t, err, types.ErrProcessGroupRequired)
}

func TestComm_Broadcast(t *testing.T) {
	for _, root := range []int{0, 2} {
		comms := NewLocal(3)
		got := make([][]byte, 3)

		errs := runAll(t, comms, func(ctx context.Context, c *Comm) error {
			buf := make([]byte, 5)
			if c.Rank() == root {
				copy(buf, "hello")
			}
			if err := c.Broadcast(ctx, root, buf); err != nil {
				return err
			}
			got[c.Rank()] = buf

			return nil
		})

		requireNoErrors(t, errs)
		for r := range got {
			require.Equal(t, []byte("hello"), got[r], "root %d rank %d", root, r)
		}
	}
}

func TestComm_BroadcastOrdering(t *testing.T) {
	comms := NewLocal(3)
	const n = 50
	got := make([][]byte, 3)

	errs := runAll(t, comms, func(ctx context.Context, c *Comm) error {
		for i := range n {
			buf := []byte{0}
			if c.Rank() == 0 {
				buf[0] = byte(i)
			}
			if err := c.Broadcast(ctx, 0, buf); err != nil {
				return err
			}
			got[c.Rank()] = append(got[c.Rank()], buf[0])
		}

		return nil
	})

	requireNoErrors(t, errs)
	for r := range got {
		require.Len(t, got[r], n)
		for i, b := range got[r] {
			require.Equal(t, byte(i), b)
		}
	}
}

func TestComm_BroadcastInvalidRoot(t *testing.T) {
	c := NewLocal(2)[0]

	err := c.Broadcast(context.Background(), 5, []byte{1})

	require.ErrorIs(t, err, types.ErrInvalidRank)
	require.NoError(t, c.Err(), "argument errors must not fail the communicator")
}

func TestComm_Gather(t *testing.T) {
	comms := NewLocal(4)
	var rootResult [][]byte

	errs := runAll(t, comms, func(ctx context.Context, c *Comm) error {
		out, err := c.Gather(ctx, 1, []byte{byte(10 + c.Rank()), byte(c.Rank())})
		if err != nil {
			return err
		}
		if c.Rank() == 1 {
			rootResult = out
		} else if out != nil {
			return errors.New("non-root received gather result")
		}

		return nil
	})

	requireNoErrors(t, errs)
	require.Equal(t, [][]byte{{10, 0}, {11, 1}, {12, 2}, {13, 3}}, rootResult)
}

func TestComm_AllReduce(t *testing.T) {
	comms := NewLocal(3)
	mins := make([][]float64, 3)
	maxs := make([][]float64, 3)

	errs := runAll(t, comms, func(ctx context.Context, c *Comm) error {
		r := float64(c.Rank())
		lo := []float64{r, -r, math.Inf(1), 7}
		hi := []float64{r, -r, math.Inf(-1), 7}
		if c.Rank() == 1 {
			lo[2], hi[2] = 3, 3
		}
		if err := c.AllReduceMin(ctx, lo); err != nil {
			return err
		}
		if err := c.AllReduceMax(ctx, hi); err != nil {
			return err
		}
		mins[c.Rank()], maxs[c.Rank()] = lo, hi

		return nil
	})

	requireNoErrors(t, errs)
	for r := range 3 {
		require.Equal(t, []float64{0, -2, 3, 7}, mins[r])
		require.Equal(t, []float64{2, 0, 3, 7}, maxs[r])
	}
}

func TestComm_Barrier(t *testing.T) {
	comms := NewLocal(3)
	var mu sync.Mutex
	var events []string

	errs := runAll(t, comms, func(ctx context.Context, c *Comm) error {
		if c.Rank() == 2 {
			time.Sleep(30 * time.Millisecond)
		}
		mu.Lock()
		events = append(events, "enter")
		mu.Unlock()

		if err := c.Barrier(ctx); err != nil {
			return err
		}

		mu.Lock()
		events = append(events, "exit")
		mu.Unlock()

		return nil
	})

	requireNoErrors(t, errs)
	require.Equal(t, []string{"enter", "enter", "enter", "exit", "exit", "exit"}, events)
}

func TestComm_Split(t *testing.T) {
	comms := NewLocal(5)
	children := make([]types.ProcessGroup, 5)

	errs := runAll(t, comms, func(ctx context.Context, c *Comm) error {
		child, err := c.Split(ctx, c.Rank() != 0)
		if err != nil {
			return err
		}
		children[c.Rank()] = child

		return child.Barrier(ctx)
	})

	requireNoErrors(t, errs)

	head := children[0].(*Comm) //nolint:forcetypeassert
	require.Equal(t, 0, head.Rank())
	require.Equal(t, 1, head.Size())
	require.Equal(t, "world/0.0", head.ID())

	for r := 1; r < 5; r++ {
		w := children[r].(*Comm) //nolint:forcetypeassert
		require.Equal(t, r-1, w.Rank(), "relative order preserved")
		require.Equal(t, 4, w.Size())
		require.Equal(t, r, w.WorldRank(w.Rank()))
		require.Equal(t, "world/0.1", w.ID())
	}
}

func TestComm_SplitChildCollectives(t *testing.T) {
	comms := NewLocal(4)
	got := make([]float64, 4)

	errs := runAll(t, comms, func(ctx context.Context, c *Comm) error {
		child, err := c.Split(ctx, c.Rank()%2 == 1)
		if err != nil {
			return err
		}
		v := []float64{float64(c.Rank())}
		if err := child.AllReduceMax(ctx, v); err != nil {
			return err
		}
		got[c.Rank()] = v[0]

		// Parent stays usable after a split.
		return c.Barrier(ctx)
	})

	requireNoErrors(t, errs)
	require.Equal(t, []float64{2, 3, 2, 3}, got)
}

func TestComm_SingleMember(t *testing.T) {
	c := NewLocal(1)[0]
	ctx := context.Background()

	require.NoError(t, c.Broadcast(ctx, 0, []byte{1}))
	require.NoError(t, c.Barrier(ctx))
	v := []float64{4}
	require.NoError(t, c.AllReduceMin(ctx, v))
	require.Equal(t, []float64{4}, v)
	out, err := c.Gather(ctx, 0, []byte{9})
	require.NoError(t, err)
	require.Equal(t, [][]byte{{9}}, out)
}

func TestComm_FailureIsSticky(t *testing.T) {
	comms := NewLocal(2)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Rank 1 waits for a broadcast rank 0 never sends.
	err := comms[1].Broadcast(ctx, 0, make([]byte, 4))
	require.ErrorIs(t, err, types.ErrCollectiveFailed)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	err = comms[1].Barrier(context.Background())
	require.ErrorIs(t, err, types.ErrCollectiveFailed)
	require.Error(t, comms[1].Err())
}

func TestComm_TransportClosed(t *testing.T) {
	transports := NewLocalTransports(2)
	c, err := New(transports[1])
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- c.Barrier(context.Background()) }()

	transports[0].Abort(types.ErrGroupClosed)

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, types.ErrCollectiveFailed)
		require.ErrorIs(t, err, types.ErrGroupClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("barrier did not fail after abort")
	}
}

type recordingMetrics struct {
	types.MetricsCollector
	mu  sync.Mutex
	ops map[string]int
}

func (m *recordingMetrics) RecordCollective(op string, _ float64, _ bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops[op]++
}

func TestComm_RecordsMetrics(t *testing.T) {
	m := &recordingMetrics{ops: map[string]int{}}
	comms := NewLocal(2, WithMetrics(m), WithID("job"))

	errs := runAll(t, comms, func(ctx context.Context, c *Comm) error {
		if err := c.Barrier(ctx); err != nil {
			return err
		}

		return c.Broadcast(ctx, 0, []byte{1})
	})

	requireNoErrors(t, errs)
	require.Equal(t, "job", comms[0].ID())
	require.Equal(t, 2, m.ops[OpBarrier])
	require.Equal(t, 2, m.ops[OpBroadcast])
}
