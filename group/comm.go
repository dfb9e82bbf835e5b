package group

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/arloliu/scenepart/internal/logging"
	"github.com/arloliu/scenepart/internal/metrics"
	"github.com/arloliu/scenepart/types"
)

// Operation names reported to metrics.
const (
	OpBroadcast    = "broadcast"
	OpAllReduceMin = "allreduce_min"
	OpAllReduceMax = "allreduce_max"
	OpBarrier      = "barrier"
	OpGather       = "gather"
	OpSplit        = "split"
)

// DefaultID is the name of the root communicator.
const DefaultID = "world"

// Comm is one member's handle on a communicator.
//
// A Comm is not safe for concurrent use: collectives on one communicator
// must be issued from a single goroutine, in the same order on every member.
type Comm struct {
	id        string
	transport Transport
	members   []int // world rank of each communicator rank
	rank      int

	splits int
	failed atomic.Pointer[error]

	logger  types.Logger
	metrics types.MetricsCollector
}

var _ types.ProcessGroup = (*Comm)(nil)

// New creates the root communicator spanning every rank of the transport.
//
// Parameters:
//   - t: Connected transport
//   - opts: WithID, WithLogger, WithMetrics
//
// Returns:
//   - *Comm: Root communicator
//   - error: ErrInvalidRank if the transport reports an inconsistent rank/size
func New(t Transport, opts ...Option) (*Comm, error) {
	if t == nil {
		return nil, types.ErrProcessGroupRequired
	}
	if t.Size() < 1 || t.Rank() < 0 || t.Rank() >= t.Size() {
		return nil, fmt.Errorf("%w: rank %d of size %d", types.ErrInvalidRank, t.Rank(), t.Size())
	}

	o := options{id: DefaultID}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	members := make([]int, t.Size())
	for i := range members {
		members[i] = i
	}

	return &Comm{
		id:        o.id,
		transport: t,
		members:   members,
		rank:      t.Rank(),
		logger:    logging.OrNop(o.logger),
		metrics:   metrics.OrNop(o.metrics),
	}, nil
}

// ID returns the communicator name.
func (c *Comm) ID() string { return c.id }

// Rank returns this member's rank in the communicator.
func (c *Comm) Rank() int { return c.rank }

// Size returns the number of members.
func (c *Comm) Size() int { return len(c.members) }

// WorldRank maps a communicator rank to its world rank, or -1 if out of range.
func (c *Comm) WorldRank(rank int) int {
	if rank < 0 || rank >= len(c.members) {
		return -1
	}

	return c.members[rank]
}

// Err returns the error that failed the communicator, or nil.
func (c *Comm) Err() error {
	if p := c.failed.Load(); p != nil {
		return *p
	}

	return nil
}

// Close closes the underlying transport. Child communicators share the
// transport, so closing any of them closes all.
func (c *Comm) Close() error {
	return c.transport.Close()
}

// Broadcast copies buf from root to every member.
func (c *Comm) Broadcast(ctx context.Context, root int, buf []byte) error {
	return c.run(ctx, OpBroadcast, func(ctx context.Context) error {
		return c.broadcast(ctx, root, buf)
	})
}

// Gather collects equally sized buffers at root, ordered by rank.
func (c *Comm) Gather(ctx context.Context, root int, buf []byte) ([][]byte, error) {
	var out [][]byte
	err := c.run(ctx, OpGather, func(ctx context.Context) error {
		var err error
		out, err = c.gather(ctx, root, buf)

		return err
	})

	return out, err
}

// AllReduceMin replaces each value with its group-wide minimum.
func (c *Comm) AllReduceMin(ctx context.Context, values []float64) error {
	return c.run(ctx, OpAllReduceMin, func(ctx context.Context) error {
		return c.allReduce(ctx, values, func(acc, v float64) float64 {
			if v < acc {
				return v
			}

			return acc
		})
	})
}

// AllReduceMax replaces each value with its group-wide maximum.
func (c *Comm) AllReduceMax(ctx context.Context, values []float64) error {
	return c.run(ctx, OpAllReduceMax, func(ctx context.Context) error {
		return c.allReduce(ctx, values, func(acc, v float64) float64 {
			if v > acc {
				return v
			}

			return acc
		})
	})
}

// Barrier blocks until every member has entered it.
func (c *Comm) Barrier(ctx context.Context) error {
	return c.run(ctx, OpBarrier, func(ctx context.Context) error {
		token := []byte{1}
		if _, err := c.gather(ctx, 0, token); err != nil {
			return err
		}

		return c.broadcast(ctx, 0, token)
	})
}

// Split partitions the communicator by key and returns this member's partition.
//
// Members with key=false and key=true each form a child communicator. Within a
// child, ranks follow the parent rank order.
func (c *Comm) Split(ctx context.Context, key bool) (types.ProcessGroup, error) {
	var child *Comm
	err := c.run(ctx, OpSplit, func(ctx context.Context) error {
		keys, err := c.allGatherBool(ctx, key)
		if err != nil {
			return err
		}

		seq := c.splits
		c.splits++

		child = &Comm{
			id:        c.id + "/" + strconv.Itoa(seq) + "." + keyLabel(key),
			transport: c.transport,
			rank:      -1,
			logger:    c.logger,
			metrics:   c.metrics,
		}
		for r, k := range keys {
			if k != key {
				continue
			}
			if r == c.rank {
				child.rank = len(child.members)
			}
			child.members = append(child.members, c.members[r])
		}

		c.logger.Debug("communicator split",
			"parent", c.id,
			"child", child.id,
			"parent_rank", c.rank,
			"child_rank", child.rank,
			"child_size", len(child.members),
		)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return child, nil
}

func keyLabel(key bool) string {
	if key {
		return "1"
	}

	return "0"
}

// run applies failure tracking, error wrapping and metrics around one collective.
func (c *Comm) run(ctx context.Context, op string, fn func(context.Context) error) error {
	if err := c.Err(); err != nil {
		return fmt.Errorf("%s on %s: %w", op, c.id, err)
	}

	start := time.Now()
	err := fn(ctx)
	c.metrics.RecordCollective(op, time.Since(start).Seconds(), err == nil)
	if err == nil {
		return nil
	}

	// Argument errors are reported before any byte moves, so the group stays usable.
	if errors.Is(err, types.ErrInvalidRank) {
		return fmt.Errorf("%s on %s: %w", op, c.id, err)
	}

	wrapped := fmt.Errorf("%s on %s (rank %d/%d): %w: %w", op, c.id, c.rank, len(c.members), types.ErrCollectiveFailed, err)
	c.failed.CompareAndSwap(nil, &wrapped)
	c.logger.Error("collective failed",
		"op", op,
		"communicator", c.id,
		"rank", c.rank,
		"error", err,
	)

	return wrapped
}

func (c *Comm) checkRoot(root int) error {
	if root < 0 || root >= len(c.members) {
		return fmt.Errorf("%w: root %d outside [0, %d)", types.ErrInvalidRank, root, len(c.members))
	}

	return nil
}

func (c *Comm) send(ctx context.Context, dst int, p []byte) error {
	return c.transport.Send(ctx, c.id, c.members[dst], p)
}

func (c *Comm) recv(ctx context.Context, src int, p []byte) error {
	return c.transport.Recv(ctx, c.id, c.members[src], p)
}

func (c *Comm) broadcast(ctx context.Context, root int, buf []byte) error {
	if err := c.checkRoot(root); err != nil {
		return err
	}
	if len(c.members) == 1 || len(buf) == 0 {
		return nil
	}

	if c.rank != root {
		return c.recv(ctx, root, buf)
	}

	for r := range c.members {
		if r == root {
			continue
		}
		if err := c.send(ctx, r, buf); err != nil {
			return fmt.Errorf("send to rank %d: %w", r, err)
		}
	}

	return nil
}

func (c *Comm) gather(ctx context.Context, root int, buf []byte) ([][]byte, error) {
	if err := c.checkRoot(root); err != nil {
		return nil, err
	}

	if c.rank != root {
		if err := c.send(ctx, root, buf); err != nil {
			return nil, fmt.Errorf("send to rank %d: %w", root, err)
		}

		return nil, nil
	}

	out := make([][]byte, len(c.members))
	for r := range c.members {
		out[r] = make([]byte, len(buf))
		if r == root {
			copy(out[r], buf)
			continue
		}
		if err := c.recv(ctx, r, out[r]); err != nil {
			return nil, fmt.Errorf("receive from rank %d: %w", r, err)
		}
	}

	return out, nil
}

func (c *Comm) allReduce(ctx context.Context, values []float64, op func(acc, v float64) float64) error {
	if len(values) == 0 || len(c.members) == 1 {
		return nil
	}

	buf := encodeFloats(values)
	parts, err := c.gather(ctx, 0, buf)
	if err != nil {
		return err
	}

	if c.rank == 0 {
		acc := decodeFloats(parts[0])
		for _, p := range parts[1:] {
			for i, v := range decodeFloats(p) {
				acc[i] = op(acc[i], v)
			}
		}
		buf = encodeFloats(acc)
	}

	if err := c.broadcast(ctx, 0, buf); err != nil {
		return err
	}
	copy(values, decodeFloats(buf))

	return nil
}

func (c *Comm) allGatherBool(ctx context.Context, key bool) ([]bool, error) {
	own := []byte{0}
	if key {
		own[0] = 1
	}

	parts, err := c.gather(ctx, 0, own)
	if err != nil {
		return nil, err
	}

	all := make([]byte, len(c.members))
	if c.rank == 0 {
		for r, p := range parts {
			all[r] = p[0]
		}
	}
	if err := c.broadcast(ctx, 0, all); err != nil {
		return nil, err
	}

	keys := make([]bool, len(all))
	for i, b := range all {
		keys[i] = b != 0
	}

	return keys, nil
}

func encodeFloats(values []float64) []byte {
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}

	return buf
}

func decodeFloats(buf []byte) []float64 {
	out := make([]float64, len(buf)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}

	return out
}
