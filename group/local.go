package group

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/arloliu/scenepart/internal/mailbox"
	"github.com/arloliu/scenepart/types"
)

// localHub holds one mailbox per rank of an in-process world.
type localHub struct {
	boxes []*mailbox.Mailbox
}

// LocalTransport is an in-process Transport sharing mailboxes with its peers.
type LocalTransport struct {
	hub    *localHub
	rank   int
	closed atomic.Bool
}

var _ Transport = (*LocalTransport)(nil)

// NewLocalTransports creates size connected in-process transports.
func NewLocalTransports(size int) []*LocalTransport {
	hub := &localHub{boxes: make([]*mailbox.Mailbox, size)}
	for i := range hub.boxes {
		hub.boxes[i] = mailbox.New()
	}

	out := make([]*LocalTransport, size)
	for i := range out {
		out[i] = &LocalTransport{hub: hub, rank: i}
	}

	return out
}

// Rank returns the world rank.
func (t *LocalTransport) Rank() int { return t.rank }

// Size returns the world size.
func (t *LocalTransport) Size() int { return len(t.hub.boxes) }

// Send writes p into dst's mailbox.
func (t *LocalTransport) Send(_ context.Context, channel string, dst int, p []byte) error {
	if t.closed.Load() {
		return types.ErrGroupClosed
	}
	if dst < 0 || dst >= len(t.hub.boxes) {
		return fmt.Errorf("%w: destination %d", types.ErrInvalidRank, dst)
	}

	return t.hub.boxes[dst].Stream(mailbox.Key(channel, t.rank)).Write(p)
}

// Recv reads from this rank's mailbox.
func (t *LocalTransport) Recv(ctx context.Context, channel string, src int, p []byte) error {
	if src < 0 || src >= len(t.hub.boxes) {
		return fmt.Errorf("%w: source %d", types.ErrInvalidRank, src)
	}

	return t.hub.boxes[t.rank].Stream(mailbox.Key(channel, src)).ReadFull(ctx, p)
}

// Close fails this rank's pending receives and rejects further sends.
func (t *LocalTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	t.hub.boxes[t.rank].CloseAll(types.ErrGroupClosed)

	return nil
}

// Abort closes every rank's mailbox with err, as if the whole job had died.
func (t *LocalTransport) Abort(err error) {
	for _, box := range t.hub.boxes {
		box.CloseAll(err)
	}
}

// NewLocal creates an in-process world of size members.
//
// Each returned Comm must be driven from its own goroutine.
//
// Example:
//
//	comms := group.NewLocal(3)
//	var wg sync.WaitGroup
//	for _, c := range comms {
//	    wg.Go(func() { _ = c.Barrier(ctx) })
//	}
//	wg.Wait()
func NewLocal(size int, opts ...Option) []*Comm {
	transports := NewLocalTransports(size)
	comms := make([]*Comm, size)
	for i, t := range transports {
		c, err := New(t, opts...)
		if err != nil {
			// Unreachable: local transports always report a valid rank.
			panic(err)
		}
		comms[i] = c
	}

	return comms
}
