package natsgroup

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/scenepart/group"
	"github.com/arloliu/scenepart/internal/kvutil"
	"github.com/arloliu/scenepart/internal/logging"
	"github.com/arloliu/scenepart/internal/mailbox"
	"github.com/arloliu/scenepart/internal/natsutil"
	"github.com/arloliu/scenepart/types"
)

// payloadHeadroom is left free in each chunk for protocol framing.
const payloadHeadroom = 512

// Transport is a group.Transport over a NATS connection.
type Transport struct {
	nc       *nats.Conn
	kv       jetstream.KeyValue
	claimer  *Claimer
	sub      *nats.Subscription
	box      *mailbox.Mailbox
	logger   types.Logger
	rank     int
	size     int
	linkBase string
	maxChunk int
	closed   atomic.Bool
}

var _ group.Transport = (*Transport)(nil)

// Connect joins a session and returns once every rank is listening.
//
// The NATS connection stays owned by the caller and is not closed by Close.
//
// Parameters:
//   - ctx: Bounds bucket setup and rank claiming
//   - nc: Connected NATS client with JetStream available
//   - cfg: Transport configuration
//
// Returns:
//   - *Transport: Ready transport
//   - error: Configuration, claim, subscription or rendezvous error
//
// Example:
//
//	t, err := natsgroup.Connect(ctx, nc, natsgroup.Config{Session: id, Size: 4, Rank: -1})
//	if err != nil {
//	    return err
//	}
//	defer t.Close()
//	world, err := group.New(t)
func Connect(ctx context.Context, nc *nats.Conn, cfg Config) (*Transport, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := logging.OrNop(cfg.Logger)

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	kv, err := kvutil.EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{
		Bucket:      kvutil.BucketName(cfg.RankBucket, cfg.Session),
		Description: "scenepart rank claims for session " + cfg.Session,
		History:     1,
		TTL:         cfg.ClaimTTL,
		Storage:     jetstream.MemoryStorage,
	}, 3)
	if err != nil {
		return nil, err
	}

	if err := recordSize(ctx, kv, cfg.Size); err != nil {
		return nil, err
	}

	claimer := NewClaimer(kv, cfg.Size, cfg.ClaimTTL, logger)
	rank := cfg.Rank
	if rank < 0 {
		rank, err = claimer.Claim(ctx)
	} else {
		err = claimer.ClaimRank(ctx, rank)
	}
	if err != nil {
		return nil, err
	}

	maxChunk := int(nc.MaxPayload()) - payloadHeadroom
	if maxChunk <= 0 {
		maxChunk = int(nc.MaxPayload())
	}

	t := &Transport{
		nc:       nc,
		kv:       kv,
		claimer:  claimer,
		box:      mailbox.New(),
		logger:   logger,
		rank:     rank,
		size:     cfg.Size,
		linkBase: cfg.Prefix + "." + cfg.Session + ".link",
		maxChunk: maxChunk,
	}

	if err := t.subscribe(cfg.Prefix, cfg.Session); err != nil {
		t.abortStartup()
		return nil, err
	}
	if err := claimer.StartRenewal(context.WithoutCancel(ctx)); err != nil {
		t.abortStartup()
		return nil, err
	}

	readyCtx, cancel := context.WithTimeout(ctx, cfg.ReadyTimeout)
	defer cancel()
	if err := t.rendezvous(readyCtx); err != nil {
		_ = t.Close()
		return nil, err
	}

	logger.Info("nats transport ready",
		"session", cfg.Session,
		"rank", rank,
		"size", cfg.Size,
		"max_chunk", maxChunk,
	)

	return t, nil
}

func (t *Transport) subscribe(prefix, session string) error {
	sub, err := t.nc.Subscribe(inboxSubject(prefix, session, t.rank), t.deliver)
	if err != nil {
		return natsutil.WrapTransportError("subscribe", err)
	}
	// Collectives can run far ahead of a slow rank; never drop messages.
	if err := sub.SetPendingLimits(-1, -1); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("set pending limits: %w", err)
	}
	if err := t.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return natsutil.WrapTransportError("flush subscription", err)
	}
	t.sub = sub

	return nil
}

// deliver runs on the subscription goroutine, in publish order per sender.
func (t *Transport) deliver(msg *nats.Msg) {
	src, channel, err := parseLink(msg.Subject)
	if err != nil {
		t.logger.Warn("dropping unexpected message", "subject", msg.Subject, "error", err)
		return
	}
	if err := t.box.Stream(mailbox.Key(channel, src)).Write(msg.Data); err != nil {
		t.logger.Debug("message after close", "subject", msg.Subject, "error", err)
	}
}

// rendezvous announces this rank and waits for a ready key from every rank.
func (t *Transport) rendezvous(ctx context.Context) error {
	if _, err := t.kv.Put(ctx, readyKey(t.rank), []byte(time.Now().UTC().Format(time.RFC3339Nano))); err != nil {
		return fmt.Errorf("publish ready: %w", err)
	}

	watcher, err := t.kv.Watch(ctx, readyPattern)
	if err != nil {
		return fmt.Errorf("watch ready keys: %w", err)
	}
	defer func() { _ = watcher.Stop() }()

	seen := make(map[int]struct{}, t.size)
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %d of %d ranks ready: %w", types.ErrCollectiveFailed, len(seen), t.size, ctx.Err())
		case entry, ok := <-watcher.Updates():
			if !ok {
				return fmt.Errorf("%w: ready watcher closed", types.ErrGroupClosed)
			}
			if entry == nil || entry.Operation() != jetstream.KeyValuePut {
				continue
			}
			r, err := strconv.Atoi(strings.TrimPrefix(entry.Key(), "ready."))
			if err != nil || r < 0 || r >= t.size {
				continue
			}
			seen[r] = struct{}{}
			if len(seen) == t.size {
				return nil
			}
		}
	}
}

// Rank returns the claimed world rank.
func (t *Transport) Rank() int { return t.rank }

// Size returns the world size.
func (t *Transport) Size() int { return t.size }

// Send publishes p to dst, split into max-payload chunks.
func (t *Transport) Send(_ context.Context, channel string, dst int, p []byte) error {
	if t.closed.Load() {
		return types.ErrGroupClosed
	}
	if dst < 0 || dst >= t.size {
		return fmt.Errorf("%w: destination %d", types.ErrInvalidRank, dst)
	}

	subject := t.linkSubject(dst, t.rank, channel)
	for len(p) > 0 {
		n := min(len(p), t.maxChunk)
		if err := t.nc.Publish(subject, p[:n]); err != nil {
			return natsutil.WrapTransportError("publish", err)
		}
		p = p[n:]
	}

	return nil
}

// Recv reads len(p) bytes sent by src on channel.
func (t *Transport) Recv(ctx context.Context, channel string, src int, p []byte) error {
	if src < 0 || src >= t.size {
		return fmt.Errorf("%w: source %d", types.ErrInvalidRank, src)
	}
	return t.box.Stream(mailbox.Key(channel, src)).ReadFull(ctx, p)
}

// Close unsubscribes, fails pending receives and releases the rank claim.
func (t *Transport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}

	var firstErr error
	if t.sub != nil {
		if err := t.sub.Unsubscribe(); err != nil && !natsutil.IsConnectivityError(err) {
			firstErr = err
		}
	}
	t.box.CloseAll(types.ErrGroupClosed)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.kv.Delete(ctx, readyKey(t.rank)); err != nil && firstErr == nil && !natsutil.IsConnectivityError(err) {
		firstErr = err
	}
	if err := t.claimer.Release(ctx); err != nil && firstErr == nil && !natsutil.IsConnectivityError(err) {
		firstErr = err
	}

	return firstErr
}

func (t *Transport) abortStartup() {
	t.closed.Store(true)
	if t.sub != nil {
		_ = t.sub.Unsubscribe()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.claimer.Release(ctx); err != nil {
		t.logger.Warn("release rank after failed startup", "rank", t.rank, "error", err)
	}
}
