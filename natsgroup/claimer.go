package natsgroup

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/scenepart/internal/logging"
	"github.com/arloliu/scenepart/types"
)

// Claimer errors.
var (
	ErrNoFreeRank    = errors.New("no free rank in session")
	ErrRankTaken     = errors.New("rank already claimed in session")
	ErrNotClaimed    = errors.New("rank not claimed")
	ErrAlreadyClosed = errors.New("claimer already closed")
)

// Claimer holds a rank lease in a session KV bucket.
//
// Claims use KV Create, so two processes can never hold the same rank. The
// lease is kept alive by a renewal loop writing the key every ttl/3.
type Claimer struct {
	kv     jetstream.KeyValue
	size   int
	ttl    time.Duration
	logger types.Logger

	mu       sync.Mutex
	rank     int
	renewing bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewClaimer creates a claimer for ranks [0, size).
//
// Example:
//
//	claimer := natsgroup.NewClaimer(kv, 4, 30*time.Second, logger)
//	rank, err := claimer.Claim(ctx)
//	_ = claimer.StartRenewal(ctx)
//	defer claimer.Release(context.Background())
func NewClaimer(kv jetstream.KeyValue, size int, ttl time.Duration, logger types.Logger) *Claimer {
	return &Claimer{
		kv:     kv,
		size:   size,
		ttl:    ttl,
		logger: logging.OrNop(logger),
		rank:   -1,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Claim takes the lowest free rank.
//
// Returns:
//   - int: Claimed rank
//   - error: ErrNoFreeRank if every rank is held, context or NATS error
func (c *Claimer) Claim(ctx context.Context) (int, error) {
	c.logger.Debug("rank claim starting", "size", c.size, "ttl", c.ttl)

	for r := range c.size {
		if err := ctx.Err(); err != nil {
			return -1, err
		}

		err := c.create(ctx, r)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, ErrRankTaken) {
			return -1, err
		}
		c.logger.Debug("rank already claimed, trying next", "rank", r)
	}

	c.logger.Error("no free rank in session", "size", c.size)

	return -1, ErrNoFreeRank
}

// ClaimRank takes a specific rank.
//
// Returns:
//   - error: ErrRankTaken if another process holds it
func (c *Claimer) ClaimRank(ctx context.Context, rank int) error {
	if rank < 0 || rank >= c.size {
		return fmt.Errorf("%w: %d outside [0, %d)", types.ErrInvalidRank, rank, c.size)
	}

	return c.create(ctx, rank)
}

func (c *Claimer) create(ctx context.Context, rank int) error {
	key := rankKey(rank)
	revision, err := c.kv.Create(ctx, key, leaseValue())
	if errors.Is(err, jetstream.ErrKeyExists) {
		return fmt.Errorf("%w: %d", ErrRankTaken, rank)
	}
	if err != nil {
		return fmt.Errorf("claim rank %d: %w", rank, err)
	}

	c.mu.Lock()
	c.rank = rank
	c.mu.Unlock()
	c.logger.Info("rank claimed", "rank", rank, "revision", revision)

	return nil
}

// Rank returns the claimed rank, or -1.
func (c *Claimer) Rank() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.rank
}

// StartRenewal starts the lease renewal loop. The loop exits on Release or
// when ctx is canceled.
func (c *Claimer) StartRenewal(ctx context.Context) error {
	if c.Rank() < 0 {
		return ErrNotClaimed
	}

	c.mu.Lock()
	if c.renewing {
		c.mu.Unlock()
		return nil
	}
	c.renewing = true
	c.mu.Unlock()

	go c.renewalLoop(ctx)

	return nil
}

func (c *Claimer) renewalLoop(ctx context.Context) {
	defer close(c.doneCh)

	ticker := time.NewTicker(max(c.ttl/3, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			if err := c.renew(ctx); err != nil {
				c.logger.Warn("rank lease renewal failed", "rank", c.Rank(), "error", err)
			}
		}
	}
}

func (c *Claimer) renew(ctx context.Context) error {
	rank := c.Rank()
	if rank < 0 {
		return ErrNotClaimed
	}

	if _, err := c.kv.Put(ctx, rankKey(rank), leaseValue()); err != nil {
		return fmt.Errorf("renew rank %d: %w", rank, err)
	}

	return nil
}

// Release stops renewal and deletes the claim.
func (c *Claimer) Release(ctx context.Context) error {
	rank := c.Rank()
	if rank < 0 {
		return ErrNotClaimed
	}

	select {
	case <-c.stopCh:
		return ErrAlreadyClosed
	default:
		close(c.stopCh)
	}

	c.mu.Lock()
	renewing := c.renewing
	c.mu.Unlock()
	if renewing {
		select {
		case <-c.doneCh:
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}

	if err := c.kv.Delete(ctx, rankKey(rank)); err != nil {
		return fmt.Errorf("release rank %d: %w", rank, err)
	}

	c.mu.Lock()
	c.rank = -1
	c.mu.Unlock()

	return nil
}

func leaseValue() []byte {
	return []byte(time.Now().UTC().Format(time.RFC3339Nano))
}

// recordSize stores the world size, or checks it against the stored value.
func recordSize(ctx context.Context, kv jetstream.KeyValue, size int) error {
	value := []byte(strconv.Itoa(size))
	_, err := kv.Create(ctx, sizeKey, value)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jetstream.ErrKeyExists) {
		return fmt.Errorf("record world size: %w", err)
	}

	entry, err := kv.Get(ctx, sizeKey)
	if err != nil {
		return fmt.Errorf("read world size: %w", err)
	}
	existing := strings.TrimSpace(string(entry.Value()))
	if existing != string(value) {
		return fmt.Errorf("%w: session size is %s, this rank was started with %d", types.ErrInvalidConfig, existing, size)
	}

	return nil
}
