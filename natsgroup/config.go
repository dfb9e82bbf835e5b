package natsgroup

import (
	"fmt"
	"strings"
	"time"

	"github.com/arloliu/scenepart/types"
)

// Config holds transport settings. Every rank of a job must use the same
// Prefix, Session, Size and RankBucket.
type Config struct {
	// Prefix is the first subject token (default: "scenepart").
	Prefix string

	// Session names the job. Required; use a fresh UUID per run.
	Session string

	// Size is the world size. Required.
	Size int

	// Rank is this process's rank, or -1 to claim the first free rank.
	Rank int

	// RankBucket is the KV bucket prefix for rank claims (default: "scenepart-ranks").
	RankBucket string

	// ClaimTTL is the rank claim lease; renewed every ClaimTTL/3 (default: 30s).
	ClaimTTL time.Duration

	// ReadyTimeout bounds the startup rendezvous (default: 30s).
	ReadyTimeout time.Duration

	// Logger receives transport logs (default: no-op).
	Logger types.Logger
}

// Default values.
const (
	DefaultPrefix       = "scenepart"
	DefaultRankBucket   = "scenepart-ranks"
	DefaultClaimTTL     = 30 * time.Second
	DefaultReadyTimeout = 30 * time.Second
)

// SetDefaults fills zero-valued optional fields.
func (c *Config) SetDefaults() {
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.RankBucket == "" {
		c.RankBucket = DefaultRankBucket
	}
	if c.ClaimTTL <= 0 {
		c.ClaimTTL = DefaultClaimTTL
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = DefaultReadyTimeout
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.Session == "" {
		return fmt.Errorf("%w: session is required", types.ErrInvalidConfig)
	}
	if strings.ContainsAny(c.Session, ".*> \t") {
		return fmt.Errorf("%w: session %q must be a single subject token", types.ErrInvalidConfig, c.Session)
	}
	if strings.ContainsAny(c.Prefix, "*> \t") {
		return fmt.Errorf("%w: prefix %q contains wildcards or spaces", types.ErrInvalidConfig, c.Prefix)
	}
	if c.Size < 1 {
		return fmt.Errorf("%w: size must be >= 1, got %d", types.ErrInvalidConfig, c.Size)
	}
	if c.Rank < -1 || c.Rank >= c.Size {
		return fmt.Errorf("%w: rank %d outside [0, %d)", types.ErrInvalidRank, c.Rank, c.Size)
	}

	return nil
}
