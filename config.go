package scenepart

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/scenepart/strategy"
)

// NATSConfig configures the NATS process group transport.
type NATSConfig struct {
	// URL of the NATS server. Empty with --embedded in the CLI.
	URL string `yaml:"url"`

	// SubjectPrefix is the first subject token of every link subject.
	SubjectPrefix string `yaml:"subjectPrefix"`

	// Session names one job. Every rank of a job uses the same value.
	Session string `yaml:"session"`

	// Size is the world size.
	Size int `yaml:"size"`

	// Rank is this process's rank, or -1 to claim the lowest free rank.
	Rank int `yaml:"rank"`

	// RankBucket is the KV bucket prefix holding rank claims.
	RankBucket string `yaml:"rankBucket"`

	// ClaimTTL is the rank claim lease. Renewed every ClaimTTL/3.
	ClaimTTL time.Duration `yaml:"claimTtl"`

	// ReadyTimeout bounds the wait for every rank to subscribe.
	ReadyTimeout time.Duration `yaml:"readyTimeout"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Address   string `yaml:"address"`
	Namespace string `yaml:"namespace"`
}

// Config is the configuration for a Node.
//
// Every rank of a job must load an identical configuration apart from
// NATS.Rank. All duration fields accept Go duration strings like "30s".
type Config struct {
	// Groups is the number of data groups the scene is partitioned into.
	// Must be a multiple of the active worker count unless
	// AllowPartialMapping is set.
	Groups int `yaml:"groups"`

	// Strategy selects the assignment strategy: "lpt" (default),
	// "round_robin" or "consistent_hash".
	Strategy string `yaml:"strategy"`

	// MasterRank is the rank that drives the command protocol.
	MasterRank int `yaml:"masterRank"`

	// PassiveHead keeps the master rank out of data ownership. It still
	// drives the protocol and takes part in every world collective.
	PassiveHead bool `yaml:"passiveHead"`

	// AllowPartialMapping accepts group counts that are not a multiple of
	// the active worker count. Group IDs then wrap modulo Groups, and some
	// groups can be loaded by more than one rank.
	AllowPartialMapping bool `yaml:"allowPartialMapping"`

	// LoadTimeout bounds Node.Load. Zero disables the bound.
	LoadTimeout time.Duration `yaml:"loadTimeout"`

	// OperationTimeout bounds bootstrap KV operations (bucket setup, rank
	// claims) made before the world exists.
	OperationTimeout time.Duration `yaml:"operationTimeout"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel"`

	NATS    NATSConfig    `yaml:"nats"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// DefaultConfig returns a Config with sensible defaults.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		Groups:           1,
		Strategy:         strategy.NameLPT,
		MasterRank:       0,
		OperationTimeout: 10 * time.Second,
		LogLevel:         "info",
		NATS: NATSConfig{
			SubjectPrefix: "scenepart",
			Rank:          -1,
			RankBucket:    "scenepart-ranks",
			ClaimTTL:      30 * time.Second,
			ReadyTimeout:  30 * time.Second,
		},
		Metrics: MetricsConfig{
			Address:   ":9090",
			Namespace: "scenepart",
		},
	}
}

// SetDefaults fills in missing configuration values with defaults.
//
// Rank 0 is a valid explicit rank, so NATS.Rank is left untouched; YAML
// files that want auto-claiming set rank: -1.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Groups == 0 {
		cfg.Groups = defaults.Groups
	}
	if cfg.Strategy == "" {
		cfg.Strategy = defaults.Strategy
	}
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = defaults.OperationTimeout
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}
	if cfg.NATS.SubjectPrefix == "" {
		cfg.NATS.SubjectPrefix = defaults.NATS.SubjectPrefix
	}
	if cfg.NATS.RankBucket == "" {
		cfg.NATS.RankBucket = defaults.NATS.RankBucket
	}
	if cfg.NATS.ClaimTTL == 0 {
		cfg.NATS.ClaimTTL = defaults.NATS.ClaimTTL
	}
	if cfg.NATS.ReadyTimeout == 0 {
		cfg.NATS.ReadyTimeout = defaults.NATS.ReadyTimeout
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = defaults.Metrics.Address
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = defaults.Metrics.Namespace
	}
}

// Validate checks configuration constraints that do not depend on the
// world size. Node.Load checks the rest before any collective call.
//
// Returns:
//   - error: ErrInvalidConfig or ErrInvalidGroupCount with an explanation
func (cfg *Config) Validate() error {
	if cfg.Groups <= 0 {
		return fmt.Errorf("%w: groups must be positive, got %d", ErrInvalidGroupCount, cfg.Groups)
	}
	if _, err := strategy.New(cfg.Strategy); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if cfg.MasterRank < 0 {
		return fmt.Errorf("%w: masterRank must be >= 0, got %d", ErrInvalidConfig, cfg.MasterRank)
	}
	if cfg.LoadTimeout < 0 || cfg.OperationTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}
	if cfg.NATS.Size < 0 {
		return fmt.Errorf("%w: nats.size must not be negative, got %d", ErrInvalidConfig, cfg.NATS.Size)
	}
	if cfg.NATS.Size > 0 && cfg.MasterRank >= cfg.NATS.Size {
		return fmt.Errorf("%w: masterRank %d outside world of %d", ErrInvalidConfig, cfg.MasterRank, cfg.NATS.Size)
	}
	if cfg.NATS.Rank < -1 || (cfg.NATS.Size > 0 && cfg.NATS.Rank >= cfg.NATS.Size) {
		return fmt.Errorf("%w: nats.rank %d outside [-1, %d)", ErrInvalidConfig, cfg.NATS.Rank, cfg.NATS.Size)
	}
	if strings.ContainsAny(cfg.NATS.Session, ".*> \t") {
		return fmt.Errorf("%w: nats.session %q must be a single subject token", ErrInvalidConfig, cfg.NATS.Session)
	}
	if cfg.NATS.ClaimTTL < 0 || cfg.NATS.ReadyTimeout < 0 {
		return fmt.Errorf("%w: nats timeouts must not be negative", ErrInvalidConfig)
	}

	return nil
}

// ValidateWithWarnings logs warnings for values that are valid but unusual.
//
// Parameters:
//   - logger: Logger instance for warning output
func (cfg *Config) ValidateWithWarnings(logger Logger) {
	if cfg.AllowPartialMapping {
		logger.Warn("partial group mapping enabled; some data groups may be loaded by more than one rank",
			"groups", cfg.Groups,
		)
	}
	if cfg.NATS.ClaimTTL > 0 && cfg.NATS.ClaimTTL < 3*time.Second {
		logger.Warn("rank claim TTL is very short, a stalled rank may lose its claim",
			"claimTTL", cfg.NATS.ClaimTTL,
			"recommended", "10s or higher",
		)
	}
	if cfg.PassiveHead && cfg.NATS.Size == 1 {
		logger.Warn("passive head in a single-rank world leaves no workers; the head will own data")
	}
}

// LoadConfig loads configuration from a YAML file.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded configuration with defaults applied
//   - error: Error if the file cannot be read, parsed or validated
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML configuration, applies defaults and validates it.
//
// Fields absent from data keep their DefaultConfig values.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	SetDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// TestConfig returns a configuration with short timeouts for tests.
//
// Returns:
//   - Config: Configuration with fast timings for tests
//
// Example:
//
//	cfg := scenepart.TestConfig()
//	cfg.Groups = 4
//	node, err := scenepart.NewNode(&cfg, world, registry)
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.LoadTimeout = 10 * time.Second
	cfg.OperationTimeout = 2 * time.Second
	cfg.LogLevel = "debug"
	cfg.NATS.ClaimTTL = 5 * time.Second
	cfg.NATS.ReadyTimeout = 5 * time.Second

	return cfg
}
