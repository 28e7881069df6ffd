package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every variable name. Nested sections add their
// own segment: COMPLY_POLICY_DEDUP_WINDOW, COMPLY_DATABASE_URL, COMPLY_KAFKA_BROKERS.
const EnvPrefix = "COMPLY"

// Server captures HTTP server level configuration.
type Server struct {
	Addr     string `envconfig:"ADDR" default:":8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// AdminToken guards /admin routes when set.
	AdminToken    string        `envconfig:"ADMIN_TOKEN"`
	ShutdownGrace time.Duration `envconfig:"SHUTDOWN_GRACE" default:"10s"`

	Policy   PolicyConfig   `envconfig:"POLICY"`
	Review   ReviewConfig   `envconfig:"REVIEW"`
	Database DatabaseConfig `envconfig:"DATABASE"`
	Redis    RedisConfig    `envconfig:"REDIS"`
	Kafka    KafkaConfig    `envconfig:"KAFKA"`

	// RulesSeedFile optionally points at a YAML file with extra seed rules.
	RulesSeedFile string `envconfig:"RULES_SEED_FILE"`
}

// PolicyConfig holds decision policy defaults.
type PolicyConfig struct {
	Version                string        `envconfig:"VERSION" default:"1.0.0"`
	DedupWindow            time.Duration `envconfig:"DEDUP_WINDOW" default:"1h"`
	DefaultExpirationDays  int           `envconfig:"EXPIRATION_DAYS" default:"365"`
	DefaultReviewDays      int           `envconfig:"REVIEW_INTERVAL_DAYS" default:"90"`
	BlockingSeverities     []string      `envconfig:"BLOCKING_SEVERITIES" default:"Critical,High"`
	MaxNonBlockingFailures int           `envconfig:"MAX_NON_BLOCKING_FAILURES" default:"0"`
	SummaryTopReasons      int           `envconfig:"SUMMARY_TOP_REASONS" default:"5"`
}

// ReviewConfig controls the background review scheduler.
type ReviewConfig struct {
	Enabled  bool          `envconfig:"ENABLED" default:"true"`
	Interval time.Duration `envconfig:"INTERVAL" default:"1m"`
}

// DatabaseConfig selects Postgres-backed stores when URL is set.
type DatabaseConfig struct {
	URL             string        `envconfig:"URL"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"30m"`
}

// RedisConfig enables the idempotency fast path when URL is set.
type RedisConfig struct {
	URL          string        `envconfig:"URL"`
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
}

// KafkaConfig enables the Kafka audit publisher when Brokers is set.
type KafkaConfig struct {
	Brokers    []string `envconfig:"BROKERS"`
	AuditTopic string   `envconfig:"AUDIT_TOPIC" default:"compliance.audit"`
	Partitions int32    `envconfig:"AUDIT_PARTITIONS" default:"3"`
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var cfg Server
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Server{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate rejects values envconfig cannot reject on its own.
func (c Server) Validate() error {
	if c.Policy.DedupWindow <= 0 {
		return fmt.Errorf("invalid config: dedup window must be positive")
	}
	if c.Policy.DefaultExpirationDays < 0 || c.Policy.DefaultReviewDays < 0 {
		return fmt.Errorf("invalid config: expiration and review days cannot be negative")
	}
	if c.Review.Enabled && c.Review.Interval <= 0 {
		return fmt.Errorf("invalid config: review worker interval must be positive")
	}
	if c.Policy.MaxNonBlockingFailures < 0 {
		return fmt.Errorf("invalid config: max non-blocking failures cannot be negative")
	}
	return nil
}
