package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	HTTP          HTTPConfig          `yaml:"http"`
	JWT           JWTConfig           `yaml:"jwt"`
	Draw          DrawConfig          `yaml:"draw"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// HTTPConfig holds the HTTP server configuration.
type HTTPConfig struct {
	Address        string   `yaml:"address"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	Issuer     string        `yaml:"issuer"`
	Audience   string        `yaml:"audience"`
	DefaultTTL time.Duration `yaml:"default_ttl"`
}

// DrawConfig holds the prize-draw business configuration. The splits
// are explicit inputs: nothing in the draw engine hardcodes them.
type DrawConfig struct {
	// EntryCost is the token price of one entry.
	EntryCost int64 `yaml:"entry_cost"`
	// TierSplits are the prize percentages per tier, highest first,
	// e.g. [40, 20, 10]. len defines the number of tiers.
	TierSplits []int `yaml:"tier_splits"`
	// CommunitySplit is the percentage routed to community projects.
	CommunitySplit int `yaml:"community_split"`
	// PlatformSplit is the percentage retained by the platform.
	PlatformSplit int `yaml:"platform_split"`
	// MaxEntriesPerUser caps entries per user per round; 0 = unlimited.
	MaxEntriesPerUser int `yaml:"max_entries_per_user"`
	// OpenDuration is how long a round accepts entries.
	OpenDuration time.Duration `yaml:"open_duration"`
	// DrawDelay is the gap between lock and draw.
	DrawDelay time.Duration `yaml:"draw_delay"`
	// PayoutDelay is the gap between draw and payout.
	PayoutDelay time.Duration `yaml:"payout_delay"`
	// ArchiveDelay is the gap between payout and archive.
	ArchiveDelay time.Duration `yaml:"archive_delay"`
	// PayoutMaxAttempts bounds credit retries before escalating to the
	// reconciliation queue.
	PayoutMaxAttempts int `yaml:"payout_max_attempts"`
	// PayoutBackoffInitial is the first retry interval.
	PayoutBackoffInitial time.Duration `yaml:"payout_backoff_initial"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	Environment     string  `yaml:"environment"`
	LogLevel        string  `yaml:"log_level"`
	MetricsAddress  string  `yaml:"metrics_address"`
	OTLPEndpoint    string  `yaml:"otlp_endpoint"`
	OTLPTransport   string  `yaml:"otlp_transport"` // grpc|http
	TraceSampleRate float64 `yaml:"trace_sample_rate"`
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(filename string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(filename)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	// --- OVERRIDE WITH ENV VARS IF PRESENT ---
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("OTLP_ENDPOINT"); v != "" {
		cfg.Observability.OTLPEndpoint = v
	}
	if v := os.Getenv("OTLP_TRANSPORT"); v != "" {
		cfg.Observability.OTLPTransport = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("TRACE_SAMPLE_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Observability.TraceSampleRate = f
		}
	}
	if v := os.Getenv("DRAW_ENTRY_COST"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Draw.EntryCost = n
		}
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Address == "" {
		cfg.HTTP.Address = ":8080"
	}
	if cfg.Draw.EntryCost == 0 {
		cfg.Draw.EntryCost = 50
	}
	if len(cfg.Draw.TierSplits) == 0 {
		cfg.Draw.TierSplits = []int{40, 20, 10}
	}
	if cfg.Draw.CommunitySplit == 0 && cfg.Draw.PlatformSplit == 0 {
		cfg.Draw.CommunitySplit = 20
		cfg.Draw.PlatformSplit = 10
	}
	if cfg.Draw.OpenDuration == 0 {
		cfg.Draw.OpenDuration = 7 * 24 * time.Hour
	}
	if cfg.Draw.DrawDelay == 0 {
		cfg.Draw.DrawDelay = time.Hour
	}
	if cfg.Draw.PayoutDelay == 0 {
		cfg.Draw.PayoutDelay = 5 * time.Minute
	}
	if cfg.Draw.ArchiveDelay == 0 {
		cfg.Draw.ArchiveDelay = 30 * 24 * time.Hour
	}
	if cfg.Draw.PayoutMaxAttempts == 0 {
		cfg.Draw.PayoutMaxAttempts = 5
	}
	if cfg.Draw.PayoutBackoffInitial == 0 {
		cfg.Draw.PayoutBackoffInitial = 2 * time.Second
	}
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}
}

// Validate rejects configurations the draw engine cannot run with.
func (c *Config) Validate() error {
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres DSN is required")
	}
	if c.Draw.EntryCost <= 0 {
		return fmt.Errorf("draw entry cost must be positive")
	}
	total := c.Draw.CommunitySplit + c.Draw.PlatformSplit
	for _, s := range c.Draw.TierSplits {
		if s <= 0 {
			return fmt.Errorf("tier splits must be positive percentages")
		}
		total += s
	}
	if total != 100 {
		return fmt.Errorf("draw splits must sum to 100, got %d", total)
	}
	return nil
}
