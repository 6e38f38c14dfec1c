package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Posting  PostingConfig
	Fetch    FetchConfig
	Filter   FilterConfig
	Format   FormatConfig
	Rewrite  RewriteConfig
	Delivery DeliveryConfig
	Alert    AlertConfig
	Dedup    DedupConfig
	Database DatabaseConfig
	Logging  LoggingConfig

	// Sources is the resolved registry, sorted by (tier, name).
	Sources []SourceEntry
}

// PostingConfig holds the rate constraints on the publishing side.
type PostingConfig struct {
	MaxPostsPerDay  int
	MinPostInterval time.Duration
	Timezone        string
	MaxPostLength   int
}

// FetchConfig holds polling behavior.
type FetchConfig struct {
	PollInterval  time.Duration
	ItemsPerCheck int
	Timeout       time.Duration
	MaxConcurrent int
	UserAgent     string
	// OutageCycles is how many consecutive all-sources-failed cycles
	// trigger a systemic alert.
	OutageCycles int
}

// FilterConfig holds the global content-filter rules. Per-source overrides
// live on the registry entries.
type FilterConfig struct {
	MinEngagement int
	AllowTerms    []string
	DenyTerms     []string
}

// FormatConfig holds banner and credibility-band settings.
type FormatConfig struct {
	TriggerPhrase   string
	TriggerBanner   string
	CompletedBanner string
	CompletedTerms  []string
}

// RewriteConfig holds the external rewrite service settings.
type RewriteConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DeliveryConfig holds the publish pathway settings.
type DeliveryConfig struct {
	Mode       string // "api" or "simulator"
	APIURL     string
	APIToken   string
	Timeout    time.Duration
	MaxRetries int
}

// AlertConfig holds the webhook alert channel settings.
type AlertConfig struct {
	WebhookURL    string
	SigningSecret string
	Timeout       time.Duration
	QueueSize     int
}

// DedupConfig holds dedup guard settings.
type DedupConfig struct {
	Backend   string // "memory" or "redis"
	RedisAddr string
	Retention time.Duration
}

// DatabaseConfig holds optional PostgreSQL settings for the post-record
// audit store. An empty Host disables persistence.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string
	Format string // "text" or "json"
}

// ConfigError is fatal: the process must halt before any cycle runs.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Reason
}

// Load parses flags and environment variables to build configuration.
// A .env file in the working directory is applied first, without
// overriding variables already set in the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	pollInterval := flag.Duration("poll-interval", 5*time.Minute, "Delay between monitoring cycles")
	itemsPerCheck := flag.Int("items-per-check", 10, "Items fetched per source per cycle")
	fetchTimeout := flag.Duration("fetch-timeout", 30*time.Second, "Per-source fetch timeout")
	maxConcurrent := flag.Int("max-concurrent-fetches", 4, "Concurrent source fetch workers")
	maxPostsPerDay := flag.Int("max-posts-per-day", 50, "Daily posting cap")
	minPostInterval := flag.Duration("min-post-interval", 5*time.Minute, "Minimum delay between posts")
	postTimezone := flag.String("post-timezone", "UTC", "IANA timezone for the daily cap rollover")
	deliveryMode := flag.String("delivery-mode", "simulator", "Delivery mode: api or simulator")
	dedupBackend := flag.String("dedup-backend", "memory", "Dedup backend: memory or redis")
	redisAddr := flag.String("redis-addr", "localhost:6379", "Redis server address")
	dedupRetention := flag.Duration("dedup-retention", 48*time.Hour, "How long processed item ids are remembered")
	sourcesPath := flag.String("sources", "", "Path to sources.json (searched if empty)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "text", "Log format (text, json)")
	dbHost := flag.String("db-host", "", "PostgreSQL host (empty disables post history)")
	dbPort := flag.Int("db-port", 5432, "PostgreSQL port")
	dbUser := flag.String("db-user", "postgres", "PostgreSQL user")
	dbPassword := flag.String("db-password", "postgres", "PostgreSQL password")
	dbName := flag.String("db-name", "transferwire", "PostgreSQL database name")
	dbSSLMode := flag.String("db-sslmode", "disable", "PostgreSQL SSL mode")

	flag.Parse()

	applyEnvOverrides(pollInterval, itemsPerCheck, fetchTimeout, maxConcurrent,
		maxPostsPerDay, minPostInterval, postTimezone, deliveryMode,
		dedupBackend, redisAddr, dedupRetention, sourcesPath, logLevel,
		logFormat, dbHost, dbPort, dbUser, dbPassword, dbName, dbSSLMode)

	cfg := &Config{
		Posting: PostingConfig{
			MaxPostsPerDay:  *maxPostsPerDay,
			MinPostInterval: *minPostInterval,
			Timezone:        *postTimezone,
			MaxPostLength:   envInt("MAX_POST_LENGTH", 280),
		},
		Fetch: FetchConfig{
			PollInterval:  *pollInterval,
			ItemsPerCheck: *itemsPerCheck,
			Timeout:       *fetchTimeout,
			MaxConcurrent: *maxConcurrent,
			UserAgent:     getEnvOrDefault("FETCH_USER_AGENT", "transferwire/1.0"),
			OutageCycles:  envInt("FETCH_OUTAGE_CYCLES", 3),
		},
		Filter: FilterConfig{
			MinEngagement: envInt("MIN_ENGAGEMENT", 0),
			AllowTerms:    envList("ALLOW_TERMS"),
			DenyTerms:     envList("DENY_TERMS", "nfl", "nba", "cricket"),
		},
		Format: FormatConfig{
			TriggerPhrase:   getEnvOrDefault("TRIGGER_PHRASE", "here we go"),
			TriggerBanner:   getEnvOrDefault("TRIGGER_BANNER", "🚨 HERE WE GO! 🚨"),
			CompletedBanner: getEnvOrDefault("COMPLETED_BANNER", "🚨 TRANSFER COMPLETED 🚨"),
			CompletedTerms:  envList("COMPLETED_TERMS", "deal done", "transfer completed", "signed, sealed", "medical completed"),
		},
		Rewrite: RewriteConfig{
			APIKey:  os.Getenv("GROQ_API_KEY"),
			BaseURL: getEnvOrDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			Model:   getEnvOrDefault("GROQ_MODEL", "llama3-8b-8192"),
			Timeout: envDuration("REWRITE_TIMEOUT", 15*time.Second),
		},
		Delivery: DeliveryConfig{
			Mode:       *deliveryMode,
			APIURL:     os.Getenv("DELIVERY_API_URL"),
			APIToken:   os.Getenv("DELIVERY_API_TOKEN"),
			Timeout:    envDuration("DELIVERY_TIMEOUT", 15*time.Second),
			MaxRetries: envInt("DELIVERY_MAX_RETRIES", 3),
		},
		Alert: AlertConfig{
			WebhookURL:    os.Getenv("WEBHOOK_URL"),
			SigningSecret: os.Getenv("WEBHOOK_SIGNING_SECRET"),
			Timeout:       envDuration("WEBHOOK_TIMEOUT", 10*time.Second),
			QueueSize:     envInt("WEBHOOK_QUEUE_SIZE", 64),
		},
		Dedup: DedupConfig{
			Backend:   *dedupBackend,
			RedisAddr: *redisAddr,
			Retention: *dedupRetention,
		},
		Database: DatabaseConfig{
			Host:     *dbHost,
			Port:     *dbPort,
			User:     *dbUser,
			Password: *dbPassword,
			Database: *dbName,
			SSLMode:  *dbSSLMode,
		},
		Logging: LoggingConfig{
			Level:  *logLevel,
			Format: *logFormat,
		},
	}

	sources, err := LoadSources(*sourcesPath)
	if err != nil {
		return nil, err
	}
	cfg.Sources = sources

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the invariants the pipeline depends on. Any violation is
// a ConfigError and must halt the process before the first cycle.
func (c *Config) Validate() error {
	if c.Posting.MaxPostsPerDay < 1 {
		return &ConfigError{Reason: "max-posts-per-day must be at least 1"}
	}
	if c.Posting.MinPostInterval < 0 {
		return &ConfigError{Reason: "min-post-interval must not be negative"}
	}
	if c.Posting.MaxPostLength < 60 {
		return &ConfigError{Reason: "MAX_POST_LENGTH too small to fit attribution"}
	}
	if _, err := time.LoadLocation(c.Posting.Timezone); err != nil {
		return &ConfigError{Reason: fmt.Sprintf("unknown timezone %q", c.Posting.Timezone)}
	}
	if c.Fetch.PollInterval <= 0 {
		return &ConfigError{Reason: "poll-interval must be positive"}
	}
	if c.Fetch.MaxConcurrent < 1 {
		return &ConfigError{Reason: "max-concurrent-fetches must be at least 1"}
	}
	if len(c.Sources) == 0 {
		return &ConfigError{Reason: "source registry is empty"}
	}
	switch c.Delivery.Mode {
	case "api":
		if c.Delivery.APIURL == "" {
			return &ConfigError{Reason: "DELIVERY_API_URL required in api mode"}
		}
	case "simulator":
	default:
		return &ConfigError{Reason: fmt.Sprintf("unknown delivery mode %q", c.Delivery.Mode)}
	}
	switch c.Dedup.Backend {
	case "memory", "redis":
	default:
		return &ConfigError{Reason: fmt.Sprintf("unknown dedup backend %q", c.Dedup.Backend)}
	}
	return nil
}

// Location resolves the posting timezone. Validate guarantees it parses.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Posting.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string, def ...string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func applyEnvOverrides(
	pollInterval *time.Duration,
	itemsPerCheck *int,
	fetchTimeout *time.Duration,
	maxConcurrent *int,
	maxPostsPerDay *int,
	minPostInterval *time.Duration,
	postTimezone *string,
	deliveryMode *string,
	dedupBackend *string,
	redisAddr *string,
	dedupRetention *time.Duration,
	sourcesPath *string,
	logLevel *string,
	logFormat *string,
	dbHost *string,
	dbPort *int,
	dbUser *string,
	dbPassword *string,
	dbName *string,
	dbSSLMode *string,
) {
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*pollInterval = d
		}
	}
	if v := os.Getenv("ITEMS_PER_CHECK"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*itemsPerCheck = n
		}
	}
	if v := os.Getenv("FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*fetchTimeout = d
		}
	}
	if v := os.Getenv("MAX_CONCURRENT_FETCHES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*maxConcurrent = n
		}
	}
	if v := os.Getenv("MAX_POSTS_PER_DAY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*maxPostsPerDay = n
		}
	}
	if v := os.Getenv("MIN_POST_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*minPostInterval = d
		}
	}
	if v := os.Getenv("POST_TIMEZONE"); v != "" {
		*postTimezone = v
	}
	if v := os.Getenv("DELIVERY_MODE"); v != "" {
		*deliveryMode = v
	}
	if v := os.Getenv("DEDUP_BACKEND"); v != "" {
		*dedupBackend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		*redisAddr = v
	}
	if v := os.Getenv("DEDUP_RETENTION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dedupRetention = d
		}
	}
	if v := os.Getenv("SOURCES_CONFIG_PATH"); v != "" {
		*sourcesPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		*logLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		*logFormat = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		*dbHost = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			*dbPort = p
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		*dbUser = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		*dbPassword = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		*dbName = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		*dbSSLMode = v
	}
}
