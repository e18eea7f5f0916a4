// Package config loads and validates termsearch configuration from a YAML file
// with environment-variable overrides. It provides typed structs for the
// document store, the searcher and every optional backing service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given and the file exists.
const DefaultPath = "configs/termsearch.yaml"

const (
	StoreDriverDir      = "dir"
	StoreDriverPostgres = "postgres"
)

// Config is the top-level application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Search   SearchConfig   `yaml:"search"`
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// StoreConfig selects where numbered documents are read from.
type StoreConfig struct {
	Driver string   `yaml:"driver"`
	Dir    string   `yaml:"dir"`
	Ignore []string `yaml:"ignore"`
}

// SearchConfig controls query resolution and snippet extraction.
type SearchConfig struct {
	NormalizeQuery  bool   `yaml:"normalizeQuery"`
	SnippetLength   int    `yaml:"snippetLength"`
	SnippetEllipsis string `yaml:"snippetEllipsis"`
	SnippetFallback bool   `yaml:"snippetFallback"`
	MaxResults      int    `yaml:"maxResults"`
}

// ServerConfig holds HTTP server settings for the serve command.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// RateLimit is the number of API requests allowed per client IP per
	// minute. Zero disables limiting.
	RateLimit   int      `yaml:"rateLimit"`
	CORSOrigins []string `yaml:"corsOrigins"`
}

// PostgresConfig holds PostgreSQL connection parameters for the postgres
// document store.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	Table           string        `yaml:"table"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis connection and query-cache parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds broker and topic settings for query analytics.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

type KafkaTopics struct {
	QueryEvents string `yaml:"queryEvents"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResolvePath returns path when set, otherwise DefaultPath if it exists, and
// "" (defaults only) when neither applies.
func ResolvePath(path string) string {
	if path != "" {
		return path
	}
	if _, err := os.Stat(DefaultPath); err == nil {
		return DefaultPath
	}
	return ""
}

// Validate reports configuration values the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case StoreDriverDir:
		if c.Store.Dir == "" {
			errs = append(errs, errors.New("store.dir must be set for the dir driver"))
		}
	case StoreDriverPostgres:
		if c.Postgres.Table == "" {
			errs = append(errs, errors.New("postgres.table must be set for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}
	if c.Search.SnippetLength <= 0 {
		errs = append(errs, fmt.Errorf("search.snippetLength must be positive, got %d", c.Search.SnippetLength))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rateLimit must not be negative, got %d", c.Server.RateLimit))
	}
	if c.Search.MaxResults < 0 {
		errs = append(errs, fmt.Errorf("search.maxResults must not be negative, got %d", c.Search.MaxResults))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: StoreDriverDir,
			Dir:    "documents",
		},
		Search: SearchConfig{
			NormalizeQuery:  true,
			SnippetLength:   80,
			SnippetEllipsis: "...",
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "termsearch",
			User:            "termsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			Table:           "documents",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "termsearch-analytics",
			Topics: KafkaTopics{
				QueryEvents: "termsearch-query-events",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Port: 9090,
		},
	}
}

// applyEnvOverrides reads SP_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SP_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("SP_STORE_DIR"); v != "" {
		cfg.Store.Dir = v
	}
	if v := os.Getenv("SP_SEARCH_NORMALIZE_QUERY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Search.NormalizeQuery = b
		}
	}
	if v := os.Getenv("SP_SEARCH_SNIPPET_FALLBACK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Search.SnippetFallback = b
		}
	}
	if v := os.Getenv("SP_SERVER_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimit = n
		}
	}
	if v := os.Getenv("SP_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SP_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SP_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SP_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("SP_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SP_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SP_REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if v := os.Getenv("SP_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SP_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("SP_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SP_KAFKA_CONSUMER_GROUP"); v != "" {
		cfg.Kafka.ConsumerGroup = v
	}
	if v := os.Getenv("SP_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SP_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SP_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
}
